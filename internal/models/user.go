package models

// Role constants
const (
	RoleAdmin  = "admin"
	RoleStaff  = "staff"
	RoleViewer = "viewer"
	RoleClient = "client"
)

// Principal is the authenticated caller as handed over by the auth layer.
// UserID is the tenant that owns clients, projects and invoices. ClientID is
// only set for client-portal users.
type Principal struct {
	UserID   uint
	Role     string
	ClientID uint
}

// IsAdmin returns true if the caller may bypass manual status rules
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// IsClient returns true if the caller is scoped to a single client
func (p Principal) IsClient() bool {
	return p.Role == RoleClient
}

// ValidRole reports whether role is one the API knows about.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleStaff, RoleViewer, RoleClient:
		return true
	}
	return false
}
