package repository

import (
	"context"

	"github.com/sjperalta/billtrack-api/internal/models"
	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	Client  ClientRepository
	Project ProjectRepository
	WorkLog WorkLogRepository
	Invoice InvoiceRepository
	Payment PaymentRepository
	Expense ExpenseRepository

	db *gorm.DB
}

// NewRepositories creates all repository instances
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Client:  NewClientRepository(db),
		Project: NewProjectRepository(db),
		WorkLog: NewWorkLogRepository(db),
		Invoice: NewInvoiceRepository(db),
		Payment: NewPaymentRepository(db),
		Expense: NewExpenseRepository(db),
		db:      db,
	}
}

// Transaction runs fn with every repository bound to one database
// transaction. Returning an error from fn rolls everything back.
func (r *Repositories) Transaction(ctx context.Context, fn func(tx *Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// DB exposes the underlying handle for services that write outside a
// repository (audit trail).
func (r *Repositories) DB() *gorm.DB {
	return r.db
}

// Scope restricts queries to what a caller may see: a tenant's own records,
// or a single client's records for client-portal users.
type Scope struct {
	UserID   uint
	ClientID uint
	IsClient bool
}

// ScopeFor derives the query scope of an authenticated caller
func ScopeFor(p models.Principal) Scope {
	if p.IsClient() {
		return Scope{ClientID: p.ClientID, IsClient: true}
	}
	return Scope{UserID: p.UserID}
}

func (s Scope) apply(db *gorm.DB, table string) *gorm.DB {
	if s.IsClient {
		return db.Where(table+".client_id = ?", s.ClientID)
	}
	return db.Where(table+".user_id = ?", s.UserID)
}

// ListQuery represents common query parameters
type ListQuery struct {
	Page    int
	PerPage int
	SortBy  string
	SortDir string
	Filters map[string]string
}

// NewListQuery creates a ListQuery with defaults
func NewListQuery() *ListQuery {
	return &ListQuery{
		Page:    1,
		PerPage: 20,
		Filters: make(map[string]string),
	}
}

func (q *ListQuery) filter(key string) string {
	if q == nil || q.Filters == nil {
		return ""
	}
	return q.Filters[key]
}

func (q *ListQuery) paginate(db *gorm.DB) *gorm.DB {
	if q == nil || q.PerPage <= 0 {
		return db
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	return db.Offset((page - 1) * q.PerPage).Limit(q.PerPage)
}

// order applies SortBy when it is one of the allowed columns, else fallback.
func (q *ListQuery) order(db *gorm.DB, allowed map[string]string, fallback string) *gorm.DB {
	if q != nil && q.SortBy != "" {
		if col, ok := allowed[q.SortBy]; ok {
			if q.SortDir == "desc" {
				col += " DESC"
			}
			return db.Order(col)
		}
	}
	return db.Order(fallback)
}
