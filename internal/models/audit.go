package models

import (
	"time"
)

// AuditLog records who changed which ledger entity.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Action    string    `gorm:"size:50;not null" json:"action"` // CREATE, UPDATE, DELETE, APPLY_PAYMENT
	Entity    string    `gorm:"size:50;not null;index:idx_audit_entity" json:"entity"`
	EntityID  uint      `gorm:"index:idx_audit_entity" json:"entity_id"`
	Details   string    `gorm:"type:text" json:"details"`
	IPAddress string    `gorm:"size:45" json:"ip_address"`
	UserAgent string    `gorm:"size:255" json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for AuditLog
func (AuditLog) TableName() string {
	return "audit_logs"
}

// Audit actions
const (
	AuditActionCreate       = "CREATE"
	AuditActionUpdate       = "UPDATE"
	AuditActionDelete       = "DELETE"
	AuditActionApplyPayment = "APPLY_PAYMENT"
	AuditActionRecompute    = "RECOMPUTE"
)

// Auditable entity names
const (
	AuditEntityInvoice = "Invoice"
	AuditEntityPayment = "Payment"
	AuditEntityWorkLog = "WorkLog"
	AuditEntityClient  = "Client"
	AuditEntityExpense = "Expense"
)

// All returns every model the schema migration manages.
func All() []any {
	return []any{
		&Client{},
		&Project{},
		&WorkLog{},
		&Invoice{},
		&Payment{},
		&Expense{},
		&AuditLog{},
	}
}
