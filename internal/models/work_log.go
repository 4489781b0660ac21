package models

import (
	"time"
)

// WorkLog is one timesheet entry against a project. Once InvoiceID is set the
// entry is frozen until the invoice is deleted.
type WorkLog struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null;index" json:"user_id"`
	ProjectID      uint      `gorm:"not null;index" json:"project_id"`
	ClientID       uint      `gorm:"not null;index" json:"client_id"`
	Date           time.Time `gorm:"not null;index" json:"date"`
	Hours          float64   `gorm:"type:decimal(8,2);not null" json:"hours"`
	Description    string    `gorm:"type:text" json:"description"`
	Billable       bool      `gorm:"not null" json:"billable"`
	BillableAmount float64   `gorm:"type:decimal(12,2);default:0" json:"billable_amount"`
	InvoiceID      *uint     `gorm:"index" json:"invoice_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Associations
	Project Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
}

// TableName specifies the table name for WorkLog
func (WorkLog) TableName() string {
	return "work_logs"
}

// IsInvoiced reports whether the entry has been consumed by an invoice.
func (w *WorkLog) IsInvoiced() bool {
	return w.InvoiceID != nil
}
