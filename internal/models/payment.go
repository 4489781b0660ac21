package models

import (
	"time"
)

// Payment records money received against one invoice. Only completed payments
// move the invoice ledger.
type Payment struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	InvoiceID     uint      `gorm:"not null;index" json:"invoice_id"`
	ClientID      uint      `gorm:"not null;index" json:"client_id"`
	Amount        float64   `gorm:"type:decimal(12,2);not null" json:"amount"`
	PaymentMethod string    `gorm:"size:30;not null;default:bank-transfer" json:"payment_method"`
	PaymentDate   time.Time `gorm:"not null;index" json:"payment_date"`
	Reference     string    `gorm:"size:64;index" json:"reference"`
	Notes         string    `gorm:"type:text" json:"notes"`
	Status        string    `gorm:"size:20;not null;default:completed;index" json:"status"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName specifies the table name for Payment
func (Payment) TableName() string {
	return "payments"
}

// Payment status constants
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

// Payment method constants
const (
	PaymentMethodCash         = "cash"
	PaymentMethodBankTransfer = "bank-transfer"
	PaymentMethodCreditCard   = "credit-card"
	PaymentMethodCheck        = "check"
	PaymentMethodOther        = "other"
)

// MayComplete returns true if the payment can be marked completed
func (p *Payment) MayComplete() bool {
	return p.Status == PaymentStatusPending
}

// MayFail returns true if the payment can be marked failed
func (p *Payment) MayFail() bool {
	return p.Status == PaymentStatusPending
}

// MayRetry returns true if a failed payment can go back to pending
func (p *Payment) MayRetry() bool {
	return p.Status == PaymentStatusFailed
}

// IsCompleted reports whether the payment has been applied to its invoice.
func (p *Payment) IsCompleted() bool {
	return p.Status == PaymentStatusCompleted
}
