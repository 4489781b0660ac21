package models

import (
	"time"
)

// Expense is money spent by a tenant, optionally against one of its projects.
// Only approved and paid expenses count towards profit.
type Expense struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;index:idx_expenses_user_date,priority:1;index:idx_expenses_user_category,priority:1;index:idx_expenses_user_status,priority:1" json:"user_id"`
	ProjectID     *uint     `gorm:"index" json:"project_id"`
	Category      string    `gorm:"size:30;not null;index:idx_expenses_user_category,priority:2" json:"category"`
	Description   string    `gorm:"type:text;not null" json:"description"`
	Amount        float64   `gorm:"type:decimal(12,2);not null" json:"amount"`
	Vendor        string    `gorm:"size:255" json:"vendor"`
	Date          time.Time `gorm:"not null;index:idx_expenses_user_date,priority:2" json:"date"`
	Status        string    `gorm:"size:20;not null;default:pending;index:idx_expenses_user_status,priority:2" json:"status"`
	PaymentMethod string    `gorm:"size:30" json:"payment_method"`
	Receipt       string    `gorm:"size:500" json:"receipt"`
	Notes         string    `gorm:"type:text" json:"notes"`
	Tags          []string  `gorm:"type:text;serializer:json" json:"tags"`
	Currency      string    `gorm:"size:3;not null;default:USD" json:"currency"`
	TaxDeductible bool      `gorm:"default:false" json:"tax_deductible"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// Associations
	Project *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
}

// TableName specifies the table name for Expense
func (Expense) TableName() string {
	return "expenses"
}

// Expense status constants
const (
	ExpenseStatusPending  = "pending"
	ExpenseStatusApproved = "approved"
	ExpenseStatusRejected = "rejected"
	ExpenseStatusPaid     = "paid"
)

// ExpenseCategories lists the accepted categories
var ExpenseCategories = []string{
	"software", "hardware", "labor", "utilities", "office-supplies", "travel",
	"marketing", "hosting", "subscription", "maintenance", "other",
}

// CountsTowardsProfit reports whether the expense has been accepted as a cost
func (e *Expense) CountsTowardsProfit() bool {
	return e.Status == ExpenseStatusApproved || e.Status == ExpenseStatusPaid
}
