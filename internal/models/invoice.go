package models

import (
	"time"

	"github.com/sjperalta/billtrack-api/internal/ledger"
)

// Invoice is the ledger record for billed work. The money columns are
// denormalized and may disagree; always read them through Financials.
type Invoice struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	UserID        uint          `gorm:"not null;index" json:"user_id"`
	ClientID      uint          `gorm:"not null;index" json:"client_id"`
	ProjectID     *uint         `gorm:"index" json:"project_id"`
	InvoiceNumber string        `gorm:"size:32;not null;uniqueIndex" json:"invoice_number"`
	Status        ledger.Status `gorm:"type:varchar(20);not null;default:draft;index" json:"status"`
	Subtotal      float64       `gorm:"type:decimal(12,2);default:0" json:"subtotal"`
	Tax           float64       `gorm:"type:decimal(12,2);default:0" json:"tax"`
	TaxPercentage float64       `gorm:"type:decimal(5,2);default:0" json:"tax_percentage"`
	TaxEnabled    bool          `gorm:"default:false" json:"tax_enabled"`
	Total         float64       `gorm:"type:decimal(12,2);default:0" json:"total"`
	AmountPaid    float64       `gorm:"type:decimal(12,2);default:0" json:"amount_paid"`
	DueAmount     float64       `gorm:"type:decimal(12,2);default:0" json:"due_amount"`
	IssueDate     time.Time     `gorm:"not null;index" json:"issue_date"`
	DueDate       *time.Time    `gorm:"index" json:"due_date"`
	PaidDate      *time.Time    `json:"paid_date"`
	Notes         string        `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time     `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`

	// Associations
	Client   Client    `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	WorkLogs []WorkLog `gorm:"foreignKey:InvoiceID" json:"work_logs,omitempty"`
}

// TableName specifies the table name for Invoice
func (Invoice) TableName() string {
	return "invoices"
}

// Financials returns the reconciled ledger triple for the stored fields.
func (i *Invoice) Financials() ledger.Financials {
	return ledger.Reconcile(i.Total, i.AmountPaid, i.DueAmount)
}

// DerivedStatus computes the status the invoice should have at now.
func (i *Invoice) DerivedStatus(now time.Time) ledger.Status {
	return ledger.DeriveStatus(ledger.StatusFacts{
		Financials: i.Financials(),
		DueDate:    i.DueDate,
		Current:    i.Status,
	}, now)
}

// SetFinancials writes a reconciled triple back onto the stored fields.
func (i *Invoice) SetFinancials(f ledger.Financials) {
	i.Total = f.Total
	i.AmountPaid = f.Paid
	i.DueAmount = f.Due
}

// InvoiceResponse is the JSON response format for invoices. Money and status
// are always the reconciled and derived values, never the raw columns.
type InvoiceResponse struct {
	ID            uint          `json:"id"`
	ClientID      uint          `json:"client_id"`
	ClientName    string        `json:"client_name,omitempty"`
	ProjectID     *uint         `json:"project_id"`
	InvoiceNumber string        `json:"invoice_number"`
	Status        ledger.Status `json:"status"`
	Subtotal      float64       `json:"subtotal"`
	Tax           float64       `json:"tax"`
	TaxPercentage float64       `json:"tax_percentage"`
	TaxEnabled    bool          `json:"tax_enabled"`
	Total         float64       `json:"total"`
	AmountPaid    float64       `json:"amount_paid"`
	DueAmount     float64       `json:"due_amount"`
	IssueDate     time.Time     `json:"issue_date"`
	DueDate       *time.Time    `json:"due_date"`
	PaidDate      *time.Time    `json:"paid_date"`
	Notes         string        `json:"notes"`
	WorkLogIDs    []uint        `json:"work_log_ids"`
	CreatedAt     time.Time     `json:"created_at"`
}

// ToResponse converts Invoice to InvoiceResponse as seen at now.
func (i *Invoice) ToResponse(now time.Time) InvoiceResponse {
	fin := i.Financials()
	ids := make([]uint, 0, len(i.WorkLogs))
	for _, wl := range i.WorkLogs {
		ids = append(ids, wl.ID)
	}
	return InvoiceResponse{
		ID:            i.ID,
		ClientID:      i.ClientID,
		ClientName:    i.Client.Name,
		ProjectID:     i.ProjectID,
		InvoiceNumber: i.InvoiceNumber,
		Status:        i.DerivedStatus(now),
		Subtotal:      i.Subtotal,
		Tax:           i.Tax,
		TaxPercentage: i.TaxPercentage,
		TaxEnabled:    i.TaxEnabled,
		Total:         fin.Total,
		AmountPaid:    fin.Paid,
		DueAmount:     fin.Due,
		IssueDate:     i.IssueDate,
		DueDate:       i.DueDate,
		PaidDate:      i.PaidDate,
		Notes:         i.Notes,
		WorkLogIDs:    ids,
		CreatedAt:     i.CreatedAt,
	}
}
