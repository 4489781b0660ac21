package models

import (
	"time"
)

// Client is a billed customer owned by a tenant.
type Client struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	UserID             uint      `gorm:"not null;index" json:"user_id"`
	Name               string    `gorm:"not null" json:"name"`
	Email              string    `gorm:"index" json:"email"`
	Company            string    `json:"company"`
	Phone              string    `json:"phone"`
	Address            string    `gorm:"type:text" json:"address"`
	BillingRate        float64   `gorm:"type:decimal(12,2);default:0" json:"billing_rate"`
	OutstandingBalance float64   `gorm:"type:decimal(12,2);default:0" json:"outstanding_balance"`
	TotalBilled        float64   `gorm:"type:decimal(12,2);default:0" json:"total_billed"`
	Status             string    `gorm:"default:active;index" json:"status"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TableName specifies the table name for Client
func (Client) TableName() string {
	return "clients"
}

// Client status constants
const (
	ClientStatusActive   = "active"
	ClientStatusInactive = "inactive"
)
