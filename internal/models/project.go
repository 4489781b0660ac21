package models

import (
	"time"
)

// Project groups work for a single client and prices it by the hour.
type Project struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	ClientID    uint      `gorm:"not null;index" json:"client_id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	HourlyRate  float64   `gorm:"type:decimal(12,2);not null;default:0" json:"hourly_rate"`
	Budget      float64   `gorm:"type:decimal(12,2);default:0" json:"budget"`
	Status      string    `gorm:"default:active;index" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Associations
	Client Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`
}

// TableName specifies the table name for Project
func (Project) TableName() string {
	return "projects"
}

// Project status constants
const (
	ProjectStatusActive    = "active"
	ProjectStatusCompleted = "completed"
	ProjectStatusOnHold    = "on-hold"
)
