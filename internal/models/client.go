package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Client is the end customer booking against a consultant's slots. Created
// on demand during booking admission when no row exists yet for the
// (consultantId, email) pair.
type Client struct {
	ID              string  `gorm:"type:uuid;primary_key" json:"id"`
	ConsultantID    string  `gorm:"uniqueIndex:idx_client_identity,priority:1;type:uuid;not null" json:"consultantId"`
	Email           string  `gorm:"uniqueIndex:idx_client_identity,priority:2;type:varchar(255);not null" json:"email"`
	Name            string  `gorm:"type:varchar(255);not null" json:"name"`
	Phone           string  `gorm:"type:varchar(32)" json:"phone"`
	TotalSessions   int     `gorm:"default:0" json:"totalSessions"`
	TotalAmountPaid float64 `gorm:"default:0" json:"totalAmountPaid"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *Client) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

func (Client) TableName() string {
	return "client"
}
