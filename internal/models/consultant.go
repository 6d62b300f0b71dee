package models

import "time"

// Consultant is a local, read-mostly projection of the consultant owned by
// an external identity/profile service. The core never creates consultants
// on its own initiative; rows arrive via NATS lifecycle events (see
// internal/subscribers) and are consulted only to resolve a public slug to
// an internal consultantId.
type Consultant struct {
	ID       string `gorm:"type:uuid;primary_key" json:"id"`
	Slug     string `gorm:"uniqueIndex;type:varchar(255);not null" json:"slug"`
	IsActive bool   `gorm:"default:true" json:"isActive"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Consultant) TableName() string {
	return "consultants"
}
