package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AvailabilitySlot is a concrete, date-anchored hourly window derivable from
// a pattern; it is the unit of booking. Slots are always hourly: EndTime is
// always StartTime+60 minutes.
type AvailabilitySlot struct {
	ID           string      `gorm:"type:uuid;primary_key" json:"id"`
	ConsultantID string      `gorm:"uniqueIndex:idx_slot_identity,priority:1;index:idx_slot_query,priority:1;type:uuid;not null" json:"consultantId"`
	SessionType  SessionType `gorm:"uniqueIndex:idx_slot_identity,priority:2;index:idx_slot_query,priority:5;type:varchar(20);not null" json:"sessionType"`
	Date         time.Time   `gorm:"uniqueIndex:idx_slot_identity,priority:3;index:idx_slot_query,priority:4;type:date;not null" json:"date"`
	StartTime    string      `gorm:"uniqueIndex:idx_slot_identity,priority:4;index:idx_slot_query,priority:6;type:varchar(5);not null" json:"startTime"`
	EndTime      string      `gorm:"type:varchar(5);not null" json:"endTime"`
	IsBooked     bool        `gorm:"index:idx_slot_query,priority:2;default:false" json:"isBooked"`
	IsBlocked    bool        `gorm:"index:idx_slot_query,priority:3;default:false" json:"isBlocked"`
	SessionID    *string     `gorm:"type:uuid;index" json:"sessionId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *AvailabilitySlot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

func (AvailabilitySlot) TableName() string {
	return "availability_slot"
}
