package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionType is the fixed, two-value enum carried by patterns, slots, and
// sessions alike.
type SessionType string

const (
	SessionTypePersonal SessionType = "PERSONAL"
	SessionTypeWebinar  SessionType = "WEBINAR"
)

// WeeklyPattern is a recurring weekly declaration of available hours for a
// given sessionType on a given weekday. DayOfWeek follows 0=Sunday..6=Saturday
// to match the wire representation in use across the HTTP surface.
type WeeklyPattern struct {
	ID           string      `gorm:"type:uuid;primary_key" json:"id"`
	ConsultantID string      `gorm:"index:idx_pattern_lookup,priority:1;type:uuid;not null" json:"consultantId"`
	SessionType  SessionType `gorm:"index:idx_pattern_lookup,priority:2;type:varchar(20);not null" json:"sessionType"`
	DayOfWeek    int         `gorm:"index:idx_pattern_lookup,priority:3;not null" json:"dayOfWeek"`
	StartTime    string      `gorm:"type:varchar(5);not null" json:"startTime"`
	EndTime      string      `gorm:"type:varchar(5);not null" json:"endTime"`
	IsActive     bool        `gorm:"default:true" json:"isActive"`
	Timezone     string      `gorm:"type:varchar(64);not null;default:'UTC'" json:"timezone"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *WeeklyPattern) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

func (WeeklyPattern) TableName() string {
	return "weekly_availability_pattern"
}
