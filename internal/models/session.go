package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionStatus is the lifecycle state of a booked Session.
type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "PENDING"
	SessionStatusConfirmed SessionStatus = "CONFIRMED"
	SessionStatusCompleted SessionStatus = "COMPLETED"
	SessionStatusCancelled SessionStatus = "CANCELLED"
	SessionStatusNoShow    SessionStatus = "NO_SHOW"
	SessionStatusAbandoned SessionStatus = "ABANDONED"
)

// PaymentStatus tracks the payment side of a session independent of its
// scheduling status.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusFailed  PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// BookingSource records how the session was admitted.
type BookingSource string

const (
	BookingSourcePublic        BookingSource = "public_booking"
	BookingSourceManuallyAdded BookingSource = "manually_added"
	BookingSourceNakshaPlatform BookingSource = "naksha_platform"
)

// Session is a committed booking linking a client to a consultant at a
// specific time, against a claimed slot.
type Session struct {
	ID              string        `gorm:"type:uuid;primary_key" json:"id"`
	ConsultantID    string        `gorm:"index:idx_session_lookup,priority:1;type:uuid;not null" json:"consultantId"`
	ClientID        string        `gorm:"index;type:uuid;not null" json:"clientId"`
	SessionType     SessionType   `gorm:"type:varchar(20);not null" json:"sessionType"`
	ScheduledDate   time.Time     `gorm:"index:idx_session_lookup,priority:2;type:date;not null" json:"scheduledDate"`
	ScheduledTime   string        `gorm:"index:idx_session_lookup,priority:3;type:varchar(5);not null" json:"scheduledTime"`
	DurationMinutes int           `gorm:"not null" json:"durationMinutes"`
	Amount          float64       `gorm:"not null;default:0" json:"amount"`
	Status          SessionStatus `gorm:"index;type:varchar(20);not null" json:"status"`
	PaymentStatus   PaymentStatus `gorm:"type:varchar(20);not null" json:"paymentStatus"`
	BookingSource   BookingSource `gorm:"type:varchar(30);not null" json:"bookingSource"`
	SlotID          *string       `gorm:"type:uuid;index" json:"slotId,omitempty"`
	Notes           string        `gorm:"type:text" json:"notes,omitempty"`
	MeetingLink     string        `gorm:"type:varchar(512)" json:"meetingLink,omitempty"`
	MeetingID       string        `gorm:"type:varchar(255)" json:"meetingId,omitempty"`
	MeetingPassword string        `gorm:"type:varchar(64)" json:"-"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

func (Session) TableName() string {
	return "session"
}
