// Package events carries ChangeNotifications (C7) to other services over
// NATS, and degrades to a silent no-op publisher when NATS is unavailable so
// the write path never fails on a missing broker.
package events

import (
	"encoding/json"
	"fmt"

	"github.com/naksha/availability-core/internal/config"
	"github.com/naksha/availability-core/pkg/logger"
	"github.com/nats-io/nats.go"
)

// Publisher handles event publishing. A Publisher with a nil conn is the
// NullPublisher case: every Publish call is a logged no-op.
type Publisher struct {
	conn   *nats.Conn
	logger logger.Logger
}

// Subscriber handles event subscriptions.
type Subscriber struct {
	conn   *nats.Conn
	logger logger.Logger
}

// Connect connects to NATS.
func Connect(cfg config.NATSConfig) (*nats.Conn, error) {
	conn, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

func NewPublisher(conn *nats.Conn, log logger.Logger) *Publisher {
	return &Publisher{conn: conn, logger: log}
}

// NewNullPublisher creates a publisher with no backing connection, for
// development or when NATS is unreachable.
func NewNullPublisher(log logger.Logger) *Publisher {
	return &Publisher{conn: nil, logger: log}
}

// Publish publishes an event. With no connection it logs and returns nil:
// notification delivery is best-effort by design (SPEC_FULL.md §4.7).
func (p *Publisher) Publish(subject string, data interface{}) error {
	if p.conn == nil {
		p.logger.Debug("event publishing skipped (no NATS connection)", "subject", subject)
		return nil
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("published event", "subject", subject)
	return nil
}

func NewSubscriber(conn *nats.Conn, log logger.Logger) *Subscriber {
	return &Subscriber{conn: conn, logger: log}
}

// Subscribe subscribes to events on a subject.
func (s *Subscriber) Subscribe(subject string, handler func([]byte) error) error {
	_, err := s.conn.Subscribe(subject, func(msg *nats.Msg) {
		if err := handler(msg.Data); err != nil {
			s.logger.Error("failed to handle event", "subject", subject, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", subject, err)
	}

	s.logger.Debug("subscribed to subject", "subject", subject)
	return nil
}

// Event subjects. PatternsUpdatedEvent/SlotsUpdatedEvent carry the
// ChangeNotification kinds from SPEC_FULL.md §4.7. Nothing in this service
// publishes the booking and slot.reserved subjects; the realtime manager
// subscribes to booking.confirmed/booking.cancelled published elsewhere.
const (
	BookingRequestedEvent  = "booking.requested"
	BookingConfirmedEvent  = "booking.confirmed"
	BookingCancelledEvent  = "booking.cancelled"
	SlotReservedEvent      = "slot.reserved"
	PatternsUpdatedEvent   = "availability.patterns.updated"
	SlotsUpdatedEvent      = "availability.slots.updated"
	ConsultantLifecycleSubject = "consultant.lifecycle"
)
