// Package bookingengine implements the Booking Engine (C6): admission of a
// public booking request against a claimed slot, and cancellation.
package bookingengine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/naksha/availability-core/internal/client"
	"github.com/naksha/availability-core/internal/coherence"
	"github.com/naksha/availability-core/internal/coreclock"
	"github.com/naksha/availability-core/internal/coreerr"
	"github.com/naksha/availability-core/internal/models"
	"github.com/naksha/availability-core/internal/store"
	"github.com/naksha/availability-core/internal/timeutil"
	"github.com/naksha/availability-core/pkg/logger"
	"gorm.io/gorm"
)

// maxSessionMinutes enforces one-slot-per-session: slots are strictly
// hourly, so no session may claim more than a single slot (SPEC_FULL.md §9).
const maxSessionMinutes = 60

// Engine wires the store, coherence controller, and external collaborators
// together to implement book/cancel.
type Engine struct {
	store       *store.Store
	coherence   *coherence.Controller
	notifier    client.Notifier
	provisioner client.MeetingProvisioner
	clock       coreclock.Clock
	log         logger.Logger
}

func New(s *store.Store, coh *coherence.Controller, notifier client.Notifier, provisioner client.MeetingProvisioner, clock coreclock.Clock, log logger.Logger) *Engine {
	if provisioner == nil {
		provisioner = client.NoopMeetingProvisioner{}
	}
	return &Engine{
		store:       s,
		coherence:   coh,
		notifier:    notifier,
		provisioner: provisioner,
		clock:       clock,
		log:         logger.ComponentLogger(log, "booking_engine"),
	}
}

// BookRequest is the admission request described in SPEC_FULL.md §4.6.
type BookRequest struct {
	ConsultantSlug  string
	SessionType     models.SessionType
	Date            string // YYYY-MM-DD
	Time            string // HH:MM
	DurationMinutes int
	ClientFullName  string
	ClientEmail     string
	ClientPhone     string
	Amount          float64
	Notes           string
	BookingSource   models.BookingSource
}

// Book validates, atomically claims a slot, and persists the session.
func (e *Engine) Book(ctx context.Context, req BookRequest) (*models.Session, error) {
	if req.DurationMinutes <= 0 || req.DurationMinutes > maxSessionMinutes {
		return nil, coreerr.Newf(coreerr.BadInput, "durationMinutes must be between 1 and %d", maxSessionMinutes)
	}
	if req.ClientEmail == "" {
		return nil, coreerr.New(coreerr.BadInput, "clientEmail is required")
	}
	date, err := timeutil.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}
	if _, err := timeutil.ParseHHMM(req.Time); err != nil {
		return nil, err
	}

	consultant, err := e.store.ResolveConsultantBySlug(ctx, req.ConsultantSlug)
	if err != nil {
		return nil, err
	}

	scheduledAt := combineDateTime(date, req.Time)
	if !scheduledAt.After(e.clock.Now()) {
		return nil, coreerr.New(coreerr.BadInput, "scheduled date/time must be in the future")
	}

	bookingSource := req.BookingSource
	if bookingSource == "" {
		bookingSource = models.BookingSourcePublic
	}

	var session *models.Session
	var bookedClient *models.Client
	txErr := e.store.WithTransaction(ctx, func(tx *gorm.DB) error {
		c, err := e.store.FindOrCreateClient(tx, consultant.ID, req.ClientEmail, store.ClientData{
			Name:  req.ClientFullName,
			Phone: req.ClientPhone,
		})
		if err != nil {
			return err
		}
		bookedClient = c

		sessionID := uuid.New().String()
		claimed, err := e.store.ClaimSlot(tx, consultant.ID, req.SessionType, date, req.Time, sessionID)
		if err != nil {
			return err
		}
		if !claimed {
			exists, err := e.store.SlotExists(tx, consultant.ID, req.SessionType, date, req.Time)
			if err != nil {
				return err
			}
			if !exists {
				return coreerr.New(coreerr.NotFound, "no availability slot exists at the requested time")
			}
			return coreerr.New(coreerr.SlotTaken, "requested slot is already booked or blocked")
		}

		s := &models.Session{
			ID:              sessionID,
			ConsultantID:    consultant.ID,
			ClientID:        bookedClient.ID,
			SessionType:     req.SessionType,
			ScheduledDate:   date,
			ScheduledTime:   req.Time,
			DurationMinutes: req.DurationMinutes,
			Amount:          req.Amount,
			Status:          models.SessionStatusPending,
			PaymentStatus:   models.PaymentStatusPending,
			BookingSource:   bookingSource,
			Notes:           req.Notes,
		}
		if err := e.store.CreateSession(tx, s); err != nil {
			return err
		}

		if err := e.store.IncrementClientSessionCount(tx, bookedClient.ID, req.Amount); err != nil {
			return err
		}

		session = s
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	e.notifier.SessionBooked(ctx, session, bookedClient, consultant.ID)
	e.attachMeeting(ctx, session)
	e.coherence.Invalidate(consultant.ID, consultant.Slug, coherence.ScopeSlots, req.SessionType)
	return session, nil
}

// attachMeeting asks the configured MeetingProvisioner for a link and
// persists it. It never fails the booking: a provisioning error or a
// no-op provisioner just leaves the session without a meeting link.
func (e *Engine) attachMeeting(ctx context.Context, session *models.Session) {
	details, err := e.provisioner.Create(ctx, session.ID)
	if err != nil {
		e.log.Warn("meeting provisioning failed", "error", err, "sessionId", session.ID)
		return
	}
	if details == nil {
		return
	}
	if err := e.store.UpdateSessionMeeting(ctx, session.ID, details.Link, details.ID, details.Password); err != nil {
		e.log.Warn("failed to persist meeting details", "error", err, "sessionId", session.ID)
	}
}

// Cancel transitions a session to CANCELLED and releases its slot row. The
// slot's isBlocked flag, if ever set, is left untouched. consultantSlug is
// needed only to invalidate that consultant's cached public-slot pages,
// which are keyed by slug rather than ID.
func (e *Engine) Cancel(ctx context.Context, sessionID, consultantSlug string) error {
	sess, err := e.store.GetSessionByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.Status == models.SessionStatusCancelled {
		return nil
	}

	txErr := e.store.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := e.store.UpdateSessionStatus(tx, sessionID, models.SessionStatusCancelled); err != nil {
			return err
		}
		return e.store.ReleaseSlotBySession(tx, sessionID)
	})
	if txErr != nil {
		return txErr
	}

	e.coherence.Invalidate(sess.ConsultantID, consultantSlug, coherence.ScopeSlots, sess.SessionType)
	return nil
}

func combineDateTime(date time.Time, hhmm string) time.Time {
	minutes, _ := timeutil.ParseHHMM(hhmm)
	return date.Add(time.Duration(minutes) * time.Minute)
}
