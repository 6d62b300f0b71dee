package store

import (
	"context"

	"github.com/naksha/availability-core/internal/coreerr"
	"github.com/naksha/availability-core/internal/models"
	"gorm.io/gorm"
)

// CreateSession persists a new session. The caller must have already
// claimed the backing slot in the same transaction.
func (s *Store) CreateSession(tx *gorm.DB, session *models.Session) error {
	if err := tx.Create(session).Error; err != nil {
		return coreerr.Wrap(coreerr.Infra, err, "creating session")
	}
	return nil
}

// GetSessionByID reads a single session, scoped by ctx for deadline
// propagation on the read path.
func (s *Store) GetSessionByID(ctx context.Context, sessionID string) (*models.Session, error) {
	var sess models.Session
	if err := s.db.WithContext(ctx).First(&sess, "id = ?", sessionID).Error; err != nil {
		return nil, wrapDBErr(err, "session not found")
	}
	return &sess, nil
}

// UpdateSessionStatus transitions a session's status inside tx.
func (s *Store) UpdateSessionStatus(tx *gorm.DB, sessionID string, status models.SessionStatus) error {
	res := tx.Model(&models.Session{}).Where("id = ?", sessionID).Update("status", status)
	if res.Error != nil {
		return coreerr.Wrap(coreerr.Infra, res.Error, "updating session status")
	}
	if res.RowsAffected == 0 {
		return coreerr.New(coreerr.NotFound, "session not found")
	}
	return nil
}

// UpdateSessionMeeting attaches provisioned meeting details to a session,
// run outside the booking transaction (provisioning is best-effort).
func (s *Store) UpdateSessionMeeting(ctx context.Context, sessionID, link, meetingID, password string) error {
	res := s.db.WithContext(ctx).Model(&models.Session{}).Where("id = ?", sessionID).
		Updates(map[string]interface{}{
			"meeting_link":     link,
			"meeting_id":       meetingID,
			"meeting_password": password,
		})
	if res.Error != nil {
		return coreerr.Wrap(coreerr.Infra, res.Error, "attaching meeting details")
	}
	return nil
}

// WithTransaction runs fn inside a single database transaction; the booking
// engine opens its transactions through it.
func (s *Store) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	err := s.db.WithContext(ctx).Transaction(fn)
	if err == nil {
		return nil
	}
	if _, ok := coreerr.As(err); ok {
		return err
	}
	return coreerr.Wrap(coreerr.Infra, err, "transaction failed")
}
