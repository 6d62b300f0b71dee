// Package store is the sole transactional gateway to PostgreSQL (C2 in the
// design). Every multi-row mutation runs inside a single gorm.DB.Transaction.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/naksha/availability-core/internal/coreerr"
	"github.com/naksha/availability-core/internal/models"
	"gorm.io/gorm"
)

// Store wraps the database connection used by every core component.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection for components (the pattern engine's
// bulk-replace path) that need to open their own transaction spanning
// several Store calls.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func wrapDBErr(err error, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return coreerr.New(coreerr.NotFound, notFoundMsg)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return coreerr.Wrap(coreerr.Deadline, err, "database deadline exceeded")
	}
	return coreerr.Wrap(coreerr.Infra, err, "database operation failed")
}

// ResolveConsultantBySlug resolves a public slug to its internal consultant
// row. Consultant rows are synced from an external lifecycle (see
// internal/subscribers), never created by the core itself.
func (s *Store) ResolveConsultantBySlug(ctx context.Context, slug string) (*models.Consultant, error) {
	var c models.Consultant
	err := s.db.WithContext(ctx).Where("slug = ? AND is_active = ?", slug, true).First(&c).Error
	if err != nil {
		return nil, wrapDBErr(err, fmt.Sprintf("consultant %q not found", slug))
	}
	return &c, nil
}

// ListActiveConsultantIDs returns every consultant the background horizon
// scheduler should extend slots for.
func (s *Store) ListActiveConsultantIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.Consultant{}).
		Where("is_active = ?", true).Pluck("id", &ids).Error
	if err != nil {
		return nil, coreerr.Wrap(coreerr.Infra, err, "listing active consultants")
	}
	return ids, nil
}

// UpsertConsultant keeps the local consultant projection in sync with the
// external identity service.
func (s *Store) UpsertConsultant(ctx context.Context, c *models.Consultant) error {
	err := s.db.WithContext(ctx).
		Where("id = ?", c.ID).
		Assign(map[string]interface{}{"slug": c.Slug, "is_active": c.IsActive, "updated_at": time.Now()}).
		FirstOrCreate(c).Error
	if err != nil {
		return coreerr.Wrap(coreerr.Infra, err, "upserting consultant")
	}
	return nil
}
