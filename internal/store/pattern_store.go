package store

import (
	"context"

	"github.com/naksha/availability-core/internal/coreerr"
	"github.com/naksha/availability-core/internal/models"
	"gorm.io/gorm"
)

// ListPatterns returns every pattern for a consultant ordered per §4.4:
// (sessionType, dayOfWeek, startTime).
func (s *Store) ListPatterns(ctx context.Context, consultantID string) ([]models.WeeklyPattern, error) {
	var patterns []models.WeeklyPattern
	err := s.db.WithContext(ctx).
		Where("consultant_id = ?", consultantID).
		Order("session_type asc, day_of_week asc, start_time asc").
		Find(&patterns).Error
	if err != nil {
		return nil, wrapDBErr(err, "")
	}
	return patterns, nil
}

// checkOverlap reports whether an active pattern in the same
// (consultantId, sessionType, dayOfWeek) group intersects [startTime, endTime),
// excluding excludeID (used by updates to ignore the row being updated).
// HH:MM strings are zero-padded and therefore lexically comparable.
func checkOverlap(tx *gorm.DB, consultantID string, sessionType models.SessionType, dayOfWeek int, startTime, endTime, excludeID string) error {
	q := tx.Model(&models.WeeklyPattern{}).
		Where("consultant_id = ? AND session_type = ? AND day_of_week = ? AND is_active = ?", consultantID, sessionType, dayOfWeek, true).
		Where("start_time < ? AND end_time > ?", endTime, startTime)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return wrapDBErr(err, "")
	}
	if count > 0 {
		return coreerr.Newf(coreerr.Overlap, "pattern overlaps an existing active pattern for this session type and weekday")
	}
	return nil
}

// CreatePattern persists a new pattern after verifying it doesn't overlap an
// existing active pattern in the same (sessionType, dayOfWeek) group.
func (s *Store) CreatePattern(ctx context.Context, p *models.WeeklyPattern) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkOverlap(tx, p.ConsultantID, p.SessionType, p.DayOfWeek, p.StartTime, p.EndTime, ""); err != nil {
			return err
		}
		if err := tx.Create(p).Error; err != nil {
			return coreerr.Wrap(coreerr.Infra, err, "creating pattern")
		}
		return nil
	})
}

// PatternDelta carries the fields an UpdatePattern call may change.
type PatternDelta struct {
	StartTime *string
	EndTime   *string
	IsActive  *bool
}

// UpdatePattern applies a partial delta, re-checking time ordering and
// overlap when either time field changes, and verifying ownership.
func (s *Store) UpdatePattern(ctx context.Context, consultantID, patternID string, delta PatternDelta) (*models.WeeklyPattern, error) {
	var updated models.WeeklyPattern
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.WeeklyPattern
		if err := tx.Where("id = ? AND consultant_id = ?", patternID, consultantID).First(&p).Error; err != nil {
			return wrapDBErr(err, "pattern not found")
		}
		startTime, endTime := p.StartTime, p.EndTime
		if delta.StartTime != nil {
			startTime = *delta.StartTime
		}
		if delta.EndTime != nil {
			endTime = *delta.EndTime
		}
		if delta.StartTime != nil || delta.EndTime != nil {
			if endTime <= startTime {
				return coreerr.New(coreerr.BadInput, "endTime must be after startTime")
			}
			if err := checkOverlap(tx, consultantID, p.SessionType, p.DayOfWeek, startTime, endTime, p.ID); err != nil {
				return err
			}
			p.StartTime = startTime
			p.EndTime = endTime
		}
		if delta.IsActive != nil {
			p.IsActive = *delta.IsActive
		}
		if err := tx.Save(&p).Error; err != nil {
			return coreerr.Wrap(coreerr.Infra, err, "updating pattern")
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeletePattern removes a pattern and blocks every future unbooked slot it
// generated, within one transaction. Booked slots are untouched.
func (s *Store) DeletePattern(ctx context.Context, consultantID, patternID string, today string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.WeeklyPattern
		if err := tx.Where("id = ? AND consultant_id = ?", patternID, consultantID).First(&p).Error; err != nil {
			return wrapDBErr(err, "pattern not found")
		}
		if err := tx.Delete(&p).Error; err != nil {
			return coreerr.Wrap(coreerr.Infra, err, "deleting pattern")
		}
		dow := p.DayOfWeek
		res := tx.Model(&models.AvailabilitySlot{}).
			Where("consultant_id = ? AND session_type = ? AND is_booked = ? AND is_blocked = ? AND date >= ?",
				consultantID, p.SessionType, false, false, today).
			Where("EXTRACT(DOW FROM date) = ?", dow).
			Where("start_time >= ? AND start_time < ?", p.StartTime, p.EndTime).
			Update("is_blocked", true)
		if res.Error != nil {
			return coreerr.Wrap(coreerr.Infra, res.Error, "blocking dependent slots")
		}
		return nil
	})
}

// ReplacePatternsTx snapshots, deletes, and reinserts a consultant's entire
// pattern set within the caller's transaction, returning the old and new
// sets for the caller (the pattern engine) to diff via the slot generator.
// The caller is responsible for committing/aborting tx as a whole, so that
// this step and any dependent slot reconciliation succeed or fail together.
func (s *Store) ReplacePatternsTx(tx *gorm.DB, consultantID string, newPatterns []models.WeeklyPattern) (old, created []models.WeeklyPattern, err error) {
	if err := tx.Where("consultant_id = ?", consultantID).Find(&old).Error; err != nil {
		return nil, nil, wrapDBErr(err, "")
	}
	if err := tx.Where("consultant_id = ?", consultantID).Delete(&models.WeeklyPattern{}).Error; err != nil {
		return nil, nil, coreerr.Wrap(coreerr.Infra, err, "deleting existing patterns")
	}
	for i := range newPatterns {
		newPatterns[i].ConsultantID = consultantID
	}
	if len(newPatterns) > 0 {
		if err := tx.Create(&newPatterns).Error; err != nil {
			return nil, nil, coreerr.Wrap(coreerr.Infra, err, "inserting new patterns")
		}
	}
	return old, newPatterns, nil
}
