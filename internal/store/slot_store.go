package store

import (
	"context"
	"time"

	"github.com/naksha/availability-core/internal/coreerr"
	"github.com/naksha/availability-core/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SlotFilter scopes a future-slot listing used both by public reads and by
// the pattern-diff blocking step.
type SlotFilter struct {
	ConsultantID string
	SessionType  models.SessionType // empty means any
	DateFrom     time.Time
	DateTo       time.Time
	OnlyBookable bool // isBooked=false AND isBlocked=false
}

// ListFutureSlots returns slot rows matching filter, ordered by date then
// start time for stable pagination.
func (s *Store) ListFutureSlots(ctx context.Context, f SlotFilter) ([]models.AvailabilitySlot, error) {
	q := s.db.WithContext(ctx).Model(&models.AvailabilitySlot{}).
		Where("consultant_id = ? AND date >= ? AND date <= ?", f.ConsultantID, f.DateFrom, f.DateTo)
	if f.SessionType != "" {
		q = q.Where("session_type = ?", f.SessionType)
	}
	if f.OnlyBookable {
		q = q.Where("is_booked = ? AND is_blocked = ?", false, false)
	}
	var slots []models.AvailabilitySlot
	if err := q.Order("date asc, start_time asc").Find(&slots).Error; err != nil {
		return nil, wrapDBErr(err, "")
	}
	return slots, nil
}

// CountFutureSlots mirrors ListFutureSlots' filter for pagination's hasMore.
func (s *Store) CountFutureSlots(ctx context.Context, f SlotFilter) (int64, error) {
	q := s.db.WithContext(ctx).Model(&models.AvailabilitySlot{}).
		Where("consultant_id = ? AND date >= ? AND date <= ?", f.ConsultantID, f.DateFrom, f.DateTo)
	if f.SessionType != "" {
		q = q.Where("session_type = ?", f.SessionType)
	}
	if f.OnlyBookable {
		q = q.Where("is_booked = ? AND is_blocked = ?", false, false)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, wrapDBErr(err, "")
	}
	return count, nil
}

// BlockSpec names exactly which future unbooked slots a bulk-replace diff
// wants blocked.
type BlockSpec struct {
	ConsultantID string
	SessionType  models.SessionType
	DayOfWeek    int
	StartTimes   []string // hourly start times to block, e.g. "09:00"
	FromDate     time.Time
}

// BlockUnbookedSlots sets isBlocked=true only where isBooked=false AND
// date >= FromDate, leaving booked rows untouched even if they match.
func (s *Store) BlockUnbookedSlots(ctx context.Context, spec BlockSpec) (int64, error) {
	return s.BlockUnbookedSlotsTx(s.db.WithContext(ctx), spec)
}

// BlockUnbookedSlotsTx is BlockUnbookedSlots run against the caller's
// transaction, so a bulk-replace's block/generate steps commit or abort
// together with the pattern snapshot-delete-insert that produced spec.
func (s *Store) BlockUnbookedSlotsTx(tx *gorm.DB, spec BlockSpec) (int64, error) {
	if len(spec.StartTimes) == 0 {
		return 0, nil
	}
	res := tx.Model(&models.AvailabilitySlot{}).
		Where("consultant_id = ? AND session_type = ? AND is_booked = ? AND date >= ?",
			spec.ConsultantID, spec.SessionType, false, spec.FromDate).
		Where("EXTRACT(DOW FROM date) = ?", spec.DayOfWeek).
		Where("start_time IN ?", spec.StartTimes).
		Update("is_blocked", true)
	if res.Error != nil {
		return 0, coreerr.Wrap(coreerr.Infra, res.Error, "blocking slots")
	}
	return res.RowsAffected, nil
}

// CreateSlotsIgnoringDuplicates inserts a batch, skipping rows that collide
// on the (consultantId, sessionType, date, startTime) uniqueness key, and
// returns how many were actually inserted. Callers are responsible for
// chunking batch to <=100 rows themselves (see slotgen).
func (s *Store) CreateSlotsIgnoringDuplicates(ctx context.Context, batch []models.AvailabilitySlot) (int, error) {
	return s.CreateSlotsIgnoringDuplicatesTx(s.db.WithContext(ctx), batch)
}

// CreateSlotsIgnoringDuplicatesTx is CreateSlotsIgnoringDuplicates run
// against the caller's transaction.
func (s *Store) CreateSlotsIgnoringDuplicatesTx(tx *gorm.DB, batch []models.AvailabilitySlot) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&batch)
	if res.Error != nil {
		return 0, coreerr.Wrap(coreerr.Infra, res.Error, "inserting slots")
	}
	return int(res.RowsAffected), nil
}

// ExistingSlotKeys loads the (date, startTime) membership set already
// present for a consultant/sessionType over a horizon, so the slot generator
// can dedup in memory instead of probing the database per candidate row.
func (s *Store) ExistingSlotKeys(ctx context.Context, consultantID string, sessionType models.SessionType, from, to time.Time) (map[string]struct{}, error) {
	return s.ExistingSlotKeysTx(s.db.WithContext(ctx), consultantID, sessionType, from, to)
}

// ExistingSlotKeysTx is ExistingSlotKeys run against the caller's
// transaction, so reads see its uncommitted writes (e.g. a bulk-replace's
// own snapshot-delete-insert of the patterns that drive slot generation).
func (s *Store) ExistingSlotKeysTx(tx *gorm.DB, consultantID string, sessionType models.SessionType, from, to time.Time) (map[string]struct{}, error) {
	var rows []struct {
		Date      time.Time
		StartTime string
	}
	err := tx.Model(&models.AvailabilitySlot{}).
		Select("date, start_time").
		Where("consultant_id = ? AND session_type = ? AND date >= ? AND date <= ?", consultantID, sessionType, from, to).
		Find(&rows).Error
	if err != nil {
		return nil, wrapDBErr(err, "")
	}
	set := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		set[r.Date.Format("2006-01-02")+"|"+r.StartTime] = struct{}{}
	}
	return set, nil
}

// ClaimSlot performs the single conditional UPDATE that makes booking
// admission race-safe: exactly one concurrent caller observes
// RowsAffected==1.
func (s *Store) ClaimSlot(tx *gorm.DB, consultantID string, sessionType models.SessionType, date time.Time, startTime, sessionID string) (bool, error) {
	res := tx.Model(&models.AvailabilitySlot{}).
		Where("consultant_id = ? AND session_type = ? AND date = ? AND start_time = ? AND is_booked = ? AND is_blocked = ?",
			consultantID, sessionType, date, startTime, false, false).
		Updates(map[string]interface{}{"is_booked": true, "session_id": sessionID})
	if res.Error != nil {
		return false, coreerr.Wrap(coreerr.Infra, res.Error, "claiming slot")
	}
	return res.RowsAffected == 1, nil
}

// SlotExists reports whether a row exists at all for the given identity,
// regardless of its booked/blocked state — used to distinguish "no such
// slot" from "slot taken" in the booking engine.
func (s *Store) SlotExists(tx *gorm.DB, consultantID string, sessionType models.SessionType, date time.Time, startTime string) (bool, error) {
	var count int64
	err := tx.Model(&models.AvailabilitySlot{}).
		Where("consultant_id = ? AND session_type = ? AND date = ? AND start_time = ?", consultantID, sessionType, date, startTime).
		Count(&count).Error
	if err != nil {
		return false, coreerr.Wrap(coreerr.Infra, err, "checking slot existence")
	}
	return count > 0, nil
}

// ReleaseSlotBySession frees the slot row pointing at sessionID, leaving
// isBlocked untouched, on session cancellation.
func (s *Store) ReleaseSlotBySession(tx *gorm.DB, sessionID string) error {
	res := tx.Model(&models.AvailabilitySlot{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]interface{}{"is_booked": false, "session_id": nil})
	if res.Error != nil {
		return coreerr.Wrap(coreerr.Infra, res.Error, "releasing slot")
	}
	return nil
}
