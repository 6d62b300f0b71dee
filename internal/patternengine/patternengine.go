// Package patternengine implements the Pattern Engine (C4): CRUD over
// weekly patterns plus the bulk-replace protocol, including its advisory
// lock and stale-lock reclamation.
package patternengine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/naksha/availability-core/internal/cache"
	"github.com/naksha/availability-core/internal/cachekeys"
	"github.com/naksha/availability-core/internal/coherence"
	"github.com/naksha/availability-core/internal/coreclock"
	"github.com/naksha/availability-core/internal/coreerr"
	"github.com/naksha/availability-core/internal/models"
	"github.com/naksha/availability-core/internal/slotgen"
	"github.com/naksha/availability-core/internal/store"
	"github.com/naksha/availability-core/internal/timeutil"
	"github.com/naksha/availability-core/pkg/logger"
	"gorm.io/gorm"
)

// Engine wires together the store, cache, slot generator, and coherence
// controller to implement every pattern operation in SPEC_FULL.md §4.4.
type Engine struct {
	store      *store.Store
	cache      *cache.Cache
	generator  *slotgen.Generator
	coherence  *coherence.Controller
	clock      coreclock.Clock
	log        logger.Logger
	lockTTL    time.Duration
	staleAfter time.Duration
	regenDays  int
}

func New(s *store.Store, c *cache.Cache, gen *slotgen.Generator, coh *coherence.Controller, clock coreclock.Clock, log logger.Logger, lockTTLSeconds, staleLockSeconds, bulkReplaceRegenDays int) *Engine {
	return &Engine{
		store:      s,
		cache:      c,
		generator:  gen,
		coherence:  coh,
		clock:      clock,
		log:        logger.ComponentLogger(log, "pattern_engine"),
		lockTTL:    time.Duration(lockTTLSeconds) * time.Second,
		staleAfter: time.Duration(staleLockSeconds) * time.Second,
		regenDays:  bulkReplaceRegenDays,
	}
}

// List returns a consultant's patterns, read-through cache.
func (e *Engine) List(ctx context.Context, consultantID string) ([]models.WeeklyPattern, error) {
	key := cachekeys.Patterns(consultantID)
	if cached, ok := e.cache.Get(ctx, key); ok {
		var patterns []models.WeeklyPattern
		if err := json.Unmarshal([]byte(cached), &patterns); err == nil {
			return patterns, nil
		}
	}
	patterns, err := e.store.ListPatterns(ctx, consultantID)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(patterns); err == nil {
		e.cache.Set(ctx, key, string(data), 120*time.Second)
	}
	return patterns, nil
}

// CreateInput carries the fields needed to create one pattern.
type CreateInput struct {
	SessionType models.SessionType
	DayOfWeek   int
	StartTime   string
	EndTime     string
	Timezone    string
}

// Create validates ordering, persists, and invalidates the patterns cache.
func (e *Engine) Create(ctx context.Context, consultantID string, in CreateInput) (*models.WeeklyPattern, error) {
	if _, err := timeutil.ParseHHMM(in.StartTime); err != nil {
		return nil, err
	}
	if _, err := timeutil.ParseHHMM(in.EndTime); err != nil {
		return nil, err
	}
	if in.EndTime <= in.StartTime {
		return nil, coreerr.New(coreerr.BadInput, "endTime must be after startTime")
	}
	if in.DayOfWeek < 0 || in.DayOfWeek > 6 {
		return nil, coreerr.New(coreerr.BadInput, "dayOfWeek must be 0..6")
	}
	timezone := in.Timezone
	if timezone == "" {
		timezone = "UTC"
	}

	p := &models.WeeklyPattern{
		ConsultantID: consultantID,
		SessionType:  in.SessionType,
		DayOfWeek:    in.DayOfWeek,
		StartTime:    in.StartTime,
		EndTime:      in.EndTime,
		IsActive:     true,
		Timezone:     timezone,
	}
	if err := e.store.CreatePattern(ctx, p); err != nil {
		return nil, err
	}
	e.coherence.Invalidate(consultantID, "", coherence.ScopePatterns, "")
	return p, nil
}

// Update applies a partial delta to one pattern.
func (e *Engine) Update(ctx context.Context, consultantID, patternID string, delta store.PatternDelta) (*models.WeeklyPattern, error) {
	p, err := e.store.UpdatePattern(ctx, consultantID, patternID, delta)
	if err != nil {
		return nil, err
	}
	e.coherence.Invalidate(consultantID, "", coherence.ScopePatterns, "")
	return p, nil
}

// Delete removes a pattern and blocks every future unbooked slot it
// generated. consultantSlug is needed only to invalidate that consultant's
// cached public-slot pages, which are keyed by slug rather than ID.
func (e *Engine) Delete(ctx context.Context, consultantID, consultantSlug, patternID string) error {
	today := timeutil.FormatDate(e.clock.Now())
	if err := e.store.DeletePattern(ctx, consultantID, patternID, today); err != nil {
		return err
	}
	e.coherence.Invalidate(consultantID, consultantSlug, coherence.ScopeAll, "")
	return nil
}

// BulkReplace implements the full protocol from SPEC_FULL.md §4.4: lock
// acquisition with stale-lock reclamation, transactional snapshot-delete-
// insert, diff-driven slot reconciliation, and post-commit invalidation.
func (e *Engine) BulkReplace(ctx context.Context, consultantID, consultantSlug string, newPatterns []CreateInput) (old, created []models.WeeklyPattern, err error) {
	for _, in := range newPatterns {
		if _, err := timeutil.ParseHHMM(in.StartTime); err != nil {
			return nil, nil, err
		}
		if _, err := timeutil.ParseHHMM(in.EndTime); err != nil {
			return nil, nil, err
		}
		if in.EndTime <= in.StartTime {
			return nil, nil, coreerr.New(coreerr.BadInput, "endTime must be after startTime")
		}
	}

	lockKey := cachekeys.PatternsLock(consultantID)
	token, held, lockErr := e.cache.AcquireLock(ctx, lockKey, e.lockTTL)
	if lockErr != nil {
		return nil, nil, coreerr.Wrap(coreerr.Infra, lockErr, "acquiring bulk-replace lock")
	}
	if !held {
		if remaining, ok := e.cache.LockRemainingTTL(ctx, lockKey); ok {
			age := e.lockTTL - remaining
			if age < e.staleAfter {
				return nil, nil, coreerr.New(coreerr.Busy, "another bulk replace is in progress for this consultant")
			}
		}
		// Stale or unknown age: reclaim by overwriting the holder's token.
		// A plain AcquireLock would just fail its NX check against the
		// still-present key and leave the stale holder in place.
		token, lockErr = e.cache.ForceAcquireLock(ctx, lockKey, e.lockTTL)
		if lockErr != nil {
			return nil, nil, coreerr.Wrap(coreerr.Infra, lockErr, "reclaiming stale bulk-replace lock")
		}
	}
	defer e.cache.ReleaseLock(ctx, lockKey, token)

	rows := make([]models.WeeklyPattern, 0, len(newPatterns))
	for _, in := range newPatterns {
		timezone := in.Timezone
		if timezone == "" {
			timezone = "UTC"
		}
		rows = append(rows, models.WeeklyPattern{
			SessionType: in.SessionType,
			DayOfWeek:   in.DayOfWeek,
			StartTime:   in.StartTime,
			EndTime:     in.EndTime,
			IsActive:    true,
			Timezone:    timezone,
		})
	}

	today := truncateToDate(e.clock.Now())
	txErr := e.store.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		old, created, txErr = e.store.ReplacePatternsTx(tx, consultantID, rows)
		if txErr != nil {
			return txErr
		}

		for _, d := range slotgen.Diff(old, created) {
			if len(d.Removed) > 0 {
				if _, err := e.store.BlockUnbookedSlotsTx(tx, store.BlockSpec{
					ConsultantID: consultantID,
					SessionType:  d.SessionType,
					DayOfWeek:    d.DayOfWeek,
					StartTimes:   d.Removed,
					FromDate:     today,
				}); err != nil {
					return err
				}
			}
			if len(d.Added) > 0 {
				if _, err := e.generator.GenerateForHoursTx(tx, consultantID, d.SessionType, d.DayOfWeek, d.Added, today, e.regenDays); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, nil, txErr
	}

	e.coherence.Invalidate(consultantID, consultantSlug, coherence.ScopeAll, "")
	return old, created, nil
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
