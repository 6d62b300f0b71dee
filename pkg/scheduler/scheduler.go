// Package scheduler runs the background horizon-maintenance job: every
// active consultant's materialized slots are kept a rolling window ahead of
// today, grounded on the teacher's cron-based Scheduler (pkg/scheduler in
// the original scheduling-service).
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/naksha/availability-core/internal/models"
	"github.com/naksha/availability-core/internal/slotgen"
	"github.com/naksha/availability-core/internal/store"
	"github.com/naksha/availability-core/pkg/logger"
)

// Scheduler periodically extends the materialized-slot horizon so the public
// slot listing never runs dry.
type Scheduler struct {
	cron        *cron.Cron
	store       *store.Store
	generator   *slotgen.Generator
	runDays     int
	horizonDays int
	log         logger.Logger
}

func New(s *store.Store, generator *slotgen.Generator, runDays, horizonDays int, log logger.Logger) *Scheduler {
	return &Scheduler{
		cron:        cron.New(),
		store:       s,
		generator:   generator,
		runDays:     runDays,
		horizonDays: horizonDays,
		log:         logger.ComponentLogger(log, "scheduler"),
	}
}

// Start schedules the daily horizon-extension run and begins the cron loop.
func (s *Scheduler) Start() {
	s.log.Info("starting background scheduler")
	if _, err := s.cron.AddFunc("@daily", s.runHorizonMaintenance); err != nil {
		s.log.Error("failed to schedule horizon maintenance job", "error", err)
	}
	s.cron.Start()
}

// Stop stops the cron loop.
func (s *Scheduler) Stop() {
	s.log.Info("stopping background scheduler")
	s.cron.Stop()
}

// runHorizonMaintenance regenerates every active consultant's slots out to
// runDays ahead, one consultant and session type at a time so a single slow
// or failing consultant never blocks the rest of the sweep.
func (s *Scheduler) runHorizonMaintenance() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	ids, err := s.store.ListActiveConsultantIDs(ctx)
	if err != nil {
		s.log.Error("failed to list active consultants for horizon maintenance", "error", err)
		return
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	endDate := today.Add(time.Duration(s.runDays) * 24 * time.Hour)

	for _, consultantID := range ids {
		for _, sessionType := range []models.SessionType{models.SessionTypePersonal, models.SessionTypeWebinar} {
			created, err := s.generator.Generate(ctx, consultantID, today, endDate, sessionType, s.horizonDays)
			if err != nil {
				s.log.Warn("horizon maintenance failed for consultant", "consultantId", consultantID, "sessionType", sessionType, "error", err)
				continue
			}
			if created > 0 {
				s.log.Debug("extended horizon", "consultantId", consultantID, "sessionType", sessionType, "created", created)
			}
		}
	}
}
