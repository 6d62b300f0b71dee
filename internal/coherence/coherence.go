// Package coherence implements the Coherence Controller (C7): the only
// component permitted to order database writes against cache mutations.
// Cache invalidation and outbound notification both run post-commit, on a
// worker goroutine detached from the originating request, so a cancelled
// request can never leave a stale cache entry behind (SPEC_FULL.md §5).
package coherence

import (
	"context"
	"time"

	"github.com/naksha/availability-core/internal/cache"
	"github.com/naksha/availability-core/internal/cachekeys"
	"github.com/naksha/availability-core/internal/coreclock"
	"github.com/naksha/availability-core/internal/models"
	"github.com/naksha/availability-core/internal/realtime"
	"github.com/naksha/availability-core/pkg/events"
	"github.com/naksha/availability-core/pkg/logger"
)

// Scope names which cache keys an invalidation clears.
type Scope string

const (
	ScopePatterns Scope = "patterns"
	ScopeSlots    Scope = "slots"
	ScopeAll      Scope = "all"
)

// ChangeNotification is emitted after a successful commit and invalidation,
// in the same order as the commits that produced them (per consultant).
type ChangeNotification struct {
	ConsultantSlug string    `json:"consultantSlug"`
	Kind           string    `json:"kind"`
	SessionType    string    `json:"sessionType,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

const (
	kindPatternsUpdated = "patterns-updated"
	kindSlotsUpdated    = "slots-updated"
)

type job struct {
	consultantID   string
	consultantSlug string
	scope          Scope
	sessionType    models.SessionType
}

// Controller owns the post-commit worker. Construct once and share across
// request handlers.
type Controller struct {
	cache     *cache.Cache
	publisher *events.Publisher
	realtime  *realtime.SubscriptionManager
	clock     coreclock.Clock
	log       logger.Logger
	jobs      chan job
}

// New starts the worker goroutine and returns the running Controller.
// publisher and rt may both be nil (e.g. in tests); invalidation still runs.
func New(c *cache.Cache, publisher *events.Publisher, rt *realtime.SubscriptionManager, clock coreclock.Clock, log logger.Logger) *Controller {
	ctrl := &Controller{
		cache:     c,
		publisher: publisher,
		realtime:  rt,
		clock:     clock,
		log:       logger.ComponentLogger(log, "coherence"),
		jobs:      make(chan job, 256),
	}
	go ctrl.run()
	return ctrl
}

// Invalidate enqueues a post-commit invalidation. It must be called only
// after the triggering transaction has committed. The enclosing request's
// context must not be passed here — the work outlives the request.
func (ctrl *Controller) Invalidate(consultantID, consultantSlug string, scope Scope, sessionType models.SessionType) {
	select {
	case ctrl.jobs <- job{consultantID: consultantID, consultantSlug: consultantSlug, scope: scope, sessionType: sessionType}:
	default:
		// Buffer full: log and drop rather than block the caller's commit
		// path. A dropped invalidation self-heals on the next cache TTL
		// expiry; it is a latency regression, not a correctness break.
		ctrl.log.Warn("invalidation queue full, dropping job", "consultantId", consultantID, "scope", scope)
	}
}

func (ctrl *Controller) run() {
	for j := range ctrl.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		ctrl.process(ctx, j)
		cancel()
	}
}

func (ctrl *Controller) process(ctx context.Context, j job) {
	var kind string
	switch j.scope {
	case ScopePatterns:
		ctrl.cache.Delete(ctx, cachekeys.Patterns(j.consultantID))
		kind = kindPatternsUpdated
	case ScopeSlots:
		ctrl.cache.DeletePrefix(ctx, cachekeys.SlotsPrefix(j.consultantSlug))
		kind = kindSlotsUpdated
	case ScopeAll:
		ctrl.cache.Delete(ctx, cachekeys.Patterns(j.consultantID))
		ctrl.cache.DeletePrefix(ctx, cachekeys.SlotsPrefix(j.consultantSlug))
		kind = kindSlotsUpdated
	}

	notif := ChangeNotification{
		ConsultantSlug: j.consultantSlug,
		Kind:           kind,
		SessionType:    string(j.sessionType),
		Timestamp:      ctrl.clock.Now(),
	}

	if ctrl.publisher != nil {
		subject := events.SlotsUpdatedEvent
		if kind == kindPatternsUpdated {
			subject = events.PatternsUpdatedEvent
		}
		if err := ctrl.publisher.Publish(subject, notif); err != nil {
			ctrl.log.Warn("failed to publish change notification", "error", err, "kind", kind)
		}
	}
	if ctrl.realtime != nil {
		ctrl.realtime.BroadcastChangeNotification(j.consultantSlug, kind, notif)
	}
}
