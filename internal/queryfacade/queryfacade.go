// Package queryfacade implements the Query Facade (C8): the public,
// cached, paginated slot listing.
package queryfacade

import (
	"context"
	"encoding/json"
	"time"

	"github.com/naksha/availability-core/internal/cache"
	"github.com/naksha/availability-core/internal/cachekeys"
	"github.com/naksha/availability-core/internal/coreclock"
	"github.com/naksha/availability-core/internal/coreerr"
	"github.com/naksha/availability-core/internal/models"
	"github.com/naksha/availability-core/internal/store"
	"github.com/naksha/availability-core/internal/timeutil"
	"github.com/naksha/availability-core/pkg/logger"
)

const (
	defaultWindowDays = 14
	maxLimit          = 200
)

// Facade answers the public listSlots query, cached per §4.3.
type Facade struct {
	store  *store.Store
	cache  *cache.Cache
	clock  coreclock.Clock
	ttl    time.Duration
	log    logger.Logger
}

func New(s *store.Store, c *cache.Cache, clock coreclock.Clock, ttlSeconds int, log logger.Logger) *Facade {
	return &Facade{
		store: s,
		cache: c,
		clock: clock,
		ttl:   time.Duration(ttlSeconds) * time.Second,
		log:   logger.ComponentLogger(log, "query_facade"),
	}
}

// ListParams are the query parameters accepted by listSlots.
type ListParams struct {
	ConsultantSlug string
	SessionType    models.SessionType // empty means any
	DateFrom       string             // YYYY-MM-DD, optional
	DateTo         string             // YYYY-MM-DD, optional
	Limit          int
	Offset         int
}

// Page is the response shape: the slot array, grouped by date, plus a
// pagination descriptor.
type Page struct {
	Slots      []models.AvailabilitySlot            `json:"slots"`
	ByDate     map[string][]models.AvailabilitySlot `json:"byDate"`
	Limit      int                                  `json:"limit"`
	Offset     int                                  `json:"offset"`
	Total      int64                                `json:"total"`
	HasMore    bool                                  `json:"hasMore"`
}

// ListSlots returns a cached, paginated page of bookable slots.
func (f *Facade) ListSlots(ctx context.Context, p ListParams) (*Page, error) {
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Limit > maxLimit {
		return nil, coreerr.Newf(coreerr.BadInput, "limit must not exceed %d", maxLimit)
	}
	if p.Offset < 0 {
		return nil, coreerr.New(coreerr.BadInput, "offset must not be negative")
	}

	today := truncateToDate(f.clock.Now())
	dateFrom := today
	dateTo := today.AddDate(0, 0, defaultWindowDays)
	if p.DateFrom != "" {
		d, err := timeutil.ParseDate(p.DateFrom)
		if err != nil {
			return nil, err
		}
		dateFrom = d
	}
	if p.DateTo != "" {
		d, err := timeutil.ParseDate(p.DateTo)
		if err != nil {
			return nil, err
		}
		dateTo = d
	}
	if dateTo.Before(dateFrom) {
		return nil, coreerr.New(coreerr.BadInput, "dateTo must not precede dateFrom")
	}

	cacheKey := cachekeys.SlotsPage(p.ConsultantSlug, string(p.SessionType), timeutil.FormatDate(dateFrom), timeutil.FormatDate(dateTo), p.Limit, p.Offset)
	if cached, ok := f.cache.Get(ctx, cacheKey); ok {
		var page Page
		if err := json.Unmarshal([]byte(cached), &page); err == nil {
			return &page, nil
		}
	}

	consultant, err := f.store.ResolveConsultantBySlug(ctx, p.ConsultantSlug)
	if err != nil {
		return nil, err
	}

	filter := store.SlotFilter{
		ConsultantID: consultant.ID,
		SessionType:  p.SessionType,
		DateFrom:     dateFrom,
		DateTo:       dateTo,
		OnlyBookable: true,
	}
	total, err := f.store.CountFutureSlots(ctx, filter)
	if err != nil {
		return nil, err
	}

	all, err := f.store.ListFutureSlots(ctx, filter)
	if err != nil {
		return nil, err
	}
	slots := paginate(all, p.Limit, p.Offset)

	byDate := make(map[string][]models.AvailabilitySlot)
	for _, s := range slots {
		key := timeutil.FormatDate(s.Date)
		byDate[key] = append(byDate[key], s)
	}

	page := &Page{
		Slots:   slots,
		ByDate:  byDate,
		Limit:   p.Limit,
		Offset:  p.Offset,
		Total:   total,
		HasMore: int64(p.Offset+len(slots)) < total,
	}

	if data, err := json.Marshal(page); err == nil {
		f.cache.Set(ctx, cacheKey, string(data), f.ttl)
	}
	return page, nil
}

func paginate(slots []models.AvailabilitySlot, limit, offset int) []models.AvailabilitySlot {
	if offset >= len(slots) {
		return []models.AvailabilitySlot{}
	}
	end := offset + limit
	if end > len(slots) {
		end = len(slots)
	}
	return slots[offset:end]
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
