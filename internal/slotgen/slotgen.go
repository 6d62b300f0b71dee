// Package slotgen implements the Slot Generator (C5): turning weekly
// patterns into concrete hourly AvailabilitySlot rows, and diffing two
// pattern sets to find what a bulk-replace must block or create.
package slotgen

import (
	"context"
	"sort"
	"time"

	"github.com/naksha/availability-core/internal/coreerr"
	"github.com/naksha/availability-core/internal/models"
	"github.com/naksha/availability-core/internal/store"
	"github.com/naksha/availability-core/internal/timeutil"
	"gorm.io/gorm"
)

// Generator turns patterns into persisted slot rows, batching inserts at
// batchSize rows (<=100 per SPEC_FULL.md §4.5).
type Generator struct {
	store     *store.Store
	batchSize int
}

func New(s *store.Store, batchSize int) *Generator {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Generator{store: s, batchSize: batchSize}
}

// Generate materializes every whole-hour sub-slot of every active pattern
// matching sessionType (empty = any) over [startDate, endDate], skipping
// rows already present. Membership is checked against an in-memory set
// loaded once per sessionType group, never probed row-by-row.
func (g *Generator) Generate(ctx context.Context, consultantID string, startDate, endDate time.Time, sessionType models.SessionType, horizonDays int) (int, error) {
	if endDate.Before(startDate) {
		return 0, coreerr.New(coreerr.BadInput, "endDate must not precede startDate")
	}
	if horizonDays > 0 && int(endDate.Sub(startDate).Hours()/24) > horizonDays {
		return 0, coreerr.Newf(coreerr.BadInput, "generation horizon exceeds %d days", horizonDays)
	}

	patterns, err := g.store.ListPatterns(ctx, consultantID)
	if err != nil {
		return 0, err
	}
	byType := make(map[models.SessionType][]models.WeeklyPattern)
	for _, p := range patterns {
		if !p.IsActive {
			continue
		}
		if sessionType != "" && p.SessionType != sessionType {
			continue
		}
		byType[p.SessionType] = append(byType[p.SessionType], p)
	}

	dates := timeutil.EnumerateDates(startDate, endDate)
	total := 0
	for st, pats := range byType {
		existing, err := g.store.ExistingSlotKeys(ctx, consultantID, st, startDate, endDate)
		if err != nil {
			return total, err
		}
		var batch []models.AvailabilitySlot
		for _, date := range dates {
			wd := timeutil.Weekday(date)
			for _, p := range pats {
				if p.DayOfWeek != wd {
					continue
				}
				startMin, err := timeutil.ParseHHMM(p.StartTime)
				if err != nil {
					continue
				}
				endMin, err := timeutil.ParseHHMM(p.EndTime)
				if err != nil {
					continue
				}
				for _, hs := range timeutil.EnumerateHourly(startMin, endMin) {
					startTime := timeutil.FormatHHMM(hs.Start)
					key := date.Format("2006-01-02") + "|" + startTime
					if _, ok := existing[key]; ok {
						continue
					}
					existing[key] = struct{}{}
					batch = append(batch, models.AvailabilitySlot{
						ConsultantID: consultantID,
						SessionType:  st,
						Date:         date,
						StartTime:    startTime,
						EndTime:      timeutil.FormatHHMM(hs.End),
					})
					if len(batch) >= g.batchSize {
						n, err := g.store.CreateSlotsIgnoringDuplicates(ctx, batch)
						if err != nil {
							return total, err
						}
						total += n
						batch = batch[:0]
					}
				}
			}
		}
		if len(batch) > 0 {
			n, err := g.store.CreateSlotsIgnoringDuplicates(ctx, batch)
			if err != nil {
				return total, err
			}
			total += n
		}
	}
	return total, nil
}

// GenerateForHours materializes hours (a set of hourly startTimes, e.g. from
// a bulk-replace diff's "added" branch) over the rolling horizon, restricted
// to dates whose weekday matches dayOfWeek.
func (g *Generator) GenerateForHours(ctx context.Context, consultantID string, sessionType models.SessionType, dayOfWeek int, hours []string, fromDate time.Time, horizonDays int) (int, error) {
	return g.generateForHours(ctx, nil, consultantID, sessionType, dayOfWeek, hours, fromDate, horizonDays)
}

// GenerateForHoursTx is GenerateForHours run against the caller's
// transaction, so a bulk-replace's generated slots commit or abort together
// with the pattern change and blocked slots that produced hours.
func (g *Generator) GenerateForHoursTx(tx *gorm.DB, consultantID string, sessionType models.SessionType, dayOfWeek int, hours []string, fromDate time.Time, horizonDays int) (int, error) {
	return g.generateForHours(nil, tx, consultantID, sessionType, dayOfWeek, hours, fromDate, horizonDays)
}

func (g *Generator) generateForHours(ctx context.Context, tx *gorm.DB, consultantID string, sessionType models.SessionType, dayOfWeek int, hours []string, fromDate time.Time, horizonDays int) (int, error) {
	if len(hours) == 0 {
		return 0, nil
	}
	toDate := fromDate.AddDate(0, 0, horizonDays-1)

	existingKeys := func() (map[string]struct{}, error) {
		if tx != nil {
			return g.store.ExistingSlotKeysTx(tx, consultantID, sessionType, fromDate, toDate)
		}
		return g.store.ExistingSlotKeys(ctx, consultantID, sessionType, fromDate, toDate)
	}
	createBatch := func(batch []models.AvailabilitySlot) (int, error) {
		if tx != nil {
			return g.store.CreateSlotsIgnoringDuplicatesTx(tx, batch)
		}
		return g.store.CreateSlotsIgnoringDuplicates(ctx, batch)
	}

	existing, err := existingKeys()
	if err != nil {
		return 0, err
	}
	var batch []models.AvailabilitySlot
	total := 0
	for _, date := range timeutil.EnumerateDates(fromDate, toDate) {
		if timeutil.Weekday(date) != dayOfWeek {
			continue
		}
		for _, startTime := range hours {
			key := date.Format("2006-01-02") + "|" + startTime
			if _, ok := existing[key]; ok {
				continue
			}
			existing[key] = struct{}{}
			endMin, _ := timeutil.ParseHHMM(startTime)
			batch = append(batch, models.AvailabilitySlot{
				ConsultantID: consultantID,
				SessionType:  sessionType,
				Date:         date,
				StartTime:    startTime,
				EndTime:      timeutil.FormatHHMM(endMin + 60),
			})
			if len(batch) >= g.batchSize {
				n, err := createBatch(batch)
				if err != nil {
					return total, err
				}
				total += n
				batch = batch[:0]
			}
		}
	}
	if len(batch) > 0 {
		n, err := createBatch(batch)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// GroupDiff names one (sessionType, dayOfWeek) group's hourly difference
// between an old and a new pattern set.
type GroupDiff struct {
	SessionType models.SessionType
	DayOfWeek   int
	Removed     []string // hourly startTimes present in old, absent from new
	Added       []string // hourly startTimes present in new, absent from old
}

type groupKey struct {
	sessionType models.SessionType
	dayOfWeek   int
}

// Diff groups both pattern sets by (sessionType, dayOfWeek), expands each
// side into its set of hourly startTimes, and reports the symmetric
// difference per group. Output is sorted and deduplicated for deterministic
// replay.
func Diff(oldPatterns, newPatterns []models.WeeklyPattern) []GroupDiff {
	oldHours := make(map[groupKey]map[string]struct{})
	newHours := make(map[groupKey]map[string]struct{})

	collect := func(dst map[groupKey]map[string]struct{}, patterns []models.WeeklyPattern) {
		for _, p := range patterns {
			k := groupKey{sessionType: p.SessionType, dayOfWeek: p.DayOfWeek}
			set, ok := dst[k]
			if !ok {
				set = make(map[string]struct{})
				dst[k] = set
			}
			startMin, err := timeutil.ParseHHMM(p.StartTime)
			if err != nil {
				continue
			}
			endMin, err := timeutil.ParseHHMM(p.EndTime)
			if err != nil {
				continue
			}
			for _, hs := range timeutil.EnumerateHourly(startMin, endMin) {
				set[timeutil.FormatHHMM(hs.Start)] = struct{}{}
			}
		}
	}
	collect(oldHours, oldPatterns)
	collect(newHours, newPatterns)

	keys := make(map[groupKey]struct{})
	for k := range oldHours {
		keys[k] = struct{}{}
	}
	for k := range newHours {
		keys[k] = struct{}{}
	}

	var diffs []GroupDiff
	for k := range keys {
		removed := setDiff(oldHours[k], newHours[k])
		added := setDiff(newHours[k], oldHours[k])
		if len(removed) == 0 && len(added) == 0 {
			continue
		}
		diffs = append(diffs, GroupDiff{
			SessionType: k.sessionType,
			DayOfWeek:   k.dayOfWeek,
			Removed:     removed,
			Added:       added,
		})
	}

	sort.Slice(diffs, func(i, j int) bool {
		if diffs[i].SessionType != diffs[j].SessionType {
			return diffs[i].SessionType < diffs[j].SessionType
		}
		return diffs[i].DayOfWeek < diffs[j].DayOfWeek
	})
	return diffs
}

func setDiff(a, b map[string]struct{}) []string {
	var out []string
	for k := range a {
		if _, ok := b[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
