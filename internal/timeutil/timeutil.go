// Package timeutil implements the pure date/time arithmetic the rest of
// the core relies on: HH:MM parsing, hourly sub-slot enumeration, and
// calendar-day stepping. None of it performs I/O or reads the wall clock.
package timeutil

import (
	"fmt"
	"regexp"
	"time"

	"github.com/naksha/availability-core/internal/coreerr"
)

var hhmmPattern = regexp.MustCompile(`^([01]?\d|2[0-3]):[0-5]\d$`)

// ParseHHMM parses a "HH:MM" string into minutes-of-day.
func ParseHHMM(s string) (int, error) {
	if !hhmmPattern.MatchString(s) {
		return 0, coreerr.Newf(coreerr.BadInput, "invalid time %q, expected HH:MM", s)
	}
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, coreerr.Newf(coreerr.BadInput, "invalid time %q", s)
	}
	return h*60 + m, nil
}

// FormatHHMM renders minutes-of-day back into "HH:MM".
func FormatHHMM(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// HourSlot is a single [Start, End) hourly window, expressed in minutes-of-day.
type HourSlot struct {
	Start int
	End   int
}

// EnumerateHourly steps from startMin to endMin in whole 60-minute slots.
// A trailing remainder shorter than an hour is deliberately discarded: a
// pattern of 09:00-10:30 yields only the 09:00-10:00 slot.
func EnumerateHourly(startMin, endMin int) []HourSlot {
	var slots []HourSlot
	for s := startMin; s+60 <= endMin; s += 60 {
		slots = append(slots, HourSlot{Start: s, End: s + 60})
	}
	return slots
}

// EnumerateDates yields every calendar date from start to end, inclusive.
// Dates are compared and stepped as naive calendar days, never as instants.
func EnumerateDates(start, end time.Time) []time.Time {
	start = truncateToDate(start)
	end = truncateToDate(end)
	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Weekday returns the day of week for date, 0=Sunday..6=Saturday.
func Weekday(date time.Time) int {
	return int(date.Weekday())
}

// ParseDate parses a "YYYY-MM-DD" calendar date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, coreerr.Newf(coreerr.BadInput, "invalid date %q, expected YYYY-MM-DD", s)
	}
	return d, nil
}

// FormatDate renders a date back into "YYYY-MM-DD".
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}
