// Package cachekeys centralizes the key namespaces §4.3 names, so the
// Pattern Engine, Query Facade, and Coherence Controller never disagree on a
// format string.
package cachekeys

import "fmt"

// Patterns is the cached pattern listing for one consultant.
func Patterns(consultantID string) string {
	return "patterns:" + consultantID
}

// PatternsLock is the advisory lock guarding bulk pattern replacement.
func PatternsLock(consultantID string) string {
	return "lock:patterns:" + consultantID
}

// SlotsPrefix is the prefix covering every cached public-slot page for a
// consultant, regardless of sessionType/date range/pagination — deleting
// everything under this prefix is how a slots-scope invalidation clears all
// of them at once.
func SlotsPrefix(consultantSlug string) string {
	return "slots:" + consultantSlug + ":"
}

// SlotsPage names one cached public-slot page.
func SlotsPage(consultantSlug, sessionType string, dateFrom, dateTo string, limit, offset int) string {
	if sessionType == "" {
		sessionType = "ALL"
	}
	return fmt.Sprintf("%s%s:%s:%s:%d:%d", SlotsPrefix(consultantSlug), sessionType, dateFrom, dateTo, limit, offset)
}
