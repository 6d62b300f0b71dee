package cachekeys_test

import (
	"testing"

	"github.com/naksha/availability-core/internal/cachekeys"
	"github.com/stretchr/testify/assert"
)

func TestPatternsAndLockKeysDiffer(t *testing.T) {
	assert.Equal(t, "patterns:abc", cachekeys.Patterns("abc"))
	assert.Equal(t, "lock:patterns:abc", cachekeys.PatternsLock("abc"))
}

func TestSlotsPageFallsUnderItsPrefix(t *testing.T) {
	prefix := cachekeys.SlotsPrefix("jane-doe")
	page := cachekeys.SlotsPage("jane-doe", "", "2026-08-10", "2026-08-24", 50, 0)
	assert.Contains(t, page, prefix)
	assert.Contains(t, page, "ALL", "empty sessionType must be normalized, not left blank")
}

func TestSlotsPageDistinguishesSessionType(t *testing.T) {
	personal := cachekeys.SlotsPage("jane-doe", "PERSONAL", "2026-08-10", "2026-08-24", 50, 0)
	webinar := cachekeys.SlotsPage("jane-doe", "WEBINAR", "2026-08-10", "2026-08-24", 50, 0)
	assert.NotEqual(t, personal, webinar)
}
