package cache_test

import (
	"context"
	"testing"

	"github.com/naksha/availability-core/internal/cache"
	"github.com/naksha/availability-core/pkg/logger"
	"github.com/stretchr/testify/assert"
)

// A nil Redis client puts the Cache in no-cache mode; every method must
// degrade to a safe no-op rather than panic or error, per SPEC_FULL.md §5.
func TestDisabledCache_DegradesGracefully(t *testing.T) {
	c := cache.New(nil, logger.New("debug"))
	ctx := context.Background()

	assert.False(t, c.Enabled())

	_, ok := c.Get(ctx, "any-key")
	assert.False(t, ok)

	c.Set(ctx, "any-key", "value", 0)
	_, ok = c.Get(ctx, "any-key")
	assert.False(t, ok, "a disabled cache never actually stores anything")

	c.Delete(ctx, "any-key")
	c.DeletePrefix(ctx, "any-")

	token, held, err := c.AcquireLock(ctx, "lock:x", 0)
	assert.NoError(t, err)
	assert.True(t, held, "a disabled cache treats every lock as free")
	assert.Empty(t, token)

	c.ReleaseLock(ctx, "lock:x", token)

	_, ok = c.LockRemainingTTL(ctx, "lock:x")
	assert.False(t, ok)
}
