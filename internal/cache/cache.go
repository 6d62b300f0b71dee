// Package cache implements the best-effort key/value layer (C3): TTL
// get/set/delete, prefix deletion, and an advisory lock primitive. Every
// method is nil-receiver-safe on the underlying Redis client so the service
// degrades to no-cache mode instead of failing the write path when Redis is
// unavailable (see SPEC_FULL.md §5).
package cache

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/naksha/availability-core/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// releaseLockScript deletes key only if its value still matches the supplied
// token, avoiding a check-then-delete race between two lock holders. Mirrors
// the compare-and-delete idiom the domain stack's Redis sync service uses
// for its atomic quota decrement.
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`)

// Cache wraps a Redis client. A nil client is valid and makes every method a
// safe no-op (cache miss on read, silent success on write).
type Cache struct {
	client *redis.Client
	log    logger.Logger
}

func New(client *redis.Client, log logger.Logger) *Cache {
	return &Cache{client: client, log: log}
}

// Enabled reports whether a live Redis connection backs this cache.
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

func (c *Cache) warn(op string, err error) {
	if c.log != nil {
		c.log.Warn("cache operation degraded", "op", op, "error", err)
	}
}

// Get returns the cached value and true, or ("", false) on miss or outage.
func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	if !c.Enabled() {
		return "", false
	}
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.warn("get", err)
		}
		return "", false
	}
	return val, true
}

// Set stores value with the given TTL. ttl<=0 means no expiry.
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if !c.Enabled() {
		return
	}
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.warn("set", err)
	}
}

// Delete removes a single key.
func (c *Cache) Delete(ctx context.Context, key string) {
	if !c.Enabled() {
		return
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.warn("delete", err)
	}
}

// DeletePrefix removes every key starting with prefix via a SCAN cursor loop
// (never KEYS, which would block the Redis event loop on a large keyspace),
// batching deletes through a pipeline.
func (c *Cache) DeletePrefix(ctx context.Context, prefix string) {
	if !c.Enabled() {
		return
	}
	var cursor uint64
	match := prefix + "*"
	for {
		keys, next, err := c.client.Scan(ctx, cursor, match, 200).Result()
		if err != nil {
			c.warn("scan", err)
			return
		}
		if len(keys) > 0 {
			pipe := c.client.Pipeline()
			for _, k := range keys {
				pipe.Del(ctx, k)
			}
			if _, err := pipe.Exec(ctx); err != nil {
				c.warn("delete_prefix", err)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
}

// AcquireLock attempts SET key token NX EX ttl in a single round trip. The
// returned token must be passed to ReleaseLock, and held=false means another
// holder has the lock.
func (c *Cache) AcquireLock(ctx context.Context, key string, ttl time.Duration) (token string, held bool, err error) {
	if !c.Enabled() {
		// No-cache mode: treat the lock as always free; the DB's row-level
		// conflicts remain the real correctness boundary per §9.
		return "", true, nil
	}
	token, err = newToken()
	if err != nil {
		return "", false, err
	}
	ok, err := c.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		c.warn("acquire_lock", err)
		return "", true, nil
	}
	return token, ok, nil
}

// ForceAcquireLock unconditionally overwrites key with a fresh token (plain
// SET, no NX), for reclaiming a lock the caller has already judged stale by
// age. A plain AcquireLock would just fail its NX check against the still-
// present key and leave the stale holder in place.
func (c *Cache) ForceAcquireLock(ctx context.Context, key string, ttl time.Duration) (token string, err error) {
	if !c.Enabled() {
		return "", nil
	}
	token, err = newToken()
	if err != nil {
		return "", err
	}
	if err := c.client.Set(ctx, key, token, ttl).Err(); err != nil {
		c.warn("force_acquire_lock", err)
		return "", nil
	}
	return token, nil
}

// ReleaseLock deletes key only if it still holds token.
func (c *Cache) ReleaseLock(ctx context.Context, key, token string) {
	if !c.Enabled() || token == "" {
		return
	}
	if err := releaseLockScript.Run(ctx, c.client, []string{key}, token).Err(); err != nil {
		c.warn("release_lock", err)
	}
}

// LockRemainingTTL returns the time left before key's lock expires, used by
// the pattern engine's stale-lock reclamation check (age = configured TTL -
// remaining). ok=false means the key is free or the cache is unavailable.
func (c *Cache) LockRemainingTTL(ctx context.Context, key string) (remaining time.Duration, ok bool) {
	if !c.Enabled() {
		return 0, false
	}
	ttl, err := c.client.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		return 0, false
	}
	return ttl, true
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
