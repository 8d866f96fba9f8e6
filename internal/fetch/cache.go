// Package fetch provides the cross-cutting resilience layer wrapped around
// every upstream call: a shared TTL cache and bounded retry with exponential
// backoff. The two compose explicitly (see Through and Do) so the ordering,
// cache lookup before any retried network call, is visible at the call site.
package fetch

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/respiratory-risk-service/internal/observability"
)

// Cache is a process-wide TTL cache shared by all fetchers. Keys are
// namespaced per operation ("weather:…", "suggest:…"). Concurrent readers on
// distinct keys do not block each other; same-key writers race with
// last-write-wins, which is acceptable since values are idempotent
// recomputations of the same upstream truth within the TTL window.
type Cache struct {
	clock   clockwork.Clock
	metrics *observability.Metrics

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	value   any
	expires time.Time // zero means no expiry
}

// NewCache creates an empty cache using the given clock for expiry checks.
func NewCache(clock clockwork.Clock, metrics *observability.Metrics) *Cache {
	return &Cache{
		clock:   clock,
		metrics: metrics,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the live value for key, if any. Expired entries read as
// absent; they are lazily removed on the next Put.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if !e.expires.IsZero() && !c.clock.Now().Before(e.expires) {
		return nil, false
	}
	return e.value, true
}

// Put stores value under key. A ttl of zero means the entry never expires;
// place data is near-static and uses that, while volatile weather and
// pollution readings must always carry a bounded TTL.
func (c *Cache) Put(key string, value any, ttl time.Duration) {
	e := cacheEntry{value: value}
	if ttl > 0 {
		e.expires = c.clock.Now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = e
	c.sweepLocked()
	c.mu.Unlock()
}

// Len reports the number of stored entries, including any not yet swept.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// sweepLocked drops expired entries. Called with the write lock held; the
// map stays small (one entry per distinct upstream argument tuple) so a full
// scan per write is fine.
func (c *Cache) sweepLocked() {
	now := c.clock.Now()
	for k, e := range c.entries {
		if !e.expires.IsZero() && !now.Before(e.expires) {
			delete(c.entries, k)
		}
	}
}

// Through runs fn through the cache: a hit short-circuits fn entirely, a
// miss invokes fn and stores its result under key before returning. op is
// the metrics label for hit/miss accounting.
func Through[T any](ctx context.Context, c *Cache, op, key string, ttl time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		if cached, ok := v.(T); ok {
			c.metrics.CacheLookups.WithLabelValues(op, "hit").Inc()
			return cached, nil
		}
	}
	c.metrics.CacheLookups.WithLabelValues(op, "miss").Inc()

	result, err := fn(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.Put(key, result, ttl)
	return result, nil
}
