// Package cache implements the read-through cache that sits in front of
// the persistent store. Entries expire by TTL; writes elsewhere in the
// system invalidate affected keys explicitly, so staleness is bounded by
// the TTL window.
package cache

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Cache is a concurrency-safe, TTL-based key/value cache. Expired entries
// are dropped lazily when read; there is no background sweeper. A
// get-or-populate race between two callers is tolerated: last write wins
// and both writes carry equivalent fresh data.
type Cache struct {
	mu    sync.RWMutex
	items map[Key]*item

	// Statistics
	hits   int64
	misses int64

	logger *zap.Logger
}

// item is a single cached snapshot with its expiry timestamp.
type item struct {
	value  interface{}
	expiry time.Time
}

// New creates an empty cache.
func New(logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		items:  make(map[Key]*item),
		logger: logger,
	}
}

// Get returns the cached value for key if present and not expired.
func (c *Cache) Get(key Key) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, exists := c.items[key]
	if !exists {
		c.misses++
		return nil, false
	}

	if time.Now().After(it.expiry) {
		delete(c.items, key)
		c.misses++
		return nil, false
	}

	c.hits++
	return it.value, true
}

// Set stores value under key for the given TTL, replacing any previous
// entry.
func (c *Cache) Set(key Key, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = &item{
		value:  value,
		expiry: time.Now().Add(ttl),
	}
}

// Delete removes the given keys. Missing keys are ignored, so every write
// path can list all the keys it may have made stale without checking
// presence first.
func (c *Cache) Delete(keys ...Key) {
	if len(keys) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, key := range keys {
		if _, exists := c.items[key]; exists {
			delete(c.items, key)
			removed++
		}
	}

	if removed > 0 {
		c.logger.Debug("Invalidated cache entries",
			zap.Int("requested", len(keys)),
			zap.Int("removed", removed),
		)
	}
}

// Len returns the number of entries currently held, including entries that
// have expired but have not been read since.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Stats holds cache statistics.
type Stats struct {
	Hits    int64
	Misses  int64
	Items   int
	HitRate float64
}

// GetStats returns cache statistics.
func (c *Cache) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	hitRate := float64(0)
	if total := c.hits + c.misses; total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}

	return Stats{
		Hits:    c.hits,
		Misses:  c.misses,
		Items:   len(c.items),
		HitRate: hitRate,
	}
}
