// Package cache provides a small in-process TTL cache with coalesced
// read-through loading. A cache miss triggers exactly one upstream fetch
// even under concurrent callers; everyone waiting on the same key receives
// the result of that single flight.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// Cache is a TTL cache of V keyed by string. Entries record when they were
// stored; each lookup judges freshness against the cache's TTL, or against
// a caller-supplied shorter window. The zero value is not usable; construct
// with New. All methods are safe for concurrent use.
type Cache[V any] struct {
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	mu      sync.Mutex
	entries map[string]entry[V]
}

// New creates a cache whose entries are fresh for ttl after being stored.
func New[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry[V]),
	}
}

// GetOrLoad returns the value for key if it was stored within the freshness
// window. Otherwise it invokes load, stores the result, and returns it.
// Concurrent callers for the same key share one load call; the in-flight
// marker is cleared on completion, success or failure, so a failed load
// does not poison later attempts.
//
// maxAge, when positive, narrows the freshness window for this lookup
// below the cache's TTL. Callers that asked for a cache bypass pass a tiny
// window: bursts inside it still coalesce instead of hammering upstream.
func (c *Cache[V]) GetOrLoad(ctx context.Context, key string, maxAge time.Duration, load func(context.Context) (V, error)) (V, error) {
	window := c.window(maxAge)
	if v, ok := c.getFresh(key, window); ok {
		return v, nil
	}

	res, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Another caller may have completed the flight between our miss
		// and acquiring the flight slot.
		if v, ok := c.getFresh(key, window); ok {
			return v, nil
		}
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// Get returns the cached value for key if it is within the cache's TTL.
func (c *Cache[V]) Get(key string) (V, bool) {
	return c.getFresh(key, c.ttl)
}

func (c *Cache[V]) getFresh(key string, window time.Duration) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.storedAt) > window {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *Cache[V]) window(maxAge time.Duration) time.Duration {
	if maxAge > 0 && maxAge < c.ttl {
		return maxAge
	}
	return c.ttl
}

// Set stores value under key, resetting its age.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, storedAt: c.now()}
}

// Invalidate removes the entry for key, if present.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidatePrefix removes every entry whose key starts with prefix. Used
// for targeted purges: all cached ranges of one sheet share a key prefix.
func (c *Cache[V]) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
}

// Purge removes all entries.
func (c *Cache[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V])
}

// Len reports the number of entries held, fresh or not.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
