// Package cache is a process-lifetime response cache used to smooth over
// repeat navigation: fresh reads honor a per-key TTL, stale reads return
// the last known value regardless of age so a previous result can be
// painted while a fresh fetch is in flight. It is a UX aid, not a durable
// store: no eviction, no size bound, nothing survives a restart.
package cache

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/fx"

	"footysync/internal/constants"
)

type entry struct {
	value    any
	storedAt time.Time
}

type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Key builds a cache key from a resource kind and its query parameters,
// e.g. Key("live", "matches", leagueID).
func Key(kind string, params ...string) string {
	if len(params) == 0 {
		return kind
	}
	return kind + ":" + strings.Join(params, ":")
}

// Get returns the stored value only while it is fresh under the key's TTL.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.storedAt) >= ttlFor(key) {
		return nil, false
	}
	return e.value, true
}

// GetStale returns the stored value unconditionally if present, ignoring
// the TTL.
func (c *Cache) GetStale(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Set overwrites the key and stamps the current time.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, storedAt: c.now()}
}

// Live-keyed entries go stale quickly; everything else keeps the longer
// default.
func ttlFor(key string) time.Duration {
	if strings.HasPrefix(key, "live") {
		return constants.LiveCacheTTL
	}
	return constants.DefaultCacheTTL
}

var Module = fx.Provide(New)
