package search

import (
	"sync"
	"time"

	"transitmon/internal/departure"
	"transitmon/internal/provider"
	"transitmon/internal/relevance"
)

const (
	DefaultTTL        = 300 * time.Second
	DefaultMaxEntries = 20
)

// Cache is a bounded in-memory TTL cache for search results. Expired
// entries are dropped when read; once full, the oldest stored entry makes
// room for a new one.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]cacheEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

type cacheEntry struct {
	stops    []departure.Stop
	storedAt time.Time
}

// NewCache creates a cache with the given TTL and capacity.
func NewCache(ttl time.Duration, maxEntries int) *Cache {
	return &Cache{
		entries:    make(map[string]cacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// CacheKey builds the key for a search. Terms that differ only in case,
// surrounding space or umlaut spelling share a key.
func CacheKey(providerID string, kind provider.SearchKind, term string) string {
	return providerID + ":" + string(kind) + ":" + relevance.Key(term)
}

// Get returns the cached stops for key. A cached empty result is a hit.
func (c *Cache) Get(key string) ([]departure.Stop, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.storedAt) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return entry.stops, true
}

// Set stores stops under key.
func (c *Cache) Set(key string, stops []departure.Stop) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if stops == nil {
		stops = []departure.Stop{}
	}
	c.entries[key] = cacheEntry{stops: stops, storedAt: c.now()}
	for len(c.entries) > c.maxEntries {
		c.evictOldest()
	}
}

// Len reports the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) evictOldest() {
	var oldestKey string
	var oldest time.Time
	first := true
	for k, e := range c.entries {
		if first || e.storedAt.Before(oldest) {
			oldestKey, oldest, first = k, e.storedAt, false
		}
	}
	delete(c.entries, oldestKey)
}
