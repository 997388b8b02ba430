package positions

import (
	"sync"
	"time"
)

// SummaryCache holds one summary per profile for a fixed TTL.
// It is safe for concurrent use; entries are only replaced, never refreshed in the background.
type SummaryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	summary    Summary
	lastAccess time.Time
}

// CacheOption configures a SummaryCache
type CacheOption func(*SummaryCache)

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) CacheOption {
	return func(c *SummaryCache) { c.now = now }
}

// NewSummaryCache creates an empty cache with the given TTL
func NewSummaryCache(ttl time.Duration, opts ...CacheOption) *SummaryCache {
	c := &SummaryCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*cacheEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the freshness window
func (c *SummaryCache) TTL() time.Duration {
	return c.ttl
}

// Now returns the cache clock's current time
func (c *SummaryCache) Now() time.Time {
	return c.now()
}

// Get returns a copy of the profile's summary while now - GeneratedAt < TTL
func (c *SummaryCache) Get(profileID string) (Summary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[profileID]
	if !ok {
		return Summary{}, false
	}

	now := c.now()
	if now.Sub(entry.summary.GeneratedAt) >= c.ttl {
		return Summary{}, false
	}

	entry.lastAccess = now
	return entry.summary.clone(), true
}

// Put replaces the profile's entry. The summary's GeneratedAt is the freshness anchor.
func (c *SummaryCache) Put(profileID string, summary Summary) {
	stored := summary.clone()
	stored.CacheHit = false

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[profileID] = &cacheEntry{
		summary:    stored,
		lastAccess: c.now(),
	}
}

// Prune drops entries not read or written for at least idle and returns how many were dropped
func (c *SummaryCache) Prune(idle time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for id, entry := range c.entries {
		if now.Sub(entry.lastAccess) >= idle {
			delete(c.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries, fresh or stale
func (c *SummaryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
