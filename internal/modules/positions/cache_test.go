package positions

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable clock shared by cache and tests
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestSummaryCache_TTLBoundary(t *testing.T) {
	clock := newFakeClock()
	cache := NewSummaryCache(time.Minute, WithClock(clock.Now))

	cache.Put("p1", Summary{TotalOpenPositions: 4, GeneratedAt: clock.Now()})

	clock.Advance(time.Minute - time.Nanosecond)
	got, ok := cache.Get("p1")
	require.True(t, ok)
	assert.Equal(t, 4, got.TotalOpenPositions)

	// Exactly TTL old is stale
	clock.Advance(time.Nanosecond)
	_, ok = cache.Get("p1")
	assert.False(t, ok)

	// Stale entries stay until replaced or pruned
	assert.Equal(t, 1, cache.Len())
}

func TestSummaryCache_GetMissing(t *testing.T) {
	cache := NewSummaryCache(time.Minute)
	_, ok := cache.Get("nobody")
	assert.False(t, ok)
}

func TestSummaryCache_PutReplaces(t *testing.T) {
	clock := newFakeClock()
	cache := NewSummaryCache(time.Minute, WithClock(clock.Now))

	cache.Put("p1", Summary{TotalOpenPositions: 1, GeneratedAt: clock.Now()})
	clock.Advance(2 * time.Minute)
	cache.Put("p1", Summary{TotalOpenPositions: 2, GeneratedAt: clock.Now()})

	got, ok := cache.Get("p1")
	require.True(t, ok)
	assert.Equal(t, 2, got.TotalOpenPositions)
	assert.Equal(t, 1, cache.Len())
}

func TestSummaryCache_ReturnsCopies(t *testing.T) {
	clock := newFakeClock()
	cache := NewSummaryCache(time.Minute, WithClock(clock.Now))

	original := Summary{
		Accounts:    []AccountSummary{{AccountID: "a", OpenPositionCount: 3}},
		GeneratedAt: clock.Now(),
	}
	cache.Put("p1", original)
	original.Accounts[0].OpenPositionCount = 99

	first, ok := cache.Get("p1")
	require.True(t, ok)
	first.Accounts[0].OpenPositionCount = 42

	second, ok := cache.Get("p1")
	require.True(t, ok)
	assert.Equal(t, 3, second.Accounts[0].OpenPositionCount)
}

func TestSummaryCache_Prune(t *testing.T) {
	clock := newFakeClock()
	cache := NewSummaryCache(time.Minute, WithClock(clock.Now))

	cache.Put("idle", Summary{GeneratedAt: clock.Now()})
	cache.Put("busy", Summary{GeneratedAt: clock.Now()})

	clock.Advance(20 * time.Minute)
	cache.Put("busy", Summary{GeneratedAt: clock.Now()})

	clock.Advance(15 * time.Minute)
	removed := cache.Prune(30 * time.Minute)

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, cache.Len())
	_, stillThere := cache.entries["busy"]
	assert.True(t, stillThere)
}

func TestSummaryCache_ConcurrentAccess(t *testing.T) {
	cache := NewSummaryCache(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cache.Put("p", Summary{TotalOpenPositions: i, GeneratedAt: time.Now()})
			_, _ = cache.Get("p")
			_ = cache.Len()
		}(i)
	}
	wg.Wait()

	got, ok := cache.Get("p")
	require.True(t, ok)
	assert.GreaterOrEqual(t, got.TotalOpenPositions, 0)
	assert.Less(t, got.TotalOpenPositions, 50)
}
