package recurrence

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock drives a cache's notion of time.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCache(t *testing.T, config CacheConfig) (*RecurrenceCache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cache := NewRecurrenceCache(config)
	cache.mu.Lock()
	cache.now = clock.Now
	cache.mu.Unlock()
	t.Cleanup(cache.Close)
	return cache, clock
}

var (
	keyMasterStart = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	keyMasterEnd   = time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC)
	keyRangeStart  = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	keyRangeEnd    = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
)

func TestRecurrenceCache_BasicOperations(t *testing.T) {
	cache, _ := newTestCache(t, DefaultCacheConfig)
	key := cacheKey("has", keyMasterStart, keyMasterEnd, RecurrenceInfo{RRULE: "FREQ=DAILY;COUNT=5"}, keyRangeStart, keyRangeEnd)

	result, found := cache.Get(key)
	assert.False(t, found)
	assert.Nil(t, result)

	cache.Set(key, true)
	result, found = cache.Get(key)
	assert.True(t, found)
	assert.Equal(t, true, result)

	stats := cache.Stats()
	assert.Equal(t, 1, stats.Hits)
	assert.Equal(t, 1, stats.Misses)
	assert.Equal(t, 1, stats.ActiveEntries)
}

func TestRecurrenceCache_TTLExpiration(t *testing.T) {
	cache, clock := newTestCache(t, CacheConfig{TTL: time.Minute, MaxEntries: 10, CleanupInterval: time.Hour})

	cache.Set("k", 42)
	clock.Advance(30 * time.Second)
	result, found := cache.Get("k")
	require.True(t, found)
	assert.Equal(t, 42, result)

	clock.Advance(31 * time.Second)
	stats := cache.Stats()
	assert.Equal(t, 1, stats.ExpiredEntries)
	assert.Equal(t, 0, stats.ActiveEntries)

	_, found = cache.Get("k")
	assert.False(t, found)
	assert.Equal(t, 0, cache.Stats().TotalEntries)
}

func TestRecurrenceCache_MaxEntriesEviction(t *testing.T) {
	cache, clock := newTestCache(t, CacheConfig{TTL: time.Hour, MaxEntries: 3, CleanupInterval: time.Hour})

	for i := range 3 {
		cache.Set(fmt.Sprintf("k%d", i), i)
		clock.Advance(time.Second)
	}
	// k0 becomes the most recently read entry.
	_, found := cache.Get("k0")
	require.True(t, found)
	clock.Advance(time.Second)

	cache.Set("k3", 3)

	assert.Equal(t, 3, cache.Stats().TotalEntries)
	_, found = cache.Get("k1")
	assert.False(t, found, "least recently read entry is evicted")
	for _, key := range []string{"k0", "k2", "k3"} {
		_, found := cache.Get(key)
		assert.True(t, found, key)
	}
}

func TestRecurrenceCache_ExpiredEntriesEvictedFirst(t *testing.T) {
	cache, clock := newTestCache(t, CacheConfig{TTL: time.Minute, MaxEntries: 2, CleanupInterval: time.Hour})

	cache.Set("old", 1)
	clock.Advance(2 * time.Minute)
	cache.Set("a", 2)
	cache.Set("b", 3)

	stats := cache.Stats()
	assert.Equal(t, 2, stats.TotalEntries)
	assert.Equal(t, 0, stats.ExpiredEntries)
	_, found := cache.Get("a")
	assert.True(t, found)
}

func TestRecurrenceCache_KeyGeneration(t *testing.T) {
	base := RecurrenceInfo{
		RRULE:  "FREQ=DAILY;COUNT=5",
		RDATE:  []time.Time{time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)},
		EXDATE: []time.Time{time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)},
	}
	baseKey := cacheKey("has", keyMasterStart, keyMasterEnd, base, keyRangeStart, keyRangeEnd)
	assert.Len(t, baseKey, 64)
	assert.Equal(t, baseKey, cacheKey("has", keyMasterStart, keyMasterEnd, base, keyRangeStart, keyRangeEnd))

	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	recurrenceID := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		key  string
	}{
		{"operation", cacheKey("expand", keyMasterStart, keyMasterEnd, base, keyRangeStart, keyRangeEnd)},
		{"master start", cacheKey("has", keyMasterStart.Add(time.Minute), keyMasterEnd, base, keyRangeStart, keyRangeEnd)},
		{"master zone", cacheKey("has", keyMasterStart.In(paris), keyMasterEnd, base, keyRangeStart, keyRangeEnd)},
		{"range end", cacheKey("has", keyMasterStart, keyMasterEnd, base, keyRangeStart, keyRangeEnd.Add(time.Hour))},
		{"rrule", cacheKey("has", keyMasterStart, keyMasterEnd, RecurrenceInfo{RRULE: "FREQ=DAILY;COUNT=6", RDATE: base.RDATE, EXDATE: base.EXDATE}, keyRangeStart, keyRangeEnd)},
		{"rdate moved to exdate", cacheKey("has", keyMasterStart, keyMasterEnd, RecurrenceInfo{RRULE: base.RRULE, EXDATE: append(base.RDATE, base.EXDATE...)}, keyRangeStart, keyRangeEnd)},
		{"recurrence id", cacheKey("has", keyMasterStart, keyMasterEnd, RecurrenceInfo{RRULE: base.RRULE, RDATE: base.RDATE, EXDATE: base.EXDATE, RecurrenceID: &recurrenceID}, keyRangeStart, keyRangeEnd)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, baseKey, tt.key)
		})
	}
}

func TestRecurrenceCache_ConcurrentAccess(t *testing.T) {
	cache, _ := newTestCache(t, CacheConfig{TTL: time.Hour, MaxEntries: 50, CleanupInterval: time.Hour})

	var wg sync.WaitGroup
	for g := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				key := fmt.Sprintf("g%d-%d", g, i%20)
				cache.Set(key, i)
				cache.Get(key)
				cache.Stats()
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, cache.Stats().TotalEntries, 50)
}

func TestRecurrenceCache_CloseTwice(t *testing.T) {
	cache := NewRecurrenceCache(CacheConfig{TTL: time.Minute, MaxEntries: 10, CleanupInterval: 10 * time.Millisecond})
	cache.Set("k", 1)
	cache.Close()
	cache.Close()
	assert.Equal(t, 0, cache.Stats().TotalEntries)
}
