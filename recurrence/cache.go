package recurrence

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"sync"
	"time"
)

// CacheEntry represents a cached engine result
type CacheEntry struct {
	Result     any // bool for HasOccurrenceInRange, []TimeOccurrence for Expand
	ExpiresAt  time.Time
	AccessedAt time.Time
}

// RecurrenceCache keeps engine results keyed by a digest of their inputs.
// Entries expire after the TTL; once MaxEntries is exceeded the least
// recently read entries are evicted.
type RecurrenceCache struct {
	mu              sync.Mutex
	entries         map[string]*CacheEntry
	ttl             time.Duration
	maxEntries      int
	cleanupInterval time.Duration
	hits, misses    int
	now             func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// CacheConfig holds configuration for the recurrence cache
type CacheConfig struct {
	TTL             time.Duration // How long entries stay valid
	MaxEntries      int           // Maximum number of entries before eviction
	CleanupInterval time.Duration // How often expired entries are dropped
}

// DefaultCacheConfig provides sensible defaults for recurrence caching
var DefaultCacheConfig = CacheConfig{
	TTL:             15 * time.Minute,
	MaxEntries:      1000,
	CleanupInterval: 5 * time.Minute,
}

// NewRecurrenceCache creates a cache and starts its cleanup goroutine.
// Close must be called to stop it.
func NewRecurrenceCache(config CacheConfig) *RecurrenceCache {
	c := &RecurrenceCache{
		entries:         make(map[string]*CacheEntry),
		ttl:             config.TTL,
		maxEntries:      config.MaxEntries,
		cleanupInterval: config.CleanupInterval,
		now:             time.Now,
		stop:            make(chan struct{}),
		done:            make(chan struct{}),
	}
	if c.cleanupInterval <= 0 {
		c.cleanupInterval = DefaultCacheConfig.CleanupInterval
	}
	go c.cleanupLoop()
	return c
}

// cacheKey digests an operation name and its inputs into a cache key.
func cacheKey(operation string, masterStart, masterEnd time.Time, info RecurrenceInfo, rangeStart, rangeEnd time.Time) string {
	h := sha256.New()
	write := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	stamp := func(t time.Time) {
		write(t.Format(time.RFC3339Nano) + " " + t.Location().String())
	}

	write(operation)
	stamp(masterStart)
	stamp(masterEnd)
	stamp(rangeStart)
	stamp(rangeEnd)
	write(info.RRULE)
	write("rdate")
	for _, t := range info.RDATE {
		stamp(t)
	}
	write("exdate")
	for _, t := range info.EXDATE {
		stamp(t)
	}
	if info.RecurrenceID != nil {
		stamp(*info.RecurrenceID)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the live entry stored under key.
func (c *RecurrenceCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	now := c.now()
	if !ok || now.After(entry.ExpiresAt) {
		if ok {
			delete(c.entries, key)
		}
		c.misses++
		return nil, false
	}
	entry.AccessedAt = now
	c.hits++
	return entry.Result, true
}

// Set stores result under key, evicting old entries when over the limit.
func (c *RecurrenceCache) Set(key string, result any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[key] = &CacheEntry{
		Result:     result,
		ExpiresAt:  now.Add(c.ttl),
		AccessedAt: now,
	}
	if len(c.entries) > c.maxEntries {
		c.cleanup(now)
	}
}

// cleanup drops expired entries, then the least recently read ones until
// the cache is back under its limit. Callers hold c.mu.
func (c *RecurrenceCache) cleanup(now time.Time) {
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
		}
	}
	excess := len(c.entries) - c.maxEntries
	if excess <= 0 {
		return
	}

	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, func(a, b string) int {
		return c.entries[a].AccessedAt.Compare(c.entries[b].AccessedAt)
	})
	for _, key := range keys[:excess] {
		delete(c.entries, key)
	}
}

func (c *RecurrenceCache) cleanupLoop() {
	defer close(c.done)
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			c.cleanup(c.now())
			c.mu.Unlock()
		case <-c.stop:
			return
		}
	}
}

// Close stops the cleanup goroutine and clears the cache. It is safe to
// call more than once.
func (c *RecurrenceCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done
	c.mu.Lock()
	c.entries = make(map[string]*CacheEntry)
	c.mu.Unlock()
}

// Stats returns cache statistics
func (c *RecurrenceCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := CacheStats{TotalEntries: len(c.entries), Hits: c.hits, Misses: c.misses}
	now := c.now()
	for _, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			stats.ExpiredEntries++
		}
	}
	stats.ActiveEntries = stats.TotalEntries - stats.ExpiredEntries
	return stats
}

// CacheStats provides information about cache performance
type CacheStats struct {
	TotalEntries   int
	ExpiredEntries int
	ActiveEntries  int
	Hits           int
	Misses         int
}
