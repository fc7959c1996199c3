package rrule

import (
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/mo"
)

// Cache memoizes one generation of a source so it can be replayed, indexed
// and read by many goroutines. The memo is append-only and published as a
// snapshot after every pulled occurrence: readers of materialized indices
// never take a lock, and the first reader to reach an unmaterialized index
// extends the memo from the single owned iterator.
type Cache struct {
	mu   sync.Mutex // serializes extension
	it   Iterator
	memo atomic.Pointer[[]time.Time]
	done atomic.Bool
}

// NewCache starts one generation of src and memoizes it lazily.
func NewCache(src Source) *Cache {
	return &Cache{it: src.Iterator()}
}

func (c *Cache) snapshot() []time.Time {
	if p := c.memo.Load(); p != nil {
		return *p
	}
	return nil
}

// at returns the i-th occurrence, pulling from the underlying iterator when
// the memo is too short.
func (c *Cache) at(i int) (time.Time, bool) {
	// done is set after the last snapshot is published
	done := c.done.Load()
	if memo := c.snapshot(); i < len(memo) {
		return memo[i], true
	}
	if done {
		return time.Time{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	memo := c.snapshot()
	for len(memo) <= i && !c.done.Load() {
		t, ok := c.it.Next()
		if !ok {
			c.done.Store(true)
			c.it = nil
			break
		}
		// Appending never touches indices a published snapshot can read.
		memo = append(memo, t)
		published := memo
		c.memo.Store(&published)
	}
	if i < len(memo) {
		return memo[i], true
	}
	return time.Time{}, false
}

// Iterator replays the memo from the start, extending it on demand.
func (c *Cache) Iterator() Iterator {
	return &cacheIterator{c: c}
}

type cacheIterator struct {
	c *Cache
	i int
}

func (ci *cacheIterator) Next() (time.Time, bool) {
	t, ok := ci.c.at(ci.i)
	if ok {
		ci.i++
	}
	return t, ok
}

// Materialized returns how many occurrences are memoized so far and whether
// the underlying sequence is exhausted.
func (c *Cache) Materialized() (n int, complete bool) {
	complete = c.done.Load()
	return len(c.snapshot()), complete
}

// At returns the i-th occurrence; negative i counts from the end.
func (c *Cache) At(i int) mo.Option[time.Time] {
	if i < 0 {
		n := c.Count()
		i += n
		if i < 0 {
			return mo.None[time.Time]()
		}
	}
	if t, ok := c.at(i); ok {
		return mo.Some(t)
	}
	return mo.None[time.Time]()
}

// Count exhausts the sequence once; later calls read the memo length.
func (c *Cache) Count() int {
	if !c.done.Load() {
		c.at(math.MaxInt)
	}
	return len(c.snapshot())
}

// All returns a copy of every occurrence.
func (c *Cache) All() []time.Time {
	c.Count()
	return slices.Clone(c.snapshot())
}

// Contains reports whether t is an occurrence.
func (c *Cache) Contains(t time.Time) bool { return Contains(c, t) }

// Before returns the last occurrence before t.
func (c *Cache) Before(t time.Time, inc bool) mo.Option[time.Time] { return Before(c, t, inc) }

// After returns the first occurrence after t.
func (c *Cache) After(t time.Time, inc bool) mo.Option[time.Time] { return After(c, t, inc) }

// Between returns the occurrences within (after, before).
func (c *Cache) Between(after, before time.Time, inc bool) []time.Time {
	return Between(c, after, before, inc)
}
