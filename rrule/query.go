package rrule

import (
	"iter"
	"time"

	"github.com/samber/mo"
)

// Seq adapts a source to a range-over-func sequence.
func Seq(src Source) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		it := src.Iterator()
		for t, ok := it.Next(); ok; t, ok = it.Next() {
			if !yield(t) {
				return
			}
		}
	}
}

// All returns every occurrence. A rule without COUNT or UNTIL runs until
// the year 9999, so callers should bound infinite rules with Between or Slice.
func All(src Source) []time.Time {
	var out []time.Time
	for t := range Seq(src) {
		out = append(out, t)
	}
	return out
}

// Count returns the number of occurrences.
func Count(src Source) int {
	n := 0
	it := src.Iterator()
	for _, ok := it.Next(); ok; _, ok = it.Next() {
		n++
	}
	return n
}

// Nth returns the i-th occurrence, 0-based. A negative i counts from the end
// and materializes the whole sequence.
func Nth(src Source, i int) mo.Option[time.Time] {
	if i < 0 {
		all := All(src)
		if -i > len(all) {
			return mo.None[time.Time]()
		}
		return mo.Some(all[len(all)+i])
	}
	n := 0
	for t := range Seq(src) {
		if n == i {
			return mo.Some(t)
		}
		n++
	}
	return mo.None[time.Time]()
}

// Slice returns occurrences [start, stop). Negative bounds count from the end
// and materialize the whole sequence.
func Slice(src Source, start, stop int) []time.Time {
	if start < 0 || stop < 0 {
		all := All(src)
		start, stop = clampIndex(start, len(all)), clampIndex(stop, len(all))
		if start >= stop {
			return nil
		}
		return append([]time.Time(nil), all[start:stop]...)
	}
	var out []time.Time
	n := 0
	for t := range Seq(src) {
		if n >= stop {
			break
		}
		if n >= start {
			out = append(out, t)
		}
		n++
	}
	return out
}

func clampIndex(i, n int) int {
	if i < 0 {
		i += n
	}
	return min(max(i, 0), n)
}

// Contains reports whether t is exactly one of the occurrences.
func Contains(src Source, t time.Time) bool {
	for occ := range Seq(src) {
		if occ.Equal(t) {
			return true
		}
		if occ.After(t) {
			return false
		}
	}
	return false
}

// Before returns the last occurrence before t, or at t when inc is set.
func Before(src Source, t time.Time, inc bool) mo.Option[time.Time] {
	last := mo.None[time.Time]()
	for occ := range Seq(src) {
		if occ.After(t) || (!inc && occ.Equal(t)) {
			break
		}
		last = mo.Some(occ)
	}
	return last
}

// After returns the first occurrence after t, or at t when inc is set.
func After(src Source, t time.Time, inc bool) mo.Option[time.Time] {
	for occ := range Seq(src) {
		if occ.After(t) || (inc && occ.Equal(t)) {
			return mo.Some(occ)
		}
	}
	return mo.None[time.Time]()
}

// Between returns the occurrences strictly between after and before, or
// including both ends when inc is set.
func Between(src Source, after, before time.Time, inc bool) []time.Time {
	var out []time.Time
	for occ := range Seq(src) {
		if occ.After(before) || (!inc && occ.Equal(before)) {
			break
		}
		if occ.After(after) || (inc && occ.Equal(after)) {
			out = append(out, occ)
		}
	}
	return out
}

// All returns every occurrence of the rule.
func (r *Rule) All() []time.Time { return All(r) }

// Count returns the number of occurrences. The result is computed once.
func (r *Rule) Count() int {
	r.countOnce.Do(func() {
		r.length = Count(r)
	})
	return r.length
}

// Nth returns the i-th occurrence; negative i counts from the end.
func (r *Rule) Nth(i int) mo.Option[time.Time] { return Nth(r, i) }

// Contains reports whether t is an occurrence.
func (r *Rule) Contains(t time.Time) bool { return Contains(r, t) }

// Before returns the last occurrence before t.
func (r *Rule) Before(t time.Time, inc bool) mo.Option[time.Time] { return Before(r, t, inc) }

// After returns the first occurrence after t.
func (r *Rule) After(t time.Time, inc bool) mo.Option[time.Time] { return After(r, t, inc) }

// Between returns the occurrences within (after, before).
func (r *Rule) Between(after, before time.Time, inc bool) []time.Time {
	return Between(r, after, before, inc)
}
