package rrule

import (
	"container/heap"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/samber/mo"

	"github.com/cyp0633/librrule/internal/timestamp"
)

// Set combines inclusion rules and instants, minus exclusion rules and
// instants, into one strictly increasing sequence without duplicates.
// A Set owns its rules. Mutating a Set while iterating it is not supported.
type Set struct {
	dtstart time.Time
	rrules  []*Rule
	rdates  []time.Time
	exrules []*Rule
	exdates []time.Time
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{}
}

// DTStart anchors the set and every rule it owns at dt.
func (s *Set) DTStart(dt time.Time) {
	s.dtstart = dt
	for i, r := range s.rrules {
		s.rrules[i] = r.withDTStart(dt)
	}
	for i, r := range s.exrules {
		s.exrules[i] = r.withDTStart(dt)
	}
}

// GetDTStart returns the set anchor, zero if never set.
func (s *Set) GetDTStart() time.Time {
	return s.dtstart
}

// RRule adds an inclusion rule, re-anchored at the set DTSTART if one is set.
func (s *Set) RRule(r *Rule) {
	s.rrules = append(s.rrules, s.anchor(r))
}

// ExRule adds an exclusion rule, re-anchored at the set DTSTART if one is set.
func (s *Set) ExRule(r *Rule) {
	s.exrules = append(s.exrules, s.anchor(r))
}

// RDate adds an inclusion instant.
func (s *Set) RDate(t time.Time) {
	s.rdates = insertSorted(s.rdates, t)
}

// ExDate adds an exclusion instant.
func (s *Set) ExDate(t time.Time) {
	s.exdates = insertSorted(s.exdates, t)
}

func (s *Set) anchor(r *Rule) *Rule {
	if s.dtstart.IsZero() || (r.dtstart.Equal(s.dtstart) && r.dtstart.Location() == s.dtstart.Location()) {
		return r
	}
	return r.withDTStart(s.dtstart)
}

func insertSorted(list []time.Time, t time.Time) []time.Time {
	i, _ := slices.BinarySearchFunc(list, t, func(a, b time.Time) int { return a.Compare(b) })
	return slices.Insert(list, i, t)
}

// GetRRules returns the inclusion rules.
func (s *Set) GetRRules() []*Rule { return slices.Clone(s.rrules) }

// GetExRules returns the exclusion rules.
func (s *Set) GetExRules() []*Rule { return slices.Clone(s.exrules) }

// GetRDates returns the inclusion instants in ascending order.
func (s *Set) GetRDates() []time.Time { return slices.Clone(s.rdates) }

// GetExDates returns the exclusion instants in ascending order.
func (s *Set) GetExDates() []time.Time { return slices.Clone(s.exdates) }

// Iterator starts a k-way merge over all sources of the set.
func (s *Set) Iterator() Iterator {
	si := &setIterator{}

	si.include.admit(&sliceIterator{list: s.rdates})
	for _, r := range s.rrules {
		si.include.admit(r.Iterator())
	}
	si.exclude.admit(&sliceIterator{list: s.exdates})
	for _, r := range s.exrules {
		si.exclude.admit(r.Iterator())
	}
	return si
}

// sliceIterator walks a sorted instant list.
type sliceIterator struct {
	list []time.Time
	i    int
}

func (it *sliceIterator) Next() (time.Time, bool) {
	if it.i >= len(it.list) {
		return time.Time{}, false
	}
	t := it.list[it.i]
	it.i++
	return t, true
}

// pull reads the next value of a source: Some while pending, None once
// the source is exhausted.
func pull(it Iterator) mo.Option[time.Time] {
	if t, ok := it.Next(); ok {
		return mo.Some(t)
	}
	return mo.None[time.Time]()
}

// pending is a source together with the value it is currently offering.
type pending struct {
	next time.Time
	it   Iterator
}

// mergeQueue is a min-heap of pending sources keyed by their next value.
// Exhausted sources are dropped instead of kept as sentinels.
type mergeQueue []*pending

func (q mergeQueue) Len() int           { return len(q) }
func (q mergeQueue) Less(i, j int) bool { return q[i].next.Before(q[j].next) }
func (q mergeQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }

func (q *mergeQueue) Push(x any) { *q = append(*q, x.(*pending)) }

func (q *mergeQueue) Pop() any {
	old := *q
	n := len(old)
	p := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return p
}

// admit adds a source to the queue unless it is already exhausted.
func (q *mergeQueue) admit(it Iterator) {
	if t, ok := pull(it).Get(); ok {
		heap.Push(q, &pending{next: t, it: it})
	}
}

// peek returns the smallest pending value.
func (q mergeQueue) peek() mo.Option[time.Time] {
	if len(q) == 0 {
		return mo.None[time.Time]()
	}
	return mo.Some(q[0].next)
}

// advance moves the head source to its next value, dropping it when done.
func (q *mergeQueue) advance() {
	head := (*q)[0]
	if t, ok := pull(head.it).Get(); ok {
		head.next = t
		heap.Fix(q, 0)
		return
	}
	heap.Pop(q)
}

type setIterator struct {
	include mergeQueue
	exclude mergeQueue
	last    mo.Option[time.Time]
}

func (si *setIterator) Next() (time.Time, bool) {
	for {
		cand, ok := si.include.peek().Get()
		if !ok {
			return time.Time{}, false
		}
		si.include.advance()

		if last, ok := si.last.Get(); ok && last.Equal(cand) {
			continue
		}
		si.last = mo.Some(cand)

		for {
			ex, ok := si.exclude.peek().Get()
			if !ok || !ex.Before(cand) {
				break
			}
			si.exclude.advance()
		}
		if ex, ok := si.exclude.peek().Get(); ok && ex.Equal(cand) {
			continue
		}
		return cand, true
	}
}

// All returns every occurrence of the set.
func (s *Set) All() []time.Time { return All(s) }

// Count returns the number of occurrences.
func (s *Set) Count() int { return Count(s) }

// Nth returns the i-th occurrence; negative i counts from the end.
func (s *Set) Nth(i int) mo.Option[time.Time] { return Nth(s, i) }

// Contains reports whether t is an occurrence.
func (s *Set) Contains(t time.Time) bool { return Contains(s, t) }

// Before returns the last occurrence before t.
func (s *Set) Before(t time.Time, inc bool) mo.Option[time.Time] { return Before(s, t, inc) }

// After returns the first occurrence after t.
func (s *Set) After(t time.Time, inc bool) mo.Option[time.Time] { return After(s, t, inc) }

// Between returns the occurrences within (after, before).
func (s *Set) Between(after, before time.Time, inc bool) []time.Time {
	return Between(s, after, before, inc)
}

// textAnchor returns the DTSTART line value shared by every rule of the
// set. shared is false when the set has no DTSTART of its own and its rules
// start at different instants or in different zones.
func (s *Set) textAnchor() (dtstart time.Time, shared bool) {
	if !s.dtstart.IsZero() {
		return s.dtstart, true
	}
	for _, r := range slices.Concat(s.rrules, s.exrules) {
		switch {
		case dtstart.IsZero():
			dtstart = r.dtstart
		case !r.dtstart.Equal(dtstart) || r.dtstart.Location().String() != dtstart.Location().String():
			return time.Time{}, false
		}
	}
	return dtstart, true
}

// Strings returns the set as content lines: DTSTART, RRULE, EXRULE, RDATE
// and EXDATE. When the rules start differently and the set has no DTSTART,
// each rule value carries its own DTSTART=, which only holds UTC starts;
// a zoned start then fails with ErrUnrepresentable.
func (s *Set) Strings() ([]string, error) {
	dtstart, shared := s.textAnchor()
	ruleLine := func(name string, r *Rule) (string, error) {
		if shared {
			return name + ":" + r.options.RRuleString(), nil
		}
		if r.dtstart.Location() != time.UTC {
			return "", fmt.Errorf("%w: %s starting %s in %s", ErrUnrepresentable, name,
				timestamp.Format(r.dtstart), r.dtstart.Location())
		}
		return name + ":DTSTART=" + timestamp.FormatUTC(r.dtstart) + ";" + r.options.RRuleString(), nil
	}

	var lines []string
	if shared && !dtstart.IsZero() {
		lines = append(lines, dtstartLine(dtstart))
	}
	for _, r := range s.rrules {
		line, err := ruleLine("RRULE", r)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	for _, r := range s.exrules {
		line, err := ruleLine("EXRULE", r)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	for _, t := range s.rdates {
		lines = append(lines, dateLine("RDATE", t))
	}
	for _, t := range s.exdates {
		lines = append(lines, dateLine("EXDATE", t))
	}
	return lines, nil
}

// MarshalText joins Strings with newlines.
func (s *Set) MarshalText() ([]byte, error) {
	lines, err := s.Strings()
	if err != nil {
		return nil, err
	}
	return []byte(strings.Join(lines, "\n")), nil
}

func dateLine(name string, t time.Time) string {
	if tzid := timestamp.TZID(t); tzid != "" {
		return name + ";TZID=" + tzid + ":" + timestamp.Format(t)
	}
	return name + ":" + timestamp.Format(t)
}
