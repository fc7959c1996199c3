package recurrence

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/cyp0633/librrule/internal/timestamp"
	"github.com/cyp0633/librrule/rrule"
)

// Engine expands recurring calendar data into occurrences and answers
// range questions about it. It is safe for concurrent use.
type Engine struct {
	cache  *RecurrenceCache
	config EngineConfig
	logger *slog.Logger
	group  singleflight.Group
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates a new recurrence engine without a cache
func NewEngine(opts ...EngineOption) *Engine {
	return NewEngineWithConfig(DisabledCacheConfig, opts...)
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() EngineConfig {
	return e.config
}

// CacheStats reports the engine cache statistics; ok is false when caching
// is disabled.
func (e *Engine) CacheStats() (stats CacheStats, ok bool) {
	if e.cache == nil {
		return CacheStats{}, false
	}
	return e.cache.Stats(), true
}

// Close releases the engine cache.
func (e *Engine) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
}

// BuildSet assembles the occurrence set of a master component: its start,
// the RRULE anchored at that start, RDATEs and EXDATEs.
func (e *Engine) BuildSet(masterStart time.Time, info RecurrenceInfo) (*rrule.Set, error) {
	set := rrule.NewSet()
	set.DTStart(masterStart)
	set.RDate(masterStart)

	if info.RRULE != "" {
		r, err := rrule.ParseRule("RRULE:"+info.RRULE,
			rrule.WithDTStart(masterStart),
			rrule.WithLocation(masterStart.Location()))
		if err != nil {
			return nil, fmt.Errorf("%w: RRULE %q: %w", ErrInvalidRecurrence, info.RRULE, err)
		}
		set.RRule(r)
	}
	for _, t := range info.RDATE {
		set.RDate(t)
	}
	for _, t := range info.EXDATE {
		set.ExDate(t)
	}
	return set, nil
}

// HasOccurrenceInRange checks if a recurring event has any occurrence
// overlapping the range, without expanding it. An occurrence overlaps when
// start <= rangeEnd and end >= rangeStart.
func (e *Engine) HasOccurrenceInRange(
	masterStart, masterEnd time.Time,
	recurrence RecurrenceInfo,
	rangeStart, rangeEnd time.Time,
) (bool, error) {
	key := cacheKey("has", masterStart, masterEnd, recurrence, rangeStart, rangeEnd)
	if cached, ok := e.lookup(key); ok {
		return cached.(bool), nil
	}

	set, err := e.BuildSet(masterStart, recurrence)
	if err != nil {
		return false, err
	}

	duration := masterEnd.Sub(masterStart)
	excluded := 0
	found := false
	for start := range rrule.Seq(set) {
		if start.After(rangeEnd) {
			break
		}
		if start.Add(duration).Before(rangeStart) {
			continue
		}
		if !isExcluded(start, recurrence.EXDATE) {
			found = true
			break
		}
		excluded++
		if e.config.MaxExpansionOccurrences > 0 && excluded >= e.config.MaxExpansionOccurrences {
			e.logger.Debug("occurrence check gave up on excluded candidates",
				"rrule", recurrence.RRULE, "examined", excluded)
			break
		}
	}

	e.store(key, found)
	return found, nil
}

// Expand lists the occurrences overlapping [rangeStart, rangeEnd]. The
// range is clamped to opts.MaxTimeSpan and the result to opts.MaxOccurrences.
// A zero opts uses the engine's configured expansion options.
func (e *Engine) Expand(
	masterStart, masterEnd time.Time,
	recurrence RecurrenceInfo,
	rangeStart, rangeEnd time.Time,
	opts ExpansionOptions,
) ([]TimeOccurrence, error) {
	if opts == (ExpansionOptions{}) {
		opts = e.config.Expansion
	}
	if opts.MaxTimeSpan > 0 && rangeEnd.Sub(rangeStart) > opts.MaxTimeSpan {
		e.logger.Debug("expansion range clamped",
			"range_start", rangeStart, "range_end", rangeEnd, "max_time_span", opts.MaxTimeSpan)
		rangeEnd = rangeStart.Add(opts.MaxTimeSpan)
	}

	key := cacheKey(fmt.Sprintf("expand:%d:%d", opts.MaxOccurrences, opts.MaxTimeSpan),
		masterStart, masterEnd, recurrence, rangeStart, rangeEnd)
	if cached, ok := e.lookup(key); ok {
		return slices.Clone(cached.([]TimeOccurrence)), nil
	}

	v, err, _ := e.group.Do(key, func() (any, error) {
		occurrences, err := e.expand(masterStart, masterEnd, recurrence, rangeStart, rangeEnd, opts)
		if err != nil {
			return nil, err
		}
		e.store(key, occurrences)
		return occurrences, nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]TimeOccurrence)), nil
}

func (e *Engine) expand(
	masterStart, masterEnd time.Time,
	recurrence RecurrenceInfo,
	rangeStart, rangeEnd time.Time,
	opts ExpansionOptions,
) ([]TimeOccurrence, error) {
	set, err := e.BuildSet(masterStart, recurrence)
	if err != nil {
		return nil, err
	}

	duration := masterEnd.Sub(masterStart)
	var out []TimeOccurrence
	for start := range rrule.Seq(set) {
		if start.After(rangeEnd) {
			break
		}
		end := start.Add(duration)
		if end.Before(rangeStart) || isExcluded(start, recurrence.EXDATE) {
			continue
		}
		if opts.MaxOccurrences > 0 && len(out) == opts.MaxOccurrences {
			e.logger.Debug("expansion truncated",
				"rrule", recurrence.RRULE, "max_occurrences", opts.MaxOccurrences)
			break
		}
		out = append(out, TimeOccurrence{Start: start, End: end})
	}
	return out, nil
}

func (e *Engine) lookup(key string) (any, bool) {
	if e.cache == nil {
		return nil, false
	}
	v, ok := e.cache.Get(key)
	if ok {
		e.logger.Debug("recurrence cache hit", "key", key[:12])
	} else {
		e.logger.Debug("recurrence cache miss", "key", key[:12])
	}
	return v, ok
}

func (e *Engine) store(key string, v any) {
	if e.cache != nil {
		e.cache.Set(key, v)
	}
}

// isExcluded checks if a given time is in the EXDATE list. Date-only
// exceptions, stored as midnight UTC, exclude the whole day.
func isExcluded(t time.Time, exdates []time.Time) bool {
	for _, exdate := range exdates {
		if t.Equal(exdate) {
			return true
		}
		if exdate.Location() == time.UTC && timestamp.IsDateOnly(exdate) {
			day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			if day.Equal(exdate) {
				return true
			}
		}
	}
	return false
}
