package rrule

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cyp0633/librrule/internal/timestamp"
)

// maxYear bounds iteration; a rule that would advance past it simply ends.
const maxYear = 9999

// Rule is an immutable recurrence rule. It is safe for concurrent use; every
// call to Iterator starts an independent generation from DTStart.
type Rule struct {
	options RuleOptions

	freq      Frequency
	dtstart   time.Time
	interval  int
	weekStart int
	count     int
	until     time.Time

	bySetPos    []int
	byMonth     []int
	byMonthDay  []int
	byNMonthDay []int
	byYearDay   []int
	byWeekNo    []int
	byWeekday   []int
	byNWeekday  []Weekday
	byHour      []int
	byMinute    []int
	bySecond    []int
	byEaster    []int

	// timeset is the fixed time-of-day list for DAILY and coarser rules
	timeset []clock

	countOnce sync.Once
	length    int
}

type clock struct {
	hour, minute, second int
}

func (c clock) less(o clock) bool {
	if c.hour != o.hour {
		return c.hour < o.hour
	}
	if c.minute != o.minute {
		return c.minute < o.minute
	}
	return c.second < o.second
}

// NewRule validates opts and builds a rule. Filters left unset are seeded
// from DTStart so that every period selects at least one day and time.
func NewRule(opts RuleOptions) (*Rule, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.clone()

	if opts.DTStart.IsZero() {
		opts.DTStart = time.Now()
	}
	dt := opts.DTStart
	opts.DTStart = time.Date(dt.Year(), dt.Month(), dt.Day(), dt.Hour(), dt.Minute(), dt.Second(), 0, dt.Location())
	dt = opts.DTStart

	r := &Rule{
		options:   opts,
		freq:      opts.Freq,
		dtstart:   dt,
		interval:  max(opts.Interval, 1),
		weekStart: opts.WeekStart.day,
		count:     opts.Count,
		until:     opts.Until,
		bySetPos:  opts.BySetPos,
		byMonth:   opts.ByMonth,
		byYearDay: opts.ByYearDay,
		byWeekNo:  opts.ByWeekNo,
		byHour:    opts.ByHour,
		byMinute:  opts.ByMinute,
		bySecond:  opts.BySecond,
		byEaster:  opts.ByEaster,
	}

	monthDays := opts.ByMonthDay
	weekdays := opts.ByWeekday
	if len(opts.ByWeekNo) == 0 && len(opts.ByYearDay) == 0 && len(opts.ByMonthDay) == 0 &&
		len(opts.ByWeekday) == 0 && len(opts.ByEaster) == 0 {
		switch r.freq {
		case YEARLY:
			if len(r.byMonth) == 0 {
				r.byMonth = []int{int(dt.Month())}
			}
			monthDays = []int{dt.Day()}
		case MONTHLY:
			monthDays = []int{dt.Day()}
		case WEEKLY:
			weekdays = []Weekday{{day: isoWeekday(dt)}}
		}
	}

	for _, d := range monthDays {
		if d > 0 {
			r.byMonthDay = append(r.byMonthDay, d)
		} else {
			r.byNMonthDay = append(r.byNMonthDay, d)
		}
	}

	for _, wd := range weekdays {
		if wd.n == 0 || r.freq > MONTHLY {
			r.byWeekday = append(r.byWeekday, wd.day)
		} else {
			r.byNWeekday = append(r.byNWeekday, wd)
		}
	}

	if len(r.byHour) == 0 && r.freq < HOURLY {
		r.byHour = []int{dt.Hour()}
	}
	if len(r.byMinute) == 0 && r.freq < MINUTELY {
		r.byMinute = []int{dt.Minute()}
	}
	if len(r.bySecond) == 0 && r.freq < SECONDLY {
		r.bySecond = []int{dt.Second()}
	}

	if r.freq < HOURLY {
		r.timeset = buildTimeset(r.byHour, r.byMinute, r.bySecond)
	}
	return r, nil
}

// buildTimeset returns the sorted, deduplicated product of the time filters.
func buildTimeset(hours, minutes, seconds []int) []clock {
	var ts []clock
	for _, h := range hours {
		for _, m := range minutes {
			for _, s := range seconds {
				ts = append(ts, clock{h, m, s})
			}
		}
	}
	slices.SortFunc(ts, func(a, b clock) int {
		switch {
		case a.less(b):
			return -1
		case b.less(a):
			return 1
		}
		return 0
	})
	return slices.Compact(ts)
}

// Options returns a copy of the options the rule was built from, with
// DTStart filled in and truncated to whole seconds.
func (r *Rule) Options() RuleOptions {
	return r.options.clone()
}

// Frequency returns the rule frequency.
func (r *Rule) Frequency() Frequency {
	return r.freq
}

// DTStart returns the anchor instant.
func (r *Rule) DTStart() time.Time {
	return r.dtstart
}

// Until returns the inclusive upper bound, zero if unbounded by time.
func (r *Rule) Until() time.Time {
	return r.until
}

// Bounded reports whether the rule ends through COUNT or UNTIL.
func (r *Rule) Bounded() bool {
	return r.count > 0 || !r.until.IsZero()
}

// withDTStart returns a copy of the rule anchored at dt.
func (r *Rule) withDTStart(dt time.Time) *Rule {
	opts := r.options.clone()
	opts.DTStart = dt
	nr, err := NewRule(opts)
	if err != nil {
		// options were valid already and DTStart takes no part in validation
		panic(err)
	}
	return nr
}

// String returns the rule as a DTSTART line followed by an RRULE line.
func (r *Rule) String() string {
	return dtstartLine(r.dtstart) + "\nRRULE:" + r.options.RRuleString()
}

func dtstartLine(dt time.Time) string {
	var sb strings.Builder
	sb.WriteString("DTSTART")
	if tzid := timestamp.TZID(dt); tzid != "" {
		sb.WriteString(";TZID=")
		sb.WriteString(tzid)
	}
	sb.WriteString(":")
	sb.WriteString(timestamp.Format(dt))
	return sb.String()
}
