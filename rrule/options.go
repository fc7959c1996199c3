package rrule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cyp0633/librrule/internal/timestamp"
)

// RuleOptions enumerates every recognized part of a recurrence rule.
// Empty filter lists are unset. A zero Interval means 1, a zero Count and a
// zero Until mean no bound.
type RuleOptions struct {
	Freq      Frequency
	DTStart   time.Time
	Interval  int
	WeekStart Weekday
	Count     int
	Until     time.Time

	BySetPos   []int
	ByMonth    []int
	ByMonthDay []int // 1..31 or -31..-1
	ByYearDay  []int // 1..366 or -366..-1
	ByWeekNo   []int // 1..53 or -53..-1
	ByWeekday  []Weekday
	ByHour     []int
	ByMinute   []int
	BySecond   []int
	ByEaster   []int // day offsets from Easter Sunday
}

// Validate checks the options without building a rule.
func (o RuleOptions) Validate() error {
	if !o.Freq.valid() {
		return fmt.Errorf("%w: unknown frequency %d", ErrInvalidRule, int(o.Freq))
	}
	if o.Interval < 0 {
		return fmt.Errorf("%w: interval must be positive, got %d", ErrInvalidRule, o.Interval)
	}
	if o.Count < 0 {
		return fmt.Errorf("%w: count must be positive, got %d", ErrInvalidRule, o.Count)
	}
	if o.Count > 0 && !o.Until.IsZero() {
		return fmt.Errorf("%w: COUNT and UNTIL are mutually exclusive", ErrInvalidRule)
	}
	if o.WeekStart.day < 0 || o.WeekStart.day > 6 {
		return fmt.Errorf("%w: invalid week start %d", ErrInvalidRule, o.WeekStart.day)
	}

	checks := []struct {
		name   string
		values []int
		min    int
		max    int
		signed bool
	}{
		{"BYSETPOS", o.BySetPos, 1, 366, true},
		{"BYMONTH", o.ByMonth, 1, 12, false},
		{"BYMONTHDAY", o.ByMonthDay, 1, 31, true},
		{"BYYEARDAY", o.ByYearDay, 1, 366, true},
		{"BYWEEKNO", o.ByWeekNo, 1, 53, true},
		{"BYHOUR", o.ByHour, 0, 23, false},
		{"BYMINUTE", o.ByMinute, 0, 59, false},
		{"BYSECOND", o.BySecond, 0, 59, false},
	}
	for _, c := range checks {
		for _, v := range c.values {
			abs := v
			if c.signed && v < 0 {
				abs = -v
			}
			if abs < c.min || abs > c.max {
				return fmt.Errorf("%w: %s value %d out of range", ErrInvalidRule, c.name, v)
			}
		}
	}

	for _, wd := range o.ByWeekday {
		if wd.day < 0 || wd.day > 6 {
			return fmt.Errorf("%w: invalid weekday %d", ErrInvalidRule, wd.day)
		}
		if wd.n < -53 || wd.n > 53 {
			return fmt.Errorf("%w: weekday ordinal %d out of range", ErrInvalidRule, wd.n)
		}
	}
	return nil
}

// RRuleString returns the RRULE value (without the "RRULE:" name or DTSTART).
func (o RuleOptions) RRuleString() string {
	parts := []string{"FREQ=" + o.Freq.String()}
	if o.Interval > 1 {
		parts = append(parts, "INTERVAL="+strconv.Itoa(o.Interval))
	}
	if o.WeekStart.day != MO.day {
		parts = append(parts, "WKST="+weekdayNames[o.WeekStart.day])
	}
	if o.Count > 0 {
		parts = append(parts, "COUNT="+strconv.Itoa(o.Count))
	}
	if !o.Until.IsZero() {
		parts = append(parts, "UNTIL="+timestamp.FormatUTC(o.Until))
	}
	appendInts := func(name string, values []int) {
		if len(values) > 0 {
			parts = append(parts, name+"="+joinInts(values))
		}
	}
	appendInts("BYSETPOS", o.BySetPos)
	appendInts("BYMONTH", o.ByMonth)
	appendInts("BYMONTHDAY", o.ByMonthDay)
	appendInts("BYYEARDAY", o.ByYearDay)
	appendInts("BYWEEKNO", o.ByWeekNo)
	if len(o.ByWeekday) > 0 {
		days := make([]string, len(o.ByWeekday))
		for i, wd := range o.ByWeekday {
			days[i] = wd.String()
		}
		parts = append(parts, "BYDAY="+strings.Join(days, ","))
	}
	appendInts("BYHOUR", o.ByHour)
	appendInts("BYMINUTE", o.ByMinute)
	appendInts("BYSECOND", o.BySecond)
	appendInts("BYEASTER", o.ByEaster)
	return strings.Join(parts, ";")
}

func joinInts(values []int) string {
	s := make([]string, len(values))
	for i, v := range values {
		s[i] = strconv.Itoa(v)
	}
	return strings.Join(s, ",")
}

// clone deep-copies every list so a Rule never shares memory with its caller.
func (o RuleOptions) clone() RuleOptions {
	o.BySetPos = append([]int(nil), o.BySetPos...)
	o.ByMonth = append([]int(nil), o.ByMonth...)
	o.ByMonthDay = append([]int(nil), o.ByMonthDay...)
	o.ByYearDay = append([]int(nil), o.ByYearDay...)
	o.ByWeekNo = append([]int(nil), o.ByWeekNo...)
	o.ByWeekday = append([]Weekday(nil), o.ByWeekday...)
	o.ByHour = append([]int(nil), o.ByHour...)
	o.ByMinute = append([]int(nil), o.ByMinute...)
	o.BySecond = append([]int(nil), o.BySecond...)
	o.ByEaster = append([]int(nil), o.ByEaster...)
	return o
}
