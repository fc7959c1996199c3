package rrule

import (
	"slices"
	"time"
)

// Iterator yields occurrences in strictly increasing order. Next returns
// false once the sequence is exhausted and keeps returning false after that.
type Iterator interface {
	Next() (time.Time, bool)
}

// Source is anything that can start a fresh, independent iteration.
type Source interface {
	Iterator() Iterator
}

// ruleIterator walks a rule period by period. Each period's qualifying
// instants are buffered and handed out one by one.
type ruleIterator struct {
	r  *Rule
	ci *calendarInfo

	year, month, day     int
	hour, minute, second int
	weekday              int

	timeset   []clock
	remaining int
	finished  bool
	last      time.Time

	buffer []time.Time
	days   []int
}

// Iterator starts a new generation from DTStart.
func (r *Rule) Iterator() Iterator {
	dt := r.dtstart
	it := &ruleIterator{
		r:         r,
		ci:        newCalendarInfo(r),
		year:      dt.Year(),
		month:     int(dt.Month()),
		day:       dt.Day(),
		weekday:   isoWeekday(dt),
		remaining: r.count,
	}
	it.hour, it.minute, it.second = dt.Clock()
	it.ci.rebuild(it.year, it.month)

	if r.freq < HOURLY {
		it.timeset = r.timeset
	} else if (len(r.byHour) > 0 && !slices.Contains(r.byHour, it.hour)) ||
		(r.freq >= MINUTELY && len(r.byMinute) > 0 && !slices.Contains(r.byMinute, it.minute)) ||
		(r.freq >= SECONDLY && len(r.bySecond) > 0 && !slices.Contains(r.bySecond, it.second)) {
		it.timeset = nil
	} else {
		it.timeset = it.subDailyTimeset()
	}
	return it
}

func (it *ruleIterator) Next() (time.Time, bool) {
	for len(it.buffer) == 0 {
		if it.finished {
			return time.Time{}, false
		}
		it.buffer = it.buffer[:0]
		it.step()
	}
	t := it.buffer[0]
	it.buffer = it.buffer[1:]
	return t, true
}

// step generates the current period and advances to the next one.
func (it *ruleIterator) step() {
	r := it.r
	start, end := it.daySet()

	filtered := false
	it.days = it.days[:0]
	for i := start; i < end; i++ {
		if it.rejects(i) {
			filtered = true
			continue
		}
		it.days = append(it.days, i)
	}

	if len(r.bySetPos) > 0 && len(it.timeset) > 0 {
		var picks []time.Time
		n := len(it.timeset)
		for _, pos := range r.bySetPos {
			var dayPos, timePos int
			if pos < 0 {
				dayPos, timePos = pydivmod(pos, n)
			} else {
				dayPos, timePos = pydivmod(pos-1, n)
			}
			if dayPos < 0 {
				dayPos += len(it.days)
			}
			if dayPos < 0 || dayPos >= len(it.days) {
				continue
			}
			t := it.combine(it.days[dayPos], it.timeset[timePos])
			if !slices.ContainsFunc(picks, t.Equal) {
				picks = append(picks, t)
			}
		}
		slices.SortFunc(picks, func(a, b time.Time) int { return a.Compare(b) })
		for _, t := range picks {
			if !it.emit(t) {
				return
			}
		}
	} else {
		for _, i := range it.days {
			for _, c := range it.timeset {
				if !it.emit(it.combine(i, c)) {
					return
				}
			}
		}
	}

	it.advance(filtered)
}

// daySet returns the half-open range of day offsets the current period covers.
func (it *ruleIterator) daySet() (int, int) {
	ci := it.ci
	switch it.r.freq {
	case YEARLY:
		return 0, ci.yearLen
	case MONTHLY:
		return ci.mrange[it.month-1], ci.mrange[it.month]
	case WEEKLY:
		i := ci.offset(it.year, it.month, it.day)
		start := i
		for j := 0; j < 7; j++ {
			i++
			if ci.wdaymask[i] == it.r.weekStart {
				break
			}
		}
		return start, i
	default:
		i := ci.offset(it.year, it.month, it.day)
		return i, i + 1
	}
}

// rejects reports whether day offset i fails any configured day filter.
func (it *ruleIterator) rejects(i int) bool {
	r, ci := it.r, it.ci
	switch {
	case len(r.byMonth) > 0 && !slices.Contains(r.byMonth, ci.mmask[i]):
		return true
	case ci.wnomask != nil && !ci.wnomask[i]:
		return true
	case len(r.byWeekday) > 0 && !slices.Contains(r.byWeekday, ci.wdaymask[i]):
		return true
	case ci.nwdaymask != nil && !ci.nwdaymask[i]:
		return true
	case ci.eastermask != nil && !ci.eastermask[i]:
		return true
	case (len(r.byMonthDay) > 0 || len(r.byNMonthDay) > 0) &&
		!slices.Contains(r.byMonthDay, ci.mdaymask[i]) && !slices.Contains(r.byNMonthDay, ci.nmdaymask[i]):
		return true
	case len(r.byYearDay) > 0:
		if i < ci.yearLen {
			return !slices.Contains(r.byYearDay, i+1) && !slices.Contains(r.byYearDay, i-ci.yearLen)
		}
		return !slices.Contains(r.byYearDay, i+1-ci.yearLen) && !slices.Contains(r.byYearDay, i-ci.yearLen-ci.nextYearLen)
	}
	return false
}

func (it *ruleIterator) combine(offset int, c clock) time.Time {
	y, m, d := it.ci.date(offset)
	return time.Date(y, m, d, c.hour, c.minute, c.second, 0, it.r.dtstart.Location())
}

// emit buffers t if it qualifies and reports whether generation may go on.
func (it *ruleIterator) emit(t time.Time) bool {
	r := it.r
	if !r.until.IsZero() && t.After(r.until) {
		it.finished = true
		return false
	}
	if t.Before(r.dtstart) {
		return true
	}
	// A wall clock inside a DST gap resolves to an instant that may already
	// have been emitted.
	if !it.last.IsZero() && !t.After(it.last) {
		return true
	}
	it.last = t
	it.buffer = append(it.buffer, t)
	if r.count > 0 {
		it.remaining--
		if it.remaining <= 0 {
			it.finished = true
			return false
		}
	}
	return true
}

// subDailyTimeset is the time list of one HOURLY, MINUTELY or SECONDLY period.
func (it *ruleIterator) subDailyTimeset() []clock {
	r := it.r
	switch r.freq {
	case HOURLY:
		return buildTimeset([]int{it.hour}, r.byMinute, r.bySecond)
	case MINUTELY:
		return buildTimeset([]int{it.hour}, []int{it.minute}, r.bySecond)
	default:
		return []clock{{it.hour, it.minute, it.second}}
	}
}

// cycleLength is the number of steps after which stepping a unit with
// period base by the rule interval repeats itself.
func (it *ruleIterator) cycleLength(base int) int {
	a, b := it.r.interval, base
	for b != 0 {
		a, b = b, a%b
	}
	return base / a
}

// advance moves to the next period and stops generation once that period
// starts after UNTIL.
func (it *ruleIterator) advance(filtered bool) {
	it.nextPeriod(filtered)
	if !it.finished && !it.r.until.IsZero() && it.periodStart().After(it.r.until) {
		it.finished = true
	}
}

// periodStart is the earliest instant the current period can produce.
func (it *ruleIterator) periodStart() time.Time {
	loc := it.r.dtstart.Location()
	switch it.r.freq {
	case YEARLY:
		return time.Date(it.year, time.January, 1, 0, 0, 0, 0, loc)
	case MONTHLY:
		return time.Date(it.year, time.Month(it.month), 1, 0, 0, 0, 0, loc)
	case WEEKLY, DAILY:
		return time.Date(it.year, time.Month(it.month), it.day, 0, 0, 0, 0, loc)
	case HOURLY:
		return time.Date(it.year, time.Month(it.month), it.day, it.hour, 0, 0, 0, loc)
	case MINUTELY:
		return time.Date(it.year, time.Month(it.month), it.day, it.hour, it.minute, 0, 0, loc)
	default:
		return time.Date(it.year, time.Month(it.month), it.day, it.hour, it.minute, it.second, 0, loc)
	}
}

// nextPeriod moves to the next period, rolling days over month and year ends.
func (it *ruleIterator) nextPeriod(filtered bool) {
	r, ci := it.r, it.ci
	fixDay := false

	switch r.freq {
	case YEARLY:
		it.year += r.interval
		if it.year > maxYear {
			it.finished = true
			return
		}
		ci.rebuild(it.year, it.month)

	case MONTHLY:
		it.month += r.interval
		if it.month > 12 {
			div, mod := pydivmod(it.month, 12)
			it.month = mod
			it.year += div
			if it.month == 0 {
				it.month = 12
				it.year--
			}
		}
		if it.year > maxYear {
			it.finished = true
			return
		}
		ci.rebuild(it.year, it.month)

	case WEEKLY:
		if r.weekStart > it.weekday {
			it.day += -(it.weekday + 1 + (6 - r.weekStart)) + r.interval*7
		} else {
			it.day += -(it.weekday - r.weekStart) + r.interval*7
		}
		it.weekday = r.weekStart
		fixDay = true

	case DAILY:
		it.day += r.interval
		fixDay = true

	case HOURLY:
		if filtered {
			// jump to the last step of the current day
			it.hour += ((23 - it.hour) / r.interval) * r.interval
		}
		found := false
		for j := 0; j < it.cycleLength(24); j++ {
			it.hour += r.interval
			if div, mod := pydivmod(it.hour, 24); div != 0 {
				it.hour = mod
				it.day += div
				fixDay = true
			}
			if len(r.byHour) == 0 || slices.Contains(r.byHour, it.hour) {
				found = true
				break
			}
		}
		if !found {
			it.finished = true
			return
		}
		it.timeset = it.subDailyTimeset()

	case MINUTELY:
		if filtered {
			it.minute += ((1439 - (it.hour*60 + it.minute)) / r.interval) * r.interval
		}
		found := false
		for j := 0; j < it.cycleLength(24*60); j++ {
			it.minute += r.interval
			if div, mod := pydivmod(it.minute, 60); div != 0 {
				it.minute = mod
				it.hour += div
				if div, mod := pydivmod(it.hour, 24); div != 0 {
					it.hour = mod
					it.day += div
					fixDay = true
				}
			}
			if (len(r.byHour) == 0 || slices.Contains(r.byHour, it.hour)) &&
				(len(r.byMinute) == 0 || slices.Contains(r.byMinute, it.minute)) {
				found = true
				break
			}
		}
		if !found {
			it.finished = true
			return
		}
		it.timeset = it.subDailyTimeset()

	case SECONDLY:
		if filtered {
			it.second += ((86399 - (it.hour*3600 + it.minute*60 + it.second)) / r.interval) * r.interval
		}
		found := false
		for j := 0; j < it.cycleLength(24*60*60); j++ {
			it.second += r.interval
			if div, mod := pydivmod(it.second, 60); div != 0 {
				it.second = mod
				it.minute += div
				if div, mod := pydivmod(it.minute, 60); div != 0 {
					it.minute = mod
					it.hour += div
					if div, mod := pydivmod(it.hour, 24); div != 0 {
						it.hour = mod
						it.day += div
						fixDay = true
					}
				}
			}
			if (len(r.byHour) == 0 || slices.Contains(r.byHour, it.hour)) &&
				(len(r.byMinute) == 0 || slices.Contains(r.byMinute, it.minute)) &&
				(len(r.bySecond) == 0 || slices.Contains(r.bySecond, it.second)) {
				found = true
				break
			}
		}
		if !found {
			it.finished = true
			return
		}
		it.timeset = it.subDailyTimeset()
	}

	if fixDay && it.day > 28 {
		dim := daysInMonth(it.year, it.month)
		if it.day <= dim {
			return
		}
		for it.day > dim {
			it.day -= dim
			it.month++
			if it.month == 13 {
				it.month = 1
				it.year++
				if it.year > maxYear {
					it.finished = true
					return
				}
			}
			dim = daysInMonth(it.year, it.month)
		}
		ci.rebuild(it.year, it.month)
	}
}
