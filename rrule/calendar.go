package rrule

import (
	"math"
	"slices"
	"time"

	"github.com/cyp0633/librrule/internal/easter"
)

// Per-day lookup tables over an extended year: every day of a leap or common
// year followed by the first seven days of the next January, so a weekly
// window starting late in December can be classified without switching years.
var (
	m365Mask, m366Mask         []int // month, 1..12
	mDay365Mask, mDay366Mask   []int // day of month, 1..31
	nmDay365Mask, nmDay366Mask []int // day of month from the end, -31..-1
	wdayMask                   []int // weekday, 0..6 repeated

	m365Range = []int{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334, 365}
	m366Range = []int{0, 31, 60, 91, 121, 152, 182, 213, 244, 274, 305, 335, 366}
)

func init() {
	m365Mask, mDay365Mask, nmDay365Mask = buildMonthMasks(false)
	m366Mask, mDay366Mask, nmDay366Mask = buildMonthMasks(true)
	wdayMask = make([]int, 0, 7*55)
	for i := 0; i < 55; i++ {
		wdayMask = append(wdayMask, 0, 1, 2, 3, 4, 5, 6)
	}
}

func buildMonthMasks(leap bool) (months, days, negDays []int) {
	lengths := []int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
	if leap {
		lengths[1] = 29
	}
	for m, n := range lengths {
		for d := 1; d <= n; d++ {
			months = append(months, m+1)
			days = append(days, d)
			negDays = append(negDays, d-n-1)
		}
	}
	for d := 1; d <= 7; d++ {
		months = append(months, 1)
		days = append(days, d)
		negDays = append(negDays, d-32)
	}
	return months, days, negDays
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func yearLength(year int) int {
	if isLeap(year) {
		return 366
	}
	return 365
}

func daysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// isoWeekday maps time.Weekday (Sunday=0) onto Monday=0..Sunday=6.
func isoWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// pymod is the modulo with the sign of the divisor.
func pymod(a, b int) int {
	r := a % b
	if r != 0 && (r < 0) != (b < 0) {
		r += b
	}
	return r
}

// pydivmod is floor division and pymod in one.
func pydivmod(a, b int) (int, int) {
	q := a / b
	r := a % b
	if r != 0 && (r < 0) != (b < 0) {
		q--
		r += b
	}
	return q, r
}

// calendarInfo classifies every day of one extended year for one rule.
// It is rebuilt only when the year, or for nth-weekday masks the month,
// actually changes.
type calendarInfo struct {
	rule *Rule

	lastYear  int
	lastMonth int

	year        int
	yearLen     int
	nextYearLen int
	yearWeekday int

	mmask     []int
	mdaymask  []int
	nmdaymask []int
	wdaymask  []int
	mrange    []int

	wnomask    []bool // nil unless ByWeekNo is set
	nwdaymask  []bool // nil unless nth weekdays apply to this period
	eastermask []bool // nil unless ByEaster is set
}

func newCalendarInfo(r *Rule) *calendarInfo {
	return &calendarInfo{rule: r, lastYear: math.MinInt, lastMonth: math.MinInt}
}

// date returns the calendar date of a day offset in the current extended year.
func (ci *calendarInfo) date(offset int) (year int, month time.Month, day int) {
	return time.Date(ci.year, time.January, 1+offset, 0, 0, 0, 0, time.UTC).Date()
}

// offset returns the day offset of a date that lies in the current year.
func (ci *calendarInfo) offset(year, month, day int) int {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC).YearDay() - 1
}

func (ci *calendarInfo) rebuild(year, month int) {
	r := ci.rule

	if year != ci.lastYear {
		ci.year = year
		ci.yearLen = yearLength(year)
		ci.nextYearLen = yearLength(year + 1)
		ci.yearWeekday = isoWeekday(time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC))

		if ci.yearLen == 365 {
			ci.mmask, ci.mdaymask, ci.nmdaymask, ci.mrange = m365Mask, mDay365Mask, nmDay365Mask, m365Range
		} else {
			ci.mmask, ci.mdaymask, ci.nmdaymask, ci.mrange = m366Mask, mDay366Mask, nmDay366Mask, m366Range
		}
		ci.wdaymask = wdayMask[ci.yearWeekday:]

		if len(r.byWeekNo) == 0 {
			ci.wnomask = nil
		} else {
			ci.buildWeekNoMask(year)
		}

		if len(r.byEaster) == 0 {
			ci.eastermask = nil
		} else {
			ci.eastermask = make([]bool, ci.yearLen+7)
			eyday := easter.YearDay(year)
			for _, offset := range r.byEaster {
				if i := eyday + offset; i >= 0 && i < len(ci.eastermask) {
					ci.eastermask[i] = true
				}
			}
		}
	}

	if len(r.byNWeekday) > 0 && (month != ci.lastMonth || year != ci.lastYear) {
		ci.buildNthWeekdayMask(month)
	}

	ci.lastYear = year
	ci.lastMonth = month
}

// buildWeekNoMask marks the days belonging to the requested week numbers.
// Week 1 is the first week with at least four days in the year; otherwise
// the partial first week belongs to the last week of the previous year.
func (ci *calendarInfo) buildWeekNoMask(year int) {
	r := ci.rule
	ci.wnomask = make([]bool, ci.yearLen+7)

	firstWkst := pymod(7-ci.yearWeekday+r.weekStart, 7)
	no1Wkst := firstWkst
	var wyearLen int
	if no1Wkst >= 4 {
		no1Wkst = 0
		// The days before the first week start belong to week 1.
		wyearLen = ci.yearLen + pymod(ci.yearWeekday-r.weekStart, 7)
	} else {
		wyearLen = ci.yearLen - no1Wkst
	}
	div, mod := pydivmod(wyearLen, 7)
	numWeeks := div + mod/4

	markWeek := func(i int) {
		for j := 0; j < 7 && i < len(ci.wnomask); j++ {
			ci.wnomask[i] = true
			i++
			if ci.wdaymask[i] == r.weekStart {
				break
			}
		}
	}

	for _, n := range r.byWeekNo {
		if n < 0 {
			n += numWeeks + 1
		}
		if n <= 0 || n > numWeeks {
			continue
		}
		i := no1Wkst
		if n > 1 {
			i = no1Wkst + (n-1)*7
			if no1Wkst != firstWkst {
				i -= 7 - firstWkst
			}
		}
		markWeek(i)
	}

	if slices.Contains(r.byWeekNo, 1) {
		// Week 1 of next year may start in the last days of this one.
		i := no1Wkst + numWeeks*7
		if no1Wkst != firstWkst {
			i -= 7 - firstWkst
		}
		if i < ci.yearLen {
			markWeek(i)
		}
	}

	if no1Wkst != 0 {
		// The leading partial week belongs to the last week of last year.
		lnumWeeks := -1
		if !slices.Contains(r.byWeekNo, -1) {
			lyearWeekday := isoWeekday(time.Date(year-1, time.January, 1, 0, 0, 0, 0, time.UTC))
			lno1Wkst := pymod(7-lyearWeekday+r.weekStart, 7)
			lyearLen := yearLength(year - 1)
			if lno1Wkst >= 4 {
				lnumWeeks = 52 + pymod(lyearLen+pymod(lyearWeekday-r.weekStart, 7), 7)/4
			} else {
				lnumWeeks = 52 + pymod(ci.yearLen-no1Wkst, 7)/4
			}
		}
		if slices.Contains(r.byWeekNo, lnumWeeks) {
			for i := 0; i < no1Wkst; i++ {
				ci.wnomask[i] = true
			}
		}
	}
}

// buildNthWeekdayMask marks the n-th weekdays within each applicable span:
// the whole year or each ByMonth month for YEARLY rules, the current month
// for MONTHLY rules. Other frequencies never carry nth weekdays.
func (ci *calendarInfo) buildNthWeekdayMask(month int) {
	r := ci.rule

	var ranges [][2]int
	switch r.freq {
	case YEARLY:
		if len(r.byMonth) > 0 {
			for _, m := range r.byMonth {
				ranges = append(ranges, [2]int{ci.mrange[m-1], ci.mrange[m]})
			}
		} else {
			ranges = [][2]int{{0, ci.yearLen}}
		}
	case MONTHLY:
		ranges = [][2]int{{ci.mrange[month-1], ci.mrange[month]}}
	}

	if len(ranges) == 0 {
		ci.nwdaymask = nil
		return
	}

	ci.nwdaymask = make([]bool, ci.yearLen+7)
	for _, span := range ranges {
		first, last := span[0], span[1]-1
		for _, wd := range r.byNWeekday {
			var i int
			if wd.n < 0 {
				i = last + (wd.n+1)*7
				if i < 0 || i >= len(ci.wdaymask) {
					continue
				}
				i -= pymod(ci.wdaymask[i]-wd.day, 7)
			} else {
				i = first + (wd.n-1)*7
				if i >= len(ci.wdaymask) {
					continue
				}
				i += pymod(7-ci.wdaymask[i]+wd.day, 7)
			}
			if first <= i && i <= last {
				ci.nwdaymask[i] = true
			}
		}
	}
}
