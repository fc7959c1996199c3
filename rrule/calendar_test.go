package rrule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPyMod(t *testing.T) {
	tests := []struct {
		a, b     int
		div, mod int
	}{
		{7, 3, 2, 1},
		{-7, 3, -3, 2},
		{7, -3, -3, -2},
		{-7, -3, 2, -1},
		{6, 3, 2, 0},
		{-6, 3, -2, 0},
	}
	for _, tt := range tests {
		div, mod := pydivmod(tt.a, tt.b)
		assert.Equal(t, tt.div, div, "%d divmod %d", tt.a, tt.b)
		assert.Equal(t, tt.mod, mod, "%d divmod %d", tt.a, tt.b)
		assert.Equal(t, tt.mod, pymod(tt.a, tt.b))
	}
}

func TestMonthMasks(t *testing.T) {
	assert.Len(t, m365Mask, 365+7)
	assert.Len(t, m366Mask, 366+7)
	assert.Len(t, nmDay366Mask, 366+7)

	// 29 February in a leap year
	assert.Equal(t, 2, m366Mask[59])
	assert.Equal(t, 29, mDay366Mask[59])
	assert.Equal(t, -1, nmDay366Mask[59])
	// 1 March in a common year
	assert.Equal(t, 3, m365Mask[59])
	assert.Equal(t, 1, mDay365Mask[59])
	assert.Equal(t, -31, nmDay365Mask[59])

	for i, end := range m366Range[1:] {
		assert.Equal(t, i+1, m366Mask[end-1], "last day of month %d", i+1)
	}
}

func newTestInfo(t *testing.T, opts RuleOptions, year, month int) *calendarInfo {
	t.Helper()
	opts.DTStart = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	r, err := NewRule(opts)
	require.NoError(t, err)
	ci := newCalendarInfo(r)
	ci.rebuild(year, month)
	return ci
}

func markedDates(ci *calendarInfo, mask []bool) []string {
	var out []string
	for i, marked := range mask {
		if marked {
			y, m, d := ci.date(i)
			out = append(out, time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Format(time.DateOnly))
		}
	}
	return out
}

func TestWeekNoMask(t *testing.T) {
	tests := []struct {
		name     string
		year     int
		weekNo   []int
		weekday  Weekday
		expected []string
	}{
		{
			// 1998-01-01 is a Thursday, so week 1 starts on 1997-12-29
			name:     "week 1 starting in the previous year",
			year:     1998,
			weekNo:   []int{1},
			weekday:  MO,
			expected: []string{"1998-01-01", "1998-01-02", "1998-01-03", "1998-01-04"},
		},
		{
			// 1999-01-01 is a Friday: the leading days belong to week 53 of 1998
			name:     "leading partial week is the last week of last year",
			year:     1999,
			weekNo:   []int{53},
			weekday:  MO,
			expected: []string{"1999-01-01", "1999-01-02", "1999-01-03"},
		},
		{
			name:     "week 1 of next year at the end of this one",
			year:     1997,
			weekNo:   []int{1},
			weekday:  MO,
			expected: []string{"1997-01-01", "1997-01-02", "1997-01-03", "1997-01-04", "1997-01-05", "1997-12-29", "1997-12-30", "1997-12-31", "1998-01-01", "1998-01-02", "1998-01-03", "1998-01-04"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ci := newTestInfo(t, RuleOptions{Freq: YEARLY, ByWeekNo: tt.weekNo, WeekStart: tt.weekday}, tt.year, 1)
			assert.Equal(t, tt.expected, markedDates(ci, ci.wnomask))
		})
	}
}

func TestNthWeekdayMask(t *testing.T) {
	t.Run("monthly span", func(t *testing.T) {
		ci := newTestInfo(t, RuleOptions{Freq: MONTHLY, ByWeekday: []Weekday{TU.Nth(1), TH.Nth(-1)}}, 1997, 9)
		assert.Equal(t, []string{"1997-09-02", "1997-09-25"}, markedDates(ci, ci.nwdaymask))

		ci.rebuild(1997, 10)
		assert.Equal(t, []string{"1997-10-07", "1997-10-30"}, markedDates(ci, ci.nwdaymask))
	})

	t.Run("yearly span", func(t *testing.T) {
		ci := newTestInfo(t, RuleOptions{Freq: YEARLY, ByWeekday: []Weekday{MO.Nth(1), MO.Nth(-1)}}, 2024, 1)
		assert.Equal(t, []string{"2024-01-01", "2024-12-30"}, markedDates(ci, ci.nwdaymask))
	})

	t.Run("yearly span per month", func(t *testing.T) {
		ci := newTestInfo(t, RuleOptions{Freq: YEARLY, ByMonth: []int{2}, ByWeekday: []Weekday{FR.Nth(5)}}, 2024, 1)
		assert.Equal(t, []string(nil), markedDates(ci, ci.nwdaymask))
	})
}

func TestEasterMask(t *testing.T) {
	ci := newTestInfo(t, RuleOptions{Freq: YEARLY, ByEaster: []int{-2, 0, 1}}, 2024, 1)
	assert.Equal(t, []string{"2024-03-29", "2024-03-31", "2024-04-01"}, markedDates(ci, ci.eastermask))
}
