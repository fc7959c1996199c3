package rrule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueries(t *testing.T) {
	daily := mustRule(t, RuleOptions{Freq: DAILY})
	bounded := mustRule(t, RuleOptions{Freq: DAILY, Count: 5})

	t.Run("before", func(t *testing.T) {
		got, ok := daily.Before(at9(1997, 9, 5), false).Get()
		require.True(t, ok)
		assert.Equal(t, at9(1997, 9, 4), got)

		got, ok = daily.Before(at9(1997, 9, 5), true).Get()
		require.True(t, ok)
		assert.Equal(t, at9(1997, 9, 5), got)

		assert.True(t, daily.Before(start, false).IsAbsent())
	})

	t.Run("after", func(t *testing.T) {
		got, ok := daily.After(at9(1997, 9, 4), false).Get()
		require.True(t, ok)
		assert.Equal(t, at9(1997, 9, 5), got)

		got, ok = daily.After(at9(1997, 9, 4), true).Get()
		require.True(t, ok)
		assert.Equal(t, at9(1997, 9, 4), got)

		assert.True(t, bounded.After(at9(1997, 9, 6), false).IsAbsent())
	})

	t.Run("between", func(t *testing.T) {
		assert.Equal(t,
			[]time.Time{at9(1997, 9, 3), at9(1997, 9, 4), at9(1997, 9, 5)},
			daily.Between(at9(1997, 9, 2), at9(1997, 9, 6), false))
		assert.Equal(t,
			[]time.Time{at9(1997, 9, 2), at9(1997, 9, 3), at9(1997, 9, 4), at9(1997, 9, 5), at9(1997, 9, 6)},
			daily.Between(at9(1997, 9, 2), at9(1997, 9, 6), true))
		assert.Empty(t, daily.Between(at9(1997, 9, 6), at9(1997, 9, 2), true))
	})

	t.Run("contains", func(t *testing.T) {
		assert.True(t, daily.Contains(at9(1997, 9, 20)))
		assert.False(t, daily.Contains(dt(1997, 9, 20, 9, 0, 1)))
		assert.False(t, bounded.Contains(at9(1997, 9, 20)))
	})

	t.Run("nth", func(t *testing.T) {
		got, ok := daily.Nth(10).Get()
		require.True(t, ok)
		assert.Equal(t, at9(1997, 9, 12), got)

		got, ok = bounded.Nth(-1).Get()
		require.True(t, ok)
		assert.Equal(t, at9(1997, 9, 6), got)

		assert.True(t, bounded.Nth(5).IsAbsent())
		assert.True(t, bounded.Nth(-6).IsAbsent())
	})

	t.Run("slice", func(t *testing.T) {
		assert.Equal(t, []time.Time{at9(1997, 9, 4), at9(1997, 9, 5)}, Slice(daily, 2, 4))
		assert.Equal(t, []time.Time{at9(1997, 9, 5), at9(1997, 9, 6)}, Slice(bounded, -2, 5))
		assert.Empty(t, Slice(bounded, 4, 2))
	})

	t.Run("count", func(t *testing.T) {
		assert.Equal(t, 5, bounded.Count())
		assert.Equal(t, 5, bounded.Count())
		assert.Equal(t, 5, Count(bounded))
	})

	t.Run("seq stops early", func(t *testing.T) {
		n := 0
		for occ := range Seq(daily) {
			n++
			if occ.Equal(at9(1997, 9, 4)) {
				break
			}
		}
		assert.Equal(t, 3, n)
	})
}
