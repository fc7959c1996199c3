package timestamp

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	tests := []struct {
		name     string
		value    string
		params   Params
		loc      *time.Location
		expected time.Time
	}{
		{
			name:     "UTC date-time",
			value:    "19970902T090000Z",
			expected: time.Date(1997, 9, 2, 9, 0, 0, 0, time.UTC),
		},
		{
			name:     "Floating date-time defaults to UTC",
			value:    "19970902T090000",
			expected: time.Date(1997, 9, 2, 9, 0, 0, 0, time.UTC),
		},
		{
			name:     "Floating date-time in given location",
			value:    "19970902T090000",
			loc:      ny,
			expected: time.Date(1997, 9, 2, 9, 0, 0, 0, ny),
		},
		{
			name:     "TZID wins over location",
			value:    "19970902T090000",
			params:   Params{TZID: "America/New_York"},
			loc:      time.UTC,
			expected: time.Date(1997, 9, 2, 9, 0, 0, 0, ny),
		},
		{
			name:     "DATE value",
			value:    "19970902",
			params:   Params{DateOnly: true},
			expected: time.Date(1997, 9, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "Bare date without VALUE parameter",
			value:    "19970902",
			expected: time.Date(1997, 9, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "RFC 3339",
			value:    "1997-09-02T09:00:00Z",
			expected: time.Date(1997, 9, 2, 9, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.value, tt.params, tt.loc)
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(got), "expected %v, got %v", tt.expected, got)
			assert.Equal(t, tt.expected.Location().String(), got.Location().String())
		})
	}
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("1997-13-45", Params{}, nil)
	assert.True(t, errors.Is(err, ErrInvalidTimestamp))

	_, err = Parse("19970902T090000", Params{TZID: "Mars/Olympus_Mons"}, nil)
	assert.True(t, errors.Is(err, ErrUnknownZone))

	_, err = Parse("19970902T090000Z", Params{DateOnly: true}, nil)
	assert.True(t, errors.Is(err, ErrInvalidTimestamp))
}

func TestParseList(t *testing.T) {
	got, err := ParseList("19970904T090000Z, 19970911T090000Z,,", Params{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		time.Date(1997, 9, 4, 9, 0, 0, 0, time.UTC),
		time.Date(1997, 9, 11, 9, 0, 0, 0, time.UTC),
	}, got)

	_, err = ParseList("19970904T090000Z,garbage", Params{}, nil)
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	utc := time.Date(1997, 9, 2, 9, 0, 0, 0, time.UTC)
	local := time.Date(1997, 9, 2, 9, 0, 0, 0, ny)

	assert.Equal(t, "19970902T090000Z", Format(utc))
	assert.Equal(t, "19970902T090000", Format(local))
	assert.Equal(t, "19970902T130000Z", FormatUTC(local))
	assert.Equal(t, "19970902", FormatDate(local))
	assert.Equal(t, "America/New_York", TZID(local))
	assert.Equal(t, "", TZID(utc))
}

func TestParseParams(t *testing.T) {
	params, extra, err := ParseParams([]string{"TZID=Europe/Paris", "VALUE=DATE", "X-FOO=bar"})
	require.NoError(t, err)
	assert.Equal(t, Params{TZID: "Europe/Paris", DateOnly: true}, params)
	assert.Equal(t, map[string]string{"X-FOO": "bar"}, extra)

	_, _, err = ParseParams([]string{"VALUE=PERIOD"})
	assert.Error(t, err)

	_, _, err = ParseParams([]string{"TZID"})
	assert.Error(t, err)
}
