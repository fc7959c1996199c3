package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const weekly = `DTSTART:19970902T090000Z\nRRULE:FREQ=WEEKLY;COUNT=4;BYDAY=TU,TH`

func run(t *testing.T, fn func(*cobra.Command, []string) error, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	err := fn(cmd, args)
	return out.String(), err
}

func TestExpandCmd(t *testing.T) {
	reset := func() {
		expandLimit, expandAfter, expandBefore, expandWindow = 100, "", "", ""
	}

	tests := []struct {
		name  string
		setup func()
		want  []string
	}{
		{
			name: "all",
			want: []string{"1997-09-02T09:00:00Z", "1997-09-04T09:00:00Z", "1997-09-09T09:00:00Z", "1997-09-11T09:00:00Z"},
		},
		{
			name:  "limit",
			setup: func() { expandLimit = 2 },
			want:  []string{"1997-09-02T09:00:00Z", "1997-09-04T09:00:00Z"},
		},
		{
			name:  "after and before",
			setup: func() { expandAfter, expandBefore = "19970903T000000Z", "1997-09-09T09:00:00Z" },
			want:  []string{"1997-09-04T09:00:00Z", "1997-09-09T09:00:00Z"},
		},
		{
			name:  "window from first occurrence",
			setup: func() { expandWindow = "3d" },
			want:  []string{"1997-09-02T09:00:00Z", "1997-09-04T09:00:00Z"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reset()
			defer reset()
			if tt.setup != nil {
				tt.setup()
			}
			out, err := run(t, runExpand, weekly)
			require.NoError(t, err)
			assert.Equal(t, tt.want, strings.Fields(out))
		})
	}
}

func TestExpandCmdErrors(t *testing.T) {
	defer func() { expandBefore, expandWindow = "", "" }()

	_, err := run(t, runExpand, "RRULE:FREQ=SOMETIMES")
	assert.Error(t, err)

	expandBefore, expandWindow = "19971001T000000Z", "1w"
	_, err = run(t, runExpand, weekly)
	assert.Error(t, err)
}

func TestQueryCmd(t *testing.T) {
	reset := func() { queryBefore, queryAfter, queryContains, queryInclusive = "", "", "", false }
	defer reset()

	reset()
	queryAfter = "19970904T090000Z"
	out, err := run(t, runQuery, weekly)
	require.NoError(t, err)
	assert.Equal(t, "1997-09-09T09:00:00Z\n", out)

	queryInclusive = true
	out, err = run(t, runQuery, weekly)
	require.NoError(t, err)
	assert.Equal(t, "1997-09-04T09:00:00Z\n", out)

	reset()
	queryBefore = "19970902T090000Z"
	_, err = run(t, runQuery, weekly)
	assert.ErrorIs(t, err, errNoOccurrence)

	reset()
	queryContains = "1997-09-11T09:00:00Z"
	out, err = run(t, runQuery, weekly)
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)
}

func TestValidateCmd(t *testing.T) {
	out, err := run(t, runValidate, `DTSTART:19970902T090000Z\nRRULE:FREQ=DAILY;COUNT=3`)
	require.NoError(t, err)
	assert.Equal(t, "DTSTART:19970902T090000Z\nRRULE:FREQ=DAILY;COUNT=3\n", out)

	stdin = strings.NewReader("DTSTART:19970902T090000Z\nRRULE:FREQ=DAILY;COUNT=3\nEXDATE:19970903T090000Z\n")
	defer func() { stdin = os.Stdin }()
	out, err = run(t, runValidate, "-")
	require.NoError(t, err)
	assert.Contains(t, out, "EXDATE:19970903T090000Z")
}

func TestXCalCmd(t *testing.T) {
	out, err := run(t, runXCal, weekly)
	require.NoError(t, err)
	assert.Contains(t, out, `<?xml version="1.0" encoding="UTF-8"?>`)
	assert.Contains(t, out, "<freq>WEEKLY</freq>")
	assert.Contains(t, out, "<date-time>1997-09-02T09:00:00Z</date-time>")
}

func TestICSCmd(t *testing.T) {
	defer func() { icsStart, icsEnd, icsConfig = "", "", "" }()

	dir := t.TempDir()
	ics := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//librrule//test//EN",
		"BEGIN:VEVENT",
		"UID:weekly",
		"DTSTAMP:20240101T000000Z",
		"DTSTART:20240101T090000Z",
		"DTEND:20240101T100000Z",
		"RRULE:FREQ=WEEKLY;COUNT=10",
		"SUMMARY:Planning",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")
	icsPath := filepath.Join(dir, "cal.ics")
	require.NoError(t, os.WriteFile(icsPath, []byte(ics), 0o644))
	configPath := filepath.Join(dir, "engine.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("preset: low-memory\nexpansion:\n  max_occurrences: 2\n"), 0o644))

	icsStart, icsEnd, icsConfig = "2024-01-01", "2024-02-01", configPath
	out, err := run(t, runICS, icsPath)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "BEGIN:VEVENT"))
	assert.Contains(t, out, "RECURRENCE-ID:20240108T090000Z")
	assert.NotContains(t, out, "RRULE")

	icsConfig = filepath.Join(dir, "missing.yaml")
	_, err = run(t, runICS, icsPath)
	assert.Error(t, err)
}
