// Package timestamp converts between iCalendar DATE / DATE-TIME text and
// time.Time values.
package timestamp

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// LayoutUTC is a DATE-TIME in UTC form, e.g. 19970902T090000Z.
	LayoutUTC = "20060102T150405Z"
	// LayoutLocal is a floating or TZID-qualified DATE-TIME.
	LayoutLocal = "20060102T150405"
	// LayoutDate is a DATE value.
	LayoutDate = "20060102"
)

var (
	// ErrInvalidTimestamp is returned when a value matches no supported layout
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	// ErrUnknownZone is returned when a TZID cannot be resolved
	ErrUnknownZone = errors.New("unknown time zone")
)

// Params carries the property parameters that influence how a value is read.
type Params struct {
	TZID     string // TZID parameter, empty if absent
	DateOnly bool   // VALUE=DATE
}

// LoadLocation resolves a TZID. Empty and "UTC" map to time.UTC.
func LoadLocation(tzid string) (*time.Location, error) {
	switch strings.ToUpper(tzid) {
	case "", "UTC", "Z", "GMT":
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tzid)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownZone, tzid)
	}
	return loc, nil
}

// Parse reads one DATE or DATE-TIME value. Values ending in Z are UTC; other
// values are placed in the TZID zone if given, otherwise in loc (UTC when
// loc is nil). RFC 3339 text is accepted as well.
func Parse(value string, params Params, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if loc == nil {
		loc = time.UTC
	}
	if params.TZID != "" {
		zone, err := LoadLocation(params.TZID)
		if err != nil {
			return time.Time{}, err
		}
		loc = zone
	}

	if params.DateOnly {
		t, err := time.ParseInLocation(LayoutDate, value, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q is not a DATE", ErrInvalidTimestamp, value)
		}
		return t, nil
	}

	switch {
	case len(value) == len(LayoutUTC) && strings.HasSuffix(value, "Z"):
		if t, err := time.Parse(LayoutUTC, value); err == nil {
			return t, nil
		}
	case len(value) == len(LayoutLocal):
		if t, err := time.ParseInLocation(LayoutLocal, value, loc); err == nil {
			return t, nil
		}
	case len(value) == len(LayoutDate):
		if t, err := time.ParseInLocation(LayoutDate, value, loc); err == nil {
			return t, nil
		}
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", value, loc); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", value, loc); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, value)
}

// ParseList reads a comma separated list of values sharing the same params.
// Empty items are skipped.
func ParseList(value string, params Params, loc *time.Location) ([]time.Time, error) {
	var out []time.Time
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		t, err := Parse(item, params, loc)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Format writes t as DATE-TIME text: with a Z suffix for UTC, floating
// otherwise. The zone, if any, is expected to travel as a TZID parameter.
func Format(t time.Time) string {
	if t.Location() == time.UTC {
		return t.Format(LayoutUTC)
	}
	return t.Format(LayoutLocal)
}

// FormatUTC writes t converted to UTC.
func FormatUTC(t time.Time) string {
	return t.UTC().Format(LayoutUTC)
}

// FormatDate writes the DATE part of t.
func FormatDate(t time.Time) string {
	return t.Format(LayoutDate)
}

// TZID returns the TZID parameter value that should accompany Format(t),
// or "" for UTC and floating (Local) times.
func TZID(t time.Time) string {
	loc := t.Location()
	if loc == time.UTC || loc == time.Local {
		return ""
	}
	return loc.String()
}

// IsDateOnly reports whether t sits at midnight, the way DATE values are stored.
func IsDateOnly(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}

// ParseParams reads ";"-separated NAME=VALUE property parameters into Params.
// Parameters other than TZID and VALUE are returned in extra.
func ParseParams(parts []string) (params Params, extra map[string]string, err error) {
	for _, part := range parts {
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			return Params{}, nil, fmt.Errorf("%w: parameter %q has no value", ErrInvalidTimestamp, part)
		}
		value = strings.Trim(value, `"`)
		switch strings.ToUpper(name) {
		case "TZID":
			params.TZID = value
		case "VALUE":
			switch strings.ToUpper(value) {
			case "DATE":
				params.DateOnly = true
			case "DATE-TIME":
			default:
				return Params{}, nil, fmt.Errorf("%w: unsupported VALUE=%s", ErrInvalidTimestamp, value)
			}
		default:
			if extra == nil {
				extra = make(map[string]string)
			}
			extra[strings.ToUpper(name)] = value
		}
	}
	return params, extra, nil
}
