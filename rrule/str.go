package rrule

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/cyp0633/librrule/internal/timestamp"
)

// ParseOption tunes how rule text is read.
type ParseOption func(*parseConfig)

type parseConfig struct {
	dtstart    time.Time
	loc        *time.Location
	forceSet   bool
	compatible bool
}

// WithDTStart anchors rules whose text carries no DTSTART.
func WithDTStart(dt time.Time) ParseOption {
	return func(c *parseConfig) { c.dtstart = dt }
}

// WithLocation places floating timestamps (no Z, no TZID) in loc instead of UTC.
func WithLocation(loc *time.Location) ParseOption {
	return func(c *parseConfig) { c.loc = loc }
}

// ForceSet makes Parse return a *Set even for a single RRULE.
func ForceSet() ParseOption {
	return func(c *parseConfig) { c.forceSet = true }
}

// Compatible follows RFC 5545 where DTSTART is always the first occurrence:
// the result is a *Set that includes DTSTART as an inclusion instant.
func Compatible() ParseOption {
	return func(c *parseConfig) {
		c.forceSet = true
		c.compatible = true
	}
}

func newParseConfig(opts []ParseOption) parseConfig {
	cfg := parseConfig{loc: time.UTC}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.loc == nil {
		cfg.loc = time.UTC
	}
	return cfg
}

// ParseRuleOptions reads one RRULE value such as
// "FREQ=WEEKLY;COUNT=10;BYDAY=TU,TH". A leading "RRULE:" is accepted.
// Floating DTSTART and UNTIL values are read as UTC.
func ParseRuleOptions(value string) (RuleOptions, error) {
	return parseRuleValue(value, time.UTC)
}

func parseRuleValue(value string, loc *time.Location) (RuleOptions, error) {
	value = strings.TrimSpace(value)
	if len(value) >= 6 && strings.EqualFold(value[:6], "RRULE:") {
		value = value[6:]
	}

	var opts RuleOptions
	seen := make(map[string]bool)
	for _, part := range strings.Split(value, ";") {
		if part == "" {
			continue
		}
		key, val, ok := strings.Cut(part, "=")
		if !ok {
			return RuleOptions{}, fmt.Errorf("%w: %q is not KEY=VALUE", ErrMalformedText, part)
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		val = strings.TrimSpace(val)
		if strings.HasPrefix(key, "X-") {
			slog.Debug("ignoring experimental rule part", "key", key)
			continue
		}
		if seen[key] {
			return RuleOptions{}, fmt.Errorf("%w: %s given twice", ErrMalformedText, key)
		}
		seen[key] = true

		var err error
		switch key {
		case "FREQ":
			opts.Freq, err = ParseFrequency(strings.ToUpper(val))
		case "DTSTART":
			opts.DTStart, err = timestamp.Parse(val, timestamp.Params{}, loc)
		case "INTERVAL":
			opts.Interval, err = parsePositive(val)
		case "COUNT":
			opts.Count, err = parsePositive(val)
		case "UNTIL":
			opts.Until, err = timestamp.Parse(val, timestamp.Params{}, loc)
		case "WKST":
			var wd Weekday
			wd, err = ParseWeekday(strings.ToUpper(val))
			if err == nil && wd.n != 0 {
				err = fmt.Errorf("WKST takes no ordinal")
			}
			opts.WeekStart = Weekday{day: wd.day}
		case "BYSETPOS":
			opts.BySetPos, err = parseInts(val)
		case "BYMONTH":
			opts.ByMonth, err = parseInts(val)
		case "BYMONTHDAY":
			opts.ByMonthDay, err = parseInts(val)
		case "BYYEARDAY":
			opts.ByYearDay, err = parseInts(val)
		case "BYWEEKNO":
			opts.ByWeekNo, err = parseInts(val)
		case "BYDAY", "BYWEEKDAY":
			opts.ByWeekday, err = parseWeekdays(strings.ToUpper(val))
		case "BYHOUR":
			opts.ByHour, err = parseInts(val)
		case "BYMINUTE":
			opts.ByMinute, err = parseInts(val)
		case "BYSECOND":
			opts.BySecond, err = parseInts(val)
		case "BYEASTER":
			opts.ByEaster, err = parseInts(val)
		default:
			return RuleOptions{}, fmt.Errorf("%w: unknown rule part %q", ErrMalformedText, key)
		}
		if err != nil {
			return RuleOptions{}, fmt.Errorf("%w: %s=%s: %w", ErrMalformedText, key, val, err)
		}
	}

	if !seen["FREQ"] {
		return RuleOptions{}, fmt.Errorf("%w: FREQ is required", ErrMalformedText)
	}
	return opts, nil
}

func parsePositive(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive")
	}
	return n, nil
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, item := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(item))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func parseWeekdays(s string) ([]Weekday, error) {
	var out []Weekday
	for _, item := range strings.Split(s, ",") {
		wd, err := ParseWeekday(strings.TrimSpace(item))
		if err != nil {
			return nil, err
		}
		out = append(out, wd)
	}
	return out, nil
}

// unfold joins continuation lines (starting with a space or a tab) to the
// line before them and drops blank lines.
func unfold(s string) []string {
	var lines []string
	for _, line := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") {
		if len(lines) > 0 && (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) {
			lines[len(lines)-1] += strings.TrimRight(line[1:], " \t")
			continue
		}
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// Parse reads rule text. A lone RRULE (optionally with a DTSTART) yields a
// *Rule; any RDATE, EXDATE, EXRULE or further RRULE line yields a *Set.
// Any error aborts the whole parse.
func Parse(s string, opts ...ParseOption) (Source, error) {
	cfg := newParseConfig(opts)
	lines := unfold(s)
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: empty rule text", ErrMalformedText)
	}

	dtstart := cfg.dtstart
	var rruleVals, exruleVals []string
	var rdates, exdates []time.Time

	// DTSTART decides the zone of floating values, so read it first.
	for _, line := range lines {
		name, value, params, err := splitLine(line)
		if err != nil {
			return nil, err
		}
		if name != "DTSTART" {
			continue
		}
		p, err := dateParams(name, params)
		if err != nil {
			return nil, err
		}
		dtstart, err = timestamp.Parse(value, p, cfg.loc)
		if err != nil {
			return nil, fmt.Errorf("%w: DTSTART: %w", ErrMalformedText, err)
		}
	}

	loc := cfg.loc
	if !dtstart.IsZero() {
		loc = dtstart.Location()
	}

	for _, line := range lines {
		name, value, params, _ := splitLine(line)
		switch name {
		case "DTSTART":
		case "RRULE", "EXRULE":
			if len(params) > 0 {
				return nil, fmt.Errorf("%w: %s takes no parameters", ErrMalformedText, name)
			}
			if name == "RRULE" {
				rruleVals = append(rruleVals, value)
			} else {
				exruleVals = append(exruleVals, value)
			}
		case "RDATE", "EXDATE":
			p, err := dateParams(name, params)
			if err != nil {
				return nil, err
			}
			list, err := timestamp.ParseList(value, p, loc)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrMalformedText, name, err)
			}
			if name == "RDATE" {
				rdates = append(rdates, list...)
			} else {
				exdates = append(exdates, list...)
			}
		default:
			if strings.HasPrefix(name, "X-") {
				slog.Debug("ignoring experimental property", "name", name)
				continue
			}
			return nil, fmt.Errorf("%w: unsupported property %q", ErrMalformedText, name)
		}
	}

	buildRule := func(value string) (*Rule, error) {
		ro, err := parseRuleValue(value, loc)
		if err != nil {
			return nil, err
		}
		if !dtstart.IsZero() {
			ro.DTStart = dtstart
		}
		return NewRule(ro)
	}

	if !cfg.forceSet && len(rruleVals) == 1 && len(exruleVals) == 0 && len(rdates) == 0 && len(exdates) == 0 {
		return buildRule(rruleVals[0])
	}
	if len(rruleVals) == 0 && len(rdates) == 0 && !(cfg.compatible && !dtstart.IsZero()) {
		return nil, fmt.Errorf("%w: no RRULE or RDATE", ErrMalformedText)
	}

	set := NewSet()
	for _, v := range rruleVals {
		r, err := buildRule(v)
		if err != nil {
			return nil, err
		}
		set.RRule(r)
	}
	for _, v := range exruleVals {
		r, err := buildRule(v)
		if err != nil {
			return nil, err
		}
		set.ExRule(r)
	}
	for _, t := range rdates {
		set.RDate(t)
	}
	for _, t := range exdates {
		set.ExDate(t)
	}
	set.dtstart = dtstart
	if cfg.compatible && !dtstart.IsZero() {
		set.RDate(dtstart)
	}
	return set, nil
}

// splitLine breaks a content line into its upper-cased name, value and
// parameters. A line without a name is an RRULE value.
func splitLine(line string) (name, value string, params []string, err error) {
	head, value, ok := strings.Cut(line, ":")
	if !ok {
		return "RRULE", line, nil, nil
	}
	parts := strings.Split(head, ";")
	name = strings.ToUpper(strings.TrimSpace(parts[0]))
	if name == "" {
		return "", "", nil, fmt.Errorf("%w: line %q has no property name", ErrMalformedText, line)
	}
	return name, value, parts[1:], nil
}

func dateParams(name string, params []string) (timestamp.Params, error) {
	p, extra, err := timestamp.ParseParams(params)
	if err != nil {
		return timestamp.Params{}, fmt.Errorf("%w: %s: %w", ErrMalformedText, name, err)
	}
	for key := range extra {
		if !strings.HasPrefix(key, "X-") {
			return timestamp.Params{}, fmt.Errorf("%w: %s: unsupported parameter %s", ErrMalformedText, name, key)
		}
	}
	return p, nil
}

// ParseRule reads text that must describe exactly one rule.
func ParseRule(s string, opts ...ParseOption) (*Rule, error) {
	src, err := Parse(s, opts...)
	if err != nil {
		return nil, err
	}
	r, ok := src.(*Rule)
	if !ok {
		return nil, fmt.Errorf("%w: text describes a rule set, not a single rule", ErrMalformedText)
	}
	return r, nil
}

// ParseSet reads text into a rule set, whatever its shape.
func ParseSet(s string, opts ...ParseOption) (*Set, error) {
	src, err := Parse(s, append(opts, ForceSet())...)
	if err != nil {
		return nil, err
	}
	return src.(*Set), nil
}
