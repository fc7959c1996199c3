package rrule

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrInvalidRule is returned when rule options cannot form a valid rule
	ErrInvalidRule = errors.New("invalid rule definition")
	// ErrMalformedText is returned when rule text cannot be parsed
	ErrMalformedText = errors.New("malformed rule text")
	// ErrUnrepresentable is returned when a set has no text form that parses
	// back to the same occurrences
	ErrUnrepresentable = errors.New("set has no lossless text form")
)

// Frequency is the granularity at which a rule advances, coarse to fine.
type Frequency int

const (
	YEARLY Frequency = iota
	MONTHLY
	WEEKLY
	DAILY
	HOURLY
	MINUTELY
	SECONDLY
)

var frequencyNames = [...]string{"YEARLY", "MONTHLY", "WEEKLY", "DAILY", "HOURLY", "MINUTELY", "SECONDLY"}

func (f Frequency) String() string {
	if f.valid() {
		return frequencyNames[f]
	}
	return "Frequency(" + strconv.Itoa(int(f)) + ")"
}

func (f Frequency) valid() bool {
	return f >= YEARLY && f <= SECONDLY
}

// ParseFrequency reads an RFC 5545 FREQ token.
func ParseFrequency(s string) (Frequency, error) {
	for i, name := range frequencyNames {
		if name == s {
			return Frequency(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown frequency %q", ErrMalformedText, s)
}

// Weekday selects a day of the week, optionally restricted to its n-th
// occurrence within the month or year (negative n counts from the end).
type Weekday struct {
	day int
	n   int
}

var (
	MO = Weekday{day: 0}
	TU = Weekday{day: 1}
	WE = Weekday{day: 2}
	TH = Weekday{day: 3}
	FR = Weekday{day: 4}
	SA = Weekday{day: 5}
	SU = Weekday{day: 6}
)

var weekdayNames = [...]string{"MO", "TU", "WE", "TH", "FR", "SA", "SU"}

// Nth returns the selector for the n-th such weekday. Nth(0) means every.
func (w Weekday) Nth(n int) Weekday {
	return Weekday{day: w.day, n: n}
}

// Day returns the weekday number, 0 for Monday through 6 for Sunday.
func (w Weekday) Day() int {
	return w.day
}

// N returns the occurrence selector, 0 when unset.
func (w Weekday) N() int {
	return w.n
}

func (w Weekday) String() string {
	name := "??"
	if w.day >= 0 && w.day < len(weekdayNames) {
		name = weekdayNames[w.day]
	}
	if w.n == 0 {
		return name
	}
	if w.n > 0 {
		return "+" + strconv.Itoa(w.n) + name
	}
	return strconv.Itoa(w.n) + name
}

// ParseWeekday reads a BYDAY item such as "MO", "+1MO" or "-2FR".
func ParseWeekday(s string) (Weekday, error) {
	if len(s) < 2 {
		return Weekday{}, fmt.Errorf("%w: invalid weekday %q", ErrMalformedText, s)
	}
	code := s[len(s)-2:]
	day := -1
	for i, name := range weekdayNames {
		if name == code {
			day = i
			break
		}
	}
	if day < 0 {
		return Weekday{}, fmt.Errorf("%w: invalid weekday %q", ErrMalformedText, s)
	}
	w := Weekday{day: day}
	if prefix := s[:len(s)-2]; prefix != "" {
		n, err := strconv.Atoi(prefix)
		if err != nil || n == 0 {
			return Weekday{}, fmt.Errorf("%w: invalid weekday ordinal %q", ErrMalformedText, s)
		}
		w.n = n
	}
	return w, nil
}
