package rrule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/cyp0633/librrule/internal/timestamp"
)

// XCalNamespace is the RFC 6321 iCalendar XML namespace.
const XCalNamespace = "urn:ietf:params:xml:ns:icalendar-2.0"

const xcalDateTime = "2006-01-02T15:04:05"

func formatXCal(t time.Time) string {
	if t.Location() == time.UTC {
		return t.Format(xcalDateTime) + "Z"
	}
	return t.Format(xcalDateTime)
}

func textElement(name, text string) *etree.Element {
	elem := etree.NewElement(name)
	elem.SetText(text)
	return elem
}

func addInts(parent *etree.Element, name string, values []int) {
	for _, v := range values {
		parent.AddChild(textElement(name, strconv.Itoa(v)))
	}
}

// EncodeXML writes the options as an xCal <recur> element. DTSTART is not
// part of <recur>; it travels as a sibling property (see (*Set).EncodeXML).
func (o RuleOptions) EncodeXML() *etree.Element {
	elem := etree.NewElement("recur")
	elem.AddChild(textElement("freq", o.Freq.String()))
	if !o.Until.IsZero() {
		elem.AddChild(textElement("until", formatXCal(o.Until.UTC())))
	}
	if o.Count > 0 {
		elem.AddChild(textElement("count", strconv.Itoa(o.Count)))
	}
	if o.Interval > 1 {
		elem.AddChild(textElement("interval", strconv.Itoa(o.Interval)))
	}
	addInts(elem, "bysecond", o.BySecond)
	addInts(elem, "byminute", o.ByMinute)
	addInts(elem, "byhour", o.ByHour)
	for _, wd := range o.ByWeekday {
		elem.AddChild(textElement("byday", wd.String()))
	}
	addInts(elem, "bymonthday", o.ByMonthDay)
	addInts(elem, "byyearday", o.ByYearDay)
	addInts(elem, "byweekno", o.ByWeekNo)
	addInts(elem, "bymonth", o.ByMonth)
	addInts(elem, "bysetpos", o.BySetPos)
	addInts(elem, "byeaster", o.ByEaster)
	if o.WeekStart.day != MO.day {
		elem.AddChild(textElement("wkst", weekdayNames[o.WeekStart.day]))
	}
	return elem
}

// DecodeXML reads an xCal <recur> element. Fields not present in the
// element are left untouched.
func (o *RuleOptions) DecodeXML(elem *etree.Element) error {
	if elem == nil || elem.Tag != "recur" {
		return fmt.Errorf("%w: expected <recur>", ErrMalformedText)
	}
	hasFreq := false
	for _, child := range elem.ChildElements() {
		text := strings.TrimSpace(child.Text())
		var err error
		switch child.Tag {
		case "freq":
			o.Freq, err = ParseFrequency(strings.ToUpper(text))
			hasFreq = err == nil
		case "until":
			o.Until, err = timestamp.Parse(text, timestamp.Params{}, time.UTC)
		case "count":
			o.Count, err = parsePositive(text)
		case "interval":
			o.Interval, err = parsePositive(text)
		case "wkst":
			var wd Weekday
			wd, err = ParseWeekday(strings.ToUpper(text))
			o.WeekStart = Weekday{day: wd.day}
		case "byday":
			var wd Weekday
			if wd, err = ParseWeekday(strings.ToUpper(text)); err == nil {
				o.ByWeekday = append(o.ByWeekday, wd)
			}
		case "bysecond":
			o.BySecond, err = appendInt(o.BySecond, text)
		case "byminute":
			o.ByMinute, err = appendInt(o.ByMinute, text)
		case "byhour":
			o.ByHour, err = appendInt(o.ByHour, text)
		case "bymonthday":
			o.ByMonthDay, err = appendInt(o.ByMonthDay, text)
		case "byyearday":
			o.ByYearDay, err = appendInt(o.ByYearDay, text)
		case "byweekno":
			o.ByWeekNo, err = appendInt(o.ByWeekNo, text)
		case "bymonth":
			o.ByMonth, err = appendInt(o.ByMonth, text)
		case "bysetpos":
			o.BySetPos, err = appendInt(o.BySetPos, text)
		case "byeaster":
			o.ByEaster, err = appendInt(o.ByEaster, text)
		default:
			return fmt.Errorf("%w: unexpected <%s> in <recur>", ErrMalformedText, child.Tag)
		}
		if err != nil {
			return fmt.Errorf("%w: <%s>%s: %w", ErrMalformedText, child.Tag, text, err)
		}
	}
	if !hasFreq {
		return fmt.Errorf("%w: <recur> without <freq>", ErrMalformedText)
	}
	return nil
}

func appendInt(list []int, text string) ([]int, error) {
	n, err := strconv.Atoi(text)
	if err != nil {
		return list, err
	}
	return append(list, n), nil
}

// dateProperty builds e.g. <dtstart><parameters>..</parameters><date-time>..</date-time></dtstart>.
func dateProperty(name string, values ...time.Time) *etree.Element {
	elem := etree.NewElement(name)
	if len(values) == 0 {
		return elem
	}
	if tzid := timestamp.TZID(values[0]); tzid != "" {
		params := elem.CreateElement("parameters")
		params.CreateElement("tzid").AddChild(textElement("text", tzid))
	}
	for _, t := range values {
		elem.AddChild(textElement("date-time", formatXCal(t)))
	}
	return elem
}

// EncodeXML writes the set as an xCal <properties> element holding
// dtstart, rrule, exrule, rdate and exdate properties. xCal recurrences
// have no start of their own, so rules with different starts and no set
// DTSTART fail with ErrUnrepresentable.
func (s *Set) EncodeXML() (*etree.Element, error) {
	dtstart, shared := s.textAnchor()
	if !shared {
		return nil, fmt.Errorf("%w: rules start at different instants", ErrUnrepresentable)
	}

	props := etree.NewElement("properties")
	props.CreateAttr("xmlns", XCalNamespace)
	if !dtstart.IsZero() {
		props.AddChild(dateProperty("dtstart", dtstart))
	}
	for _, r := range s.rrules {
		props.CreateElement("rrule").AddChild(r.options.EncodeXML())
	}
	for _, r := range s.exrules {
		props.CreateElement("exrule").AddChild(r.options.EncodeXML())
	}
	for _, t := range s.rdates {
		props.AddChild(dateProperty("rdate", t))
	}
	for _, t := range s.exdates {
		props.AddChild(dateProperty("exdate", t))
	}
	return props, nil
}

// DecodeSetXML reads a <properties> element written by (*Set).EncodeXML
// or any xCal component holding the same properties.
func DecodeSetXML(elem *etree.Element) (*Set, error) {
	if elem == nil || elem.Tag != "properties" {
		return nil, fmt.Errorf("%w: expected <properties>", ErrMalformedText)
	}

	var dtstart time.Time
	if el := elem.SelectElement("dtstart"); el != nil {
		values, err := decodeDates(el, time.UTC)
		if err != nil {
			return nil, err
		}
		if len(values) != 1 {
			return nil, fmt.Errorf("%w: <dtstart> must hold one value", ErrMalformedText)
		}
		dtstart = values[0]
	}
	loc := time.UTC
	if !dtstart.IsZero() {
		loc = dtstart.Location()
	}

	set := NewSet()
	for _, child := range elem.ChildElements() {
		switch child.Tag {
		case "dtstart":
		case "rrule", "exrule":
			var opts RuleOptions
			if err := opts.DecodeXML(child.SelectElement("recur")); err != nil {
				return nil, err
			}
			if !dtstart.IsZero() {
				opts.DTStart = dtstart
			}
			r, err := NewRule(opts)
			if err != nil {
				return nil, err
			}
			if child.Tag == "rrule" {
				set.RRule(r)
			} else {
				set.ExRule(r)
			}
		case "rdate", "exdate":
			values, err := decodeDates(child, loc)
			if err != nil {
				return nil, err
			}
			for _, t := range values {
				if child.Tag == "rdate" {
					set.RDate(t)
				} else {
					set.ExDate(t)
				}
			}
		default:
			return nil, fmt.Errorf("%w: unexpected property <%s>", ErrMalformedText, child.Tag)
		}
	}
	set.dtstart = dtstart
	return set, nil
}

func decodeDates(elem *etree.Element, loc *time.Location) ([]time.Time, error) {
	var params timestamp.Params
	if p := elem.SelectElement("parameters"); p != nil {
		if tz := p.FindElement("tzid/text"); tz != nil {
			params.TZID = strings.TrimSpace(tz.Text())
		}
	}
	var out []time.Time
	for _, child := range elem.ChildElements() {
		p := params
		switch child.Tag {
		case "parameters":
			continue
		case "date":
			p.DateOnly = true
			text := strings.ReplaceAll(strings.TrimSpace(child.Text()), "-", "")
			t, err := timestamp.Parse(text, p, loc)
			if err != nil {
				return nil, fmt.Errorf("%w: <%s>: %w", ErrMalformedText, elem.Tag, err)
			}
			out = append(out, t)
		case "date-time":
			t, err := timestamp.Parse(child.Text(), p, loc)
			if err != nil {
				return nil, fmt.Errorf("%w: <%s>: %w", ErrMalformedText, elem.Tag, err)
			}
			out = append(out, t)
		default:
			return nil, fmt.Errorf("%w: unexpected <%s> in <%s>", ErrMalformedText, child.Tag, elem.Tag)
		}
	}
	return out, nil
}
