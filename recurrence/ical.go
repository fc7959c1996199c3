package recurrence

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	"github.com/cyp0633/librrule/internal/timestamp"
)

// ExtractRecurrenceInfoFromComponent extracts recurrence information from an
// iCal component. Floating RDATE and EXDATE values take the zone of DTSTART;
// date-only values are stored as midnight UTC.
func ExtractRecurrenceInfoFromComponent(comp *ical.Component) (RecurrenceInfo, error) {
	info := RecurrenceInfo{}

	loc := time.UTC
	if start, err := comp.Props.DateTime(ical.PropDateTimeStart, nil); err == nil && !start.IsZero() {
		loc = start.Location()
	}

	if rules := comp.Props[ical.PropRecurrenceRule]; len(rules) > 0 {
		info.RRULE = strings.TrimSpace(rules[0].Value)
		if len(rules) > 1 {
			return RecurrenceInfo{}, fmt.Errorf("%w: %d RRULE properties", ErrInvalidRecurrence, len(rules))
		}
	}

	var err error
	if info.RDATE, err = parseDateProps(comp.Props[ical.PropRecurrenceDates], loc); err != nil {
		return RecurrenceInfo{}, err
	}
	if info.EXDATE, err = parseDateProps(comp.Props[ical.PropExceptionDates], loc); err != nil {
		return RecurrenceInfo{}, err
	}

	if prop := comp.Props.Get(ical.PropRecurrenceID); prop != nil && prop.Value != "" {
		recurrenceID, err := parseDateProp(*prop, loc)
		if err != nil {
			return RecurrenceInfo{}, err
		}
		info.RecurrenceID = &recurrenceID
	}

	return info, nil
}

func propParams(prop ical.Prop) timestamp.Params {
	return timestamp.Params{
		TZID:     prop.Params.Get(ical.ParamTimezoneID),
		DateOnly: strings.EqualFold(prop.Params.Get(ical.ParamValue), "DATE"),
	}
}

func parseDateProp(prop ical.Prop, loc *time.Location) (time.Time, error) {
	params := propParams(prop)
	if params.DateOnly {
		loc = time.UTC
	}
	t, err := timestamp.Parse(prop.Value, params, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s: %w", ErrInvalidRecurrence, prop.Name, err)
	}
	return t, nil
}

// parseDateProps reads every value of repeated RDATE or EXDATE properties.
// PERIOD values are not supported and are skipped.
func parseDateProps(props []ical.Prop, loc *time.Location) ([]time.Time, error) {
	var out []time.Time
	for _, prop := range props {
		if strings.EqualFold(prop.Params.Get(ical.ParamValue), "PERIOD") {
			continue
		}
		params := propParams(prop)
		zone := loc
		if params.DateOnly {
			zone = time.UTC
		}
		list, err := timestamp.ParseList(prop.Value, params, zone)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidRecurrence, prop.Name, err)
		}
		out = append(out, list...)
	}
	slices.SortFunc(out, time.Time.Compare)
	return out, nil
}

// ExtractBasicTimeInfoFromComponent extracts start and end times from an iCal component
func ExtractBasicTimeInfoFromComponent(comp *ical.Component) (start, end time.Time, hasTime bool) {
	if dtstart, err := comp.Props.DateTime(ical.PropDateTimeStart, nil); err == nil && !dtstart.IsZero() {
		start = dtstart
		hasTime = true

		if dtend, err := comp.Props.DateTime(ical.PropDateTimeEnd, nil); err == nil && !dtend.IsZero() {
			end = dtend
			// An all-day event ending on its start date lasts the whole day.
			if isAllDay(comp) && sameDate(start, end) {
				end = start.AddDate(0, 0, 1)
			}
		} else if durationProp := comp.Props.Get(ical.PropDuration); durationProp != nil {
			duration, err := durationProp.Duration()
			if err != nil {
				return time.Time{}, time.Time{}, false
			}
			end = start.Add(duration)
		} else if isAllDay(comp) {
			end = start.AddDate(0, 0, 1)
		} else {
			end = start
		}
	}

	if comp.Name == ical.CompToDo {
		if due, err := comp.Props.DateTime(ical.PropDue, nil); err == nil && !due.IsZero() {
			if !hasTime {
				start, end, hasTime = due, due, true
			} else if due.After(end) {
				end = due
			}
		}
	}

	return start, end, hasTime
}

// isAllDay reports whether DTSTART carries a DATE value.
func isAllDay(comp *ical.Component) bool {
	prop := comp.Props.Get(ical.PropDateTimeStart)
	if prop == nil {
		return false
	}
	if strings.EqualFold(prop.Params.Get(ical.ParamValue), "DATE") {
		return true
	}
	return len(strings.TrimSpace(prop.Value)) == len(timestamp.LayoutDate)
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// SafeTimeDeref safely dereferences a time pointer, returning defaultTime if nil
func SafeTimeDeref(t *time.Time, defaultTime time.Time) time.Time {
	if t == nil {
		return defaultTime
	}
	return *t
}

// ExpandComponent turns a recurring master component and its overriding
// instances into one component per occurrence overlapping the range. Each
// instance carries a RECURRENCE-ID and its own DTSTART and DTEND, and no
// RRULE, RDATE or EXDATE. Overrides replace the generated instance they
// name. A master without recurrence is returned alone if it overlaps.
func (e *Engine) ExpandComponent(master *ical.Component, overrides []*ical.Component, rangeStart, rangeEnd time.Time) ([]*ical.Component, error) {
	start, end, ok := ExtractBasicTimeInfoFromComponent(master)
	if !ok {
		return nil, fmt.Errorf("%w: %s without start time", ErrInvalidRecurrence, master.Name)
	}
	info, err := ExtractRecurrenceInfoFromComponent(master)
	if err != nil {
		return nil, err
	}

	if info.RRULE == "" && len(info.RDATE) == 0 && len(overrides) == 0 {
		if overlaps(start, end, rangeStart, rangeEnd) {
			return []*ical.Component{cloneComponent(master)}, nil
		}
		return nil, nil
	}

	type override struct {
		comp       *ical.Component
		start, end time.Time
		id         time.Time
	}
	var replaced []override
	for _, comp := range overrides {
		oInfo, err := ExtractRecurrenceInfoFromComponent(comp)
		if err != nil {
			return nil, err
		}
		if oInfo.RecurrenceID == nil {
			return nil, fmt.Errorf("%w: override without RECURRENCE-ID", ErrInvalidRecurrence)
		}
		oStart, oEnd, ok := ExtractBasicTimeInfoFromComponent(comp)
		if !ok {
			oStart = *oInfo.RecurrenceID
			oEnd = oStart.Add(end.Sub(start))
		}
		replaced = append(replaced, override{comp: comp, start: oStart, end: oEnd, id: *oInfo.RecurrenceID})
	}
	isReplaced := func(t time.Time) bool {
		return slices.ContainsFunc(replaced, func(o override) bool { return o.id.Equal(t) })
	}

	occurrences, err := e.Expand(start, end, info, rangeStart, rangeEnd, ExpansionOptions{})
	if err != nil {
		return nil, err
	}

	allDay := isAllDay(master)
	var out []*ical.Component
	for _, occ := range occurrences {
		if e.config.Expansion.IncludeExceptions && isReplaced(occ.Start) {
			continue
		}
		out = append(out, instance(master, occ, allDay))
	}
	if e.config.Expansion.IncludeExceptions {
		for _, o := range replaced {
			if overlaps(o.start, o.end, rangeStart, rangeEnd) {
				out = append(out, cloneComponent(o.comp))
			}
		}
		slices.SortStableFunc(out, func(a, b *ical.Component) int {
			as, _, _ := ExtractBasicTimeInfoFromComponent(a)
			bs, _, _ := ExtractBasicTimeInfoFromComponent(b)
			return as.Compare(bs)
		})
	}
	return out, nil
}

func overlaps(start, end, rangeStart, rangeEnd time.Time) bool {
	return !start.After(rangeEnd) && !end.Before(rangeStart)
}

// instance builds the component of one generated occurrence.
func instance(master *ical.Component, occ TimeOccurrence, allDay bool) *ical.Component {
	comp := cloneComponent(master)
	for _, name := range []string{ical.PropRecurrenceRule, ical.PropRecurrenceDates, ical.PropExceptionDates, "EXRULE"} {
		delete(comp.Props, name)
	}
	setTimeProp(comp.Props, ical.PropRecurrenceID, occ.Start, allDay)
	setTimeProp(comp.Props, ical.PropDateTimeStart, occ.Start, allDay)
	if comp.Props.Get(ical.PropDateTimeEnd) != nil {
		setTimeProp(comp.Props, ical.PropDateTimeEnd, occ.End, allDay)
	}
	return comp
}

func setTimeProp(props ical.Props, name string, t time.Time, dateOnly bool) {
	prop := ical.NewProp(name)
	if dateOnly {
		prop.Params.Set(ical.ParamValue, "DATE")
		prop.Value = timestamp.FormatDate(t)
	} else {
		if tzid := timestamp.TZID(t); tzid != "" {
			prop.Params.Set(ical.ParamTimezoneID, tzid)
		}
		prop.Value = timestamp.Format(t)
	}
	props.Set(prop)
}

func cloneComponent(comp *ical.Component) *ical.Component {
	out := ical.NewComponent(comp.Name)
	for name, list := range comp.Props {
		props := make([]ical.Prop, len(list))
		for i, prop := range list {
			prop.Params = maps.Clone(prop.Params)
			props[i] = prop
		}
		out.Props[name] = props
	}
	for _, child := range comp.Children {
		out.Children = append(out.Children, cloneComponent(child))
	}
	return out
}

// ExpandCalendar expands every recurring VEVENT and VTODO of cal into its
// instances within the range. Components are grouped by UID; a master
// lacking one gets a generated UID shared by its instances. Other
// components, such as VTIMEZONE, are copied unchanged.
func (e *Engine) ExpandCalendar(cal *ical.Calendar, rangeStart, rangeEnd time.Time) (*ical.Calendar, error) {
	out := ical.NewCalendar()
	out.Props = cloneComponent(cal.Component).Props

	type group struct {
		master    *ical.Component
		overrides []*ical.Component
	}
	var order []string
	groups := make(map[string]*group)

	for _, child := range cal.Children {
		if child.Name != ical.CompEvent && child.Name != ical.CompToDo {
			out.Children = append(out.Children, cloneComponent(child))
			continue
		}

		uid := ""
		if prop := child.Props.Get(ical.PropUID); prop != nil {
			uid = prop.Value
		}
		if uid == "" {
			uid = uuid.NewString()
			child = cloneComponent(child)
			child.Props.SetText(ical.PropUID, uid)
			e.logger.Debug("generated UID for component", "component", child.Name, "uid", uid)
		}

		g, ok := groups[uid]
		if !ok {
			g = &group{}
			groups[uid] = g
			order = append(order, uid)
		}
		if child.Props.Get(ical.PropRecurrenceID) != nil {
			g.overrides = append(g.overrides, child)
		} else {
			g.master = child
		}
	}

	for _, uid := range order {
		g := groups[uid]
		if g.master == nil {
			// Overrides whose master is elsewhere stand on their own.
			for _, comp := range g.overrides {
				start, end, ok := ExtractBasicTimeInfoFromComponent(comp)
				if ok && overlaps(start, end, rangeStart, rangeEnd) {
					out.Children = append(out.Children, cloneComponent(comp))
				}
			}
			continue
		}
		instances, err := e.ExpandComponent(g.master, g.overrides, rangeStart, rangeEnd)
		if err != nil {
			return nil, fmt.Errorf("expand %s: %w", uid, err)
		}
		out.Children = append(out.Children, instances...)
	}
	return out, nil
}
