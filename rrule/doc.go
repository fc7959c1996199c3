// Package rrule generates the occurrences of iCalendar recurrence rules
// (RFC 5545 RRULE) and of rule sets combining rules, extra dates, exclusion
// rules and exclusion dates.
//
// A Rule is built from RuleOptions and iterated through a pull Iterator:
//
//	r, err := rrule.NewRule(rrule.RuleOptions{
//		Freq:    rrule.WEEKLY,
//		Count:   10,
//		DTStart: time.Date(1997, 9, 2, 9, 0, 0, 0, time.UTC),
//	})
//	it := r.Iterator()
//	for t, ok := it.Next(); ok; t, ok = it.Next() {
//		...
//	}
//
// Every Iterator call starts an independent generation; wrap a source in a
// Cache to share one generation between goroutines. Rules without COUNT or
// UNTIL end at the year 9999.
//
// Text in the RFC 5545 form is read by Parse, ParseRule and ParseSet and
// written by the String methods. RFC 6321 xCal is handled by EncodeXML and
// DecodeXML.
package rrule
