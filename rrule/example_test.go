package rrule_test

import (
	"fmt"
	"time"

	"github.com/cyp0633/librrule/rrule"
)

func ExampleNewRule() {
	r, err := rrule.NewRule(rrule.RuleOptions{
		Freq:       rrule.MONTHLY,
		Count:      3,
		ByWeekday:  []rrule.Weekday{rrule.FR},
		ByMonthDay: []int{13},
		DTStart:    time.Date(1997, 9, 2, 9, 0, 0, 0, time.UTC),
	})
	if err != nil {
		panic(err)
	}
	for _, t := range r.All() {
		fmt.Println(t.Format(time.DateOnly))
	}
	// Output:
	// 1998-02-13
	// 1998-03-13
	// 1998-11-13
}

func ExampleParse() {
	src, err := rrule.Parse("DTSTART:19970902T090000Z\nRRULE:FREQ=DAILY;COUNT=5\nEXDATE:19970904T090000Z")
	if err != nil {
		panic(err)
	}
	for _, t := range rrule.All(src) {
		fmt.Println(t.Format(time.DateOnly))
	}
	// Output:
	// 1997-09-02
	// 1997-09-03
	// 1997-09-05
	// 1997-09-06
}

func ExampleSet() {
	start := time.Date(1997, 9, 2, 9, 0, 0, 0, time.UTC)
	r, _ := rrule.NewRule(rrule.RuleOptions{Freq: rrule.YEARLY, Count: 2, DTStart: start})

	set := rrule.NewSet()
	set.RRule(r)
	set.RDate(time.Date(1997, 12, 25, 9, 0, 0, 0, time.UTC))
	text, _ := set.MarshalText()
	fmt.Println(string(text))
	// Output:
	// DTSTART:19970902T090000Z
	// RRULE:FREQ=YEARLY;COUNT=2
	// RDATE:19971225T090000Z
}

func ExampleRule_After() {
	r, _ := rrule.ParseRule("DTSTART:19970902T090000Z\nRRULE:FREQ=WEEKLY;BYDAY=TU,TH")
	next, ok := r.After(time.Date(1997, 9, 10, 0, 0, 0, 0, time.UTC), false).Get()
	fmt.Println(next.Format(time.DateTime), ok)
	// Output: 1997-09-11 09:00:00 true
}
