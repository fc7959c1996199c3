// Package easter computes the date of Western (Gregorian) Easter Sunday.
package easter

import "time"

// Easter returns Easter Sunday of the given Gregorian year at midnight UTC.
func Easter(year int) time.Time {
	g := year % 19
	c := year / 100
	h := (c - c/4 - (8*c+13)/25 + 19*g + 15) % 30
	i := h - (h/28)*(1-(h/28)*(29/(h+1))*((21-g)/11))
	j := (year + year/4 + i + 2 - c + c/4) % 7
	p := i - j
	day := 1 + (p+27+(p+6)/40)%31
	month := 3 + (p+26)/30
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// YearDay returns the zero-based day offset of Easter Sunday within its year.
func YearDay(year int) int {
	return Easter(year).YearDay() - 1
}
