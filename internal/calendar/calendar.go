// Package calendar provides month-accurate date span arithmetic.
//
// Membership terms are expressed in whole calendar months, so a twelve month
// term that starts in February of a leap year is one day longer than one that
// starts a year later. Fixed-length periods would drift; these helpers walk
// real months instead.
package calendar

import "time"

// MonthsToDays returns the number of days covered by n consecutive calendar
// months beginning with the month containing start. Deterministic for a given
// (n, start); n <= 0 returns 0.
func MonthsToDays(n int, start time.Time) int {
	days := 0
	year, month := start.Year(), start.Month()

	for walked := 0; walked < n; walked++ {
		days += DaysInMonth(year, month)
		year, month = NextMonth(year, month)
	}

	return days
}

// DaysInMonth returns the length of the given month, accounting for leap
// years.
func DaysInMonth(year int, month time.Month) int {
	// Day 0 of the next month normalizes to the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// NextMonth returns the month following the given one.
func NextMonth(year int, month time.Month) (int, time.Month) {
	next := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return next.Year(), next.Month()
}
