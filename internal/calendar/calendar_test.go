package calendar

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMonthsToDaysLeapYear(t *testing.T) {
	// Twelve months from Feb 2000 include the leap day.
	got := MonthsToDays(12, date(2000, time.February, 12))
	if got != 366 {
		t.Fatalf("expected 366 days got %d", got)
	}

	got = MonthsToDays(12, date(2001, time.February, 12))
	if got != 365 {
		t.Fatalf("expected 365 days got %d", got)
	}
}

func TestMonthsToDaysZeroAndNegative(t *testing.T) {
	if got := MonthsToDays(0, date(2020, time.January, 1)); got != 0 {
		t.Fatalf("expected 0 days for 0 months got %d", got)
	}
	if got := MonthsToDays(-3, date(2020, time.January, 1)); got != 0 {
		t.Fatalf("expected 0 days for negative months got %d", got)
	}
}

func TestMonthsToDaysCrossesYearBoundary(t *testing.T) {
	// Nov 2021 (30) + Dec 2021 (31) + Jan 2022 (31)
	if got := MonthsToDays(3, date(2021, time.November, 5)); got != 92 {
		t.Fatalf("expected 92 days got %d", got)
	}
}

func TestMonthsToDaysMatchesMonthLengthSum(t *testing.T) {
	starts := []time.Time{
		date(1999, time.December, 31),
		date(2000, time.January, 1),
		date(2000, time.February, 29),
		date(2024, time.June, 15),
		date(2100, time.February, 1), // 2100 is not a leap year
	}
	for _, start := range starts {
		for n := 0; n <= 36; n++ {
			want := 0
			year, month := start.Year(), start.Month()
			for i := 0; i < n; i++ {
				want += DaysInMonth(year, month)
				year, month = NextMonth(year, month)
			}
			if got := MonthsToDays(n, start); got != want {
				t.Fatalf("MonthsToDays(%d, %s) = %d, want %d", n, start.Format("2006-01-02"), got, want)
			}
		}
	}
}

func TestDaysInMonth(t *testing.T) {
	cases := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2000, time.February, 29},
		{2001, time.February, 28},
		{1900, time.February, 28},
		{2000, time.April, 30},
		{2000, time.December, 31},
	}
	for _, tc := range cases {
		if got := DaysInMonth(tc.year, tc.month); got != tc.want {
			t.Fatalf("DaysInMonth(%d, %s) = %d, want %d", tc.year, tc.month, got, tc.want)
		}
	}
}

func TestNextMonthWrapsYear(t *testing.T) {
	year, month := NextMonth(2021, time.December)
	if year != 2022 || month != time.January {
		t.Fatalf("expected 2022 January got %d %s", year, month)
	}
}
