package helpers

import "time"

// DateOnly truncates t to midnight in its own location
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// IsFriday reports whether t falls on a Friday
func IsFriday(t time.Time) bool {
	return t.Weekday() == time.Friday
}

// IsWeekend reports whether t falls on a Saturday or Sunday
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// WeekBounds returns Monday and Sunday of the week containing t
func WeekBounds(t time.Time) (time.Time, time.Time) {
	d := DateOnly(t)
	offset := (int(d.Weekday()) + 6) % 7 // Monday = 0
	start := d.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 6)
}

// MonthBounds returns the first and last day of the month containing t
func MonthBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 1, -1)
}

// QuarterIndex returns 0..3 for the quarter containing t
func QuarterIndex(t time.Time) int {
	return (int(t.Month()) - 1) / 3
}

// QuarterBounds returns the first and last day of the quarter containing t
func QuarterBounds(t time.Time) (time.Time, time.Time) {
	firstMonth := time.Month(QuarterIndex(t)*3 + 1)
	start := time.Date(t.Year(), firstMonth, 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 3, -1)
}

// YearBounds returns January 1 and December 31 of the year containing t
func YearBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(1, 0, -1)
}
