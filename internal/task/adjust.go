package task

import "time"

// AdjustWeekend returns the due date to persist for a candidate date.
// Saturday moves forward two days and Sunday one, both landing on Monday.
// Weekdays, and the zero date, are returned unchanged.
func AdjustWeekend(d Date) Date {
	if d.IsZero() {
		return d
	}
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDays(2) //nolint:mnd // Saturday -> Monday
	case time.Sunday:
		return d.AddDays(1)
	default:
		return d
	}
}
