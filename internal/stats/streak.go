// Package stats holds the dashboard computations. Every function is pure:
// callers pass in "now" and the already-loaded records.
package stats

import "time"

// NextStreak returns the visit streak after a visit at now.
//
// Days are UTC calendar days:
//   - never visited            -> 1
//   - same day as last visit   -> unchanged
//   - the day after            -> current + 1
//   - any longer gap           -> 1
//
// A last visit later than now (clock skew between writers) counts as the
// same day.
func NextStreak(lastVisit *time.Time, current int, now time.Time) int {
	if lastVisit == nil {
		return 1
	}

	days := daysBetween(*lastVisit, now)
	switch {
	case days <= 0:
		return max(current, 1)
	case days == 1:
		return current + 1
	default:
		return 1
	}
}

// daysBetween counts calendar-day boundaries from a to b in UTC.
func daysBetween(a, b time.Time) int {
	ad := startOfDay(a)
	bd := startOfDay(b)
	return int(bd.Sub(ad).Hours() / 24)
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
