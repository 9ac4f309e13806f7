// Package timerule holds the pure time predicates behind every
// morning/night validation rule. All functions are stateless and
// operate on wall-clock local time.
package timerule

import "time"

// TimeOfDay returns the elapsed duration since local midnight of now.
func TimeOfDay(now time.Time) time.Duration {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return now.Sub(midnight)
}

// InMorningWindow reports whether now's time of day falls strictly
// between earlyHour and lateHour.
func InMorningWindow(earlyHour, lateHour int, now time.Time) bool {
	tod := TimeOfDay(now)
	return tod > time.Duration(earlyHour)*time.Hour && tod < time.Duration(lateHour)*time.Hour
}

// InNightWindow reports whether now's time of day falls in a window
// that wraps past midnight: valid after earlyHour in the evening or
// before lateHour the next morning. A window of 21–6 accepts 23:00 as
// well as 02:00.
func InNightWindow(earlyHour, lateHour int, now time.Time) bool {
	tod := TimeOfDay(now)
	return tod > time.Duration(earlyHour)*time.Hour || tod < time.Duration(lateHour)*time.Hour
}

// WithinInterval reports whether less than the given number of hours
// has elapsed between ref and now. True means "too soon" for every
// frequency rule, and "not yet stale" for the 24h morning staleness
// check.
func WithinInterval(ref, now time.Time, hours int) bool {
	return now.Sub(ref) < time.Duration(hours)*time.Hour
}

// IsLaterTimeOfDay reports whether t1's clock time is later in the day
// than t2's, regardless of calendar date. Used to track the latest
// night and earliest morning clock times across a week.
func IsLaterTimeOfDay(t1, t2 time.Time) bool {
	return TimeOfDay(t1) > TimeOfDay(t2)
}
