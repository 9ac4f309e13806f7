package model

import (
	"fmt"
	"time"
)

// ClockTime is an accumulated duration stored as an explicit
// days/hours/minutes/seconds quadruple. The split representation keeps
// persisted durations readable and avoids precision drift when records
// written by older deployments are loaded back.
type ClockTime struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// ClockTimeOf converts a duration into a normalized ClockTime.
// Negative durations clamp to zero; sleep accumulators never go backwards.
func ClockTimeOf(d time.Duration) ClockTime {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return ClockTime{
		Days:    total / 86400,
		Hours:   total % 86400 / 3600,
		Minutes: total % 3600 / 60,
		Seconds: total % 60,
	}
}

// Duration converts the quadruple back into a time.Duration.
func (c ClockTime) Duration() time.Duration {
	return time.Duration(c.Days)*24*time.Hour +
		time.Duration(c.Hours)*time.Hour +
		time.Duration(c.Minutes)*time.Minute +
		time.Duration(c.Seconds)*time.Second
}

// Add returns the sum of the stored duration and d, normalized.
func (c ClockTime) Add(d time.Duration) ClockTime {
	return ClockTimeOf(c.Duration() + d)
}

// Normalize re-balances the fields so hours/minutes/seconds stay below
// their modulus. Records hand-edited or produced by other tooling may
// carry overflowed fields.
func (c ClockTime) Normalize() ClockTime {
	return ClockTimeOf(c.Duration())
}

// IsZero reports whether no time has been accumulated.
func (c ClockTime) IsZero() bool {
	return c.Days == 0 && c.Hours == 0 && c.Minutes == 0 && c.Seconds == 0
}

// String renders the short form used for a single night's sleep,
// e.g. "8时0分0秒".
func (c ClockTime) String() string {
	return fmt.Sprintf("%d时%d分%d秒", c.Days*24+c.Hours, c.Minutes, c.Seconds)
}

// LongString renders the weekly/total form including days,
// e.g. "2天3时4分5秒".
func (c ClockTime) LongString() string {
	return fmt.Sprintf("%d天%d时%d分%d秒", c.Days, c.Hours, c.Minutes, c.Seconds)
}
