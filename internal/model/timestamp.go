package model

import (
	"encoding/json"
	"time"
)

// TimeLayout is the persisted wall-clock format. Records keep local
// date-times with second precision, matching the data files this bot
// inherits from earlier deployments.
const TimeLayout = "2006-01-02 15:04:05"

// Timestamp wraps time.Time with the persisted string encoding.
// The zero value means "absent": a user who has never woken has no
// morning timestamp, and that absence round-trips as an empty string.
type Timestamp struct {
	time.Time
}

// NewTimestamp truncates t to second precision, the resolution of the
// persisted format.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{t.Truncate(time.Second)}
}

// MarshalJSON encodes the timestamp as "2006-01-02 15:04:05", or ""
// when absent.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return json.Marshal("")
	}
	return json.Marshal(t.Format(TimeLayout))
}

// UnmarshalJSON decodes the persisted string form. Empty string and
// JSON null both decode to the absent timestamp.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.ParseInLocation(TimeLayout, s, time.Local)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}
