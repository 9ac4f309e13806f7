// Package model defines the data models for the morning bot: per-group
// rule configuration, per-user sleep/wake state, and the group-level
// counters the rollover jobs rotate.
package model

// DefaultGroupKey is the config-store key holding the fallback
// configuration used by groups without a config row of their own.
const DefaultGroupKey = "default"

// WindowRule is a time-of-day window rule. For the morning window a
// valid action falls strictly between EarlyHour and LateHour. For the
// night window the valid range wraps past midnight: an action is valid
// after EarlyHour or before LateHour.
type WindowRule struct {
	Enable    bool `json:"enable"`
	EarlyHour int  `json:"early_time"`
	LateHour  int  `json:"late_time"`
}

// IntervalRule is a minimum-elapsed-interval rule measured in hours.
type IntervalRule struct {
	Enable   bool `json:"enable"`
	Interval int  `json:"interval"`
}

// MorningConfig holds the rules governing the morning action.
type MorningConfig struct {
	// Window restricts when a morning action is accepted.
	Window WindowRule `json:"morning_intime"`
	// MultiGetUp, when disabled, rejects a second morning within
	// Interval hours of the previous one.
	MultiGetUp IntervalRule `json:"multi_get_up"`
	// SuperGetUp, when disabled, rejects a morning action when the user
	// slept for less than Interval hours.
	SuperGetUp IntervalRule `json:"super_get_up"`
}

// NightConfig holds the rules governing the night action.
type NightConfig struct {
	// Window restricts when a night action is accepted (wraps midnight).
	Window WindowRule `json:"night_intime"`
	// GoodSleep, when enabled, rejects a second night within Interval
	// hours of the previous one. Note the inverted polarity vs.
	// MultiGetUp; the vocabulary is inherited and deployments depend
	// on it.
	GoodSleep IntervalRule `json:"good_sleep"`
	// DeepSleep, when disabled, rejects a night action when the user was
	// awake for less than Interval hours.
	DeepSleep IntervalRule `json:"deep_sleep"`
}

// GroupConfig is the full rule set for one group. Groups without their
// own row fall back to the record stored under DefaultGroupKey.
type GroupConfig struct {
	Morning MorningConfig `json:"morning"`
	Night   NightConfig   `json:"night"`
}

// UserDaily tracks the user's most recent actions.
type UserDaily struct {
	MorningTime Timestamp `json:"morning_time"`
	NightTime   Timestamp `json:"night_time"`
}

// UserWeekly tracks the running week's counters and the frozen copy of
// last week's, rotated by the weekly rollover jobs.
type UserWeekly struct {
	MorningCount int       `json:"weekly_morning_count"`
	NightCount   int       `json:"weekly_night_count"`
	Sleep        ClockTime `json:"weekly_sleep"`

	LastWeekMorningCount int       `json:"lastweek_morning_count"`
	LastWeekNightCount   int       `json:"lastweek_night_count"`
	LastWeekSleep        ClockTime `json:"lastweek_sleep"`

	LastWeekLatestNight     Timestamp `json:"lastweek_latest_night_time"`
	LastWeekEarliestMorning Timestamp `json:"lastweek_earliest_morning_time"`
}

// UserTotal tracks lifetime counters. Sleep accumulates only completed
// night-to-morning intervals shorter than 24 hours.
type UserTotal struct {
	MorningCount int       `json:"morning_count"`
	NightCount   int       `json:"night_count"`
	Sleep        ClockTime `json:"total_sleep"`
}

// UserState is one user's durable sleep/wake record within a group.
type UserState struct {
	Daily  UserDaily  `json:"daily"`
	Weekly UserWeekly `json:"weekly"`
	Total  UserTotal  `json:"total"`
}

// DailyCount is the group's per-day action tally. It counts successful
// actions, not distinct users.
type DailyCount struct {
	GoodMorning int `json:"good_morning"`
	GoodNight   int `json:"good_night"`
}

// GroupWeekly holds the weekly aggregate, currently the id of the user
// with the longest sleep recorded last week.
type GroupWeekly struct {
	SleepChampion string `json:"sleep_champion,omitempty"`
}

// GroupState is the group-level aggregate counters.
type GroupState struct {
	Daily  DailyCount  `json:"daily"`
	Weekly GroupWeekly `json:"weekly"`
}

// GroupRecord is the unit of persistence: one document per group
// holding the group aggregates and every member's state. Load-modify-
// save of a GroupRecord is a single logical transaction.
type GroupRecord struct {
	Group GroupState            `json:"group_count"`
	Users map[string]*UserState `json:"users"`
}

// NewGroupRecord creates an empty record for a group seen for the
// first time.
func NewGroupRecord() *GroupRecord {
	return &GroupRecord{Users: make(map[string]*UserState)}
}

// User returns the state for uid, creating an empty entry on first
// reference. Entries are never deleted.
func (r *GroupRecord) User(uid string) *UserState {
	if r.Users == nil {
		r.Users = make(map[string]*UserState)
	}
	u, ok := r.Users[uid]
	if !ok {
		u = &UserState{}
		r.Users[uid] = u
	}
	return u
}
