package sched

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func weekdayPtr(d time.Weekday) *time.Weekday { return &d }

func TestTriggerCronSpec(t *testing.T) {
	tests := []struct {
		name    string
		trigger Trigger
		want    string
	}{
		{"daily at 6", Trigger{Hour: 6}, "0 6 * * *"},
		{"daily at midnight", Trigger{Hour: 0}, "0 0 * * *"},
		{"hour 24 wraps to midnight", Trigger{Hour: 24}, "0 0 * * *"},
		{"weekly monday at 21", Trigger{Hour: 21, Weekday: weekdayPtr(time.Monday)}, "0 21 * * 1"},
		{"weekly sunday at 12", Trigger{Hour: 12, Weekday: weekdayPtr(time.Sunday)}, "0 12 * * 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.trigger.CronSpec())
		})
	}
}

func TestTriggerPrevFireDaily(t *testing.T) {
	loc := time.UTC
	trig := Trigger{Hour: 6}

	// After today's fire: returns today at 6.
	now := time.Date(2024, 3, 15, 10, 30, 0, 0, loc)
	assert.Equal(t, time.Date(2024, 3, 15, 6, 0, 0, 0, loc), trig.PrevFire(now))

	// Before today's fire: returns yesterday at 6.
	now = time.Date(2024, 3, 15, 4, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2024, 3, 14, 6, 0, 0, 0, loc), trig.PrevFire(now))

	// Exactly at the fire instant counts as fired.
	now = time.Date(2024, 3, 15, 6, 0, 0, 0, loc)
	assert.Equal(t, now, trig.PrevFire(now))
}

func TestTriggerPrevFireWeekly(t *testing.T) {
	loc := time.UTC
	trig := Trigger{Hour: 21, Weekday: weekdayPtr(time.Monday)}

	// 2024-03-15 is a Friday; previous Monday is 2024-03-11.
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2024, 3, 11, 21, 0, 0, 0, loc), trig.PrevFire(now))

	// Monday before the fire hour: previous fire was a week earlier.
	now = time.Date(2024, 3, 11, 8, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2024, 3, 4, 21, 0, 0, 0, loc), trig.PrevFire(now))

	// Monday after the fire hour: fired today.
	now = time.Date(2024, 3, 11, 23, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2024, 3, 11, 21, 0, 0, 0, loc), trig.PrevFire(now))
}

// TestTriggerPrevFireProperty checks the defining properties of PrevFire:
// it never lies in the future, it is at most one period in the past, and
// it lands on the trigger's hour (and weekday, for weekly triggers).
func TestTriggerPrevFireProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		hour := rapid.IntRange(0, 24).Draw(t, "hour")
		weekly := rapid.Bool().Draw(t, "weekly")

		trig := Trigger{Hour: hour}
		period := 24 * time.Hour
		if weekly {
			wd := time.Weekday(rapid.IntRange(0, 6).Draw(t, "weekday"))
			trig.Weekday = &wd
			period = 7 * 24 * time.Hour
		}

		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		now := base.Add(time.Duration(rapid.Int64Range(0, 365*24*3600).Draw(t, "offset")) * time.Second)

		fire := trig.PrevFire(now)
		if fire.After(now) {
			t.Fatalf("PrevFire in the future: %v > %v", fire, now)
		}
		if now.Sub(fire) >= period {
			t.Fatalf("PrevFire more than one period ago: %v (now %v)", fire, now)
		}
		if fire.Hour() != hour%24 || fire.Minute() != 0 || fire.Second() != 0 {
			t.Fatalf("PrevFire off the trigger hour: %v (hour %d)", fire, hour)
		}
		if trig.Weekday != nil && fire.Weekday() != *trig.Weekday {
			t.Fatalf("PrevFire on wrong weekday: %v (want %v)", fire.Weekday(), *trig.Weekday)
		}
	})
}

func TestSchedulerUpsertReplaces(t *testing.T) {
	s := New(time.UTC)
	key := JobKey{GroupID: "100", Kind: JobDailyReset}

	require.NoError(t, s.Upsert(key, Trigger{Hour: 6}, func() {}))
	assert.True(t, s.Installed(key))

	// Re-installing the same key must not leave two entries armed.
	require.NoError(t, s.Upsert(key, Trigger{Hour: 8}, func() {}))
	assert.True(t, s.Installed(key))
	assert.Len(t, s.entries, 1)
}

func TestSchedulerRemove(t *testing.T) {
	s := New(time.UTC)
	key := JobKey{GroupID: "100", Kind: JobWeeklySleep}

	require.NoError(t, s.Upsert(key, Trigger{Hour: 12, Weekday: weekdayPtr(time.Monday)}, func() {}))
	s.Remove(key)
	assert.False(t, s.Installed(key))

	// Removing again is a no-op.
	s.Remove(key)
	assert.False(t, s.Installed(key))
}

func TestSchedulerKeysIndependent(t *testing.T) {
	s := New(time.UTC)
	a := JobKey{GroupID: "100", Kind: JobDailyReset}
	b := JobKey{GroupID: "100", Kind: JobWeeklyNight}
	c := JobKey{GroupID: "200", Kind: JobDailyReset}

	require.NoError(t, s.Upsert(a, Trigger{Hour: 6}, func() {}))
	require.NoError(t, s.Upsert(b, Trigger{Hour: 21, Weekday: weekdayPtr(time.Monday)}, func() {}))
	require.NoError(t, s.Upsert(c, Trigger{Hour: 6}, func() {}))

	s.Remove(a)
	assert.False(t, s.Installed(a))
	assert.True(t, s.Installed(b))
	assert.True(t, s.Installed(c))
}

func TestJobKeyString(t *testing.T) {
	key := JobKey{GroupID: "-100123", Kind: JobWeeklyNight}
	assert.Equal(t, "weekly_night/-100123", key.String())
}
