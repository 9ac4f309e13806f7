package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-morning-bot/internal/model"
	"telegram-morning-bot/internal/pkg/lock"
	"telegram-morning-bot/internal/pkg/sched"
)

func newTestRolloverService(cfg *model.GroupConfig) (*RolloverService, *memRecordStore, *memJobRunStore, *sched.Scheduler) {
	records := newMemRecordStore()
	configs := newMemConfigStore(cfg)
	jobRuns := newMemJobRunStore()
	scheduler := sched.New(time.Local)
	svc := NewRolloverService(records, configs, jobRuns, lock.NewGroupLock(), scheduler, time.Monday)
	return svc, records, jobRuns, scheduler
}

func sleepRecord(sleeps map[string]time.Duration) *model.GroupRecord {
	rec := model.NewGroupRecord()
	for uid, d := range sleeps {
		user := rec.User(uid)
		user.Weekly.Sleep = model.ClockTimeOf(d)
		user.Weekly.MorningCount = 1
	}
	return rec
}

func TestApplyDailyResetIdempotent(t *testing.T) {
	rec := model.NewGroupRecord()
	rec.Group.Daily = model.DailyCount{GoodMorning: 4, GoodNight: 7}

	applyDailyReset(rec)
	assert.Equal(t, model.DailyCount{}, rec.Group.Daily)

	applyDailyReset(rec)
	assert.Equal(t, model.DailyCount{}, rec.Group.Daily)
}

func TestApplyWeeklyNightRotates(t *testing.T) {
	rec := model.NewGroupRecord()
	user := rec.User("alice")
	user.Weekly.NightCount = 5
	user.Weekly.LastWeekNightCount = 2

	applyWeeklyNight(rec)
	assert.Equal(t, 5, user.Weekly.LastWeekNightCount)
	assert.Equal(t, 0, user.Weekly.NightCount)

	// Morning side is untouched by the night rotation.
	user.Weekly.MorningCount = 3
	applyWeeklyNight(rec)
	assert.Equal(t, 3, user.Weekly.MorningCount)
	assert.Equal(t, 0, user.Weekly.LastWeekNightCount)
}

func TestApplyWeeklySleepCrownsLongestSleeper(t *testing.T) {
	rec := sleepRecord(map[string]time.Duration{
		"alice": 30 * time.Hour,
		"bob":   45 * time.Hour,
		"carol": 12 * time.Hour,
	})

	applyWeeklySleep(rec)
	assert.Equal(t, "bob", rec.Group.Weekly.SleepChampion)

	for uid, user := range rec.Users {
		assert.Equal(t, 0, user.Weekly.MorningCount, uid)
		assert.Equal(t, time.Duration(0), user.Weekly.Sleep.Duration(), uid)
		assert.Equal(t, 1, user.Weekly.LastWeekMorningCount, uid)
	}
	assert.Equal(t, 45*time.Hour, rec.Users["bob"].Weekly.LastWeekSleep.Duration())
}

func TestApplyWeeklySleepTieIsDeterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		rec := sleepRecord(map[string]time.Duration{
			"carol": 20 * time.Hour,
			"alice": 20 * time.Hour,
			"bob":   20 * time.Hour,
		})
		applyWeeklySleep(rec)
		// Sorted scan order breaks the tie the same way every run.
		assert.Equal(t, "alice", rec.Group.Weekly.SleepChampion)
	}
}

func TestApplyWeeklySleepEmptyGroup(t *testing.T) {
	rec := model.NewGroupRecord()
	applyWeeklySleep(rec)
	assert.Equal(t, "", rec.Group.Weekly.SleepChampion)
}

func TestDeriveTriggersDefaultConfig(t *testing.T) {
	svc, _, _, _ := newTestRolloverService(defaultTestConfig())

	triggers := svc.deriveTriggers(defaultTestConfig())
	require.Len(t, triggers, 3)

	assert.Equal(t, sched.Trigger{Hour: 21}, triggers[sched.JobDailyReset])

	// Night late hour 6 reads as early next morning, so the weekly
	// night boundary shifts from Monday to Tuesday.
	night := triggers[sched.JobWeeklyNight]
	assert.Equal(t, 6, night.Hour)
	require.NotNil(t, night.Weekday)
	assert.Equal(t, time.Tuesday, *night.Weekday)

	slp := triggers[sched.JobWeeklySleep]
	assert.Equal(t, 12, slp.Hour)
	require.NotNil(t, slp.Weekday)
	assert.Equal(t, time.Monday, *slp.Weekday)
}

func TestDeriveTriggersDisabledWindows(t *testing.T) {
	svc, _, _, _ := newTestRolloverService(defaultTestConfig())

	cfg := defaultTestConfig()
	cfg.Night.Window.Enable = false
	triggers := svc.deriveTriggers(cfg)
	assert.NotContains(t, triggers, sched.JobDailyReset)
	assert.NotContains(t, triggers, sched.JobWeeklyNight)
	assert.Contains(t, triggers, sched.JobWeeklySleep)

	cfg = defaultTestConfig()
	cfg.Morning.Window.Enable = false
	triggers = svc.deriveTriggers(cfg)
	assert.NotContains(t, triggers, sched.JobWeeklySleep)
}

func TestDeriveTriggersLateNightStaysOnBoundary(t *testing.T) {
	svc, _, _, _ := newTestRolloverService(defaultTestConfig())

	cfg := defaultTestConfig()
	cfg.Night.Window.LateHour = 23
	night := svc.deriveTriggers(cfg)[sched.JobWeeklyNight]
	require.NotNil(t, night.Weekday)
	assert.Equal(t, time.Monday, *night.Weekday)
}

func TestReconfigureInstallsAndRemoves(t *testing.T) {
	svc, _, _, scheduler := newTestRolloverService(defaultTestConfig())
	ctx := context.Background()

	require.NoError(t, svc.Reconfigure(ctx, "100"))
	assert.True(t, scheduler.Installed(sched.JobKey{GroupID: "100", Kind: sched.JobDailyReset}))
	assert.True(t, scheduler.Installed(sched.JobKey{GroupID: "100", Kind: sched.JobWeeklyNight}))
	assert.True(t, scheduler.Installed(sched.JobKey{GroupID: "100", Kind: sched.JobWeeklySleep}))

	// Disabling the night window drops its two jobs on the next derive.
	cfg := defaultTestConfig()
	cfg.Night.Window.Enable = false
	require.NoError(t, svc.configs.Save(ctx, "100", cfg))
	require.NoError(t, svc.Reconfigure(ctx, "100"))
	assert.False(t, scheduler.Installed(sched.JobKey{GroupID: "100", Kind: sched.JobDailyReset}))
	assert.False(t, scheduler.Installed(sched.JobKey{GroupID: "100", Kind: sched.JobWeeklyNight}))
	assert.True(t, scheduler.Installed(sched.JobKey{GroupID: "100", Kind: sched.JobWeeklySleep}))
}

func TestRunJobAppliesAndStamps(t *testing.T) {
	svc, records, jobRuns, _ := newTestRolloverService(defaultTestConfig())
	ctx := context.Background()

	rec := model.NewGroupRecord()
	rec.Group.Daily = model.DailyCount{GoodMorning: 3, GoodNight: 5}
	require.NoError(t, records.Save(ctx, "100", rec))

	svc.runJob(sched.JobDailyReset, "100")

	rec, err := records.Load(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, model.DailyCount{}, rec.Group.Daily)

	last, err := jobRuns.LastRun(ctx, "100", string(sched.JobDailyReset))
	require.NoError(t, err)
	assert.False(t, last.IsZero())
}

func TestRunJobUnknownGroupIsNoOp(t *testing.T) {
	svc, _, jobRuns, _ := newTestRolloverService(defaultTestConfig())

	svc.runJob(sched.JobDailyReset, "999")

	// The empty run still stamps: there was nothing to miss.
	last, err := jobRuns.LastRun(context.Background(), "999", string(sched.JobDailyReset))
	require.NoError(t, err)
	assert.False(t, last.IsZero())
}

func TestBootstrapRunsMissedTicks(t *testing.T) {
	svc, records, jobRuns, scheduler := newTestRolloverService(defaultTestConfig())
	ctx := context.Background()

	rec := model.NewGroupRecord()
	rec.Group.Daily = model.DailyCount{GoodMorning: 2}
	require.NoError(t, records.Save(ctx, "100", rec))

	// No run ever recorded: every derived job has a missed tick.
	require.NoError(t, svc.Bootstrap(ctx))

	assert.True(t, scheduler.Installed(sched.JobKey{GroupID: "100", Kind: sched.JobDailyReset}))
	assert.Equal(t, 3, jobRuns.marks)

	rec, err := records.Load(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, model.DailyCount{}, rec.Group.Daily)
}

func TestBootstrapSkipsFreshJobs(t *testing.T) {
	svc, records, jobRuns, _ := newTestRolloverService(defaultTestConfig())
	ctx := context.Background()

	require.NoError(t, records.Save(ctx, "100", model.NewGroupRecord()))

	// Stamp every job as having just run.
	now := time.Now()
	for _, kind := range []sched.JobKind{sched.JobDailyReset, sched.JobWeeklyNight, sched.JobWeeklySleep} {
		require.NoError(t, jobRuns.MarkRun(ctx, "100", string(kind), now))
	}
	jobRuns.marks = 0

	require.NoError(t, svc.Bootstrap(ctx))
	assert.Equal(t, 0, jobRuns.marks)
}
