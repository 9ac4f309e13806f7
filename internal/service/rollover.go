package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"telegram-morning-bot/internal/model"
	"telegram-morning-bot/internal/pkg/lock"
	"telegram-morning-bot/internal/pkg/sched"
	"telegram-morning-bot/internal/repository"
)

// jobTimeout bounds a single job invocation end to end. A job that
// cannot finish logs and relies on its next tick; every rollover is
// idempotent so at-least-once is enough.
const jobTimeout = time.Minute

// RolloverService derives and installs the recurring per-group jobs
// that reset daily counters and rotate weekly statistics, and applies
// their mutations under the same per-group lock as live user actions.
type RolloverService struct {
	records  RecordStore
	configs  ConfigStore
	jobRuns  JobRunStore
	locks    *lock.GroupLock
	sched    *sched.Scheduler
	boundary time.Weekday
}

// NewRolloverService creates a new RolloverService instance.
func NewRolloverService(
	records RecordStore,
	configs ConfigStore,
	jobRuns JobRunStore,
	locks *lock.GroupLock,
	scheduler *sched.Scheduler,
	boundary time.Weekday,
) *RolloverService {
	return &RolloverService{
		records:  records,
		configs:  configs,
		jobRuns:  jobRuns,
		locks:    locks,
		sched:    scheduler,
		boundary: boundary,
	}
}

// deriveTriggers computes the active jobs and their triggers from a
// group's configuration. Disabled windows drop their jobs. When the
// night window's late hour reads as "early next morning" the weekly
// night boundary shifts to the following day.
func (s *RolloverService) deriveTriggers(cfg *model.GroupConfig) map[sched.JobKind]sched.Trigger {
	triggers := make(map[sched.JobKind]sched.Trigger)

	if cfg.Night.Window.Enable {
		triggers[sched.JobDailyReset] = sched.Trigger{Hour: cfg.Night.Window.EarlyHour}

		nightDay := s.boundary
		if cfg.Night.Window.LateHour < 12 {
			nightDay = (s.boundary + 1) % 7
		}
		triggers[sched.JobWeeklyNight] = sched.Trigger{Hour: cfg.Night.Window.LateHour, Weekday: &nightDay}
	}

	if cfg.Morning.Window.Enable {
		sleepDay := s.boundary
		triggers[sched.JobWeeklySleep] = sched.Trigger{Hour: cfg.Morning.Window.LateHour, Weekday: &sleepDay}
	}

	return triggers
}

// Reconfigure re-derives a group's jobs from its current effective
// configuration, replacing installed triggers and removing jobs whose
// governing window is disabled.
func (s *RolloverService) Reconfigure(ctx context.Context, groupID string) error {
	cfg, err := s.configs.Effective(ctx, groupID)
	if err != nil {
		return fmt.Errorf("failed to load group config: %w", err)
	}

	triggers := s.deriveTriggers(cfg)
	for _, kind := range []sched.JobKind{sched.JobDailyReset, sched.JobWeeklyNight, sched.JobWeeklySleep} {
		key := sched.JobKey{GroupID: groupID, Kind: kind}
		trigger, active := triggers[kind]
		if !active {
			if s.sched.Installed(key) {
				s.sched.Remove(key)
			}
			continue
		}
		kind := kind
		if err := s.sched.Upsert(key, trigger, func() { s.runJob(kind, groupID) }); err != nil {
			log.Error().Err(err).Stringer("job", key).Msg("Failed to install rollover job")
			return err
		}
	}
	return nil
}

// Bootstrap installs jobs for every known group and makes up any tick
// missed while the process was down: a job whose previous scheduled
// fire time postdates its last recorded run is executed once, late.
func (s *RolloverService) Bootstrap(ctx context.Context) error {
	groups, err := s.records.GroupIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list groups: %w", err)
	}

	now := time.Now()
	for _, groupID := range groups {
		if err := s.Reconfigure(ctx, groupID); err != nil {
			log.Error().Err(err).Str("group_id", groupID).Msg("Failed to install rollover jobs")
			continue
		}

		cfg, err := s.configs.Effective(ctx, groupID)
		if err != nil {
			continue
		}
		for kind, trigger := range s.deriveTriggers(cfg) {
			lastRun, err := s.jobRuns.LastRun(ctx, groupID, string(kind))
			if err != nil {
				log.Warn().Err(err).Str("group_id", groupID).Msg("Failed to read job stamp")
				continue
			}
			if prev := trigger.PrevFire(now); lastRun.Before(prev) {
				log.Info().
					Str("group_id", groupID).
					Str("kind", string(kind)).
					Time("missed_tick", prev).
					Msg("Running missed rollover late")
				s.runJob(kind, groupID)
			}
		}
	}
	return nil
}

// runJob executes one rollover for one group. Store failures are
// logged and left for the next tick.
func (s *RolloverService) runJob(kind sched.JobKind, groupID string) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	err := s.locks.WithLockContext(ctx, groupID, 10*time.Second, func() error {
		rec, err := s.records.Load(ctx, groupID)
		if errors.Is(err, repository.ErrRecordNotFound) {
			// Nothing to roll over yet.
			return nil
		}
		if err != nil {
			return err
		}

		switch kind {
		case sched.JobDailyReset:
			applyDailyReset(rec)
		case sched.JobWeeklyNight:
			applyWeeklyNight(rec)
		case sched.JobWeeklySleep:
			applyWeeklySleep(rec)
		}

		return s.records.Save(ctx, groupID, rec)
	})
	if err != nil {
		log.Error().Err(err).
			Str("group_id", groupID).
			Str("kind", string(kind)).
			Msg("Rollover failed, relying on next tick")
		return
	}

	if err := s.jobRuns.MarkRun(ctx, groupID, string(kind), time.Now()); err != nil {
		log.Warn().Err(err).
			Str("group_id", groupID).
			Str("kind", string(kind)).
			Msg("Failed to stamp job run")
	}

	log.Info().
		Str("group_id", groupID).
		Str("kind", string(kind)).
		Msg("Rollover completed")
}

// applyDailyReset zeroes the group's daily tallies. Running it twice
// in a row is a no-op.
func applyDailyReset(rec *model.GroupRecord) {
	rec.Group.Daily = model.DailyCount{}
}

// applyWeeklyNight freezes each user's weekly night count into last
// week's slot and restarts the running count.
func applyWeeklyNight(rec *model.GroupRecord) {
	for _, user := range rec.Users {
		user.Weekly.LastWeekNightCount = user.Weekly.NightCount
		user.Weekly.NightCount = 0
	}
}

// applyWeeklySleep freezes each user's weekly morning count and sleep
// duration, restarts both, then crowns the user with the longest
// frozen sleep. Users are scanned in sorted id order so ties resolve
// to the same champion on every run.
func applyWeeklySleep(rec *model.GroupRecord) {
	ids := make([]string, 0, len(rec.Users))
	for uid := range rec.Users {
		ids = append(ids, uid)
	}
	sort.Strings(ids)

	var champion string
	var best time.Duration = -1
	for _, uid := range ids {
		user := rec.Users[uid]
		user.Weekly.LastWeekMorningCount = user.Weekly.MorningCount
		user.Weekly.LastWeekSleep = user.Weekly.Sleep
		user.Weekly.MorningCount = 0
		user.Weekly.Sleep = model.ClockTime{}

		if d := user.Weekly.LastWeekSleep.Duration(); d > best {
			best = d
			champion = uid
		}
	}

	rec.Group.Weekly.SleepChampion = champion
}
