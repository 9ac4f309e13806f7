// Package sched wraps robfig/cron with structured job identities.
// Jobs are keyed by {group, kind}; installing a key that already exists
// replaces the old trigger atomically, so there is never a window where
// two triggers for the same responsibility are armed at once.
package sched

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// JobKind identifies one of the recurring rollover responsibilities.
type JobKind string

// The three rollover jobs installed per group.
const (
	JobDailyReset  JobKind = "daily_reset"
	JobWeeklyNight JobKind = "weekly_night"
	JobWeeklySleep JobKind = "weekly_sleep"
)

// JobKey identifies one job instance: a responsibility within a group.
type JobKey struct {
	GroupID string
	Kind    JobKind
}

func (k JobKey) String() string {
	return fmt.Sprintf("%s/%s", string(k.Kind), k.GroupID)
}

// Trigger describes when a job fires: on the hour, every day, or on a
// specific weekday.
type Trigger struct {
	Hour    int
	Weekday *time.Weekday // nil fires daily
}

// hour normalizes the configured [0,24] range onto the cron [0,23]
// range; hour 24 means midnight.
func (t Trigger) hour() int {
	return t.Hour % 24
}

// CronSpec renders the trigger as a standard five-field cron spec.
func (t Trigger) CronSpec() string {
	if t.Weekday == nil {
		return fmt.Sprintf("0 %d * * *", t.hour())
	}
	return fmt.Sprintf("0 %d * * %d", t.hour(), int(*t.Weekday))
}

// PrevFire returns the most recent instant at or before now when the
// trigger fired or would have fired. Used at startup to detect ticks
// missed while the process was down.
func (t Trigger) PrevFire(now time.Time) time.Time {
	fire := time.Date(now.Year(), now.Month(), now.Day(), t.hour(), 0, 0, 0, now.Location())
	if t.Weekday == nil {
		if fire.After(now) {
			fire = fire.AddDate(0, 0, -1)
		}
		return fire
	}

	back := int(now.Weekday()) - int(*t.Weekday)
	if back < 0 {
		back += 7
	}
	fire = fire.AddDate(0, 0, -back)
	if fire.After(now) {
		fire = fire.AddDate(0, 0, -7)
	}
	return fire
}

// Scheduler owns the cron runner and the installed job table.
type Scheduler struct {
	cron    *cron.Cron
	mu      sync.Mutex
	entries map[JobKey]cron.EntryID
}

// New creates a Scheduler firing in the given location.
func New(loc *time.Location) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		entries: make(map[JobKey]cron.EntryID),
	}
}

// Start begins dispatching jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels the timers and waits for any running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Upsert installs fn under key with the given trigger, replacing any
// previous installation. The old entry is removed before the new one is
// armed.
func (s *Scheduler) Upsert(key JobKey, trigger Trigger, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[key]; ok {
		s.cron.Remove(old)
		delete(s.entries, key)
		log.Debug().Stringer("job", key).Msg("Replacing scheduled job")
	}

	id, err := s.cron.AddFunc(trigger.CronSpec(), fn)
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", key, err)
	}
	s.entries[key] = id

	log.Info().
		Stringer("job", key).
		Str("spec", trigger.CronSpec()).
		Msg("Scheduled job installed")
	return nil
}

// Remove uninstalls the job under key. Removing a job that is not
// installed is a non-fatal conflict, logged and ignored.
func (s *Scheduler) Remove(key JobKey) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.entries[key]
	if !ok {
		log.Warn().Stringer("job", key).Msg("Remove of job that is not installed")
		return
	}
	s.cron.Remove(id)
	delete(s.entries, key)

	log.Info().Stringer("job", key).Msg("Scheduled job removed")
}

// Installed reports whether a job is currently armed under key.
func (s *Scheduler) Installed(key JobKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	return ok
}
