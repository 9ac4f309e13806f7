package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"telegram-morning-bot/internal/model"
	"telegram-morning-bot/internal/pkg/lock"
	"telegram-morning-bot/internal/repository"
	"telegram-morning-bot/internal/timerule"
)

// staleHours is how old a night record may be before a morning action
// no longer counts as waking up from it. A user whose last night is
// older than this has to report a fresh night first; the morning is
// hard-rejected with no state change.
const staleHours = 24

// ActionService evaluates morning and night actions against the
// group's rules and mutates the durable state on acceptance.
type ActionService struct {
	records  RecordStore
	configs  ConfigStore
	locks    *lock.GroupLock
	rollover JobReconfigurer
}

// NewActionService creates a new ActionService instance. rollover may
// be nil when no scheduler is attached (tests).
func NewActionService(records RecordStore, configs ConfigStore, locks *lock.GroupLock, rollover JobReconfigurer) *ActionService {
	return &ActionService{records: records, configs: configs, locks: locks, rollover: rollover}
}

// loadOrCreate fetches a group's record, lazily creating an empty one
// for a group acting for the first time. The second return reports
// whether the record was created.
func (s *ActionService) loadOrCreate(ctx context.Context, groupID string) (*model.GroupRecord, bool, error) {
	rec, err := s.records.Load(ctx, groupID)
	if errors.Is(err, repository.ErrRecordNotFound) {
		return model.NewGroupRecord(), true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load group state: %w", err)
	}
	return rec, false, nil
}

// ensureJobs installs the rollover jobs for a group persisted for the
// first time. Startup bootstrap only covers groups that already have a
// record; a group entering through a live action gets its jobs here.
func (s *ActionService) ensureJobs(ctx context.Context, groupID string) {
	if s.rollover == nil {
		return
	}
	if err := s.rollover.Reconfigure(ctx, groupID); err != nil {
		log.Warn().Err(err).
			Str("group_id", groupID).
			Msg("Failed to install rollover jobs for new group")
	}
}

// GoodMorning evaluates a morning action. Checks short-circuit on the
// first failing rule; on acceptance the user's sleep duration is
// accumulated and the group's daily rank returned in the message.
func (s *ActionService) GoodMorning(ctx context.Context, groupID, userID, honorific string, now time.Time) (Result, error) {
	cfg, err := s.configs.Effective(ctx, groupID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load group config: %w", err)
	}

	if w := cfg.Morning.Window; w.Enable && !timerule.InMorningWindow(w.EarlyHour, w.LateHour, now) {
		return rejected(fmt.Sprintf("现在不能早安哦，可以早安的时间为%d时到%d时~", w.EarlyHour, w.LateHour)), nil
	}

	s.locks.Lock(groupID)
	defer s.locks.Unlock(groupID)

	rec, created, err := s.loadOrCreate(ctx, groupID)
	if err != nil {
		return Result{}, err
	}

	user := rec.Users[userID]

	// A morning needs a usable night to wake up from: the user must
	// have slept, and within the last 24 hours.
	if user == nil || user.Daily.NightTime.IsZero() ||
		!timerule.WithinInterval(user.Daily.NightTime.Time, now, staleHours) {
		return rejected("你还没睡过觉呢！不能早安哦~"), nil
	}

	if r := cfg.Morning.MultiGetUp; !r.Enable && !user.Daily.MorningTime.IsZero() &&
		timerule.WithinInterval(user.Daily.MorningTime.Time, now, r.Interval) {
		return rejected(fmt.Sprintf("%d小时内你已经早安过了哦~", r.Interval)), nil
	}

	if r := cfg.Morning.SuperGetUp; !r.Enable &&
		timerule.WithinInterval(user.Daily.NightTime.Time, now, r.Interval) {
		return rejected("你可猝死算了吧？现在不能早安哦~"), nil
	}

	inSleep := now.Sub(user.Daily.NightTime.Time)
	user.Weekly.Sleep = user.Weekly.Sleep.Add(inSleep)
	user.Total.Sleep = user.Total.Sleep.Add(inSleep)

	user.Daily.MorningTime = model.NewTimestamp(now)
	user.Weekly.MorningCount++
	user.Total.MorningCount++

	if user.Weekly.LastWeekEarliestMorning.IsZero() ||
		timerule.IsLaterTimeOfDay(now, user.Weekly.LastWeekEarliestMorning.Time) {
		user.Weekly.LastWeekEarliestMorning = model.NewTimestamp(now)
	}

	rec.Group.Daily.GoodMorning++
	rank := rec.Group.Daily.GoodMorning

	if err := s.records.Save(ctx, groupID, rec); err != nil {
		return Result{}, fmt.Errorf("failed to save group state: %w", err)
	}
	if created {
		s.ensureJobs(ctx, groupID)
	}

	return accepted(fmt.Sprintf("早安成功！你的睡眠时长为%s，\n你是今天第%d个起床的%s！",
		model.ClockTimeOf(inSleep), rank, honorific)), nil
}

// GoodNight evaluates a night action. A first-ever night always
// succeeds and creates the user's record.
func (s *ActionService) GoodNight(ctx context.Context, groupID, userID, honorific string, now time.Time) (Result, error) {
	cfg, err := s.configs.Effective(ctx, groupID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load group config: %w", err)
	}

	if w := cfg.Night.Window; w.Enable && !timerule.InNightWindow(w.EarlyHour, w.LateHour, now) {
		return rejected(fmt.Sprintf("现在不能晚安哦，可以晚安的时间为%d时到第二天早上%d时~", w.EarlyHour, w.LateHour)), nil
	}

	s.locks.Lock(groupID)
	defer s.locks.Unlock(groupID)

	rec, created, err := s.loadOrCreate(ctx, groupID)
	if err != nil {
		return Result{}, err
	}

	if user := rec.Users[userID]; user != nil {
		// Note the polarity: good_sleep guards when enabled, deep_sleep
		// when disabled. The vocabulary is inherited.
		if r := cfg.Night.GoodSleep; r.Enable && !user.Daily.NightTime.IsZero() &&
			timerule.WithinInterval(user.Daily.NightTime.Time, now, r.Interval) {
			return rejected(fmt.Sprintf("%d小时内你已经晚安过了哦~", r.Interval)), nil
		}

		if r := cfg.Night.DeepSleep; !r.Enable && !user.Daily.MorningTime.IsZero() &&
			timerule.WithinInterval(user.Daily.MorningTime.Time, now, r.Interval) {
			return rejected("睡这么久还不够？现在不能晚安哦~"), nil
		}
	}

	user := rec.User(userID)

	// Awake duration is display-only, and only when the user woke
	// within the last day.
	var awake string
	if !user.Daily.MorningTime.IsZero() {
		if inDay := now.Sub(user.Daily.MorningTime.Time); inDay < staleHours*time.Hour {
			awake = model.ClockTimeOf(inDay).String()
		}
	}

	user.Daily.NightTime = model.NewTimestamp(now)
	user.Weekly.NightCount++
	user.Total.NightCount++

	if user.Weekly.LastWeekLatestNight.IsZero() ||
		timerule.IsLaterTimeOfDay(now, user.Weekly.LastWeekLatestNight.Time) {
		user.Weekly.LastWeekLatestNight = model.NewTimestamp(now)
	}

	rec.Group.Daily.GoodNight++
	rank := rec.Group.Daily.GoodNight

	if err := s.records.Save(ctx, groupID, rec); err != nil {
		return Result{}, fmt.Errorf("failed to save group state: %w", err)
	}
	if created {
		s.ensureJobs(ctx, groupID)
	}

	if awake == "" {
		return accepted(fmt.Sprintf("晚安成功！你是今天第%d个睡觉的%s！", rank, honorific)), nil
	}
	return accepted(fmt.Sprintf("晚安成功！你今天的清醒时长为%s，\n你是今天第%d个睡觉的%s！", awake, rank, honorific)), nil
}
