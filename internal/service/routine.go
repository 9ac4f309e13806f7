package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"telegram-morning-bot/internal/model"
	"telegram-morning-bot/internal/repository"
)

// weekLabels maps a weekday to the 周X display form.
var weekLabels = map[time.Weekday]string{
	time.Monday:    "一",
	time.Tuesday:   "二",
	time.Wednesday: "三",
	time.Thursday:  "四",
	time.Friday:    "五",
	time.Saturday:  "六",
	time.Sunday:    "日",
}

// RoutineService answers the read-only routine queries.
type RoutineService struct {
	records  RecordStore
	configs  ConfigStore
	boundary time.Weekday
}

// NewRoutineService creates a new RoutineService instance.
func NewRoutineService(records RecordStore, configs ConfigStore, boundary time.Weekday) *RoutineService {
	return &RoutineService{records: records, configs: configs, boundary: boundary}
}

// MyRoutine renders one user's routine summary. On the weekly boundary
// day it shows last week's data, including the sleep details once the
// weekly-sleep rollover hour has passed; on other days it shows the
// running week.
func (s *RoutineService) MyRoutine(ctx context.Context, groupID, userID string, now time.Time) (string, error) {
	rec, err := s.records.Load(ctx, groupID)
	if err != nil && !errors.Is(err, repository.ErrRecordNotFound) {
		return "", fmt.Errorf("failed to load group state: %w", err)
	}

	var user *model.UserState
	if rec != nil {
		user = rec.Users[userID]
	}
	if user == nil {
		return "你本周还没有早安晚安过呢！暂无数据~", nil
	}

	var b strings.Builder
	b.WriteString("你的作息数据如下：")
	fmt.Fprintf(&b, "\n最近一次早安时间为%s", formatMaybe(user.Daily.MorningTime))
	fmt.Fprintf(&b, "\n最近一次晚安时间为%s", formatMaybe(user.Daily.NightTime))

	if now.Weekday() == s.boundary {
		fmt.Fprintf(&b, "\n上周早安了%d次", user.Weekly.LastWeekMorningCount)
		fmt.Fprintf(&b, "\n上周晚安了%d次", user.Weekly.LastWeekNightCount)

		if hour, ok := s.sleepRefreshHour(ctx, groupID); ok && pastHour(now, hour) {
			fmt.Fprintf(&b, "\n上周睡眠时间为%s", user.Weekly.LastWeekSleep.LongString())
			if t := user.Weekly.LastWeekLatestNight; !t.IsZero() {
				fmt.Fprintf(&b, "\n上周最晚晚安时间是周%s %s", weekLabels[t.Weekday()], t.Format("15:04:05"))
			}
			if t := user.Weekly.LastWeekEarliestMorning; !t.IsZero() {
				fmt.Fprintf(&b, "\n上周最早早安时间是周%s %s", weekLabels[t.Weekday()], t.Format("15:04:05"))
			}
		}
	} else {
		fmt.Fprintf(&b, "\n本周早安了%d次", user.Weekly.MorningCount)
		fmt.Fprintf(&b, "\n本周晚安了%d次", user.Weekly.NightCount)
	}

	fmt.Fprintf(&b, "\n一共早安了%d次", user.Total.MorningCount)
	fmt.Fprintf(&b, "\n一共晚安了%d次", user.Total.NightCount)
	fmt.Fprintf(&b, "\n一共睡眠了%s", user.Total.Sleep.LongString())

	return b.String(), nil
}

// GroupRoutine renders the group's daily tally and, when crowned, last
// week's sleep champion.
func (s *RoutineService) GroupRoutine(ctx context.Context, groupID string) (string, error) {
	rec, err := s.records.Load(ctx, groupID)
	if errors.Is(err, repository.ErrRecordNotFound) {
		rec = model.NewGroupRecord()
	} else if err != nil {
		return "", fmt.Errorf("failed to load group state: %w", err)
	}

	msg := fmt.Sprintf("今天已经有%d位群友早安了，%d位群友晚安了~",
		rec.Group.Daily.GoodMorning, rec.Group.Daily.GoodNight)
	if champ := rec.Group.Weekly.SleepChampion; champ != "" {
		msg += fmt.Sprintf("\n上周的睡眠之王是%s~", champ)
	}
	return msg, nil
}

// sleepRefreshHour returns the hour the weekly-sleep rollover fires,
// or false when the morning window is disabled and no such job runs.
func (s *RoutineService) sleepRefreshHour(ctx context.Context, groupID string) (int, bool) {
	cfg, err := s.configs.Effective(ctx, groupID)
	if err != nil || !cfg.Morning.Window.Enable {
		return 0, false
	}
	return cfg.Morning.Window.LateHour, true
}

// pastHour reports whether now is strictly past the top of the given
// hour.
func pastHour(now time.Time, hour int) bool {
	if now.Hour() != hour {
		return now.Hour() > hour
	}
	return now.Minute() > 0 || now.Second() > 0
}

// formatMaybe renders a timestamp, or a placeholder when absent.
func formatMaybe(t model.Timestamp) string {
	if t.IsZero() {
		return "无记录"
	}
	return t.Format(model.TimeLayout)
}
