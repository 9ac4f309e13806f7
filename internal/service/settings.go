package service

import (
	"context"
	"fmt"
	"strings"

	"telegram-morning-bot/internal/model"
)

// SettingKind identifies one configurable rule. The chat-facing
// vocabulary maps onto these at the handler boundary; the core never
// sees command words.
type SettingKind int

// The six configurable rules.
const (
	SettingMorningWindow SettingKind = iota
	SettingMultiGetUp
	SettingSuperGetUp
	SettingNightWindow
	SettingGoodSleep
	SettingDeepSleep
)

// isWindow reports whether the setting takes an early/late hour pair
// rather than a single interval.
func (k SettingKind) isWindow() bool {
	return k == SettingMorningWindow || k == SettingNightWindow
}

// defaultEnabled is the enable state a setting returns to when its
// value is changed: windows and good_sleep guard by default, the
// others are opt-in.
func (k SettingKind) defaultEnabled() bool {
	switch k {
	case SettingMorningWindow, SettingNightWindow, SettingGoodSleep:
		return true
	default:
		return false
	}
}

// affectsJobs reports whether changing the setting can move or
// enable/disable a rollover job trigger.
func (k SettingKind) affectsJobs() bool {
	return k == SettingMorningWindow || k == SettingNightWindow
}

// JobReconfigurer re-derives a group's rollover jobs after its
// configuration changed.
type JobReconfigurer interface {
	Reconfigure(ctx context.Context, groupID string) error
}

// SettingsService reads and mutates group rule configuration. All
// mutations validate first; invalid input leaves the stored config
// untouched.
type SettingsService struct {
	configs  ConfigStore
	rollover JobReconfigurer
}

// NewSettingsService creates a new SettingsService instance. rollover
// may be nil when no scheduler is attached (tests).
func NewSettingsService(configs ConfigStore, rollover JobReconfigurer) *SettingsService {
	return &SettingsService{configs: configs, rollover: rollover}
}

// Describe renders the effective configuration for a group, or the
// default configuration when groupID is empty.
func (s *SettingsService) Describe(ctx context.Context, groupID string) (string, error) {
	if groupID == "" {
		groupID = model.DefaultGroupKey
	}
	cfg, err := s.configs.Effective(ctx, groupID)
	if err != nil {
		return "", fmt.Errorf("failed to load group config: %w", err)
	}

	var b strings.Builder
	b.WriteString("早安晚安设置如下：")

	if w := cfg.Morning.Window; w.Enable {
		fmt.Fprintf(&b, "\n是否要求规定时间内起床：是\n - 最早允许起床时间：%d点\n - 最晚允许起床时间：%d点", w.EarlyHour, w.LateHour)
	} else {
		b.WriteString("\n是否要求规定时间内起床：否")
	}
	if r := cfg.Morning.MultiGetUp; r.Enable {
		b.WriteString("\n是否允许连续多次起床：是")
	} else {
		fmt.Fprintf(&b, "\n是否允许连续多次起床：否\n - 允许的最短起床间隔：%d小时", r.Interval)
	}
	if r := cfg.Morning.SuperGetUp; r.Enable {
		b.WriteString("\n是否允许超级亢奋(即睡眠时长很短)：是")
	} else {
		fmt.Fprintf(&b, "\n是否允许超级亢奋(即睡眠时长很短)：否\n - 允许的最短睡觉时长：%d小时", r.Interval)
	}

	if w := cfg.Night.Window; w.Enable {
		fmt.Fprintf(&b, "\n是否要求规定时间内睡觉：是\n - 最早允许睡觉时间：%d点\n - 最晚允许睡觉时间：第二天早上%d点", w.EarlyHour, w.LateHour)
	} else {
		b.WriteString("\n是否要求规定时间内睡觉：否")
	}
	if r := cfg.Night.GoodSleep; r.Enable {
		b.WriteString("\n是否开启优质睡眠：是")
	} else {
		fmt.Fprintf(&b, "\n是否开启优质睡眠：否\n - 允许的最短优质睡眠：%d小时", r.Interval)
	}
	if r := cfg.Night.DeepSleep; r.Enable {
		b.WriteString("\n是否允许深度睡眠(即清醒时长很短)：是")
	} else {
		fmt.Fprintf(&b, "\n是否允许深度睡眠(即清醒时长很短)：否\n - 允许的最短清醒时长：%d小时", r.Interval)
	}

	return b.String(), nil
}

// Toggle enables or disables one setting for a group and re-derives
// the group's rollover jobs when the change moves a trigger.
func (s *SettingsService) Toggle(ctx context.Context, groupID string, kind SettingKind, enable bool) (Result, error) {
	cfg, err := s.configs.Effective(ctx, groupID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load group config: %w", err)
	}

	switch kind {
	case SettingMorningWindow:
		cfg.Morning.Window.Enable = enable
	case SettingMultiGetUp:
		cfg.Morning.MultiGetUp.Enable = enable
	case SettingSuperGetUp:
		cfg.Morning.SuperGetUp.Enable = enable
	case SettingNightWindow:
		cfg.Night.Window.Enable = enable
	case SettingGoodSleep:
		cfg.Night.GoodSleep.Enable = enable
	case SettingDeepSleep:
		cfg.Night.DeepSleep.Enable = enable
	}

	if err := s.configs.Save(ctx, groupID, cfg); err != nil {
		return Result{}, fmt.Errorf("failed to save group config: %w", err)
	}

	s.reconfigure(ctx, groupID, kind)
	return accepted("配置更新成功！"), nil
}

// SetValue updates a setting's numeric parameters. Window settings
// take an early and a late hour; interval settings take a single hour
// count. Values outside [0,24] reject without mutating anything, and
// a value change restores the setting's default enable state.
func (s *SettingsService) SetValue(ctx context.Context, groupID string, kind SettingKind, params []int) (Result, error) {
	if kind.isWindow() {
		if len(params) < 2 {
			return rejected("配置更新失败：缺少参数！"), nil
		}
		for _, h := range params[:2] {
			if h < 0 || h > 24 {
				return rejected("错误！您设置的时间未在0-24之间，要求：0 <= 时间 <= 24"), nil
			}
		}
	} else {
		if len(params) < 1 {
			return rejected("配置更新失败：缺少参数！"), nil
		}
		if params[0] < 0 || params[0] > 24 {
			return rejected("错误！您设置的时间间隔未在0-24之间，要求：0 <= 时间 <= 24"), nil
		}
	}

	cfg, err := s.configs.Effective(ctx, groupID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load group config: %w", err)
	}

	var enable *bool
	switch kind {
	case SettingMorningWindow:
		cfg.Morning.Window.EarlyHour, cfg.Morning.Window.LateHour = params[0], params[1]
		enable = &cfg.Morning.Window.Enable
	case SettingNightWindow:
		cfg.Night.Window.EarlyHour, cfg.Night.Window.LateHour = params[0], params[1]
		enable = &cfg.Night.Window.Enable
	case SettingMultiGetUp:
		cfg.Morning.MultiGetUp.Interval = params[0]
		enable = &cfg.Morning.MultiGetUp.Enable
	case SettingSuperGetUp:
		cfg.Morning.SuperGetUp.Interval = params[0]
		enable = &cfg.Morning.SuperGetUp.Enable
	case SettingGoodSleep:
		cfg.Night.GoodSleep.Interval = params[0]
		enable = &cfg.Night.GoodSleep.Enable
	case SettingDeepSleep:
		cfg.Night.DeepSleep.Interval = params[0]
		enable = &cfg.Night.DeepSleep.Enable
	}

	msg := "配置更新成功！"
	if want := kind.defaultEnabled(); *enable != want {
		*enable = want
		if want {
			msg += "且此项设置已启用！"
		} else {
			msg += "且此项设置已禁用！"
		}
	}

	if err := s.configs.Save(ctx, groupID, cfg); err != nil {
		return Result{}, fmt.Errorf("failed to save group config: %w", err)
	}

	s.reconfigure(ctx, groupID, kind)
	return accepted(msg), nil
}

// reconfigure re-derives the group's rollover jobs. A scheduler
// failure does not undo the configuration change; it is logged by the
// reconfigurer and corrected on the next change or restart.
func (s *SettingsService) reconfigure(ctx context.Context, groupID string, kind SettingKind) {
	if s.rollover == nil || !kind.affectsJobs() {
		return
	}
	_ = s.rollover.Reconfigure(ctx, groupID)
}
