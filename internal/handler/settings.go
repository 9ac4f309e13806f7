package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-morning-bot/internal/config"
	"telegram-morning-bot/internal/service"
)

// The chat-facing setting vocabulary, kept at this boundary so the
// core only ever sees SettingKind values. 时限 means the window rule in
// both sections.
var (
	morningVocab = map[string]service.SettingKind{
		"时限":   service.SettingMorningWindow,
		"多重起床": service.SettingMultiGetUp,
		"超级亢奋": service.SettingSuperGetUp,
	}
	nightVocab = map[string]service.SettingKind{
		"时限":   service.SettingNightWindow,
		"优质睡眠": service.SettingGoodSleep,
		"深度睡眠": service.SettingDeepSleep,
	}
)

// SettingsHandler handles the rule configuration commands.
type SettingsHandler struct {
	cfg      *config.Config
	settings *service.SettingsService
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(cfg *config.Config, settings *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{cfg: cfg, settings: settings}
}

// HandleDescribe handles 早晚安设置: show the group's effective rules.
func (h *SettingsHandler) HandleDescribe(c tele.Context) error {
	groupID, _, ok := chatIDs(c)
	if !ok {
		return nil
	}

	msg, err := h.settings.Describe(context.Background(), groupID)
	if err != nil {
		log.Error().Err(err).Str("group_id", groupID).Msg("Config query failed")
		return c.Reply(storeFailureReply)
	}
	return c.Reply(msg)
}

// HandleToggle handles 早安开启/早安关闭/晚安开启/晚安关闭 followed by a
// setting name.
func (h *SettingsHandler) HandleToggle(c tele.Context, morning bool, enable bool, args string) error {
	groupID, _, ok := chatIDs(c)
	if !ok {
		return nil
	}
	if !h.isAdmin(c) {
		return c.Reply("❌ 权限不足：需要管理员权限")
	}

	fields := strings.Fields(args)
	if len(fields) == 0 {
		return c.Reply("还没输入参数呢~")
	}
	if len(fields) > 1 {
		return c.Reply("参数太多啦~")
	}

	kind, ok := lookupSetting(morning, fields[0])
	if !ok {
		return c.Reply(fmt.Sprintf("不存在该配置项：%s", fields[0]))
	}

	res, err := h.settings.Toggle(context.Background(), groupID, kind, enable)
	if err != nil {
		log.Error().Err(err).Str("group_id", groupID).Msg("Config toggle failed")
		return c.Reply(storeFailureReply)
	}
	return c.Reply(res.Message)
}

// HandleSetValue handles 早安设置/晚安设置 followed by a setting name and
// one or two hour values.
func (h *SettingsHandler) HandleSetValue(c tele.Context, morning bool, args string) error {
	groupID, _, ok := chatIDs(c)
	if !ok {
		return nil
	}
	if !h.isAdmin(c) {
		return c.Reply("❌ 权限不足：需要管理员权限")
	}

	fields := strings.Fields(args)
	if len(fields) == 0 {
		return c.Reply("还没输入参数呢~")
	}
	if len(fields) > 3 {
		return c.Reply("参数太多啦~")
	}

	kind, ok := lookupSetting(morning, fields[0])
	if !ok {
		return c.Reply(fmt.Sprintf("不存在该配置项：%s", fields[0]))
	}

	params := make([]int, 0, len(fields)-1)
	for _, f := range fields[1:] {
		n, err := strconv.Atoi(f)
		if err != nil {
			return c.Reply(fmt.Sprintf("参数必须是数字：%s", f))
		}
		params = append(params, n)
	}

	res, err := h.settings.SetValue(context.Background(), groupID, kind, params)
	if err != nil {
		log.Error().Err(err).Str("group_id", groupID).Msg("Config update failed")
		return c.Reply(storeFailureReply)
	}
	return c.Reply(res.Message)
}

// lookupSetting maps a vocabulary word to its SettingKind.
func lookupSetting(morning bool, word string) (service.SettingKind, bool) {
	if morning {
		kind, ok := morningVocab[word]
		return kind, ok
	}
	kind, ok := nightVocab[word]
	return kind, ok
}

// isAdmin checks the configured admin list.
func (h *SettingsHandler) isAdmin(c tele.Context) bool {
	sender := c.Sender()
	return sender != nil && h.cfg.IsAdmin(sender.ID)
}
