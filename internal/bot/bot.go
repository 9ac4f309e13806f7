// Package bot provides the Telegram bot initialization and the routing
// of the Chinese command vocabulary onto handlers.
package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-morning-bot/internal/config"
	"telegram-morning-bot/internal/handler"
	"telegram-morning-bot/internal/service"
)

// helpMessage lists the supported commands.
const helpMessage = `おはよう！
[早安] 早安/哦嗨哟/おはよう
[晚安] 晚安/哦呀斯密/おやすみ
[我的作息] 看看自己的作息
[群友作息] 看看今天几个人睡觉或起床了
[早晚安设置] 查看配置

=== 设置 ===
[早安开启 xx] 开启某个配置
[早安关闭 xx] 关闭某个配置
[早安设置 xx x] 设置数值
[晚安开启 xx] 开启某个配置
[晚安关闭 xx] 关闭某个配置
[晚安设置 xx x] 设置数值`

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot *tele.Bot
	cfg *config.Config

	actionHandler   *handler.ActionHandler
	routineHandler  *handler.RoutineHandler
	settingsHandler *handler.SettingsHandler
}

// Dependencies holds everything the bot handlers need.
type Dependencies struct {
	Config     *config.Config
	Actions    *service.ActionService
	Routines   *service.RoutineService
	Settings   *service.SettingsService
	Honorifics handler.HonorificResolver
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot: teleBot,
		cfg: deps.Config,

		actionHandler:   handler.NewActionHandler(deps.Actions, deps.Honorifics),
		routineHandler:  handler.NewRoutineHandler(deps.Routines),
		settingsHandler: handler.NewSettingsHandler(deps.Config, deps.Settings),
	}

	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg))
	b.bot.Use(LoggingMiddleware())

	b.bot.Handle("/start", b.handleHelp)
	b.bot.Handle("/help", b.handleHelp)
	b.bot.Handle(tele.OnText, b.routeText)

	return b, nil
}

// handleHelp replies with the command summary.
func (b *Bot) handleHelp(c tele.Context) error {
	return c.Reply(helpMessage)
}

// routeText dispatches the Chinese command vocabulary. Unrecognized
// chatter is ignored.
func (b *Bot) routeText(c tele.Context) error {
	text := strings.TrimSpace(c.Text())

	switch text {
	case "早安", "哦嗨哟", "おはよう":
		return b.actionHandler.HandleMorning(c)
	case "晚安", "哦呀斯密", "おやすみ":
		return b.actionHandler.HandleNight(c)
	case "我的作息":
		return b.routineHandler.HandleMyRoutine(c)
	case "群友作息":
		return b.routineHandler.HandleGroupRoutine(c)
	case "早晚安设置":
		return b.settingsHandler.HandleDescribe(c)
	case "早晚安帮助":
		return b.handleHelp(c)
	}

	for _, cmd := range []struct {
		prefix  string
		handler func(tele.Context, string) error
	}{
		{"早安开启", func(c tele.Context, args string) error { return b.settingsHandler.HandleToggle(c, true, true, args) }},
		{"早安关闭", func(c tele.Context, args string) error { return b.settingsHandler.HandleToggle(c, true, false, args) }},
		{"早安设置", func(c tele.Context, args string) error { return b.settingsHandler.HandleSetValue(c, true, args) }},
		{"晚安开启", func(c tele.Context, args string) error { return b.settingsHandler.HandleToggle(c, false, true, args) }},
		{"晚安关闭", func(c tele.Context, args string) error { return b.settingsHandler.HandleToggle(c, false, false, args) }},
		{"晚安设置", func(c tele.Context, args string) error { return b.settingsHandler.HandleSetValue(c, false, args) }},
	} {
		if strings.HasPrefix(text, cmd.prefix) {
			return cmd.handler(c, strings.TrimSpace(strings.TrimPrefix(text, cmd.prefix)))
		}
	}

	return nil
}

// Start starts the bot polling.
func (b *Bot) Start() {
	log.Info().Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
