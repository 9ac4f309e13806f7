// Package handler provides Telegram command handlers. Handlers adapt
// chat messages into core operations and reply with the result; no
// rule logic lives here.
package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-morning-bot/internal/service"
)

// storeFailureReply is the generic reply for store failures. Rule
// rejections carry their own specific message; store trouble never
// leaks implementation detail to the chat.
const storeFailureReply = "操作失败，请稍后重试"

// HonorificResolver resolves the display honorific for a user, e.g.
// from group member metadata. The default implementation knows nothing
// about the user and uses 群友.
type HonorificResolver interface {
	Honorific(groupID, userID string) string
}

// DefaultHonorific is the resolver used when no richer metadata source
// is wired in.
type DefaultHonorific struct{}

// Honorific returns the generic group-member honorific.
func (DefaultHonorific) Honorific(groupID, userID string) string {
	return "群友"
}

// chatIDs extracts the group and user ids from the update.
func chatIDs(c tele.Context) (groupID, userID string, ok bool) {
	chat, sender := c.Chat(), c.Sender()
	if chat == nil || sender == nil {
		return "", "", false
	}
	return strconv.FormatInt(chat.ID, 10), strconv.FormatInt(sender.ID, 10), true
}

// ActionHandler handles the 早安 and 晚安 actions.
type ActionHandler struct {
	actions *service.ActionService
	names   HonorificResolver
}

// NewActionHandler creates a new ActionHandler.
func NewActionHandler(actions *service.ActionService, names HonorificResolver) *ActionHandler {
	if names == nil {
		names = DefaultHonorific{}
	}
	return &ActionHandler{actions: actions, names: names}
}

// HandleMorning handles a 早安 message.
func (h *ActionHandler) HandleMorning(c tele.Context) error {
	groupID, userID, ok := chatIDs(c)
	if !ok {
		return nil
	}

	res, err := h.actions.GoodMorning(context.Background(), groupID, userID,
		h.names.Honorific(groupID, userID), time.Now())
	if err != nil {
		log.Error().Err(err).Str("group_id", groupID).Str("user_id", userID).Msg("Morning action failed")
		return c.Reply(storeFailureReply)
	}
	return c.Reply(res.Message)
}

// HandleNight handles a 晚安 message.
func (h *ActionHandler) HandleNight(c tele.Context) error {
	groupID, userID, ok := chatIDs(c)
	if !ok {
		return nil
	}

	res, err := h.actions.GoodNight(context.Background(), groupID, userID,
		h.names.Honorific(groupID, userID), time.Now())
	if err != nil {
		log.Error().Err(err).Str("group_id", groupID).Str("user_id", userID).Msg("Night action failed")
		return c.Reply(storeFailureReply)
	}
	return c.Reply(res.Message)
}
