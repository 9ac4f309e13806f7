package handler

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-morning-bot/internal/service"
)

// RoutineHandler handles the read-only 作息 queries.
type RoutineHandler struct {
	routines *service.RoutineService
}

// NewRoutineHandler creates a new RoutineHandler.
func NewRoutineHandler(routines *service.RoutineService) *RoutineHandler {
	return &RoutineHandler{routines: routines}
}

// HandleMyRoutine handles 我的作息.
func (h *RoutineHandler) HandleMyRoutine(c tele.Context) error {
	groupID, userID, ok := chatIDs(c)
	if !ok {
		return nil
	}

	msg, err := h.routines.MyRoutine(context.Background(), groupID, userID, time.Now())
	if err != nil {
		log.Error().Err(err).Str("group_id", groupID).Str("user_id", userID).Msg("Routine query failed")
		return c.Reply(storeFailureReply)
	}
	return c.Reply(msg)
}

// HandleGroupRoutine handles 群友作息.
func (h *RoutineHandler) HandleGroupRoutine(c tele.Context) error {
	groupID, _, ok := chatIDs(c)
	if !ok {
		return nil
	}

	msg, err := h.routines.GroupRoutine(context.Background(), groupID)
	if err != nil {
		log.Error().Err(err).Str("group_id", groupID).Msg("Group routine query failed")
		return c.Reply(storeFailureReply)
	}
	return c.Reply(msg)
}
