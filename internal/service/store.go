// Package service implements the sleep-cycle rule engine: action
// validation, state mutation, routine queries, rule configuration and
// the scheduled rollovers.
package service

import (
	"context"
	"time"

	"telegram-morning-bot/internal/model"
)

// RecordStore is the durable store of per-group sleep records. Load
// and Save bracket a single logical transaction; the caller holds the
// group's lock for the whole cycle.
type RecordStore interface {
	Load(ctx context.Context, groupID string) (*model.GroupRecord, error)
	Save(ctx context.Context, groupID string, rec *model.GroupRecord) error
	GroupIDs(ctx context.Context) ([]string, error)
}

// ConfigStore is the durable store of per-group rule configuration.
type ConfigStore interface {
	Load(ctx context.Context, groupID string) (*model.GroupConfig, error)
	Effective(ctx context.Context, groupID string) (*model.GroupConfig, error)
	Save(ctx context.Context, groupID string, cfg *model.GroupConfig) error
}

// JobRunStore records when each rollover job last completed, so a
// restart can detect and make up a missed tick.
type JobRunStore interface {
	LastRun(ctx context.Context, groupID, kind string) (time.Time, error)
	MarkRun(ctx context.Context, groupID, kind string, at time.Time) error
}

// Result is the outcome of evaluating a user action or a settings
// change. A rule rejection is a Result with Accepted=false and the
// user-facing explanation; it is never an error.
type Result struct {
	Accepted bool
	Message  string
}

// rejected builds a rejection Result.
func rejected(msg string) Result {
	return Result{Accepted: false, Message: msg}
}

// accepted builds a success Result.
func accepted(msg string) Result {
	return Result{Accepted: true, Message: msg}
}
