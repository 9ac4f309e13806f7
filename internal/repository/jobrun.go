package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// JobRunRepository persists the last completed run of each rollover
// job. The stamps let a restarted process detect a tick it slept
// through and run it once, late.
type JobRunRepository struct {
	pool         *pgxpool.Pool
	queryTimeout time.Duration
}

// NewJobRunRepository creates a new JobRunRepository instance.
func NewJobRunRepository(pool *pgxpool.Pool, queryTimeout time.Duration) *JobRunRepository {
	if queryTimeout <= 0 {
		queryTimeout = 5 * time.Second
	}
	return &JobRunRepository{pool: pool, queryTimeout: queryTimeout}
}

// LastRun returns when the job last completed, or the zero time if it
// has never run.
func (r *JobRunRepository) LastRun(ctx context.Context, groupID, kind string) (time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	const query = `SELECT last_run FROM job_runs WHERE group_id = $1 AND kind = $2`

	var at time.Time
	if err := r.pool.QueryRow(ctx, query, groupID, kind).Scan(&at); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("failed to load job run: %w", err)
	}
	return at, nil
}

// MarkRun records a completed job run.
func (r *JobRunRepository) MarkRun(ctx context.Context, groupID, kind string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	const query = `
		INSERT INTO job_runs (group_id, kind, last_run)
		VALUES ($1, $2, $3)
		ON CONFLICT (group_id, kind) DO UPDATE SET last_run = $3
	`
	if _, err := r.pool.Exec(ctx, query, groupID, kind, at); err != nil {
		return fmt.Errorf("failed to mark job run: %w", err)
	}
	return nil
}
