// Package repository provides the persistence layer. Each group's
// state is stored as one JSONB document keyed by group id, so a
// load-modify-save cycle touches exactly one row.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"telegram-morning-bot/internal/model"
)

// Common errors for repository operations.
var (
	ErrRecordNotFound = errors.New("group record not found")
	ErrConfigNotFound = errors.New("group config not found")
)

// RecordRepository persists per-group sleep records.
type RecordRepository struct {
	pool         *pgxpool.Pool
	queryTimeout time.Duration
}

// NewRecordRepository creates a new RecordRepository instance.
func NewRecordRepository(pool *pgxpool.Pool, queryTimeout time.Duration) *RecordRepository {
	if queryTimeout <= 0 {
		queryTimeout = 5 * time.Second
	}
	return &RecordRepository{pool: pool, queryTimeout: queryTimeout}
}

// Load retrieves a group's record. Returns ErrRecordNotFound for a
// group that has never acted; callers create the record lazily.
func (r *RecordRepository) Load(ctx context.Context, groupID string) (*model.GroupRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	const query = `SELECT record FROM sleep_records WHERE group_id = $1`

	var raw []byte
	if err := r.pool.QueryRow(ctx, query, groupID).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to load record: %w", err)
	}

	var rec model.GroupRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	if rec.Users == nil {
		rec.Users = make(map[string]*model.UserState)
	}
	return &rec, nil
}

// Save writes a group's record, creating the row on first save.
func (r *RecordRepository) Save(ctx context.Context, groupID string, rec *model.GroupRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	const query = `
		INSERT INTO sleep_records (group_id, record, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (group_id) DO UPDATE SET record = $2, updated_at = NOW()
	`
	if _, err := r.pool.Exec(ctx, query, groupID, raw); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

// GroupIDs lists every group with a record, for rollover fan-out.
func (r *RecordRepository) GroupIDs(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	const query = `SELECT group_id FROM sleep_records ORDER BY group_id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan group id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read groups: %w", err)
	}
	return ids, nil
}
