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

// ConfigRepository persists per-group rule configuration. The row
// keyed by model.DefaultGroupKey is the fallback every group without
// its own settings inherits.
type ConfigRepository struct {
	pool         *pgxpool.Pool
	queryTimeout time.Duration
}

// NewConfigRepository creates a new ConfigRepository instance.
func NewConfigRepository(pool *pgxpool.Pool, queryTimeout time.Duration) *ConfigRepository {
	if queryTimeout <= 0 {
		queryTimeout = 5 * time.Second
	}
	return &ConfigRepository{pool: pool, queryTimeout: queryTimeout}
}

// Load retrieves the config row stored for exactly this key.
// Returns ErrConfigNotFound when the group has no row of its own.
func (r *ConfigRepository) Load(ctx context.Context, groupID string) (*model.GroupConfig, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	const query = `SELECT config FROM sleep_configs WHERE group_id = $1`

	var raw []byte
	if err := r.pool.QueryRow(ctx, query, groupID).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	var cfg model.GroupConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Effective retrieves the config governing groupID: its own row when
// present, the default row otherwise.
func (r *ConfigRepository) Effective(ctx context.Context, groupID string) (*model.GroupConfig, error) {
	cfg, err := r.Load(ctx, groupID)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, ErrConfigNotFound) {
		return nil, err
	}
	return r.Load(ctx, model.DefaultGroupKey)
}

// Save writes the config row for a group (or the default key).
func (r *ConfigRepository) Save(ctx context.Context, groupID string, cfg *model.GroupConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	const query = `
		INSERT INTO sleep_configs (group_id, config, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (group_id) DO UPDATE SET config = $2, updated_at = NOW()
	`
	if _, err := r.pool.Exec(ctx, query, groupID, raw); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// SeedDefault installs the built-in default rule set if no default row
// exists yet. An existing row is left untouched so operator edits
// survive restarts.
func (r *ConfigRepository) SeedDefault(ctx context.Context, cfg *model.GroupConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	const query = `
		INSERT INTO sleep_configs (group_id, config, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (group_id) DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, query, model.DefaultGroupKey, raw); err != nil {
		return fmt.Errorf("failed to seed default config: %w", err)
	}
	return nil
}
