// Package main is the entry point for the morning bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"telegram-morning-bot/internal/bot"
	"telegram-morning-bot/internal/config"
	"telegram-morning-bot/internal/handler"
	"telegram-morning-bot/internal/pkg/db"
	"telegram-morning-bot/internal/pkg/lock"
	"telegram-morning-bot/internal/pkg/sched"
	"telegram-morning-bot/internal/repository"
	"telegram-morning-bot/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Repositories
	recordRepo := repository.NewRecordRepository(dbPool.Pool, cfg.Database.QueryTimeout)
	configRepo := repository.NewConfigRepository(dbPool.Pool, cfg.Database.QueryTimeout)
	jobRunRepo := repository.NewJobRunRepository(dbPool.Pool, cfg.Database.QueryTimeout)

	// Seed the fallback rule set on first start.
	defaultConfig := cfg.Rules.DefaultGroupConfig()
	if err := configRepo.SeedDefault(ctx, &defaultConfig); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed default config")
	}

	groupLock := lock.NewGroupLock()
	scheduler := sched.New(time.Local)

	// Services
	rolloverService := service.NewRolloverService(
		recordRepo, configRepo, jobRunRepo, groupLock, scheduler,
		cfg.Rollover.BoundaryWeekday(),
	)
	actionService := service.NewActionService(recordRepo, configRepo, groupLock, rolloverService)
	routineService := service.NewRoutineService(recordRepo, configRepo, cfg.Rollover.BoundaryWeekday())
	settingsService := service.NewSettingsService(configRepo, rolloverService)

	// Install rollover jobs for every known group, running any tick
	// missed while the process was down.
	if err := rolloverService.Bootstrap(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to bootstrap rollover jobs")
	}
	scheduler.Start()
	defer scheduler.Stop()

	deps := &bot.Dependencies{
		Config:     cfg,
		Actions:    actionService,
		Routines:   routineService,
		Settings:   settingsService,
		Honorifics: handler.DefaultHonorific{},
	}

	telegramBot, err := bot.New(deps)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	telegramBot.Stop()
	log.Info().Msg("Bot stopped gracefully")
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: per-group sleep records, one JSONB document each
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS sleep_records (
			group_id TEXT PRIMARY KEY,
			record JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: sleep_records table created")

	// Migration 2: per-group rule configuration with a 'default' row
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS sleep_configs (
			group_id TEXT PRIMARY KEY,
			config JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: sleep_configs table created")

	// Migration 3: rollover job run stamps for missed-tick catch-up
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS job_runs (
			group_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			last_run TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (group_id, kind)
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 3: job_runs table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
