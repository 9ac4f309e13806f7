// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"telegram-morning-bot/internal/model"
)

// Config holds all application configuration.
type Config struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Whitelist WhitelistConfig `mapstructure:"whitelist"`
	Rollover  RolloverConfig  `mapstructure:"rollover"`
	Rules     RulesConfig     `mapstructure:"rules"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token string `mapstructure:"token"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// AdminConfig holds the user ids allowed to change group rule settings.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// WhitelistConfig holds chat whitelist configuration.
type WhitelistConfig struct {
	Chats []int64 `mapstructure:"chats"`
}

// RolloverConfig holds the weekly rollover boundary. The weekday is an
// explicit setting rather than something inferred from window hours.
type RolloverConfig struct {
	// Weekday of the weekly boundary, 0=Sunday .. 6=Saturday.
	Weekday int `mapstructure:"weekday"`
}

// BoundaryWeekday returns the configured weekly boundary day.
func (r *RolloverConfig) BoundaryWeekday() time.Weekday {
	return time.Weekday(((r.Weekday % 7) + 7) % 7)
}

// RulesConfig holds the built-in default rule set seeded into the
// config store on first start. Groups without their own settings
// inherit these.
type RulesConfig struct {
	Morning MorningRules `mapstructure:"morning"`
	Night   NightRules   `mapstructure:"night"`
}

// MorningRules mirrors model.MorningConfig for viper decoding.
type MorningRules struct {
	WindowEnable       bool `mapstructure:"window_enable"`
	WindowEarlyHour    int  `mapstructure:"window_early_hour"`
	WindowLateHour     int  `mapstructure:"window_late_hour"`
	MultiGetUpEnable   bool `mapstructure:"multi_get_up_enable"`
	MultiGetUpInterval int  `mapstructure:"multi_get_up_interval"`
	SuperGetUpEnable   bool `mapstructure:"super_get_up_enable"`
	SuperGetUpInterval int  `mapstructure:"super_get_up_interval"`
}

// NightRules mirrors model.NightConfig for viper decoding.
type NightRules struct {
	WindowEnable      bool `mapstructure:"window_enable"`
	WindowEarlyHour   int  `mapstructure:"window_early_hour"`
	WindowLateHour    int  `mapstructure:"window_late_hour"`
	GoodSleepEnable   bool `mapstructure:"good_sleep_enable"`
	GoodSleepInterval int  `mapstructure:"good_sleep_interval"`
	DeepSleepEnable   bool `mapstructure:"deep_sleep_enable"`
	DeepSleepInterval int  `mapstructure:"deep_sleep_interval"`
}

// DefaultGroupConfig builds the fallback rule set from configuration.
func (r *RulesConfig) DefaultGroupConfig() model.GroupConfig {
	return model.GroupConfig{
		Morning: model.MorningConfig{
			Window: model.WindowRule{
				Enable:    r.Morning.WindowEnable,
				EarlyHour: r.Morning.WindowEarlyHour,
				LateHour:  r.Morning.WindowLateHour,
			},
			MultiGetUp: model.IntervalRule{
				Enable:   r.Morning.MultiGetUpEnable,
				Interval: r.Morning.MultiGetUpInterval,
			},
			SuperGetUp: model.IntervalRule{
				Enable:   r.Morning.SuperGetUpEnable,
				Interval: r.Morning.SuperGetUpInterval,
			},
		},
		Night: model.NightConfig{
			Window: model.WindowRule{
				Enable:    r.Night.WindowEnable,
				EarlyHour: r.Night.WindowEarlyHour,
				LateHour:  r.Night.WindowLateHour,
			},
			GoodSleep: model.IntervalRule{
				Enable:   r.Night.GoodSleepEnable,
				Interval: r.Night.GoodSleepInterval,
			},
			DeepSleep: model.IntervalRule{
				Enable:   r.Night.DeepSleepEnable,
				Interval: r.Night.DeepSleepInterval,
			},
		},
	}
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables use underscore separator and uppercase,
	// e.g. BOT_TOKEN, DATABASE_HOST.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional; env vars can provide everything.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values. The rule defaults are
// the ones shipped with the original plugin's initial config.
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "morningbot")
	v.SetDefault("database.name", "morningbot")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.query_timeout", "5s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// Weekly rollover boundary, Monday by default.
	v.SetDefault("rollover.weekday", int(time.Monday))

	// Morning rule defaults
	v.SetDefault("rules.morning.window_enable", true)
	v.SetDefault("rules.morning.window_early_hour", 6)
	v.SetDefault("rules.morning.window_late_hour", 12)
	v.SetDefault("rules.morning.multi_get_up_enable", false)
	v.SetDefault("rules.morning.multi_get_up_interval", 6)
	v.SetDefault("rules.morning.super_get_up_enable", false)
	v.SetDefault("rules.morning.super_get_up_interval", 3)

	// Night rule defaults
	v.SetDefault("rules.night.window_enable", true)
	v.SetDefault("rules.night.window_early_hour", 21)
	v.SetDefault("rules.night.window_late_hour", 6)
	v.SetDefault("rules.night.good_sleep_enable", true)
	v.SetDefault("rules.night.good_sleep_interval", 6)
	v.SetDefault("rules.night.deep_sleep_enable", false)
	v.SetDefault("rules.night.deep_sleep_interval", 3)
}

// IsAdmin checks if a user id may change rule settings.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Admin.IDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsChatAllowed checks if a chat id is in the whitelist.
func (c *Config) IsChatAllowed(chatID int64) bool {
	// Empty whitelist means all chats are allowed
	if len(c.Whitelist.Chats) == 0 {
		return true
	}
	for _, id := range c.Whitelist.Chats {
		if id == chatID {
			return true
		}
	}
	return false
}
