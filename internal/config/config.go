// Package config loads runtime configuration from a YAML file, environment
// variables and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds everything the daemon needs to run one or many scrape cycles.
type Config struct {
	Scrape    ScrapeConfig    `mapstructure:"scrape"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// ScrapeConfig controls page walking and request pacing.
type ScrapeConfig struct {
	SearchURL string `mapstructure:"search_url"`
	BaseURL   string `mapstructure:"base_url"`
	// MaxPages caps the pagination walk regardless of stop conditions.
	MaxPages int `mapstructure:"max_pages"`
	// MaxConsecutiveUnchanged stops the walk after this many Basic-tier
	// ads in a row were already known and unchanged.
	MaxConsecutiveUnchanged int           `mapstructure:"max_consecutive_unchanged"`
	MinRequestInterval      time.Duration `mapstructure:"min_request_interval"`
	RequestTimeout          time.Duration `mapstructure:"request_timeout"`
	MaxRetries              int           `mapstructure:"max_retries"`
	RetryBackoff            time.Duration `mapstructure:"retry_backoff"`
	DetailConcurrency       int           `mapstructure:"detail_concurrency"`
}

// TelegramConfig holds the bot credentials and the admin summary chat.
type TelegramConfig struct {
	Token string `mapstructure:"token"`
	// AdminChatID receives cycle summaries; zero disables them.
	AdminChatID int64 `mapstructure:"admin_chat_id"`
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// NotifyConfig selects which change kinds produce notifications.
type NotifyConfig struct {
	NewAds         bool `mapstructure:"new_ads"`
	PriceDrops     bool `mapstructure:"price_drops"`
	PriceIncreases bool `mapstructure:"price_increases"`
	StatusChanges  bool `mapstructure:"status_changes"`
	Reposts        bool `mapstructure:"reposts"`
	Removals       bool `mapstructure:"removals"`
}

// LoggerConfig controls zap setup.
type LoggerConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// SchedulerConfig controls the cron trigger.
type SchedulerConfig struct {
	// Interval between cycle triggers. An overlapping trigger is skipped.
	Interval time.Duration `mapstructure:"interval"`
}

// Load reads config.yaml (if present), .env and environment variables, in
// increasing precedence, then validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("BAZALERT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scrape", map[string]any{
		"base_url":                  "https://www.bazaraki.com",
		"search_url":                "https://www.bazaraki.com/car-motorbikes-boats-and-parts/cars-trucks/",
		"max_pages":                 10,
		"max_consecutive_unchanged": 20,
		"min_request_interval":      "3s",
		"request_timeout":           "30s",
		"max_retries":               3,
		"retry_backoff":             "5s",
		"detail_concurrency":        2,
	})
	v.SetDefault("telegram", map[string]any{
		"token":         "",
		"admin_chat_id": 0,
	})
	v.SetDefault("database", map[string]any{
		"path": "bazalert.db",
	})
	v.SetDefault("notify", map[string]any{
		"new_ads":         true,
		"price_drops":     true,
		"price_increases": false,
		"status_changes":  false,
		"reposts":         false,
		"removals":        false,
	})
	v.SetDefault("logger", map[string]any{
		"level":    "info",
		"encoding": "json",
	})
	v.SetDefault("metrics", map[string]any{
		"enabled": false,
		"addr":    ":9090",
	})
	v.SetDefault("scheduler", map[string]any{
		"interval": "10m",
	})
}

func bindEnv(v *viper.Viper) {
	// Credentials come from the environment in deployments; the short
	// aliases match the .env the bot has always shipped with.
	_ = v.BindEnv("telegram.token", "BAZALERT_TELEGRAM_TOKEN", "BOT_TOKEN")
	_ = v.BindEnv("telegram.admin_chat_id", "BAZALERT_TELEGRAM_ADMIN_CHAT_ID", "ADMIN_ID")
	_ = v.BindEnv("database.path", "BAZALERT_DATABASE_PATH", "DATABASE_PATH")
	_ = v.BindEnv("logger.level", "BAZALERT_LOG_LEVEL", "LOG_LEVEL")
}

// Validate rejects configurations the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Scrape.SearchURL == "" {
		return fmt.Errorf("scrape.search_url is required")
	}
	if c.Scrape.BaseURL == "" {
		return fmt.Errorf("scrape.base_url is required")
	}
	if c.Scrape.MaxPages < 1 {
		return fmt.Errorf("scrape.max_pages must be at least 1, got %d", c.Scrape.MaxPages)
	}
	if c.Scrape.DetailConcurrency < 1 {
		return fmt.Errorf("scrape.detail_concurrency must be at least 1, got %d", c.Scrape.DetailConcurrency)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Scheduler.Interval < time.Minute {
		return fmt.Errorf("scheduler.interval must be at least 1m, got %s", c.Scheduler.Interval)
	}
	return nil
}
