package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(old) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://www.bazaraki.com", cfg.Scrape.BaseURL)
	assert.Equal(t, 10, cfg.Scrape.MaxPages)
	assert.Equal(t, 20, cfg.Scrape.MaxConsecutiveUnchanged)
	assert.Equal(t, 3*time.Second, cfg.Scrape.MinRequestInterval)
	assert.Equal(t, 2, cfg.Scrape.DetailConcurrency)
	assert.Equal(t, "bazalert.db", cfg.Database.Path)
	assert.Equal(t, 10*time.Minute, cfg.Scheduler.Interval)
	assert.True(t, cfg.Notify.NewAds)
	assert.True(t, cfg.Notify.PriceDrops)
	assert.False(t, cfg.Notify.PriceIncreases)
	assert.False(t, cfg.Notify.StatusChanges)
	assert.False(t, cfg.Notify.Reposts)
	assert.False(t, cfg.Notify.Removals)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadConfigFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
scrape:
  max_pages: 5
  min_request_interval: 1s
telegram:
  admin_chat_id: 777
notify:
  removals: true
scheduler:
  interval: 30m
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Scrape.MaxPages)
	assert.Equal(t, time.Second, cfg.Scrape.MinRequestInterval)
	assert.Equal(t, int64(777), cfg.Telegram.AdminChatID)
	assert.True(t, cfg.Notify.Removals)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.Interval)
	// Untouched sections keep defaults.
	assert.Equal(t, "bazalert.db", cfg.Database.Path)
}

func TestLoadEnvOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("BAZALERT_DATABASE_PATH", "/tmp/ads.db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, "/tmp/ads.db", cfg.Database.Path)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Scrape: ScrapeConfig{
				SearchURL:         "https://www.bazaraki.com/cars/",
				BaseURL:           "https://www.bazaraki.com",
				MaxPages:          5,
				DetailConcurrency: 2,
			},
			Database:  DatabaseConfig{Path: "test.db"},
			Scheduler: SchedulerConfig{Interval: 10 * time.Minute},
		}
	}

	assert.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing search url", func(c *Config) { c.Scrape.SearchURL = "" }},
		{"missing base url", func(c *Config) { c.Scrape.BaseURL = "" }},
		{"zero max pages", func(c *Config) { c.Scrape.MaxPages = 0 }},
		{"zero detail concurrency", func(c *Config) { c.Scrape.DetailConcurrency = 0 }},
		{"missing db path", func(c *Config) { c.Database.Path = "" }},
		{"sub-minute interval", func(c *Config) { c.Scheduler.Interval = 10 * time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestBuildLogger(t *testing.T) {
	log, err := LoggerConfig{Level: "debug", Encoding: "json"}.Build()
	require.NoError(t, err)
	log.Sync()

	_, err = LoggerConfig{Level: "nope", Encoding: "json"}.Build()
	assert.Error(t, err)
}
