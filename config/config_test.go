package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
log_level: -4
telegram:
  token: file-token
  admin_ids: [1, 2]
download:
  max_concurrent: 5
  max_file_size_mb: 20
  long_track_ceiling_ratio: 0.8
  retries: 1
  extensions: [".mp3"]
  timeouts:
    short: 30s
    medium: 1m
search:
  limit: 5
  cache_ttl: 10m
  scraper_base_url: https://soundcloud.com
redis:
  url: redis://localhost:6379/0
storage:
  type: gcs
  gcs:
    bucket: audio-archive
server:
  addr: ":8080"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, -4, cfg.LogLevel)
	assert.Equal(t, "file-token", cfg.Telegram.Token)
	assert.Equal(t, []int64{1, 2}, cfg.Telegram.AdminIDs)
	assert.Equal(t, 5, cfg.Download.MaxConcurrent)
	assert.Equal(t, int64(20*1024*1024), cfg.CeilingBytes())
	assert.InDelta(t, 0.8, cfg.Download.LongTrackCeilingRatio, 1e-9)
	assert.Equal(t, 1, cfg.Download.Retries)
	assert.Equal(t, []string{".mp3"}, cfg.Download.Extensions)
	assert.Equal(t, 30*time.Second, cfg.Download.Timeouts.Short)
	assert.Equal(t, time.Minute, cfg.Download.Timeouts.Medium)
	assert.Equal(t, 180*time.Second, cfg.Download.Timeouts.Long)
	assert.Equal(t, 5, cfg.Search.Limit)
	assert.Equal(t, 10*time.Minute, cfg.Search.CacheTTL)
	assert.Equal(t, "https://soundcloud.com", cfg.Search.ScraperBaseURL)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, StorageGCS, cfg.Storage.Type)
	assert.Equal(t, "audio-archive", cfg.Storage.GCS.Bucket)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.NoError(t, cfg.Validate())
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Download.MaxConcurrent)
	assert.Equal(t, int64(50), cfg.Download.MaxFileSizeMB)
	assert.Equal(t, 45*time.Second, cfg.Download.Timeouts.Short)
	assert.Equal(t, 360*time.Second, cfg.Download.Timeouts.Max)
	assert.Equal(t, 10, cfg.Search.Limit)
	assert.Equal(t, 20*time.Second, cfg.Search.Timeout)
	assert.Equal(t, 24*time.Hour, cfg.Search.ChartsTTL)
	assert.Equal(t, 5, cfg.Search.PageSize)
	assert.Equal(t, 5, cfg.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, StorageLocal, cfg.Storage.Type)
	assert.Equal(t, "data/history.db", cfg.History.Path)
	assert.Empty(t, cfg.Server.Addr)
	assert.NoError(t, cfg.Validate())
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: file-token
download:
  max_concurrent: 2
`)
	t.Setenv("BOT_TOKEN", "env-token")
	t.Setenv("ADMIN_IDS", "10,20")
	t.Setenv("REDIS_URL", "redis://cache:6379/1")
	t.Setenv("MAX_CONCURRENT_DOWNLOADS", "6")
	t.Setenv("MAX_FILE_SIZE_MB", "45")
	t.Setenv("GCS_BUCKET", "env-bucket")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("GOOGLE_API_KEY", "g-key")
	t.Setenv("GOOGLE_SEARCH_ID_SOUNDCLOUD", "g-engine")
	t.Setenv("ADMIN_API_TOKEN", "s3cret")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Telegram.Token)
	assert.Equal(t, []int64{10, 20}, cfg.Telegram.AdminIDs)
	assert.Equal(t, "redis://cache:6379/1", cfg.Redis.URL)
	assert.Equal(t, 6, cfg.Download.MaxConcurrent)
	assert.Equal(t, int64(45), cfg.Download.MaxFileSizeMB)
	assert.Equal(t, StorageGCS, cfg.Storage.Type)
	assert.Equal(t, "env-bucket", cfg.Storage.GCS.Bucket)
	assert.Equal(t, -4, cfg.LogLevel)
	assert.Equal(t, "g-key", cfg.Search.GoogleAPIKey)
	assert.Equal(t, "g-engine", cfg.Search.GoogleEngineID)
	assert.Equal(t, "s3cret", cfg.Server.AdminToken)
}

func TestLoadInvalidLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "loud")
	_, err := Load("")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestLoadNonExistentFile(t *testing.T) {
	cfg, err := Load("non_existent_file.yaml")
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "download:\n  max_concurrent: [unclosed\n")
	cfg, err := Load(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{name: "defaults", modify: func(c *Config) {}},
		{name: "concurrency upper bound", modify: func(c *Config) { c.Download.MaxConcurrent = 16 }},
		{name: "too much concurrency", modify: func(c *Config) { c.Download.MaxConcurrent = 17 }, wantErr: true},
		{name: "negative concurrency", modify: func(c *Config) { c.Download.MaxConcurrent = -1 }, wantErr: true},
		{name: "negative ceiling", modify: func(c *Config) { c.Download.MaxFileSizeMB = -5 }, wantErr: true},
		{name: "ratio above one", modify: func(c *Config) { c.Download.LongTrackCeilingRatio = 1.5 }, wantErr: true},
		{name: "negative retries", modify: func(c *Config) { c.Download.Retries = -1 }, wantErr: true},
		{name: "page size upper bound", modify: func(c *Config) { c.Search.PageSize = 20 }},
		{name: "page size too large", modify: func(c *Config) { c.Search.PageSize = 21 }, wantErr: true},
		{name: "negative page size", modify: func(c *Config) { c.Search.PageSize = -1 }, wantErr: true},
		{name: "gcs without bucket", modify: func(c *Config) { c.Storage.Type = StorageGCS }, wantErr: true},
		{name: "unknown storage", modify: func(c *Config) { c.Storage.Type = "s3" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tt.modify(cfg)

			err = cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalid)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDownloaderConfig(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Download.MaxFileSizeMB = 10

	dc := cfg.DownloaderConfig()
	assert.Equal(t, int64(10*1024*1024), dc.CeilingBytes)
	assert.Equal(t, cfg.Download.MaxConcurrent, dc.MaxConcurrent)
	assert.Equal(t, cfg.Download.Timeouts, dc.Tiers)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SCBOT_TEST_VALUE=from-file\n"), 0644))
	t.Setenv("SCBOT_TEST_VALUE", "")
	os.Unsetenv("SCBOT_TEST_VALUE")

	require.NoError(t, LoadDotEnv(envFile, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("SCBOT_TEST_VALUE"))
}
