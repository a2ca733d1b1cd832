package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/jaki95/soundcloud-audio-bot/internal/downloader"
)

var ErrInvalid = errors.New("invalid configuration")

const (
	StorageLocal = "local"
	StorageGCS   = "gcs"

	maxConcurrentLimit = 16
	maxPageSize        = 20
)

type Config struct {
	LogLevel int `yaml:"log_level"`

	Telegram  TelegramConfig  `yaml:"telegram"`
	Download  DownloadConfig  `yaml:"download"`
	Search    SearchConfig    `yaml:"search"`
	YTDLP     YTDLPConfig     `yaml:"ytdlp"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Storage   StorageConfig   `yaml:"storage"`
	History   HistoryConfig   `yaml:"history"`
	Server    ServerConfig    `yaml:"server"`
}

type TelegramConfig struct {
	Token    string  `yaml:"token"`
	AdminIDs []int64 `yaml:"admin_ids"`
	// PollTimeout is the long-polling timeout in seconds
	PollTimeout int  `yaml:"poll_timeout"`
	Debug       bool `yaml:"debug"`
}

type DownloadConfig struct {
	MaxConcurrent int   `yaml:"max_concurrent"`
	MaxFileSizeMB int64 `yaml:"max_file_size_mb"`
	// LongTrackCeilingRatio tightens the size pre-check for tracks of 30 minutes or more
	LongTrackCeilingRatio float64          `yaml:"long_track_ceiling_ratio"`
	MinFileSize           int64            `yaml:"min_file_size"`
	ProbeTimeout          time.Duration    `yaml:"probe_timeout"`
	Retries               int              `yaml:"retries"`
	Extensions            []string         `yaml:"extensions"`
	Timeouts              downloader.Tiers `yaml:"timeouts"`
}

type SearchConfig struct {
	Limit         int           `yaml:"limit"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxConcurrent int           `yaml:"max_concurrent"`
	CacheSize     int           `yaml:"cache_size"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
	BlacklistSize int           `yaml:"blacklist_size"`
	BlacklistTTL  time.Duration `yaml:"blacklist_ttl"`
	// ScraperBaseURL enables the HTML fallback when set
	ScraperBaseURL string `yaml:"scraper_base_url"`
	// GoogleAPIKey and GoogleEngineID enable Programmable Search as a fallback
	GoogleAPIKey   string   `yaml:"google_api_key"`
	GoogleEngineID string   `yaml:"google_engine_id"`
	RandomQueries  []string `yaml:"random_queries"`
	// ChartQueries are merged into /charts; ChartsTTL is how long they are cached
	ChartQueries []string      `yaml:"chart_queries"`
	ChartsTTL    time.Duration `yaml:"charts_ttl"`
	// PageSize is the number of tracks per result menu page
	PageSize int `yaml:"page_size"`
}

type YTDLPConfig struct {
	Binary      string `yaml:"binary"`
	CookiesFile string `yaml:"cookies_file"`
}

type RedisConfig struct {
	// URL enables the shared cache and rate limiter, e.g. redis://localhost:6379/0
	URL    string `yaml:"url"`
	Prefix string `yaml:"prefix"`
}

type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

type StorageConfig struct {
	// Type of archive storage: "local" (no archive) or "gcs"
	Type string `yaml:"type"`

	WorkspaceDir  string        `yaml:"workspace_dir"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	MaxAge        time.Duration `yaml:"max_age"`

	GCS GCSConfig `yaml:"gcs"`
}

type GCSConfig struct {
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	PublicBaseURL   string `yaml:"public_base_url"`
	CredentialsFile string `yaml:"credentials_file"`
}

type HistoryConfig struct {
	Path string `yaml:"path"`
	Size int    `yaml:"size"`
}

type ServerConfig struct {
	// Addr of the admin API; empty disables it
	Addr        string `yaml:"addr"`
	MaxAttempts int    `yaml:"max_attempts"`
	// AdminToken guards admin routes; empty leaves them closed
	AdminToken string `yaml:"admin_token"`
}

// env holds the overrides read from the environment
type env struct {
	BotToken      string  `envconfig:"BOT_TOKEN"`
	AdminIDs      []int64 `envconfig:"ADMIN_IDS"`
	RedisURL      string  `envconfig:"REDIS_URL"`
	MaxConcurrent int     `envconfig:"MAX_CONCURRENT_DOWNLOADS"`
	MaxFileSizeMB int64   `envconfig:"MAX_FILE_SIZE_MB"`
	GCSBucket     string  `envconfig:"GCS_BUCKET"`
	LogLevel      string  `envconfig:"LOG_LEVEL"`

	GoogleAPIKey   string `envconfig:"GOOGLE_API_KEY"`
	GoogleEngineID string `envconfig:"GOOGLE_SEARCH_ID_SOUNDCLOUD"`
	AdminAPIToken  string `envconfig:"ADMIN_API_TOKEN"`
}

// LoadDotEnv loads variables from .env files; missing files are ignored
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
		slog.Debug("Loaded environment file", "path", p)
	}
	return nil
}

// Load reads the YAML file at path, applies environment overrides and fills
// in defaults. An empty path skips the file.
func Load(path string) (*Config, error) {
	config := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, err
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	config.setDefaults()
	return config, nil
}

func (c *Config) applyEnv() error {
	var e env
	if err := envconfig.Process("", &e); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}

	if e.BotToken != "" {
		c.Telegram.Token = e.BotToken
	}
	if len(e.AdminIDs) > 0 {
		c.Telegram.AdminIDs = e.AdminIDs
	}
	if e.RedisURL != "" {
		c.Redis.URL = e.RedisURL
	}
	if e.MaxConcurrent != 0 {
		c.Download.MaxConcurrent = e.MaxConcurrent
	}
	if e.MaxFileSizeMB != 0 {
		c.Download.MaxFileSizeMB = e.MaxFileSizeMB
	}
	if e.GCSBucket != "" {
		c.Storage.Type = StorageGCS
		c.Storage.GCS.Bucket = e.GCSBucket
	}
	if e.GoogleAPIKey != "" {
		c.Search.GoogleAPIKey = e.GoogleAPIKey
	}
	if e.GoogleEngineID != "" {
		c.Search.GoogleEngineID = e.GoogleEngineID
	}
	if e.AdminAPIToken != "" {
		c.Server.AdminToken = e.AdminAPIToken
	}
	if e.LogLevel != "" {
		level, err := parseLevel(e.LogLevel)
		if err != nil {
			return err
		}
		c.LogLevel = level
	}
	return nil
}

// parseLevel accepts slog level numbers (-4, 0, 4, 8) or names (debug, info, ...)
func parseLevel(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("%w: LOG_LEVEL %q", ErrInvalid, s)
	}
	return int(level), nil
}

func (c *Config) setDefaults() {
	def := downloader.DefaultConfig()

	if c.Telegram.PollTimeout <= 0 {
		c.Telegram.PollTimeout = 60
	}

	if c.Download.MaxConcurrent == 0 {
		c.Download.MaxConcurrent = def.MaxConcurrent
	}
	if c.Download.MaxFileSizeMB == 0 {
		c.Download.MaxFileSizeMB = def.CeilingBytes / (1024 * 1024)
	}
	if c.Download.LongTrackCeilingRatio == 0 {
		c.Download.LongTrackCeilingRatio = def.LongTrackCeilingRatio
	}
	if c.Download.MinFileSize == 0 {
		c.Download.MinFileSize = def.MinFileSize
	}
	if c.Download.ProbeTimeout == 0 {
		c.Download.ProbeTimeout = def.EstimateTimeout
	}
	if len(c.Download.Extensions) == 0 {
		c.Download.Extensions = def.Extensions
	}
	c.Download.Timeouts = c.Download.Timeouts.Normalize()

	if c.Search.Limit == 0 {
		c.Search.Limit = 10
	}
	if c.Search.Timeout == 0 {
		c.Search.Timeout = 20 * time.Second
	}
	if c.Search.MaxConcurrent == 0 {
		c.Search.MaxConcurrent = 4
	}
	if c.Search.CacheSize == 0 {
		c.Search.CacheSize = 500
	}
	if c.Search.CacheTTL == 0 {
		c.Search.CacheTTL = time.Hour
	}
	if c.Search.BlacklistSize == 0 {
		c.Search.BlacklistSize = 1000
	}
	if c.Search.BlacklistTTL == 0 {
		c.Search.BlacklistTTL = 6 * time.Hour
	}
	if c.Search.ChartsTTL == 0 {
		c.Search.ChartsTTL = 24 * time.Hour
	}
	if c.Search.PageSize == 0 {
		c.Search.PageSize = 5
	}

	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "scbot"
	}

	if c.RateLimit.Requests == 0 {
		c.RateLimit.Requests = 5
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = time.Minute
	}

	if c.Storage.Type == "" {
		c.Storage.Type = StorageLocal
	}
	if c.Storage.SweepInterval == 0 {
		c.Storage.SweepInterval = 30 * time.Minute
	}
	if c.Storage.MaxAge == 0 {
		c.Storage.MaxAge = 2 * time.Hour
	}

	if c.History.Path == "" {
		c.History.Path = "data/history.db"
	}
	if c.History.Size == 0 {
		c.History.Size = 10
	}

	if c.Server.MaxAttempts == 0 {
		c.Server.MaxAttempts = 1000
	}
}

// Validate checks value ranges after loading
func (c *Config) Validate() error {
	var errs []error

	if c.Download.MaxConcurrent < 1 || c.Download.MaxConcurrent > maxConcurrentLimit {
		errs = append(errs, fmt.Errorf("download.max_concurrent must be between 1 and %d, got %d",
			maxConcurrentLimit, c.Download.MaxConcurrent))
	}
	if c.Download.MaxFileSizeMB <= 0 {
		errs = append(errs, fmt.Errorf("download.max_file_size_mb must be positive, got %d", c.Download.MaxFileSizeMB))
	}
	if r := c.Download.LongTrackCeilingRatio; r <= 0 || r > 1 {
		errs = append(errs, fmt.Errorf("download.long_track_ceiling_ratio must be in (0, 1], got %v", r))
	}
	if c.Download.Retries < 0 {
		errs = append(errs, fmt.Errorf("download.retries must not be negative, got %d", c.Download.Retries))
	}
	if c.RateLimit.Requests < 0 {
		errs = append(errs, fmt.Errorf("rate_limit.requests must not be negative, got %d", c.RateLimit.Requests))
	}
	if c.Search.PageSize < 1 || c.Search.PageSize > maxPageSize {
		errs = append(errs, fmt.Errorf("search.page_size must be between 1 and %d, got %d", maxPageSize, c.Search.PageSize))
	}

	switch c.Storage.Type {
	case StorageLocal:
	case StorageGCS:
		if c.Storage.GCS.Bucket == "" {
			errs = append(errs, errors.New("storage.gcs.bucket is required for gcs storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.type %q", c.Storage.Type))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// CeilingBytes is the delivery size limit in bytes
func (c *Config) CeilingBytes() int64 {
	return c.Download.MaxFileSizeMB * 1024 * 1024
}

// DownloaderConfig maps the download section onto the orchestrator's limits
func (c *Config) DownloaderConfig() downloader.Config {
	return downloader.Config{
		MaxConcurrent:         c.Download.MaxConcurrent,
		CeilingBytes:          c.CeilingBytes(),
		LongTrackCeilingRatio: c.Download.LongTrackCeilingRatio,
		MinFileSize:           c.Download.MinFileSize,
		EstimateTimeout:       c.Download.ProbeTimeout,
		Extensions:            c.Download.Extensions,
		Tiers:                 c.Download.Timeouts,
	}
}
