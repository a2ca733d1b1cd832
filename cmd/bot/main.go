package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"

	"github.com/jaki95/soundcloud-audio-bot/config"
	"github.com/jaki95/soundcloud-audio-bot/internal/bot"
	"github.com/jaki95/soundcloud-audio-bot/internal/cache"
	"github.com/jaki95/soundcloud-audio-bot/internal/domain"
	"github.com/jaki95/soundcloud-audio-bot/internal/downloader"
	"github.com/jaki95/soundcloud-audio-bot/internal/history"
	"github.com/jaki95/soundcloud-audio-bot/internal/job"
	"github.com/jaki95/soundcloud-audio-bot/internal/progress"
	"github.com/jaki95/soundcloud-audio-bot/internal/ratelimit"
	"github.com/jaki95/soundcloud-audio-bot/internal/search"
	"github.com/jaki95/soundcloud-audio-bot/internal/server"
	"github.com/jaki95/soundcloud-audio-bot/internal/storage"
	"github.com/jaki95/soundcloud-audio-bot/internal/telegram"
	"github.com/jaki95/soundcloud-audio-bot/internal/ytdlp"
)

func main() {
	configPath := flag.String("config", "./config/config.yaml", "Path to the YAML configuration file")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		slog.Error("Failed to load .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Configuration file not found, using defaults and environment", "path", *configPath)
		cfg, err = config.Load("")
	}
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.Level(cfg.LogLevel)}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Bot failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Bot stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	if cfg.Telegram.Token == "" {
		return errors.New("telegram token is required (telegram.token or BOT_TOKEN)")
	}

	yt := ytdlp.NewClient(
		ytdlp.WithBinary(cfg.YTDLP.Binary),
		ytdlp.WithCookies(cfg.YTDLP.CookiesFile),
	)
	if err := yt.Available(ctx); err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		client, err := cache.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer client.Close()
		redisClient = client
		slog.Info("Connected to Redis")
	}

	ytSearch := search.NewYTDLP(yt, cfg.Search.Limit, cfg.Search.Timeout)
	provider, err := buildSearch(ctx, cfg, ytSearch, redisClient)
	if err != nil {
		return err
	}

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return fmt.Errorf("failed to connect to Telegram: %w", err)
	}
	api.Debug = cfg.Telegram.Debug
	slog.Info("Authorized on Telegram", "username", api.Self.UserName)
	tr := telegram.NewTransport(api)

	workspace, err := storage.NewLocalWorkspace(cfg.Storage.WorkspaceDir)
	if err != nil {
		return err
	}
	workspace.StartJanitor(ctx, cfg.Storage.SweepInterval, cfg.Storage.MaxAge)

	tracker := progress.NewTracker()
	attempts := job.NewManager(cfg.Server.MaxAttempts)
	defer attempts.Attach(tracker)()

	opts := []downloader.Option{downloader.WithTracker(tracker)}
	serverOpts := []server.Option{server.WithAdminToken(cfg.Server.AdminToken)}
	if cfg.Storage.Type == config.StorageGCS {
		gcs := cfg.Storage.GCS
		archiver, err := storage.NewGCSArchiver(ctx, gcs.Bucket, gcs.Prefix, gcs.PublicBaseURL, gcs.CredentialsFile)
		if err != nil {
			return err
		}
		defer archiver.Close()
		opts = append(opts, downloader.WithArchiver(archiver))
		serverOpts = append(serverOpts, server.WithArchive(archiver))
	}

	orchestrator, err := downloader.New(cfg.DownloaderConfig(), ytSearch, yt, tr, workspace, opts...)
	if err != nil {
		return err
	}

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	var limiter ratelimit.Limiter = ratelimit.NewMemory(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	if redisClient != nil {
		limiter = ratelimit.NewRedis(redisClient, cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}

	botOpts := []bot.Option{
		bot.WithBlacklist(cache.NewBlacklist(cfg.Search.BlacklistSize, cfg.Search.BlacklistTTL)),
		bot.WithHistory(store),
		bot.WithStatsSource(orchestrator),
	}
	if cfg.RateLimit.Requests > 0 {
		botOpts = append(botOpts, bot.WithRateLimiter(limiter))
	}

	botOpts = append(botOpts, bot.WithCharts(buildCharts(cfg, provider, redisClient)))
	if redisClient != nil {
		botOpts = append(botOpts, bot.WithListCache(cache.NewRedis[bot.TrackList](redisClient, cfg.Redis.Prefix+":lists:", time.Hour)))
	}

	b := bot.New(bot.Config{
		AdminIDs:      cfg.Telegram.AdminIDs,
		Retries:       cfg.Download.Retries,
		CeilingBytes:  cfg.CeilingBytes(),
		HistorySize:   cfg.History.Size,
		RandomQueries: cfg.Search.RandomQueries,
		ChartQueries:  cfg.Search.ChartQueries,
		PageSize:      cfg.Search.PageSize,
	}, tr, provider, orchestrator, botOpts...)

	if cfg.Server.Addr != "" {
		serverOpts = append(serverOpts,
			server.WithStatsSource(orchestrator),
			server.WithHistory(store),
		)
		srv := server.New(attempts, serverOpts...)
		go func() {
			if err := srv.Run(ctx, cfg.Server.Addr); err != nil {
				slog.Error("HTTP server failed", "error", err)
			}
		}()
	}

	slog.Info("Bot started",
		"max_concurrent", cfg.Download.MaxConcurrent,
		"max_file_size_mb", cfg.Download.MaxFileSizeMB,
		"storage", cfg.Storage.Type,
		"redis", redisClient != nil,
	)
	telegram.NewPoller(api, cfg.Telegram.PollTimeout).Run(ctx, b.HandleMessage)
	return nil
}

// buildSearch layers fallbacks, a concurrency limit and caching over yt-dlp search
func buildSearch(ctx context.Context, cfg *config.Config, primary search.Provider, redisClient *redis.Client) (search.Provider, error) {
	providers := []search.Provider{primary}
	if cfg.Search.GoogleAPIKey != "" {
		g, err := search.NewGoogle(ctx, cfg.Search.GoogleAPIKey, cfg.Search.GoogleEngineID, cfg.Search.Limit)
		if err != nil {
			return nil, err
		}
		providers = append(providers, g)
	}
	if cfg.Search.ScraperBaseURL != "" {
		providers = append(providers, search.NewScraper(cfg.Search.ScraperBaseURL, cfg.Search.Limit))
	}

	var provider search.Provider = primary
	if len(providers) > 1 {
		provider = search.NewFallback(providers...)
	}
	provider = search.NewLimited(provider, cfg.Search.MaxConcurrent)

	var results cache.Cache[[]domain.Track] = cache.NewMemory[[]domain.Track](cfg.Search.CacheSize, cfg.Search.CacheTTL)
	if redisClient != nil {
		results = cache.NewRedis[[]domain.Track](redisClient, cfg.Redis.Prefix+":search:", cfg.Search.CacheTTL)
	}
	return search.NewCached(provider, results), nil
}

// buildCharts keeps chart results far longer than ordinary searches
func buildCharts(cfg *config.Config, provider search.Provider, redisClient *redis.Client) search.Provider {
	var charts cache.Cache[[]domain.Track] = cache.NewMemory[[]domain.Track](len(cfg.Search.ChartQueries)+len(bot.DefaultChartQueries), cfg.Search.ChartsTTL)
	if redisClient != nil {
		charts = cache.NewRedis[[]domain.Track](redisClient, cfg.Redis.Prefix+":charts:", cfg.Search.ChartsTTL)
	}
	return search.NewCached(provider, charts)
}
