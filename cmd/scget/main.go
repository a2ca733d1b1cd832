package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/k0kubun/go-ansi"
	"github.com/schollz/progressbar/v3"

	"github.com/jaki95/soundcloud-audio-bot/config"
	"github.com/jaki95/soundcloud-audio-bot/internal/domain"
	"github.com/jaki95/soundcloud-audio-bot/internal/downloader"
	"github.com/jaki95/soundcloud-audio-bot/internal/progress"
	"github.com/jaki95/soundcloud-audio-bot/internal/search"
	"github.com/jaki95/soundcloud-audio-bot/internal/storage"
	"github.com/jaki95/soundcloud-audio-bot/internal/transport"
	"github.com/jaki95/soundcloud-audio-bot/internal/ytdlp"
)

func main() {
	query := flag.String("query", "", "Search query; the first valid result is downloaded")
	sourceURL := flag.String("url", "", "SoundCloud track URL to download instead of searching")
	outDir := flag.String("out", "output", "Directory the audio file is written to")
	timeout := flag.Duration("timeout", 0, "Download timeout (default: chosen from the track length)")
	configPath := flag.String("config", "./config/config.yaml", "Path to the YAML configuration file")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *query == "" && *sourceURL == "" {
		flag.Usage()
		log.Fatal("Missing required flag: -query or -url")
	}

	cfg, err := config.Load(*configPath)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = config.Load("")
	}
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	// Keep the terminal for the spinner
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outcome, err := run(ctx, cfg, *query, *sourceURL, *outDir, *timeout)
	if err != nil {
		log.Fatal(err)
	}
	if !outcome.IsDelivered() {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, query, sourceURL, outDir string, timeout time.Duration) (domain.Outcome, error) {
	yt := ytdlp.NewClient(
		ytdlp.WithBinary(cfg.YTDLP.Binary),
		ytdlp.WithCookies(cfg.YTDLP.CookiesFile),
	)
	if err := yt.Available(ctx); err != nil {
		return domain.Outcome{}, err
	}
	ytSearch := search.NewYTDLP(yt, cfg.Search.Limit, cfg.Search.Timeout)

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(ansi.NewAnsiStdout()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionSetDescription("[cyan][1/2][reset] Searching..."),
	)
	stopSpinner := spin(bar)
	defer stopSpinner()

	track, err := resolveTrack(ctx, ytSearch, query, sourceURL)
	if err != nil {
		return domain.Outcome{}, err
	}

	out, err := transport.NewDirectory(outDir, nil)
	if err != nil {
		return domain.Outcome{}, err
	}
	workspace, err := storage.NewLocalWorkspace(cfg.Storage.WorkspaceDir)
	if err != nil {
		return domain.Outcome{}, err
	}

	tracker := progress.NewTracker()
	tracker.AddListener(func(e progress.Event) {
		bar.Describe(fmt.Sprintf("[cyan][2/2][reset] %s: %s", e.Stage, domain.Truncate(track.DisplayName(), 50)))
	})

	orchestrator, err := downloader.New(cfg.DownloaderConfig(), ytSearch, yt, out, workspace, downloader.WithTracker(tracker))
	if err != nil {
		return domain.Outcome{}, err
	}

	outcome := downloader.DownloadWithRetry(ctx, orchestrator, downloader.Request{
		Track:   track,
		Timeout: timeout,
	}, cfg.Download.Retries)

	stopSpinner()
	fmt.Println()
	report(outcome, out.Delivered(), cfg.CeilingBytes())
	return outcome, nil
}

// spin keeps the spinner moving until the returned function is called
func spin(bar *progressbar.ProgressBar) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				bar.Add(1)
			}
		}
	}()

	stopped := false
	return func() {
		if stopped {
			return
		}
		stopped = true
		close(done)
		bar.Finish()
	}
}

func resolveTrack(ctx context.Context, provider search.Provider, query, sourceURL string) (domain.Track, error) {
	if sourceURL != "" {
		title := sourceURL[strings.LastIndex(sourceURL, "/")+1:]
		return domain.Track{Title: title, SourceURL: sourceURL}, nil
	}

	tracks, err := provider.Search(ctx, query)
	if err != nil {
		return domain.Track{}, err
	}
	if len(tracks) == 0 {
		return domain.Track{}, fmt.Errorf("%w: %s", search.ErrNoResults, query)
	}
	return tracks[0], nil
}

func report(outcome domain.Outcome, files []string, ceilingBytes int64) {
	switch outcome.Kind {
	case domain.OutcomeDelivered:
		for _, f := range files {
			fmt.Printf("Saved %s (%.1f MB)\n", f, domain.SizeMB(outcome.SizeBytes))
		}
	case domain.OutcomeRejectedTooLarge:
		fmt.Printf("Too large: %.1f MB, the limit is %.0f MB\n", domain.SizeMB(outcome.SizeBytes), domain.SizeMB(ceilingBytes))
	default:
		fmt.Printf("Failed (%s): %v\n", outcome.Reason, outcome.Err)
	}
}
