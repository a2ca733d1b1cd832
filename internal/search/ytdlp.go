package search

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/jaki95/soundcloud-audio-bot/internal/domain"
	"github.com/jaki95/soundcloud-audio-bot/internal/ytdlp"
)

const (
	defaultResultLimit   = 10
	defaultSearchTimeout = 20 * time.Second
)

// extractor is the part of ytdlp.Client the provider needs
type extractor interface {
	Search(ctx context.Context, query string, limit int) ([]ytdlp.Entry, error)
	ProbeSize(ctx context.Context, sourceURL string) (int64, bool, error)
}

// YTDLP searches SoundCloud through yt-dlp's scsearch extractor
type YTDLP struct {
	client  extractor
	limit   int
	timeout time.Duration
}

// NewYTDLP creates a provider returning at most limit tracks per query
func NewYTDLP(client extractor, limit int, timeout time.Duration) *YTDLP {
	if limit <= 0 {
		limit = defaultResultLimit
	}
	if timeout <= 0 {
		timeout = defaultSearchTimeout
	}
	return &YTDLP{client: client, limit: limit, timeout: timeout}
}

func (y *YTDLP) Search(ctx context.Context, query string) ([]domain.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidQuery
	}

	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	start := time.Now()
	entries, err := y.client.Search(ctx, query, y.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search for %q: %w", query, err)
	}

	tracks := make([]domain.Track, 0, len(entries))
	for _, entry := range entries {
		track := entryToTrack(entry)
		if !Valid(track) {
			slog.Debug("Skipping invalid search result", "title", entry.Title, "url", entry.Link())
			continue
		}
		tracks = append(tracks, track)
	}

	slog.Info("SoundCloud search finished",
		"query", query,
		"entries", len(entries),
		"valid", len(tracks),
		"elapsed", time.Since(start),
	)

	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoResults, query)
	}
	return tracks, nil
}

// ProbeSize delegates to yt-dlp so the provider also serves as the size prober
func (y *YTDLP) ProbeSize(ctx context.Context, sourceURL string) (int64, bool, error) {
	return y.client.ProbeSize(ctx, sourceURL)
}

func entryToTrack(entry ytdlp.Entry) domain.Track {
	title := CleanTitle(entry.Title)
	artist := strings.TrimSpace(entry.Uploader)
	if artist == "" {
		artist, title = SplitArtistTitle(title)
	}

	return domain.Track{
		Title:           title,
		Artist:          artist,
		SourceURL:       entry.Link(),
		DurationSeconds: int(math.Round(entry.Duration)),
	}
}
