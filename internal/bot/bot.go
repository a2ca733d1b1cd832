// Package bot implements the chat commands on top of search and the download orchestrator.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"slices"
	"time"

	"github.com/jaki95/soundcloud-audio-bot/internal/cache"
	"github.com/jaki95/soundcloud-audio-bot/internal/domain"
	"github.com/jaki95/soundcloud-audio-bot/internal/downloader"
	"github.com/jaki95/soundcloud-audio-bot/internal/history"
	"github.com/jaki95/soundcloud-audio-bot/internal/progress"
	"github.com/jaki95/soundcloud-audio-bot/internal/ratelimit"
	"github.com/jaki95/soundcloud-audio-bot/internal/search"
	"github.com/jaki95/soundcloud-audio-bot/internal/transport"
)

const (
	defaultHistorySize   = 10
	defaultListCacheSize = 1000
	defaultListTTL       = time.Hour
)

// DefaultRandomQueries seed /random
var DefaultRandomQueries = []string{
	"lo fi beats", "chillhop", "deep house", "synthwave", "indie rock",
	"electronic music", "jazz lounge", "ambient", "study music",
	"focus music", "relaxing music", "instrumental", "acoustic",
	"piano covers", "guitar music", "vocal trance", "dubstep",
	"tropical house", "future bass", "retro wave", "city pop",
	"latin music", "reggaeton", "k-pop", "j-pop", "classical piano",
	"orchestral", "film scores", "video game music", "chill beats",
	"lounge music", "smooth jazz", "progressive house", "techno music",
}

// History is the persistence the bot needs; *history.Store satisfies it
type History interface {
	Record(ctx context.Context, userID, chatID int64, track domain.Track, outcome domain.Outcome) error
	Recent(ctx context.Context, userID int64, limit int) ([]history.Entry, error)
	Stats(ctx context.Context) (history.Stats, error)
}

// StatsSource reports live orchestrator counters
type StatsSource interface {
	Stats() downloader.Stats
}

// Config holds bot behaviour settings
type Config struct {
	AdminIDs      []int64
	Retries       int
	CeilingBytes  int64
	HistorySize   int
	RandomQueries []string
	ChartQueries  []string
	// PageSize is the number of tracks per result menu page
	PageSize int
}

// Bot handles incoming messages
type Bot struct {
	cfg        Config
	transport  transport.Transport
	search     search.Provider
	downloader downloader.Downloader

	limiter   ratelimit.Limiter
	blacklist *cache.Blacklist
	history   History
	live      StatsSource

	menus  transport.Menus
	lists  cache.Cache[TrackList]
	charts search.Provider
}

// Option configures optional collaborators
type Option func(*Bot)

func WithRateLimiter(l ratelimit.Limiter) Option {
	return func(b *Bot) { b.limiter = l }
}

func WithBlacklist(bl *cache.Blacklist) Option {
	return func(b *Bot) { b.blacklist = bl }
}

func WithHistory(h History) Option {
	return func(b *Bot) { b.history = h }
}

func WithStatsSource(s StatsSource) Option {
	return func(b *Bot) { b.live = s }
}

// WithCharts sets the provider behind /charts, normally a long lived cache
// over the search provider
func WithCharts(p search.Provider) Option {
	return func(b *Bot) { b.charts = p }
}

// WithListCache stores result menus somewhere other than process memory
func WithListCache(c cache.Cache[TrackList]) Option {
	return func(b *Bot) { b.lists = c }
}

func New(cfg Config, tr transport.Transport, provider search.Provider, d downloader.Downloader, opts ...Option) *Bot {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = defaultHistorySize
	}
	if len(cfg.RandomQueries) == 0 {
		cfg.RandomQueries = DefaultRandomQueries
	}
	if len(cfg.ChartQueries) == 0 {
		cfg.ChartQueries = DefaultChartQueries
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}

	b := &Bot{
		cfg:        cfg,
		transport:  tr,
		search:     provider,
		downloader: d,
		charts:     provider,
		lists:      cache.NewMemory[TrackList](defaultListCacheSize, defaultListTTL),
	}
	if menus, ok := tr.(transport.Menus); ok {
		b.menus = menus
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// HandleMessage dispatches one incoming message or button press. Text that is
// neither a command nor a "find"/"random" keyword is ignored so the bot can
// sit in groups.
func (b *Bot) HandleMessage(ctx context.Context, msg transport.Message) {
	if msg.IsCallback() {
		b.handleCallback(ctx, msg)
		return
	}

	cmd, args := parseCommand(msg.Text)
	log := slog.With("chat", msg.ChatID, "user", msg.UserID, "command", cmd)

	switch cmd {
	case "start", "help":
		b.reply(ctx, msg.ChatID, helpText)
	case "search", "find":
		query := extractQuery(args)
		if query == "" {
			b.reply(ctx, msg.ChatID, usageText)
			return
		}
		log.Info("Search requested", "query", query)
		b.findAndDeliver(ctx, msg, query, false)
	case "list", "results":
		query := extractQuery(args)
		if query == "" {
			b.reply(ctx, msg.ChatID, listUsageText)
			return
		}
		log.Info("Result list requested", "query", query)
		b.showList(ctx, msg, query)
	case "charts", "top":
		log.Info("Charts requested")
		b.showCharts(ctx, msg)
	case "random":
		query := b.cfg.RandomQueries[rand.Intn(len(b.cfg.RandomQueries))]
		log.Info("Random track requested", "query", query)
		b.findAndDeliver(ctx, msg, query, true)
	case "history":
		b.showHistory(ctx, msg)
	case "stats":
		b.showStats(ctx, msg)
	}
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if _, err := b.transport.SendStatus(ctx, chatID, text); err != nil {
		slog.Error("Failed to send reply", "chat", chatID, "error", err)
	}
}

func (b *Bot) edit(ctx context.Context, handle transport.StatusHandle, text string) {
	if err := b.transport.EditStatus(ctx, handle, text); err != nil {
		slog.Warn("Failed to edit status", "chat", handle.ChatID, "message", handle.MessageID, "error", err)
	}
}

func (b *Bot) findAndDeliver(ctx context.Context, msg transport.Message, query string, random bool) {
	if b.limiter != nil && !b.limiter.Allow(ctx, msg.UserID) {
		slog.Info("Rate limited", "user", msg.UserID)
		b.reply(ctx, msg.ChatID, rateLimitedText)
		return
	}

	text := searchingText(query)
	if random {
		text = randomSearchingText(query)
	}
	status, err := b.transport.SendStatus(ctx, msg.ChatID, text)
	if err != nil {
		slog.Error("Failed to send status", "chat", msg.ChatID, "error", err)
		return
	}

	tracks, err := b.search.Search(ctx, query)
	if err != nil && !errors.Is(err, search.ErrNoResults) {
		slog.Warn("Search failed", "query", query, "error", err)
	}

	if random {
		tracks = slices.Clone(tracks)
		rand.Shuffle(len(tracks), func(i, j int) { tracks[i], tracks[j] = tracks[j], tracks[i] })
	}
	track, ok := b.pick(tracks)
	if !ok {
		b.edit(ctx, status, notFoundText(query))
		return
	}

	b.edit(ctx, status, foundText(track))
	b.deliver(ctx, msg, status, track)
}

// deliver downloads track, reporting progress and the outcome on status
func (b *Bot) deliver(ctx context.Context, msg transport.Message, status transport.StatusHandle, track domain.Track) {
	outcome := b.download(ctx, msg, status, track)
	b.edit(ctx, status, outcomeText(track, outcome, b.cfg.CeilingBytes))
	b.afterDownload(ctx, msg, track, outcome)
}

// pick returns the first track that has not recently failed
func (b *Bot) pick(tracks []domain.Track) (domain.Track, bool) {
	for _, t := range tracks {
		if b.blacklist != nil && b.blacklist.Contains(t.SourceURL) {
			slog.Debug("Skipping blacklisted track", "url", t.SourceURL)
			continue
		}
		return t, true
	}
	return domain.Track{}, false
}

func (b *Bot) download(ctx context.Context, msg transport.Message, status transport.StatusHandle, track domain.Track) domain.Outcome {
	requestedBy := msg.Username
	if requestedBy != "" {
		requestedBy = "@" + requestedBy
	}

	req := downloader.Request{
		Track:  track,
		ChatID: msg.ChatID,
		Caption: func(t domain.Track, size int64) string {
			return caption(t, size, requestedBy)
		},
		Progress: func(e progress.Event) {
			switch e.Stage {
			case progress.StageRunning:
				b.edit(ctx, status, downloadingText(track))
			case progress.StageDelivering:
				b.edit(ctx, status, sendingText(track))
			}
		},
	}

	return downloader.DownloadWithRetry(ctx, b.downloader, req, b.cfg.Retries)
}

func (b *Bot) afterDownload(ctx context.Context, msg transport.Message, track domain.Track, outcome domain.Outcome) {
	if outcome.Kind == domain.OutcomeFailed &&
		(outcome.Reason == domain.ReasonExtraction || outcome.Reason == domain.ReasonNoCompatibleFile) &&
		b.blacklist != nil {
		b.blacklist.Add(track.SourceURL)
	}

	if b.history != nil {
		if err := b.history.Record(context.WithoutCancel(ctx), msg.UserID, msg.ChatID, track, outcome); err != nil {
			slog.Error("Failed to record history", "attempt", outcome.AttemptID, "error", err)
		}
	}
}

func (b *Bot) showHistory(ctx context.Context, msg transport.Message) {
	if b.history == nil {
		b.reply(ctx, msg.ChatID, noHistoryText)
		return
	}

	entries, err := b.history.Recent(ctx, msg.UserID, b.cfg.HistorySize)
	if err != nil {
		slog.Error("Failed to load history", "user", msg.UserID, "error", err)
		b.reply(ctx, msg.ChatID, noHistoryText)
		return
	}
	b.reply(ctx, msg.ChatID, historyText(entries))
}

func (b *Bot) showStats(ctx context.Context, msg transport.Message) {
	if !slices.Contains(b.cfg.AdminIDs, msg.UserID) {
		b.reply(ctx, msg.ChatID, notAllowedText)
		return
	}

	var st history.Stats
	if b.history != nil {
		var err error
		if st, err = b.history.Stats(ctx); err != nil {
			slog.Error("Failed to load stats", "error", err)
		}
	}

	var live *downloader.Stats
	if b.live != nil {
		s := b.live.Stats()
		live = &s
	}
	b.reply(ctx, msg.ChatID, statsText(st, live))
}
