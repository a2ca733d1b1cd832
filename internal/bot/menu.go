package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"

	"github.com/jaki95/soundcloud-audio-bot/internal/domain"
	"github.com/jaki95/soundcloud-audio-bot/internal/search"
	"github.com/jaki95/soundcloud-audio-bot/internal/transport"
)

const (
	defaultPageSize = 5
	chartsPerQuery  = 10
	maxChartTracks  = 30

	actionPage = "page"
	actionPick = "pick"
	actionNoop = "noop"
)

// DefaultChartQueries feed /charts
var DefaultChartQueries = []string{
	"top hits", "trending", "chart toppers", "viral hits", "new releases",
}

// TrackList is a browsable result list attached to one menu message
type TrackList struct {
	Header string         `json:"header"`
	Tracks []domain.Track `json:"tracks"`
}

func listKey(chatID int64, messageID int) string {
	return fmt.Sprintf("%d:%d", chatID, messageID)
}

func pageCount(total, size int) int {
	return max(1, (total+size-1)/size)
}

// showList searches and presents every result as a paginated menu. Without
// menu support it falls back to delivering the first track.
func (b *Bot) showList(ctx context.Context, msg transport.Message, query string) {
	if b.menus == nil {
		b.findAndDeliver(ctx, msg, query, false)
		return
	}

	status, err := b.transport.SendStatus(ctx, msg.ChatID, searchingText(query))
	if err != nil {
		slog.Error("Failed to send status", "chat", msg.ChatID, "error", err)
		return
	}

	tracks, err := b.search.Search(ctx, query)
	if err != nil && !errors.Is(err, search.ErrNoResults) {
		slog.Warn("Search failed", "query", query, "error", err)
	}
	tracks = b.usable(tracks)
	if len(tracks) == 0 {
		b.edit(ctx, status, notFoundText(query))
		return
	}

	b.openMenu(ctx, status, TrackList{Header: listHeader(query), Tracks: tracks})
}

// showCharts merges a handful of popular queries into one shuffled list
func (b *Bot) showCharts(ctx context.Context, msg transport.Message) {
	if b.menus == nil {
		query := b.cfg.ChartQueries[rand.Intn(len(b.cfg.ChartQueries))]
		b.findAndDeliver(ctx, msg, query, true)
		return
	}

	status, err := b.transport.SendStatus(ctx, msg.ChatID, chartsLoadingText)
	if err != nil {
		slog.Error("Failed to send status", "chat", msg.ChatID, "error", err)
		return
	}

	seen := make(map[string]bool)
	var tracks []domain.Track
	for _, query := range b.cfg.ChartQueries {
		results, err := b.charts.Search(ctx, query)
		if err != nil {
			if !errors.Is(err, search.ErrNoResults) {
				slog.Warn("Chart query failed", "query", query, "error", err)
			}
			continue
		}
		for _, t := range b.usable(results[:min(len(results), chartsPerQuery)]) {
			if seen[t.SourceURL] {
				continue
			}
			seen[t.SourceURL] = true
			tracks = append(tracks, t)
		}
	}
	if len(tracks) == 0 {
		b.edit(ctx, status, chartsUnavailableText)
		return
	}

	rand.Shuffle(len(tracks), func(i, j int) { tracks[i], tracks[j] = tracks[j], tracks[i] })
	b.openMenu(ctx, status, TrackList{Header: chartsHeader(), Tracks: tracks[:min(len(tracks), maxChartTracks)]})
}

// usable drops blacklisted tracks
func (b *Bot) usable(tracks []domain.Track) []domain.Track {
	out := make([]domain.Track, 0, len(tracks))
	for _, t := range tracks {
		if b.blacklist != nil && b.blacklist.Contains(t.SourceURL) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (b *Bot) openMenu(ctx context.Context, status transport.StatusHandle, list TrackList) {
	b.lists.Set(ctx, listKey(status.ChatID, status.MessageID), list)
	b.renderPage(ctx, status, list, 0)
}

func (b *Bot) renderPage(ctx context.Context, handle transport.StatusHandle, list TrackList, page int) {
	pages := pageCount(len(list.Tracks), b.cfg.PageSize)
	if page < 0 || page >= pages {
		page = 0
	}

	text := listText(list.Header, page, pages, len(list.Tracks))
	if err := b.menus.EditMenu(ctx, handle, text, b.keyboard(list, page, pages)); err != nil {
		slog.Warn("Failed to show results page", "chat", handle.ChatID, "page", page, "error", err)
	}
}

func (b *Bot) keyboard(list TrackList, page, pages int) transport.Keyboard {
	start := page * b.cfg.PageSize
	end := min(start+b.cfg.PageSize, len(list.Tracks))

	kb := make(transport.Keyboard, 0, end-start+1)
	for i := start; i < end; i++ {
		kb = append(kb, []transport.Button{{Text: trackButton(i, list.Tracks[i]), Data: callbackData(actionPick, i)}})
	}

	var nav []transport.Button
	if page > 0 {
		nav = append(nav, transport.Button{Text: "⬅️ Back", Data: callbackData(actionPage, page-1)})
	}
	if pages > 1 {
		nav = append(nav, transport.Button{Text: fmt.Sprintf("%d/%d", page+1, pages), Data: actionNoop})
	}
	if page < pages-1 {
		nav = append(nav, transport.Button{Text: "Next ➡️", Data: callbackData(actionPage, page+1)})
	}
	if len(nav) > 0 {
		kb = append(kb, nav)
	}
	return kb
}

func callbackData(action string, n int) string {
	return action + ":" + strconv.Itoa(n)
}

func parseCallback(data string) (action string, n int, ok bool) {
	action, arg, found := strings.Cut(data, ":")
	if !found {
		return action, 0, action == actionNoop
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n < 0 {
		return "", 0, false
	}
	return action, n, action == actionPage || action == actionPick
}

// handleCallback serves button presses on result menus. Every press is
// answered so the client stops its spinner.
func (b *Bot) handleCallback(ctx context.Context, msg transport.Message) {
	if b.menus == nil {
		return
	}
	log := slog.With("chat", msg.ChatID, "user", msg.UserID, "data", msg.Data)

	action, n, ok := parseCallback(msg.Data)
	if !ok {
		log.Debug("Unknown callback")
		b.answer(ctx, msg, unknownActionText)
		return
	}
	if action == actionNoop {
		b.answer(ctx, msg, "")
		return
	}

	handle := transport.StatusHandle{ChatID: msg.ChatID, MessageID: msg.MessageID}
	list, found := b.lists.Get(ctx, listKey(msg.ChatID, msg.MessageID))
	if !found {
		b.answer(ctx, msg, listExpiredText)
		return
	}

	switch action {
	case actionPage:
		b.answer(ctx, msg, "")
		b.renderPage(ctx, handle, list, n)
	case actionPick:
		if n >= len(list.Tracks) {
			b.answer(ctx, msg, trackMissingText)
			return
		}
		b.answer(ctx, msg, pickedText)
		log.Info("Track picked from list", "index", n)
		b.deliverPicked(ctx, msg, list.Tracks[n])
	}
}

func (b *Bot) deliverPicked(ctx context.Context, msg transport.Message, track domain.Track) {
	if b.limiter != nil && !b.limiter.Allow(ctx, msg.UserID) {
		slog.Info("Rate limited", "user", msg.UserID)
		b.reply(ctx, msg.ChatID, rateLimitedText)
		return
	}

	status, err := b.transport.SendStatus(ctx, msg.ChatID, foundText(track))
	if err != nil {
		slog.Error("Failed to send status", "chat", msg.ChatID, "error", err)
		return
	}
	b.deliver(ctx, msg, status, track)
}

func (b *Bot) answer(ctx context.Context, msg transport.Message, text string) {
	if err := b.menus.AnswerCallback(ctx, msg.CallbackID, text); err != nil {
		slog.Warn("Failed to answer callback", "chat", msg.ChatID, "error", err)
	}
}
