package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	customsearch "google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"github.com/jaki95/soundcloud-audio-bot/internal/domain"
)

// Custom Search returns at most 10 results per request
const maxGoogleResults = 10

var ErrGoogleNotConfigured = errors.New("google search requires an API key and a search engine ID")

// Google finds SoundCloud track pages through a Programmable Search Engine
// restricted to soundcloud.com. Results carry no duration.
type Google struct {
	svc      *customsearch.Service
	engineID string
	limit    int
}

// NewGoogle creates the provider. Extra client options are passed to the
// API client, e.g. option.WithEndpoint in tests.
func NewGoogle(ctx context.Context, apiKey, engineID string, limit int, opts ...option.ClientOption) (*Google, error) {
	if apiKey == "" || engineID == "" {
		return nil, ErrGoogleNotConfigured
	}
	if limit <= 0 || limit > maxGoogleResults {
		limit = maxGoogleResults
	}

	svc, err := customsearch.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create custom search client: %w", err)
	}
	return &Google{svc: svc, engineID: engineID, limit: limit}, nil
}

func (g *Google) Search(ctx context.Context, query string) ([]domain.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidQuery
	}

	resp, err := g.svc.Cse.List().
		Cx(g.engineID).
		Q("site:soundcloud.com " + query).
		Num(int64(g.limit)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("google search for %q failed: %w", query, err)
	}

	var tracks []domain.Track
	for _, item := range resp.Items {
		track, ok := trackFromResult(item.Link, item.Title)
		if !ok || !Valid(track) {
			continue
		}
		tracks = append(tracks, track)
	}

	slog.Info("Google search completed", "query", query, "results", len(tracks))
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoResults, query)
	}
	return tracks, nil
}

// trackFromResult parses result titles such as
// "Stream Night Drive by Synth Artist | Listen online for free on SoundCloud".
func trackFromResult(link, title string) (domain.Track, bool) {
	u, err := url.Parse(link)
	if err != nil {
		return domain.Track{}, false
	}
	if host := u.Hostname(); host != "soundcloud.com" && !strings.HasSuffix(host, ".soundcloud.com") {
		return domain.Track{}, false
	}

	name, _, _ := strings.Cut(title, " | ")
	name = strings.TrimPrefix(strings.TrimSpace(name), "Stream ")

	track, ok := trackFromLink(u.Path, name)
	if !ok {
		return domain.Track{}, false
	}
	if i := strings.LastIndex(name, " by "); i > 0 {
		track.Title = CleanTitle(name[:i])
		track.Artist = strings.TrimSpace(name[i+len(" by "):])
	}
	return track, true
}
