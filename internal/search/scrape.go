package search

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly"

	"github.com/jaki95/soundcloud-audio-bot/internal/domain"
)

const (
	soundCloudBaseURL = "https://soundcloud.com"
	scrapeTimeout     = 15 * time.Second
	userAgent         = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Scraper reads the server rendered result list SoundCloud embeds in a
// <noscript> block of its search page. It needs no API key and serves as a
// fallback when yt-dlp search fails.
type Scraper struct {
	baseURL string
	limit   int
}

func NewScraper(baseURL string, limit int) *Scraper {
	if baseURL == "" {
		baseURL = soundCloudBaseURL
	}
	if limit <= 0 {
		limit = defaultResultLimit
	}
	return &Scraper{baseURL: strings.TrimRight(baseURL, "/"), limit: limit}
}

func (s *Scraper) Search(ctx context.Context, query string) ([]domain.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidQuery
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.UserAgent(userAgent),
	)
	c.SetRequestTimeout(scrapeTimeout)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.5")
	})

	var (
		tracks  []domain.Track
		seen    = make(map[string]bool)
		scanErr error
	)

	c.OnHTML("noscript", func(e *colly.HTMLElement) {
		// noscript content arrives as raw text and has to be parsed again
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(e.Text))
		if err != nil {
			scanErr = err
			return
		}
		doc.Find("li h2 a").Each(func(_ int, a *goquery.Selection) {
			if len(tracks) >= s.limit {
				return
			}
			href, ok := a.Attr("href")
			if !ok {
				return
			}
			track, ok := trackFromLink(href, a.Text())
			if !ok || seen[track.SourceURL] || !Valid(track) {
				return
			}
			seen[track.SourceURL] = true
			tracks = append(tracks, track)
		})
	})

	var requestErr error
	c.OnError(func(r *colly.Response, err error) {
		requestErr = fmt.Errorf("request %s failed with status %d: %w", r.Request.URL, r.StatusCode, err)
	})

	searchURL := fmt.Sprintf("%s/search/sounds?q=%s", s.baseURL, url.QueryEscape(query))
	if err := c.Visit(searchURL); err != nil && requestErr == nil {
		requestErr = err
	}
	if requestErr != nil {
		return nil, requestErr
	}
	if scanErr != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", scanErr)
	}

	slog.Info("Scraped SoundCloud search page", "query", query, "results", len(tracks))
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoResults, query)
	}
	return tracks, nil
}

// trackFromLink accepts "/<user>/<track>" links only; users, sets and
// navigation links have a different shape.
func trackFromLink(href, text string) (domain.Track, bool) {
	u, err := url.Parse(href)
	if err != nil {
		return domain.Track{}, false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" || parts[1] == "sets" {
		return domain.Track{}, false
	}

	artist, title := SplitArtistTitle(CleanTitle(text))
	if artist == "" {
		artist = parts[0]
	}

	return domain.Track{
		Title:     title,
		Artist:    artist,
		SourceURL: soundCloudBaseURL + "/" + parts[0] + "/" + parts[1],
	}, true
}
