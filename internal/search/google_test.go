package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/jaki95/soundcloud-audio-bot/internal/domain"
)

const googleResponse = `{
  "items": [
    {"title": "Stream Night Drive (Official Audio) by Synth Artist | Listen online for free on SoundCloud", "link": "https://soundcloud.com/synth/night-drive"},
    {"title": "Synth Artist | SoundCloud", "link": "https://soundcloud.com/synth"},
    {"title": "Night Drive playlist", "link": "https://soundcloud.com/synth/sets/night"},
    {"title": "Night Drive - elsewhere", "link": "https://example.com/synth/night-drive"},
    {"title": "Other - Morning", "link": "https://m.soundcloud.com/other/morning"}
  ]
}`

func newGoogleServer(t *testing.T, body string, status int) (*httptest.Server, *[]string) {
	t.Helper()
	var queries []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query().Get("q"))
		assert.Equal(t, "engine", r.URL.Query().Get("cx"))
		assert.Equal(t, "key", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, &queries
}

func TestGoogleSearch(t *testing.T) {
	server, queries := newGoogleServer(t, googleResponse, http.StatusOK)

	g, err := NewGoogle(context.Background(), "key", "engine", 5, option.WithEndpoint(server.URL+"/"))
	require.NoError(t, err)

	tracks, err := g.Search(context.Background(), " night drive ")
	require.NoError(t, err)

	assert.Equal(t, []string{"site:soundcloud.com night drive"}, *queries)
	assert.Equal(t, []domain.Track{
		{Title: "Night Drive", Artist: "Synth Artist", SourceURL: "https://soundcloud.com/synth/night-drive"},
		{Title: "Morning", Artist: "Other", SourceURL: "https://soundcloud.com/other/morning"},
	}, tracks)
}

func TestGoogleSearchNoResults(t *testing.T) {
	server, _ := newGoogleServer(t, `{"items": []}`, http.StatusOK)

	g, err := NewGoogle(context.Background(), "key", "engine", 5, option.WithEndpoint(server.URL+"/"))
	require.NoError(t, err)

	_, err = g.Search(context.Background(), "q")
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestGoogleSearchHTTPError(t *testing.T) {
	server, _ := newGoogleServer(t, `{"error": {"code": 403, "message": "quota exceeded"}}`, http.StatusForbidden)

	g, err := NewGoogle(context.Background(), "key", "engine", 5, option.WithEndpoint(server.URL+"/"))
	require.NoError(t, err)

	_, err = g.Search(context.Background(), "q")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoResults)
}

func TestNewGoogleRequiresCredentials(t *testing.T) {
	_, err := NewGoogle(context.Background(), "", "engine", 5)
	assert.ErrorIs(t, err, ErrGoogleNotConfigured)

	_, err = NewGoogle(context.Background(), "key", "", 5)
	assert.ErrorIs(t, err, ErrGoogleNotConfigured)
}

func TestGoogleSearchEmptyQuery(t *testing.T) {
	g, err := NewGoogle(context.Background(), "key", "engine", 5)
	require.NoError(t, err)

	_, err = g.Search(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrInvalidQuery)
}
