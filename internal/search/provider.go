// Package search finds SoundCloud tracks for a free text query.
package search

import (
	"context"
	"errors"

	"github.com/jaki95/soundcloud-audio-bot/internal/domain"
)

var (
	ErrNoResults    = errors.New("no results found")
	ErrInvalidQuery = errors.New("invalid query")
)

// Provider returns tracks matching query, best match first
type Provider interface {
	Search(ctx context.Context, query string) ([]domain.Track, error)
}

// ProviderFunc adapts a function to Provider
type ProviderFunc func(ctx context.Context, query string) ([]domain.Track, error)

func (f ProviderFunc) Search(ctx context.Context, query string) ([]domain.Track, error) {
	return f(ctx, query)
}
