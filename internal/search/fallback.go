package search

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jaki95/soundcloud-audio-bot/internal/domain"
)

// Fallback tries each provider in order and returns the first non-empty result
type Fallback struct {
	providers []Provider
}

func NewFallback(providers ...Provider) *Fallback {
	return &Fallback{providers: providers}
}

func (f *Fallback) Search(ctx context.Context, query string) ([]domain.Track, error) {
	var errs []error
	for i, p := range f.providers {
		tracks, err := p.Search(ctx, query)
		if err == nil && len(tracks) > 0 {
			return tracks, nil
		}
		if err == nil {
			err = ErrNoResults
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		slog.Warn("Search provider failed, trying next", "provider", i, "query", query, "error", err)
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return nil, ErrNoResults
	}
	return nil, errors.Join(errs...)
}
