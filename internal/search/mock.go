package search

import (
	"context"
	"sync"

	"github.com/jaki95/soundcloud-audio-bot/internal/domain"
)

// MockProvider is a mock implementation of Provider for testing
type MockProvider struct {
	SearchFunc func(ctx context.Context, query string) ([]domain.Track, error)

	mu      sync.Mutex
	queries []string
}

// Search implements the Provider interface
func (m *MockProvider) Search(ctx context.Context, query string) ([]domain.Track, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()

	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query)
	}
	return nil, nil
}

// Queries returns every query received so far
func (m *MockProvider) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}
