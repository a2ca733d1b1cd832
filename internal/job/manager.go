package job

import (
	"fmt"
	"sync"

	"github.com/jaki95/soundcloud-audio-bot/internal/progress"
)

// Manager records download attempts from progress events. Once it holds
// maxAttempts entries the oldest one is forgotten.
type Manager struct {
	mu          sync.RWMutex
	attempts    map[string]*Attempt
	order       []string
	maxAttempts int
}

// NewManager creates a new attempt registry
func NewManager(maxAttempts int) *Manager {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Manager{
		attempts:    make(map[string]*Attempt),
		maxAttempts: maxAttempts,
	}
}

// Attach subscribes the manager to tracker and returns the unsubscribe function
func (m *Manager) Attach(tracker *progress.Tracker) func() {
	return tracker.AddListener(m.HandleEvent)
}

// HandleEvent applies one stage transition
func (m *Manager) HandleEvent(event progress.Event) {
	if event.AttemptID == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	a, exists := m.attempts[event.AttemptID]
	if !exists {
		a = &Attempt{
			ID:        event.AttemptID,
			Track:     event.Track,
			StartTime: event.Timestamp,
		}
		m.attempts[a.ID] = a
		m.order = append(m.order, a.ID)
		m.evict()
	}

	a.Stage = event.Stage
	a.Message = event.Message
	a.UpdatedAt = event.Timestamp
	a.Events = append(a.Events, event)
	if event.Outcome != nil {
		outcome := *event.Outcome
		a.Outcome = &outcome
	}
	if event.Stage.Terminal() {
		end := event.Timestamp
		a.EndTime = &end
	}
}

func (m *Manager) evict() {
	for len(m.order) > m.maxAttempts {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.attempts, oldest)
	}
}

// GetAttempt retrieves a copy of an attempt by ID
func (m *Manager) GetAttempt(id string) (*Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, exists := m.attempts[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return a.clone(), nil
}

// Active counts attempts that have not reached a terminal stage
func (m *Manager) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, a := range m.attempts {
		if !a.Stage.Terminal() {
			n++
		}
	}
	return n
}

// ListAttempts lists attempts with pagination, newest first
func (m *Manager) ListAttempts(page, pageSize int) *Response {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	total := len(m.order)
	resp := &Response{
		Attempts:      []*Attempt{},
		Page:          page,
		PageSize:      pageSize,
		TotalAttempts: total,
		TotalPages:    (total + pageSize - 1) / pageSize,
	}

	start := (page - 1) * pageSize
	if start >= total {
		return resp
	}
	end := min(start+pageSize, total)

	for i := start; i < end; i++ {
		id := m.order[total-1-i]
		resp.Attempts = append(resp.Attempts, m.attempts[id].clone())
	}
	return resp
}

func (a *Attempt) clone() *Attempt {
	c := *a
	c.Events = append([]progress.Event(nil), a.Events...)
	if a.Outcome != nil {
		outcome := *a.Outcome
		c.Outcome = &outcome
	}
	if a.EndTime != nil {
		end := *a.EndTime
		c.EndTime = &end
	}
	return &c
}
