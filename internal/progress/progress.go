package progress

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/jaki95/soundcloud-audio-bot/internal/domain"
)

// Stage represents the state of a download attempt
type Stage string

const (
	StageEstimating Stage = "estimating"
	StageQueued     Stage = "queued"
	StageRunning    Stage = "running"
	StageDelivering Stage = "delivering"
	StageDelivered  Stage = "delivered"
	StageRejected   Stage = "rejected"
	StageFailed     Stage = "failed"
)

// Terminal reports whether no further events follow this stage for the attempt.
func (s Stage) Terminal() bool {
	return s == StageDelivered || s == StageRejected || s == StageFailed
}

// Event represents a stage transition of one attempt
type Event struct {
	AttemptID string          `json:"attemptId"`
	Stage     Stage           `json:"stage"`
	Track     domain.Track    `json:"track"`
	Message   string          `json:"message,omitempty"`
	Outcome   *domain.Outcome `json:"outcome,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Listener receives events. Listeners are called synchronously and must not block.
type Listener func(Event)

// Tracker fans events out to registered listeners
type Tracker struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[int]Listener
}

// NewTracker creates a new Tracker instance
func NewTracker() *Tracker {
	return &Tracker{
		listeners: make(map[int]Listener),
	}
}

// AddListener registers a listener and returns a function that removes it
func (t *Tracker) AddListener(listener Listener) func() {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextID
	t.nextID++
	t.listeners[id] = listener

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.listeners, id)
	}
}

// Publish stamps the event and notifies all listeners
func (t *Tracker) Publish(event Event) {
	if t == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	t.mu.RLock()
	listeners := make([]Listener, 0, len(t.listeners))
	for _, l := range t.listeners {
		listeners = append(listeners, l)
	}
	t.mu.RUnlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// MarshalJSON implements json.Marshaler for Event
func (e Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	return json.Marshal(&struct {
		Timestamp string `json:"timestamp"`
		*Alias
	}{
		Timestamp: e.Timestamp.Format(time.RFC3339Nano),
		Alias:     (*Alias)(&e),
	})
}

// UnmarshalJSON implements json.Unmarshaler for Event
func (e *Event) UnmarshalJSON(data []byte) error {
	type Alias Event
	aux := &struct {
		Timestamp string `json:"timestamp"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t, err := time.Parse(time.RFC3339Nano, aux.Timestamp)
	if err != nil {
		return err
	}
	e.Timestamp = t
	return nil
}
