package job

import (
	"time"

	"github.com/jaki95/soundcloud-audio-bot/internal/domain"
	"github.com/jaki95/soundcloud-audio-bot/internal/progress"
)

// Constants for pagination
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// DefaultMaxAttempts bounds how many attempts the registry remembers
const DefaultMaxAttempts = 1000

// Attempt is the registry's view of one download attempt
type Attempt struct {
	ID        string           `json:"id"`
	Stage     progress.Stage   `json:"stage"`
	Track     domain.Track     `json:"track"`
	Message   string           `json:"message,omitempty"`
	Outcome   *domain.Outcome  `json:"outcome,omitempty"`
	Events    []progress.Event `json:"events"`
	StartTime time.Time        `json:"startTime"`
	UpdatedAt time.Time        `json:"updatedAt"`
	EndTime   *time.Time       `json:"endTime,omitempty"`
}

// Response is one page of attempts, newest first
type Response struct {
	Attempts      []*Attempt `json:"attempts"`
	Page          int        `json:"page"`
	PageSize      int        `json:"pageSize"`
	TotalAttempts int        `json:"totalAttempts"`
	TotalPages    int        `json:"totalPages"`
}
