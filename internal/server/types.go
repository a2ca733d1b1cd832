package server

import (
	"time"

	"github.com/jaki95/soundcloud-audio-bot/internal/downloader"
	"github.com/jaki95/soundcloud-audio-bot/internal/history"
)

// HealthResponse is returned by /health
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
	Active    int       `json:"activeAttempts"`
}

// StatsResponse combines live counters with persisted totals. Either part is
// omitted when its source is not configured.
type StatsResponse struct {
	Live    *downloader.Stats `json:"live,omitempty"`
	History *history.Stats    `json:"history,omitempty"`
}

// ArchiveResponse lists archived object names
type ArchiveResponse struct {
	Objects []string `json:"objects"`
	Count   int      `json:"count"`
}

// ErrorResponse represents a generic error payload
type ErrorResponse struct {
	Error string `json:"error"`
}
