package domain

import (
	"fmt"
	"strings"
)

// Track describes a remote audio item found by a search provider.
// It is passed by value and never mutated after creation.
type Track struct {
	Title           string `json:"title"`
	Artist          string `json:"artist"`
	SourceURL       string `json:"source_url"`
	DurationSeconds int    `json:"duration_seconds"`
}

// DisplayName returns "Artist - Title", or just the title when the artist is unknown.
func (t Track) DisplayName() string {
	if t.Artist == "" {
		return t.Title
	}
	return fmt.Sprintf("%s - %s", t.Artist, t.Title)
}

// FormatDuration renders the duration as MM:SS, or HH:MM:SS for tracks over an hour.
func (t Track) FormatDuration() string {
	if t.DurationSeconds <= 0 {
		return "00:00"
	}
	hours := t.DurationSeconds / 3600
	minutes := (t.DurationSeconds % 3600) / 60
	secs := t.DurationSeconds % 60
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}

// Truncate shortens s to at most n runes, appending an ellipsis when cut.
func Truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 1 {
		return string(runes[:n])
	}
	return string(runes[:n-1]) + "…"
}
