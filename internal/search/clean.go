package search

import (
	"regexp"
	"strings"

	"github.com/jaki95/soundcloud-audio-bot/internal/domain"
)

const (
	minTrackSeconds = 10
	maxTrackSeconds = 2 * 60 * 60
)

var (
	noiseTags     = regexp.MustCompile(`(?i)\b(official music video|official video|official audio|lyric video|1080p|720p|4k|hd|audio)\b`)
	emptyBrackets = regexp.MustCompile(`[\(\[]\s*[\)\]]`)

	problematicTitleWords = []string{"unavailable", "deleted", "private", "preview", "sample"}
	problematicURLParts   = []string{"/unavailable", "/deleted", "private"}

	artistSeparators = []string{" - ", " – ", " — ", " by ", " · "}
)

// CleanTitle strips video style tags and collapses whitespace
func CleanTitle(title string) string {
	title = noiseTags.ReplaceAllString(title, "")
	title = emptyBrackets.ReplaceAllString(title, "")
	return strings.Join(strings.Fields(title), " ")
}

// SplitArtistTitle splits "Artist - Title" style names. artist is empty
// when no separator is present.
func SplitArtistTitle(name string) (artist, title string) {
	for _, sep := range artistSeparators {
		parts := strings.SplitN(name, sep, 2)
		if len(parts) == 2 {
			artist = strings.TrimSpace(parts[0])
			title = strings.TrimSpace(parts[1])
			title = strings.TrimSuffix(title, " | Free Download")
			title = strings.TrimSuffix(title, " | Free Stream")
			return artist, title
		}
	}
	return "", strings.TrimSpace(name)
}

// Valid filters out previews, removed tracks and implausible durations.
// A zero duration means unknown and is accepted.
func Valid(track domain.Track) bool {
	if track.Title == "" || track.SourceURL == "" {
		return false
	}
	if track.DurationSeconds != 0 && (track.DurationSeconds <= minTrackSeconds || track.DurationSeconds > maxTrackSeconds) {
		return false
	}

	title := strings.ToLower(track.Title)
	for _, word := range problematicTitleWords {
		if strings.Contains(title, word) {
			return false
		}
	}

	url := strings.ToLower(track.SourceURL)
	for _, part := range problematicURLParts {
		if strings.Contains(url, part) {
			return false
		}
	}
	return true
}

// Normalize returns the cache key form of a query
func Normalize(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}
