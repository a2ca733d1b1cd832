package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackJSONSerialization(t *testing.T) {
	track := Track{
		Title:           "Test Title",
		Artist:          "Test Artist",
		SourceURL:       "https://soundcloud.com/test-artist/test-title",
		DurationSeconds: 245,
	}

	data, err := json.Marshal(track)
	assert.NoError(t, err)

	expected := `{"title":"Test Title","artist":"Test Artist","source_url":"https://soundcloud.com/test-artist/test-title","duration_seconds":245}`
	assert.JSONEq(t, expected, string(data))
}

func TestTrackDisplayName(t *testing.T) {
	assert.Equal(t, "Artist - Title", Track{Title: "Title", Artist: "Artist"}.DisplayName())
	assert.Equal(t, "Title", Track{Title: "Title"}.DisplayName())
}

func TestTrackFormatDuration(t *testing.T) {
	tests := []struct {
		seconds  int
		expected string
	}{
		{0, "00:00"},
		{-5, "00:00"},
		{59, "00:59"},
		{245, "04:05"},
		{3725, "01:02:05"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Track{DurationSeconds: tt.seconds}.FormatDuration())
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 64))
	assert.Equal(t, "abcd…", Truncate("abcdefgh", 5))
	assert.Equal(t, "приве…", Truncate("привет мир", 6))
}

func TestOutcomeConstructors(t *testing.T) {
	delivered := Delivered(30 * 1024 * 1024)
	assert.True(t, delivered.IsDelivered())
	assert.Equal(t, "delivered(31457280)", delivered.String())

	rejected := RejectedTooLarge(80 * 1024 * 1024)
	assert.Equal(t, OutcomeRejectedTooLarge, rejected.Kind)
	assert.False(t, rejected.Retryable())

	failed := Failed(ReasonTimeout, errors.New("deadline"))
	assert.Equal(t, OutcomeFailed, failed.Kind)
	assert.True(t, failed.Retryable())
	assert.Equal(t, "failed(timeout)", failed.String())

	assert.False(t, Failed(ReasonExtraction, nil).Retryable())
}

func TestOutcomeJSONHidesError(t *testing.T) {
	data, err := json.Marshal(Failed(ReasonExtraction, errors.New("yt-dlp: HTTP Error 404")))
	assert.NoError(t, err)
	assert.NotContains(t, string(data), "404")
	assert.Contains(t, string(data), `"reason":"extraction"`)
}
