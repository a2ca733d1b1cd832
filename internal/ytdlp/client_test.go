package ytdlp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRun struct {
	binary string
	args   []string
}

func fakeRunner(out string, err error, captured *capturedRun) runner {
	return func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		captured.binary = binary
		captured.args = args
		return []byte(out), err
	}
}

const searchOutput = `{
  "_type": "playlist",
  "entries": [
    {"id": "1", "title": "Night Drive", "uploader": "Synth Artist", "url": "https://soundcloud.com/synth/night-drive", "duration": 215.4},
    {"id": "2", "title": "Morning", "uploader": "Other", "url": "https://api.soundcloud.com/tracks/2", "webpage_url": "https://soundcloud.com/other/morning", "duration": 98}
  ]
}`

func TestSearch(t *testing.T) {
	var captured capturedRun
	c := NewClient(WithBinary("/opt/yt-dlp"), WithCookies("cookies.txt"))
	c.run = fakeRunner(searchOutput, nil, &captured)

	entries, err := c.Search(context.Background(), "  night drive ", 5)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "/opt/yt-dlp", captured.binary)
	assert.Contains(t, captured.args, "--flat-playlist")
	assert.Contains(t, captured.args, "--cookies")
	assert.Equal(t, "scsearch5:night drive", captured.args[len(captured.args)-1])

	assert.Equal(t, "Night Drive", entries[0].Title)
	assert.Equal(t, "https://soundcloud.com/synth/night-drive", entries[0].Link())
	assert.InDelta(t, 215.4, entries[0].Duration, 0.001)
	assert.Equal(t, "https://soundcloud.com/other/morning", entries[1].Link())
}

func TestSearchEmptyQuery(t *testing.T) {
	c := NewClient()
	_, err := c.Search(context.Background(), "   ", 5)
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestSearchInvalidJSON(t *testing.T) {
	var captured capturedRun
	c := NewClient()
	c.run = fakeRunner("not json", nil, &captured)

	_, err := c.Search(context.Background(), "query", 1)
	assert.Error(t, err)
}

func TestProbeSize(t *testing.T) {
	tests := []struct {
		name          string
		output        string
		expectedSize  int64
		expectedKnown bool
	}{
		{name: "exact size", output: `{"filesize": 5242880, "filesize_approx": 6000000}`, expectedSize: 5242880, expectedKnown: true},
		{name: "approximate size", output: `{"filesize": null, "filesize_approx": 83886080}`, expectedSize: 83886080, expectedKnown: true},
		{name: "unknown size", output: `{"title": "x"}`, expectedSize: 0, expectedKnown: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured capturedRun
			c := NewClient()
			c.run = fakeRunner(tt.output, nil, &captured)

			size, known, err := c.ProbeSize(context.Background(), "https://soundcloud.com/a/b")
			require.NoError(t, err)
			assert.Equal(t, tt.expectedSize, size)
			assert.Equal(t, tt.expectedKnown, known)
			assert.Contains(t, captured.args, "--skip-download")
			assert.Contains(t, captured.args, AudioFormat)
		})
	}
}

func TestProbeSizeError(t *testing.T) {
	var captured capturedRun
	c := NewClient()
	c.run = fakeRunner("", errors.New("ERROR: Unable to download JSON metadata"), &captured)

	_, known, err := c.ProbeSize(context.Background(), "https://soundcloud.com/a/b")
	assert.Error(t, err)
	assert.False(t, known)
}

func TestFetchArgs(t *testing.T) {
	c := NewClient()
	args := c.fetchArgs("https://soundcloud.com/a/b")

	assert.Equal(t, "https://soundcloud.com/a/b", args[len(args)-1])
	assert.Contains(t, args, "--no-playlist")
	assert.Contains(t, args, "--no-part")
	assert.Contains(t, args, outputTemplate)
}

func TestLastLine(t *testing.T) {
	assert.Equal(t, "ERROR: 404", lastLine("[soundcloud] x\nERROR: 404\n"))
	assert.Equal(t, "single", lastLine("single"))
	assert.Equal(t, "", lastLine(""))
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "yt-dlp")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func TestFetchWritesIntoOutputDir(t *testing.T) {
	script := writeScript(t, `printf 'audio' > "./track.m4a"`)
	outDir := filepath.Join(t.TempDir(), "attempt")

	c := NewClient(WithBinary(script))
	require.NoError(t, c.Fetch(context.Background(), "https://soundcloud.com/a/b", outDir))

	data, err := os.ReadFile(filepath.Join(outDir, "track.m4a"))
	require.NoError(t, err)
	assert.Equal(t, "audio", string(data))
}

func TestFetchReportsFailure(t *testing.T) {
	script := writeScript(t, `echo "ERROR: track is private" >&2; exit 1`)

	c := NewClient(WithBinary(script))
	err := c.Fetch(context.Background(), "https://soundcloud.com/a/b", t.TempDir())

	assert.ErrorIs(t, err, ErrExtraction)
	assert.Contains(t, err.Error(), "track is private")
}

func TestFetchHonoursContext(t *testing.T) {
	script := writeScript(t, `sleep 10`)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	c := NewClient(WithBinary(script), WithProgressInterval(20*time.Millisecond))
	start := time.Now()
	err := c.Fetch(ctx, "https://soundcloud.com/a/b", t.TempDir())

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestFetchMissingBinary(t *testing.T) {
	c := NewClient(WithBinary(filepath.Join(t.TempDir(), "missing")))
	err := c.Fetch(context.Background(), "https://soundcloud.com/a/b", t.TempDir())
	assert.ErrorIs(t, err, ErrNotAvailable)
}
