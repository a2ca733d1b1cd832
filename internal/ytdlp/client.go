// Package ytdlp drives the yt-dlp command line tool for SoundCloud search,
// metadata probes and audio downloads.
package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

const (
	defaultBinary           = "yt-dlp"
	defaultProgressInterval = 10 * time.Second

	// AudioFormat prefers containers Telegram plays inline.
	AudioFormat    = "bestaudio[ext=m4a]/bestaudio[ext=mp3]/bestaudio/best"
	outputTemplate = "%(title).100s.%(ext)s"
)

var (
	ErrNotAvailable = errors.New("yt-dlp not available")
	ErrExtraction   = errors.New("yt-dlp extraction failed")
	ErrInvalidQuery = errors.New("invalid query")
)

// Entry is the subset of yt-dlp's info JSON the bot relies on
type Entry struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Uploader       string  `json:"uploader"`
	URL            string  `json:"url"`
	WebpageURL     string  `json:"webpage_url"`
	Duration       float64 `json:"duration"`
	Filesize       int64   `json:"filesize"`
	FilesizeApprox int64   `json:"filesize_approx"`
	Availability   string  `json:"availability"`
}

// Link returns the page URL, falling back to the raw URL
func (e Entry) Link() string {
	if e.WebpageURL != "" {
		return e.WebpageURL
	}
	return e.URL
}

type playlist struct {
	Entries []Entry `json:"entries"`
}

// runner executes the binary and returns its stdout
type runner func(ctx context.Context, binary string, args ...string) ([]byte, error)

// Client wraps the yt-dlp binary
type Client struct {
	binary           string
	cookiesFile      string
	progressInterval time.Duration
	run              runner
}

// Option configures a Client
type Option func(*Client)

// WithBinary sets the executable path
func WithBinary(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.binary = path
		}
	}
}

// WithCookies passes a Netscape cookies file to every invocation
func WithCookies(path string) Option {
	return func(c *Client) { c.cookiesFile = path }
}

// WithProgressInterval sets how often a running download is logged
func WithProgressInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.progressInterval = d
		}
	}
}

// NewClient creates a new yt-dlp client
func NewClient(opts ...Option) *Client {
	c := &Client{
		binary:           defaultBinary,
		progressInterval: defaultProgressInterval,
		run:              runCommand,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Available verifies that yt-dlp is installed
func (c *Client) Available(ctx context.Context) error {
	out, err := c.run(ctx, c.binary, "--version")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotAvailable, err)
	}
	slog.Debug("yt-dlp available", "version", strings.TrimSpace(string(out)))
	return nil
}

func (c *Client) baseArgs() []string {
	args := []string{"--no-warnings", "--ignore-config"}
	if c.cookiesFile != "" {
		args = append(args, "--cookies", c.cookiesFile)
	}
	return args
}

// Search returns up to limit flat SoundCloud search entries
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Entry, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidQuery
	}
	if limit <= 0 {
		limit = 1
	}

	args := append(c.baseArgs(),
		"--dump-single-json",
		"--flat-playlist",
		"--skip-download",
		fmt.Sprintf("scsearch%d:%s", limit, query),
	)

	out, err := c.run(ctx, c.binary, args...)
	if err != nil {
		return nil, err
	}

	var result playlist
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, fmt.Errorf("failed to parse search output: %w", err)
	}
	return result.Entries, nil
}

// ProbeSize reads the declared or approximate size of the selected audio format
func (c *Client) ProbeSize(ctx context.Context, sourceURL string) (int64, bool, error) {
	args := append(c.baseArgs(),
		"--dump-single-json",
		"--skip-download",
		"--no-playlist",
		"-f", AudioFormat,
		sourceURL,
	)

	out, err := c.run(ctx, c.binary, args...)
	if err != nil {
		return 0, false, err
	}

	var entry Entry
	if err := json.Unmarshal(out, &entry); err != nil {
		return 0, false, fmt.Errorf("failed to parse probe output: %w", err)
	}

	switch {
	case entry.Filesize > 0:
		return entry.Filesize, true, nil
	case entry.FilesizeApprox > 0:
		return entry.FilesizeApprox, true, nil
	default:
		return 0, false, nil
	}
}

func (c *Client) fetchArgs(sourceURL string) []string {
	return append(c.baseArgs(),
		"-f", AudioFormat,
		"--no-playlist",
		"--no-part",
		"--retries", "3",
		"--socket-timeout", "30",
		"-o", outputTemplate,
		sourceURL,
	)
}

// Fetch downloads the track's audio into outputDir. The process is killed
// when ctx is done.
func (c *Client) Fetch(ctx context.Context, sourceURL, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	args := c.fetchArgs(sourceURL)
	cmd := exec.CommandContext(ctx, c.binary, args...)
	cmd.Dir = outputDir

	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrNotAvailable, err)
	}

	pid := cmd.Process.Pid
	slog.Info("yt-dlp process started", "pid", pid, "url", sourceURL)

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	ticker := time.NewTicker(c.progressInterval)
	defer ticker.Stop()
	start := time.Now()

	for {
		select {
		case err := <-done:
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				return fmt.Errorf("%w: %v: %s", ErrExtraction, err, lastLine(stderrBuf.String()))
			}
			slog.Info("yt-dlp download completed", "pid", pid, "elapsed", time.Since(start))
			return nil
		case <-ctx.Done():
			slog.Warn("Context done, killing yt-dlp process", "pid", pid)
			if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
				slog.Error("Failed to kill yt-dlp process", "pid", pid, "error", err)
			}
			return ctx.Err()
		case <-ticker.C:
			slog.Info("yt-dlp download still in progress...", "pid", pid, "elapsed", time.Since(start))
		}
	}
}

func runCommand(ctx context.Context, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return nil, fmt.Errorf("%w: %v", ErrNotAvailable, err)
		}
		return nil, fmt.Errorf("%w: %v: %s", ErrExtraction, err, lastLine(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// lastLine keeps error messages short; yt-dlp prints the cause last.
func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
