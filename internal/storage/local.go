package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var ErrOutsideRoot = errors.New("path is outside workspace root")

// LocalWorkspace implements the Workspace interface on the local filesystem
type LocalWorkspace struct {
	root string
}

// NewLocalWorkspace creates the root directory if needed. An empty root
// means a "sc-audio-bot" directory under the system temp dir.
func NewLocalWorkspace(root string) (*LocalWorkspace, error) {
	if root == "" {
		root = filepath.Join(os.TempDir(), "sc-audio-bot")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create workspace root %s: %w", root, err)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}

	return &LocalWorkspace{root: abs}, nil
}

// Root returns the directory under which attempt directories are created
func (w *LocalWorkspace) Root() string {
	return w.root
}

// Create makes a unique directory for the attempt
func (w *LocalWorkspace) Create(attemptID string) (string, error) {
	dir, err := os.MkdirTemp(w.root, sanitizeName(attemptID)+"-")
	if err != nil {
		return "", fmt.Errorf("failed to create attempt directory: %w", err)
	}
	return dir, nil
}

// Remove deletes an attempt directory; only paths under the root are accepted
func (w *LocalWorkspace) Remove(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	if abs == w.root || !strings.HasPrefix(abs, w.root+string(os.PathSeparator)) {
		return fmt.Errorf("%w: %s", ErrOutsideRoot, dir)
	}
	if err := os.RemoveAll(abs); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", dir, err)
	}
	return nil
}

// sanitizeName replaces characters that are problematic on common filesystems.
func sanitizeName(name string) string {
	unsafe := []string{"/", "\\", "..", ":", "*", "?", "\"", "<", ">", "|", " "}
	result := name
	for _, char := range unsafe {
		result = strings.ReplaceAll(result, char, "_")
	}
	if result == "" {
		return "attempt"
	}
	return result
}

// Sweep removes attempt directories not modified within maxAge. Attempts
// normally clean up after themselves; this catches what a crash left behind.
func (w *LocalWorkspace) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return 0, fmt.Errorf("failed to read workspace root: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}

		dir := filepath.Join(w.root, entry.Name())
		if err := os.RemoveAll(dir); err != nil {
			slog.Error("Failed to remove stale attempt directory", "dir", dir, "error", err)
			continue
		}
		slog.Debug("Removed stale attempt directory", "dir", dir, "age", time.Since(info.ModTime()))
		removed++
	}
	return removed, nil
}

// StartJanitor sweeps the workspace every interval until ctx is done
func (w *LocalWorkspace) StartJanitor(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := w.Sweep(maxAge)
				if err != nil {
					slog.Error("Workspace sweep failed", "error", err)
				} else if n > 0 {
					slog.Info("Workspace sweep completed", "directories_removed", n)
				}
			}
		}
	}()
	slog.Info("Workspace janitor started", "interval", interval, "max_age", maxAge)
}
