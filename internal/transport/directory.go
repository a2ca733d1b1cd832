package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Directory delivers audio by copying it into a local directory and
// reports status through a callback. It backs the command line tool.
type Directory struct {
	outputDir string
	onStatus  func(text string)

	mu        sync.Mutex
	nextID    int
	delivered []string
}

// NewDirectory creates the output directory if needed
func NewDirectory(outputDir string, onStatus func(text string)) (*Directory, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if onStatus == nil {
		onStatus = func(string) {}
	}
	return &Directory{outputDir: outputDir, onStatus: onStatus}, nil
}

func (d *Directory) SendStatus(_ context.Context, chatID int64, text string) (StatusHandle, error) {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.mu.Unlock()

	d.onStatus(text)
	return StatusHandle{ChatID: chatID, MessageID: id}, nil
}

func (d *Directory) EditStatus(_ context.Context, _ StatusHandle, text string) error {
	d.onStatus(text)
	return nil
}

// DeliverAudio copies the file to "<performer> - <title>.<ext>" in the output directory
func (d *Directory) DeliverAudio(ctx context.Context, audio Audio) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name := sanitizeFilename(audio.Title)
	if audio.Performer != "" {
		name = sanitizeFilename(audio.Performer) + " - " + name
	}
	if name == "" {
		name = "track"
	}
	dest := filepath.Join(d.outputDir, name+strings.ToLower(filepath.Ext(audio.Path)))

	src, err := os.Open(audio.Path)
	if err != nil {
		return fmt.Errorf("failed to open downloaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("failed to copy audio: %w", err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}

	d.mu.Lock()
	d.delivered = append(d.delivered, dest)
	d.mu.Unlock()

	slog.Info("Saved audio file", "path", dest, "size", audio.SizeBytes)
	return nil
}

// Delivered returns the paths written so far
func (d *Directory) Delivered() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.delivered...)
}

func sanitizeFilename(name string) string {
	unsafe := []string{"/", "\\", "..", ":", "*", "?", "\"", "<", ">", "|"}
	result := name
	for _, char := range unsafe {
		result = strings.ReplaceAll(result, char, "_")
	}
	return strings.TrimSpace(result)
}
