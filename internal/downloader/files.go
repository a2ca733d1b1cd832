package downloader

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// DefaultExtensions are the audio containers accepted from the fetcher.
var DefaultExtensions = []string{".mp3", ".m4a", ".ogg", ".wav", ".flac"}

func extensionSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return set
}

// findCompatibleFile returns the largest allowlisted file under dir that is
// at least minSize bytes.
func findCompatibleFile(dir string, extensions map[string]struct{}, minSize int64) (string, int64, error) {
	var (
		best     string
		bestSize int64 = -1
		tooSmall int
	)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := extensions[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() < minSize {
			tooSmall++
			return nil
		}
		if info.Size() > bestSize {
			best = path
			bestSize = info.Size()
		}
		return nil
	})
	if err != nil {
		return "", 0, fmt.Errorf("error scanning output directory: %w", err)
	}

	if best == "" {
		if tooSmall > 0 {
			return "", 0, fmt.Errorf("%w: %d candidate(s) below %d bytes", ErrFileTooSmall, tooSmall, minSize)
		}
		return "", 0, fmt.Errorf("%w: in directory %s", ErrNoAudioFiles, dir)
	}

	return best, bestSize, nil
}
