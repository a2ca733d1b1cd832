// Package downloader turns a track into a delivered audio file while
// enforcing a global concurrency limit, per-track timeouts and a file size ceiling.
package downloader

import (
	"context"

	"github.com/jaki95/soundcloud-audio-bot/internal/domain"
	"github.com/jaki95/soundcloud-audio-bot/internal/transport"
)

// Fetcher performs the blocking extraction and download of a track into outputDir.
// Implementations are not required to honour ctx promptly.
type Fetcher interface {
	Fetch(ctx context.Context, sourceURL, outputDir string) error
}

// SizeProber returns the declared or approximate size of a track without
// downloading the payload. known is false when the source does not report one.
type SizeProber interface {
	ProbeSize(ctx context.Context, sourceURL string) (size int64, known bool, err error)
}

// Deliverer hands a finished file to the user. transport.Transport satisfies it.
type Deliverer interface {
	DeliverAudio(ctx context.Context, audio transport.Audio) error
}

// Downloader runs a single download attempt.
type Downloader interface {
	Download(ctx context.Context, req Request) domain.Outcome
}

// SizeFunc adapts a function to SizeProber
type SizeFunc func(ctx context.Context, sourceURL string) (int64, bool, error)

func (f SizeFunc) ProbeSize(ctx context.Context, sourceURL string) (int64, bool, error) {
	return f(ctx, sourceURL)
}
