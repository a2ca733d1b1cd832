package downloader

import "errors"

var (
	ErrNoAudioFiles    = errors.New("no audio files found")
	ErrFileTooSmall    = errors.New("file too small")
	ErrDownloadTimeout = errors.New("download timeout")
	ErrFetcherPanic    = errors.New("fetcher panicked")
	ErrDeliveryPanic   = errors.New("delivery panicked")
	ErrProberPanic     = errors.New("size prober panicked")
	ErrWorkspace       = errors.New("failed to prepare workspace")
	ErrInvalidConfig   = errors.New("invalid downloader config")
)
