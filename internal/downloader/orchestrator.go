package downloader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/jaki95/soundcloud-audio-bot/internal/domain"
	"github.com/jaki95/soundcloud-audio-bot/internal/progress"
	"github.com/jaki95/soundcloud-audio-bot/internal/storage"
	"github.com/jaki95/soundcloud-audio-bot/internal/transport"
)

const (
	defaultMaxConcurrent   = 3
	defaultCeilingBytes    = 50 * 1024 * 1024
	defaultMinFileSize     = 10 * 1024
	defaultEstimateTimeout = 12 * time.Second
)

// Config holds the orchestrator limits
type Config struct {
	MaxConcurrent int
	CeilingBytes  int64
	// LongTrackCeilingRatio scales the pre-download ceiling for tracks of 30
	// minutes or more. Values outside (0, 1] mean 1.
	LongTrackCeilingRatio float64
	MinFileSize           int64
	EstimateTimeout       time.Duration
	Extensions            []string
	Tiers                 Tiers
}

func DefaultConfig() Config {
	return Config{
		MaxConcurrent:         defaultMaxConcurrent,
		CeilingBytes:          defaultCeilingBytes,
		LongTrackCeilingRatio: 1,
		MinFileSize:           defaultMinFileSize,
		EstimateTimeout:       defaultEstimateTimeout,
		Extensions:            DefaultExtensions,
		Tiers:                 DefaultTiers(),
	}
}

// Request describes one download attempt
type Request struct {
	// AttemptID is generated when empty.
	AttemptID string
	Track     domain.Track
	ChatID    int64
	// Timeout overrides the duration based budget when positive.
	Timeout time.Duration
	// Caption builds the audio caption once the final size is known.
	Caption func(track domain.Track, sizeBytes int64) string
	// Progress receives this attempt's events in addition to the tracker.
	Progress progress.Listener
}

// Stats is a point-in-time view of the orchestrator
type Stats struct {
	Capacity  int   `json:"capacity"`
	Running   int64 `json:"running"`
	Queued    int64 `json:"queued"`
	Delivered int64 `json:"delivered"`
	Rejected  int64 `json:"rejected"`
	Failed    int64 `json:"failed"`
}

// Orchestrator runs download attempts under a shared concurrency budget
type Orchestrator struct {
	cfg        Config
	extensions map[string]struct{}
	sem        *semaphore.Weighted

	prober    SizeProber
	fetcher   Fetcher
	deliverer Deliverer
	workspace storage.Workspace
	archiver  storage.Archiver
	tracker   *progress.Tracker

	running   atomic.Int64
	queued    atomic.Int64
	delivered atomic.Int64
	rejected  atomic.Int64
	failed    atomic.Int64
}

// Option configures optional collaborators
type Option func(*Orchestrator)

// WithTracker publishes every stage transition to tracker
func WithTracker(tracker *progress.Tracker) Option {
	return func(o *Orchestrator) { o.tracker = tracker }
}

// WithArchiver uploads delivered files. Archive failures are logged and ignored.
func WithArchiver(archiver storage.Archiver) Option {
	return func(o *Orchestrator) { o.archiver = archiver }
}

// New creates an orchestrator. prober may be nil, in which case every size is unknown.
func New(cfg Config, prober SizeProber, fetcher Fetcher, deliverer Deliverer, workspace storage.Workspace, opts ...Option) (*Orchestrator, error) {
	if fetcher == nil || deliverer == nil || workspace == nil {
		return nil, fmt.Errorf("%w: fetcher, deliverer and workspace are required", ErrInvalidConfig)
	}

	def := DefaultConfig()
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = def.MaxConcurrent
	}
	if cfg.CeilingBytes <= 0 {
		cfg.CeilingBytes = def.CeilingBytes
	}
	if cfg.LongTrackCeilingRatio <= 0 || cfg.LongTrackCeilingRatio > 1 {
		cfg.LongTrackCeilingRatio = 1
	}
	if cfg.MinFileSize <= 0 {
		cfg.MinFileSize = def.MinFileSize
	}
	if cfg.EstimateTimeout <= 0 {
		cfg.EstimateTimeout = def.EstimateTimeout
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = def.Extensions
	}
	cfg.Tiers = cfg.Tiers.Normalize()

	o := &Orchestrator{
		cfg:        cfg,
		extensions: extensionSet(cfg.Extensions),
		sem:        semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		prober:     prober,
		fetcher:    fetcher,
		deliverer:  deliverer,
		workspace:  workspace,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Config returns the effective configuration
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// SelectTimeout returns the fetch budget for a track of the given length
func (o *Orchestrator) SelectTimeout(durationSeconds int) time.Duration {
	return o.cfg.Tiers.Select(durationSeconds)
}

// EstimateSize probes the source for its size. Any failure yields known=false.
// The wait is bounded by EstimateTimeout even when the prober ignores its context.
func (o *Orchestrator) EstimateSize(ctx context.Context, sourceURL string) (int64, bool) {
	if o.prober == nil {
		return 0, false
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.EstimateTimeout)
	defer cancel()

	type estimate struct {
		size  int64
		known bool
		err   error
	}
	done := make(chan estimate, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- estimate{err: fmt.Errorf("%w: %v", ErrProberPanic, r)}
			}
		}()
		size, known, err := o.prober.ProbeSize(ctx, sourceURL)
		done <- estimate{size: size, known: known, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			slog.Warn("Size probe failed, treating size as unknown", "url", sourceURL, "error", res.err)
			return 0, false
		}
		if !res.known || res.size <= 0 {
			return 0, false
		}
		return res.size, true
	case <-ctx.Done():
		slog.Warn("Size probe timed out, treating size as unknown", "url", sourceURL, "timeout", o.cfg.EstimateTimeout)
		return 0, false
	}
}

func (o *Orchestrator) preCheckCeiling(track domain.Track) int64 {
	if track.DurationSeconds >= longTrackLimit && o.cfg.LongTrackCeilingRatio < 1 {
		return int64(float64(o.cfg.CeilingBytes) * o.cfg.LongTrackCeilingRatio)
	}
	return o.cfg.CeilingBytes
}

// Stats returns current counters
func (o *Orchestrator) Stats() Stats {
	return Stats{
		Capacity:  o.cfg.MaxConcurrent,
		Running:   o.running.Load(),
		Queued:    o.queued.Load(),
		Delivered: o.delivered.Load(),
		Rejected:  o.rejected.Load(),
		Failed:    o.failed.Load(),
	}
}

// Download runs one attempt to completion. It never panics on collaborator
// failures and never returns a partially downloaded file to the deliverer.
//
// When the fetch budget expires the orchestrator stops waiting and cancels the
// fetch context, but the fetcher goroutine may keep running until the
// underlying call returns.
func (o *Orchestrator) Download(ctx context.Context, req Request) domain.Outcome {
	if req.AttemptID == "" {
		req.AttemptID = uuid.NewString()
	}
	log := slog.With("attempt", req.AttemptID, "url", req.Track.SourceURL)

	o.emit(req, progress.StageEstimating, "")
	estimate, known := o.EstimateSize(ctx, req.Track.SourceURL)
	if known {
		ceiling := o.preCheckCeiling(req.Track)
		if estimate >= ceiling {
			log.Info("Rejecting track before download", "estimate", estimate, "ceiling", ceiling)
			return o.finish(req, domain.RejectedTooLarge(estimate))
		}
	}

	o.queued.Add(1)
	o.emit(req, progress.StageQueued, "")
	err := o.sem.Acquire(ctx, 1)
	o.queued.Add(-1)
	if err != nil {
		return o.finish(req, domain.Failed(domain.ReasonCancelled, err))
	}

	return o.run(ctx, req, log)
}

// run holds the slot. Deferred calls unwind so that the workspace is removed
// and the terminal event published before the slot is released.
func (o *Orchestrator) run(ctx context.Context, req Request, log *slog.Logger) (outcome domain.Outcome) {
	defer o.sem.Release(1)

	o.running.Add(1)
	defer o.running.Add(-1)
	defer func() { outcome = o.finish(req, outcome) }()

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = o.SelectTimeout(req.Track.DurationSeconds)
	}
	o.emit(req, progress.StageRunning, "timeout "+timeout.String())

	dir, err := o.workspace.Create(req.AttemptID)
	if err != nil {
		return domain.Failed(domain.ReasonExtraction, fmt.Errorf("%w: %v", ErrWorkspace, err))
	}
	defer func() {
		if err := o.workspace.Remove(dir); err != nil {
			log.Error("Failed to remove workspace", "dir", dir, "error", err)
		}
	}()

	start := time.Now()
	if err := o.fetch(ctx, req.Track.SourceURL, dir, timeout); err != nil {
		switch {
		case ctx.Err() != nil:
			return domain.Failed(domain.ReasonCancelled, err)
		case errors.Is(err, ErrDownloadTimeout), errors.Is(err, context.DeadlineExceeded):
			log.Warn("Download timed out", "timeout", timeout)
			return domain.Failed(domain.ReasonTimeout, err)
		default:
			log.Warn("Extraction failed", "error", err)
			return domain.Failed(domain.ReasonExtraction, err)
		}
	}
	log.Info("Fetch completed", "elapsed", time.Since(start))

	path, size, err := findCompatibleFile(dir, o.extensions, o.cfg.MinFileSize)
	if err != nil {
		log.Warn("No compatible file produced", "error", err)
		return domain.Failed(domain.ReasonNoCompatibleFile, err)
	}

	if size >= o.cfg.CeilingBytes {
		log.Info("Downloaded file exceeds ceiling", "size", size, "ceiling", o.cfg.CeilingBytes)
		return domain.RejectedTooLarge(size)
	}

	o.emit(req, progress.StageDelivering, "")
	audio := transport.Audio{
		ChatID:          req.ChatID,
		Path:            path,
		Title:           req.Track.Title,
		Performer:       req.Track.Artist,
		DurationSeconds: req.Track.DurationSeconds,
		SizeBytes:       size,
	}
	if req.Caption != nil {
		audio.Caption = req.Caption(req.Track, size)
	}

	if err := o.deliver(ctx, audio); err != nil {
		if ctx.Err() != nil {
			return domain.Failed(domain.ReasonCancelled, err)
		}
		log.Warn("Delivery failed", "error", err)
		return domain.Failed(domain.ReasonDelivery, err)
	}

	o.archive(ctx, path, req.Track.SourceURL, log)
	return domain.Delivered(size)
}

// fetch runs the fetcher in its own goroutine and waits at most timeout.
func (o *Orchestrator) fetch(ctx context.Context, sourceURL, dir string, timeout time.Duration) error {
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("%w: %v", ErrFetcherPanic, r)
			}
		}()
		done <- o.fetcher.Fetch(fetchCtx, sourceURL, dir)
	}()

	select {
	case err := <-done:
		return err
	case <-fetchCtx.Done():
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("%w: %v", ErrDownloadTimeout, timeout)
	}
}

func (o *Orchestrator) deliver(ctx context.Context, audio transport.Audio) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrDeliveryPanic, r)
		}
	}()
	return o.deliverer.DeliverAudio(ctx, audio)
}

// archive stores the delivered file under a name derived from its source.
// Objects the archiver already holds are not uploaded again.
func (o *Orchestrator) archive(ctx context.Context, path, sourceURL string, log *slog.Logger) {
	if o.archiver == nil {
		return
	}
	objectName := storage.ObjectName(sourceURL, filepath.Ext(path))
	log = log.With("object", objectName)

	if index, ok := o.archiver.(storage.ArchiveIndex); ok {
		exists, err := index.Exists(ctx, objectName)
		if err != nil {
			log.Warn("Failed to check archive, uploading anyway", "error", err)
		} else if exists {
			log.Debug("Already archived, skipping upload")
			return
		}
	}

	location, err := o.archiver.Archive(ctx, path, objectName)
	if err != nil {
		log.Warn("Failed to archive delivered file", "error", err)
		return
	}
	log.Info("Archived delivered file", "location", location)
}

func (o *Orchestrator) finish(req Request, outcome domain.Outcome) domain.Outcome {
	outcome.AttemptID = req.AttemptID

	var stage progress.Stage
	switch outcome.Kind {
	case domain.OutcomeDelivered:
		o.delivered.Add(1)
		stage = progress.StageDelivered
	case domain.OutcomeRejectedTooLarge:
		o.rejected.Add(1)
		stage = progress.StageRejected
	default:
		o.failed.Add(1)
		stage = progress.StageFailed
	}

	slog.Info("Download attempt finished",
		"attempt", req.AttemptID,
		"title", req.Track.Title,
		"outcome", outcome.String(),
		"error", outcome.Err,
	)

	o.publish(req, progress.Event{
		AttemptID: req.AttemptID,
		Stage:     stage,
		Track:     req.Track,
		Outcome:   &outcome,
	})
	return outcome
}

func (o *Orchestrator) emit(req Request, stage progress.Stage, message string) {
	o.publish(req, progress.Event{
		AttemptID: req.AttemptID,
		Stage:     stage,
		Track:     req.Track,
		Message:   message,
	})
}

func (o *Orchestrator) publish(req Request, event progress.Event) {
	event.Timestamp = time.Now()
	o.tracker.Publish(event)
	if req.Progress != nil {
		req.Progress(event)
	}
}
