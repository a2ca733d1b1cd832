package downloader

import (
	"context"
	"log/slog"

	"github.com/jaki95/soundcloud-audio-bot/internal/domain"
)

// DownloadWithRetry runs fresh attempts while the previous one timed out, up
// to retries extra times. Other outcomes are returned as they are.
func DownloadWithRetry(ctx context.Context, d Downloader, req Request, retries int) domain.Outcome {
	outcome := d.Download(ctx, req)

	for attempt := 1; attempt <= retries; attempt++ {
		if outcome.Kind != domain.OutcomeFailed || outcome.Reason != domain.ReasonTimeout {
			break
		}
		if ctx.Err() != nil {
			break
		}

		slog.Info("Retrying download after timeout",
			"title", req.Track.Title,
			"previous_attempt", outcome.AttemptID,
			"retry", attempt,
			"max_retries", retries,
		)

		next := req
		next.AttemptID = ""
		outcome = d.Download(ctx, next)
	}

	return outcome
}
