package domain

import "fmt"

// OutcomeKind is the terminal state of a single download attempt.
type OutcomeKind string

const (
	OutcomeDelivered        OutcomeKind = "delivered"
	OutcomeRejectedTooLarge OutcomeKind = "rejected_too_large"
	OutcomeFailed           OutcomeKind = "failed"
)

// FailureReason categorises a failed attempt. It is safe to show to users.
type FailureReason string

const (
	ReasonNone             FailureReason = ""
	ReasonTimeout          FailureReason = "timeout"
	ReasonExtraction       FailureReason = "extraction"
	ReasonNoCompatibleFile FailureReason = "no_compatible_file"
	ReasonDelivery         FailureReason = "delivery"
	ReasonCancelled        FailureReason = "cancelled"
)

// Outcome is the result of a download attempt.
//
// SizeBytes is the delivered size for OutcomeDelivered and the estimated or
// measured size for OutcomeRejectedTooLarge. Err holds the underlying error
// for logging and must never be shown to users.
type Outcome struct {
	AttemptID string        `json:"attempt_id,omitempty"`
	Kind      OutcomeKind   `json:"kind"`
	SizeBytes int64         `json:"size_bytes,omitempty"`
	Reason    FailureReason `json:"reason,omitempty"`
	Err       error         `json:"-"`
}

func Delivered(size int64) Outcome {
	return Outcome{Kind: OutcomeDelivered, SizeBytes: size}
}

func RejectedTooLarge(size int64) Outcome {
	return Outcome{Kind: OutcomeRejectedTooLarge, SizeBytes: size}
}

func Failed(reason FailureReason, err error) Outcome {
	return Outcome{Kind: OutcomeFailed, Reason: reason, Err: err}
}

func (o Outcome) IsDelivered() bool { return o.Kind == OutcomeDelivered }

// Retryable reports whether the user may reasonably try the same track again.
func (o Outcome) Retryable() bool {
	return o.Kind == OutcomeFailed && (o.Reason == ReasonTimeout || o.Reason == ReasonDelivery)
}

func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeDelivered:
		return fmt.Sprintf("delivered(%d)", o.SizeBytes)
	case OutcomeRejectedTooLarge:
		return fmt.Sprintf("rejected_too_large(%d)", o.SizeBytes)
	default:
		return fmt.Sprintf("failed(%s)", o.Reason)
	}
}

// SizeMB converts a byte count to megabytes for display.
func SizeMB(b int64) float64 {
	return float64(b) / (1024 * 1024)
}
