package downloader

import "time"

// Track length boundaries, in seconds, between timeout tiers.
const (
	shortTrackLimit  = 3 * 60
	mediumTrackLimit = 10 * 60
	longTrackLimit   = 30 * 60
)

// Tiers are the timeout budgets for short, medium, long and very long tracks.
type Tiers struct {
	Short  time.Duration `yaml:"short"`
	Medium time.Duration `yaml:"medium"`
	Long   time.Duration `yaml:"long"`
	Max    time.Duration `yaml:"max"`
}

func DefaultTiers() Tiers {
	return Tiers{
		Short:  45 * time.Second,
		Medium: 90 * time.Second,
		Long:   180 * time.Second,
		Max:    360 * time.Second,
	}
}

// Normalize fills unset tiers from the defaults and raises each tier to at
// least the one before it.
func (t Tiers) Normalize() Tiers {
	def := DefaultTiers()
	if t.Short <= 0 {
		t.Short = def.Short
	}
	if t.Medium <= 0 {
		t.Medium = def.Medium
	}
	if t.Long <= 0 {
		t.Long = def.Long
	}
	if t.Max <= 0 {
		t.Max = def.Max
	}

	t.Medium = max(t.Medium, t.Short)
	t.Long = max(t.Long, t.Medium)
	t.Max = max(t.Max, t.Long)
	return t
}

// Select returns the budget for a track of the given length. Unknown
// durations (zero or negative) get the short budget.
func (t Tiers) Select(durationSeconds int) time.Duration {
	switch {
	case durationSeconds < shortTrackLimit:
		return t.Short
	case durationSeconds < mediumTrackLimit:
		return t.Medium
	case durationSeconds < longTrackLimit:
		return t.Long
	default:
		return t.Max
	}
}
