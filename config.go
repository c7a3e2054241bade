package stratum

import "time"

// Config holds engine-wide tuning. Slot counts bound concurrency per
// tier; they are tunable and not load-bearing on correctness.
type Config struct {
	// Slots is the number of concurrent execution slots per tier.
	Slots map[Tier]int

	// MaxAttempts is the default ceiling on execution attempts for
	// jobs that do not set their own.
	MaxAttempts int

	// ShutdownTimeout is the maximum time Stop waits for in-flight
	// executions before abandoning them.
	ShutdownTimeout time.Duration

	// DepthInterval is how often queue-depth gauges are sampled into
	// the metrics sink, in addition to sampling on state transitions.
	DepthInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Slots: map[Tier]int{
			TierCritical: 5,
			TierHigh:     3,
			TierMedium:   2,
			TierLow:      1,
		},
		MaxAttempts:     3,
		ShutdownTimeout: 30 * time.Second,
		DepthInterval:   10 * time.Second,
	}
}
