package stratum

import "time"

// TierStats is a read-only snapshot of one tier's scheduling state.
// Queued includes jobs waiting out a retry backoff delay; Active is the
// number of occupied execution slots.
type TierStats struct {
	Tier      Tier  `json:"tier"`
	Queued    int   `json:"queued"`
	Active    int   `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Cancelled int64 `json:"cancelled"`
}

// MetricsSink receives scheduling and execution measurements. It is
// optional: a nil sink disables metrics. Implementations must be safe
// for concurrent use and must not block.
type MetricsSink interface {
	// ObserveQueueDepth records the current queued/active counts for a
	// tier. Called on every state transition and on a periodic timer.
	ObserveQueueDepth(tier Tier, queued, active int)

	// ObserveExecution records one finished execution attempt.
	ObserveExecution(tier Tier, elapsed time.Duration, success bool)

	// IncRetried counts a failed attempt that was scheduled for retry.
	IncRetried(tier Tier)

	// IncCancelled counts a pre-dispatch cancellation.
	IncCancelled(tier Tier)
}
