// Package hook defines the lifecycle extension system for the engine.
// Extensions are notified of job lifecycle events (queued, started,
// completed, failed, retrying, cancelled) and can react to them —
// persisting durable state, recording metrics, writing audit logs.
//
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about. The Registry fans each event out to
// all registered extensions that implement the corresponding hook;
// hook errors are logged and never propagated.
package hook

import (
	"context"
	"time"

	"github.com/meridianhq/stratum/job"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// JobQueued is called after a submitted job is accepted into its tier
// queue. Re-queues after a retry backoff delay are signalled through
// JobRetrying instead.
type JobQueued interface {
	OnJobQueued(ctx context.Context, j *job.Job) error
}

// JobStarted is called when a worker slot begins executing a job.
type JobStarted interface {
	OnJobStarted(ctx context.Context, j *job.Job) error
}

// JobCompleted is called after a job finishes successfully.
type JobCompleted interface {
	OnJobCompleted(ctx context.Context, j *job.Job, output []byte, elapsed time.Duration) error
}

// JobFailed is called when a job fails terminally: either its attempts
// are exhausted or the error was classified non-retryable.
type JobFailed interface {
	OnJobFailed(ctx context.Context, j *job.Job, err error) error
}

// JobRetrying is called when a job fails but is scheduled for another
// attempt after a backoff delay.
type JobRetrying interface {
	OnJobRetrying(ctx context.Context, j *job.Job, attempt int, nextRunAt time.Time) error
}

// JobCancelled is called when a queued job is removed before dispatch.
type JobCancelled interface {
	OnJobCancelled(ctx context.Context, j *job.Job) error
}

// Shutdown is called during graceful engine shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
