package hook

import (
	"context"
	"time"

	"github.com/meridianhq/stratum/job"
)

// StatusSink is the narrow persistence interface consumed by the
// engine. The host implements it to record durable job/run state; the
// engine treats sink failures as non-fatal but logs them.
//
// OnFailed fires for every failed attempt: terminal is false while
// retries remain and true when the job reaches terminal Failed. The
// terminal error distinguishes non-retryable failures from exhausted
// retries (see stratum.ExecutionError.Permanent).
type StatusSink interface {
	OnQueued(ctx context.Context, j *job.Job) error
	OnStarted(ctx context.Context, j *job.Job) error
	OnCompleted(ctx context.Context, j *job.Job, output []byte, elapsed time.Duration) error
	OnFailed(ctx context.Context, j *job.Job, jobErr error, terminal bool) error
	OnCancelled(ctx context.Context, j *job.Job) error
}

// sinkExtension adapts a StatusSink to the granular hook interfaces so
// it can be registered like any other extension.
type sinkExtension struct {
	name string
	sink StatusSink
}

// SinkExtension wraps a StatusSink as a registrable Extension. The
// OnJobRetrying hook maps to OnFailed with terminal=false.
func SinkExtension(name string, s StatusSink) Extension {
	return &sinkExtension{name: name, sink: s}
}

func (e *sinkExtension) Name() string { return e.name }

func (e *sinkExtension) OnJobQueued(ctx context.Context, j *job.Job) error {
	return e.sink.OnQueued(ctx, j)
}

func (e *sinkExtension) OnJobStarted(ctx context.Context, j *job.Job) error {
	return e.sink.OnStarted(ctx, j)
}

func (e *sinkExtension) OnJobCompleted(ctx context.Context, j *job.Job, output []byte, elapsed time.Duration) error {
	return e.sink.OnCompleted(ctx, j, output, elapsed)
}

func (e *sinkExtension) OnJobFailed(ctx context.Context, j *job.Job, jobErr error) error {
	return e.sink.OnFailed(ctx, j, jobErr, true)
}

func (e *sinkExtension) OnJobRetrying(ctx context.Context, j *job.Job, _ int, _ time.Time) error {
	return e.sink.OnFailed(ctx, j, errLastAttempt(j), false)
}

func (e *sinkExtension) OnJobCancelled(ctx context.Context, j *job.Job) error {
	return e.sink.OnCancelled(ctx, j)
}

// errLastAttempt surfaces the job's recorded attempt error to the sink
// for non-terminal failures.
func errLastAttempt(j *job.Job) error {
	if j.LastError == "" {
		return &attemptError{msg: "attempt failed"}
	}
	return &attemptError{msg: j.LastError}
}

type attemptError struct {
	msg string
}

func (e *attemptError) Error() string { return e.msg }
