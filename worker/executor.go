// Package worker provides the execution side of the engine — an
// Executor that runs one attempt through middleware and the host's
// executor, and a per-tier Pool of slot goroutines that dequeue jobs
// and drive them through attempts, retries, and terminal outcomes.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/meridianhq/stratum"
	"github.com/meridianhq/stratum/backoff"
	"github.com/meridianhq/stratum/hook"
	"github.com/meridianhq/stratum/id"
	"github.com/meridianhq/stratum/job"
	"github.com/meridianhq/stratum/middleware"
)

// Executor runs a single execution attempt: it invokes the host
// executor through the middleware chain, applies the retry policy to
// the result, updates job state, and emits lifecycle events.
type Executor struct {
	exec    job.Executor
	hooks   *hook.Registry
	metrics stratum.MetricsSink
	policy  backoff.Policy
	mw      middleware.Middleware
	logger  *slog.Logger
}

// NewExecutor creates an Executor. metrics may be nil to disable
// metric emission. The middleware chain always starts with Recover so
// a panicking host executor cannot take down the calling slot.
func NewExecutor(
	exec job.Executor,
	hooks *hook.Registry,
	metrics stratum.MetricsSink,
	policy backoff.Policy,
	logger *slog.Logger,
	mws ...middleware.Middleware,
) *Executor {
	chain := append([]middleware.Middleware{middleware.Recover(logger)}, mws...)
	return &Executor{
		exec:    exec,
		hooks:   hooks,
		metrics: metrics,
		policy:  policy,
		mw:      middleware.Chain(chain...),
		logger:  logger,
	}
}

// Result describes the outcome of one attempt.
type Result struct {
	// Output is the executor's result payload on success.
	Output []byte

	// Err is the execution error on failure, nil on success. For a
	// terminal failure this is a *stratum.ExecutionError.
	Err error

	// Retry is true when the failure is transient and the pool should
	// re-enqueue the job after Delay.
	Retry bool

	// Delay is the backoff delay before the next attempt when Retry.
	Delay time.Duration
}

// Execute runs one attempt of j. The job must be freshly dequeued; j
// transitions Queued→Active before the attempt and to a terminal state
// (or back to Queued, for a retry) after it.
func (e *Executor) Execute(ctx context.Context, j *job.Job) Result {
	now := time.Now().UTC()
	j.Attempt++
	j.State = job.StateActive
	j.RunID = id.NewRunID()
	j.StartedAt = &now

	e.hooks.EmitJobStarted(ctx, j)

	start := time.Now()
	out, err := e.mw(ctx, j, func(ctx context.Context) ([]byte, error) {
		return e.exec.Execute(ctx, j.Payload, j.Attempt)
	})
	elapsed := time.Since(start)

	if err != nil {
		return e.handleFailure(ctx, j, err, elapsed)
	}
	return e.handleSuccess(ctx, j, out, elapsed)
}

func (e *Executor) handleSuccess(ctx context.Context, j *job.Job, out []byte, elapsed time.Duration) Result {
	now := time.Now().UTC()
	j.State = job.StateCompleted
	j.FinishedAt = &now
	j.LastError = ""

	if e.metrics != nil {
		e.metrics.ObserveExecution(j.Tier, elapsed, true)
	}
	e.hooks.EmitJobCompleted(ctx, j, out, elapsed)

	return Result{Output: out}
}

func (e *Executor) handleFailure(ctx context.Context, j *job.Job, execErr error, elapsed time.Duration) Result {
	j.LastError = execErr.Error()

	if e.metrics != nil {
		e.metrics.ObserveExecution(j.Tier, elapsed, false)
	}

	if e.policy.IsRetryable(j.Attempt, j.MaxAttempts, execErr) {
		delay := e.policy.NextDelay(j.Attempt)
		j.State = job.StateQueued
		j.StartedAt = nil

		if e.metrics != nil {
			e.metrics.IncRetried(j.Tier)
		}
		e.hooks.EmitJobRetrying(ctx, j, j.Attempt, time.Now().UTC().Add(delay))

		e.logger.Debug("attempt failed, retrying",
			slog.String("job_id", j.ID),
			slog.String("work_type", j.WorkType),
			slog.Int("attempt", j.Attempt),
			slog.Duration("delay", delay),
			slog.String("error", execErr.Error()),
		)

		return Result{Err: execErr, Retry: true, Delay: delay}
	}

	now := time.Now().UTC()
	j.State = job.StateFailed
	j.FinishedAt = &now

	terminal := &stratum.ExecutionError{
		JobID:       j.ID,
		Attempt:     j.Attempt,
		MaxAttempts: j.MaxAttempts,
		Permanent:   backoff.IsPermanent(execErr),
		Err:         execErr,
	}
	e.hooks.EmitJobFailed(ctx, j, terminal)

	e.logger.Warn("job failed permanently",
		slog.String("job_id", j.ID),
		slog.String("work_type", j.WorkType),
		slog.Int("attempt", j.Attempt),
		slog.String("error", execErr.Error()),
	)

	return Result{Err: terminal}
}
