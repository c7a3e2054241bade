package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/meridianhq/stratum/backoff"
	"github.com/meridianhq/stratum/job"
)

// Recover returns middleware that recovers from panics in the executor.
// A panic is converted to a non-retryable error (the job transitions to
// terminal Failed) and logged with a stack trace; the worker slot that
// ran the job keeps dequeuing afterward.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) (out []byte, retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("executor panicked",
					slog.String("job_id", j.ID),
					slog.String("work_type", j.WorkType),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				out = nil
				retErr = backoff.Permanent(fmt.Errorf("panic in job %s: %v", j.ID, r))
			}
		}()
		return next(ctx)
	}
}
