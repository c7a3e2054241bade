package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/meridianhq/stratum/job"
)

// Logging returns middleware that logs attempt start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) ([]byte, error) {
		logger.Info("attempt started",
			slog.String("job_id", j.ID),
			slog.String("work_type", j.WorkType),
			slog.String("tier", j.Tier.String()),
			slog.Int("attempt", j.Attempt),
		)

		start := time.Now()
		out, err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("attempt failed",
				slog.String("job_id", j.ID),
				slog.String("work_type", j.WorkType),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("attempt completed",
				slog.String("job_id", j.ID),
				slog.String("work_type", j.WorkType),
				slog.Duration("elapsed", elapsed),
			)
		}

		return out, err
	}
}
