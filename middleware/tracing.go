package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/meridianhq/stratum/job"
)

// tracerName is the instrumentation scope name for stratum tracing.
const tracerName = "github.com/meridianhq/stratum"

// Tracing returns middleware that wraps each execution attempt in an
// OpenTelemetry span. If no TracerProvider is configured globally, the
// default noop tracer is used and this middleware becomes a
// pass-through with zero overhead.
//
// Span attributes include: stratum.job.id, stratum.work_type,
// stratum.tier, stratum.attempt, stratum.subject_id. On error, the
// span status is set to codes.Error with the error message.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided
// tracer. This variant allows injecting a specific TracerProvider for
// testing or when multiple providers are in use.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) ([]byte, error) {
		ctx, span := tracer.Start(ctx, "stratum.job.execute",
			trace.WithAttributes(
				attribute.String("stratum.job.id", j.ID),
				attribute.String("stratum.work_type", j.WorkType),
				attribute.String("stratum.tier", j.Tier.String()),
				attribute.Int("stratum.attempt", j.Attempt),
				attribute.String("stratum.subject_id", j.SubjectID),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		out, err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return out, err
	}
}
