// Package observability provides an OpenTelemetry-backed MetricsSink.
// Register it with engine.WithMetricsSink to export queue depth,
// execution timing, and retry/cancellation counters through the
// configured MeterProvider.
package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/meridianhq/stratum"
)

const meterName = "github.com/meridianhq/stratum/observability"

// Compile-time interface check.
var _ stratum.MetricsSink = (*Sink)(nil)

// Sink exports engine metrics via OpenTelemetry. All instruments carry
// a "tier" attribute.
type Sink struct {
	queued    metric.Int64Gauge
	active    metric.Int64Gauge
	duration  metric.Float64Histogram
	retried   metric.Int64Counter
	cancelled metric.Int64Counter
}

// NewSink creates a Sink using the global MeterProvider.
func NewSink() *Sink {
	return NewSinkWithMeter(otel.Meter(meterName))
}

// NewSinkWithMeter creates a Sink with the provided meter. Instrument
// creation errors fall back to noop instruments per the OTel API
// contract, so they are ignored.
func NewSinkWithMeter(meter metric.Meter) *Sink {
	queued, _ := meter.Int64Gauge(
		"stratum.queue.depth",
		metric.WithDescription("Jobs waiting to run, retry-waiting included"),
		metric.WithUnit("{job}"),
	)
	active, _ := meter.Int64Gauge(
		"stratum.queue.active",
		metric.WithDescription("Jobs currently executing"),
		metric.WithUnit("{job}"),
	)
	duration, _ := meter.Float64Histogram(
		"stratum.execution.duration",
		metric.WithDescription("Duration of one execution attempt in seconds"),
		metric.WithUnit("s"),
	)
	retried, _ := meter.Int64Counter(
		"stratum.jobs.retried",
		metric.WithDescription("Failed attempts scheduled for retry"),
		metric.WithUnit("{job}"),
	)
	cancelled, _ := meter.Int64Counter(
		"stratum.jobs.cancelled",
		metric.WithDescription("Jobs cancelled before dispatch"),
		metric.WithUnit("{job}"),
	)
	return &Sink{
		queued:    queued,
		active:    active,
		duration:  duration,
		retried:   retried,
		cancelled: cancelled,
	}
}

func tierAttr(tier stratum.Tier) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("tier", tier.String()))
}

// ObserveQueueDepth implements stratum.MetricsSink.
func (s *Sink) ObserveQueueDepth(tier stratum.Tier, queued, active int) {
	ctx := context.Background()
	s.queued.Record(ctx, int64(queued), tierAttr(tier))
	s.active.Record(ctx, int64(active), tierAttr(tier))
}

// ObserveExecution implements stratum.MetricsSink.
func (s *Sink) ObserveExecution(tier stratum.Tier, elapsed time.Duration, success bool) {
	status := "ok"
	if !success {
		status = "error"
	}
	s.duration.Record(context.Background(), elapsed.Seconds(), metric.WithAttributes(
		attribute.String("tier", tier.String()),
		attribute.String("status", status),
	))
}

// IncRetried implements stratum.MetricsSink.
func (s *Sink) IncRetried(tier stratum.Tier) {
	s.retried.Add(context.Background(), 1, tierAttr(tier))
}

// IncCancelled implements stratum.MetricsSink.
func (s *Sink) IncCancelled(tier stratum.Tier) {
	s.cancelled.Add(context.Background(), 1, tierAttr(tier))
}
