package engine

import (
	"log/slog"

	"github.com/meridianhq/stratum"
	"github.com/meridianhq/stratum/backoff"
	"github.com/meridianhq/stratum/classify"
	"github.com/meridianhq/stratum/hook"
	"github.com/meridianhq/stratum/middleware"
	"github.com/meridianhq/stratum/queue"
)

type options struct {
	cfg           stratum.Config
	classifierCfg classify.Config
	gateFn        GateFunc
	policy        backoff.Policy
	middlewares   []middleware.Middleware
	extensions    []hook.Extension
	statusSink    hook.StatusSink
	metrics       stratum.MetricsSink
	limits        []queue.LimitConfig
	logger        *slog.Logger
}

func defaultOptions() *options {
	return &options{
		cfg:           stratum.DefaultConfig(),
		classifierCfg: classify.DefaultConfig(),
		policy:        backoff.NewPolicy(nil),
		logger:        slog.Default(),
	}
}

// Option configures the engine at construction time.
type Option func(*options)

// WithLogger sets the structured logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithConfig replaces the entire engine config. Zero or missing slot
// counts fall back to one slot for that tier.
func WithConfig(cfg stratum.Config) Option {
	return func(o *options) {
		if cfg.Slots == nil {
			cfg.Slots = stratum.DefaultConfig().Slots
		}
		if cfg.MaxAttempts <= 0 {
			cfg.MaxAttempts = stratum.DefaultConfig().MaxAttempts
		}
		o.cfg = cfg
	}
}

// WithSlots overrides the slot count for one tier.
func WithSlots(tier stratum.Tier, n int) Option {
	return func(o *options) { o.cfg.Slots[tier] = n }
}

// WithBackoff sets the retry delay strategy. Defaults to capped
// exponential without jitter; pass backoff.NewExponentialWithJitter to
// opt in to jitter.
func WithBackoff(s backoff.Strategy) Option {
	return func(o *options) { o.policy = backoff.NewPolicy(s) }
}

// WithMiddleware appends execution middleware. Middleware runs in the
// order given, after the always-present panic recovery layer.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(o *options) { o.middlewares = append(o.middlewares, mws...) }
}

// WithExtension registers lifecycle extensions.
func WithExtension(exts ...hook.Extension) Option {
	return func(o *options) { o.extensions = append(o.extensions, exts...) }
}

// WithStatusSink sets the host's durable status sink. It observes
// events before extensions registered with WithExtension.
func WithStatusSink(s hook.StatusSink) Option {
	return func(o *options) { o.statusSink = s }
}

// WithMetricsSink sets the metrics sink. Nil (the default) disables
// metric emission entirely.
func WithMetricsSink(m stratum.MetricsSink) Option {
	return func(o *options) { o.metrics = m }
}

// WithClassifierConfig replaces the work-type sets driving tier
// classification.
func WithClassifierConfig(cfg classify.Config) Option {
	return func(o *options) { o.classifierCfg = cfg }
}

// WithGateFunc sets the resolver for a subject's approval-gate state,
// consulted at classification time. Unset means gates are treated as
// closed.
func WithGateFunc(fn GateFunc) Option {
	return func(o *options) { o.gateFn = fn }
}

// WithRateLimit applies dispatch rate limits to the given tiers.
func WithRateLimit(cfgs ...queue.LimitConfig) Option {
	return func(o *options) { o.limits = append(o.limits, cfgs...) }
}
