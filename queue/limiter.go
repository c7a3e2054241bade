package queue

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/meridianhq/stratum"
)

// LimitConfig defines an optional dispatch rate limit for one tier.
// Slot counts remain the only structural concurrency bound; a rate
// limit additionally caps how fast a tier's slots may start new work.
type LimitConfig struct {
	// Tier is the tier this limit applies to.
	Tier stratum.Tier

	// RateLimit is the maximum sustained dispatches per second. Zero
	// disables rate limiting for the tier.
	RateLimit float64

	// RateBurst is the burst size for the token-bucket limiter.
	// Defaults to 1 if RateLimit is set but RateBurst is zero.
	RateBurst int
}

// Limiter controls per-tier dispatch rates. Tiers without a configured
// limit pass through unthrottled. It is safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	limiters map[stratum.Tier]*rate.Limiter
}

// NewLimiter creates a Limiter from the given tier configurations.
func NewLimiter(configs ...LimitConfig) *Limiter {
	l := &Limiter{
		limiters: make(map[stratum.Tier]*rate.Limiter, len(configs)),
	}
	for _, cfg := range configs {
		l.set(cfg)
	}
	return l
}

func (l *Limiter) set(cfg LimitConfig) {
	if cfg.RateLimit <= 0 {
		delete(l.limiters, cfg.Tier)
		return
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}
	l.limiters[cfg.Tier] = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
}

// SetConfig dynamically updates (or removes) a tier's rate limit.
func (l *Limiter) SetConfig(cfg LimitConfig) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.set(cfg)
}

// Wait blocks until the tier's limiter grants a dispatch token, the
// context is cancelled, or immediately if the tier has no limit.
func (l *Limiter) Wait(ctx context.Context, tier stratum.Tier) error {
	l.mu.Lock()
	limiter := l.limiters[tier]
	l.mu.Unlock()

	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}

// Allow reports whether the tier's limiter would grant a dispatch token
// right now, consuming one if so.
func (l *Limiter) Allow(tier stratum.Tier) bool {
	l.mu.Lock()
	limiter := l.limiters[tier]
	l.mu.Unlock()

	if limiter == nil {
		return true
	}
	return limiter.Allow()
}
