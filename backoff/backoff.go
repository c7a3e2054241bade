// Package backoff controls when a failed execution runs again. A
// Strategy maps an attempt number to a wait, and Policy combines a
// strategy with the retryability rules (attempt budget, permanent
// errors). Strategies hold no state, so one value can serve every tier
// pool concurrently.
package backoff

import (
	"math/rand/v2"
	"time"
)

// Strategy computes the delay before a retry attempt.
type Strategy interface {
	// Delay returns how long to wait before retry attempt n (1-indexed).
	// Attempt 1 is the first retry after the initial failure.
	Delay(attempt int) time.Duration
}

// Constant waits the same Interval before every retry. Mostly useful
// in tests, where a short fixed delay keeps timing predictable.
type Constant struct {
	Interval time.Duration
}

// NewConstant returns a strategy with a fixed delay.
func NewConstant(interval time.Duration) *Constant {
	return &Constant{Interval: interval}
}

func (c *Constant) Delay(_ int) time.Duration {
	return c.Interval
}

// Linear waits Initial on the first retry and grows the delay by
// Initial on each subsequent one, up to Max (0 means uncapped).
type Linear struct {
	Initial time.Duration
	Max     time.Duration
}

// NewLinear returns a linearly growing strategy.
func NewLinear(initial, maxDelay time.Duration) *Linear {
	return &Linear{Initial: initial, Max: maxDelay}
}

func (l *Linear) Delay(attempt int) time.Duration {
	return capDelay(l.Initial*time.Duration(attempt), l.Max)
}

// Exponential waits Initial on the first retry and doubles the delay
// on each subsequent one, up to Max (0 means uncapped).
type Exponential struct {
	Initial time.Duration
	Max     time.Duration
}

// NewExponential returns a doubling strategy.
func NewExponential(initial, maxDelay time.Duration) *Exponential {
	return &Exponential{Initial: initial, Max: maxDelay}
}

func (e *Exponential) Delay(attempt int) time.Duration {
	return capDelay(doubled(e.Initial, attempt), e.Max)
}

// ExponentialWithJitter draws a uniform delay from [0, d], where d is
// the capped exponential delay for the attempt. Spreading the waits
// keeps a batch of jobs that failed together from retrying together.
type ExponentialWithJitter struct {
	Initial time.Duration
	Max     time.Duration
}

// NewExponentialWithJitter returns a doubling strategy with full jitter.
func NewExponentialWithJitter(initial, maxDelay time.Duration) *ExponentialWithJitter {
	return &ExponentialWithJitter{Initial: initial, Max: maxDelay}
}

func (e *ExponentialWithJitter) Delay(attempt int) time.Duration {
	upper := capDelay(doubled(e.Initial, attempt), e.Max)
	return time.Duration(rand.Float64() * float64(upper)) //nolint:gosec // jitter does not need crypto rand
}

// doubled returns initial * 2^(attempt-1), saturating on overflow so a
// huge attempt number cannot wrap to a negative delay.
func doubled(initial time.Duration, attempt int) time.Duration {
	d := initial
	for n := 1; n < attempt; n++ {
		next := d * 2
		if next < d {
			return 1<<63 - 1
		}
		d = next
	}
	return d
}

func capDelay(d, maxDelay time.Duration) time.Duration {
	if maxDelay > 0 && d > maxDelay {
		return maxDelay
	}
	return d
}

// DefaultStrategy returns the delay curve used when the host supplies
// none: doubling from 2s, capped at one minute, without jitter. The
// deterministic spacing makes inter-attempt timing observable to tests
// and host tooling; pass NewExponentialWithJitter to WithBackoff for
// bursty-failure workloads.
func DefaultStrategy() Strategy {
	return NewExponential(2*time.Second, time.Minute)
}
