package backoff

import (
	"errors"
	"time"
)

// permanentError marks an executor failure as non-retryable.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return "permanent: " + e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so the retry policy treats it as non-retryable:
// the job transitions straight to terminal Failed regardless of
// remaining attempts. A nil err returns nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err (or anything it wraps) was marked
// with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// Policy decides whether a failed execution is retried and with what
// delay. The zero value is unusable; construct with NewPolicy.
type Policy struct {
	strategy Strategy
}

// NewPolicy creates a Policy with the given delay strategy. A nil
// strategy uses DefaultStrategy.
func NewPolicy(s Strategy) Policy {
	if s == nil {
		s = DefaultStrategy()
	}
	return Policy{strategy: s}
}

// NextDelay returns the delay before retry attempt n (1-indexed).
func (p Policy) NextDelay(attempt int) time.Duration {
	return p.strategy.Delay(attempt)
}

// IsRetryable reports whether a job that has now failed attempt times
// (attempt is the post-increment count) should be retried. All errors
// are retryable by default up to maxAttempts; errors wrapped with
// Permanent are never retried.
func (p Policy) IsRetryable(attempt, maxAttempts int, err error) bool {
	if IsPermanent(err) {
		return false
	}
	return attempt < maxAttempts
}
