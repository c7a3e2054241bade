package stratum

import (
	"errors"
	"fmt"
)

var (
	// Lifecycle errors.
	ErrEngineStopped    = errors.New("stratum: engine stopped")
	ErrEngineNotStarted = errors.New("stratum: engine not started")

	// Submission errors.
	ErrDuplicateJob = errors.New("stratum: job already exists")
	ErrEmptyJobID   = errors.New("stratum: empty job id")

	// Lookup errors.
	ErrJobNotFound = errors.New("stratum: job not found")
)

// DuplicateJobError is returned by Submit when a job with the same id
// already exists in a non-terminal state. It unwraps to ErrDuplicateJob.
type DuplicateJobError struct {
	ID string
}

func (e *DuplicateJobError) Error() string {
	return fmt.Sprintf("stratum: job %q already exists in a non-terminal state", e.ID)
}

// Unwrap supports errors.Is(err, ErrDuplicateJob).
func (e *DuplicateJobError) Unwrap() error { return ErrDuplicateJob }

// UnknownJobError is returned by Cancel when no job with the given id
// is known to the engine. It unwraps to ErrJobNotFound.
type UnknownJobError struct {
	ID string
}

func (e *UnknownJobError) Error() string {
	return fmt.Sprintf("stratum: unknown job %q", e.ID)
}

// Unwrap supports errors.Is(err, ErrJobNotFound).
func (e *UnknownJobError) Unwrap() error { return ErrJobNotFound }

// ExecutionError wraps an executor failure. It is never returned to the
// submitter; it surfaces exclusively through the status sink when a job
// reaches terminal Failed.
type ExecutionError struct {
	JobID       string
	Attempt     int
	MaxAttempts int

	// Permanent is true when the failure was classified non-retryable,
	// as opposed to exhausting MaxAttempts.
	Permanent bool

	Err error
}

func (e *ExecutionError) Error() string {
	if e.Permanent {
		return fmt.Sprintf("stratum: job %q failed permanently on attempt %d/%d: %v",
			e.JobID, e.Attempt, e.MaxAttempts, e.Err)
	}
	return fmt.Sprintf("stratum: job %q failed after %d/%d attempts: %v",
		e.JobID, e.Attempt, e.MaxAttempts, e.Err)
}

// Unwrap returns the underlying executor error.
func (e *ExecutionError) Unwrap() error { return e.Err }
