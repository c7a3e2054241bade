package job

import (
	"sync/atomic"
	"time"

	"github.com/meridianhq/stratum"
	"github.com/meridianhq/stratum/id"
)

// State represents the lifecycle state of a job.
type State string

const (
	// StateQueued means the job is waiting in its tier queue (or
	// waiting out a retry backoff delay).
	StateQueued State = "queued"
	// StateActive means a worker slot is currently executing the job.
	StateActive State = "active"
	// StateCompleted means the job finished successfully.
	StateCompleted State = "completed"
	// StateFailed means the job failed and will not be retried.
	StateFailed State = "failed"
	// StateCancelled means the job was cancelled before dispatch.
	StateCancelled State = "cancelled"
)

// Terminal reports whether s permits no further transitions.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Job is a unit of schedulable, retryable work. Callers supply ID,
// WorkType, Payload, SubjectID, and optionally MaxAttempts; everything
// else is owned by the engine. ID doubles as an idempotency key:
// submitting the same id twice while the first is non-terminal is
// rejected.
type Job struct {
	// ID is the caller-supplied unique identifier.
	ID string `json:"id"`

	// WorkType identifies the kind of work and drives tier
	// classification. Opaque to the engine.
	WorkType string `json:"work_type"`

	// Payload is passed verbatim to the executor.
	Payload []byte `json:"payload,omitempty"`

	// SubjectID identifies the entity the job acts on. Used only as
	// classification context, never interpreted by the engine.
	SubjectID string `json:"subject_id,omitempty"`

	// Tier is assigned by the classifier at submission time and never
	// changes afterward.
	Tier stratum.Tier `json:"tier"`

	// Attempt counts execution attempts so far, starting at 0.
	Attempt int `json:"attempt"`

	// MaxAttempts is the ceiling on attempts. Zero means "use the
	// engine default".
	MaxAttempts int `json:"max_attempts"`

	State State `json:"state"`

	// LastError is the message of the most recent execution failure.
	LastError string `json:"last_error,omitempty"`

	// RunID identifies the current (or last) execution attempt.
	RunID id.RunID `json:"run_id,omitempty"`

	EnqueuedAt time.Time  `json:"enqueued_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// cancelRequested records a cancellation request made while the
	// job was active. The request is not honored until the current
	// attempt finishes; it exists for host-side reporting.
	cancelRequested atomic.Bool
}

// RequestCancel records a cancellation request against an active job.
func (j *Job) RequestCancel() { j.cancelRequested.Store(true) }

// CancelRequested reports whether cancellation was requested while the
// job was active.
func (j *Job) CancelRequested() bool { return j.cancelRequested.Load() }

// Option configures optional Job fields at construction.
type Option func(*Job)

// WithMaxAttempts sets the per-job attempt ceiling.
func WithMaxAttempts(n int) Option {
	return func(j *Job) { j.MaxAttempts = n }
}

// WithSubject sets the subject the job acts on.
func WithSubject(subjectID string) Option {
	return func(j *Job) { j.SubjectID = subjectID }
}

// New constructs a Job ready for submission.
func New(jobID, workType string, payload []byte, opts ...Option) *Job {
	j := &Job{
		ID:       jobID,
		WorkType: workType,
		Payload:  payload,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}
