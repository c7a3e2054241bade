// Package memory provides an in-memory StatusSink. It is the default
// choice for tests and for hosts that only need live introspection
// without durable history.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/meridianhq/stratum"
	"github.com/meridianhq/stratum/hook"
	"github.com/meridianhq/stratum/job"
)

// Compile-time interface check.
var _ hook.StatusSink = (*Sink)(nil)

// Record is the sink's copy of one job's observed status.
type Record struct {
	ID        string
	WorkType  string
	SubjectID string
	Tier      stratum.Tier
	State     job.State
	Attempt   int
	LastError string
	Output    []byte

	// Attempts counts OnStarted calls, i.e. dispatched executions.
	Attempts int
}

// Sink keeps job status in a map guarded by a mutex. All methods are
// safe for concurrent use.
type Sink struct {
	mu      sync.Mutex
	records map[string]*Record
}

// New creates an empty Sink.
func New() *Sink {
	return &Sink{records: make(map[string]*Record)}
}

// OnQueued implements hook.StatusSink.
func (s *Sink) OnQueued(_ context.Context, j *job.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[j.ID] = &Record{
		ID:        j.ID,
		WorkType:  j.WorkType,
		SubjectID: j.SubjectID,
		Tier:      j.Tier,
		State:     j.State,
		Attempt:   j.Attempt,
	}
	return nil
}

// OnStarted implements hook.StatusSink.
func (s *Sink) OnStarted(_ context.Context, j *job.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[j.ID]; ok {
		r.State = j.State
		r.Attempt = j.Attempt
		r.Attempts++
	}
	return nil
}

// OnCompleted implements hook.StatusSink.
func (s *Sink) OnCompleted(_ context.Context, j *job.Job, output []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[j.ID]; ok {
		r.State = j.State
		r.Attempt = j.Attempt
		r.Output = output
		r.LastError = ""
	}
	return nil
}

// OnFailed implements hook.StatusSink.
func (s *Sink) OnFailed(_ context.Context, j *job.Job, jobErr error, _ bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[j.ID]; ok {
		r.State = j.State
		r.Attempt = j.Attempt
		r.LastError = jobErr.Error()
	}
	return nil
}

// OnCancelled implements hook.StatusSink.
func (s *Sink) OnCancelled(_ context.Context, j *job.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[j.ID]; ok {
		r.State = j.State
	}
	return nil
}

// Get returns a copy of the record for jobID.
func (s *Sink) Get(jobID string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[jobID]
	if !ok {
		return Record{}, false
	}
	return *r, true
}

// InState returns copies of all records currently in the given state.
func (s *Sink) InState(state job.State) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for _, r := range s.records {
		if r.State == state {
			out = append(out, *r)
		}
	}
	return out
}

// Len returns the number of tracked jobs.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Reset discards all records.
func (s *Sink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*Record)
}
