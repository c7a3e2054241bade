// Package redis provides a StatusSink backed by Redis, suitable for
// high-throughput hosts that want ephemeral run visibility rather than
// durable history. Jobs are stored as Hashes, per-state ID Sets enable
// cheap state queries, and recorded attempts append to a List.
//
// Usage:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	sink := redissink.New(client)
//	eng := engine.New(exec, engine.WithStatusSink(sink))
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meridianhq/stratum/hook"
	"github.com/meridianhq/stratum/job"
)

// Compile-time interface check.
var _ hook.StatusSink = (*Sink)(nil)

// Option configures the Sink.
type Option func(*Sink)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sink) { s.logger = l }
}

// WithTTL sets an expiry applied to terminal job keys. Zero (the
// default) keeps them until explicitly deleted.
func WithTTL(d time.Duration) Option {
	return func(s *Sink) { s.ttl = d }
}

// Sink implements hook.StatusSink backed by Redis. The caller owns the
// Redis client lifecycle.
type Sink struct {
	client redis.Cmdable
	logger *slog.Logger
	ttl    time.Duration
}

// New creates a Redis-backed sink.
func New(client redis.Cmdable, opts ...Option) *Sink {
	s := &Sink{client: client, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ping verifies the Redis connection is alive.
func (s *Sink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// runRecord is the JSON document appended per finished attempt.
type runRecord struct {
	RunID   string `json:"run_id"`
	Attempt int    `json:"attempt"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

// OnQueued implements hook.StatusSink.
func (s *Sink) OnQueued(ctx context.Context, j *job.Job) error {
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, jobKey(j.ID), map[string]any{
		"id":           j.ID,
		"work_type":    j.WorkType,
		"payload":      j.Payload,
		"subject_id":   j.SubjectID,
		"tier":         j.Tier.String(),
		"state":        string(j.State),
		"attempt":      j.Attempt,
		"max_attempts": j.MaxAttempts,
		"last_error":   "",
		"enqueued_at":  j.EnqueuedAt.Format(time.RFC3339Nano),
	})
	pipe.Persist(ctx, jobKey(j.ID))
	pipe.SAdd(ctx, jobIDsKey, j.ID)
	s.moveState(ctx, pipe, j.ID, string(j.State))
	// A resubmitted terminal ID starts a fresh run history.
	pipe.Del(ctx, runsKey(j.ID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("stratum/redis: record queued job: %w", err)
	}
	return nil
}

// OnStarted implements hook.StatusSink.
func (s *Sink) OnStarted(ctx context.Context, j *job.Job) error {
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, jobKey(j.ID), map[string]any{
		"state":   string(j.State),
		"attempt": j.Attempt,
		"run_id":  j.RunID.String(),
	})
	s.moveState(ctx, pipe, j.ID, string(j.State))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("stratum/redis: record started job: %w", err)
	}
	return nil
}

// OnCompleted implements hook.StatusSink.
func (s *Sink) OnCompleted(ctx context.Context, j *job.Job, output []byte, _ time.Duration) error {
	run, err := json.Marshal(runRecord{
		RunID:   j.RunID.String(),
		Attempt: j.Attempt,
		Outcome: "completed",
	})
	if err != nil {
		return fmt.Errorf("stratum/redis: marshal run: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, jobKey(j.ID), map[string]any{
		"state":      string(j.State),
		"attempt":    j.Attempt,
		"output":     output,
		"last_error": "",
	})
	s.moveState(ctx, pipe, j.ID, string(j.State))
	pipe.RPush(ctx, runsKey(j.ID), run)
	s.expireTerminal(ctx, pipe, j.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("stratum/redis: record completed job: %w", err)
	}
	return nil
}

// OnFailed implements hook.StatusSink.
func (s *Sink) OnFailed(ctx context.Context, j *job.Job, jobErr error, terminal bool) error {
	run, err := json.Marshal(runRecord{
		RunID:   j.RunID.String(),
		Attempt: j.Attempt,
		Outcome: "failed",
		Error:   jobErr.Error(),
	})
	if err != nil {
		return fmt.Errorf("stratum/redis: marshal run: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, jobKey(j.ID), map[string]any{
		"state":      string(j.State),
		"attempt":    j.Attempt,
		"last_error": jobErr.Error(),
	})
	s.moveState(ctx, pipe, j.ID, string(j.State))
	pipe.RPush(ctx, runsKey(j.ID), run)
	if terminal {
		s.expireTerminal(ctx, pipe, j.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("stratum/redis: record failed job: %w", err)
	}
	return nil
}

// OnCancelled implements hook.StatusSink.
func (s *Sink) OnCancelled(ctx context.Context, j *job.Job) error {
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, jobKey(j.ID), "state", string(j.State))
	s.moveState(ctx, pipe, j.ID, string(j.State))
	s.expireTerminal(ctx, pipe, j.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("stratum/redis: record cancelled job: %w", err)
	}
	return nil
}

// moveState removes the job ID from every state Set except the new one.
func (s *Sink) moveState(ctx context.Context, pipe redis.Pipeliner, jobID, state string) {
	for _, st := range []job.State{
		job.StateQueued, job.StateActive, job.StateCompleted,
		job.StateFailed, job.StateCancelled,
	} {
		if string(st) == state {
			pipe.SAdd(ctx, stateKey(state), jobID)
		} else {
			pipe.SRem(ctx, stateKey(string(st)), jobID)
		}
	}
}

func (s *Sink) expireTerminal(ctx context.Context, pipe redis.Pipeliner, jobID string) {
	if s.ttl <= 0 {
		return
	}
	pipe.Expire(ctx, jobKey(jobID), s.ttl)
	pipe.Expire(ctx, runsKey(jobID), s.ttl)
}

// GetState returns the persisted state for a job ID, or "" if unknown.
func (s *Sink) GetState(ctx context.Context, jobID string) (job.State, error) {
	state, err := s.client.HGet(ctx, jobKey(jobID), "state").Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("stratum/redis: get state: %w", err)
	}
	return job.State(state), nil
}

// IDsInState returns the job IDs currently recorded in the given state.
func (s *Sink) IDsInState(ctx context.Context, state job.State) ([]string, error) {
	ids, err := s.client.SMembers(ctx, stateKey(string(state))).Result()
	if err != nil {
		return nil, fmt.Errorf("stratum/redis: ids in state: %w", err)
	}
	return ids, nil
}

// Runs returns the recorded attempts for a job, oldest first.
func (s *Sink) Runs(ctx context.Context, jobID string) ([]string, error) {
	runs, err := s.client.LRange(ctx, runsKey(jobID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("stratum/redis: runs: %w", err)
	}
	return runs, nil
}
