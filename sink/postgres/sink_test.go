//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/meridianhq/stratum"
	"github.com/meridianhq/stratum/backoff"
	"github.com/meridianhq/stratum/engine"
	"github.com/meridianhq/stratum/id"
	"github.com/meridianhq/stratum/job"
	pgsink "github.com/meridianhq/stratum/sink/postgres"
)

// setupTestSink creates a Postgres container and returns a migrated Sink.
func setupTestSink(t *testing.T) *pgsink.Sink {
	t.Helper()

	ctx := context.Background()

	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("stratum_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if termErr := container.Terminate(ctx); termErr != nil {
			t.Logf("terminate container: %v", termErr)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	sink, err := pgsink.New(ctx, connStr)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	t.Cleanup(sink.Close)

	if err := sink.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return sink
}

func newPersistedJob(jobID string) *job.Job {
	j := job.New(jobID, "codegen", []byte(`{"n":1}`), job.WithMaxAttempts(3), job.WithSubject("proj-1"))
	j.Tier = stratum.TierMedium
	j.State = job.StateQueued
	j.EnqueuedAt = time.Now().UTC()
	return j
}

func TestSink_Migrate_Idempotent(t *testing.T) {
	sink := setupTestSink(t)
	if err := sink.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestSink_LifecycleRoundTrip(t *testing.T) {
	sink := setupTestSink(t)
	ctx := context.Background()

	j := newPersistedJob("pg-1")
	if err := sink.OnQueued(ctx, j); err != nil {
		t.Fatalf("on queued: %v", err)
	}

	row, err := sink.GetJob(ctx, "pg-1")
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if row.State != job.StateQueued || row.Tier != stratum.TierMedium {
		t.Errorf("row = %+v, want queued/medium", row)
	}
	if row.SubjectID != "proj-1" {
		t.Errorf("subject = %q, want proj-1", row.SubjectID)
	}

	now := time.Now().UTC()
	j.Attempt = 1
	j.State = job.StateActive
	j.RunID = id.NewRunID()
	j.StartedAt = &now
	if err := sink.OnStarted(ctx, j); err != nil {
		t.Fatalf("on started: %v", err)
	}

	j.State = job.StateCompleted
	j.FinishedAt = &now
	if err := sink.OnCompleted(ctx, j, []byte("result"), 120*time.Millisecond); err != nil {
		t.Fatalf("on completed: %v", err)
	}

	row, err = sink.GetJob(ctx, "pg-1")
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if row.State != job.StateCompleted {
		t.Errorf("state = %s, want completed", row.State)
	}
	if string(row.Output) != "result" {
		t.Errorf("output = %q, want result", row.Output)
	}

	runs, err := sink.CountRuns(ctx, "pg-1")
	if err != nil {
		t.Fatalf("count runs: %v", err)
	}
	if runs != 1 {
		t.Errorf("runs = %d, want 1", runs)
	}
}

func TestSink_FailedAttemptsRecorded(t *testing.T) {
	sink := setupTestSink(t)
	ctx := context.Background()

	j := newPersistedJob("pg-2")
	if err := sink.OnQueued(ctx, j); err != nil {
		t.Fatalf("on queued: %v", err)
	}

	for attempt := 1; attempt <= 2; attempt++ {
		now := time.Now().UTC()
		j.Attempt = attempt
		j.State = job.StateActive
		j.RunID = id.NewRunID()
		j.StartedAt = &now
		if err := sink.OnStarted(ctx, j); err != nil {
			t.Fatalf("on started: %v", err)
		}
		terminal := attempt == 2
		if terminal {
			j.State = job.StateFailed
			j.FinishedAt = &now
		} else {
			j.State = job.StateQueued
		}
		if err := sink.OnFailed(ctx, j, errors.New("backend down"), terminal); err != nil {
			t.Fatalf("on failed: %v", err)
		}
	}

	row, err := sink.GetJob(ctx, "pg-2")
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if row.State != job.StateFailed || row.Attempt != 2 {
		t.Errorf("row = %+v, want failed after attempt 2", row)
	}
	if row.LastError != "backend down" {
		t.Errorf("last error = %q, want backend down", row.LastError)
	}

	runs, err := sink.CountRuns(ctx, "pg-2")
	if err != nil {
		t.Fatalf("count runs: %v", err)
	}
	if runs != 2 {
		t.Errorf("runs = %d, want 2", runs)
	}
}

func TestSink_CancelledAndResubmitted(t *testing.T) {
	sink := setupTestSink(t)
	ctx := context.Background()

	j := newPersistedJob("pg-3")
	if err := sink.OnQueued(ctx, j); err != nil {
		t.Fatalf("on queued: %v", err)
	}
	now := time.Now().UTC()
	j.State = job.StateCancelled
	j.FinishedAt = &now
	if err := sink.OnCancelled(ctx, j); err != nil {
		t.Fatalf("on cancelled: %v", err)
	}

	row, err := sink.GetJob(ctx, "pg-3")
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if row.State != job.StateCancelled {
		t.Errorf("state = %s, want cancelled", row.State)
	}

	// Resubmission of a terminal id resets the row.
	if err := sink.OnQueued(ctx, newPersistedJob("pg-3")); err != nil {
		t.Fatalf("requeue: %v", err)
	}
	row, err = sink.GetJob(ctx, "pg-3")
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if row.State != job.StateQueued || row.Attempt != 0 {
		t.Errorf("row after resubmit = %+v, want fresh queued row", row)
	}
}

func TestSink_GetJobUnknown(t *testing.T) {
	sink := setupTestSink(t)

	_, err := sink.GetJob(context.Background(), "missing")
	if !errors.Is(err, stratum.ErrJobNotFound) {
		t.Errorf("err = %v, want ErrJobNotFound", err)
	}
}

func TestSink_DrivenByEngine(t *testing.T) {
	sink := setupTestSink(t)

	exec := job.ExecutorFunc(func(_ context.Context, _ []byte, attempt int) ([]byte, error) {
		if attempt == 1 {
			return nil, errors.New("transient")
		}
		return []byte("done"), nil
	})
	eng := engine.New(exec,
		engine.WithStatusSink(sink),
		engine.WithBackoff(backoff.NewConstant(10*time.Millisecond)),
	)
	ctx := context.Background()
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = eng.Stop(ctx) })

	if err := eng.Submit(ctx, job.New("driven", "codegen", nil)); err != nil {
		t.Fatalf("submit: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		row, err := sink.GetJob(ctx, "driven")
		if err == nil && row.State == job.StateCompleted {
			if string(row.Output) != "done" {
				t.Errorf("output = %q, want done", row.Output)
			}
			runs, _ := sink.CountRuns(ctx, "driven")
			if runs != 2 {
				t.Errorf("runs = %d, want 2", runs)
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("job never reached completed in the database")
}
