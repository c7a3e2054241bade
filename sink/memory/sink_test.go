package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/meridianhq/stratum"
	"github.com/meridianhq/stratum/backoff"
	"github.com/meridianhq/stratum/engine"
	"github.com/meridianhq/stratum/job"
	"github.com/meridianhq/stratum/sink/memory"
)

func TestSink_TracksLifecycle(t *testing.T) {
	sink := memory.New()
	ctx := context.Background()

	j := job.New("m-1", "codegen", []byte(`{}`), job.WithSubject("proj"))
	j.Tier = stratum.TierMedium
	j.State = job.StateQueued
	if err := sink.OnQueued(ctx, j); err != nil {
		t.Fatalf("on queued: %v", err)
	}

	j.Attempt = 1
	j.State = job.StateActive
	if err := sink.OnStarted(ctx, j); err != nil {
		t.Fatalf("on started: %v", err)
	}
	j.State = job.StateQueued
	if err := sink.OnFailed(ctx, j, errors.New("transient"), false); err != nil {
		t.Fatalf("on failed: %v", err)
	}

	j.Attempt = 2
	j.State = job.StateActive
	if err := sink.OnStarted(ctx, j); err != nil {
		t.Fatalf("on started: %v", err)
	}
	j.State = job.StateCompleted
	if err := sink.OnCompleted(ctx, j, []byte("done"), time.Millisecond); err != nil {
		t.Fatalf("on completed: %v", err)
	}

	r, ok := sink.Get("m-1")
	if !ok {
		t.Fatal("record missing")
	}
	if r.State != job.StateCompleted || r.Attempts != 2 {
		t.Errorf("record = %+v, want completed after 2 attempts", r)
	}
	if string(r.Output) != "done" {
		t.Errorf("output = %q, want done", r.Output)
	}
	if r.LastError != "" {
		t.Errorf("last error = %q, want cleared on success", r.LastError)
	}
	if r.SubjectID != "proj" || r.Tier != stratum.TierMedium {
		t.Errorf("record = %+v, want subject proj on medium", r)
	}
}

func TestSink_InStateAndReset(t *testing.T) {
	sink := memory.New()
	ctx := context.Background()

	for _, jobID := range []string{"a", "b"} {
		j := job.New(jobID, "codegen", nil)
		j.State = job.StateQueued
		if err := sink.OnQueued(ctx, j); err != nil {
			t.Fatalf("on queued: %v", err)
		}
	}

	if got := sink.InState(job.StateQueued); len(got) != 2 {
		t.Errorf("queued records = %d, want 2", len(got))
	}
	if got := sink.InState(job.StateActive); len(got) != 0 {
		t.Errorf("active records = %d, want 0", len(got))
	}
	if sink.Len() != 2 {
		t.Errorf("len = %d, want 2", sink.Len())
	}

	sink.Reset()
	if sink.Len() != 0 {
		t.Errorf("len after reset = %d, want 0", sink.Len())
	}
}

func TestSink_GetReturnsCopy(t *testing.T) {
	sink := memory.New()
	ctx := context.Background()

	j := job.New("c-1", "codegen", nil)
	j.State = job.StateQueued
	if err := sink.OnQueued(ctx, j); err != nil {
		t.Fatalf("on queued: %v", err)
	}

	r, _ := sink.Get("c-1")
	r.State = job.StateFailed

	again, _ := sink.Get("c-1")
	if again.State != job.StateQueued {
		t.Error("Get must return a copy, not a live reference")
	}
}

func TestSink_DrivenByEngine(t *testing.T) {
	sink := memory.New()

	exec := job.ExecutorFunc(func(_ context.Context, _ []byte, _ int) ([]byte, error) {
		return []byte("ok"), nil
	})
	eng := engine.New(exec,
		engine.WithStatusSink(sink),
		engine.WithBackoff(backoff.NewConstant(time.Millisecond)),
	)
	ctx := context.Background()
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = eng.Stop(ctx) })

	if err := eng.Submit(ctx, job.New("driven", "codegen", nil)); err != nil {
		t.Fatalf("submit: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r, ok := sink.Get("driven"); ok && r.State == job.StateCompleted {
			if r.Attempts != 1 {
				t.Errorf("attempts = %d, want 1", r.Attempts)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job never observed completed")
}
