package middleware_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/meridianhq/stratum"
	"github.com/meridianhq/stratum/backoff"
	"github.com/meridianhq/stratum/job"
	mw "github.com/meridianhq/stratum/middleware"
)

func newTestJob() *job.Job {
	j := job.New("job-77", "codegen", []byte(`{"n":1}`), job.WithSubject("project-5"))
	j.Tier = stratum.TierMedium
	j.Attempt = 2
	return j
}

func TestChain_Order(t *testing.T) {
	var order []string
	mk := func(name string) mw.Middleware {
		return func(ctx context.Context, _ *job.Job, next mw.Handler) ([]byte, error) {
			order = append(order, name+"-in")
			out, err := next(ctx)
			order = append(order, name+"-out")
			return out, err
		}
	}

	chain := mw.Chain(mk("a"), mk("b"), mk("c"))
	out, err := chain(context.Background(), newTestJob(), func(_ context.Context) ([]byte, error) {
		order = append(order, "handler")
		return []byte("done"), nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "done" {
		t.Errorf("output = %q, want %q", out, "done")
	}

	want := []string{"a-in", "b-in", "c-in", "handler", "c-out", "b-out", "a-out"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestChain_Empty(t *testing.T) {
	chain := mw.Chain()
	out, err := chain(context.Background(), newTestJob(), func(_ context.Context) ([]byte, error) {
		return []byte("passthrough"), nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "passthrough" {
		t.Errorf("output = %q, want passthrough", out)
	}
}

func TestRecover_ConvertsPanicToPermanentError(t *testing.T) {
	m := mw.Recover(slog.Default())

	out, err := m(context.Background(), newTestJob(), func(_ context.Context) ([]byte, error) {
		panic("executor exploded")
	})
	if err == nil {
		t.Fatal("expected error from panicking handler")
	}
	if out != nil {
		t.Errorf("output = %v, want nil", out)
	}
	if !backoff.IsPermanent(err) {
		t.Error("panic error should be marked permanent (non-retryable)")
	}
}

func TestRecover_PassesThroughNormalResults(t *testing.T) {
	m := mw.Recover(slog.Default())

	want := errors.New("plain failure")
	_, err := m(context.Background(), newTestJob(), func(_ context.Context) ([]byte, error) {
		return nil, want
	})
	if !errors.Is(err, want) {
		t.Errorf("err = %v, want %v", err, want)
	}
	if backoff.IsPermanent(err) {
		t.Error("plain failure must not be marked permanent")
	}

	out, err := m(context.Background(), newTestJob(), func(_ context.Context) ([]byte, error) {
		return []byte("ok"), nil
	})
	if err != nil || string(out) != "ok" {
		t.Errorf("success passthrough = (%q, %v), want (ok, nil)", out, err)
	}
}

func TestLogging_PassesThrough(t *testing.T) {
	m := mw.Logging(slog.Default())

	out, err := m(context.Background(), newTestJob(), func(_ context.Context) ([]byte, error) {
		return []byte("result"), nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "result" {
		t.Errorf("output = %q, want result", out)
	}

	want := errors.New("boom")
	_, err = m(context.Background(), newTestJob(), func(_ context.Context) ([]byte, error) {
		return nil, want
	})
	if !errors.Is(err, want) {
		t.Errorf("err = %v, want %v", err, want)
	}
}
