package job_test

import (
	"testing"

	"github.com/meridianhq/stratum/job"
)

func TestState_Terminal(t *testing.T) {
	tests := []struct {
		state job.State
		want  bool
	}{
		{job.StateQueued, false},
		{job.StateActive, false},
		{job.StateCompleted, true},
		{job.StateFailed, true},
		{job.StateCancelled, true},
	}
	for _, tt := range tests {
		if got := tt.state.Terminal(); got != tt.want {
			t.Errorf("Terminal(%q) = %v, want %v", tt.state, got, tt.want)
		}
	}
}

func TestNew_AppliesOptions(t *testing.T) {
	j := job.New("job-1", "codegen", []byte(`{"n":1}`),
		job.WithMaxAttempts(5),
		job.WithSubject("project-9"),
	)

	if j.ID != "job-1" {
		t.Errorf("ID = %q, want %q", j.ID, "job-1")
	}
	if j.WorkType != "codegen" {
		t.Errorf("WorkType = %q, want %q", j.WorkType, "codegen")
	}
	if j.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", j.MaxAttempts)
	}
	if j.SubjectID != "project-9" {
		t.Errorf("SubjectID = %q, want %q", j.SubjectID, "project-9")
	}
}

func TestCancelRequested(t *testing.T) {
	j := job.New("job-2", "lint", nil)

	if j.CancelRequested() {
		t.Error("fresh job reports CancelRequested")
	}
	j.RequestCancel()
	if !j.CancelRequested() {
		t.Error("CancelRequested() = false after RequestCancel")
	}
}
