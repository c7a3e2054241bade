package stratum_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/meridianhq/stratum"
)

func TestDuplicateJobError(t *testing.T) {
	err := error(&stratum.DuplicateJobError{ID: "build-7"})

	if !errors.Is(err, stratum.ErrDuplicateJob) {
		t.Error("should unwrap to ErrDuplicateJob")
	}
	var dup *stratum.DuplicateJobError
	if !errors.As(err, &dup) || dup.ID != "build-7" {
		t.Errorf("errors.As = %+v, want ID build-7", dup)
	}
	if !strings.Contains(err.Error(), "build-7") {
		t.Errorf("message %q should name the job", err.Error())
	}
}

func TestUnknownJobError(t *testing.T) {
	err := error(&stratum.UnknownJobError{ID: "ghost"})

	if !errors.Is(err, stratum.ErrJobNotFound) {
		t.Error("should unwrap to ErrJobNotFound")
	}
	if !strings.Contains(err.Error(), "ghost") {
		t.Errorf("message %q should name the job", err.Error())
	}
}

func TestExecutionError(t *testing.T) {
	cause := errors.New("connection refused")

	exhausted := &stratum.ExecutionError{
		JobID: "j1", Attempt: 3, MaxAttempts: 3, Err: cause,
	}
	if !errors.Is(exhausted, cause) {
		t.Error("should unwrap to the executor error")
	}
	if strings.Contains(exhausted.Error(), "permanently") {
		t.Errorf("exhausted message %q should not claim permanence", exhausted.Error())
	}

	permanent := &stratum.ExecutionError{
		JobID: "j2", Attempt: 1, MaxAttempts: 3, Permanent: true, Err: cause,
	}
	if !strings.Contains(permanent.Error(), "permanently") {
		t.Errorf("permanent message %q should state permanence", permanent.Error())
	}
}
