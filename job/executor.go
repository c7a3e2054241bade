package job

import "context"

// Executor performs the actual work a job represents. It is the
// external collaborator invoked by a worker slot; the slot is occupied
// until Execute returns. The engine imposes no deadline on the call —
// bounding execution time is the executor's own concern.
//
// The attempt number is 1 for the first execution and increments on
// each retry. Wrap a returned error with backoff.Permanent to mark it
// non-retryable.
type Executor interface {
	Execute(ctx context.Context, payload []byte, attempt int) ([]byte, error)
}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(ctx context.Context, payload []byte, attempt int) ([]byte, error)

// Execute implements Executor.
func (f ExecutorFunc) Execute(ctx context.Context, payload []byte, attempt int) ([]byte, error) {
	return f(ctx, payload, attempt)
}
