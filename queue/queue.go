package queue

import (
	"sync"

	"github.com/meridianhq/stratum/job"
)

// TierQueue is an ordered, thread-safe FIFO buffer of pending jobs for
// one tier. Producers (submitters) and consumers (the tier's worker
// slots) touch it only under a short critical section; consumers block
// on Ready rather than polling when the queue is empty.
type TierQueue struct {
	mu   sync.Mutex
	jobs []*job.Job

	// ready carries a coalesced "work may be available" signal. It has
	// capacity 1: an enqueue never blocks on it, and a woken consumer
	// re-signals when items remain so sibling slots also wake.
	ready chan struct{}
}

// New creates an empty TierQueue.
func New() *TierQueue {
	return &TierQueue{
		ready: make(chan struct{}, 1),
	}
}

// Enqueue appends a job to the tail of the queue and signals waiting
// consumers.
func (q *TierQueue) Enqueue(j *job.Job) {
	q.mu.Lock()
	q.jobs = append(q.jobs, j)
	q.mu.Unlock()

	q.signal()
}

// Dequeue removes and returns the job at the head of the queue. It
// never blocks; ok is false when the queue is empty.
func (q *TierQueue) Dequeue() (*job.Job, bool) {
	q.mu.Lock()
	if len(q.jobs) == 0 {
		q.mu.Unlock()
		return nil, false
	}

	j := q.jobs[0]
	q.jobs[0] = nil
	q.jobs = q.jobs[1:]
	remaining := len(q.jobs)
	q.mu.Unlock()

	// Wake another consumer if work remains; the enqueue signal this
	// dequeue consumed covered only one item.
	if remaining > 0 {
		q.signal()
	}

	return j, true
}

// Remove deletes the job with the given id from the queue, supporting
// cancellation before dispatch. It returns the removed job, or false if
// the id is not present (already dispatched, or never enqueued).
func (q *TierQueue) Remove(jobID string) (*job.Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, j := range q.jobs {
		if j.ID == jobID {
			q.jobs = append(q.jobs[:i], q.jobs[i+1:]...)
			return j, true
		}
	}
	return nil, false
}

// Len returns the number of queued jobs.
func (q *TierQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Ready returns a channel that receives when work may be available.
// Receiving from it does not guarantee a subsequent Dequeue succeeds;
// consumers loop: Dequeue, and on empty wait on Ready again.
func (q *TierQueue) Ready() <-chan struct{} {
	return q.ready
}

// Snapshot returns the queued jobs in FIFO order. The slice is a copy;
// the jobs are shared.
func (q *TierQueue) Snapshot() []*job.Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]*job.Job, len(q.jobs))
	copy(out, q.jobs)
	return out
}

func (q *TierQueue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
