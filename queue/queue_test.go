package queue_test

import (
	"fmt"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meridianhq/stratum/job"
	"github.com/meridianhq/stratum/queue"
)

func TestQueue_FIFO(t *testing.T) {
	q := queue.New()

	for i := range 10 {
		q.Enqueue(job.New(fmt.Sprintf("job-%d", i), "work", nil))
	}

	for i := range 10 {
		j, ok := q.Dequeue()
		if !ok {
			t.Fatalf("Dequeue %d returned empty", i)
		}
		want := fmt.Sprintf("job-%d", i)
		if j.ID != want {
			t.Errorf("Dequeue %d = %q, want %q", i, j.ID, want)
		}
	}

	if _, ok := q.Dequeue(); ok {
		t.Error("Dequeue on empty queue returned ok")
	}
}

func TestQueue_Len(t *testing.T) {
	q := queue.New()

	if q.Len() != 0 {
		t.Errorf("empty Len = %d, want 0", q.Len())
	}
	q.Enqueue(job.New("a", "work", nil))
	q.Enqueue(job.New("b", "work", nil))
	if q.Len() != 2 {
		t.Errorf("Len = %d, want 2", q.Len())
	}
	q.Dequeue()
	if q.Len() != 1 {
		t.Errorf("Len after dequeue = %d, want 1", q.Len())
	}
}

func TestQueue_Remove(t *testing.T) {
	q := queue.New()
	q.Enqueue(job.New("a", "work", nil))
	q.Enqueue(job.New("b", "work", nil))
	q.Enqueue(job.New("c", "work", nil))

	j, ok := q.Remove("b")
	if !ok {
		t.Fatal("Remove(b) = false, want true")
	}
	if j.ID != "b" {
		t.Errorf("removed job = %q, want %q", j.ID, "b")
	}

	// Removing again is a no-op.
	if _, ok := q.Remove("b"); ok {
		t.Error("second Remove(b) = true, want false")
	}
	if _, ok := q.Remove("nonexistent"); ok {
		t.Error("Remove(nonexistent) = true, want false")
	}

	// Remaining order preserved.
	first, _ := q.Dequeue()
	second, _ := q.Dequeue()
	if first.ID != "a" || second.ID != "c" {
		t.Errorf("remaining order = %q, %q, want a, c", first.ID, second.ID)
	}
}

func TestQueue_ConcurrentProducers_FIFOPerProducer(t *testing.T) {
	q := queue.New()

	const producers = 8
	const perProducer = 50

	var g errgroup.Group
	for p := range producers {
		g.Go(func() error {
			for i := range perProducer {
				q.Enqueue(job.New(fmt.Sprintf("p%d-%d", p, i), "work", nil))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("producer error: %v", err)
	}

	if q.Len() != producers*perProducer {
		t.Fatalf("Len = %d, want %d", q.Len(), producers*perProducer)
	}

	// Jobs from each producer must come out in that producer's order.
	lastSeen := make(map[int]int)
	for range producers * perProducer {
		j, ok := q.Dequeue()
		if !ok {
			t.Fatal("queue drained early")
		}
		var p, i int
		if _, err := fmt.Sscanf(j.ID, "p%d-%d", &p, &i); err != nil {
			t.Fatalf("unexpected id %q: %v", j.ID, err)
		}
		if last, seen := lastSeen[p]; seen && i <= last {
			t.Fatalf("producer %d order violated: %d after %d", p, i, last)
		}
		lastSeen[p] = i
	}
}

func TestQueue_ReadySignals(t *testing.T) {
	q := queue.New()

	done := make(chan string, 1)
	go func() {
		for {
			if j, ok := q.Dequeue(); ok {
				done <- j.ID
				return
			}
			<-q.Ready()
		}
	}()

	// Give the consumer time to block on Ready.
	time.Sleep(20 * time.Millisecond)
	q.Enqueue(job.New("wake", "work", nil))

	select {
	case got := <-done:
		if got != "wake" {
			t.Errorf("consumer got %q, want %q", got, "wake")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("consumer was not woken by enqueue")
	}
}

func TestQueue_ReadyWakesSiblings(t *testing.T) {
	q := queue.New()

	// Two items, two consumers: the re-signal on dequeue must wake the
	// second consumer even though only one enqueue signal can be
	// buffered.
	q.Enqueue(job.New("a", "work", nil))
	q.Enqueue(job.New("b", "work", nil))

	results := make(chan string, 2)
	for range 2 {
		go func() {
			for {
				if j, ok := q.Dequeue(); ok {
					results <- j.ID
					return
				}
				<-q.Ready()
			}
		}()
	}

	seen := make(map[string]bool)
	for range 2 {
		select {
		case idStr := <-results:
			seen[idStr] = true
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for consumers")
		}
	}
	if !seen["a"] || !seen["b"] {
		t.Errorf("consumed = %v, want both a and b", seen)
	}
}

func TestQueue_Snapshot(t *testing.T) {
	q := queue.New()
	q.Enqueue(job.New("a", "work", nil))
	q.Enqueue(job.New("b", "work", nil))

	snap := q.Snapshot()
	if len(snap) != 2 || snap[0].ID != "a" || snap[1].ID != "b" {
		t.Errorf("snapshot = %v, want [a b]", snap)
	}

	// Snapshot is a copy: draining the queue does not affect it.
	q.Dequeue()
	q.Dequeue()
	if len(snap) != 2 {
		t.Error("snapshot mutated by dequeue")
	}
}
