package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/meridianhq/stratum"
	"github.com/meridianhq/stratum/id"
	"github.com/meridianhq/stratum/job"
	"github.com/meridianhq/stratum/queue"
)

// Pool manages the worker slots for one tier. Each slot is a goroutine
// that blocks on the tier queue, runs dequeued jobs through the
// Executor, and schedules retries after backoff delays. A slot never
// dies on job failure or panic; it returns to dequeuing.
type Pool struct {
	tier     stratum.Tier
	queue    *queue.TierQueue
	executor *Executor
	limiter  *queue.Limiter
	slots    int
	workerID id.WorkerID
	logger   *slog.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup

	mu       sync.Mutex
	running  bool
	paused   bool
	resumeCh chan struct{}

	// Jobs waiting out a backoff delay. They are in StateQueued but
	// not present in the tier queue until the timer fires.
	timerMu sync.Mutex
	timers  map[string]*retryTimer

	// Contexts of in-flight executions, cancelled on shutdown timeout.
	activeMu sync.Mutex
	active   map[string]context.CancelFunc

	activeCount atomic.Int32
	completed   atomic.Int64
	failed      atomic.Int64
	retried     atomic.Int64
}

type retryTimer struct {
	timer *time.Timer
	job   *job.Job
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithSlots sets the number of worker slots. Values below 1 are
// clamped to 1.
func WithSlots(n int) PoolOption {
	return func(p *Pool) {
		if n < 1 {
			n = 1
		}
		p.slots = n
	}
}

// WithLimiter sets an optional per-tier dispatch rate limiter. A slot
// waits on the limiter after dequeuing and before executing.
func WithLimiter(l *queue.Limiter) PoolOption {
	return func(p *Pool) { p.limiter = l }
}

// NewPool creates a pool for one tier draining q through executor.
func NewPool(tier stratum.Tier, q *queue.TierQueue, executor *Executor, logger *slog.Logger, opts ...PoolOption) *Pool {
	p := &Pool{
		tier:     tier,
		queue:    q,
		executor: executor,
		slots:    1,
		workerID: id.NewWorkerID(),
		logger:   logger,
		stopCh:   make(chan struct{}),
		timers:   make(map[string]*retryTimer),
		active:   make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WorkerID returns the pool's unique worker identifier.
func (p *Pool) WorkerID() id.WorkerID { return p.workerID }

// Tier returns the tier this pool serves.
func (p *Pool) Tier() stratum.Tier { return p.tier }

// Start launches the slot goroutines. It returns immediately and is
// idempotent.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}
	p.running = true

	p.logger.Debug("worker pool starting",
		slog.String("worker_id", p.workerID.String()),
		slog.String("tier", p.tier.String()),
		slog.Int("slots", p.slots),
	)

	for range p.slots {
		p.wg.Add(1)
		go p.slotLoop()
	}
}

// Stop signals all slots to stop and waits for in-flight executions to
// finish. If ctx expires first, active execution contexts are
// cancelled and Stop waits for the slots to unwind. Pending retry
// timers are dropped; their jobs remain Queued in the caller's
// bookkeeping.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.mu.Unlock()

	close(p.stopCh)

	p.timerMu.Lock()
	for jobID, rt := range p.timers {
		rt.timer.Stop()
		delete(p.timers, jobID)
	}
	p.timerMu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Debug("worker pool stopped gracefully",
			slog.String("tier", p.tier.String()))
	case <-ctx.Done():
		p.logger.Warn("worker pool shutdown timed out, cancelling active jobs",
			slog.String("tier", p.tier.String()))
		p.cancelActive()
		p.wg.Wait()
	}

	return nil
}

// Pause stops slots from dequeuing new jobs. In-flight executions and
// pending retry timers are unaffected; a retry whose timer fires while
// paused re-enters the queue and waits there.
func (p *Pool) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused {
		return
	}
	p.paused = true
	p.resumeCh = make(chan struct{})
}

// Resume lets slots dequeue again. No-op if not paused.
func (p *Pool) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.paused {
		return
	}
	p.paused = false
	close(p.resumeCh)
}

// CancelPending removes a job that has not been dispatched: either
// still in the tier queue or waiting out a backoff delay. Returns the
// removed job, or false if the job is active or unknown to this pool.
func (p *Pool) CancelPending(jobID string) (*job.Job, bool) {
	if j, ok := p.queue.Remove(jobID); ok {
		return j, true
	}

	p.timerMu.Lock()
	defer p.timerMu.Unlock()
	if rt, ok := p.timers[jobID]; ok {
		rt.timer.Stop()
		delete(p.timers, jobID)
		return rt.job, true
	}
	return nil, false
}

// Active returns the number of slots currently executing a job.
func (p *Pool) Active() int { return int(p.activeCount.Load()) }

// Queued returns the number of jobs waiting to run: queue depth plus
// jobs sitting out a backoff delay.
func (p *Pool) Queued() int {
	p.timerMu.Lock()
	waiting := len(p.timers)
	p.timerMu.Unlock()
	return p.queue.Len() + waiting
}

// Pending returns the jobs waiting to run: the tier queue's contents
// in FIFO order, followed by jobs parked on a retry backoff delay.
// Pause the pool first for a stable view.
func (p *Pool) Pending() []*job.Job {
	out := p.queue.Snapshot()
	p.timerMu.Lock()
	for _, rt := range p.timers {
		out = append(out, rt.job)
	}
	p.timerMu.Unlock()
	return out
}

// Completed returns the number of jobs this pool finished successfully.
func (p *Pool) Completed() int64 { return p.completed.Load() }

// Failed returns the number of jobs that failed terminally.
func (p *Pool) Failed() int64 { return p.failed.Load() }

// Retried returns the number of attempts that were scheduled for retry.
func (p *Pool) Retried() int64 { return p.retried.Load() }

// slotLoop is run by each slot goroutine.
func (p *Pool) slotLoop() {
	defer p.wg.Done()

	for {
		if !p.waitResumed() {
			return
		}

		j, ok := p.queue.Dequeue()
		if !ok {
			select {
			case <-p.stopCh:
				return
			case <-p.queue.Ready():
				continue
			}
		}

		p.run(j)
	}
}

// waitResumed blocks while the pool is paused. It returns false when
// the pool is stopping.
func (p *Pool) waitResumed() bool {
	for {
		select {
		case <-p.stopCh:
			return false
		default:
		}

		p.mu.Lock()
		if !p.paused {
			p.mu.Unlock()
			return true
		}
		ch := p.resumeCh
		p.mu.Unlock()

		select {
		case <-p.stopCh:
			return false
		case <-ch:
		}
	}
}

func (p *Pool) run(j *job.Job) {
	if p.limiter != nil {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			select {
			case <-p.stopCh:
				cancel()
			case <-ctx.Done():
			}
		}()
		err := p.limiter.Wait(ctx, p.tier)
		cancel()
		if err != nil {
			// Stopping. Put the job back so it is not lost.
			p.queue.Enqueue(j)
			return
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.trackActive(j.ID, cancel)
	p.activeCount.Add(1)

	res := p.executor.Execute(ctx, j)

	p.activeCount.Add(-1)
	p.untrackActive(j.ID)
	cancel()

	switch {
	case res.Retry:
		p.retried.Add(1)
		p.scheduleRetry(j, res.Delay)
	case res.Err != nil:
		p.failed.Add(1)
	default:
		p.completed.Add(1)
	}
}

// scheduleRetry parks j until its backoff delay elapses, then
// re-enqueues it. The timer is tracked so CancelPending and Stop can
// reach jobs in this window.
func (p *Pool) scheduleRetry(j *job.Job, delay time.Duration) {
	select {
	case <-p.stopCh:
		return
	default:
	}

	p.timerMu.Lock()
	defer p.timerMu.Unlock()

	t := time.AfterFunc(delay, func() {
		p.timerMu.Lock()
		if _, ok := p.timers[j.ID]; !ok {
			// Cancelled or stopped while the timer fired.
			p.timerMu.Unlock()
			return
		}
		delete(p.timers, j.ID)
		p.timerMu.Unlock()

		select {
		case <-p.stopCh:
			return
		default:
		}
		p.queue.Enqueue(j)
	})
	p.timers[j.ID] = &retryTimer{timer: t, job: j}
}

func (p *Pool) trackActive(jobID string, cancel context.CancelFunc) {
	p.activeMu.Lock()
	p.active[jobID] = cancel
	p.activeMu.Unlock()
}

func (p *Pool) untrackActive(jobID string) {
	p.activeMu.Lock()
	delete(p.active, jobID)
	p.activeMu.Unlock()
}

func (p *Pool) cancelActive() {
	p.activeMu.Lock()
	defer p.activeMu.Unlock()
	for _, cancel := range p.active {
		cancel()
	}
}
