package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meridianhq/stratum"
	"github.com/meridianhq/stratum/classify"
	"github.com/meridianhq/stratum/hook"
	"github.com/meridianhq/stratum/job"
	"github.com/meridianhq/stratum/queue"
	"github.com/meridianhq/stratum/worker"
)

type lifecycle int

const (
	lifecycleNew lifecycle = iota
	lifecycleRunning
	lifecycleStopped
)

// GateFunc resolves whether the given subject currently has an open
// approval gate. It is consulted once per submission, at classification
// time.
type GateFunc func(subjectID string) bool

// record is the engine's own view of a known job. State and attempt
// are maintained by the bookkeeper hook under the engine mutex, so
// control-surface reads never race with executor writes to the Job.
type record struct {
	j          *job.Job
	state      job.State
	attempt    int
	finishedAt time.Time
}

// Engine is the priority-tiered scheduler. It owns one queue and one
// worker pool per tier and is the only component hosts interact with:
// Submit, Cancel, Pause, Resume, Stats, Clear.
type Engine struct {
	cfg        stratum.Config
	classifier *classify.Classifier
	gateFn     GateFunc
	hooks      *hook.Registry
	metrics    stratum.MetricsSink
	logger     *slog.Logger

	queues map[stratum.Tier]*queue.TierQueue
	pools  map[stratum.Tier]*worker.Pool

	mu      sync.Mutex
	life    lifecycle
	records map[string]*record

	cancelled [stratum.NumTiers]atomic.Int64

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates an Engine that runs jobs through exec. The engine is
// inert until Start.
func New(exec job.Executor, opts ...Option) *Engine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	e := &Engine{
		cfg:        o.cfg,
		classifier: classify.New(o.classifierCfg),
		gateFn:     o.gateFn,
		metrics:    o.metrics,
		logger:     o.logger,
		queues:     make(map[stratum.Tier]*queue.TierQueue, stratum.NumTiers),
		pools:      make(map[stratum.Tier]*worker.Pool, stratum.NumTiers),
		records:    make(map[string]*record),
		stopCh:     make(chan struct{}),
	}

	e.hooks = hook.NewRegistry(o.logger)
	// The bookkeeper must observe transitions before any host
	// extension so the engine's view is current when hooks fire.
	e.hooks.Register(&bookkeeper{e: e})
	if o.statusSink != nil {
		e.hooks.Register(hook.SinkExtension("stratum.status-sink", o.statusSink))
	}
	for _, ext := range o.extensions {
		e.hooks.Register(ext)
	}

	executor := worker.NewExecutor(exec, e.hooks, o.metrics, o.policy, o.logger, o.middlewares...)

	var limiter *queue.Limiter
	if len(o.limits) > 0 {
		limiter = queue.NewLimiter(o.limits...)
	}

	for _, tier := range stratum.Tiers() {
		q := queue.New()
		e.queues[tier] = q
		poolOpts := []worker.PoolOption{worker.WithSlots(e.cfg.Slots[tier])}
		if limiter != nil {
			poolOpts = append(poolOpts, worker.WithLimiter(limiter))
		}
		e.pools[tier] = worker.NewPool(tier, q, executor, o.logger, poolOpts...)
	}

	return e
}

// Start launches the worker pools and the queue-depth sampler. It
// returns immediately. Starting a stopped engine is an error; engines
// are single-use.
func (e *Engine) Start(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.life {
	case lifecycleRunning:
		return nil
	case lifecycleStopped:
		return stratum.ErrEngineStopped
	}
	e.life = lifecycleRunning

	for _, tier := range stratum.Tiers() {
		e.pools[tier].Start()
	}

	if e.metrics != nil && e.cfg.DepthInterval > 0 {
		e.wg.Add(1)
		go e.sampleDepths()
	}

	e.logger.Info("engine started",
		slog.Int("tiers", stratum.NumTiers),
		slog.Any("slots", e.cfg.Slots),
	)
	return nil
}

// Stop drains the engine: no new dequeues, in-flight executions get up
// to the shutdown timeout (or ctx's deadline, whichever is sooner) to
// finish. Queued jobs are left unexecuted. Stop is idempotent.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if e.life != lifecycleRunning {
		e.mu.Unlock()
		return nil
	}
	e.life = lifecycleStopped
	e.mu.Unlock()

	close(e.stopCh)

	if _, ok := ctx.Deadline(); !ok && e.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.ShutdownTimeout)
		defer cancel()
	}

	var g errgroup.Group
	for _, tier := range stratum.Tiers() {
		p := e.pools[tier]
		g.Go(func() error { return p.Stop(ctx) })
	}
	err := g.Wait()

	e.wg.Wait()
	e.hooks.EmitShutdown(ctx)

	e.logger.Info("engine stopped")
	return err
}

// Submit classifies j, records it, and enqueues it on its tier. The
// job must carry a unique non-empty ID; resubmitting an ID whose
// previous job reached a terminal state is allowed and replaces the
// old record. Execution outcomes are never returned here — they
// surface through the registered sinks and extensions.
func (e *Engine) Submit(ctx context.Context, j *job.Job) error {
	if j == nil || j.ID == "" {
		return stratum.ErrEmptyJobID
	}

	gateOpen := false
	if e.gateFn != nil {
		gateOpen = e.gateFn(j.SubjectID)
	}
	tier := e.classifier.Classify(j.WorkType, classify.Context{GateOpen: gateOpen})

	e.mu.Lock()
	switch e.life {
	case lifecycleNew:
		e.mu.Unlock()
		return stratum.ErrEngineNotStarted
	case lifecycleStopped:
		e.mu.Unlock()
		return stratum.ErrEngineStopped
	}

	if rec, ok := e.records[j.ID]; ok && !rec.state.Terminal() {
		e.mu.Unlock()
		return &stratum.DuplicateJobError{ID: j.ID}
	}

	j.Tier = tier
	j.State = job.StateQueued
	j.EnqueuedAt = time.Now().UTC()
	if j.MaxAttempts <= 0 {
		j.MaxAttempts = e.cfg.MaxAttempts
	}

	e.records[j.ID] = &record{j: j, state: job.StateQueued}
	e.mu.Unlock()

	// Emit before the job becomes dequeuable: once it is in the tier
	// queue a slot may start it, and sinks rely on observing OnQueued
	// ahead of OnStarted. The record table above already guards
	// duplicate ids.
	e.hooks.EmitJobQueued(ctx, j)
	e.queues[tier].Enqueue(j)
	e.observeDepth(tier)
	return nil
}

// Cancel removes a job before dispatch. It returns true when the job
// was still waiting (queued or sitting out a retry backoff) and has
// been cancelled. An active job is left running to completion — the
// request is recorded on the job for host-side reporting and Cancel
// returns false. Cancelling an unknown ID returns an UnknownJobError;
// cancelling a job already in a terminal state returns false with no
// error.
func (e *Engine) Cancel(ctx context.Context, jobID string) (bool, error) {
	e.mu.Lock()
	rec, ok := e.records[jobID]
	if !ok {
		e.mu.Unlock()
		return false, &stratum.UnknownJobError{ID: jobID}
	}
	if rec.state.Terminal() {
		e.mu.Unlock()
		return false, nil
	}

	j, removed := e.pools[rec.j.Tier].CancelPending(jobID)
	if !removed {
		// Dispatched (or mid-dispatch). Record the intent; the
		// executor call is never interrupted.
		rec.j.RequestCancel()
		e.mu.Unlock()
		return false, nil
	}

	rec.state = job.StateCancelled
	rec.finishedAt = time.Now()
	now := rec.finishedAt.UTC()
	j.State = job.StateCancelled
	j.FinishedAt = &now
	tier := j.Tier
	e.mu.Unlock()

	e.cancelled[tier].Add(1)
	if e.metrics != nil {
		e.metrics.IncCancelled(tier)
	}
	e.hooks.EmitJobCancelled(ctx, j)
	e.observeDepth(tier)
	return true, nil
}

// Pause stops all tiers from dequeuing. In-flight executions continue;
// queue depth holds until Resume.
func (e *Engine) Pause() {
	for _, tier := range stratum.Tiers() {
		e.pools[tier].Pause()
	}
	e.logger.Info("engine paused")
}

// Resume restarts dequeuing on all tiers. No queued job is dropped by
// a pause/resume cycle.
func (e *Engine) Resume() {
	for _, tier := range stratum.Tiers() {
		e.pools[tier].Resume()
	}
	e.logger.Info("engine resumed")
}

// Stats returns a per-tier snapshot in priority order. It reads atomic
// pool counters and short-lived queue locks only and never blocks on
// worker progress.
func (e *Engine) Stats() []stratum.TierStats {
	stats := make([]stratum.TierStats, 0, stratum.NumTiers)
	for _, tier := range stratum.Tiers() {
		p := e.pools[tier]
		stats = append(stats, stratum.TierStats{
			Tier:      tier,
			Queued:    p.Queued(),
			Active:    p.Active(),
			Completed: p.Completed(),
			Failed:    p.Failed(),
			Cancelled: e.cancelled[tier].Load(),
		})
	}
	return stats
}

// JobStatus is the engine's view of one known job.
type JobStatus struct {
	ID       string       `json:"id"`
	WorkType string       `json:"work_type"`
	Tier     stratum.Tier `json:"tier"`
	State    job.State    `json:"state"`
	Attempt  int          `json:"attempt"`
}

// Status reports the engine's view of the job with the given ID.
func (e *Engine) Status(jobID string) (JobStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.records[jobID]
	if !ok {
		return JobStatus{}, &stratum.UnknownJobError{ID: jobID}
	}
	return statusOf(rec), nil
}

// Snapshot returns every job still waiting to run, per tier in FIFO
// order, with retry-parked jobs after the queued ones. The jobs carry
// their full submission inputs (payload, work type, enqueue time), so
// a host can persist the snapshot and resubmit it to rebuild the
// queues after a restart. Pause or stop the engine first for a stable
// view; active and terminal jobs are not included.
func (e *Engine) Snapshot() map[stratum.Tier][]*job.Job {
	out := make(map[stratum.Tier][]*job.Job, stratum.NumTiers)
	for _, tier := range stratum.Tiers() {
		out[tier] = e.pools[tier].Pending()
	}
	return out
}

func statusOf(rec *record) JobStatus {
	return JobStatus{
		ID:       rec.j.ID,
		WorkType: rec.j.WorkType,
		Tier:     rec.j.Tier,
		State:    rec.state,
		Attempt:  rec.attempt,
	}
}

// Clear prunes bookkeeping for terminal jobs that finished more than
// olderThan ago and returns the number pruned. It frees memory only;
// scheduling is unaffected.
func (e *Engine) Clear(olderThan time.Duration) int {
	cutoff := time.Now().Add(-olderThan)

	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for jobID, rec := range e.records {
		if rec.state.Terminal() && rec.finishedAt.Before(cutoff) {
			delete(e.records, jobID)
			n++
		}
	}
	return n
}

// sampleDepths periodically pushes queue-depth gauges for every tier.
func (e *Engine) sampleDepths() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.DepthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			for _, tier := range stratum.Tiers() {
				e.observeDepth(tier)
			}
		}
	}
}

func (e *Engine) observeDepth(tier stratum.Tier) {
	if e.metrics == nil {
		return
	}
	p := e.pools[tier]
	e.metrics.ObserveQueueDepth(tier, p.Queued(), p.Active())
}

// bookkeeper mirrors lifecycle events into the engine's record table.
// It runs on worker goroutines; it takes the engine mutex, so the
// engine must never emit hooks while holding it.
type bookkeeper struct {
	e *Engine
}

func (b *bookkeeper) Name() string { return "stratum.bookkeeper" }

func (b *bookkeeper) OnJobStarted(_ context.Context, j *job.Job) error {
	b.update(j.ID, job.StateActive, j.Attempt)
	return nil
}

func (b *bookkeeper) OnJobCompleted(_ context.Context, j *job.Job, _ []byte, _ time.Duration) error {
	b.update(j.ID, job.StateCompleted, j.Attempt)
	b.e.observeDepth(j.Tier)
	return nil
}

func (b *bookkeeper) OnJobFailed(_ context.Context, j *job.Job, _ error) error {
	b.update(j.ID, job.StateFailed, j.Attempt)
	b.e.observeDepth(j.Tier)
	return nil
}

func (b *bookkeeper) OnJobRetrying(_ context.Context, j *job.Job, attempt int, _ time.Time) error {
	b.update(j.ID, job.StateQueued, attempt)
	return nil
}

func (b *bookkeeper) update(jobID string, state job.State, attempt int) {
	b.e.mu.Lock()
	defer b.e.mu.Unlock()
	rec, ok := b.e.records[jobID]
	if !ok {
		return
	}
	rec.state = state
	rec.attempt = attempt
	if state.Terminal() {
		rec.finishedAt = time.Now()
	}
}
