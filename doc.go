// Package stratum provides a priority-tiered scheduling and execution
// engine for asynchronous jobs. Jobs are classified into one of four
// fixed tiers (Critical, High, Medium, Low), queued FIFO per tier, and
// executed by independent per-tier worker pools with fixed concurrency,
// so urgent work is never starved by a backlog of low-priority work.
//
// Stratum is designed as a library, not a service. The engine owns no
// durable state: the business logic that performs a unit of work is an
// injected Executor, and job/run state is persisted by an injected
// StatusSink. Hosts submit work and observe outcomes asynchronously.
//
// # Quick Start
//
//	eng := engine.New(exec,
//	    engine.WithStatusSink(pgSink),
//	    engine.WithSlots(stratum.TierCritical, 5),
//	)
//	eng.Start(ctx)
//	eng.Submit(ctx, job.New("build-42", "codegen", payload))
//
// # Architecture
//
// Each subsystem lives in its own package: classify (tier assignment),
// queue (FIFO tier queues), worker (per-tier pools), backoff (retry
// delay strategies), hook (lifecycle extensions), middleware
// (cross-cutting execution wrappers), and engine (the public control
// surface: Submit, Cancel, Pause, Resume, Stats, Clear).
package stratum
