// Package queue implements the ordered, thread-safe FIFO buffers that
// hold pending jobs for each tier.
//
// A TierQueue is mutated by multiple producers (submitters) and
// consumed by one tier's worker slots. FIFO integrity needs only a
// minimal critical section; empty-queue consumers suspend on the Ready
// channel instead of busy-polling. Remove supports cancellation of jobs
// that have not yet been dispatched — cancelling an active job is
// handled elsewhere.
//
// Limiter adds optional token-bucket dispatch rate limiting per tier on
// top of the structural slot-count bounds.
package queue
