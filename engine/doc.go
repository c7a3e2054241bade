// Package engine wires the scheduler together: a classifier that
// assigns each submitted job to one of four priority tiers, a FIFO
// queue and a fixed-size worker pool per tier, and a retry policy with
// capped exponential backoff.
//
// The engine is the only component hosts talk to. Work outcomes never
// surface through Submit, which returns as soon as the job is queued;
// they are reported asynchronously through the configured StatusSink,
// MetricsSink, and extensions.
//
// Tiers are fully independent: a saturated or paused tier never blocks
// another tier's dispatch. Within a tier, jobs start in submission
// order, bounded by the tier's slot count.
package engine
