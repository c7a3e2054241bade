// Package classify assigns submitted jobs to priority tiers.
//
// Classification is a pure function of the job's work type and a
// caller-supplied context snapshot. The classifier performs no I/O and
// holds no mutable state, so it is trivially safe for concurrent use
// and testable without external collaborators.
package classify

import "github.com/meridianhq/stratum"

// Context carries the classification inputs that depend on external
// state. The caller resolves them before classifying; the classifier
// never fetches anything itself.
type Context struct {
	// GateOpen indicates the job's subject currently has an open
	// approval gate.
	GateOpen bool
}

// Config defines the work-type sets that drive the tier rules.
type Config struct {
	// Orchestration lists work types flagged as system-orchestration
	// or approval-gating. They always classify as Critical.
	Orchestration []string

	// GateBlocking lists work types that classify as High when the
	// subject has an open approval gate.
	GateBlocking []string

	// Generation lists work types that classify as Medium.
	Generation []string
}

// DefaultConfig returns the work-type sets used when none are supplied.
func DefaultConfig() Config {
	return Config{
		Orchestration: []string{"orchestrate", "gate-review"},
		GateBlocking:  []string{"validate", "verify", "test-run"},
		Generation:    []string{"generate", "codegen", "synthesize"},
	}
}

// Classifier assigns tiers to work types. Construct with New; the zero
// value classifies everything as Low.
type Classifier struct {
	orchestration map[string]struct{}
	gateBlocking  map[string]struct{}
	generation    map[string]struct{}
}

// New builds a Classifier from the given work-type sets.
func New(cfg Config) *Classifier {
	return &Classifier{
		orchestration: toSet(cfg.Orchestration),
		gateBlocking:  toSet(cfg.GateBlocking),
		generation:    toSet(cfg.Generation),
	}
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, s := range items {
		set[s] = struct{}{}
	}
	return set
}

// Classify returns the tier for a work type. Rules are evaluated in
// order, first match wins:
//
//  1. Orchestration work types → Critical.
//  2. Gate-blocking work types with an open gate → High.
//  3. Generation work types → Medium.
//  4. Everything else → Low.
//
// An unrecognized work type falls through to Low. That is documented
// policy, not an error: classification is total and never fails.
func (c *Classifier) Classify(workType string, ctx Context) stratum.Tier {
	if _, ok := c.orchestration[workType]; ok {
		return stratum.TierCritical
	}
	if _, ok := c.gateBlocking[workType]; ok && ctx.GateOpen {
		return stratum.TierHigh
	}
	if _, ok := c.generation[workType]; ok {
		return stratum.TierMedium
	}
	return stratum.TierLow
}
