package stratum

import "fmt"

// Tier is one of four fixed priority levels. Lower numeric values are
// higher priority. The set is closed: switch statements over Tier can
// be checked for exhaustiveness.
type Tier int

const (
	// TierCritical is reserved for system-orchestration and
	// approval-gating work.
	TierCritical Tier = iota
	// TierHigh is for work that blocks an open approval gate.
	TierHigh
	// TierMedium is for generation work.
	TierMedium
	// TierLow is the fallthrough tier for everything else.
	TierLow
)

// NumTiers is the number of priority tiers.
const NumTiers = 4

// Tiers returns all tiers in priority order, highest first.
func Tiers() []Tier {
	return []Tier{TierCritical, TierHigh, TierMedium, TierLow}
}

// String returns the lowercase tier name.
func (t Tier) String() string {
	switch t {
	case TierCritical:
		return "critical"
	case TierHigh:
		return "high"
	case TierMedium:
		return "medium"
	case TierLow:
		return "low"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Valid reports whether t is one of the four defined tiers.
func (t Tier) Valid() bool {
	return t >= TierCritical && t <= TierLow
}

// ParseTier converts a tier name ("critical", "high", "medium", "low")
// into a Tier.
func ParseTier(s string) (Tier, error) {
	switch s {
	case "critical":
		return TierCritical, nil
	case "high":
		return TierHigh, nil
	case "medium":
		return TierMedium, nil
	case "low":
		return TierLow, nil
	default:
		return TierLow, fmt.Errorf("stratum: unknown tier %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tier) UnmarshalText(b []byte) error {
	parsed, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
