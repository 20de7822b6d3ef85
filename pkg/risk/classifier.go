// Package risk maps continuous anomaly scores onto ordinal risk tiers.
package risk

import "strings"

// Tier is an ordinal risk bucket. Ordering matters: comparisons use the
// numeric value (LOW < MEDIUM < HIGH < CRITICAL).
type Tier int

const (
	TierLow Tier = iota
	TierMedium
	TierHigh
	TierCritical
)

func (t Tier) String() string {
	switch t {
	case TierLow:
		return "LOW"
	case TierMedium:
		return "MEDIUM"
	case TierHigh:
		return "HIGH"
	case TierCritical:
		return "CRITICAL"
	default:
		return "LOW"
	}
}

// MarshalText makes tiers serialize as their names.
func (t Tier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText accepts the tier names case-insensitively.
func (t *Tier) UnmarshalText(b []byte) error {
	parsed, _ := ParseTier(string(b))
	*t = parsed
	return nil
}

// ParseTier maps a tier name to its value. Unknown names report false and
// default to LOW.
func ParseTier(s string) (Tier, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOW":
		return TierLow, true
	case "MEDIUM":
		return TierMedium, true
	case "HIGH":
		return TierHigh, true
	case "CRITICAL":
		return TierCritical, true
	default:
		return TierLow, false
	}
}

// Classify maps a score to its tier. Boundaries are inclusive on the lower
// bound. Total function: every real score maps to exactly one tier.
func Classify(score float64) Tier {
	switch {
	case score < 0.5:
		return TierLow
	case score < 1.0:
		return TierMedium
	case score < 1.5:
		return TierHigh
	default:
		return TierCritical
	}
}

// AnomalyResult is the per-request scoring outcome. Created once, never
// mutated, persisted only through the audit trail.
type AnomalyResult struct {
	Score   float64  `json:"score"`
	Tier    Tier     `json:"tier"`
	Factors []string `json:"factors"`
}
