package gate

import (
	"reflect"
	"testing"

	"riskgate/pkg/risk"
)

func TestDecideMissingSignal(t *testing.T) {
	open := NewEngine(true).Decide(nil, nil)
	if !open.Allowed {
		t.Fatalf("fail-open engine denied without signal: %+v", open)
	}
	if open.Reason != "risk signal unavailable, default allow" {
		t.Fatalf("unexpected reason: %q", open.Reason)
	}

	closed := NewEngine(false).Decide(nil, nil)
	if closed.Allowed {
		t.Fatalf("fail-closed engine allowed without signal: %+v", closed)
	}
	if closed.Reason != "risk signal unavailable, default deny" {
		t.Fatalf("unexpected reason: %q", closed.Reason)
	}
}

func TestDecideTierLadder(t *testing.T) {
	e := NewEngine(true)
	cases := []struct {
		tier    risk.Tier
		allowed bool
	}{
		{risk.TierLow, true},
		{risk.TierMedium, true},
		{risk.TierHigh, false},
		{risk.TierCritical, false},
	}
	for _, tc := range cases {
		d := e.Decide(&risk.AnomalyResult{Score: 0.1, Tier: tc.tier}, nil)
		if d.Allowed != tc.allowed {
			t.Fatalf("tier %v: allowed=%v, want %v (%q)", tc.tier, d.Allowed, tc.allowed, d.Reason)
		}
		if d.AppliedTier != tc.tier {
			t.Fatalf("tier %v not echoed: %+v", tc.tier, d)
		}
	}
}

func TestDecideHighTierIgnoresFactors(t *testing.T) {
	// A HIGH tier denies even with no factors reported.
	d := NewEngine(true).Decide(&risk.AnomalyResult{Score: 1.1, Tier: risk.TierHigh}, nil)
	if d.Allowed {
		t.Fatalf("HIGH tier without factors was allowed")
	}
}

func TestDecideSecondaryThreshold(t *testing.T) {
	e := NewEngine(true)
	low := &risk.AnomalyResult{Score: 0.1, Tier: risk.TierLow}

	under := 0.8
	if d := e.Decide(low, &under); !d.Allowed {
		t.Fatalf("secondary at threshold should not deny: %+v", d)
	}
	over := 0.81
	if d := e.Decide(low, &over); d.Allowed {
		t.Fatalf("secondary above threshold should deny: %+v", d)
	}

	// Override moves the boundary.
	strict := NewEngine(true).WithSecondaryThreshold(0.5)
	mid := 0.6
	if d := strict.Decide(low, &mid); d.Allowed {
		t.Fatalf("custom threshold ignored: %+v", d)
	}
}

func TestDecideCopiesFactorsVerbatim(t *testing.T) {
	factors := []string{"new_location", "high_velocity_typing"}
	d := NewEngine(true).Decide(&risk.AnomalyResult{Score: 1.6, Tier: risk.TierCritical, Factors: factors}, nil)
	if !reflect.DeepEqual(d.Factors, factors) {
		t.Fatalf("factors not passed through: %v", d.Factors)
	}
	// The decision owns its slice.
	d.Factors[0] = "mutated"
	if factors[0] != "new_location" {
		t.Fatalf("decision aliases the caller's slice")
	}
}
