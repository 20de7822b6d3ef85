package risk

import (
	"encoding/json"
	"testing"
)

func TestClassifyBoundaries(t *testing.T) {
	cases := []struct {
		score float64
		want  Tier
	}{
		{-1.0, TierLow},
		{0.0, TierLow},
		{0.49999, TierLow},
		{0.5, TierMedium},
		{0.99999, TierMedium},
		{1.0, TierHigh},
		{1.49999, TierHigh},
		{1.5, TierCritical},
		{10.0, TierCritical},
	}
	for _, tc := range cases {
		if got := Classify(tc.score); got != tc.want {
			t.Fatalf("Classify(%v) = %v, want %v", tc.score, got, tc.want)
		}
	}
}

func TestClassifyMonotonic(t *testing.T) {
	prev := Classify(-2.0)
	for s := -2.0; s <= 3.0; s += 0.01 {
		cur := Classify(s)
		if cur < prev {
			t.Fatalf("tier decreased at score %v: %v -> %v", s, prev, cur)
		}
		prev = cur
	}
}

func TestParseTier(t *testing.T) {
	cases := []struct {
		in   string
		want Tier
		ok   bool
	}{
		{"LOW", TierLow, true},
		{"medium", TierMedium, true},
		{" High ", TierHigh, true},
		{"CRITICAL", TierCritical, true},
		{"", TierLow, false},
		{"bogus", TierLow, false},
	}
	for _, tc := range cases {
		got, ok := ParseTier(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseTier(%q) = (%v, %v), want (%v, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestTierJSONRoundTrip(t *testing.T) {
	result := AnomalyResult{Score: 1.2, Tier: TierHigh, Factors: []string{"velocity"}}
	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded AnomalyResult
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Tier != TierHigh || decoded.Score != 1.2 {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
}
