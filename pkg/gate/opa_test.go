package gate

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"riskgate/pkg/risk"
	"riskgate/pkg/structlog"
)

const testPolicy = `package riskgate.gate

decision := "deny" if {
	input.tier == "MEDIUM"
	input.secondary_score > 0.3
} else := "allow" if {
	input.tier == "HIGH"
	input.score < 1.05
}
`

func loadTestOPA(t *testing.T) *OPAEngine {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gate.rego")
	if err := os.WriteFile(path, []byte(testPolicy), 0644); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	opa, err := LoadOPA(path)
	if err != nil {
		t.Fatalf("load policy: %v", err)
	}
	return opa
}

func TestOPAOverridesLadder(t *testing.T) {
	e := NewEngine(true).WithOPA(loadTestOPA(t))

	// Policy denies a MEDIUM the ladder would allow.
	secondary := 0.4
	d := e.Decide(&risk.AnomalyResult{Score: 0.6, Tier: risk.TierMedium}, &secondary)
	if d.Allowed || d.Reason != "denied by policy" {
		t.Fatalf("policy deny not applied: %+v", d)
	}

	// Policy allows a borderline HIGH the ladder would deny.
	d = e.Decide(&risk.AnomalyResult{Score: 1.01, Tier: risk.TierHigh}, nil)
	if !d.Allowed || d.Reason != "allowed by policy" {
		t.Fatalf("policy allow not applied: %+v", d)
	}
}

func TestOPAUndefinedFallsBack(t *testing.T) {
	e := NewEngine(true).WithOPA(loadTestOPA(t))

	// No policy rule fires; the built-in ladder decides.
	d := e.Decide(&risk.AnomalyResult{Score: 0.1, Tier: risk.TierLow}, nil)
	if !d.Allowed || d.Reason != "risk within acceptable range" {
		t.Fatalf("ladder fallback missing: %+v", d)
	}
	d = e.Decide(&risk.AnomalyResult{Score: 1.9, Tier: risk.TierCritical}, nil)
	if d.Allowed {
		t.Fatalf("CRITICAL allowed on fallback: %+v", d)
	}
}

func TestOPAEvalErrorLoggedAndFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gate.rego")
	// A verdict the engine does not understand makes evaluation error out.
	if err := os.WriteFile(path, []byte("package riskgate.gate\n\ndecision := \"maybe\"\n"), 0644); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	opa, err := LoadOPA(path)
	if err != nil {
		t.Fatalf("load policy: %v", err)
	}

	var buf bytes.Buffer
	structlog.SetDefaultLogger(structlog.NewLogger("test", structlog.LevelWarn, &buf))
	defer structlog.SetDefaultLogger(structlog.NewLogger("riskgate", structlog.LevelInfo, os.Stdout))

	d := NewEngine(true).WithOPA(opa).Decide(&risk.AnomalyResult{Score: 0.1, Tier: risk.TierLow}, nil)
	if !d.Allowed || d.Reason != "risk within acceptable range" {
		t.Fatalf("built-in rules did not take over: %+v", d)
	}
	if !strings.Contains(buf.String(), "policy evaluation failed") {
		t.Fatalf("evaluation error not logged: %q", buf.String())
	}
}

func TestLoadOPAEmptyPath(t *testing.T) {
	opa, err := LoadOPA("")
	if err != nil || opa != nil {
		t.Fatalf("empty path should yield nil engine: %v %v", opa, err)
	}
	if _, ok, _ := opa.Evaluate(nil); ok {
		t.Fatalf("nil engine should never produce a decision")
	}
}
