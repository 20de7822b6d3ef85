// Package gate turns a risk assessment into the allow/block decision taken
// before the one sensitive action of a request.
package gate

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"riskgate/pkg/risk"
	"riskgate/pkg/structlog"
)

// DefaultSecondaryThreshold blocks when an independently reported aggregate
// anomaly score exceeds it.
const DefaultSecondaryThreshold = 0.8

var gateDecisions = prometheus.NewCounterVec(
	prometheus.CounterOpts{Namespace: "riskgate", Subsystem: "gate", Name: "decisions_total", Help: "Gate decisions by outcome."},
	[]string{"outcome"},
)

func init() {
	_ = prometheus.Register(gateDecisions)
}

// Decision is the gating outcome for one request. Derived solely from the
// anomaly result (or its absence) plus policy constants; no hidden state.
type Decision struct {
	Allowed     bool      `json:"allowed"`
	Reason      string    `json:"reason"`
	AppliedTier risk.Tier `json:"appliedTier"`
	Factors     []string  `json:"riskFactors"`
}

// Engine evaluates the gating policy. It holds no per-request state; one
// engine serves all requests concurrently.
//
// When the risk signal is unavailable the engine either fails open
// (availability over strictness, the default) or fails closed. The mode is
// fixed at construction and never mixed per call.
type Engine struct {
	failOpen           bool
	secondaryThreshold float64
	opa                *OPAEngine
}

// NewEngine builds a gate engine. failOpen selects the behavior when no
// anomaly result is available.
func NewEngine(failOpen bool) *Engine {
	return &Engine{failOpen: failOpen, secondaryThreshold: DefaultSecondaryThreshold}
}

// WithSecondaryThreshold overrides the secondary-score block threshold.
func (e *Engine) WithSecondaryThreshold(t float64) *Engine {
	e.secondaryThreshold = t
	return e
}

// WithOPA attaches an optional Rego policy consulted before the built-in
// ladder.
func (e *Engine) WithOPA(opa *OPAEngine) *Engine {
	e.opa = opa
	return e
}

// Decide evaluates one request. result is nil when the upstream scorer was
// unreachable or timed out; secondary is nil when no independent aggregate
// score was reported. Evaluated once, synchronously, before the action; no
// rollback exists.
func (e *Engine) Decide(result *risk.AnomalyResult, secondary *float64) Decision {
	d := e.decide(result, secondary)
	outcome := "allow"
	if !d.Allowed {
		outcome = "deny"
	}
	gateDecisions.WithLabelValues(outcome).Inc()
	return d
}

func (e *Engine) decide(result *risk.AnomalyResult, secondary *float64) Decision {
	if result == nil {
		if e.failOpen {
			return Decision{Allowed: true, Reason: "risk signal unavailable, default allow"}
		}
		return Decision{Allowed: false, Reason: "risk signal unavailable, default deny"}
	}

	factors := append([]string(nil), result.Factors...)

	if e.opa != nil {
		action, ok, err := e.opa.Evaluate(opaInput(result, secondary))
		if err != nil {
			// A broken policy must be visible, not silently inert.
			structlog.Warn("policy evaluation failed, using built-in rules", structlog.Fields{
				"error": err.Error(),
			})
		} else if ok {
			switch action {
			case ActionAllow:
				return Decision{Allowed: true, Reason: "allowed by policy", AppliedTier: result.Tier, Factors: factors}
			case ActionDeny:
				return Decision{Allowed: false, Reason: "denied by policy", AppliedTier: result.Tier, Factors: factors}
			}
		}
	}

	if result.Tier >= risk.TierHigh {
		return Decision{
			Allowed:     false,
			Reason:      fmt.Sprintf("risk tier %s blocks sensitive action", result.Tier),
			AppliedTier: result.Tier,
			Factors:     factors,
		}
	}
	if secondary != nil && *secondary > e.secondaryThreshold {
		return Decision{
			Allowed:     false,
			Reason:      fmt.Sprintf("secondary anomaly score %.2f exceeds threshold %.2f", *secondary, e.secondaryThreshold),
			AppliedTier: result.Tier,
			Factors:     factors,
		}
	}
	return Decision{
		Allowed:     true,
		Reason:      "risk within acceptable range",
		AppliedTier: result.Tier,
		Factors:     factors,
	}
}

func opaInput(result *risk.AnomalyResult, secondary *float64) map[string]any {
	input := map[string]any{
		"score":   result.Score,
		"tier":    result.Tier.String(),
		"factors": result.Factors,
	}
	if secondary != nil {
		input["secondary_score"] = *secondary
	}
	return input
}
