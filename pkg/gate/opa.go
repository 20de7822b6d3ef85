package gate

import (
	"context"
	"errors"
	"os"

	"github.com/open-policy-agent/opa/v1/rego"
)

// Action is a policy verdict string.
type Action string

const (
	ActionAllow Action = "allow"
	ActionDeny  Action = "deny"
)

// OPAEngine wraps a prepared Rego query. The policy is expected to set
// data.riskgate.gate.decision to "allow" or "deny"; anything else makes the
// caller fall back to the built-in ladder.
type OPAEngine struct {
	prepared rego.PreparedEvalQuery
}

// LoadOPA compiles the Rego file at path and prepares the decision query.
// An empty path returns a nil engine (no policy configured).
func LoadOPA(path string) (*OPAEngine, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	r := rego.New(
		rego.Query("data.riskgate.gate.decision"),
		rego.Load([]string{path}, nil),
	)
	pq, err := r.PrepareForEval(context.Background())
	if err != nil {
		return nil, err
	}
	return &OPAEngine{prepared: pq}, nil
}

// Evaluate returns the policy action and true when the policy produced a
// usable decision; false means the caller should fall back.
func (e *OPAEngine) Evaluate(input map[string]any) (Action, bool, error) {
	if e == nil {
		return "", false, nil
	}
	rs, err := e.prepared.Eval(context.Background(), rego.EvalInput(input))
	if err != nil {
		return "", false, err
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return "", false, nil
	}
	s, ok := rs[0].Expressions[0].Value.(string)
	if !ok || s == "" {
		return "", false, nil
	}
	switch Action(s) {
	case ActionAllow, ActionDeny:
		return Action(s), true, nil
	default:
		return "", false, errors.New("unsupported decision from policy")
	}
}
