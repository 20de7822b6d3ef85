package minimize

import (
	"fmt"
	"sort"

	"github.com/prometheus/client_golang/prometheus"

	"riskgate/pkg/structlog"
)

var excludedFields = prometheus.NewCounterVec(
	prometheus.CounterOpts{Namespace: "riskgate", Subsystem: "minimize", Name: "excluded_fields_total", Help: "Fields excluded from release, by use case."},
	[]string{"use_case"},
)

func init() {
	_ = prometheus.Register(excludedFields)
}

// ExcludedField records why a requested field was withheld.
type ExcludedField struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Result is the stateless outcome of minimizing one field map.
type Result struct {
	UseCase      string            `json:"useCase"`
	Required     []string          `json:"required"`
	Excluded     []ExcludedField   `json:"excluded"`
	MaskedValues map[string]string `json:"maskedValues"`
}

// Minimizer partitions a requested field map against the field policy and
// masks retained values. It holds only the immutable policy, so one
// minimizer serves all requests concurrently.
type Minimizer struct {
	policy *FieldPolicy
}

// New builds a minimizer over policy (the built-in policy when nil).
func New(policy *FieldPolicy) *Minimizer {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Minimizer{policy: policy}
}

// Minimize computes the required/excluded partition for useCase. Unknown use
// cases fall back to the minimal default set and log a warning; they never
// fail the request. Excluded fields are ordered by name so output is stable.
func (m *Minimizer) Minimize(useCase string, fields map[string]string) Result {
	required, known := m.policy.RequiredFields(useCase)
	if !known {
		structlog.Warn("unknown use case, applying minimal default policy", structlog.Fields{
			"use_case": useCase,
		})
	}

	requiredSet := make(map[string]struct{}, len(required))
	for _, f := range required {
		requiredSet[f] = struct{}{}
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	result := Result{
		UseCase:      useCase,
		Required:     required,
		Excluded:     []ExcludedField{},
		MaskedValues: make(map[string]string),
	}
	for _, name := range names {
		if _, ok := requiredSet[name]; ok {
			result.MaskedValues[name] = MaskField(name, fields[name])
			continue
		}
		result.Excluded = append(result.Excluded, ExcludedField{
			Field:  name,
			Reason: fmt.Sprintf("not required for use case: %s", useCase),
		})
	}
	excludedFields.WithLabelValues(useCase).Add(float64(len(result.Excluded)))
	return result
}
