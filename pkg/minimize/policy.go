// Package minimize computes the minimal field set justified by a use case,
// masks what is retained, and excludes the rest with an auditable reason.
// It runs standalone and doubles as the verifier/fallback for the external
// minimization oracle.
package minimize

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FieldPolicy maps a use-case label (case-insensitive) to the ordered set of
// field names required for it. Static, versioned configuration; never
// mutated at runtime.
type FieldPolicy struct {
	version  string
	useCases map[string][]string
	defaults []string
}

// DefaultPolicy returns the built-in field policy.
func DefaultPolicy() *FieldPolicy {
	return &FieldPolicy{
		version: "builtin",
		useCases: map[string][]string{
			"credit card issuance": {"PAN Card", "Aadhar", "Phone Number", "Address"},
			"kyc verification":     {"PAN Card", "Aadhar", "Photo"},
			"loan application":     {"PAN Card", "Income Certificate", "Bank Statement"},
			"account opening":      {"PAN Card", "Aadhar", "Photo", "Address Proof"},
		},
		defaults: []string{"PAN Card", "Aadhar"},
	}
}

// policyFile is the on-disk YAML shape.
type policyFile struct {
	Version  string              `yaml:"version"`
	Default  []string            `yaml:"default"`
	UseCases map[string][]string `yaml:"use_cases"`
}

// LoadPolicyFile reads a versioned policy file and overlays it on the
// built-in defaults: file entries win per use case.
func LoadPolicyFile(path string) (*FieldPolicy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read field policy: %w", err)
	}
	var pf policyFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return nil, fmt.Errorf("parse field policy: %w", err)
	}
	p := DefaultPolicy()
	if pf.Version != "" {
		p.version = pf.Version
	}
	if len(pf.Default) > 0 {
		p.defaults = pf.Default
	}
	for useCase, fields := range pf.UseCases {
		p.useCases[strings.ToLower(strings.TrimSpace(useCase))] = fields
	}
	return p, nil
}

// Version identifies the loaded policy revision.
func (p *FieldPolicy) Version() string { return p.version }

// RequiredFields returns the ordered required set for useCase. Unknown use
// cases report false and fall back to the minimal default set.
func (p *FieldPolicy) RequiredFields(useCase string) ([]string, bool) {
	if fields, ok := p.useCases[strings.ToLower(strings.TrimSpace(useCase))]; ok {
		return append([]string(nil), fields...), true
	}
	return append([]string(nil), p.defaults...), false
}
