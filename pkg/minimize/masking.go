package minimize

import "strings"

// maskRule pairs a field-name predicate with a value transform. Rules are
// evaluated in priority order; the implicit final rule is passthrough.
type maskRule struct {
	category  string
	match     func(name string) bool
	transform func(value string) string
}

func substringMatch(sub string) func(string) bool {
	return func(name string) bool {
		return strings.Contains(strings.ToLower(name), sub)
	}
}

// maskRules covers the known sensitive categories. Every transform is total:
// values too short to satisfy the preserve-length rule pass through unmasked
// rather than producing malformed output.
var maskRules = []maskRule{
	{category: "phone", match: substringMatch("phone"), transform: maskPhone},
	{category: "aadhar", match: substringMatch("aadhar"), transform: maskAadhar},
	{category: "pan", match: substringMatch("pan"), transform: maskPAN},
	{category: "address", match: substringMatch("address"), transform: generalizeAddress},
}

// MaskField applies the first matching rule to value. Field names matching
// no category pass through unmasked.
func MaskField(name, value string) string {
	for _, rule := range maskRules {
		if rule.match(name) {
			return rule.transform(value)
		}
	}
	return value
}

// maskPhone keeps the first 3 and the trailing digits, blanking 4 in the
// middle.
func maskPhone(v string) string {
	if len(v) < 10 {
		return v
	}
	return v[:3] + "****" + v[7:]
}

// maskAadhar keeps the first 4 and the trailing digits.
func maskAadhar(v string) string {
	if len(v) < 12 {
		return v
	}
	return v[:4] + "****" + v[8:]
}

// maskPAN keeps the first 2 and the trailing characters.
func maskPAN(v string) string {
	if len(v) < 10 {
		return v
	}
	return v[:2] + "****" + v[6:]
}

// generalizeAddress reduces a comma-separated address to its last segment
// (city level).
func generalizeAddress(v string) string {
	parts := strings.Split(v, ",")
	if len(parts) > 1 {
		return strings.TrimSpace(parts[len(parts)-1])
	}
	return v
}
