package records

// Merge deep-merges override onto base and returns a new map; neither input
// is mutated. Nested maps merge recursively, any other value in override
// replaces the base value wholesale.
func Merge(base, override map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		ov, ok := v.(map[string]any)
		if !ok {
			merged[k] = v
			continue
		}
		bv, ok := merged[k].(map[string]any)
		if !ok {
			merged[k] = Merge(nil, ov)
			continue
		}
		merged[k] = Merge(bv, ov)
	}
	return merged
}

// Flatten converts a record to a flat string map for field-level
// minimization. Nested maps get dotted keys; non-string scalars are skipped
// because masking rules only apply to textual values.
func Flatten(record map[string]any) map[string]string {
	flat := make(map[string]string)
	flattenInto(flat, "", record)
	return flat
}

func flattenInto(flat map[string]string, prefix string, record map[string]any) {
	for k, v := range record {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case string:
			flat[key] = val
		case map[string]any:
			flattenInto(flat, key, val)
		}
	}
}
