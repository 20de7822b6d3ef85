package records

import (
	"reflect"
	"testing"
)

func TestMergeOverrideWins(t *testing.T) {
	base := map[string]any{
		"name":  "A",
		"phone": "111",
		"kyc": map[string]any{
			"pan":    "ABCDE1234F",
			"aadhar": "123456789012",
		},
	}
	override := map[string]any{
		"phone": "222",
		"kyc": map[string]any{
			"pan": "XYZAB9876C",
		},
	}
	merged := Merge(base, override)

	want := map[string]any{
		"name":  "A",
		"phone": "222",
		"kyc": map[string]any{
			"pan":    "XYZAB9876C",
			"aadhar": "123456789012",
		},
	}
	if !reflect.DeepEqual(merged, want) {
		t.Fatalf("merged = %v, want %v", merged, want)
	}

	// Inputs untouched.
	if base["phone"] != "111" {
		t.Fatalf("base mutated: %v", base)
	}
	if base["kyc"].(map[string]any)["pan"] != "ABCDE1234F" {
		t.Fatalf("nested base mutated: %v", base)
	}
}

func TestMergeTypeMismatchReplaces(t *testing.T) {
	base := map[string]any{"kyc": "pending"}
	override := map[string]any{"kyc": map[string]any{"pan": "X"}}
	merged := Merge(base, override)
	if !reflect.DeepEqual(merged["kyc"], map[string]any{"pan": "X"}) {
		t.Fatalf("map should replace scalar: %v", merged)
	}

	reverse := Merge(override, map[string]any{"kyc": "done"})
	if reverse["kyc"] != "done" {
		t.Fatalf("scalar should replace map: %v", reverse)
	}
}

func TestMergeEmptyInputs(t *testing.T) {
	if got := Merge(nil, map[string]any{"a": 1}); got["a"] != 1 {
		t.Fatalf("nil base: %v", got)
	}
	if got := Merge(map[string]any{"a": 1}, nil); got["a"] != 1 {
		t.Fatalf("nil override: %v", got)
	}
}

func TestFlatten(t *testing.T) {
	record := map[string]any{
		"name": "A",
		"kyc": map[string]any{
			"pan": "ABCDE1234F",
		},
		"count": 3.0, // non-string scalars are dropped
	}
	flat := Flatten(record)
	want := map[string]string{
		"name":    "A",
		"kyc.pan": "ABCDE1234F",
	}
	if !reflect.DeepEqual(flat, want) {
		t.Fatalf("flat = %v, want %v", flat, want)
	}
}
