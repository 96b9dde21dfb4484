package logger

import (
	"strings"
	"testing"
)

func TestSanitizeKVs(t *testing.T) {
	out := sanitizeKVs([]interface{}{
		"learner_id", "1c3f2a7e-0000-4000-8000-000000000001",
		"authorization", "Bearer abc",
		"enrollment_id", "e-1",
		"dangling",
	})
	if len(out) != 7 {
		t.Fatalf("len: want=7 got=%d", len(out))
	}
	if got, _ := out[1].(string); !strings.HasPrefix(got, "hash:") {
		t.Fatalf("learner_id should be hashed, got=%v", out[1])
	}
	if out[3] != "[REDACTED]" {
		t.Fatalf("authorization should be redacted, got=%v", out[3])
	}
	if out[5] != "e-1" {
		t.Fatalf("enrollment_id should pass through, got=%v", out[5])
	}
	if out[6] != "dangling" {
		t.Fatalf("dangling key should be preserved, got=%v", out[6])
	}
}

func TestHashValueIsStable(t *testing.T) {
	a := hashValue("learner-1")
	b := hashValue("learner-1")
	if a != b {
		t.Fatalf("hash should be deterministic: %s vs %s", a, b)
	}
	if hashValue("") != "" {
		t.Fatalf("empty value should hash to empty string")
	}
}
