package utils

import "testing"

func TestGetEnv(t *testing.T) {
	if got := GetEnv("SPECBRIDGE_TEST_STR", "fallback", nil); got != "fallback" {
		t.Fatalf("expected fallback for unset var, got %q", got)
	}
	t.Setenv("SPECBRIDGE_TEST_STR", "set")
	if got := GetEnv("SPECBRIDGE_TEST_STR", "fallback", nil); got != "set" {
		t.Fatalf("expected set value, got %q", got)
	}
}

func TestGetEnvAsInt(t *testing.T) {
	if got := GetEnvAsInt("SPECBRIDGE_TEST_INT", 10, nil); got != 10 {
		t.Fatalf("expected default for unset var, got %d", got)
	}
	t.Setenv("SPECBRIDGE_TEST_INT", "25")
	if got := GetEnvAsInt("SPECBRIDGE_TEST_INT", 10, nil); got != 25 {
		t.Fatalf("expected 25, got %d", got)
	}
	t.Setenv("SPECBRIDGE_TEST_INT", "not-a-number")
	if got := GetEnvAsInt("SPECBRIDGE_TEST_INT", 10, nil); got != 10 {
		t.Fatalf("expected default for unparsable value, got %d", got)
	}
}
