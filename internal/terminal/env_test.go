package terminal

import (
	"strings"
	"testing"
)

func TestSanitizedEnv_StripsSensitiveVars(t *testing.T) {
	t.Setenv("PRIZM_TEST_API_KEY", "super-secret")
	t.Setenv("PRIZM_TEST_TOKEN", "abc123")
	t.Setenv("PRIZM_TEST_SAFE", "fine")

	env := sanitizedEnv()
	for _, kv := range env {
		if strings.HasPrefix(kv, "PRIZM_TEST_API_KEY=") || strings.HasPrefix(kv, "PRIZM_TEST_TOKEN=") {
			t.Fatalf("expected sensitive var to be stripped, found %q", kv)
		}
	}

	found := false
	for _, kv := range env {
		if kv == "PRIZM_TEST_SAFE=fine" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected non-sensitive var to survive sanitization")
	}
}

func TestIsAllowedShell_RejectsArbitraryBinary(t *testing.T) {
	if isAllowedShell("/usr/bin/nc") {
		t.Fatalf("expected an arbitrary binary to be rejected")
	}
	if !isAllowedShell("/bin/sh") {
		t.Fatalf("expected /bin/sh to be on the allow list")
	}
}
