package testutil

import (
	"os"
	"testing"
)

// RequireRoot skips the test unless UECTL_ROOT_TEST is set and the test
// runs as root. Tests that touch the live kernel must call it first.
func RequireRoot(t *testing.T) {
	t.Helper()
	if os.Getenv("UECTL_ROOT_TEST") == "" {
		t.Skip("Skipping test: requires UECTL_ROOT_TEST environment")
	}
	if os.Geteuid() != 0 {
		t.Skip("Skipping test: requires root")
	}
}
