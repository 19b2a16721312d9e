package testutil

import "testing"

// SetupTestEnv sets environment variables for the duration of a test,
// restoring the previous values on cleanup.
func SetupTestEnv(t *testing.T, vars map[string]string) {
	t.Helper()
	for key, value := range vars {
		t.Setenv(key, value)
	}
}
