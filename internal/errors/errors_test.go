package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserError(t *testing.T) {
	inner := errors.New("boom")
	err := UserError{
		Message:    "Failed to reach the store",
		Details:    "connection refused",
		Suggestion: "Run 'maosec doctor'",
		Err:        inner,
	}

	msg := err.Error()
	assert.Contains(t, msg, "Failed to reach the store")
	assert.Contains(t, msg, "Details: connection refused")
	assert.Contains(t, msg, "💡 Try: Run 'maosec doctor'")
	assert.True(t, errors.Is(err, inner))
}

func TestUserErrorFallsBackToWrapped(t *testing.T) {
	err := UserError{Err: errors.New("underlying failure")}
	assert.Contains(t, err.Error(), "underlying failure")
}

func TestConfigError(t *testing.T) {
	err := ConfigError{
		Field:      "prefix",
		Value:      "MAOS!",
		Message:    "invalid characters",
		Suggestion: "Use lowercase letters, digits, underscores and hyphens",
	}

	msg := err.Error()
	assert.Contains(t, msg, "field 'prefix'")
	assert.Contains(t, msg, "value: MAOS!")
	assert.Contains(t, msg, "invalid characters")
}

func TestCommandError(t *testing.T) {
	err := CommandError{Command: "npm", ExitCode: 2, Message: "start failed"}
	msg := err.Error()
	assert.Contains(t, msg, "Command 'npm' failed")
	assert.Contains(t, msg, "exit code: 2")
}

func TestStoreSuggestions(t *testing.T) {
	tests := []struct {
		store string
		err   string
		want  string
	}{
		{"gcp.secretmanager", "rpc error: code = PermissionDenied", "secretmanager.secrets.create"},
		{"gcp.secretmanager", "Unauthenticated", "gcloud auth application-default login"},
		{"aws.secretsmanager", "AccessDenied", "secretsmanager:CreateSecret"},
		{"aws.ssm", "ThrottlingException", "rate limit"},
		{"azure.keyvault", "Forbidden", "Key Vault Secrets Officer"},
	}

	for _, tt := range tests {
		err := StoreError(tt.store, "upsert", errors.New(tt.err))
		assert.Contains(t, err.Error(), tt.want, "store=%s err=%s", tt.store, tt.err)
	}
}

func TestSourceSuggestions(t *testing.T) {
	err := SourceError("notion", "list", errors.New("status 401 unauthorized"))
	assert.Contains(t, err.Error(), "maosec login notion")

	err = SourceError("notion", "list", errors.New("object_not_found"))
	assert.Contains(t, err.Error(), "shared with the database")
}
