package errors

import (
	"fmt"
	"strings"
)

// UserError is an error meant to be shown to the user with helpful context.
type UserError struct {
	Message    string
	Details    string
	Suggestion string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError is a configuration error with the offending field and a fix hint.
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// CommandError is a command execution error.
type CommandError struct {
	Command    string
	ExitCode   int
	Message    string
	Suggestion string
}

func (e CommandError) Error() string {
	msg := fmt.Sprintf("Command '%s' failed", e.Command)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit code: %d)", e.ExitCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// StoreError wraps a secret store failure with a backend-specific suggestion.
func StoreError(store string, operation string, err error) error {
	return UserError{
		Message:    fmt.Sprintf("%s store error during %s", store, operation),
		Suggestion: storeSuggestion(store, err),
		Err:        err,
	}
}

// SourceError wraps a credential source failure with a suggestion.
func SourceError(source string, operation string, err error) error {
	return UserError{
		Message:    fmt.Sprintf("%s source error during %s", source, operation),
		Suggestion: sourceSuggestion(source, err),
		Err:        err,
	}
}

func storeSuggestion(store string, err error) string {
	errStr := err.Error()

	switch {
	case strings.HasPrefix(store, "gcp"):
		switch {
		case strings.Contains(errStr, "PermissionDenied"):
			return "Check IAM permissions: secretmanager.secrets.create, secretmanager.versions.add, secretmanager.versions.access"
		case strings.Contains(errStr, "Unauthenticated"):
			return "Check authentication: set GOOGLE_APPLICATION_CREDENTIALS or run 'gcloud auth application-default login'"
		case strings.Contains(errStr, "NotFound"):
			return "Verify the project ID and that the secret exists"
		case strings.Contains(errStr, "ResourceExhausted"):
			return "Request was throttled. Wait a moment and try again"
		}
		return "Check GCP credentials, project ID, and Secret Manager IAM permissions"

	case strings.HasPrefix(store, "aws"):
		switch {
		case strings.Contains(errStr, "AccessDenied"):
			return "Check IAM permissions for secretsmanager:CreateSecret, secretsmanager:PutSecretValue"
		case strings.Contains(errStr, "credentials"), strings.Contains(errStr, "no EC2 IMDS role"):
			return "Configure AWS credentials: 'aws configure' or set AWS_PROFILE"
		case strings.Contains(errStr, "ResourceNotFoundException"):
			return "Verify the secret name and region"
		case strings.Contains(errStr, "ThrottlingException"):
			return "AWS rate limit exceeded. Wait a moment and try again"
		}
		return "Check AWS credentials, region, and Secrets Manager permissions"

	case strings.HasPrefix(store, "azure"):
		switch {
		case strings.Contains(errStr, "Forbidden"):
			return "Check Key Vault access policy or RBAC role (Key Vault Secrets Officer)"
		case strings.Contains(errStr, "DefaultAzureCredential"):
			return "Run 'az login' or configure a managed identity / client secret"
		case strings.Contains(errStr, "SecretNotFound"):
			return "Verify the secret name and vault URL"
		}
		return "Check Azure credentials, vault URL, and Key Vault permissions"
	}

	return "Check the store configuration and credentials, then run 'maosec doctor'"
}

func sourceSuggestion(source string, err error) string {
	errStr := err.Error()

	if source == "notion" {
		switch {
		case strings.Contains(errStr, "401"), strings.Contains(errStr, "unauthorized"):
			return "Check the Notion token. Run 'maosec login notion' to store a valid one"
		case strings.Contains(errStr, "404"), strings.Contains(errStr, "object_not_found"):
			return "Verify the database ID and that the integration is shared with the database"
		case strings.Contains(errStr, "429"), strings.Contains(errStr, "rate_limited"):
			return "Notion rate limit hit. Wait a moment and try again"
		}
		return "Check the Notion token, database ID, and integration sharing"
	}

	return "Check the source configuration, then run 'maosec doctor'"
}

// WrapCommandNotFound turns a LookPath failure into an actionable error.
func WrapCommandNotFound(command string, err error) error {
	return CommandError{
		Command:    command,
		Message:    "command not found",
		Suggestion: fmt.Sprintf("Check that '%s' is installed and on your PATH", command),
	}
}
