// Package execenv runs child processes with secrets injected as environment
// variables, so credentials reach the process without ever touching disk.
package execenv

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"syscall"
	"time"

	maoserrors "github.com/Activ8-AI/maosec/internal/errors"
	"github.com/Activ8-AI/maosec/internal/logging"
)

// Executor handles running commands with ephemeral environment variables.
type Executor struct {
	logger *logging.Logger
}

// New creates a new executor.
func New(logger *logging.Logger) *Executor {
	return &Executor{logger: logger}
}

// Options configures command execution.
type Options struct {
	Command     []string          // Command and arguments to run
	Environment map[string]string // Secret variables to inject
	KeepParent  bool              // Let pre-existing variables win over injected ones
	PrintVars   bool              // Print resolved variable names with masked values
	WorkingDir  string            // Working directory for the command
	Timeout     int               // Timeout in seconds, 0 for none
}

// Exec runs a command with the provided environment variables. On a child
// exit the parent exits with the same code.
func (e *Executor) Exec(ctx context.Context, options Options) error {
	if len(options.Command) == 0 {
		return maoserrors.UserError{
			Message:    "No command specified",
			Suggestion: "Provide a command after -- (e.g., maosec exec --host activ8ai.app --env prod -- npm start)",
		}
	}

	if options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(options.Timeout)*time.Second)
		defer cancel()
	}

	cmdName := options.Command[0]
	if _, err := exec.LookPath(cmdName); err != nil {
		return maoserrors.WrapCommandNotFound(cmdName, err)
	}

	env := e.buildEnvironment(options.Environment, options.KeepParent)

	if options.PrintVars {
		e.printEnvironment(options.Environment)
	}

	cmd := exec.CommandContext(ctx, cmdName, options.Command[1:]...)
	cmd.Env = env
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	if options.WorkingDir != "" {
		cmd.Dir = options.WorkingDir
	}

	e.logger.Debug("executing: %s", strings.Join(options.Command, " "))
	e.logger.Debug("injecting %d variables", len(options.Environment))

	if err := cmd.Run(); err != nil {
		if exitError, ok := err.(*exec.ExitError); ok {
			if status, ok := exitError.Sys().(syscall.WaitStatus); ok {
				os.Exit(status.ExitStatus())
			}
			os.Exit(1)
		}
		return maoserrors.CommandError{
			Command:    strings.Join(options.Command, " "),
			Message:    err.Error(),
			Suggestion: "Check the command output above for details",
		}
	}
	return nil
}

// buildEnvironment merges the parent environment with the injected secret
// variables into an exec-ready slice.
func (e *Executor) buildEnvironment(vars map[string]string, keepParent bool) []string {
	envMap := make(map[string]string)
	for _, entry := range os.Environ() {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) == 2 {
			envMap[parts[0]] = parts[1]
		}
	}

	for key, value := range vars {
		if keepParent {
			if _, exists := envMap[key]; exists {
				continue
			}
		}
		envMap[key] = value
	}

	result := make([]string, 0, len(envMap))
	for key, value := range envMap {
		result = append(result, fmt.Sprintf("%s=%s", key, value))
	}
	sort.Strings(result)
	return result
}

// printEnvironment displays the injected variables with masked values.
func (e *Executor) printEnvironment(vars map[string]string) {
	if len(vars) == 0 {
		fmt.Println("No secret variables resolved")
		return
	}

	fmt.Printf("Injecting %d variables:\n", len(vars))
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		fmt.Printf("  %s=%s\n", key, MaskValue(vars[key]))
	}
	fmt.Println()
}

// MaskValue masks a secret value for display, keeping just enough of the
// edges to recognize which credential it is.
func MaskValue(value string) string {
	switch {
	case len(value) == 0:
		return "(empty)"
	case len(value) <= 3:
		return strings.Repeat("*", len(value))
	case len(value) <= 8:
		return value[:1] + strings.Repeat("*", len(value)-2) + value[len(value)-1:]
	default:
		return value[:3] + strings.Repeat("*", 8) + value[len(value)-2:]
	}
}
