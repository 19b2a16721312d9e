package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Logger writes human-oriented status output to stderr. Secret values must
// pass through Secret or Redact before reaching any log call.
type Logger struct {
	debug   bool
	noColor bool
	out     io.Writer
}

// New creates a logger. Debug messages are suppressed unless debug is true.
func New(debug, noColor bool) *Logger {
	return &Logger{
		debug:   debug,
		noColor: noColor,
		out:     os.Stderr,
	}
}

// NewWithWriter creates a logger that writes to w. Used by tests.
func NewWithWriter(w io.Writer, debug, noColor bool) *Logger {
	return &Logger{
		debug:   debug,
		noColor: noColor,
		out:     w,
	}
}

func (l *Logger) emit(color, glyph, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if l.noColor {
		fmt.Fprintf(l.out, "%s %s\n", glyph, msg)
		return
	}
	fmt.Fprintf(l.out, "%s%s\033[0m %s\n", color, glyph, msg)
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) {
	l.emit("\033[32m", "✓", format, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.emit("\033[33m", "⚠", format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...interface{}) {
	l.emit("\033[31m", "✗", format, args...)
}

// Debug logs a message only when debug mode is enabled.
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.emit("\033[36m", "[DEBUG]", format, args...)
}

// Secret wraps a sensitive value so that any fmt verb renders it redacted.
type Secret string

// String implements fmt.Stringer.
func (s Secret) String() string {
	return "[REDACTED]"
}

// GoString implements fmt.GoStringer so %#v stays redacted too.
func (s Secret) GoString() string {
	return "[REDACTED]"
}

// Redact replaces every occurrence of the given values in s with [REDACTED].
// Values of three characters or fewer are ignored to avoid mangling output.
func Redact(s string, values []string) string {
	result := s
	for _, v := range values {
		if len(v) > 3 {
			result = strings.ReplaceAll(result, v, "[REDACTED]")
		}
	}
	return result
}
