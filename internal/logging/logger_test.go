package logging

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, false, true)

	logger.Info("synced %d secrets", 3)
	logger.Warn("skipping row %s", "abc")
	logger.Error("store unreachable")

	out := buf.String()
	assert.Contains(t, out, "✓ synced 3 secrets")
	assert.Contains(t, out, "⚠ skipping row abc")
	assert.Contains(t, out, "✗ store unreachable")
}

func TestLoggerDebugSuppressed(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, false, true)

	logger.Debug("should not appear")
	assert.Empty(t, buf.String())

	debugLogger := NewWithWriter(&buf, true, true)
	debugLogger.Debug("now visible")
	assert.Contains(t, buf.String(), "[DEBUG] now visible")
}

func TestLoggerColor(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, false, false)

	logger.Info("colored")
	assert.Contains(t, buf.String(), "\033[32m")

	buf.Reset()
	plain := NewWithWriter(&buf, false, true)
	plain.Info("plain")
	assert.NotContains(t, buf.String(), "\033[")
}

func TestSecretNeverPrints(t *testing.T) {
	s := Secret("super-sensitive-token")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%s", s))
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%#v", s))
}

func TestRedact(t *testing.T) {
	out := Redact("token=abcd1234 other=xy", []string{"abcd1234", "xy"})

	assert.Equal(t, "token=[REDACTED] other=xy", out)
	// short values are left alone so we do not shred unrelated output
	assert.Contains(t, out, "xy")
}
