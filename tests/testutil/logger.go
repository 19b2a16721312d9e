package testutil

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Activ8-AI/maosec/internal/logging"
)

// NewTestLogger returns a logger writing into the returned buffer, with
// color disabled so assertions can match plain glyphs.
func NewTestLogger(t *testing.T) (*logging.Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	return logging.NewWithWriter(buf, false, true), buf
}

// NewDebugTestLogger is NewTestLogger with debug output enabled.
func NewDebugTestLogger(t *testing.T) (*logging.Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	return logging.NewWithWriter(buf, true, true), buf
}

// AssertLogContains fails the test when the log buffer lacks the substring.
func AssertLogContains(t *testing.T, buf *bytes.Buffer, substr string) {
	t.Helper()
	assert.True(t, strings.Contains(buf.String(), substr),
		"expected log output to contain %q, got:\n%s", substr, buf.String())
}

// AssertLogNotContains fails the test when the log buffer has the substring.
// Used to prove secret values never reach log output.
func AssertLogNotContains(t *testing.T, buf *bytes.Buffer, substr string) {
	t.Helper()
	assert.False(t, strings.Contains(buf.String(), substr),
		"expected log output to not contain %q, got:\n%s", substr, buf.String())
}
