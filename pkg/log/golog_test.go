//go:build unit

package log

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput redirects the standard library logger while fn runs.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	var buf bytes.Buffer

	origWriter := log.Writer()
	origFlags := log.Flags()

	log.SetOutput(&buf)
	log.SetFlags(0)

	t.Cleanup(func() {
		log.SetOutput(origWriter)
		log.SetFlags(origFlags)
	})

	fn()

	return buf.String()
}

func TestGoLoggerWritesLevelPrefix(t *testing.T) {
	logger := &GoLogger{Level: DebugLevel}

	out := captureOutput(t, func() {
		logger.Info("payment accepted")
	})

	assert.Contains(t, out, "[info]")
	assert.Contains(t, out, "payment accepted")
}

func TestGoLoggerRespectsLevelCeiling(t *testing.T) {
	logger := &GoLogger{Level: WarnLevel}

	out := captureOutput(t, func() {
		logger.Debug("too verbose")
		logger.Info("also too verbose")
		logger.Warn("kept")
		logger.Error("kept too")
	})

	assert.NotContains(t, out, "too verbose")
	assert.Contains(t, out, "[warn] kept")
	assert.Contains(t, out, "[error] kept too")
}

func TestGoLoggerSanitizesControlCharacters(t *testing.T) {
	logger := &GoLogger{Level: DebugLevel}

	out := captureOutput(t, func() {
		logger.Info("line1\nFAKE ENTRY")
	})

	assert.Contains(t, out, `line1\nFAKE ENTRY`)
	require.Equal(t, 1, strings.Count(out, "\n"), "only the trailing newline from the stdlib logger is expected")
}

func TestGoLoggerWithFields(t *testing.T) {
	base := &GoLogger{Level: DebugLevel}
	logger := base.WithFields("request_id", "abc-123")

	out := captureOutput(t, func() {
		logger.Info("done")
	})

	assert.Contains(t, out, "request_id=abc-123")
	assert.Contains(t, out, "done")
}

func TestGoLoggerWithFieldsDoesNotMutateParent(t *testing.T) {
	base := &GoLogger{Level: DebugLevel}
	_ = base.WithFields("a", 1)

	out := captureOutput(t, func() {
		base.Info("clean")
	})

	assert.NotContains(t, out, "a=1")
}

func TestGoLoggerNilReceiverIsSafe(t *testing.T) {
	var logger *GoLogger

	assert.NotPanics(t, func() {
		logger.Info("ignored")
		logger.Errorf("ignored %d", 1)
	})
	assert.False(t, logger.IsLevelEnabled(ErrorLevel))
}
