// Package log defines the logging contract used across the payment engine.
package log

import (
	"fmt"
	"strings"
)

// Logger is the logging interface consumed by every component of the engine.
// Implementations must be safe for concurrent use.
type Logger interface {
	Info(args ...any)
	Infof(format string, args ...any)
	Error(args ...any)
	Errorf(format string, args ...any)
	Warn(args ...any)
	Warnf(format string, args ...any)
	Debug(args ...any)
	Debugf(format string, args ...any)
	Fatal(args ...any)
	Fatalf(format string, args ...any)

	WithFields(fields ...any) Logger
	Sync() error
}

// Level represents the severity of a log entry.
//
// Lower numeric values indicate higher severity (FatalLevel=0 is most severe,
// DebugLevel=4 is least). A logger's configured Level acts as a verbosity
// ceiling: a logger at InfoLevel emits Fatal, Error, Warn and Info messages
// but suppresses Debug.
type Level uint8

const (
	FatalLevel Level = iota
	ErrorLevel
	WarnLevel
	InfoLevel
	DebugLevel
)

// String returns the string representation of a log level.
func (level Level) String() string {
	switch level {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	case FatalLevel:
		return "fatal"
	default:
		return "unknown"
	}
}

// ParseLevel takes a string level and returns the matching Level constant.
func ParseLevel(lvl string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	}

	var l Level

	return l, fmt.Errorf("not a valid Level: %q", lvl)
}

// controlCharReplacer escapes control characters that can be used for log
// injection (CWE-117). Newlines, carriage returns, and tabs in log messages
// can forge fake log entries or inject false audit trail entries.
var controlCharReplacer = strings.NewReplacer(
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// SanitizeString escapes control characters in a single string value.
func SanitizeString(s string) string {
	return controlCharReplacer.Replace(s)
}

// SanitizeArgs escapes control characters in all string-typed arguments.
// Non-string arguments are passed through unchanged.
func SanitizeArgs(args []any) []any {
	sanitized := make([]any, len(args))
	for i, arg := range args {
		if s, ok := arg.(string); ok {
			sanitized[i] = SanitizeString(s)
		} else {
			sanitized[i] = arg
		}
	}

	return sanitized
}
