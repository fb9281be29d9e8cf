// Package zap provides the zap-backed implementation of the log.Logger
// contract used by the payment engine.
package zap

import (
	"go.uber.org/zap"

	"github.com/LerianStudio/payment-engine/pkg/log"
)

// Logger is the zap-backed implementation of log.Logger.
//
// Formatted messages are sanitized to prevent log injection (CWE-117):
// format strings and plain string arguments have control characters escaped
// before they reach the encoder.
type Logger struct {
	sugar *zap.SugaredLogger
}

// Compile-time assertion: *Logger implements log.Logger.
var _ log.Logger = (*Logger)(nil)

func (l *Logger) must() *zap.SugaredLogger {
	if l == nil || l.sugar == nil {
		return zap.NewNop().Sugar()
	}

	return l.sugar
}

// Info implements Info Logger interface function.
func (l *Logger) Info(args ...any) {
	l.must().Info(log.SanitizeArgs(args)...)
}

// Infof implements Infof Logger interface function.
func (l *Logger) Infof(format string, args ...any) {
	l.must().Infof(log.SanitizeString(format), args...)
}

// Error implements Error Logger interface function.
func (l *Logger) Error(args ...any) {
	l.must().Error(log.SanitizeArgs(args)...)
}

// Errorf implements Errorf Logger interface function.
func (l *Logger) Errorf(format string, args ...any) {
	l.must().Errorf(log.SanitizeString(format), args...)
}

// Warn implements Warn Logger interface function.
func (l *Logger) Warn(args ...any) {
	l.must().Warn(log.SanitizeArgs(args)...)
}

// Warnf implements Warnf Logger interface function.
func (l *Logger) Warnf(format string, args ...any) {
	l.must().Warnf(log.SanitizeString(format), args...)
}

// Debug implements Debug Logger interface function.
func (l *Logger) Debug(args ...any) {
	l.must().Debug(log.SanitizeArgs(args)...)
}

// Debugf implements Debugf Logger interface function.
func (l *Logger) Debugf(format string, args ...any) {
	l.must().Debugf(log.SanitizeString(format), args...)
}

// Fatal implements Fatal Logger interface function.
func (l *Logger) Fatal(args ...any) {
	l.must().Fatal(log.SanitizeArgs(args)...)
}

// Fatalf implements Fatalf Logger interface function.
func (l *Logger) Fatalf(format string, args ...any) {
	l.must().Fatalf(log.SanitizeString(format), args...)
}

// WithFields returns a child logger with additional structured fields,
// expected as alternating key/value pairs.
//
//nolint:ireturn
func (l *Logger) WithFields(fields ...any) log.Logger {
	return &Logger{sugar: l.must().With(fields...)}
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	return l.must().Sync()
}
