package log

import (
	"fmt"
	"log"
	"strings"
)

// GoLogger is the Go built-in (log) implementation of Logger. It is the
// fallback used where no structured logger has been injected.
//
// All string arguments are sanitized to prevent log injection (CWE-117).
type GoLogger struct {
	fields []any
	Level  Level
}

// IsLevelEnabled checks if the given level is enabled.
func (l *GoLogger) IsLevelEnabled(level Level) bool {
	if l == nil {
		return false
	}

	return level <= l.Level
}

// Info implements Info Logger interface function.
func (l *GoLogger) Info(args ...any) {
	if l.IsLevelEnabled(InfoLevel) {
		log.Print(l.hydrateWithLevel(InfoLevel, args...))
	}
}

// Infof implements Infof Logger interface function.
func (l *GoLogger) Infof(format string, args ...any) {
	if l.IsLevelEnabled(InfoLevel) {
		log.Print(l.hydrateWithLevel(InfoLevel, fmt.Sprintf(SanitizeString(format), args...)))
	}
}

// Error implements Error Logger interface function.
func (l *GoLogger) Error(args ...any) {
	if l.IsLevelEnabled(ErrorLevel) {
		log.Print(l.hydrateWithLevel(ErrorLevel, args...))
	}
}

// Errorf implements Errorf Logger interface function.
func (l *GoLogger) Errorf(format string, args ...any) {
	if l.IsLevelEnabled(ErrorLevel) {
		log.Print(l.hydrateWithLevel(ErrorLevel, fmt.Sprintf(SanitizeString(format), args...)))
	}
}

// Warn implements Warn Logger interface function.
func (l *GoLogger) Warn(args ...any) {
	if l.IsLevelEnabled(WarnLevel) {
		log.Print(l.hydrateWithLevel(WarnLevel, args...))
	}
}

// Warnf implements Warnf Logger interface function.
func (l *GoLogger) Warnf(format string, args ...any) {
	if l.IsLevelEnabled(WarnLevel) {
		log.Print(l.hydrateWithLevel(WarnLevel, fmt.Sprintf(SanitizeString(format), args...)))
	}
}

// Debug implements Debug Logger interface function.
func (l *GoLogger) Debug(args ...any) {
	if l.IsLevelEnabled(DebugLevel) {
		log.Print(l.hydrateWithLevel(DebugLevel, args...))
	}
}

// Debugf implements Debugf Logger interface function.
func (l *GoLogger) Debugf(format string, args ...any) {
	if l.IsLevelEnabled(DebugLevel) {
		log.Print(l.hydrateWithLevel(DebugLevel, fmt.Sprintf(SanitizeString(format), args...)))
	}
}

// Fatal implements Fatal Logger interface function.
func (l *GoLogger) Fatal(args ...any) {
	if l.IsLevelEnabled(FatalLevel) {
		log.Fatal(l.hydrateWithLevel(FatalLevel, args...))
	}
}

// Fatalf implements Fatalf Logger interface function.
func (l *GoLogger) Fatalf(format string, args ...any) {
	if l.IsLevelEnabled(FatalLevel) {
		log.Fatal(l.hydrateWithLevel(FatalLevel, fmt.Sprintf(SanitizeString(format), args...)))
	}
}

// WithFields implements WithFields Logger interface function.
//
//nolint:ireturn
func (l *GoLogger) WithFields(fields ...any) Logger {
	if l == nil {
		return &GoLogger{}
	}

	newFields := make([]any, 0, len(l.fields)+len(fields))
	newFields = append(newFields, l.fields...)
	newFields = append(newFields, fields...)

	return &GoLogger{
		Level:  l.Level,
		fields: newFields,
	}
}

func (l *GoLogger) hydrateWithLevel(level Level, args ...any) string {
	message := fmt.Sprint(SanitizeArgs(args)...)

	if l == nil {
		return message
	}

	messageParts := make([]string, 0, 3)
	messageParts = append(messageParts, fmt.Sprintf("[%s]", level.String()))

	if fields := l.hydrateFields(); fields != "" {
		messageParts = append(messageParts, fields)
	}

	messageParts = append(messageParts, message)

	return strings.Join(messageParts, " ")
}

func (l *GoLogger) hydrateFields() string {
	if len(l.fields) == 0 {
		return ""
	}

	parts := make([]string, 0, (len(l.fields)+1)/2)

	for i := 0; i < len(l.fields); i += 2 {
		if i+1 >= len(l.fields) {
			parts = append(parts, fmt.Sprint(l.fields[i]))
			continue
		}

		parts = append(parts, fmt.Sprintf("%v=%v", l.fields[i], l.fields[i+1]))
	}

	return fmt.Sprintf("[%s]", strings.Join(parts, ", "))
}

// Sync implements Sync Logger interface function.
func (l *GoLogger) Sync() error { return nil }
