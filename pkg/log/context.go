package log

import "context"

type contextKey string

// loggerContextKey is the context key used to store request-scoped facilities.
var loggerContextKey = contextKey("payment_engine_logging")

// contextValue holds the request-scoped facilities attached to a context.
type contextValue struct {
	logger    Logger
	requestID string
}

// clone returns a copy so derived contexts never mutate their parent's value.
func (v *contextValue) clone() *contextValue {
	if v == nil {
		return &contextValue{}
	}

	cp := *v

	return &cp
}

// ContextWithLogger returns a child context carrying the given logger.
func ContextWithLogger(ctx context.Context, logger Logger) context.Context {
	values, _ := ctx.Value(loggerContextKey).(*contextValue)
	values = values.clone()
	values.logger = logger

	return context.WithValue(ctx, loggerContextKey, values)
}

// NewLoggerFromContext extracts the Logger carried by ctx, or a NoneLogger
// when none was attached.
//
//nolint:ireturn
func NewLoggerFromContext(ctx context.Context) Logger {
	if values, ok := ctx.Value(loggerContextKey).(*contextValue); ok && values.logger != nil {
		return values.logger
	}

	return &NoneLogger{}
}

// ContextWithRequestID returns a child context carrying the correlation id
// assigned to the current request.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	values, _ := ctx.Value(loggerContextKey).(*contextValue)
	values = values.clone()
	values.requestID = requestID

	return context.WithValue(ctx, loggerContextKey, values)
}

// NewRequestIDFromContext extracts the correlation id carried by ctx, or an
// empty string when none was attached.
func NewRequestIDFromContext(ctx context.Context) string {
	if values, ok := ctx.Value(loggerContextKey).(*contextValue); ok {
		return values.requestID
	}

	return ""
}
