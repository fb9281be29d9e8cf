package runtime

import (
	"context"
	"runtime/debug"
)

// Logger defines the minimal logging interface required by runtime.
// This interface is satisfied by github.com/LerianStudio/payment-engine/pkg/log.Logger.
type Logger interface {
	Errorf(format string, args ...any)
}

// RecoverAndLog recovers from a panic, logs it with the stack trace, and
// continues execution. Use this in defer statements for handlers and workers
// where you want to prevent crashes.
//
// Note: This function does not record metrics or span events because it lacks
// context. For observability integration, use RecoverAndLogWithContext instead.
func RecoverAndLog(logger Logger, name string) {
	if r := recover(); r != nil {
		logPanic(logger, name, r)
	}
}

// RecoverAndLogWithContext is like RecoverAndLog but also records the panic
// counter metric and a span event on the active span.
//
// Parameters:
//   - ctx: Context for observability (metrics, tracing)
//   - logger: Logger for structured logging
//   - component: The service component (e.g., "settlement", "api")
//   - name: Descriptive name for the goroutine or handler
func RecoverAndLogWithContext(ctx context.Context, logger Logger, component, name string) {
	if r := recover(); r != nil {
		stack := debug.Stack()
		logPanicWithStack(logger, name, r, stack)
		recordPanicObservability(ctx, r, stack, component, name)
	}
}

// RecoverAndCrash recovers from a panic, logs it with the stack trace, and
// re-panics to crash the process. Use this in defer statements for critical
// operations where continuing after a panic would be dangerous.
func RecoverAndCrash(logger Logger, name string) {
	if r := recover(); r != nil {
		logPanic(logger, name, r)
		panic(r)
	}
}

// RecoverWithPolicy recovers from a panic and handles it according to the
// specified policy. Use this when the recovery behavior needs to be determined
// at runtime.
func RecoverWithPolicy(logger Logger, name string, policy PanicPolicy) {
	if r := recover(); r != nil {
		logPanic(logger, name, r)

		if policy == CrashProcess {
			panic(r)
		}
	}
}

// RecoverWithPolicyAndContext is like RecoverWithPolicy but also records the
// panic counter metric and a span event before applying the policy.
func RecoverWithPolicyAndContext(
	ctx context.Context,
	logger Logger,
	component, name string,
	policy PanicPolicy,
) {
	if recovered := recover(); recovered != nil {
		stack := debug.Stack()
		logPanicWithStack(logger, name, recovered, stack)
		recordPanicObservability(ctx, recovered, stack, component, name)

		if policy == CrashProcess {
			panic(recovered)
		}
	}
}

// HandlePanicValue processes a panic value that was already recovered by an
// external mechanism (e.g., Fiber's recover middleware). This function logs
// and records observability data without calling recover() itself.
//
// Parameters:
//   - ctx: Context for observability (metrics, tracing)
//   - logger: Logger for structured logging
//   - panicValue: The panic value recovered by the external mechanism
//   - component: The service component (e.g., "api")
//   - name: Descriptive name for the handler (e.g., "http_handler")
func HandlePanicValue(ctx context.Context, logger Logger, panicValue any, component, name string) {
	if panicValue == nil {
		return
	}

	stack := debug.Stack()
	logPanicWithStack(logger, name, panicValue, stack)
	recordPanicObservability(ctx, panicValue, stack, component, name)
}

// logPanic logs the panic value and stack trace using the provided logger.
func logPanic(logger Logger, name string, panicValue any) {
	stack := debug.Stack()
	logPanicWithStack(logger, name, panicValue, stack)
}

// logPanicWithStack logs the panic with a pre-captured stack trace.
func logPanicWithStack(logger Logger, name string, panicValue any, stack []byte) {
	if logger == nil {
		return
	}

	logger.Errorf("panic recovered: source=%s value=%v\nstack_trace:\n%s",
		name, panicValue, string(stack))
}

// recordPanicObservability records panic information to the metric counter and
// the active span, when either is available.
func recordPanicObservability(
	ctx context.Context,
	panicValue any,
	stack []byte,
	component, name string,
) {
	recordPanicMetric(ctx, component, name)
	RecordPanicToSpanWithComponent(ctx, panicValue, stack, component, name)
}
