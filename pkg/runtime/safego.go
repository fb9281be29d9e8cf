package runtime

import "context"

// SafeGo runs fn in a new goroutine, recovering and logging any panic so a
// failing background task cannot crash the process.
func SafeGo(logger Logger, name string, fn func()) {
	go func() {
		defer RecoverAndLog(logger, name)
		fn()
	}()
}

// SafeGoWithContext runs fn in a new goroutine with the given context,
// recovering and logging any panic.
func SafeGoWithContext(ctx context.Context, logger Logger, name string, fn func(context.Context)) {
	go func() {
		defer RecoverAndLogWithContext(ctx, logger, "", name)
		fn(ctx)
	}()
}

// SafeGoWithContextAndComponent is like SafeGoWithContext but tags recovered
// panics with the owning component and applies the given policy after
// recording them.
func SafeGoWithContextAndComponent(
	ctx context.Context,
	logger Logger,
	component, name string,
	policy PanicPolicy,
	fn func(context.Context),
) {
	go func() {
		defer RecoverWithPolicyAndContext(ctx, logger, component, name, policy)
		fn(ctx)
	}()
}
