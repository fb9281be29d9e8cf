//go:build unit

package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeGo_RunsFunction(t *testing.T) {
	t.Parallel()

	done := make(chan struct{})

	SafeGo(&capturingLogger{}, "worker", func() {
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine did not run")
	}
}

func TestSafeGo_RecoversPanic(t *testing.T) {
	t.Parallel()

	logger := &capturingLogger{}
	done := make(chan struct{})

	SafeGo(logger, "panicky-worker", func() {
		defer close(done)
		panic("goroutine panic")
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine did not run")
	}

	// The deferred recovery runs after fn returns; poll briefly for the log entry.
	require.Eventually(t, func() bool {
		return len(logger.all()) == 1
	}, time.Second, 10*time.Millisecond)

	assert.Contains(t, logger.all()[0], "goroutine panic")
}

func TestSafeGoWithContext_PassesContext(t *testing.T) {
	t.Parallel()

	type ctxKey struct{}

	ctx := context.WithValue(context.Background(), ctxKey{}, "value")
	got := make(chan any, 1)

	SafeGoWithContext(ctx, &capturingLogger{}, "ctx-worker", func(ctx context.Context) {
		got <- ctx.Value(ctxKey{})
	})

	select {
	case v := <-got:
		assert.Equal(t, "value", v)
	case <-time.After(time.Second):
		t.Fatal("goroutine did not run")
	}
}

func TestSafeGoWithContextAndComponent_RecoversPanic(t *testing.T) {
	t.Parallel()

	logger := &capturingLogger{}

	SafeGoWithContextAndComponent(context.Background(), logger, "settlement", "worker", KeepRunning, func(context.Context) {
		panic("component panic")
	})

	require.Eventually(t, func() bool {
		return len(logger.all()) == 1
	}, time.Second, 10*time.Millisecond)

	assert.Contains(t, logger.all()[0], "component panic")
}

func TestSafeGoWithContextAndComponent_CrashPolicyIsAppliedInGoroutine(t *testing.T) {
	t.Parallel()

	logger := &capturingLogger{}
	done := make(chan struct{})

	SafeGoWithContextAndComponent(context.Background(), logger, "settlement", "worker", KeepRunning, func(context.Context) {
		defer close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine did not run")
	}

	assert.Empty(t, logger.all())
}
