package runtime

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrPanic is recorded on spans for recovered panics.
var ErrPanic = errors.New("panic")

// PanicSpanEventName is the span event name for recovered panics.
const PanicSpanEventName = "panic.recovered"

// maxStackAttributeLength bounds the stack trace attribute so span payloads
// stay within collector limits.
const maxStackAttributeLength = 4096

// RecordPanicToSpan records a recovered panic as an event on the active span
// and marks the span as failed. It is a no-op when the context carries no
// recording span.
func RecordPanicToSpan(ctx context.Context, panicValue any, stack []byte, goroutineName string) {
	recordPanicEvent(ctx, panicValue, stack, "", goroutineName)
}

// RecordPanicToSpanWithComponent is like RecordPanicToSpan but also tags the
// event with the component that panicked.
func RecordPanicToSpanWithComponent(
	ctx context.Context,
	panicValue any,
	stack []byte,
	component, goroutineName string,
) {
	recordPanicEvent(ctx, panicValue, stack, component, goroutineName)
}

func recordPanicEvent(ctx context.Context, panicValue any, stack []byte, component, goroutineName string) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("panic.value", fmt.Sprintf("%v", panicValue)),
		attribute.String("panic.stack", truncateStack(stack)),
		attribute.String("panic.goroutine_name", goroutineName),
	}

	source := goroutineName
	if component != "" {
		attrs = append(attrs, attribute.String("panic.component", component))
		source = component + "/" + goroutineName
	}

	span.AddEvent(PanicSpanEventName, trace.WithAttributes(attrs...))
	span.SetStatus(codes.Error, "panic recovered in "+source)
	span.RecordError(ErrPanic)
}

func truncateStack(stack []byte) string {
	if len(stack) > maxStackAttributeLength {
		return string(stack[:maxStackAttributeLength]) + "\n...[truncated]"
	}

	return string(stack)
}
