//go:build unit

package opentelemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/LerianStudio/payment-engine/pkg/log"
	"github.com/LerianStudio/payment-engine/pkg/opentelemetry/metrics"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestInitializeTelemetryWithError_NilConfig(t *testing.T) {
	t.Parallel()

	tl, err := InitializeTelemetryWithError(nil)
	require.ErrorIs(t, err, ErrNilTelemetryConfig)
	assert.Nil(t, tl)
}

func TestInitializeTelemetryWithError_NilLogger(t *testing.T) {
	t.Parallel()

	tl, err := InitializeTelemetryWithError(&TelemetryConfig{
		EnableTelemetry: false,
	})
	require.ErrorIs(t, err, ErrNilTelemetryLogger)
	assert.Nil(t, tl)
}

func TestInitializeTelemetryWithError_DisabledReturnsNoopProviders(t *testing.T) {
	t.Parallel()

	tl, err := InitializeTelemetryWithError(&TelemetryConfig{
		LibraryName:     "test-lib",
		ServiceName:     "test-svc",
		ServiceVersion:  "0.1.0",
		DeploymentEnv:   "test",
		EnableTelemetry: false,
		Logger:          &log.NoneLogger{},
	})
	require.NoError(t, err)
	require.NotNil(t, tl)
	assert.NotNil(t, tl.TracerProvider)
	assert.NotNil(t, tl.MetricProvider)
	assert.NotNil(t, tl.LoggerProvider)
	assert.NotNil(t, tl.MetricsFactory)
}

func TestInitializeTelemetryWithError_DisabledFactoryIsUsable(t *testing.T) {
	t.Parallel()

	tl, err := InitializeTelemetryWithError(&TelemetryConfig{
		LibraryName:     "test-lib",
		EnableTelemetry: false,
		Logger:          &log.NoneLogger{},
	})
	require.NoError(t, err)

	counter, err := tl.MetricsFactory.Counter(metrics.Metric{Name: "test_counter"})
	require.NoError(t, err)
	require.NoError(t, counter.AddOne(context.Background()))
}

func TestTelemetry_Disabled_ShutdownIsSafe(t *testing.T) {
	t.Parallel()

	tl, err := InitializeTelemetryWithError(&TelemetryConfig{
		LibraryName:     "test-lib",
		EnableTelemetry: false,
		Logger:          &log.NoneLogger{},
	})
	require.NoError(t, err)

	assert.NotPanics(t, func() { tl.ShutdownTelemetry() })
	assert.NotPanics(t, func() { tl.ShutdownTelemetry() })
}

func TestGetTraceIDFromContext_NoActiveSpan(t *testing.T) {
	t.Parallel()
	assert.Empty(t, GetTraceIDFromContext(context.Background()))
}

func TestGetTraceIDFromContext_WithSpan(t *testing.T) {
	t.Parallel()

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	traceID := GetTraceIDFromContext(ctx)
	assert.NotEmpty(t, traceID)
	assert.Len(t, traceID, 32)
}

func TestHandleSpanError_NilSpan(t *testing.T) {
	t.Parallel()
	assert.NotPanics(t, func() { HandleSpanError(nil, "msg", assert.AnError) })
}

func TestHandleSpanError_NilError(t *testing.T) {
	t.Parallel()

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	_, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	assert.NotPanics(t, func() { HandleSpanError(&span, "msg", nil) })
}

func TestHandleSpanError_WithSpan(t *testing.T) {
	t.Parallel()

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	_, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	assert.NotPanics(t, func() {
		HandleSpanError(&span, "scoring failed", assert.AnError)
	})
}

func TestHandleSpanEvent_NilSpan(t *testing.T) {
	t.Parallel()
	assert.NotPanics(t, func() { HandleSpanEvent(nil, "evt") })
}

func TestHandleSpanBusinessErrorEvent_NilSpanAndNilError(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() { HandleSpanBusinessErrorEvent(nil, "evt", assert.AnError) })

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	_, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	assert.NotPanics(t, func() { HandleSpanBusinessErrorEvent(&span, "evt", nil) })
}

func TestSetSpanAttributesFromStruct(t *testing.T) {
	t.Parallel()

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	_, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	type payload struct {
		ID     string `json:"id"`
		Amount string `json:"amount"`
	}

	err := SetSpanAttributesFromStruct(&span, "app.request.payload", payload{ID: "123", Amount: "150.50"})
	require.NoError(t, err)
}

func TestSetSpanAttributesFromStruct_UnmarshalableValue(t *testing.T) {
	t.Parallel()

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	_, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	err := SetSpanAttributesFromStruct(&span, "bad", make(chan int))
	assert.Error(t, err)
}

func TestInjectHTTPContext_SetsTraceparent(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	prevTP := otel.GetTracerProvider()
	t.Cleanup(func() {
		otel.SetTextMapPropagator(prev)
		otel.SetTracerProvider(prevTP)
	})

	otel.SetTextMapPropagator(propagation.TraceContext{})
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "outgoing")
	defer span.End()

	headers := http.Header{}
	InjectHTTPContext(&headers, ctx)
	assert.NotEmpty(t, headers.Get("Traceparent"))
}

func TestExtractHTTPContext_ReadsTraceparent(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })
	otel.SetTextMapPropagator(propagation.TraceContext{})

	var extracted trace.SpanContext

	app := fiber.New()
	app.Get("/probe", func(c *fiber.Ctx) error {
		ctx := ExtractHTTPContext(c)
		extracted = trace.SpanContextFromContext(ctx)

		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(fiber.MethodGet, "/probe", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.True(t, extracted.IsValid())
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", extracted.TraceID().String())
	assert.Equal(t, "00f067aa0ba902b7", extracted.SpanID().String())
}

func TestExtractHTTPContext_NoHeadersReturnsOriginal(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })
	otel.SetTextMapPropagator(propagation.TraceContext{})

	var extracted trace.SpanContext

	app := fiber.New()
	app.Get("/probe", func(c *fiber.Ctx) error {
		ctx := ExtractHTTPContext(c)
		extracted = trace.SpanContextFromContext(ctx)

		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/probe", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.False(t, extracted.IsValid())
}

func TestNewResource(t *testing.T) {
	t.Parallel()

	cfg := &TelemetryConfig{
		ServiceName:    "payment-engine",
		ServiceVersion: "1.0.0",
		DeploymentEnv:  "test",
	}
	assert.NotNil(t, cfg.newResource())
}
