package http

import (
	"context"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/LerianStudio/payment-engine/pkg/log"
	"github.com/LerianStudio/payment-engine/pkg/opentelemetry"
	"github.com/gofiber/fiber/v2"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMetricsCollectionInterval is the default interval for collecting system metrics.
// Can be overridden via METRICS_COLLECTION_INTERVAL environment variable.
const DefaultMetricsCollectionInterval = 5 * time.Second

var (
	metricsCollectorOnce     = &sync.Once{}
	metricsCollectorShutdown chan struct{}
	metricsCollectorMu       sync.Mutex
	metricsCollectorStarted  bool
	metricsCollectorInitErr  error
)

var uuidPathRegex = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

// ReplaceUUIDWithPlaceholder swaps UUID path segments for ":id" so span names
// and metric labels keep a bounded cardinality.
func ReplaceUUIDWithPlaceholder(path string) string {
	return uuidPathRegex.ReplaceAllString(path, ":id")
}

type TelemetryMiddleware struct {
	Telemetry *opentelemetry.Telemetry
}

// NewTelemetryMiddleware creates a new instance of TelemetryMiddleware.
func NewTelemetryMiddleware(tl *opentelemetry.Telemetry) *TelemetryMiddleware {
	return &TelemetryMiddleware{tl}
}

// WithTelemetry is a middleware that adds tracing to the context.
func (tm *TelemetryMiddleware) WithTelemetry(tl *opentelemetry.Telemetry, excludedRoutes ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if len(excludedRoutes) > 0 && tm.isRouteExcluded(c, excludedRoutes) {
			return c.Next()
		}

		setRequestHeaderID(c)

		tracer := otel.Tracer(tl.LibraryName)
		routePathWithMethod := c.Method() + " " + ReplaceUUIDWithPlaceholder(c.Path())

		traceCtx := opentelemetry.ExtractHTTPContext(c)

		ctx, span := tracer.Start(traceCtx, routePathWithMethod, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		span.SetAttributes(
			attribute.String("http.method", c.Method()),
			attribute.String("http.url", c.OriginalURL()),
			attribute.String("http.route", c.Route().Path),
			attribute.String("http.scheme", c.Protocol()),
			attribute.String("http.host", c.Hostname()),
			attribute.String("http.user_agent", c.Get("User-Agent")),
			attribute.String("app.request.request_id", c.Get(HeaderID)),
		)

		c.SetUserContext(ctx)

		if err := tm.ensureMetricsCollector(); err != nil {
			opentelemetry.HandleSpanError(&span, "Failed to start metrics collector", err)
		}

		err := c.Next()

		span.SetAttributes(
			attribute.Int("http.status_code", c.Response().StatusCode()),
		)

		return err
	}
}

// EndTracingSpans is a middleware that ends the tracing spans.
func (tm *TelemetryMiddleware) EndTracingSpans(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if ctx == nil {
		return nil
	}

	err := c.Next()

	go func() {
		trace.SpanFromContext(ctx).End()
	}()

	return err
}

// getMetricsCollectionInterval returns the metrics collection interval.
// Accepts Go duration format (e.g., "10s", "1m", "500ms").
// Falls back to DefaultMetricsCollectionInterval if not set or invalid.
func getMetricsCollectionInterval() time.Duration {
	if envInterval := os.Getenv("METRICS_COLLECTION_INTERVAL"); envInterval != "" {
		if parsed, err := time.ParseDuration(envInterval); err == nil && parsed > 0 {
			return parsed
		}
	}

	return DefaultMetricsCollectionInterval
}

func (tm *TelemetryMiddleware) ensureMetricsCollector() error {
	metricsCollectorMu.Lock()
	defer metricsCollectorMu.Unlock()

	if metricsCollectorStarted {
		return nil
	}

	if metricsCollectorInitErr != nil {
		// Reset to allow retry after transient init failures
		metricsCollectorOnce = &sync.Once{}
		metricsCollectorInitErr = nil
	}

	metricsCollectorOnce.Do(func() {
		meter := otel.Meter(tm.Telemetry.ServiceName)

		cpuGauge, err := meter.Int64Gauge("system.cpu.usage", metric.WithUnit("percentage"))
		if err != nil {
			metricsCollectorInitErr = err
			return
		}

		memGauge, err := meter.Int64Gauge("system.mem.usage", metric.WithUnit("percentage"))
		if err != nil {
			metricsCollectorInitErr = err
			return
		}

		metricsCollectorShutdown = make(chan struct{})
		ticker := time.NewTicker(getMetricsCollectionInterval())
		logger := tm.Telemetry.Logger

		go func() {
			recordSystemUsage(cpuGauge, memGauge, logger)

			for {
				select {
				case <-metricsCollectorShutdown:
					ticker.Stop()
					return
				case <-ticker.C:
					recordSystemUsage(cpuGauge, memGauge, logger)
				}
			}
		}()

		metricsCollectorStarted = true
	})

	return metricsCollectorInitErr
}

func recordSystemUsage(cpuGauge, memGauge metric.Int64Gauge, logger log.Logger) {
	ctx := context.Background()

	percents, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		logger.Warnf("error getting CPU usage: %v", err)
	}

	var percentageCPU int64
	if len(percents) > 0 {
		percentageCPU = int64(percents[0])
	}

	cpuGauge.Record(ctx, percentageCPU)

	vm, err := mem.VirtualMemory()
	if err != nil {
		logger.Warnf("error getting memory info: %v", err)
		return
	}

	memGauge.Record(ctx, int64(vm.UsedPercent))
}

// StopMetricsCollector stops the background metrics collector goroutine.
// Should be called during application shutdown for graceful cleanup.
// After calling this function, the collector can be restarted by new requests.
func StopMetricsCollector() {
	metricsCollectorMu.Lock()
	defer metricsCollectorMu.Unlock()

	if metricsCollectorStarted && metricsCollectorShutdown != nil {
		close(metricsCollectorShutdown)

		metricsCollectorStarted = false
		metricsCollectorOnce = &sync.Once{}
		metricsCollectorInitErr = nil
	}
}

func (tm *TelemetryMiddleware) isRouteExcluded(c *fiber.Ctx, excludedRoutes []string) bool {
	for _, route := range excludedRoutes {
		if strings.HasPrefix(c.Path(), route) {
			return true
		}
	}

	return false
}
