package runtime

import (
	"context"
	"sync"

	"github.com/LerianStudio/payment-engine/pkg/opentelemetry/metrics"
)

// maxMetricLabelLength is the maximum length for metric labels to prevent
// cardinality explosion in OTEL backends.
const maxMetricLabelLength = 64

// PanicMetrics provides panic-related metrics using OpenTelemetry.
type PanicMetrics struct {
	factory *metrics.MetricsFactory
	logger  Logger
}

// panicRecoveredMetric defines the metric for counting recovered panics.
var panicRecoveredMetric = metrics.Metric{
	Name:        "panic_recovered_total",
	Unit:        "1",
	Description: "Total number of recovered panics",
}

var (
	panicMetricsInstance *PanicMetrics
	panicMetricsMu       sync.RWMutex
)

// InitPanicMetrics initializes panic metrics with the provided MetricsFactory.
// The logger is optional and used only for metric recording diagnostics.
// This should be called once during application startup after telemetry is
// initialized. It is safe to call multiple times; subsequent calls are no-ops.
func InitPanicMetrics(factory *metrics.MetricsFactory, logger ...Logger) {
	panicMetricsMu.Lock()
	defer panicMetricsMu.Unlock()

	if factory == nil {
		return
	}

	if panicMetricsInstance != nil {
		return
	}

	var l Logger
	if len(logger) > 0 {
		l = logger[0]
	}

	panicMetricsInstance = &PanicMetrics{
		factory: factory,
		logger:  l,
	}
}

// GetPanicMetrics returns the singleton PanicMetrics instance.
// Returns nil if InitPanicMetrics has not been called.
func GetPanicMetrics() *PanicMetrics {
	panicMetricsMu.RLock()
	defer panicMetricsMu.RUnlock()

	return panicMetricsInstance
}

// ResetPanicMetrics clears the panic metrics singleton.
// This is primarily intended for testing to ensure test isolation.
func ResetPanicMetrics() {
	panicMetricsMu.Lock()
	defer panicMetricsMu.Unlock()

	panicMetricsInstance = nil
}

// RecordPanicRecovered increments the panic_recovered_total counter with the
// given labels. If metrics are not initialized, this is a no-op.
func (pm *PanicMetrics) RecordPanicRecovered(ctx context.Context, component, goroutineName string) {
	if pm == nil || pm.factory == nil {
		return
	}

	counter, err := pm.factory.Counter(panicRecoveredMetric)
	if err != nil {
		if pm.logger != nil {
			pm.logger.Errorf("failed to create panic metric counter: %v", err)
		}

		return
	}

	err = counter.
		WithLabels(map[string]string{
			"component":      sanitizeMetricLabel(component),
			"goroutine_name": sanitizeMetricLabel(goroutineName),
		}).
		AddOne(ctx)
	if err != nil && pm.logger != nil {
		pm.logger.Errorf("failed to record panic metric: %v", err)
	}
}

// recordPanicMetric records a panic metric if metrics are initialized.
// This is called internally by recovery functions.
func recordPanicMetric(ctx context.Context, component, goroutineName string) {
	pm := GetPanicMetrics()
	if pm != nil {
		pm.RecordPanicRecovered(ctx, component, goroutineName)
	}
}

// sanitizeMetricLabel truncates a label value to maxMetricLabelLength.
func sanitizeMetricLabel(value string) string {
	if len(value) > maxMetricLabelLength {
		return value[:maxMetricLabelLength]
	}

	return value
}
