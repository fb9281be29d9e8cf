package payment

import (
	"context"

	"github.com/LerianStudio/payment-engine/pkg/log"
	"github.com/LerianStudio/payment-engine/pkg/opentelemetry/metrics"
	"github.com/shopspring/decimal"
)

// Metrics is the side channel through which admission and settlement report
// what happened. Implementations must be safe for concurrent use; recording
// failures must never affect the payment flow.
type Metrics interface {
	// RecordRequest counts a payment request outcome per method. Outcome is a
	// status label: pending, fraud_detected, completed, failed or error.
	RecordRequest(ctx context.Context, method Method, outcome string)
	// ObserveDuration records admission latency in seconds.
	ObserveDuration(ctx context.Context, seconds float64)
	// ObserveAmount records the requested amount.
	ObserveAmount(ctx context.Context, amount decimal.Decimal)
	// SettlementStarted increments the active payments gauge.
	SettlementStarted(ctx context.Context)
	// SettlementFinished decrements the active payments gauge. Callers must
	// pair it with exactly one SettlementStarted per settlement job.
	SettlementFinished(ctx context.Context)
	// RecordFraudDetection counts a fraud check by risk level (low, medium, high).
	RecordFraudDetection(ctx context.Context, riskLevel string)
}

// Request outcome labels that are not statuses.
const (
	// OutcomeError labels admission requests that failed before a record
	// existed (scorer failure or open breaker).
	OutcomeError = "error"
)

// Risk level labels for fraud detection counts.
const (
	RiskLevelLow    = "low"
	RiskLevelMedium = "medium"
	RiskLevelHigh   = "high"
)

// OTelMetrics reports engine measurements through the OpenTelemetry metrics
// factory. Instrument creation errors are logged once and the measurement is
// dropped; the payment flow never fails on telemetry.
type OTelMetrics struct {
	factory *metrics.MetricsFactory
	logger  log.Logger
}

var _ Metrics = (*OTelMetrics)(nil)

// Engine instruments.
var (
	requestsMetric = metrics.Metric{
		Name:        "payment_requests_total",
		Description: "Total payment requests",
	}
	durationMetric = metrics.Metric{
		Name:        "payment_request_duration_seconds",
		Description: "Payment request latency",
		Unit:        "s",
	}
	amountMetric = metrics.Metric{
		Name:        "payment_amount_naira",
		Description: "Payment amounts in Naira",
		Buckets:     metrics.DefaultAmountBuckets,
	}
	activeMetric = metrics.Metric{
		Name:        "active_payments",
		Description: "Number of active payments",
	}
	fraudMetric = metrics.Metric{
		Name:        "fraud_detections_total",
		Description: "Total fraud detections",
	}
)

// NewOTelMetrics wires the engine instruments onto the given factory.
func NewOTelMetrics(factory *metrics.MetricsFactory, logger log.Logger) *OTelMetrics {
	if logger == nil {
		logger = &log.NoneLogger{}
	}

	return &OTelMetrics{factory: factory, logger: logger}
}

// RecordRequest implements Metrics.
func (m *OTelMetrics) RecordRequest(ctx context.Context, method Method, outcome string) {
	counter, err := m.factory.Counter(requestsMetric)
	if err != nil {
		m.logger.Errorf("payment_requests_total unavailable: %v", err)
		return
	}

	_ = counter.WithLabels(map[string]string{
		"method": string(method),
		"status": outcome,
	}).AddOne(ctx)
}

// ObserveDuration implements Metrics.
func (m *OTelMetrics) ObserveDuration(ctx context.Context, seconds float64) {
	histogram, err := m.factory.Histogram(durationMetric)
	if err != nil {
		m.logger.Errorf("payment_request_duration_seconds unavailable: %v", err)
		return
	}

	_ = histogram.Record(ctx, seconds)
}

// ObserveAmount implements Metrics.
func (m *OTelMetrics) ObserveAmount(ctx context.Context, amount decimal.Decimal) {
	histogram, err := m.factory.Histogram(amountMetric)
	if err != nil {
		m.logger.Errorf("payment_amount_naira unavailable: %v", err)
		return
	}

	_ = histogram.Record(ctx, amount.InexactFloat64())
}

// SettlementStarted implements Metrics.
func (m *OTelMetrics) SettlementStarted(ctx context.Context) {
	m.addActive(ctx, 1)
}

// SettlementFinished implements Metrics.
func (m *OTelMetrics) SettlementFinished(ctx context.Context) {
	m.addActive(ctx, -1)
}

func (m *OTelMetrics) addActive(ctx context.Context, delta int64) {
	gauge, err := m.factory.UpDownCounter(activeMetric)
	if err != nil {
		m.logger.Errorf("active_payments unavailable: %v", err)
		return
	}

	_ = gauge.Add(ctx, delta)
}

// RecordFraudDetection implements Metrics.
func (m *OTelMetrics) RecordFraudDetection(ctx context.Context, riskLevel string) {
	counter, err := m.factory.Counter(fraudMetric)
	if err != nil {
		m.logger.Errorf("fraud_detections_total unavailable: %v", err)
		return
	}

	_ = counter.WithLabels(map[string]string{"risk_level": riskLevel}).AddOne(ctx)
}

// NopMetrics drops every measurement. It is the default when no metrics sink
// was injected.
type NopMetrics struct{}

var _ Metrics = NopMetrics{}

func (NopMetrics) RecordRequest(context.Context, Method, string) {}
func (NopMetrics) ObserveDuration(context.Context, float64) {}
func (NopMetrics) ObserveAmount(context.Context, decimal.Decimal) {}
func (NopMetrics) SettlementStarted(context.Context) {}
func (NopMetrics) SettlementFinished(context.Context) {}
func (NopMetrics) RecordFraudDetection(context.Context, string) {}
