package metrics

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/LerianStudio/payment-engine/pkg/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// MetricsFactory provides a thread-safe factory for creating and managing
// OpenTelemetry metrics with lazy initialization using sync.Map for
// high-performance concurrent access.
type MetricsFactory struct {
	meter          metric.Meter
	counters       sync.Map // string -> metric.Int64Counter
	upDownCounters sync.Map // string -> metric.Int64UpDownCounter
	histograms     sync.Map // string -> metric.Float64Histogram
	logger         log.Logger
}

// ErrNilMeter indicates that a nil OTEL meter was provided.
var ErrNilMeter = errors.New("metric meter cannot be nil")

// Metric represents a metric that can be collected by the server.
type Metric struct {
	Name        string
	Description string
	Unit        string
	// For histograms: bucket boundaries
	Buckets []float64
}

// Default histogram bucket configurations for different metric types.
var (
	// DefaultLatencyBuckets for latency measurements (in seconds)
	DefaultLatencyBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

	// DefaultAmountBuckets for monetary amounts
	DefaultAmountBuckets = []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000}
)

// NewMetricsFactory creates a new MetricsFactory instance.
func NewMetricsFactory(meter metric.Meter, logger log.Logger) (*MetricsFactory, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}

	return &MetricsFactory{
		meter:  meter,
		logger: logger,
	}, nil
}

// NewNopFactory returns a MetricsFactory backed by OpenTelemetry's no-op meter.
// It is safe for use as a fallback when a real meter is unavailable.
func NewNopFactory() *MetricsFactory {
	return &MetricsFactory{
		meter:  noop.NewMeterProvider().Meter("nop"),
		logger: &log.NoneLogger{},
	}
}

// Counter creates or retrieves a counter metric and returns a builder for fluent API usage
func (f *MetricsFactory) Counter(m Metric) (*CounterBuilder, error) {
	counter, err := f.getOrCreateCounter(m)
	if err != nil {
		return nil, err
	}

	return &CounterBuilder{
		factory: f,
		counter: counter,
		name:    m.Name,
	}, nil
}

// UpDownCounter creates or retrieves an up-down counter metric and returns a
// builder for fluent API usage
func (f *MetricsFactory) UpDownCounter(m Metric) (*UpDownCounterBuilder, error) {
	counter, err := f.getOrCreateUpDownCounter(m)
	if err != nil {
		return nil, err
	}

	return &UpDownCounterBuilder{
		factory: f,
		counter: counter,
		name:    m.Name,
	}, nil
}

// Histogram creates or retrieves a histogram metric and returns a builder for fluent API usage
func (f *MetricsFactory) Histogram(m Metric) (*HistogramBuilder, error) {
	// Set default buckets if not provided
	if m.Buckets == nil {
		m.Buckets = selectDefaultBuckets(m.Name)
	}

	histogram, err := f.getOrCreateHistogram(m)
	if err != nil {
		return nil, err
	}

	return &HistogramBuilder{
		factory:   f,
		histogram: histogram,
		name:      m.Name,
	}, nil
}

// selectDefaultBuckets chooses default buckets based on metric name.
// Checks substrings in a deterministic order, domain-specific patterns first.
func selectDefaultBuckets(name string) []float64 {
	nameL := strings.ToLower(name)

	patterns := []struct {
		substr  string
		buckets []float64
	}{
		{"amount", DefaultAmountBuckets},
		{"latency", DefaultLatencyBuckets},
		{"duration", DefaultLatencyBuckets},
		{"time", DefaultLatencyBuckets},
	}

	for _, p := range patterns {
		if strings.Contains(nameL, p.substr) {
			return p.buckets
		}
	}

	return DefaultLatencyBuckets
}

// getOrCreateCounter lazily creates or retrieves an existing counter
func (f *MetricsFactory) getOrCreateCounter(m Metric) (metric.Int64Counter, error) {
	if counter, exists := f.counters.Load(m.Name); exists {
		if c, ok := counter.(metric.Int64Counter); ok {
			return c, nil
		}

		return nil, fmt.Errorf("counter cache contains invalid type for %q", m.Name)
	}

	counterOpts := f.addCounterOptions(m)

	counter, err := f.meter.Int64Counter(m.Name, counterOpts...)
	if err != nil {
		if f.logger != nil {
			f.logger.Errorf("failed to create counter metric %q: %v", m.Name, err)
		}

		return nil, fmt.Errorf("create counter %q: %w", m.Name, err)
	}

	// Store in sync.Map for future use
	if actual, loaded := f.counters.LoadOrStore(m.Name, counter); loaded {
		// Another goroutine created it first, use that one
		if c, ok := actual.(metric.Int64Counter); ok {
			return c, nil
		}

		return nil, fmt.Errorf("counter cache contains invalid type for %q", m.Name)
	}

	return counter, nil
}

// getOrCreateUpDownCounter lazily creates or retrieves an existing up-down counter
func (f *MetricsFactory) getOrCreateUpDownCounter(m Metric) (metric.Int64UpDownCounter, error) {
	if counter, exists := f.upDownCounters.Load(m.Name); exists {
		if c, ok := counter.(metric.Int64UpDownCounter); ok {
			return c, nil
		}

		return nil, fmt.Errorf("up-down counter cache contains invalid type for %q", m.Name)
	}

	counterOpts := f.addUpDownCounterOptions(m)

	counter, err := f.meter.Int64UpDownCounter(m.Name, counterOpts...)
	if err != nil {
		if f.logger != nil {
			f.logger.Errorf("failed to create up-down counter metric %q: %v", m.Name, err)
		}

		return nil, fmt.Errorf("create up-down counter %q: %w", m.Name, err)
	}

	if actual, loaded := f.upDownCounters.LoadOrStore(m.Name, counter); loaded {
		if c, ok := actual.(metric.Int64UpDownCounter); ok {
			return c, nil
		}

		return nil, fmt.Errorf("up-down counter cache contains invalid type for %q", m.Name)
	}

	return counter, nil
}

// getOrCreateHistogram lazily creates or retrieves an existing histogram.
// Uses a composite key (name + buckets hash) to ensure different bucket configs
// result in different histograms.
func (f *MetricsFactory) getOrCreateHistogram(m Metric) (metric.Float64Histogram, error) {
	cacheKey := histogramCacheKey(m.Name, m.Buckets)

	if histogram, exists := f.histograms.Load(cacheKey); exists {
		if h, ok := histogram.(metric.Float64Histogram); ok {
			return h, nil
		}

		return nil, fmt.Errorf("histogram cache contains invalid type for %q", cacheKey)
	}

	histogramOpts := f.addHistogramOptions(m)

	histogram, err := f.meter.Float64Histogram(m.Name, histogramOpts...)
	if err != nil {
		if f.logger != nil {
			f.logger.Errorf("failed to create histogram metric %q: %v", m.Name, err)
		}

		return nil, fmt.Errorf("create histogram %q: %w", m.Name, err)
	}

	if actual, loaded := f.histograms.LoadOrStore(cacheKey, histogram); loaded {
		if h, ok := actual.(metric.Float64Histogram); ok {
			return h, nil
		}

		return nil, fmt.Errorf("histogram cache contains invalid type for %q", cacheKey)
	}

	return histogram, nil
}

// histogramCacheKey generates a unique cache key based on name and bucket configuration.
func histogramCacheKey(name string, buckets []float64) string {
	if len(buckets) == 0 {
		return name
	}

	sortedBuckets := make([]float64, len(buckets))
	copy(sortedBuckets, buckets)
	sort.Float64s(sortedBuckets)

	bucketStrings := make([]string, len(sortedBuckets))
	for i, b := range sortedBuckets {
		bucketStrings[i] = strconv.FormatFloat(b, 'g', -1, 64)
	}

	return fmt.Sprintf("%s:%s", name, strings.Join(bucketStrings, ","))
}

func (f *MetricsFactory) addCounterOptions(m Metric) []metric.Int64CounterOption {
	var opts []metric.Int64CounterOption
	if m.Description != "" {
		opts = append(opts, metric.WithDescription(m.Description))
	}

	if m.Unit != "" {
		opts = append(opts, metric.WithUnit(m.Unit))
	}

	return opts
}

func (f *MetricsFactory) addUpDownCounterOptions(m Metric) []metric.Int64UpDownCounterOption {
	var opts []metric.Int64UpDownCounterOption
	if m.Description != "" {
		opts = append(opts, metric.WithDescription(m.Description))
	}

	if m.Unit != "" {
		opts = append(opts, metric.WithUnit(m.Unit))
	}

	return opts
}

func (f *MetricsFactory) addHistogramOptions(m Metric) []metric.Float64HistogramOption {
	var opts []metric.Float64HistogramOption
	if m.Description != "" {
		opts = append(opts, metric.WithDescription(m.Description))
	}

	if m.Unit != "" {
		opts = append(opts, metric.WithUnit(m.Unit))
	}

	if m.Buckets != nil {
		opts = append(opts, metric.WithExplicitBucketBoundaries(m.Buckets...))
	}

	return opts
}
