package metrics

import (
	"context"
	"sync"
	"testing"

	"github.com/LerianStudio/payment-engine/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestFactory creates a MetricsFactory wired to an in-memory ManualReader so
// we can collect and inspect metric data without any exporter.
func newTestFactory(t *testing.T) (*MetricsFactory, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := mp.Meter("test-lib")

	factory, err := NewMetricsFactory(meter, &log.NoneLogger{})
	require.NoError(t, err)

	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	return factory, reader
}

// collectMetrics drains the ManualReader into a ResourceMetrics snapshot.
func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	err := reader.Collect(context.Background(), &rm)
	require.NoError(t, err)

	return rm
}

// findMetric searches a ResourceMetrics snapshot for a metric by name.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}

	return nil
}

// sumCounterValue extracts the total monotonic sum from a counter metric.
func sumCounterValue(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()

	data, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected Sum[int64] data type, got %T", m.Data)

	var total int64
	for _, dp := range data.DataPoints {
		total += dp.Value
	}

	return total
}

func TestNewMetricsFactory_NilMeter(t *testing.T) {
	factory, err := NewMetricsFactory(nil, &log.NoneLogger{})

	assert.Nil(t, factory)
	assert.ErrorIs(t, err, ErrNilMeter)
}

func TestNopFactoryRecordsWithoutError(t *testing.T) {
	factory := NewNopFactory()

	counter, err := factory.Counter(Metric{Name: "noop_counter"})
	require.NoError(t, err)
	assert.NoError(t, counter.AddOne(context.Background()))
}

func TestCounterRecordsValues(t *testing.T) {
	factory, reader := newTestFactory(t)

	counter, err := factory.Counter(Metric{
		Name:        "payment_requests_total",
		Unit:        "1",
		Description: "Total payment requests",
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, counter.AddOne(ctx))
	require.NoError(t, counter.Add(ctx, 4))

	rm := collectMetrics(t, reader)
	m := findMetric(rm, "payment_requests_total")
	require.NotNil(t, m)
	assert.Equal(t, int64(5), sumCounterValue(t, m))
	assert.Equal(t, "Total payment requests", m.Description)
}

func TestCounterWithLabelsSplitsDataPoints(t *testing.T) {
	factory, reader := newTestFactory(t)

	counter, err := factory.Counter(Metric{Name: "payment_requests_total"})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, counter.WithLabels(map[string]string{"method": "card", "status": "pending"}).AddOne(ctx))
	require.NoError(t, counter.WithLabels(map[string]string{"method": "ussd", "status": "pending"}).AddOne(ctx))
	require.NoError(t, counter.WithLabels(map[string]string{"method": "card", "status": "pending"}).AddOne(ctx))

	rm := collectMetrics(t, reader)
	m := findMetric(rm, "payment_requests_total")
	require.NotNil(t, m)

	data, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Len(t, data.DataPoints, 2)

	cardAttrs := attribute.NewSet(attribute.String("method", "card"), attribute.String("status", "pending"))
	for _, dp := range data.DataPoints {
		if dp.Attributes.Equals(&cardAttrs) {
			assert.Equal(t, int64(2), dp.Value)
		}
	}
}

func TestUpDownCounterTracksInFlightWork(t *testing.T) {
	factory, reader := newTestFactory(t)

	gauge, err := factory.UpDownCounter(Metric{
		Name:        "active_payments",
		Unit:        "1",
		Description: "Payments currently being processed",
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, gauge.Inc(ctx))
	require.NoError(t, gauge.Inc(ctx))
	require.NoError(t, gauge.Inc(ctx))
	require.NoError(t, gauge.Dec(ctx))

	rm := collectMetrics(t, reader)
	m := findMetric(rm, "active_payments")
	require.NotNil(t, m)

	data, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected Sum[int64] data type, got %T", m.Data)
	require.Len(t, data.DataPoints, 1)
	assert.Equal(t, int64(2), data.DataPoints[0].Value)
	assert.False(t, data.IsMonotonic)
}

func TestHistogramRecordsWithConfiguredBuckets(t *testing.T) {
	factory, reader := newTestFactory(t)

	histogram, err := factory.Histogram(Metric{
		Name:    "payment_amount_naira",
		Buckets: DefaultAmountBuckets,
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, histogram.Record(ctx, 250.0))
	require.NoError(t, histogram.Record(ctx, 75000.0))

	rm := collectMetrics(t, reader)
	m := findMetric(rm, "payment_amount_naira")
	require.NotNil(t, m)

	data, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok, "expected Histogram[float64] data type, got %T", m.Data)
	require.Len(t, data.DataPoints, 1)
	assert.Equal(t, uint64(2), data.DataPoints[0].Count)
	assert.Equal(t, DefaultAmountBuckets, data.DataPoints[0].Bounds)
}

func TestHistogramDefaultsBucketsFromName(t *testing.T) {
	tests := []struct {
		name    string
		metric  string
		buckets []float64
	}{
		{name: "amounts", metric: "payment_amount_naira", buckets: DefaultAmountBuckets},
		{name: "durations", metric: "payment_request_duration_seconds", buckets: DefaultLatencyBuckets},
		{name: "fallback", metric: "something_else", buckets: DefaultLatencyBuckets},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.buckets, selectDefaultBuckets(tt.metric))
		})
	}
}

func TestFactoryCachesInstrumentsByName(t *testing.T) {
	factory, reader := newTestFactory(t)

	first, err := factory.Counter(Metric{Name: "cached_counter"})
	require.NoError(t, err)

	second, err := factory.Counter(Metric{Name: "cached_counter"})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, first.AddOne(ctx))
	require.NoError(t, second.AddOne(ctx))

	rm := collectMetrics(t, reader)
	m := findMetric(rm, "cached_counter")
	require.NotNil(t, m)
	assert.Equal(t, int64(2), sumCounterValue(t, m))
}

func TestFactoryConcurrentAccess(t *testing.T) {
	factory, reader := newTestFactory(t)

	var wg sync.WaitGroup

	ctx := context.Background()

	for i := 0; i < 50; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			counter, err := factory.Counter(Metric{Name: "concurrent_counter"})
			if err != nil {
				return
			}

			_ = counter.AddOne(ctx)
		}()
	}

	wg.Wait()

	rm := collectMetrics(t, reader)
	m := findMetric(rm, "concurrent_counter")
	require.NotNil(t, m)
	assert.Equal(t, int64(50), sumCounterValue(t, m))
}

func TestHistogramCacheKeyDistinguishesBuckets(t *testing.T) {
	keyA := histogramCacheKey("metric", []float64{1, 2, 3})
	keyB := histogramCacheKey("metric", []float64{3, 2, 1})
	keyC := histogramCacheKey("metric", []float64{1, 2, 4})

	assert.Equal(t, keyA, keyB, "bucket order should not matter")
	assert.NotEqual(t, keyA, keyC)
	assert.Equal(t, "metric", histogramCacheKey("metric", nil))
}

func TestBuilderNilInstrumentErrors(t *testing.T) {
	ctx := context.Background()

	counter := &CounterBuilder{}
	assert.ErrorIs(t, counter.Add(ctx, 1), ErrNilCounter)

	upDown := &UpDownCounterBuilder{}
	assert.ErrorIs(t, upDown.Inc(ctx), ErrNilUpDownCounter)

	histogram := &HistogramBuilder{}
	assert.ErrorIs(t, histogram.Record(ctx, 1.5), ErrNilHistogram)
}
