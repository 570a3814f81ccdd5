package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupMetricsTest installs a test meter provider and returns its reader.
func setupMetricsTest(t *testing.T) *sdkmetric.ManualReader {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	originalProvider := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)

	t.Cleanup(func() {
		otel.SetMeterProvider(originalProvider)
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down meter provider: %v", err)
		}
	})
	return reader
}

// collectMetrics collects all metrics from the reader.
func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) *metricdata.ResourceMetrics {
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return &rm
}

// findMetric finds a metric by name in the collected data.
func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumValue adds up every data point of an int64 sum.
func sumValue(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()
	require.NotNil(t, m)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "Expected Sum type")
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestNewInstruments(t *testing.T) {
	setupMetricsTest(t)

	inst := NewInstruments()
	require.NotNil(t, inst)

	_, isNoop := inst.(NoopInstruments)
	assert.False(t, isNoop, "Expected real instruments, got noop")
}

func TestRecordCheckpointSave(t *testing.T) {
	reader := setupMetricsTest(t)
	m, err := newOtelInstruments()
	require.NoError(t, err)
	ctx := context.Background()

	m.RecordCheckpointSave(ctx, 3, 2048, 12*time.Millisecond, nil)
	m.RecordCheckpointSave(ctx, 4, 0, time.Millisecond, errors.New("disk full"))

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(1), sumValue(t, findMetric(rm, "trainkit.checkpoint.saves")))
	assert.Equal(t, int64(1), sumValue(t, findMetric(rm, "trainkit.checkpoint.errors")))

	size := findMetric(rm, "trainkit.checkpoint.size_bytes")
	require.NotNil(t, size)
	hist, ok := size.Data.(metricdata.Histogram[int64])
	require.True(t, ok, "Expected Histogram type")
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, int64(2048), hist.DataPoints[0].Sum)

	assert.NotNil(t, findMetric(rm, "trainkit.checkpoint.latency_ms"))
}

func TestRecordCheckpointLoad(t *testing.T) {
	reader := setupMetricsTest(t)
	m, err := newOtelInstruments()
	require.NoError(t, err)

	m.RecordCheckpointLoad(context.Background(), 3*time.Millisecond, nil)

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(1), sumValue(t, findMetric(rm, "trainkit.checkpoint.loads")))
	assert.NotNil(t, findMetric(rm, "trainkit.checkpoint.latency_ms"))
}

func TestRecordForward(t *testing.T) {
	reader := setupMetricsTest(t)
	m, err := newOtelInstruments()
	require.NoError(t, err)
	ctx := context.Background()

	m.RecordForward(ctx, "add_scalar", nil)
	m.RecordForward(ctx, "add_scalar", nil)
	m.RecordForward(ctx, "add_scalars", errors.New("sink closed"))

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(3), sumValue(t, findMetric(rm, "trainkit.metrics.forwards")))
	assert.Equal(t, int64(1), sumValue(t, findMetric(rm, "trainkit.metrics.forward_errors")))
}

func TestNoopImplementations(t *testing.T) {
	var inst Instruments = NoopInstruments{}
	var spans SpanManager = NoopSpanManager{}

	assert.NotPanics(t, func() {
		inst.RecordCheckpointSave(context.Background(), 1, 10, time.Second, nil)
		inst.RecordCheckpointLoad(context.Background(), time.Second, errors.New("x"))
		inst.RecordForward(context.Background(), "add_text", nil)

		ctx := context.Background()
		got, span := spans.StartSpan(ctx, SpanRecordBatch)
		assert.Equal(t, ctx, got)
		spans.EndSpanWithError(span, errors.New("x"))
	})
}
