package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instruments records trainkit's own operational metrics.
// Use NewInstruments() for OTel metrics or NoopInstruments{} when disabled.
type Instruments interface {
	// RecordCheckpointSave records a checkpoint write with its size and outcome.
	RecordCheckpointSave(ctx context.Context, epoch int, sizeBytes int64, duration time.Duration, err error)

	// RecordCheckpointLoad records a checkpoint read.
	RecordCheckpointLoad(ctx context.Context, duration time.Duration, err error)

	// RecordForward records one metric item handed to a sink operation.
	RecordForward(ctx context.Context, op string, err error)
}

// otelInstruments implements Instruments using OpenTelemetry.
type otelInstruments struct {
	checkpointSaves   metric.Int64Counter
	checkpointSize    metric.Int64Histogram
	checkpointLatency metric.Float64Histogram
	checkpointLoads   metric.Int64Counter
	checkpointErrors  metric.Int64Counter
	forwards          metric.Int64Counter
	forwardErrors     metric.Int64Counter
}

var (
	defaultInstruments     *otelInstruments
	defaultInstrumentsOnce sync.Once
	defaultInstrumentsErr  error
)

// getDefaultInstruments lazily initializes the shared OTel instruments.
func getDefaultInstruments() (*otelInstruments, error) {
	defaultInstrumentsOnce.Do(func() {
		defaultInstruments, defaultInstrumentsErr = newOtelInstruments()
	})
	return defaultInstruments, defaultInstrumentsErr
}

// newOtelInstruments creates instruments on the global meter provider.
func newOtelInstruments() (*otelInstruments, error) {
	meter := otel.Meter("trainkit")

	checkpointSaves, err := meter.Int64Counter("trainkit.checkpoint.saves",
		metric.WithDescription("Number of checkpoint writes"),
	)
	if err != nil {
		return nil, err
	}

	checkpointSize, err := meter.Int64Histogram("trainkit.checkpoint.size_bytes",
		metric.WithDescription("Checkpoint file size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	checkpointLatency, err := meter.Float64Histogram("trainkit.checkpoint.latency_ms",
		metric.WithDescription("Checkpoint save and load latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	checkpointLoads, err := meter.Int64Counter("trainkit.checkpoint.loads",
		metric.WithDescription("Number of checkpoint reads"),
	)
	if err != nil {
		return nil, err
	}

	checkpointErrors, err := meter.Int64Counter("trainkit.checkpoint.errors",
		metric.WithDescription("Number of failed checkpoint operations"),
	)
	if err != nil {
		return nil, err
	}

	forwards, err := meter.Int64Counter("trainkit.metrics.forwards",
		metric.WithDescription("Number of metric items forwarded to a sink"),
	)
	if err != nil {
		return nil, err
	}

	forwardErrors, err := meter.Int64Counter("trainkit.metrics.forward_errors",
		metric.WithDescription("Number of metric items that failed to forward"),
	)
	if err != nil {
		return nil, err
	}

	return &otelInstruments{
		checkpointSaves:   checkpointSaves,
		checkpointSize:    checkpointSize,
		checkpointLatency: checkpointLatency,
		checkpointLoads:   checkpointLoads,
		checkpointErrors:  checkpointErrors,
		forwards:          forwards,
		forwardErrors:     forwardErrors,
	}, nil
}

// NewInstruments returns Instruments backed by OpenTelemetry.
// If initialization fails, returns a no-op implementation.
//
// The instruments use the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewInstruments() Instruments {
	m, err := getDefaultInstruments()
	if err != nil {
		slog.Warn("instrument initialization failed, using no-op instruments",
			slog.String("error", err.Error()))
		return NoopInstruments{}
	}
	return m
}

// RecordCheckpointSave records a checkpoint write.
func (m *otelInstruments) RecordCheckpointSave(ctx context.Context, epoch int, sizeBytes int64, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("op", "save"),
		attribute.Bool("success", err == nil),
	)
	m.checkpointLatency.Record(ctx, Milliseconds(duration), attrs)
	if err != nil {
		m.checkpointErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "save")))
		return
	}
	m.checkpointSaves.Add(ctx, 1, metric.WithAttributes(attribute.Int("epoch", epoch)))
	m.checkpointSize.Record(ctx, sizeBytes)
}

// RecordCheckpointLoad records a checkpoint read.
func (m *otelInstruments) RecordCheckpointLoad(ctx context.Context, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("op", "load"),
		attribute.Bool("success", err == nil),
	)
	m.checkpointLatency.Record(ctx, Milliseconds(duration), attrs)
	if err != nil {
		m.checkpointErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "load")))
		return
	}
	m.checkpointLoads.Add(ctx, 1)
}

// RecordForward records a sink forward.
func (m *otelInstruments) RecordForward(ctx context.Context, op string, err error) {
	attrs := metric.WithAttributes(attribute.String("op", op))
	m.forwards.Add(ctx, 1, attrs)
	if err != nil {
		m.forwardErrors.Add(ctx, 1, attrs)
	}
}
