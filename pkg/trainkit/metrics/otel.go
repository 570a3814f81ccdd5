package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const otelScope = "github.com/randalmurphal/trainkit/metrics"

// OTelSink exports recorded values through OpenTelemetry instruments.
// Scalars become gauge readings labeled by tag and sub-tag, histogram items
// feed a histogram instrument, and other payloads are counted.
type OTelSink struct {
	value    metric.Float64Gauge
	step     metric.Int64Gauge
	dist     metric.Float64Histogram
	payloads metric.Int64Counter
}

// NewOTelSink creates the sink's instruments on meter. A nil meter uses the
// global meter provider.
func NewOTelSink(meter metric.Meter) (*OTelSink, error) {
	if meter == nil {
		meter = otel.Meter(otelScope)
	}

	value, err := meter.Float64Gauge("trainkit.metric.value",
		metric.WithDescription("Latest recorded scalar value"),
	)
	if err != nil {
		return nil, fmt.Errorf("create value gauge: %w", err)
	}

	step, err := meter.Int64Gauge("trainkit.metric.step",
		metric.WithDescription("Step of the latest recorded item"),
	)
	if err != nil {
		return nil, fmt.Errorf("create step gauge: %w", err)
	}

	dist, err := meter.Float64Histogram("trainkit.metric.distribution",
		metric.WithDescription("Values recorded as histogram items"),
	)
	if err != nil {
		return nil, fmt.Errorf("create distribution histogram: %w", err)
	}

	payloads, err := meter.Int64Counter("trainkit.metric.payloads",
		metric.WithDescription("Number of non-scalar items recorded"),
	)
	if err != nil {
		return nil, fmt.Errorf("create payload counter: %w", err)
	}

	return &OTelSink{value: value, step: step, dist: dist, payloads: payloads}, nil
}

func (s *OTelSink) recordStep(ctx context.Context, tag string, step int) {
	s.step.Record(ctx, int64(step), metric.WithAttributes(attribute.String("tag", tag)))
}

func (s *OTelSink) countPayload(ctx context.Context, op Operation, tag string, step int) error {
	s.payloads.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tag", tag),
		attribute.String("op", string(op)),
	))
	s.recordStep(ctx, tag, step)
	return nil
}

// AddScalar implements Sink.
func (s *OTelSink) AddScalar(ctx context.Context, tag string, v float64, step int) error {
	s.value.Record(ctx, v, metric.WithAttributes(
		attribute.String("tag", tag),
		attribute.String("sub_tag", ""),
	))
	s.recordStep(ctx, tag, step)
	return nil
}

// AddScalars implements Sink.
func (s *OTelSink) AddScalars(ctx context.Context, tag string, values map[string]float64, step int) error {
	for _, sub := range sortedKeys(values) {
		s.value.Record(ctx, values[sub], metric.WithAttributes(
			attribute.String("tag", tag),
			attribute.String("sub_tag", sub),
		))
	}
	s.recordStep(ctx, tag, step)
	return nil
}

// AddImage implements Sink.
func (s *OTelSink) AddImage(ctx context.Context, tag string, _ Image, step int) error {
	return s.countPayload(ctx, OpAddImage, tag, step)
}

// AddFigure implements Sink.
func (s *OTelSink) AddFigure(ctx context.Context, tag string, _ Figure, step int) error {
	return s.countPayload(ctx, OpAddFigure, tag, step)
}

// AddAudio implements Sink.
func (s *OTelSink) AddAudio(ctx context.Context, tag string, _ Audio, step int) error {
	return s.countPayload(ctx, OpAddAudio, tag, step)
}

// AddVideo implements Sink.
func (s *OTelSink) AddVideo(ctx context.Context, tag string, _ Video, step int) error {
	return s.countPayload(ctx, OpAddVideo, tag, step)
}

// AddText implements Sink.
func (s *OTelSink) AddText(ctx context.Context, tag string, _ string, step int) error {
	return s.countPayload(ctx, OpAddText, tag, step)
}

// AddHistogram implements Sink.
func (s *OTelSink) AddHistogram(ctx context.Context, tag string, values []float64, step int) error {
	attrs := metric.WithAttributes(attribute.String("tag", tag))
	for _, v := range values {
		s.dist.Record(ctx, v, attrs)
	}
	s.recordStep(ctx, tag, step)
	return nil
}

// AddGraph implements Sink.
func (s *OTelSink) AddGraph(ctx context.Context, tag string, _ Graph, step int) error {
	return s.countPayload(ctx, OpAddGraph, tag, step)
}

var _ Sink = (*OTelSink)(nil)
