package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span names.
const (
	SpanCheckpointSave = "trainkit.checkpoint.save"
	SpanCheckpointLoad = "trainkit.checkpoint.load"
	SpanRecordBatch    = "trainkit.metrics.record_batch"
)

// Span attribute keys.
const (
	AttrEpoch   = attribute.Key("trainkit.epoch")
	AttrPath    = attribute.Key("trainkit.path")
	AttrDevice  = attribute.Key("trainkit.device")
	AttrEntries = attribute.Key("trainkit.entries")
)

// tracer is resolved from the global provider on every use so providers
// installed after package init are honored.
func tracer() trace.Tracer {
	return otel.Tracer("trainkit")
}

// SpanManager starts and ends the spans around checkpoint I/O and metric
// batches. NewSpanManager traces through OpenTelemetry; NoopSpanManager{}
// discards everything.
type SpanManager interface {
	// StartSpan starts a span as a child of any span already in ctx.
	StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span)

	// EndSpanWithError sets the span status from err and ends it.
	EndSpanWithError(span trace.Span, err error)
}

type otelSpanManager struct{}

// NewSpanManager returns a SpanManager backed by the global tracer
// provider. Install the provider with otel.SetTracerProvider first.
func NewSpanManager() SpanManager {
	return otelSpanManager{}
}

func (otelSpanManager) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer().Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	defer span.End()
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
