package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopInstruments is an Instruments that does nothing.
// Use when metrics are disabled to avoid overhead.
type NoopInstruments struct{}

// Compile-time interface check.
var _ Instruments = NoopInstruments{}

// RecordCheckpointSave does nothing.
func (NoopInstruments) RecordCheckpointSave(_ context.Context, _ int, _ int64, _ time.Duration, _ error) {
}

// RecordCheckpointLoad does nothing.
func (NoopInstruments) RecordCheckpointLoad(_ context.Context, _ time.Duration, _ error) {}

// RecordForward does nothing.
func (NoopInstruments) RecordForward(_ context.Context, _ string, _ error) {}

// NoopSpanManager is a SpanManager that does nothing.
// Use when tracing is disabled to avoid overhead.
type NoopSpanManager struct{}

// Compile-time interface check.
var _ SpanManager = NoopSpanManager{}

// noopSpan is a span that does nothing.
var noopSpan = noop.Span{}

// StartSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartSpan(ctx context.Context, _ string, _ ...attribute.KeyValue) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// EndSpanWithError does nothing.
func (NoopSpanManager) EndSpanWithError(_ trace.Span, _ error) {}
