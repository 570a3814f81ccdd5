package metrics

import (
	"log/slog"

	"github.com/randalmurphal/trainkit/pkg/trainkit/observability"
)

// Option configures a Recorder.
type Option func(*Recorder)

// WithLogger sets the logger for forwarded items and failures.
// Default: nil (silent)
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// WithInstruments sets the operational metrics recorder.
// Default: observability.NoopInstruments{}
func WithInstruments(inst observability.Instruments) Option {
	return func(r *Recorder) {
		if inst != nil {
			r.instruments = inst
		}
	}
}

// WithSpanManager sets the span manager for record calls.
// Default: observability.NoopSpanManager{}
func WithSpanManager(spans observability.SpanManager) Option {
	return func(r *Recorder) {
		if spans != nil {
			r.spans = spans
		}
	}
}
