package checkpoint

import (
	"log/slog"

	"github.com/randalmurphal/trainkit/pkg/trainkit/observability"
)

// Option configures a Store.
type Option func(*Store)

// WithInterval sets the epoch interval used by SaveOnInterval.
// Default: 1. New rejects non-positive values with ErrInvalidInterval.
func WithInterval(n int) Option {
	return func(s *Store) {
		s.interval = n
	}
}

// WithDevice sets the device hint returned with loaded checkpoints when the
// caller passes an empty device.
// Default: "cpu"
func WithDevice(device string) Option {
	return func(s *Store) {
		if device != "" {
			s.device = device
		}
	}
}

// WithLogger sets the logger for save and load events.
// Default: nil (silent)
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithInstruments sets the operational metrics recorder.
// Default: observability.NoopInstruments{}
func WithInstruments(inst observability.Instruments) Option {
	return func(s *Store) {
		if inst != nil {
			s.instruments = inst
		}
	}
}

// WithSpanManager sets the span manager for save and load spans.
// Default: observability.NoopSpanManager{}
func WithSpanManager(spans observability.SpanManager) Option {
	return func(s *Store) {
		if spans != nil {
			s.spans = spans
		}
	}
}
