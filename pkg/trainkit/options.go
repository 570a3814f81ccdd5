package trainkit

import (
	"log/slog"

	prom "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/metric"

	"github.com/randalmurphal/trainkit/pkg/trainkit/observability"
)

// sessionConfig holds configuration for Open.
type sessionConfig struct {
	runID       string
	logger      *slog.Logger
	instruments observability.Instruments
	spans       observability.SpanManager
	meter       metric.Meter
	registry    *prom.Registry
}

// Option configures Open.
type Option func(*sessionConfig)

// WithRunID sets the run ID written by the sinks.
// Default: a random UUID.
func WithRunID(id string) Option {
	return func(c *sessionConfig) {
		c.runID = id
	}
}

// WithLogger sets the base logger. Each component gets a child logger
// tagged with its name and the run ID.
// Default: nil (silent)
func WithLogger(logger *slog.Logger) Option {
	return func(c *sessionConfig) {
		c.logger = logger
	}
}

// WithTelemetry enables OpenTelemetry spans and instruments using the
// global providers.
func WithTelemetry() Option {
	return func(c *sessionConfig) {
		c.instruments = observability.NewInstruments()
		c.spans = observability.NewSpanManager()
	}
}

// WithInstruments sets the operational metrics recorder.
func WithInstruments(inst observability.Instruments) Option {
	return func(c *sessionConfig) {
		c.instruments = inst
	}
}

// WithSpanManager sets the span manager.
func WithSpanManager(spans observability.SpanManager) Option {
	return func(c *sessionConfig) {
		c.spans = spans
	}
}

// WithMeter sets the meter used by the otel sink.
// Default: the global meter provider.
func WithMeter(meter metric.Meter) Option {
	return func(c *sessionConfig) {
		c.meter = meter
	}
}

// WithRegistry sets the registry used by the prometheus sink.
// Default: a fresh registry.
func WithRegistry(reg *prom.Registry) Option {
	return func(c *sessionConfig) {
		c.registry = reg
	}
}
