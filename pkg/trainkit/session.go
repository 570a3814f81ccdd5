package trainkit

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/randalmurphal/trainkit/pkg/trainkit/checkpoint"
	"github.com/randalmurphal/trainkit/pkg/trainkit/config"
	"github.com/randalmurphal/trainkit/pkg/trainkit/metrics"
	"github.com/randalmurphal/trainkit/pkg/trainkit/observability"
)

// Session bundles a checkpoint store and a metrics recorder for one run.
type Session struct {
	// RunID identifies the run in every sink.
	RunID string

	Checkpoints *checkpoint.Store
	Metrics     *metrics.Recorder

	eventLog   *metrics.EventLogSink
	sqlite     *metrics.SQLiteSink
	prometheus *metrics.PrometheusSink
}

// Open validates settings and builds the session's store and recorder.
// The recorder forwards to every sink named in settings.Metrics.Sinks, in
// that order.
func Open(settings config.Settings, opts ...Option) (*Session, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	cfg := sessionConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.runID == "" {
		cfg.runID = uuid.NewString()
	}

	s := &Session{RunID: cfg.runID}

	store, err := checkpoint.New(settings.Checkpoint.Dir,
		checkpoint.WithInterval(settings.Checkpoint.Interval),
		checkpoint.WithDevice(settings.Checkpoint.Device),
		checkpoint.WithLogger(observability.EnrichLogger(cfg.logger, "checkpoint", cfg.runID)),
		checkpoint.WithInstruments(cfg.instruments),
		checkpoint.WithSpanManager(cfg.spans),
	)
	if err != nil {
		return nil, err
	}
	s.Checkpoints = store

	sinks, err := s.openSinks(settings, cfg)
	if err != nil {
		return nil, errors.Join(err, metrics.NewFanout(sinks...).Close())
	}

	recorder, err := metrics.NewRecorder(metrics.NewFanout(sinks...),
		metrics.WithLogger(observability.EnrichLogger(cfg.logger, "metrics", cfg.runID)),
		metrics.WithInstruments(cfg.instruments),
		metrics.WithSpanManager(cfg.spans),
	)
	if err != nil {
		return nil, errors.Join(err, metrics.NewFanout(sinks...).Close())
	}
	s.Metrics = recorder
	return s, nil
}

// openSinks creates the configured sinks. On error it returns the sinks
// opened so far so the caller can close them.
func (s *Session) openSinks(settings config.Settings, cfg sessionConfig) ([]metrics.Sink, error) {
	var sinks []metrics.Sink
	for _, name := range settings.Metrics.Sinks {
		switch name {
		case config.SinkEventLog:
			sink, err := metrics.NewEventLogSink(settings.Metrics.OutputDir, cfg.runID)
			if err != nil {
				return sinks, fmt.Errorf("open %s sink: %w", name, err)
			}
			s.eventLog = sink
			sinks = append(sinks, sink)
		case config.SinkSQLite:
			sink, err := metrics.NewSQLiteSink(settings.SQLitePath(), cfg.runID)
			if err != nil {
				return sinks, fmt.Errorf("open %s sink: %w", name, err)
			}
			s.sqlite = sink
			sinks = append(sinks, sink)
		case config.SinkPrometheus:
			s.prometheus = metrics.NewPrometheusSink(cfg.registry)
			sinks = append(sinks, s.prometheus)
		case config.SinkOTel:
			sink, err := metrics.NewOTelSink(cfg.meter)
			if err != nil {
				return sinks, fmt.Errorf("open %s sink: %w", name, err)
			}
			sinks = append(sinks, sink)
		default:
			return sinks, fmt.Errorf("%w: unknown sink %q", config.ErrInvalidSettings, name)
		}
	}
	return sinks, nil
}

// EventLog returns the event-log sink, or nil if not configured.
func (s *Session) EventLog() *metrics.EventLogSink {
	return s.eventLog
}

// SQLite returns the SQLite sink, or nil if not configured.
func (s *Session) SQLite() *metrics.SQLiteSink {
	return s.sqlite
}

// Prometheus returns the Prometheus sink, or nil if not configured.
// Serve its Handler to expose the latest values.
func (s *Session) Prometheus() *metrics.PrometheusSink {
	return s.prometheus
}

// Close closes the recorder and every sink.
func (s *Session) Close() error {
	if s.Metrics == nil {
		return nil
	}
	return s.Metrics.Close()
}
