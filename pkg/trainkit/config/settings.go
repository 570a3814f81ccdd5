package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// Sink names accepted in metrics.sinks.
const (
	SinkEventLog   = "eventlog"
	SinkSQLite     = "sqlite"
	SinkPrometheus = "prometheus"
	SinkOTel       = "otel"
)

// KnownSinks lists every accepted sink name.
var KnownSinks = []string{SinkEventLog, SinkSQLite, SinkPrometheus, SinkOTel}

// Environment variables read by ApplyEnv.
const (
	EnvCheckpointDir      = "TRAINKIT_CHECKPOINT_DIR"
	EnvCheckpointInterval = "TRAINKIT_CHECKPOINT_INTERVAL"
	EnvDevice             = "TRAINKIT_DEVICE"
	EnvMetricsDir         = "TRAINKIT_METRICS_DIR"
	EnvMetricsSinks       = "TRAINKIT_METRICS_SINKS"
	EnvSQLitePath         = "TRAINKIT_SQLITE_PATH"
)

// ErrInvalidSettings is returned by Validate and ApplyEnv.
var ErrInvalidSettings = errors.New("invalid settings")

// CheckpointSettings configures the checkpoint store.
type CheckpointSettings struct {
	Dir      string
	Interval int
	Device   string
}

// MetricsSettings configures the metrics recorder and its sinks.
type MetricsSettings struct {
	OutputDir  string
	Sinks      []string
	SQLitePath string
}

// Settings is the typed configuration of a training session.
type Settings struct {
	Checkpoint CheckpointSettings
	Metrics    MetricsSettings
}

// DefaultSettings returns settings that write checkpoints every epoch to
// ./checkpoints and metrics events to ./runs.
func DefaultSettings() Settings {
	return Settings{
		Checkpoint: CheckpointSettings{
			Dir:      "checkpoints",
			Interval: 1,
			Device:   "cpu",
		},
		Metrics: MetricsSettings{
			OutputDir: "runs",
			Sinks:     []string{SinkEventLog},
		},
	}
}

// SettingsFrom reads Settings from cfg, keeping defaults for missing keys.
func SettingsFrom(cfg Config) Settings {
	s := DefaultSettings()

	ckpt := cfg.Section("checkpoint")
	s.Checkpoint.Dir = ckpt.String("dir", s.Checkpoint.Dir)
	s.Checkpoint.Interval = ckpt.Int("interval", s.Checkpoint.Interval)
	s.Checkpoint.Device = ckpt.String("device", s.Checkpoint.Device)

	m := cfg.Section("metrics")
	s.Metrics.OutputDir = m.String("output_dir", s.Metrics.OutputDir)
	s.Metrics.Sinks = m.StringSlice("sinks", s.Metrics.Sinks)
	s.Metrics.SQLitePath = m.String("sqlite_path", s.Metrics.SQLitePath)
	return s
}

// LoadSettings reads Settings from a YAML or JSON file.
func LoadSettings(path string) (Settings, error) {
	cfg, err := FromFile(path)
	if err != nil {
		return Settings{}, err
	}
	return SettingsFrom(cfg), nil
}

// ApplyEnv overrides fields from environment variables found by lookup,
// typically os.LookupEnv. Empty values are ignored.
func (s *Settings) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvCheckpointDir); ok {
		s.Checkpoint.Dir = v
	}
	if v, ok := get(EnvCheckpointInterval); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidSettings, EnvCheckpointInterval, v)
		}
		s.Checkpoint.Interval = n
	}
	if v, ok := get(EnvDevice); ok {
		s.Checkpoint.Device = v
	}
	if v, ok := get(EnvMetricsDir); ok {
		s.Metrics.OutputDir = v
	}
	if v, ok := get(EnvMetricsSinks); ok {
		var sinks []string
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				sinks = append(sinks, name)
			}
		}
		s.Metrics.Sinks = sinks
	}
	if v, ok := get(EnvSQLitePath); ok {
		s.Metrics.SQLitePath = v
	}
	return nil
}

// Validate reports the first problem found in s.
func (s Settings) Validate() error {
	if s.Checkpoint.Interval <= 0 {
		return fmt.Errorf("%w: checkpoint interval must be positive, got %d", ErrInvalidSettings, s.Checkpoint.Interval)
	}
	seen := make(map[string]bool, len(s.Metrics.Sinks))
	for _, name := range s.Metrics.Sinks {
		if !slices.Contains(KnownSinks, name) {
			return fmt.Errorf("%w: unknown sink %q (want one of %s)", ErrInvalidSettings, name, strings.Join(KnownSinks, ", "))
		}
		if seen[name] {
			return fmt.Errorf("%w: sink %q listed twice", ErrInvalidSettings, name)
		}
		seen[name] = true
	}
	return nil
}

// SQLitePath returns the configured database path, defaulting to
// metrics.db inside the metrics output directory.
func (s Settings) SQLitePath() string {
	if s.Metrics.SQLitePath != "" {
		return s.Metrics.SQLitePath
	}
	return filepath.Join(s.Metrics.OutputDir, "metrics.db")
}
