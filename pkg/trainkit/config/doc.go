/*
Package config loads trainkit settings from YAML or JSON files and the
environment.

# Typed Access

Config wraps a decoded map[string]any. Accessors take a default that is
returned when the key is missing or holds a value of the wrong kind, so
callers never need type assertions:

	cfg, err := config.FromFile("trainkit.yaml")
	if err != nil {
	    return err
	}
	ckpt := cfg.Section("checkpoint")
	interval := ckpt.Int("interval", 1)
	device := ckpt.String("device", "cpu")

# Settings

Settings is the typed view used by trainkit.Open:

	checkpoint:
	  dir: ./checkpoints
	  interval: 5
	  device: cuda:0
	metrics:
	  output_dir: ./runs
	  sinks: [eventlog, sqlite]
	  sqlite_path: ./runs/metrics.db

LoadSettings reads a file on top of DefaultSettings. ApplyEnv then
overrides individual fields from TRAINKIT_* variables, and Validate
rejects non-positive intervals and unknown sink names.

# Thread Safety

Config and Settings are values. Config never modifies the map it wraps.
*/
package config
