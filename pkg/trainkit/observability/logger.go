// Package observability provides the logging, metrics and tracing hooks used
// by trainkit's checkpoint store and metrics recorder.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Operational metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds a component name and run ID to a logger.
// Returns nil when logger is nil so callers can keep chaining nil-safe helpers.
//
// Example:
//
//	enriched := EnrichLogger(logger, "checkpoint", "3f0c...")
//	enriched.Info("saving") // includes component, run_id
func EnrichLogger(logger *slog.Logger, component, runID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	attrs := []any{slog.String("component", component)}
	if runID != "" {
		attrs = append(attrs, slog.String("run_id", runID))
	}
	return logger.With(attrs...)
}

// LogCheckpointSaved logs a completed checkpoint write.
func LogCheckpointSaved(logger *slog.Logger, path string, epoch int, sizeBytes int64, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("checkpoint saved",
		slog.String("path", path),
		slog.Int("epoch", epoch),
		slog.Int64("size_bytes", sizeBytes),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogCheckpointSkipped logs an interval save that was not due.
func LogCheckpointSkipped(logger *slog.Logger, epoch, interval int) {
	if logger == nil {
		return
	}
	logger.Debug("checkpoint not due",
		slog.Int("epoch", epoch),
		slog.Int("interval", interval),
	)
}

// LogCheckpointLoaded logs a checkpoint read.
func LogCheckpointLoaded(logger *slog.Logger, path string, epoch int, device string) {
	if logger == nil {
		return
	}
	logger.Info("checkpoint loaded",
		slog.String("path", path),
		slog.Int("epoch", epoch),
		slog.String("device", device),
	)
}

// LogCheckpointError logs a failed checkpoint operation.
func LogCheckpointError(logger *slog.Logger, op, path string, err error) {
	if logger == nil {
		return
	}
	logger.Error("checkpoint failed",
		slog.String("operation", op),
		slog.String("path", path),
		slog.String("error", err.Error()),
	)
}

// LogRecordForwarded logs one item handed to a sink.
func LogRecordForwarded(logger *slog.Logger, tag, op string, step int) {
	if logger == nil {
		return
	}
	logger.Debug("metric recorded",
		slog.String("tag", tag),
		slog.String("op", op),
		slog.Int("step", step),
	)
}

// LogRecordError logs an item that aborted a batch.
func LogRecordError(logger *slog.Logger, tag string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("metric batch aborted",
		slog.String("tag", tag),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	elapsed := done()
func TimedOperation() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}

// Milliseconds converts a duration into fractional milliseconds for log fields.
func Milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
