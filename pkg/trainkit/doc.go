/*
Package trainkit provides checkpointing and metrics recording for Go
training loops.

# Overview

trainkit has two independent helpers:
  - checkpoint.Store saves and restores (architecture, model state,
    optimizer state, epoch) bundles in a directory of files named by epoch
  - metrics.Recorder forwards scalars, images, histograms and other items
    to a sink, inferring a step per tag

Session wires both from config.Settings, with one run ID shared by every
sink.

# Basic Usage

	settings, err := config.LoadSettings("trainkit.yaml")
	if err != nil {
	    log.Fatal(err)
	}
	if err := settings.ApplyEnv(os.LookupEnv); err != nil {
	    log.Fatal(err)
	}

	session, err := trainkit.Open(settings, trainkit.WithLogger(slog.Default()))
	if err != nil {
	    log.Fatal(err)
	}
	defer session.Close()

	for epoch := 0; epoch < epochs; epoch++ {
	    loss := train(model, optimizer)
	    _ = session.Metrics.RecordEpochLoss(ctx, epoch, map[metrics.Split]float64{
	        metrics.SplitTrain: loss,
	    })
	    _, _ = session.Checkpoints.SaveModelOnInterval(ctx, model, optimizer, epoch)
	}

# Resuming

	latest, err := session.Checkpoints.LoadLatest(ctx, "")
	switch {
	case errors.Is(err, checkpoint.ErrNotFound):
	    // fresh run
	case err != nil:
	    log.Fatal(err)
	default:
	    err = checkpoint.Restore(latest, model, optimizer)
	}

# Observability

WithTelemetry enables OpenTelemetry spans and instruments for checkpoint
saves, loads and forwarded items. Configure the global providers before
calling Open.

# Packages

  - checkpoint: file-backed checkpoint store
  - metrics: recorder, step inference and sinks
  - config: settings loading and environment overrides
  - observability: logging, metrics and tracing helpers
*/
package trainkit
