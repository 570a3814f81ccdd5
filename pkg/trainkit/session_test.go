package trainkit_test

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/randalmurphal/trainkit/pkg/trainkit"
	"github.com/randalmurphal/trainkit/pkg/trainkit/checkpoint"
	"github.com/randalmurphal/trainkit/pkg/trainkit/config"
	"github.com/randalmurphal/trainkit/pkg/trainkit/metrics"
)

func testSettings(t *testing.T, sinks ...string) config.Settings {
	t.Helper()
	dir := t.TempDir()
	s := config.DefaultSettings()
	s.Checkpoint.Dir = filepath.Join(dir, "ckpt")
	s.Checkpoint.Interval = 2
	s.Metrics.OutputDir = filepath.Join(dir, "runs")
	s.Metrics.Sinks = sinks
	return s
}

type weights struct{ state []byte }

func (w *weights) StateDict() ([]byte, error)       { return w.state, nil }
func (w *weights) LoadStateDict(state []byte) error { w.state = state; return nil }

func TestOpen_AllSinks(t *testing.T) {
	settings := testSettings(t, config.SinkEventLog, config.SinkSQLite, config.SinkPrometheus, config.SinkOTel)
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	session, err := trainkit.Open(settings,
		trainkit.WithRunID("run-7"),
		trainkit.WithMeter(provider.Meter("test")),
		trainkit.WithRegistry(prom.NewRegistry()),
	)
	require.NoError(t, err)
	ctx := context.Background()

	assert.Equal(t, "run-7", session.RunID)
	require.NotNil(t, session.EventLog())
	require.NotNil(t, session.SQLite())
	require.NotNil(t, session.Prometheus())
	assert.Equal(t, "run-7", session.EventLog().RunID())
	assert.Equal(t, "run-7", session.SQLite().RunID())

	require.NoError(t, session.Metrics.RecordEpochLoss(ctx, 0, map[metrics.Split]float64{metrics.SplitTrain: 1.5}))

	points, err := session.SQLite().Scalars(ctx, "Loss/train")
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 1.5, points[0].Value)

	eventPath := session.EventLog().Path()
	require.NoError(t, session.Close())

	events, err := metrics.ReadEvents(eventPath)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "run-7", events[0].RunID)
}

func TestOpen_CheckpointsUseSettings(t *testing.T) {
	settings := testSettings(t)
	settings.Checkpoint.Device = "cuda:1"

	session, err := trainkit.Open(settings)
	require.NoError(t, err)
	defer session.Close()
	ctx := context.Background()

	model := &weights{state: []byte("w")}
	for epoch := range 5 {
		_, err := session.Checkpoints.SaveModelOnInterval(ctx, model, nil, epoch)
		require.NoError(t, err)
	}

	infos, err := session.Checkpoints.List()
	require.NoError(t, err)
	require.Len(t, infos, 3)

	latest, err := session.Checkpoints.LoadLatest(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 4, latest.Epoch)
	assert.Equal(t, "cuda:1", latest.Device)

	restored := &weights{}
	require.NoError(t, checkpoint.Restore(latest, restored, nil))
	assert.Equal(t, []byte("w"), restored.state)
}

func TestOpen_InvalidSettings(t *testing.T) {
	settings := testSettings(t, "tensorboard")
	_, err := trainkit.Open(settings)
	assert.ErrorIs(t, err, config.ErrInvalidSettings)

	settings = testSettings(t)
	settings.Checkpoint.Interval = 0
	_, err = trainkit.Open(settings)
	assert.ErrorIs(t, err, config.ErrInvalidSettings)
}

func TestOpen_SinkFailureClosesOpenedSinks(t *testing.T) {
	settings := testSettings(t, config.SinkEventLog, config.SinkSQLite)
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))
	settings.Metrics.SQLitePath = filepath.Join(blocker, "m.db")

	_, err := trainkit.Open(settings)
	assert.ErrorContains(t, err, "open sqlite sink")
}

func TestOpen_SQLiteOnlyCreatesOutputDir(t *testing.T) {
	settings := testSettings(t, config.SinkSQLite)
	ctx := context.Background()

	session, err := trainkit.Open(settings)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	assert.Nil(t, session.EventLog())
	require.NotNil(t, session.SQLite())
	assert.Equal(t, filepath.Join(settings.Metrics.OutputDir, "metrics.db"), settings.SQLitePath())

	require.NoError(t, session.Metrics.Record(ctx, "loss", metrics.Scalar(0.25)))
	points, err := session.SQLite().Scalars(ctx, "loss")
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.InDelta(t, 0.25, points[0].Value, 1e-12)

	_, err = os.Stat(settings.SQLitePath())
	assert.NoError(t, err)
}

func TestOpen_NoSinks(t *testing.T) {
	session, err := trainkit.Open(testSettings(t))
	require.NoError(t, err)

	assert.Nil(t, session.Prometheus())
	assert.Nil(t, session.SQLite())
	require.NoError(t, session.Metrics.Record(context.Background(), "loss", metrics.Scalar(1)))
	assert.Equal(t, 1, session.Metrics.TagCount("loss"))
	require.NoError(t, session.Close())
}

func TestOpen_LoggerIsEnriched(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	session, err := trainkit.Open(testSettings(t), trainkit.WithLogger(logger), trainkit.WithRunID("abc"))
	require.NoError(t, err)
	defer session.Close()

	require.NoError(t, session.Checkpoints.Save(context.Background(), checkpoint.Record{Architecture: "m", Epoch: 0}))
	assert.Contains(t, buf.String(), `"component":"checkpoint"`)
	assert.Contains(t, buf.String(), `"run_id":"abc"`)
}
