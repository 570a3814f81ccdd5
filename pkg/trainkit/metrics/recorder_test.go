package metrics_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/trainkit/pkg/trainkit/metrics"
)

func newRecorder(t *testing.T) (*metrics.Recorder, *metrics.MemorySink) {
	t.Helper()
	sink := metrics.NewMemorySink()
	rec, err := metrics.NewRecorder(sink)
	require.NoError(t, err)
	return rec, sink
}

func steps(calls []metrics.Call) []int {
	out := make([]int, len(calls))
	for i, c := range calls {
		out[i] = c.Step
	}
	return out
}

func TestNewRecorder_NilSink(t *testing.T) {
	_, err := metrics.NewRecorder(nil)
	assert.Error(t, err)
}

func TestRecord_ImplicitScalarSteps(t *testing.T) {
	rec, sink := newRecorder(t)
	ctx := context.Background()

	for _, v := range []float64{0.9, 0.7, 0.5} {
		require.NoError(t, rec.RecordBatch(ctx, map[string]metrics.Item{"loss": metrics.Scalar(v)}))
	}

	calls := sink.CallsFor("loss")
	assert.Equal(t, []int{0, 1, 2}, steps(calls))
	assert.Equal(t, metrics.OpAddScalar, calls[0].Op)
	assert.Equal(t, 0.9, calls[0].Data)
	assert.Equal(t, 3, rec.TagCount("loss"))

	next, ok := rec.NextStep("loss")
	assert.True(t, ok)
	assert.Equal(t, 3, next)
}

func TestRecord_ExplicitStepMovesCounter(t *testing.T) {
	rec, sink := newRecorder(t)
	ctx := context.Background()

	require.NoError(t, rec.Record(ctx, "lr", metrics.Scalar(0.1).At(10)))
	require.NoError(t, rec.Record(ctx, "lr", metrics.Scalar(0.05)))
	require.NoError(t, rec.Record(ctx, "lr", metrics.Scalar(0.2).At(3)))
	require.NoError(t, rec.Record(ctx, "lr", metrics.Scalar(0.01)))

	assert.Equal(t, []int{10, 11, 3, 4}, steps(sink.CallsFor("lr")))
}

func TestRecord_GroupedStepMismatch(t *testing.T) {
	t.Run("subset known", func(t *testing.T) {
		rec, sink := newRecorder(t)
		ctx := context.Background()

		require.NoError(t, rec.Record(ctx, "acc", metrics.Scalars(map[string]float64{"train": 0.5})))

		err := rec.Record(ctx, "acc", metrics.Scalars(map[string]float64{"train": 0.6, "val": 0.55}))
		require.ErrorIs(t, err, metrics.ErrStepMismatch)

		var mismatch *metrics.StepMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, "acc", mismatch.Tag)
		assert.Equal(t, map[string]int{"train": 1}, mismatch.Steps)
		assert.Equal(t, []string{"val"}, mismatch.Unknown)

		// Nothing changed for the failed item.
		assert.Equal(t, 1, sink.Len())
		assert.Equal(t, 1, rec.TagCount("acc"))
		next, ok := rec.NextGroupStep("acc", "train")
		assert.True(t, ok)
		assert.Equal(t, 1, next)
		_, ok = rec.NextGroupStep("acc", "val")
		assert.False(t, ok)
	})

	t.Run("known steps disagree", func(t *testing.T) {
		rec, _ := newRecorder(t)
		ctx := context.Background()

		require.NoError(t, rec.Record(ctx, "acc", metrics.Scalars(map[string]float64{"train": 0.5, "val": 0.4})))
		require.NoError(t, rec.Record(ctx, "acc", metrics.Scalars(map[string]float64{"train": 0.6}).At(7)))

		err := rec.Record(ctx, "acc", metrics.Scalars(map[string]float64{"train": 0.7, "val": 0.6}))
		assert.ErrorIs(t, err, metrics.ErrStepMismatch)
	})

	t.Run("explicit step resolves mismatch", func(t *testing.T) {
		rec, sink := newRecorder(t)
		ctx := context.Background()

		require.NoError(t, rec.Record(ctx, "acc", metrics.Scalars(map[string]float64{"train": 0.5})))
		require.NoError(t, rec.Record(ctx, "acc", metrics.Scalars(map[string]float64{"train": 0.6, "val": 0.55}).At(4)))
		require.NoError(t, rec.Record(ctx, "acc", metrics.Scalars(map[string]float64{"train": 0.7, "val": 0.6})))

		assert.Equal(t, []int{0, 4, 5}, steps(sink.CallsFor("acc")))
	})
}

func TestRecord_GroupedExplicitThenImplicit(t *testing.T) {
	rec, sink := newRecorder(t)
	ctx := context.Background()

	require.NoError(t, rec.Record(ctx, "acc", metrics.Scalars(map[string]float64{"train": 0.8, "val": 0.7}).At(5)))
	require.NoError(t, rec.Record(ctx, "acc", metrics.Scalars(map[string]float64{"train": 0.85, "val": 0.75})))

	calls := sink.CallsFor("acc")
	require.Len(t, calls, 2)
	assert.Equal(t, 6, calls[1].Step)
	assert.Equal(t, metrics.OpAddScalars, calls[1].Op)
	assert.Equal(t, map[string]float64{"train": 0.85, "val": 0.75}, calls[1].Data)
}

func TestRecord_GroupedAndSingleNamespacesAreIndependent(t *testing.T) {
	rec, sink := newRecorder(t)
	ctx := context.Background()

	require.NoError(t, rec.Record(ctx, "metric", metrics.Scalar(1)))
	require.NoError(t, rec.Record(ctx, "metric", metrics.Scalar(2)))
	require.NoError(t, rec.Record(ctx, "metric", metrics.Scalars(map[string]float64{"a": 1})))

	assert.Equal(t, []int{0, 1, 0}, steps(sink.CallsFor("metric")))
}

func TestRecordBatch_SortedOrder(t *testing.T) {
	rec, sink := newRecorder(t)

	err := rec.RecordBatch(context.Background(), map[string]metrics.Item{
		"zeta":  metrics.Scalar(1),
		"alpha": metrics.Text("hello"),
		"mid":   metrics.Histogram([]float64{1, 2, 3}),
	})
	require.NoError(t, err)

	calls := sink.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, []string{calls[0].Tag, calls[1].Tag, calls[2].Tag})
	assert.Equal(t, []metrics.Operation{metrics.OpAddText, metrics.OpAddHistogram, metrics.OpAddScalar},
		[]metrics.Operation{calls[0].Op, calls[1].Op, calls[2].Op})
}

func TestRecordBatch_StopsAtFirstFailure(t *testing.T) {
	rec, sink := newRecorder(t)
	ctx := context.Background()

	err := rec.RecordBatch(ctx, map[string]metrics.Item{
		"a": metrics.Scalar(1),
		"b": {Type: "heatmap", Data: 1.0},
		"c": metrics.Scalar(3),
	})
	require.ErrorIs(t, err, metrics.ErrUnknownMetricType)

	var recErr *metrics.RecordError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, "b", recErr.Tag)
	assert.Equal(t, metrics.Type("heatmap"), recErr.Type)

	assert.Equal(t, 1, sink.Len())
	assert.Equal(t, map[string]int{"a": 1}, rec.TagCounts())
	_, ok := rec.NextStep("b")
	assert.False(t, ok)
	_, ok = rec.NextStep("c")
	assert.False(t, ok)
}

func TestRecord_InvalidPayloadLeavesNoState(t *testing.T) {
	rec, sink := newRecorder(t)
	ctx := context.Background()

	tests := []struct {
		name string
		item metrics.Item
	}{
		{"scalar as string", metrics.Item{Type: metrics.TypeScalar, Data: "0.5"}},
		{"scalars empty", metrics.Scalars(map[string]float64{})},
		{"scalars wrong type", metrics.Item{Type: metrics.TypeScalars, Data: []float64{1}}},
		{"text as number", metrics.Item{Type: metrics.TypeText, Data: 42}},
		{"histogram empty", metrics.Histogram(nil)},
		{"image without data", metrics.ImageItem(metrics.Image{Format: "png"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := rec.Record(ctx, "x", tt.item)
			assert.ErrorIs(t, err, metrics.ErrInvalidPayload)
		})
	}

	assert.Equal(t, 0, sink.Len())
	assert.Equal(t, 0, rec.TagCount("x"))
	_, ok := rec.NextStep("x")
	assert.False(t, ok)
}

func TestRecord_NegativeStep(t *testing.T) {
	rec, sink := newRecorder(t)

	err := rec.Record(context.Background(), "loss", metrics.Scalar(1).At(-1))
	assert.ErrorIs(t, err, metrics.ErrInvalidStep)
	assert.Equal(t, 0, sink.Len())
}

func TestRecord_SinkErrorConsumesStepButNotCounter(t *testing.T) {
	rec, sink := newRecorder(t)
	ctx := context.Background()

	sinkErr := errors.New("disk full")
	sink.FailWith(sinkErr)
	err := rec.Record(ctx, "loss", metrics.Scalar(1))
	require.ErrorIs(t, err, sinkErr)
	assert.Equal(t, 0, rec.TagCount("loss"))

	sink.FailWith(nil)
	require.NoError(t, rec.Record(ctx, "loss", metrics.Scalar(2)))

	assert.Equal(t, []int{1}, steps(sink.CallsFor("loss")))
	assert.Equal(t, 1, rec.TagCount("loss"))
}

func TestRecord_AllTypesDispatch(t *testing.T) {
	rec, sink := newRecorder(t)

	img := metrics.Image{Format: "png", Width: 1, Height: 1, Data: []byte{0x89}}
	items := []metrics.Entry{
		{Tag: "scalar", Item: metrics.Scalar(1)},
		{Tag: "scalars", Item: metrics.Scalars(map[string]float64{"a": 1})},
		{Tag: "image", Item: metrics.ImageItem(img)},
		{Tag: "figure", Item: metrics.FigureItem(img)},
		{Tag: "audio", Item: metrics.AudioItem(metrics.Audio{SampleRate: 16000, Samples: []float64{0, 0.5}})},
		{Tag: "video", Item: metrics.VideoItem(metrics.Video{FPS: 4, Frames: []metrics.Image{img}})},
		{Tag: "text", Item: metrics.Text("note")},
		{Tag: "histogram", Item: metrics.Item{Type: metrics.TypeHistogram, Data: []float32{1, 2}}},
		{Tag: "graph", Item: metrics.GraphItem(metrics.Graph{Format: "dot", Data: []byte("digraph{}")})},
	}
	require.NoError(t, rec.RecordEntries(context.Background(), items...))

	calls := sink.Calls()
	require.Len(t, calls, len(metrics.Types()))
	for i, typ := range metrics.Types() {
		op, ok := typ.Operation()
		require.True(t, ok)
		assert.Equal(t, op, calls[i].Op, "type %s", typ)
		assert.Equal(t, string(typ), calls[i].Tag)
	}
	assert.Equal(t, []float64{1, 2}, calls[7].Data, "float32 histograms are widened")
}

func TestRecordEpochHelpers(t *testing.T) {
	rec, sink := newRecorder(t)
	ctx := context.Background()

	require.NoError(t, rec.RecordEpochLoss(ctx, 3, map[metrics.Split]float64{
		metrics.SplitTest:       0.4,
		metrics.SplitTrain:      0.2,
		metrics.SplitValidation: 0.3,
	}))
	require.NoError(t, rec.RecordEpochAccuracy(ctx, 3, map[metrics.Split]float64{
		metrics.SplitTrain: 0.9,
	}))

	calls := sink.Calls()
	require.Len(t, calls, 4)
	assert.Equal(t, "Loss/train", calls[0].Tag)
	assert.Equal(t, "Loss/validation", calls[1].Tag)
	assert.Equal(t, "Loss/test", calls[2].Tag)
	assert.Equal(t, "Accuracy/train", calls[3].Tag)
	for _, c := range calls {
		assert.Equal(t, 3, c.Step)
	}
}

func TestTagCounts_ReturnsCopy(t *testing.T) {
	rec, _ := newRecorder(t)
	require.NoError(t, rec.Record(context.Background(), "loss", metrics.Scalar(1)))

	counts := rec.TagCounts()
	counts["loss"] = 100

	assert.Equal(t, 1, rec.TagCount("loss"))
}

func TestRecorder_Close(t *testing.T) {
	rec, sink := newRecorder(t)

	require.NoError(t, rec.Close())
	assert.True(t, sink.Closed())
	require.NoError(t, rec.Close(), "second close is a no-op")

	err := rec.Record(context.Background(), "loss", metrics.Scalar(1))
	assert.ErrorIs(t, err, metrics.ErrRecorderClosed)
}

func TestRecorder_Sink(t *testing.T) {
	rec, sink := newRecorder(t)
	assert.Same(t, sink, rec.Sink())
}

func TestRecorder_ConcurrentCallers(t *testing.T) {
	rec, sink := newRecorder(t)
	ctx := context.Background()

	const workers, perWorker = 8, 25
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				assert.NoError(t, rec.Record(ctx, "loss", metrics.Scalar(1)))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, workers*perWorker, rec.TagCount("loss"))
	got := steps(sink.CallsFor("loss"))
	for i, s := range got {
		assert.Equal(t, i, s)
	}
}

func TestOpenRecorder(t *testing.T) {
	dir := t.TempDir()
	rec, err := metrics.OpenRecorder(dir)
	require.NoError(t, err)

	require.NoError(t, rec.Record(context.Background(), "loss", metrics.Scalar(0.5)))
	require.NoError(t, rec.Close())

	files, err := metrics.EventFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)

	events, err := metrics.ReadEvents(files[0])
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "loss", events[0].Tag)
}
