package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"sync"

	"github.com/randalmurphal/trainkit/pkg/trainkit/observability"
)

// Recorder forwards items to a Sink and infers steps per tag.
// It is safe for concurrent use; each call holds the recorder for its whole
// batch.
type Recorder struct {
	mu     sync.Mutex
	sink   Sink
	steps  *stepTable
	counts map[string]int
	closed bool

	logger      *slog.Logger
	instruments observability.Instruments
	spans       observability.SpanManager
}

// NewRecorder creates a recorder that forwards to sink.
func NewRecorder(sink Sink, opts ...Option) (*Recorder, error) {
	if sink == nil {
		return nil, errors.New("metrics: sink is required")
	}
	r := &Recorder{
		sink:        sink,
		steps:       newStepTable(),
		counts:      make(map[string]int),
		instruments: observability.NoopInstruments{},
		spans:       observability.NoopSpanManager{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// OpenRecorder creates a recorder backed by a new EventLogSink in outputDir.
// The directory is created if missing.
func OpenRecorder(outputDir string, opts ...Option) (*Recorder, error) {
	sink, err := NewEventLogSink(outputDir, "")
	if err != nil {
		return nil, err
	}
	r, err := NewRecorder(sink, opts...)
	if err != nil {
		_ = sink.Close()
		return nil, err
	}
	return r, nil
}

// Sink returns the underlying sink for operations the recorder does not wrap.
func (r *Recorder) Sink() Sink {
	return r.sink
}

// Record forwards one item.
func (r *Recorder) Record(ctx context.Context, tag string, item Item) error {
	return r.record(ctx, []Entry{{Tag: tag, Item: item}})
}

// RecordBatch forwards every item in ascending tag order. The first failure
// stops the batch and is returned as a *RecordError; entries before it stay
// forwarded.
//
// Example:
//
//	err := rec.RecordBatch(ctx, map[string]metrics.Item{
//	    "loss":     metrics.Scalar(0.42),
//	    "accuracy": metrics.Scalars(map[string]float64{"train": 0.9, "val": 0.85}),
//	})
func (r *Recorder) RecordBatch(ctx context.Context, items map[string]Item) error {
	entries := make([]Entry, 0, len(items))
	for _, tag := range sortedKeys(items) {
		entries = append(entries, Entry{Tag: tag, Item: items[tag]})
	}
	return r.record(ctx, entries)
}

// RecordEntries forwards entries in the given order with the same stop on
// first failure as RecordBatch.
func (r *Recorder) RecordEntries(ctx context.Context, entries ...Entry) error {
	return r.record(ctx, entries)
}

// RecordEpochLoss records one scalar per split under "Loss/<split>" with
// step = epoch.
func (r *Recorder) RecordEpochLoss(ctx context.Context, epoch int, values map[Split]float64) error {
	return r.recordEpoch(ctx, "Loss", epoch, values)
}

// RecordEpochAccuracy records one scalar per split under "Accuracy/<split>"
// with step = epoch.
func (r *Recorder) RecordEpochAccuracy(ctx context.Context, epoch int, values map[Split]float64) error {
	return r.recordEpoch(ctx, "Accuracy", epoch, values)
}

func (r *Recorder) recordEpoch(ctx context.Context, prefix string, epoch int, values map[Split]float64) error {
	entries := make([]Entry, 0, len(values))
	for _, split := range orderedSplits(values) {
		entries = append(entries, Entry{
			Tag:  prefix + "/" + string(split),
			Item: Scalar(values[split]).At(epoch),
		})
	}
	return r.record(ctx, entries)
}

func (r *Recorder) record(ctx context.Context, entries []Entry) (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRecorderClosed
	}

	ctx, span := r.spans.StartSpan(ctx, observability.SpanRecordBatch,
		observability.AttrEntries.Int(len(entries)),
	)
	defer func() { r.spans.EndSpanWithError(span, err) }()

	for _, e := range entries {
		if err := r.forward(ctx, e); err != nil {
			observability.LogRecordError(r.logger, e.Tag, err)
			return err
		}
	}
	return nil
}

// forward resolves, validates and dispatches one entry. Callers hold r.mu.
func (r *Recorder) forward(ctx context.Context, e Entry) error {
	item := e.Item
	fail := func(err error) error {
		return &RecordError{Tag: e.Tag, Type: item.Type, Err: err}
	}

	op, ok := item.Type.Operation()
	if !ok {
		return fail(fmt.Errorf("%w: %q", ErrUnknownMetricType, item.Type))
	}
	if item.Step != nil && *item.Step < 0 {
		return fail(fmt.Errorf("%w: %d is negative", ErrInvalidStep, *item.Step))
	}
	data, err := normalize(item.Type, item.Data)
	if err != nil {
		return fail(err)
	}

	var step int
	if item.Type == TypeScalars {
		step, err = r.steps.resolveGroup(e.Tag, sortedKeys(data.(map[string]float64)), item.Step)
		if err != nil {
			return fail(err)
		}
	} else {
		step = r.steps.resolve(e.Tag, item.Step)
	}

	err = dispatch(ctx, r.sink, op, e.Tag, data, step)
	r.instruments.RecordForward(ctx, string(op), err)
	if err != nil {
		return fail(err)
	}

	r.counts[e.Tag]++
	observability.LogRecordForwarded(r.logger, e.Tag, string(op), step)
	return nil
}

// TagCount returns how many items for tag reached the sink.
func (r *Recorder) TagCount(tag string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[tag]
}

// TagCounts returns a copy of all tag counters.
func (r *Recorder) TagCounts() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.counts)
}

// NextStep returns the step the next implicit single-valued item for tag
// will use. The second result is false if tag has not been recorded.
func (r *Recorder) NextStep(tag string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.steps.next(tag)
}

// NextGroupStep returns the next step of one sub-tag of a grouped tag.
func (r *Recorder) NextGroupStep(tag, subTag string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.steps.nextGroup(tag, subTag)
}

// Close closes the sink if it implements io.Closer. Later record calls
// return ErrRecorderClosed. Close is idempotent.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	if c, ok := r.sink.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
