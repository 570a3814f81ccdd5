package metrics

import (
	"context"
	"slices"
	"sync"
)

// Call is one sink invocation captured by MemorySink.
type Call struct {
	Op   Operation
	Tag  string
	Data any
	Step int
}

// MemorySink keeps every call in memory.
// It is intended for tests and short-lived tools.
type MemorySink struct {
	mu     sync.RWMutex
	calls  []Call
	err    error
	closed bool
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// FailWith makes every later call return err without being recorded.
// Pass nil to resume normal operation.
func (m *MemorySink) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns a copy of all recorded calls in order.
func (m *MemorySink) Calls() []Call {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.calls)
}

// CallsFor returns the recorded calls for one tag.
func (m *MemorySink) CallsFor(tag string) []Call {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Call
	for _, c := range m.calls {
		if c.Tag == tag {
			out = append(out, c)
		}
	}
	return out
}

// Len returns the number of recorded calls.
func (m *MemorySink) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.calls)
}

// Closed reports whether Close has been called.
func (m *MemorySink) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// Close marks the sink closed. Later calls return ErrSinkClosed.
func (m *MemorySink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MemorySink) add(op Operation, tag string, data any, step int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrSinkClosed
	}
	if m.err != nil {
		return m.err
	}
	m.calls = append(m.calls, Call{Op: op, Tag: tag, Data: data, Step: step})
	return nil
}

// AddScalar implements Sink.
func (m *MemorySink) AddScalar(_ context.Context, tag string, value float64, step int) error {
	return m.add(OpAddScalar, tag, value, step)
}

// AddScalars implements Sink.
func (m *MemorySink) AddScalars(_ context.Context, tag string, values map[string]float64, step int) error {
	return m.add(OpAddScalars, tag, values, step)
}

// AddImage implements Sink.
func (m *MemorySink) AddImage(_ context.Context, tag string, img Image, step int) error {
	return m.add(OpAddImage, tag, img, step)
}

// AddFigure implements Sink.
func (m *MemorySink) AddFigure(_ context.Context, tag string, fig Figure, step int) error {
	return m.add(OpAddFigure, tag, fig, step)
}

// AddAudio implements Sink.
func (m *MemorySink) AddAudio(_ context.Context, tag string, audio Audio, step int) error {
	return m.add(OpAddAudio, tag, audio, step)
}

// AddVideo implements Sink.
func (m *MemorySink) AddVideo(_ context.Context, tag string, video Video, step int) error {
	return m.add(OpAddVideo, tag, video, step)
}

// AddText implements Sink.
func (m *MemorySink) AddText(_ context.Context, tag string, text string, step int) error {
	return m.add(OpAddText, tag, text, step)
}

// AddHistogram implements Sink.
func (m *MemorySink) AddHistogram(_ context.Context, tag string, values []float64, step int) error {
	return m.add(OpAddHistogram, tag, values, step)
}

// AddGraph implements Sink.
func (m *MemorySink) AddGraph(_ context.Context, tag string, graph Graph, step int) error {
	return m.add(OpAddGraph, tag, graph, step)
}

// Compile-time interface check.
var _ Sink = (*MemorySink)(nil)
