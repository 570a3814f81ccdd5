package metrics

import (
	"context"
	"errors"
	"io"
)

// Fanout forwards every call to several sinks in order.
// The first sink error stops the call; sinks after it are not invoked.
type Fanout struct {
	sinks []Sink
}

// NewFanout combines sinks. Nil sinks are skipped.
func NewFanout(sinks ...Sink) *Fanout {
	f := &Fanout{}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

// Sinks returns the combined sinks.
func (f *Fanout) Sinks() []Sink {
	return append([]Sink(nil), f.sinks...)
}

func (f *Fanout) each(call func(Sink) error) error {
	for _, s := range f.sinks {
		if err := call(s); err != nil {
			return err
		}
	}
	return nil
}

// AddScalar implements Sink.
func (f *Fanout) AddScalar(ctx context.Context, tag string, value float64, step int) error {
	return f.each(func(s Sink) error { return s.AddScalar(ctx, tag, value, step) })
}

// AddScalars implements Sink.
func (f *Fanout) AddScalars(ctx context.Context, tag string, values map[string]float64, step int) error {
	return f.each(func(s Sink) error { return s.AddScalars(ctx, tag, values, step) })
}

// AddImage implements Sink.
func (f *Fanout) AddImage(ctx context.Context, tag string, img Image, step int) error {
	return f.each(func(s Sink) error { return s.AddImage(ctx, tag, img, step) })
}

// AddFigure implements Sink.
func (f *Fanout) AddFigure(ctx context.Context, tag string, fig Figure, step int) error {
	return f.each(func(s Sink) error { return s.AddFigure(ctx, tag, fig, step) })
}

// AddAudio implements Sink.
func (f *Fanout) AddAudio(ctx context.Context, tag string, audio Audio, step int) error {
	return f.each(func(s Sink) error { return s.AddAudio(ctx, tag, audio, step) })
}

// AddVideo implements Sink.
func (f *Fanout) AddVideo(ctx context.Context, tag string, video Video, step int) error {
	return f.each(func(s Sink) error { return s.AddVideo(ctx, tag, video, step) })
}

// AddText implements Sink.
func (f *Fanout) AddText(ctx context.Context, tag string, text string, step int) error {
	return f.each(func(s Sink) error { return s.AddText(ctx, tag, text, step) })
}

// AddHistogram implements Sink.
func (f *Fanout) AddHistogram(ctx context.Context, tag string, values []float64, step int) error {
	return f.each(func(s Sink) error { return s.AddHistogram(ctx, tag, values, step) })
}

// AddGraph implements Sink.
func (f *Fanout) AddGraph(ctx context.Context, tag string, graph Graph, step int) error {
	return f.each(func(s Sink) error { return s.AddGraph(ctx, tag, graph, step) })
}

// Close closes every sink that implements io.Closer and joins their errors.
func (f *Fanout) Close() error {
	var errs []error
	for _, s := range f.sinks {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

var _ Sink = (*Fanout)(nil)
