package metrics

import "context"

// Sink receives forwarded items. Each method matches one Operation and is
// called with data already validated for its Type.
type Sink interface {
	AddScalar(ctx context.Context, tag string, value float64, step int) error
	AddScalars(ctx context.Context, tag string, values map[string]float64, step int) error
	AddImage(ctx context.Context, tag string, img Image, step int) error
	AddFigure(ctx context.Context, tag string, fig Figure, step int) error
	AddAudio(ctx context.Context, tag string, audio Audio, step int) error
	AddVideo(ctx context.Context, tag string, video Video, step int) error
	AddText(ctx context.Context, tag string, text string, step int) error
	AddHistogram(ctx context.Context, tag string, values []float64, step int) error
	AddGraph(ctx context.Context, tag string, graph Graph, step int) error
}

// dispatch calls the sink method for op. data must come from normalize.
func dispatch(ctx context.Context, sink Sink, op Operation, tag string, data any, step int) error {
	switch op {
	case OpAddScalar:
		return sink.AddScalar(ctx, tag, data.(float64), step)
	case OpAddScalars:
		return sink.AddScalars(ctx, tag, data.(map[string]float64), step)
	case OpAddImage:
		return sink.AddImage(ctx, tag, data.(Image), step)
	case OpAddFigure:
		return sink.AddFigure(ctx, tag, data.(Figure), step)
	case OpAddAudio:
		return sink.AddAudio(ctx, tag, data.(Audio), step)
	case OpAddVideo:
		return sink.AddVideo(ctx, tag, data.(Video), step)
	case OpAddText:
		return sink.AddText(ctx, tag, data.(string), step)
	case OpAddHistogram:
		return sink.AddHistogram(ctx, tag, data.([]float64), step)
	case OpAddGraph:
		return sink.AddGraph(ctx, tag, data.(Graph), step)
	default:
		return ErrUnknownMetricType
	}
}
