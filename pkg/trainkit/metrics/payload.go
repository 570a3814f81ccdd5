package metrics

import (
	"maps"
	"math"
	"slices"
)

// normalize checks data against t and converts it to the concrete type the
// matching Sink method takes. Slices and maps are copied so later changes by
// the caller do not reach the sink.
func normalize(t Type, data any) (any, error) {
	switch t {
	case TypeScalar:
		return normalizeScalar(data)
	case TypeScalars:
		return normalizeScalars(data)
	case TypeImage, TypeFigure:
		return normalizeImage(t, data)
	case TypeAudio:
		return normalizeAudio(data)
	case TypeVideo:
		return normalizeVideo(data)
	case TypeText:
		s, ok := data.(string)
		if !ok {
			return nil, payloadError(t, "want string, got %T", data)
		}
		return s, nil
	case TypeHistogram:
		return normalizeHistogram(data)
	case TypeGraph:
		return normalizeGraph(data)
	default:
		return nil, ErrUnknownMetricType
	}
}

func normalizeScalar(data any) (float64, error) {
	var v float64
	switch x := data.(type) {
	case float64:
		v = x
	case float32:
		v = float64(x)
	case int:
		v = float64(x)
	case int32:
		v = float64(x)
	case int64:
		v = float64(x)
	default:
		return 0, payloadError(TypeScalar, "want number, got %T", data)
	}
	if !finite(v) {
		return 0, payloadError(TypeScalar, "value %v is not finite", v)
	}
	return v, nil
}

func normalizeScalars(data any) (map[string]float64, error) {
	values, ok := data.(map[string]float64)
	if !ok {
		return nil, payloadError(TypeScalars, "want map[string]float64, got %T", data)
	}
	if len(values) == 0 {
		return nil, payloadError(TypeScalars, "no sub-tags")
	}
	for sub, v := range values {
		if sub == "" {
			return nil, payloadError(TypeScalars, "empty sub-tag")
		}
		if !finite(v) {
			return nil, payloadError(TypeScalars, "sub-tag %q value %v is not finite", sub, v)
		}
	}
	return maps.Clone(values), nil
}

func normalizeImage(t Type, data any) (Image, error) {
	img, ok := data.(Image)
	if !ok {
		return Image{}, payloadError(t, "want metrics.Image, got %T", data)
	}
	if problem := imageProblem(img); problem != "" {
		return Image{}, payloadError(t, "%s", problem)
	}
	img.Data = slices.Clone(img.Data)
	return img, nil
}

// imageProblem describes what is wrong with img, or returns "".
func imageProblem(img Image) string {
	switch {
	case len(img.Data) == 0:
		return "empty data"
	case img.Width < 0 || img.Height < 0:
		return "negative dimensions"
	default:
		return ""
	}
}

func normalizeAudio(data any) (Audio, error) {
	a, ok := data.(Audio)
	if !ok {
		return Audio{}, payloadError(TypeAudio, "want metrics.Audio, got %T", data)
	}
	if a.SampleRate <= 0 {
		return Audio{}, payloadError(TypeAudio, "sample rate %d must be positive", a.SampleRate)
	}
	if len(a.Samples) == 0 {
		return Audio{}, payloadError(TypeAudio, "no samples")
	}
	for _, s := range a.Samples {
		if !finite(s) {
			return Audio{}, payloadError(TypeAudio, "sample %v is not finite", s)
		}
	}
	a.Samples = slices.Clone(a.Samples)
	return a, nil
}

func normalizeVideo(data any) (Video, error) {
	v, ok := data.(Video)
	if !ok {
		return Video{}, payloadError(TypeVideo, "want metrics.Video, got %T", data)
	}
	if v.FPS <= 0 || !finite(v.FPS) {
		return Video{}, payloadError(TypeVideo, "fps %v must be positive", v.FPS)
	}
	if len(v.Frames) == 0 {
		return Video{}, payloadError(TypeVideo, "no frames")
	}
	frames := make([]Image, len(v.Frames))
	for i, f := range v.Frames {
		if problem := imageProblem(f); problem != "" {
			return Video{}, payloadError(TypeVideo, "frame %d: %s", i, problem)
		}
		f.Data = slices.Clone(f.Data)
		frames[i] = f
	}
	v.Frames = frames
	return v, nil
}

func normalizeHistogram(data any) ([]float64, error) {
	var values []float64
	switch x := data.(type) {
	case []float64:
		values = slices.Clone(x)
	case []float32:
		values = make([]float64, len(x))
		for i, v := range x {
			values[i] = float64(v)
		}
	default:
		return nil, payloadError(TypeHistogram, "want []float64 or []float32, got %T", data)
	}
	if len(values) == 0 {
		return nil, payloadError(TypeHistogram, "no values")
	}
	for _, v := range values {
		if !finite(v) {
			return nil, payloadError(TypeHistogram, "value %v is not finite", v)
		}
	}
	return values, nil
}

func normalizeGraph(data any) (Graph, error) {
	g, ok := data.(Graph)
	if !ok {
		return Graph{}, payloadError(TypeGraph, "want metrics.Graph, got %T", data)
	}
	if len(g.Data) == 0 {
		return Graph{}, payloadError(TypeGraph, "empty data")
	}
	g.Data = slices.Clone(g.Data)
	return g, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
