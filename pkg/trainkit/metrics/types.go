package metrics

import (
	"fmt"
	"slices"
)

// Type identifies the kind of value an Item carries.
type Type string

// Supported item types.
const (
	TypeScalar    Type = "scalar"
	TypeScalars   Type = "scalars"
	TypeImage     Type = "image"
	TypeFigure    Type = "figure"
	TypeAudio     Type = "audio"
	TypeVideo     Type = "video"
	TypeText      Type = "text"
	TypeHistogram Type = "histogram"
	TypeGraph     Type = "graph"
)

// Operation names the sink method an item is forwarded to.
type Operation string

// Sink operations, one per Type.
const (
	OpAddScalar    Operation = "add_scalar"
	OpAddScalars   Operation = "add_scalars"
	OpAddImage     Operation = "add_image"
	OpAddFigure    Operation = "add_figure"
	OpAddAudio     Operation = "add_audio"
	OpAddVideo     Operation = "add_video"
	OpAddText      Operation = "add_text"
	OpAddHistogram Operation = "add_histogram"
	OpAddGraph     Operation = "add_graph"
)

// Types returns every supported Type in declaration order.
func Types() []Type {
	return []Type{
		TypeScalar, TypeScalars, TypeImage, TypeFigure, TypeAudio,
		TypeVideo, TypeText, TypeHistogram, TypeGraph,
	}
}

// Operation returns the sink operation for t.
// The second result is false for types outside the supported set.
func (t Type) Operation() (Operation, bool) {
	switch t {
	case TypeScalar:
		return OpAddScalar, true
	case TypeScalars:
		return OpAddScalars, true
	case TypeImage:
		return OpAddImage, true
	case TypeFigure:
		return OpAddFigure, true
	case TypeAudio:
		return OpAddAudio, true
	case TypeVideo:
		return OpAddVideo, true
	case TypeText:
		return OpAddText, true
	case TypeHistogram:
		return OpAddHistogram, true
	case TypeGraph:
		return OpAddGraph, true
	default:
		return "", false
	}
}

// Valid reports whether t is a supported type.
func (t Type) Valid() bool {
	_, ok := t.Operation()
	return ok
}

// ParseType converts s to a Type.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownMetricType, s)
	}
	return t, nil
}

// Item is one value to record.
type Item struct {
	Type Type
	Data any

	// Step is the explicit step, or nil to let the Recorder infer it.
	Step *int
}

// At returns a copy of the item with an explicit step.
func (i Item) At(step int) Item {
	i.Step = &step
	return i
}

// Entry pairs a tag with an item, for callers that need a specific order.
type Entry struct {
	Tag  string
	Item Item
}

// Scalar builds a scalar item.
func Scalar(v float64) Item {
	return Item{Type: TypeScalar, Data: v}
}

// Scalars builds a grouped scalars item keyed by sub-tag.
func Scalars(values map[string]float64) Item {
	return Item{Type: TypeScalars, Data: values}
}

// Text builds a text item.
func Text(s string) Item {
	return Item{Type: TypeText, Data: s}
}

// Histogram builds a histogram item from raw values.
func Histogram(values []float64) Item {
	return Item{Type: TypeHistogram, Data: values}
}

// ImageItem builds an image item.
func ImageItem(img Image) Item {
	return Item{Type: TypeImage, Data: img}
}

// FigureItem builds a figure item.
func FigureItem(fig Figure) Item {
	return Item{Type: TypeFigure, Data: fig}
}

// AudioItem builds an audio item.
func AudioItem(a Audio) Item {
	return Item{Type: TypeAudio, Data: a}
}

// VideoItem builds a video item.
func VideoItem(v Video) Item {
	return Item{Type: TypeVideo, Data: v}
}

// GraphItem builds a graph item.
func GraphItem(g Graph) Item {
	return Item{Type: TypeGraph, Data: g}
}

// Image is an encoded image.
type Image struct {
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Data   []byte `json:"data"`
}

// Figure is a rendered plot, stored the same way as an Image.
type Figure = Image

// Audio is a mono clip of samples in [-1, 1].
type Audio struct {
	SampleRate int       `json:"sample_rate"`
	Samples    []float64 `json:"samples"`
}

// Video is a sequence of frames played at FPS.
type Video struct {
	FPS    float64 `json:"fps"`
	Frames []Image `json:"frames"`
}

// Graph is a serialized model graph, e.g. ONNX or DOT.
type Graph struct {
	Format string `json:"format"`
	Data   []byte `json:"data"`
}

// Split is a dataset partition used by the epoch helpers.
type Split string

// Dataset splits.
const (
	SplitTrain      Split = "train"
	SplitValidation Split = "validation"
	SplitTest       Split = "test"
)

// splitOrder is the order the epoch helpers record splits in.
var splitOrder = []Split{SplitTrain, SplitValidation, SplitTest}

// orderedSplits returns the splits present in values: known splits first in
// train, validation, test order, then any others sorted.
func orderedSplits(values map[Split]float64) []Split {
	out := make([]Split, 0, len(values))
	for _, s := range splitOrder {
		if _, ok := values[s]; ok {
			out = append(out, s)
		}
	}
	var extra []Split
	for s := range values {
		if !slices.Contains(splitOrder, s) {
			extra = append(extra, s)
		}
	}
	slices.Sort(extra)
	return append(out, extra...)
}
