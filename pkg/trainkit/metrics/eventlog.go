package metrics

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventLogPattern matches the files written by EventLogSink.
const EventLogPattern = "events.*.jsonl"

// maxEventSize bounds one event line when reading, to fit encoded media.
const maxEventSize = 64 << 20

// Event is one line of an event log.
type Event struct {
	WallTime time.Time          `json:"wall_time"`
	RunID    string             `json:"run_id"`
	Op       Operation          `json:"op"`
	Tag      string             `json:"tag"`
	Step     int                `json:"step"`
	Value    *float64           `json:"value,omitempty"`
	Values   map[string]float64 `json:"values,omitempty"`
	Text     string             `json:"text,omitempty"`
	Summary  *Summary           `json:"summary,omitempty"`

	// Payload is the JSON encoding of image, figure, audio, video, graph
	// and histogram data.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// EventLogSink appends one JSON line per call to a file in its output
// directory, in the manner of a TensorBoard event file.
type EventLogSink struct {
	mu     sync.Mutex
	file   *os.File
	w      *bufio.Writer
	path   string
	runID  string
	closed bool
}

// NewEventLogSink creates dir if missing and opens a new event file in it
// named events.<unix-nanos>.<run-id>.jsonl. An empty runID gets a random UUID.
func NewEventLogSink(dir, runID string) (*EventLogSink, error) {
	if dir == "" {
		dir = "."
	}
	if runID == "" {
		runID = uuid.NewString()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	name := fmt.Sprintf("events.%d.%s.jsonl", time.Now().UnixNano(), runID)
	path := filepath.Join(dir, name)
	//nolint:gosec // G304: path is built from the configured output directory
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create event file: %w", err)
	}
	return &EventLogSink{
		file:  f,
		w:     bufio.NewWriter(f),
		path:  path,
		runID: runID,
	}, nil
}

// Path returns the event file path.
func (s *EventLogSink) Path() string {
	return s.path
}

// RunID returns the run ID written with every event.
func (s *EventLogSink) RunID() string {
	return s.runID
}

// write appends ev as one line and flushes it.
func (s *EventLogSink) write(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}
	ev.WallTime = time.Now().UTC()
	ev.RunID = s.runID

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if _, err := s.w.Write(data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("flush event: %w", err)
	}
	return nil
}

func (s *EventLogSink) writePayload(op Operation, tag string, payload any, step int) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	return s.write(Event{Op: op, Tag: tag, Step: step, Payload: raw})
}

// AddScalar implements Sink.
func (s *EventLogSink) AddScalar(_ context.Context, tag string, value float64, step int) error {
	return s.write(Event{Op: OpAddScalar, Tag: tag, Step: step, Value: &value})
}

// AddScalars implements Sink.
func (s *EventLogSink) AddScalars(_ context.Context, tag string, values map[string]float64, step int) error {
	return s.write(Event{Op: OpAddScalars, Tag: tag, Step: step, Values: values})
}

// AddImage implements Sink.
func (s *EventLogSink) AddImage(_ context.Context, tag string, img Image, step int) error {
	return s.writePayload(OpAddImage, tag, img, step)
}

// AddFigure implements Sink.
func (s *EventLogSink) AddFigure(_ context.Context, tag string, fig Figure, step int) error {
	return s.writePayload(OpAddFigure, tag, fig, step)
}

// AddAudio implements Sink.
func (s *EventLogSink) AddAudio(_ context.Context, tag string, audio Audio, step int) error {
	return s.writePayload(OpAddAudio, tag, audio, step)
}

// AddVideo implements Sink.
func (s *EventLogSink) AddVideo(_ context.Context, tag string, video Video, step int) error {
	return s.writePayload(OpAddVideo, tag, video, step)
}

// AddText implements Sink.
func (s *EventLogSink) AddText(_ context.Context, tag string, text string, step int) error {
	return s.write(Event{Op: OpAddText, Tag: tag, Step: step, Text: text})
}

// AddHistogram implements Sink.
func (s *EventLogSink) AddHistogram(_ context.Context, tag string, values []float64, step int) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	summary := Summarize(values)
	return s.write(Event{Op: OpAddHistogram, Tag: tag, Step: step, Summary: &summary, Payload: raw})
}

// AddGraph implements Sink.
func (s *EventLogSink) AddGraph(_ context.Context, tag string, graph Graph, step int) error {
	return s.writePayload(OpAddGraph, tag, graph, step)
}

// Close flushes and closes the event file. Close is idempotent.
func (s *EventLogSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	flushErr := s.w.Flush()
	closeErr := s.file.Close()
	return errors.Join(flushErr, closeErr)
}

var _ Sink = (*EventLogSink)(nil)

// ReadEvents reads every event in the file at path.
func ReadEvents(path string) ([]Event, error) {
	//nolint:gosec // G304: reading a user-selected event file is the purpose
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open event file: %w", err)
	}
	defer f.Close()
	return DecodeEvents(f)
}

// DecodeEvents reads newline-delimited events from r. Blank lines are skipped.
func DecodeEvents(r io.Reader) ([]Event, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxEventSize)

	var events []Event
	line := 0
	for scanner.Scan() {
		line++
		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			return events, fmt.Errorf("line %d: %w", line, err)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("read events: %w", err)
	}
	return events, nil
}

// EventFiles returns the event log files in dir, oldest first.
func EventFiles(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, EventLogPattern))
	if err != nil {
		return nil, err
	}
	// Names start with a fixed-width unix-nano timestamp, so lexical order is
	// creation order.
	return matches, nil
}
