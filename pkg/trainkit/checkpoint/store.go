// Package checkpoint persists training state to a directory of files keyed
// by epoch number, and loads it back to resume training.
//
// Each save writes one file named checkpoint-<epoch>.ckpt holding the model
// architecture name, the epoch, and opaque model and optimizer state blobs.
// Saving the same epoch again overwrites the earlier file.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/randalmurphal/trainkit/pkg/trainkit/observability"
)

// Defaults used when no option overrides them.
const (
	DefaultInterval = 1
	DefaultDevice   = "cpu"
)

// Record is one checkpoint's logical content.
type Record struct {
	Architecture   string
	Epoch          int
	ModelState     []byte
	OptimizerState []byte
}

// Loaded is a record read back from disk.
type Loaded struct {
	Record

	// Device is the device hint the caller should restore the state onto.
	Device string
	// Path is the file the record was read from.
	Path string
	// CreatedAt is when the file was written.
	CreatedAt time.Time
}

// Info provides file metadata without loading the state blobs.
type Info struct {
	Epoch   int
	Path    string
	Size    int64
	ModTime time.Time
}

// Store reads and writes checkpoints under one directory.
// Store holds no mutable state; concurrent saves of the same epoch are
// last-writer-wins.
type Store struct {
	dir         string
	interval    int
	device      string
	logger      *slog.Logger
	instruments observability.Instruments
	spans       observability.SpanManager
}

// New creates a store rooted at dir. An empty dir means the working
// directory. New does not touch the filesystem.
//
// Example:
//
//	store, err := checkpoint.New("./checkpoints",
//	    checkpoint.WithInterval(5),
//	    checkpoint.WithDevice("cuda:0"))
func New(dir string, opts ...Option) (*Store, error) {
	s := &Store{
		dir:         dir,
		interval:    DefaultInterval,
		device:      DefaultDevice,
		instruments: observability.NoopInstruments{},
		spans:       observability.NoopSpanManager{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.interval <= 0 {
		return nil, &Error{Op: "new", Path: dir, Err: fmt.Errorf("%w: got %d", ErrInvalidInterval, s.interval)}
	}
	return s, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// Interval returns the configured save interval.
func (s *Store) Interval() int {
	return s.interval
}

// Device returns the default device hint for loads.
func (s *Store) Device() string {
	return s.device
}

// Path returns the file path used for epoch.
func (s *Store) Path(epoch int) string {
	return filepath.Join(s.dir, FileName(epoch))
}

// Save writes rec to the store, replacing any existing file for rec.Epoch.
// The directory is created if missing.
func (s *Store) Save(ctx context.Context, rec Record) error {
	path := s.Path(rec.Epoch)
	ctx, span := s.spans.StartSpan(ctx, observability.SpanCheckpointSave,
		observability.AttrEpoch.Int(rec.Epoch),
		observability.AttrPath.String(path),
	)
	done := observability.TimedOperation()

	size, err := s.write(path, rec)
	elapsed := done()

	s.instruments.RecordCheckpointSave(ctx, rec.Epoch, size, elapsed, err)
	s.spans.EndSpanWithError(span, err)
	if err != nil {
		observability.LogCheckpointError(s.logger, "save", path, err)
		return err
	}
	observability.LogCheckpointSaved(s.logger, path, rec.Epoch, size, observability.Milliseconds(elapsed))
	return nil
}

// SaveIfDue saves rec only when rec.Epoch is a multiple of interval and
// reports whether it did. A non-positive interval is rejected and nothing
// is written.
func (s *Store) SaveIfDue(ctx context.Context, rec Record, interval int) (bool, error) {
	if interval <= 0 {
		return false, &Error{Op: "save", Path: s.Path(rec.Epoch), Err: fmt.Errorf("%w: got %d", ErrInvalidInterval, interval)}
	}
	if rec.Epoch%interval != 0 {
		observability.LogCheckpointSkipped(s.logger, rec.Epoch, interval)
		return false, nil
	}
	if err := s.Save(ctx, rec); err != nil {
		return false, err
	}
	return true, nil
}

// SaveOnInterval is SaveIfDue with the store's configured interval.
func (s *Store) SaveOnInterval(ctx context.Context, rec Record) (bool, error) {
	return s.SaveIfDue(ctx, rec, s.interval)
}

// write encodes rec into a temp file next to path and renames it into place.
func (s *Store) write(path string, rec Record) (int64, error) {
	if rec.Epoch < 0 {
		return 0, &Error{Op: "save", Path: path, Err: fmt.Errorf("%w: got %d", ErrInvalidEpoch, rec.Epoch)}
	}

	dir := s.scanDir()
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return 0, &Error{Op: "save", Path: path, Err: fmt.Errorf("create directory: %w", err)}
	}

	tmp, err := os.CreateTemp(dir, ".checkpoint-*.tmp")
	if err != nil {
		return 0, &Error{Op: "save", Path: path, Err: fmt.Errorf("create temp file: %w", err)}
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) } // Best effort on failure paths

	size, err := encodeRecord(tmp, rec, time.Now())
	if err != nil {
		_ = tmp.Close()
		cleanup()
		return 0, &Error{Op: "save", Path: path, Err: fmt.Errorf("write: %w", err)}
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return 0, &Error{Op: "save", Path: path, Err: fmt.Errorf("close: %w", err)}
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return 0, &Error{Op: "save", Path: path, Err: fmt.Errorf("rename: %w", err)}
	}
	return size, nil
}

// Load reads the checkpoint at path. An empty device falls back to the
// store's device hint. Applying the state blobs to live objects is left to
// the caller (see Restore).
func (s *Store) Load(ctx context.Context, path, device string) (*Loaded, error) {
	if device == "" {
		device = s.device
	}
	ctx, span := s.spans.StartSpan(ctx, observability.SpanCheckpointLoad,
		observability.AttrPath.String(path),
		observability.AttrDevice.String(device),
	)
	done := observability.TimedOperation()

	loaded, err := s.read(path, device)

	s.instruments.RecordCheckpointLoad(ctx, done(), err)
	s.spans.EndSpanWithError(span, err)
	if err != nil {
		observability.LogCheckpointError(s.logger, "load", path, err)
		return nil, err
	}
	observability.LogCheckpointLoaded(s.logger, path, loaded.Epoch, device)
	return loaded, nil
}

// read opens and decodes one checkpoint file.
func (s *Store) read(path, device string) (*Loaded, error) {
	//nolint:gosec // G304: path comes from the caller, which is expected for resume
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &Error{Op: "load", Path: path, Err: ErrNotFound}
		}
		return nil, &Error{Op: "load", Path: path, Err: err}
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, &Error{Op: "load", Path: path, Err: err}
	}
	if stat.IsDir() {
		return nil, &Error{Op: "load", Path: path, Err: fmt.Errorf("%w: path is a directory", ErrNotFound)}
	}

	rec, createdAt, err := decodeRecord(f, stat.Size())
	if err != nil {
		return nil, &Error{Op: "load", Path: path, Err: err}
	}
	return &Loaded{
		Record:    rec,
		Device:    device,
		Path:      path,
		CreatedAt: createdAt,
	}, nil
}

// LoadLatest loads the checkpoint with the highest epoch in the store
// directory. Files that don't match the naming convention are ignored.
func (s *Store) LoadLatest(ctx context.Context, device string) (*Loaded, error) {
	infos, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return nil, &Error{Op: "load", Path: s.dir, Err: fmt.Errorf("%w: no checkpoint files in directory", ErrNotFound)}
	}
	return s.Load(ctx, infos[len(infos)-1].Path, device)
}

// List returns the checkpoint files in the store directory ordered by epoch.
// A missing directory is reported as ErrNotFound.
func (s *Store) List() ([]Info, error) {
	dir := s.scanDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &Error{Op: "list", Path: s.dir, Err: ErrNotFound}
		}
		return nil, &Error{Op: "list", Path: s.dir, Err: err}
	}

	infos := make([]Info, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		epoch, ok := ParseFileName(entry.Name())
		if !ok {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info
			continue
		}
		infos = append(infos, Info{
			Epoch:   epoch,
			Path:    filepath.Join(s.dir, entry.Name()),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Epoch < infos[j].Epoch
	})
	return infos, nil
}

// Delete removes the checkpoint for epoch.
// Returns nil if it doesn't exist.
func (s *Store) Delete(epoch int) error {
	path := s.Path(epoch)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &Error{Op: "delete", Path: path, Err: err}
	}
	return nil
}

// scanDir returns the directory to pass to filesystem calls.
func (s *Store) scanDir() string {
	if s.dir == "" {
		return "."
	}
	return s.dir
}
