package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// ScalarPoint is one scalar value read back from a SQLiteSink.
// SubTag is empty for single scalars.
type ScalarPoint struct {
	RunID    string
	SubTag   string
	Step     int
	Value    float64
	WallTime time.Time
}

// SQLiteSink stores every call as rows of an events table, so runs can be
// queried after training. Grouped scalars produce one row per sub-tag.
type SQLiteSink struct {
	db     *sql.DB
	runID  string
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteSink opens or creates the database at path.
// The path should be a file path (e.g., "./runs/metrics.db") or ":memory:"
// for testing. The parent directory of a file path is created if missing.
// An empty runID gets a random UUID.
func NewSQLiteSink(path, runID string) (*SQLiteSink, error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			op TEXT NOT NULL,
			tag TEXT NOT NULL,
			sub_tag TEXT NOT NULL DEFAULT '',
			step INTEGER NOT NULL,
			value REAL,
			payload BLOB,
			wall_time TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_events_tag
		ON events(tag, sub_tag, step)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteSink{db: db, runID: runID}, nil
}

// RunID returns the run ID stored with every row.
func (s *SQLiteSink) RunID() string {
	return s.runID
}

type eventRow struct {
	subTag  string
	value   sql.NullFloat64
	payload []byte
}

// insert writes rows for one call in a single transaction.
func (s *SQLiteSink) insert(ctx context.Context, op Operation, tag string, step int, rows ...eventRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // No-op after commit

	wallTime := time.Now().UTC().Format(time.RFC3339Nano)
	for _, row := range rows {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO events (run_id, op, tag, sub_tag, step, value, payload, wall_time)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, s.runID, string(op), tag, row.subTag, step, row.value, row.payload, wallTime); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLiteSink) insertPayload(ctx context.Context, op Operation, tag string, payload any, step int) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	return s.insert(ctx, op, tag, step, eventRow{payload: raw})
}

func value(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}

// AddScalar implements Sink.
func (s *SQLiteSink) AddScalar(ctx context.Context, tag string, v float64, step int) error {
	return s.insert(ctx, OpAddScalar, tag, step, eventRow{value: value(v)})
}

// AddScalars implements Sink.
func (s *SQLiteSink) AddScalars(ctx context.Context, tag string, values map[string]float64, step int) error {
	rows := make([]eventRow, 0, len(values))
	for _, sub := range sortedKeys(values) {
		rows = append(rows, eventRow{subTag: sub, value: value(values[sub])})
	}
	return s.insert(ctx, OpAddScalars, tag, step, rows...)
}

// AddImage implements Sink.
func (s *SQLiteSink) AddImage(ctx context.Context, tag string, img Image, step int) error {
	return s.insertPayload(ctx, OpAddImage, tag, img, step)
}

// AddFigure implements Sink.
func (s *SQLiteSink) AddFigure(ctx context.Context, tag string, fig Figure, step int) error {
	return s.insertPayload(ctx, OpAddFigure, tag, fig, step)
}

// AddAudio implements Sink.
func (s *SQLiteSink) AddAudio(ctx context.Context, tag string, audio Audio, step int) error {
	return s.insertPayload(ctx, OpAddAudio, tag, audio, step)
}

// AddVideo implements Sink.
func (s *SQLiteSink) AddVideo(ctx context.Context, tag string, video Video, step int) error {
	return s.insertPayload(ctx, OpAddVideo, tag, video, step)
}

// AddText implements Sink.
func (s *SQLiteSink) AddText(ctx context.Context, tag string, text string, step int) error {
	return s.insert(ctx, OpAddText, tag, step, eventRow{payload: []byte(text)})
}

// AddHistogram implements Sink. The value column holds the mean and the
// payload holds the summary and raw values.
func (s *SQLiteSink) AddHistogram(ctx context.Context, tag string, values []float64, step int) error {
	summary := Summarize(values)
	raw, err := json.Marshal(struct {
		Summary Summary   `json:"summary"`
		Values  []float64 `json:"values"`
	}{summary, values})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	return s.insert(ctx, OpAddHistogram, tag, step, eventRow{value: value(summary.Mean), payload: raw})
}

// AddGraph implements Sink.
func (s *SQLiteSink) AddGraph(ctx context.Context, tag string, graph Graph, step int) error {
	return s.insertPayload(ctx, OpAddGraph, tag, graph, step)
}

// Scalars returns the scalar and grouped scalar values recorded for tag,
// ordered by sub-tag, then step, then insertion.
func (s *SQLiteSink) Scalars(ctx context.Context, tag string) ([]ScalarPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrSinkClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, sub_tag, step, value, wall_time FROM events
		WHERE tag = ? AND op IN (?, ?)
		ORDER BY sub_tag, step, id
	`, tag, string(OpAddScalar), string(OpAddScalars))
	if err != nil {
		return nil, fmt.Errorf("query scalars: %w", err)
	}
	defer rows.Close()

	var points []ScalarPoint
	for rows.Next() {
		var (
			p        ScalarPoint
			wallTime string
		)
		if err := rows.Scan(&p.RunID, &p.SubTag, &p.Step, &p.Value, &wallTime); err != nil {
			return nil, fmt.Errorf("scan scalar: %w", err)
		}
		p.WallTime, _ = time.Parse(time.RFC3339Nano, wallTime)
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scalars: %w", err)
	}
	return points, nil
}

// Tags returns every distinct tag in the database in ascending order.
func (s *SQLiteSink) Tags(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrSinkClosed
	}

	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT tag FROM events ORDER BY tag`)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// Count returns the number of rows for tag.
func (s *SQLiteSink) Count(ctx context.Context, tag string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrSinkClosed
	}

	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE tag = ?`, tag).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// Close closes the database. Close is idempotent.
func (s *SQLiteSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

var _ Sink = (*SQLiteSink)(nil)
