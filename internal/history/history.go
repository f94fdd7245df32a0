// Package history keeps a local record of past builds and pins in a SQLite
// database under the output directory's state folder. The record is advisory:
// a failure to write history never fails a build.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/inkpress/scribe/internal/pipeline"
	"github.com/inkpress/scribe/internal/publish"
)

// BuildEntry is one recorded build.
type BuildEntry struct {
	BuildID    string
	StartedAt  time.Time
	DurationMS int64
	Outcome    string
	TotalPosts int
	Stale      int
	Unchanged  int
	Removed    int
	Failed     int
}

// PinEntry is one recorded publish.
type PinEntry struct {
	CID       string
	Name      string
	Recursive bool
	Files     int
	PinnedAt  time.Time
}

// Store persists build and pin history.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates (or opens) the history database under
// <outputDir>/.scribe/history.db.
func Open(outputDir string) (*Store, error) {
	dir := filepath.Join(outputDir, ".scribe")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "history.db"))
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		total_posts INTEGER NOT NULL,
		stale INTEGER NOT NULL,
		unchanged INTEGER NOT NULL,
		removed INTEGER NOT NULL,
		failed INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_builds_started ON builds(started_at);
	CREATE TABLE IF NOT EXISTS pins (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		cid TEXT NOT NULL,
		name TEXT,
		recursive INTEGER NOT NULL,
		files INTEGER NOT NULL,
		pinned_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_pins_pinned ON pins(pinned_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordBuild appends one build report.
func (s *Store) RecordBuild(ctx context.Context, r *pipeline.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO builds (build_id, started_at, duration_ms, outcome, total_posts, stale, unchanged, removed, failed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.BuildID, r.StartedAt.Unix(), r.Duration.Milliseconds(), string(r.Outcome),
		r.TotalPosts, r.Stale, r.Unchanged, r.Removed, r.Failed)
	if err != nil {
		return fmt.Errorf("insert build: %w", err)
	}
	return nil
}

// RecordPin appends one pin record.
func (s *Store) RecordPin(ctx context.Context, p *publish.PinRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recursive := 0
	if p.Recursive {
		recursive = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pins (cid, name, recursive, files, pinned_at) VALUES (?, ?, ?, ?, ?)`,
		p.CID, p.Name, recursive, p.Files, p.PinnedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert pin: %w", err)
	}
	return nil
}

// RecentBuilds returns up to limit builds, newest first.
func (s *Store) RecentBuilds(ctx context.Context, limit int) ([]BuildEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT build_id, started_at, duration_ms, outcome, total_posts, stale, unchanged, removed, failed
		 FROM builds ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer rows.Close()

	var out []BuildEntry
	for rows.Next() {
		var e BuildEntry
		var started int64
		if err := rows.Scan(&e.BuildID, &started, &e.DurationMS, &e.Outcome,
			&e.TotalPosts, &e.Stale, &e.Unchanged, &e.Removed, &e.Failed); err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		e.StartedAt = time.Unix(started, 0).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// LatestPin returns the most recent pin, or nil when nothing was published
// yet.
func (s *Store) LatestPin(ctx context.Context) (*PinEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT cid, name, recursive, files, pinned_at FROM pins ORDER BY id DESC LIMIT 1`)

	var e PinEntry
	var recursive int
	var pinned int64
	var name sql.NullString
	err := row.Scan(&e.CID, &name, &recursive, &e.Files, &pinned)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan pin: %w", err)
	}
	e.Name = name.String
	e.Recursive = recursive != 0
	e.PinnedAt = time.Unix(pinned, 0).UTC()
	return &e, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
