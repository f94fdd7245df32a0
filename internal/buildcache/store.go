package buildcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/inkpress/scribe/internal/logfields"
)

const (
	stateDir   = ".scribe"
	recordFile = "build-record.json"
	lockFile   = "lock"

	recordVersion = 1
)

// ErrLocked means another build holds the output directory.
var ErrLocked = errors.New("output directory is locked by another build")

// Record is the persisted outcome of one build.
type Record struct {
	Version int            `json:"version"`
	BuildID string         `json:"build_id"`
	BuiltAt time.Time      `json:"built_at"`
	Entries map[string]Key `json:"entries"`
}

// NewRecord creates an empty record for a build.
func NewRecord(buildID string) *Record {
	return &Record{
		Version: recordVersion,
		BuildID: buildID,
		BuiltAt: time.Now().UTC(),
		Entries: make(map[string]Key),
	}
}

// Store reads and writes the build record under the output directory.
type Store struct {
	outputDir string
}

func NewStore(outputDir string) *Store {
	return &Store{outputDir: outputDir}
}

func (s *Store) recordPath() string {
	return filepath.Join(s.outputDir, stateDir, recordFile)
}

// Load returns the previous build record. A missing, corrupt, or
// incompatible record degrades to nil (everything stale) rather than failing
// the build; corruption is logged since it costs a full rebuild.
func (s *Store) Load() *Record {
	data, err := os.ReadFile(s.recordPath())
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Build record unreadable, rebuilding everything",
				logfields.Path(s.recordPath()), logfields.Error(err))
		}
		return nil
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		slog.Warn("Build record corrupt, rebuilding everything",
			logfields.Path(s.recordPath()), logfields.Error(err))
		return nil
	}
	if rec.Version != recordVersion {
		slog.Warn("Build record from incompatible version, rebuilding everything",
			logfields.Path(s.recordPath()))
		return nil
	}
	if rec.Entries == nil {
		rec.Entries = make(map[string]Key)
	}
	return &rec
}

// Save persists the record atomically (write to a temp file, then rename) so
// an interrupted build never leaves a half-written record behind.
func (s *Store) Save(rec *Record) error {
	dir := filepath.Join(s.outputDir, stateDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal build record: %w", err)
	}

	tmp := s.recordPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temporary build record: %w", err)
	}
	if err := os.Rename(tmp, s.recordPath()); err != nil {
		return fmt.Errorf("replace build record: %w", err)
	}
	return nil
}

// Lock claims the output directory for one build. The returned release
// removes the lock file; callers must invoke it even on failure paths.
func (s *Store) Lock() (release func(), err error) {
	dir := filepath.Join(s.outputDir, stateDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	path := filepath.Join(dir, lockFile)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}
		return nil, fmt.Errorf("create lock file: %w", err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()

	return func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			slog.Warn("Failed to remove lock file", logfields.Path(path), logfields.Error(err))
		}
	}, nil
}
