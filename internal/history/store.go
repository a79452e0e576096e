// Package history persists a local ledger of pipeline runs in SQLite.
// The ledger is informational only: pipeline semantics never depend on it,
// and a broken ledger must not fail a deploy.
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
)

// Run is one recorded pipeline run.
type Run struct {
	ID             string
	StartedAt      time.Time
	Duration       time.Duration
	Outcome        string // success | failed | canceled
	FailedStage    string // empty on success
	ArtifactPath   string
	ArtifactSHA256 string
	ArtifactSize   int64
	Commit         string
	Dirty          bool
}

// Store is a SQLite-backed run ledger.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (and if needed creates) the ledger at dbPath.
// Use ":memory:" for an in-memory database.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create ledger directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps in-memory databases coherent and serializes
	// writers without busy-timeout tuning.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		failed_stage TEXT,
		artifact_path TEXT,
		artifact_sha256 TEXT,
		artifact_size INTEGER,
		commit_hash TEXT,
		dirty INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_outcome ON runs(outcome);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record appends a run to the ledger.
func (s *Store) Record(ctx context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dirty := 0
	if run.Dirty {
		dirty = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, duration_ms, outcome, failed_stage,
			artifact_path, artifact_sha256, artifact_size, commit_hash, dirty)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.Unix(), run.Duration.Milliseconds(), run.Outcome,
		run.FailedStage, run.ArtifactPath, run.ArtifactSHA256, run.ArtifactSize,
		run.Commit, dirty,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Recent returns the most recent runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, duration_ms, outcome, failed_stage,
			artifact_path, artifact_sha256, artifact_size, commit_hash, dirty
		 FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var startedUnix, durationMS int64
		var dirty int
		if err := rows.Scan(&r.ID, &startedUnix, &durationMS, &r.Outcome, &r.FailedStage,
			&r.ArtifactPath, &r.ArtifactSHA256, &r.ArtifactSize, &r.Commit, &dirty); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.Unix(startedUnix, 0)
		r.Duration = time.Duration(durationMS) * time.Millisecond
		r.Dirty = dirty != 0
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
