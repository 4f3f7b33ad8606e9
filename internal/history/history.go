// Package history persists one record per completed apply in a local
// SQLite database, so users can list what was produced and where.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"planforge/internal/logging"
)

// Record is the persisted shape of an apply result.
type Record struct {
	ID         string
	Name       string
	ProjectDir string
	Stack      string
	RunCmd     string
	Warnings   int
	AppliedAt  time.Time
}

// Store is an append-mostly apply log. Safe for use from concurrent
// applies; SQLite serializes the writes.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS applies (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	project_dir TEXT NOT NULL,
	stack       TEXT NOT NULL,
	run_cmd     TEXT NOT NULL,
	warnings    INTEGER NOT NULL DEFAULT 0,
	applied_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_applies_applied_at ON applies(applied_at DESC);
`

// Open opens (creating if needed) the history database at path and runs
// the schema migration.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating history schema: %w", err)
	}
	logging.Get(logging.CategoryHistory).Debug("History store open at %s", path)
	return &Store{db: db}, nil
}

// DefaultPath returns the per-user history database location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".planforge", "history.db")
	}
	return filepath.Join(home, ".config", "planforge", "history.db")
}

// Append inserts one record. An empty AppliedAt is stamped now.
func (s *Store) Append(r Record) error {
	if r.AppliedAt.IsZero() {
		r.AppliedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO applies (id, name, project_dir, stack, run_cmd, warnings, applied_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.ProjectDir, r.Stack, r.RunCmd, r.Warnings, r.AppliedAt,
	)
	if err != nil {
		return fmt.Errorf("appending history record: %w", err)
	}
	logging.Get(logging.CategoryHistory).Info("Recorded apply %s (%s)", r.ID, r.Name)
	return nil
}

// Recent returns up to n records, newest first.
func (s *Store) Recent(n int) ([]Record, error) {
	if n <= 0 {
		n = 20
	}
	rows, err := s.db.Query(
		`SELECT id, name, project_dir, stack, run_cmd, warnings, applied_at
		 FROM applies ORDER BY applied_at DESC, rowid DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Name, &r.ProjectDir, &r.Stack, &r.RunCmd, &r.Warnings, &r.AppliedAt); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
