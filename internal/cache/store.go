// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache persists conversion results in SQLite, keyed by a hash of the
// input bytes and the backend that produced them.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/doc2md/pkg/types"
)

// Store manages the conversion cache database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the cache database at path, creating parent
// directories and the schema as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS conversions (
		key TEXT PRIMARY KEY,
		markdown TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`)
	return err
}

// Get returns the cached result for key. The boolean is false on a miss.
func (s *Store) Get(ctx context.Context, key string) (types.Result, bool, error) {
	var res types.Result
	err := s.db.QueryRowContext(ctx,
		`SELECT markdown, title FROM conversions WHERE key = ?`, key,
	).Scan(&res.Markdown, &res.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Result{}, false, nil
	}
	if err != nil {
		return types.Result{}, false, fmt.Errorf("reading cache entry: %w", err)
	}
	return res, true, nil
}

// Put stores res under key, replacing any previous entry.
func (s *Store) Put(ctx context.Context, key string, res types.Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO conversions (key, markdown, title, created_at) VALUES (?, ?, ?, ?)`,
		key, res.Markdown, res.Title, s.now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Prune deletes entries created before cutoff and returns how many were
// removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM conversions WHERE created_at < ?`, cutoff.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning cache: %w", err)
	}
	return res.RowsAffected()
}
