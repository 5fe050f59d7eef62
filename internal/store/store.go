// Package store handles persistence of lifetime stats and acceptance history.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/verte-zerg/tabhero/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Backend is a persistent store usable by the tracker and the engine.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	RecordAcceptance(ctx context.Context, a model.Acceptance) error
	ListAcceptances(ctx context.Context, limit int) ([]model.Acceptance, error)
	Close() error
}

// OpenBackend opens the named backend ("sqlite" or "bolt") at path.
func OpenBackend(name, path string) (Backend, error) {
	switch name {
	case "", "sqlite":
		st, err := Open(path)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "bolt":
		st, err := OpenBolt(path)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", name)
	}
}

// Store wraps SQLite access for stats data.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS acceptances (
			id INTEGER PRIMARY KEY,
			session_id TEXT NOT NULL,
			accepted_at TEXT NOT NULL,
			document_uri TEXT NOT NULL,
			chars INTEGER NOT NULL,
			lines INTEGER NOT NULL,
			score INTEGER NOT NULL,
			method TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_acceptances_accepted_at ON acceptances(accepted_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(value), true, nil
}

// Set overwrites the value stored under key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(value), time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

// RecordAcceptance appends one scored completion to the history.
func (s *Store) RecordAcceptance(ctx context.Context, a model.Acceptance) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO acceptances (session_id, accepted_at, document_uri, chars, lines, score, method)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.SessionID,
		a.AcceptedAt.Format(time.RFC3339Nano),
		a.DocumentURI,
		a.Chars,
		a.Lines,
		a.Score,
		string(a.Method),
	)
	return err
}

// ListAcceptances returns the most recent limit acceptances, oldest first.
// A limit of zero or less returns the whole history.
func (s *Store) ListAcceptances(ctx context.Context, limit int) ([]model.Acceptance, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, accepted_at, document_uri, chars, lines, score, method FROM (
			SELECT id, session_id, accepted_at, document_uri, chars, lines, score, method
			FROM acceptances
			ORDER BY id DESC
			LIMIT ?
		) ORDER BY id ASC`, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.Acceptance
	for rows.Next() {
		var a model.Acceptance
		var acceptedAt, method string
		if err := rows.Scan(&a.SessionID, &acceptedAt, &a.DocumentURI, &a.Chars, &a.Lines, &a.Score, &method); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, acceptedAt)
		if err != nil {
			return nil, err
		}
		a.AcceptedAt = parsed
		a.Method = model.ScoreMethod(method)
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
