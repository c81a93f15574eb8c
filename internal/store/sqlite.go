package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mnemo-ai/mnemo/internal/domain"

	_ "modernc.org/sqlite" // SQLite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS context_snapshots (
	session_id TEXT PRIMARY KEY,
	snapshot   TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// SQLiteStore persists snapshots in a local SQLite database. The driver
// is pure Go, so no cgo is involved.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at path, creating it and the schema
// when missing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}

	// SQLite allows one concurrent writer. A single open connection
	// serialises writes and avoids SQLITE_BUSY under concurrent load.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Put(ctx context.Context, snap *domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("sqlite: encode snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO context_snapshots (session_id, snapshot, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE
		 SET snapshot = excluded.snapshot, updated_at = excluded.updated_at`,
		snap.SessionID.String(), string(data), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("sqlite: upsert snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, sessionID uuid.UUID) (*domain.Snapshot, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT snapshot FROM context_snapshots WHERE session_id = ?`,
		sessionID.String(),
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("sqlite: query snapshot: %w", err)
	}
	var snap domain.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("sqlite: decode snapshot: %w", err)
	}
	return &snap, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
