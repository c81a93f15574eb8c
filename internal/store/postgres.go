package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mnemo-ai/mnemo/internal/domain"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS context_snapshots (
	session_id UUID PRIMARY KEY,
	snapshot   JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore persists snapshots as one JSONB row per session.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the snapshot table when it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Put(ctx context.Context, snap *domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("postgres: encode snapshot: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO context_snapshots (session_id, snapshot, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (session_id) DO UPDATE
		 SET snapshot = EXCLUDED.snapshot, updated_at = now()`,
		snap.SessionID, data,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert snapshot: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, sessionID uuid.UUID) (*domain.Snapshot, error) {
	var data []byte
	err := s.db.QueryRow(ctx,
		`SELECT snapshot FROM context_snapshots WHERE session_id = $1`,
		sessionID,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("postgres: query snapshot: %w", err)
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("postgres: decode snapshot: %w", err)
	}
	return &snap, nil
}
