package domain

import (
	"context"

	"github.com/google/uuid"
)

// SnapshotStore persists session snapshots keyed by session id. Put
// overwrites any previous snapshot for the session. Get reports an
// absent session with the store package's ErrNotFound; implementations
// handle their own serialization, so callers never see raw bytes.
type SnapshotStore interface {
	Put(ctx context.Context, snap *Snapshot) error
	Get(ctx context.Context, sessionID uuid.UUID) (*Snapshot, error)
}
