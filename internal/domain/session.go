package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionInfo is the registry metadata for one resident session.
// LastAccessAt drives idle sweeps; it is touched on every lookup.
type SessionInfo struct {
	ID           uuid.UUID `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessAt time.Time `json:"last_access_at"`
}
