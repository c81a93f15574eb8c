package domain

import (
	"time"

	"github.com/google/uuid"
)

// Snapshot is the portable serialized form of one session's context. It
// is a faithful dump: currently-expired items ride along and are filtered
// by the cleanup that runs on import. Timestamps render as RFC3339
// through the standard JSON encoding.
type Snapshot struct {
	SessionID   uuid.UUID     `json:"session_id"`
	Window      ContextWindow `json:"context_window"`
	Items       []ContextItem `json:"context_items"`
	Summary     string        `json:"summary,omitempty"`
	LastCleanup time.Time     `json:"last_cleanup"`
}
