package domain

import (
	"time"

	"github.com/google/uuid"
)

// ContextKind labels what a context item carries. Kinds are open-ended
// strings; the constants below are the ones the summary renderer knows
// how to phrase.
type ContextKind string

const (
	KindMessage      ContextKind = "message"       // Conversation turn
	KindToolResult   ContextKind = "tool_result"   // Output of a tool invocation
	KindIntegration  ContextKind = "integration"   // Integration being worked on
	KindEntity       ContextKind = "entity"        // Referenced external entity
	KindPattern      ContextKind = "pattern"       // Matched workflow pattern
	KindSystemPrompt ContextKind = "system_prompt" // Seeded system instructions
)

// ContextItem is a single unit of retained conversational context.
// The payload is opaque to the engine; a snapshot round-trip normalizes
// it to JSON's type universe. Every field except Importance is fixed at
// creation time.
type ContextItem struct {
	ID      uuid.UUID   `json:"id"`
	Kind    ContextKind `json:"kind"`
	Payload any         `json:"payload"`

	// Retention inputs
	CreatedAt  time.Time  `json:"created_at"`
	Importance float64    `json:"importance"` // In [0,1]
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// IsExpired reports whether the item's expiry has passed. Items without
// an expiry never expire.
func (c *ContextItem) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// Age returns how long ago the item was created.
func (c *ContextItem) Age(now time.Time) time.Duration {
	return now.Sub(c.CreatedAt)
}

// AddInput carries the caller-supplied fields for a new context item.
type AddInput struct {
	Kind    ContextKind
	Payload any

	// Importance ranks the item for retention and retrieval. The zero
	// value selects DefaultImportance; anything else is clamped to [0,1].
	Importance float64

	// TTL sets an expiry relative to the add time. Zero means the item
	// never expires; a negative TTL produces an already-expired item.
	TTL time.Duration

	Metadata map[string]any
}

// Query selects and bounds a read of the context window.
type Query struct {
	Kind          ContextKind // Empty matches every kind
	MinImportance float64
	Limit         int // 0 means no limit
}

// ContextStats summarizes everything a manager currently holds, expired
// items included.
type ContextStats struct {
	SessionID         uuid.UUID           `json:"session_id"`
	TotalItems        int                 `json:"total_items"`
	ItemsByKind       map[ContextKind]int `json:"items_by_kind"`
	AverageImportance float64             `json:"average_importance"`
	OldestItem        *time.Time          `json:"oldest_item,omitempty"`
	NewestItem        *time.Time          `json:"newest_item,omitempty"`
}
