package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Interaction is one completed conversational turn.
type Interaction struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	CreatedAt  time.Time `json:"created_at"`
	UserInput  string    `json:"user_input"`
	IntentType string    `json:"intent_type"`
	Confidence float64   `json:"confidence"`
	Tool       string    `json:"tool,omitempty"`
	Response   string    `json:"response"`
	DurationMs int64     `json:"duration_ms"`
}

// MemorySnapshot is an exported memory store kept for a session. Payload is
// the JSON produced by memory.Store.Export.
type MemorySnapshot struct {
	ID        string
	SessionID string
	CreatedAt time.Time
	Payload   string
}
