package store

import (
	"encoding/json"
	"time"

	"github.com/rendis/drawsynth/pkg/schema"
)

// Run is the persisted representation of one orchestrated drawing request.
type Run struct {
	ID          string             `json:"id"`
	Prompt      string             `json:"prompt"`
	Status      schema.RunStatus   `json:"status"`
	DiagramType schema.DiagramType `json:"diagram_type,omitempty"`
	Attempts    int                `json:"attempts"`
	MaxAttempts int                `json:"max_attempts"`
	Result      json.RawMessage    `json:"result,omitempty"`
	Error       json.RawMessage    `json:"error,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// Event is an immutable entry in a run's journal.
type Event struct {
	ID        int64           `json:"id"`
	RunID     string          `json:"run_id"`
	Type      string          `json:"event_type"`
	State     schema.RunState `json:"state,omitempty"`
	Attempt   int             `json:"attempt"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Sequence  int64           `json:"sequence"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status *schema.RunStatus `json:"status,omitempty"`
	Since  *time.Time        `json:"since,omitempty"`
	Limit  int               `json:"limit,omitempty"`
	Offset int               `json:"offset,omitempty"`
}

// RunUpdate specifies mutable fields of a run. Nil fields are left unchanged.
type RunUpdate struct {
	Status      *schema.RunStatus   `json:"status,omitempty"`
	DiagramType *schema.DiagramType `json:"diagram_type,omitempty"`
	Attempts    *int                `json:"attempts,omitempty"`
	Result      json.RawMessage     `json:"result,omitempty"`
	Error       json.RawMessage     `json:"error,omitempty"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}
