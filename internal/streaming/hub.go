package streaming

import (
	"context"
	"encoding/json"

	"github.com/rendis/drawsynth/pkg/schema"
)

// RunEvent is a real-time event emitted while a run moves through its states.
type RunEvent struct {
	RunID     string          `json:"run_id"`
	EventType string          `json:"event_type"`
	State     schema.RunState `json:"state,omitempty"`
	Attempt   int             `json:"attempt"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// EventFilter specifies which events a subscriber wants to receive.
type EventFilter struct {
	RunID      string   `json:"run_id,omitempty"`
	EventTypes []string `json:"event_types,omitempty"`
}

// EventHub provides pub/sub for real-time run events.
type EventHub interface {
	Publish(ctx context.Context, event RunEvent) error
	Subscribe(ctx context.Context, filter EventFilter) (<-chan RunEvent, func(), error)
}
