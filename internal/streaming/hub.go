package streaming

import "context"

// StreamEvent is a real-time event emitted while a session plays a run.
type StreamEvent struct {
	SessionID string `json:"session_id"`
	RunID     string `json:"run_id,omitempty"`
	EventType string `json:"event_type"`
	Step      int    `json:"step"`
	Payload   any    `json:"payload,omitempty"`
}

// EventFilter specifies which events a subscriber wants to receive.
type EventFilter struct {
	SessionID  string   `json:"session_id,omitempty"`
	EventTypes []string `json:"event_types,omitempty"`
}

// EventHub provides pub/sub for session playback events.
type EventHub interface {
	Publish(ctx context.Context, event StreamEvent) error
	Subscribe(ctx context.Context, filter EventFilter) (<-chan StreamEvent, func(), error)
}
