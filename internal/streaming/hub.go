package streaming

import (
	"context"
	"time"
)

// Draft event types.
const (
	EventDraftCreated = "draft.created"
	EventDraftUpdated = "draft.updated"
	EventDraftDeleted = "draft.deleted"
)

// DraftEvent is a real-time change notification for one draft.
// draft.updated carries the recomputed layout as Payload.
type DraftEvent struct {
	DraftID   string    `json:"draft_id"`
	EventType string    `json:"event_type"`
	Revision  int64     `json:"revision,omitempty"`
	Warning   string    `json:"warning,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	At        time.Time `json:"at"`
}

// EventFilter specifies which events a subscriber wants to receive.
type EventFilter struct {
	DraftID    string   `json:"draft_id,omitempty"`
	EventTypes []string `json:"event_types,omitempty"`
}

// EventHub provides pub/sub for draft events.
type EventHub interface {
	Publish(ctx context.Context, event DraftEvent) error
	Subscribe(ctx context.Context, filter EventFilter) (<-chan DraftEvent, func(), error)
}
