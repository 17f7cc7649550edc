package events

import "time"

// EventType represents the type of a streamhook event.
type EventType string

// Standard streamhook event types.
const (
	SessionStarted       EventType = "SessionStarted"   // BeginCreate/BeginEdit staged a copy
	SessionCancelled     EventType = "SessionCancelled" // staged copy discarded
	ActionCreated        EventType = "ActionCreated"
	ActionUpdated        EventType = "ActionUpdated"
	ActionDeleted        EventType = "ActionDeleted"
	ValidationFailed     EventType = "ValidationFailed" // Save rejected by validation
	PrepCommandsMigrated EventType = "PrepCommandsMigrated"
)

// Event represents a significant occurrence while authoring or migrating
// event actions.
type Event struct {
	// Type categorizes the event.
	Type EventType `json:"type"`
	// Timestamp marks when the event occurred.
	Timestamp time.Time `json:"timestamp"`
	// SessionID identifies the editing session, if any.
	SessionID string `json:"session_id,omitempty"`
	// ActionName is the name of the affected action, if applicable.
	ActionName string `json:"action_name,omitempty"`
	// Index is the position of the affected action in the committed collection.
	Index int `json:"index"`
	// Payload contains event-specific data such as validation reasons or
	// migrated command counts.
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Bus defines the interface for publishing events.
// Implementations must not block the caller for long; the editor emits
// from inside its synchronous operations.
type Bus interface {
	Emit(event Event)
}
