package events

import "outreach_backend/platform/events"

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Presence Events
// =============================================================================

// PresenceDetected is published when the gateway reports a contact as present.
type PresenceDetected struct {
	BaseEvent
	Session     string `json:"session"`
	ChatAddress string `json:"chatAddress"`
	Status      string `json:"status"`
}

func (e PresenceDetected) EventName() string { return "outreach.presence.detected" }
