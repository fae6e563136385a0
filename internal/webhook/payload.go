package webhook

import (
	"encoding/json"
	"strings"
)

// WAHA webhook event names handled by this module.
const (
	EventMessage        = "message"
	EventMessageAny     = "message.any"
	EventPresenceUpdate = "presence.update"
)

// Envelope is the outer body of every WAHA webhook call.
type Envelope struct {
	ID      string          `json:"id"`
	Event   string          `json:"event" validate:"required"`
	Session string          `json:"session"`
	Payload json.RawMessage `json:"payload"`
}

// MessagePayload is the payload of message and message.any events.
type MessagePayload struct {
	ID        json.RawMessage `json:"id"`
	Timestamp int64           `json:"timestamp"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	FromMe    bool            `json:"fromMe"`
	Body      string          `json:"body"`
	HasMedia  bool            `json:"hasMedia"`
	Data      struct {
		NotifyName string `json:"notifyName"`
	} `json:"_data"`
}

// ChatAddress is the contact side of the conversation.
func (m MessagePayload) ChatAddress() string {
	if m.FromMe {
		return m.To
	}
	return m.From
}

// PresencePayload is the payload of presence.update events.
type PresencePayload struct {
	ID        string          `json:"id"`
	Presences []PresenceEntry `json:"presences"`
}

type PresenceEntry struct {
	Participant       string `json:"participant"`
	LastKnownPresence string `json:"lastKnownPresence"`
}

// isDirectChat filters out groups, broadcasts and newsletters.
func isDirectChat(address string) bool {
	address = strings.TrimSpace(address)
	if address == "" || address == "status@broadcast" {
		return false
	}
	return strings.HasSuffix(address, "@c.us") || strings.HasSuffix(address, "@s.whatsapp.net")
}
