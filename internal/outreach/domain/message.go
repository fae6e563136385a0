package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one stored WhatsApp message.
type ChatMessage struct {
	ID                uuid.UUID
	ChatID            uuid.UUID
	ProviderMessageID string
	Body              string
	FromMe            bool
	// Author is the agent name for automated sends, nil for humans.
	Author *string
	SentAt time.Time
}

// HistoryEntry is a message as seen by the reply generator.
type HistoryEntry struct {
	Role    Role
	Content string
}

// mediaPlaceholder stands in for messages without text (media, stickers).
const mediaPlaceholder = "[media]"

// ToHistory maps stored messages (oldest first) to generator history.
// Messages we sent become assistant turns.
func ToHistory(messages []ChatMessage) []HistoryEntry {
	history := make([]HistoryEntry, 0, len(messages))
	for _, m := range messages {
		role := RoleUser
		if m.FromMe {
			role = RoleAssistant
		}
		content := m.Body
		if content == "" {
			content = mediaPlaceholder
		}
		history = append(history, HistoryEntry{Role: role, Content: content})
	}
	return history
}
