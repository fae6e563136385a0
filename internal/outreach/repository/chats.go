package repository

import (
	"context"
	"errors"
	"time"

	"outreach_backend/internal/outreach/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SentMessage is a message to record in the history store.
type SentMessage struct {
	ProviderMessageID string
	ChatID            uuid.UUID
	Body              string
	FromMe            bool
	Author            *string
	SentAt            time.Time
}

// FindChatByAddress returns the chat id for a session/address pair.
func (r *Repository) FindChatByAddress(ctx context.Context, session, address string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT id FROM chats WHERE session_name = $1 AND address = $2
	`, session, address).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrNotFound
	}
	return id, err
}

// EnsureChat returns the chat for session/address, creating it when missing.
func (r *Repository) EnsureChat(ctx context.Context, session, address, name string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		INSERT INTO chats (session_name, address, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_name, address) DO UPDATE
			SET name = CASE WHEN chats.name = '' THEN EXCLUDED.name ELSE chats.name END,
				updated_at = now()
		RETURNING id
	`, session, address, name).Scan(&id)
	return id, err
}

// ListRecentMessages returns the latest limit messages of a chat, oldest first.
func (r *Repository) ListRecentMessages(ctx context.Context, chatID uuid.UUID, limit int) ([]domain.ChatMessage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, chat_id, provider_message_id, body, from_me, author, sent_at
		FROM (
			SELECT id, chat_id, provider_message_id, body, from_me, author, sent_at
			FROM messages
			WHERE chat_id = $1
			ORDER BY sent_at DESC
			LIMIT $2
		) recent
		ORDER BY sent_at ASC
	`, chatID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]domain.ChatMessage, 0, limit)
	for rows.Next() {
		var m domain.ChatMessage
		if err := rows.Scan(&m.ID, &m.ChatID, &m.ProviderMessageID, &m.Body, &m.FromMe, &m.Author, &m.SentAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return messages, nil
}

// UpsertMessage records a message keyed by its provider id. A second insert of
// the same id (webhook echo of our own send) keeps the first author tag.
func (r *Repository) UpsertMessage(ctx context.Context, msg SentMessage) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO messages (chat_id, provider_message_id, body, from_me, author, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (provider_message_id) DO UPDATE
			SET author = COALESCE(messages.author, EXCLUDED.author),
				body = CASE WHEN messages.body = '' THEN EXCLUDED.body ELSE messages.body END
	`, msg.ChatID, msg.ProviderMessageID, msg.Body, msg.FromMe, msg.Author, msg.SentAt)
	return err
}
