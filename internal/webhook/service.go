// Package webhook receives WAHA gateway callbacks: it records chat messages
// and forwards presence signals to the scheduler process.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"outreach_backend/internal/outreach/repository"
	"outreach_backend/internal/scheduler"
	"outreach_backend/internal/whatsapp"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/phone"

	"github.com/google/uuid"
)

// Store is the persistence the webhook needs. Satisfied by repository.Repository.
type Store interface {
	EnsureChat(ctx context.Context, session, address, name string) (uuid.UUID, error)
	UpsertMessage(ctx context.Context, msg repository.SentMessage) error
	MarkRespondedByPhone(ctx context.Context, session, digits string) (int64, error)
}

// Service handles decoded WAHA events.
type Service struct {
	store    Store
	presence scheduler.PresenceEnqueuer
	log      *logger.Logger
	now      func() time.Time
}

// NewService creates a webhook service. presence may be nil, in which case
// presence updates are dropped.
func NewService(store Store, presence scheduler.PresenceEnqueuer, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		presence: presence,
		log:      log,
		now:      time.Now,
	}
}

// Dispatch routes an envelope by event name. Unknown events are ignored.
func (s *Service) Dispatch(ctx context.Context, env Envelope) error {
	switch env.Event {
	case EventMessage, EventMessageAny:
		var msg MessagePayload
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return fmt.Errorf("decode message payload: %w", err)
		}
		return s.RecordMessage(ctx, env.Session, msg)
	case EventPresenceUpdate:
		var p PresencePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("decode presence payload: %w", err)
		}
		return s.ForwardPresence(ctx, env.Session, p)
	default:
		s.log.Debug("ignoring waha event", "event", env.Event, "session", env.Session)
		return nil
	}
}

// RecordMessage stores a chat message. Our own sends arrive here as echoes and
// collide on the provider id, so they are not duplicated. An inbound message
// moves a contacted lead of the same session to responded. Chats are keyed by
// the "<digits>@c.us" address outbound sends use, whatever domain the gateway reports.
func (s *Service) RecordMessage(ctx context.Context, session string, msg MessagePayload) error {
	if !isDirectChat(msg.ChatAddress()) {
		return nil
	}
	address := phone.CanonicalChatAddress(msg.ChatAddress())
	if address == "" {
		return nil
	}

	body := strings.TrimSpace(msg.Body)
	if body == "" {
		return nil
	}

	providerID, err := whatsapp.MessageID(msg.ID)
	if err != nil {
		return err
	}

	name := ""
	if !msg.FromMe {
		name = msg.Data.NotifyName
	}
	chatID, err := s.store.EnsureChat(ctx, session, address, name)
	if err != nil {
		return fmt.Errorf("ensure chat: %w", err)
	}

	sentAt := s.now()
	if msg.Timestamp > 0 {
		sentAt = time.Unix(msg.Timestamp, 0)
	}

	if err := s.store.UpsertMessage(ctx, repository.SentMessage{
		ProviderMessageID: providerID,
		ChatID:            chatID,
		Body:              body,
		FromMe:            msg.FromMe,
		SentAt:            sentAt,
	}); err != nil {
		return fmt.Errorf("record message: %w", err)
	}

	if msg.FromMe {
		return nil
	}

	digits := phone.DigitsFromChatAddress(address)
	updated, err := s.store.MarkRespondedByPhone(ctx, session, digits)
	if err != nil {
		return fmt.Errorf("mark lead responded: %w", err)
	}
	if updated > 0 {
		s.log.WithSession(session).Info("lead replied", "leads", updated)
	}
	return nil
}

// ForwardPresence enqueues one task per reported contact.
func (s *Service) ForwardPresence(ctx context.Context, session string, p PresencePayload) error {
	if s.presence == nil {
		s.log.Debug("presence forwarding disabled, dropping update", "session", session)
		return nil
	}

	for _, entry := range p.Presences {
		address := entry.Participant
		if address == "" {
			address = p.ID
		}
		status := strings.ToLower(strings.TrimSpace(entry.LastKnownPresence))
		if !isDirectChat(address) || status == "" {
			continue
		}
		address = phone.CanonicalChatAddress(address)
		if address == "" {
			continue
		}

		if err := s.presence.EnqueuePresence(ctx, scheduler.PresenceDetectedPayload{
			Session:     session,
			ChatAddress: address,
			Status:      status,
		}); err != nil {
			return fmt.Errorf("enqueue presence: %w", err)
		}
	}
	return nil
}
