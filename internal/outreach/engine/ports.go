package engine

import (
	"context"
	"time"

	"outreach_backend/internal/outreach/domain"
	"outreach_backend/internal/outreach/repository"

	"github.com/google/uuid"
)

// CampaignStore lists the campaigns the engine works on.
type CampaignStore interface {
	ListActiveCampaigns(ctx context.Context) ([]domain.Campaign, error)
}

// LeadStore is the lead persistence the engine reads and writes.
type LeadStore interface {
	ListActiveLeads(ctx context.Context, campaignID uuid.UUID, limit int) ([]domain.Lead, error)
	GetLeadStatus(ctx context.Context, leadID uuid.UUID) (domain.LeadStatus, error)
	UpdateLead(ctx context.Context, leadID uuid.UUID, update repository.LeadUpdate) (bool, error)
	FindPendingLeadByPhone(ctx context.Context, campaignID uuid.UUID, digits string) (domain.Lead, error)
	CountLeadsTouchedSince(ctx context.Context, campaignID uuid.UUID, since time.Time) (int, error)
}

// MessageStore is the chat history persistence.
type MessageStore interface {
	FindChatByAddress(ctx context.Context, session, address string) (uuid.UUID, error)
	ListRecentMessages(ctx context.Context, chatID uuid.UUID, limit int) ([]domain.ChatMessage, error)
	EnsureChat(ctx context.Context, session, address, name string) (uuid.UUID, error)
	UpsertMessage(ctx context.Context, msg repository.SentMessage) error
}

// Gateway sends WhatsApp text messages and returns the provider message id.
type Gateway interface {
	SendText(ctx context.Context, session, chatAddress, text string) (string, error)
}

// GenerateRequest is one call to the reply generator.
type GenerateRequest struct {
	Model        string
	SystemPrompt string
	Temperature  float32
	History      []domain.HistoryEntry
}

// Reply is the structured answer of the reply generator.
type Reply struct {
	Thought    string
	Messages   []string
	CRMActions []domain.CRMAction
}

// ReplyGenerator produces the next conversation turn. Implementations wrap
// ErrRateLimited when the model provider throttles the call.
type ReplyGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (Reply, error)
}
