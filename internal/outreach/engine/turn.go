// Package engine runs outreach campaigns: it picks leads, asks the reply
// generator what to say and delivers the answer over WhatsApp.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"outreach_backend/internal/outreach/domain"
	"outreach_backend/internal/outreach/repository"
	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/phone"
	"outreach_backend/platform/sanitize"

	"github.com/google/uuid"
)

// ErrRateLimited is returned (wrapped) by reply generators when the model
// provider throttles a request. Turns hitting it end silently.
var ErrRateLimited = errors.New("reply generator rate limited")

// Outcome describes how a conversation turn ended.
type Outcome string

const (
	OutcomeAwaitingReply  Outcome = "awaiting_reply"
	OutcomeNothingToSay   Outcome = "nothing_to_say"
	OutcomeRateLimited    Outcome = "rate_limited"
	OutcomeTakenOver      Outcome = "taken_over"
	OutcomeCompleted      Outcome = "completed"
	OutcomePartialFailure Outcome = "partial_failure"
	OutcomeInterrupted    Outcome = "interrupted"
)

// TurnResult summarises one turn. Status is the status written to the lead,
// empty when nothing was written.
type TurnResult struct {
	Outcome Outcome
	Sent    int
	Failed  int
	Status  domain.LeadStatus
}

// TurnController executes a single conversation turn for a lead.
type TurnController struct {
	leads     LeadStore
	messages  MessageStore
	gateway   Gateway
	generator ReplyGenerator
	prompts   *PromptTemplates
	cfg       config.EngineConfig
	log       *logger.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewTurnController(
	leads LeadStore,
	messages MessageStore,
	gateway Gateway,
	generator ReplyGenerator,
	prompts *PromptTemplates,
	cfg config.EngineConfig,
	log *logger.Logger,
) *TurnController {
	return &TurnController{
		leads:     leads,
		messages:  messages,
		gateway:   gateway,
		generator: generator,
		prompts:   prompts,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
		sleep:     sleepContext,
	}
}

// Run executes steps from history loading to status commit for one lead.
// Rate limiting and human takeover are outcomes, not errors. A returned error
// means the lead was left untouched; once a bubble has been sent the outcome is
// always committed.
func (c *TurnController) Run(ctx context.Context, lead domain.Lead, campaign domain.Campaign) (TurnResult, error) {
	log := c.log.WithCampaign(campaign.ID.String(), campaign.Name).WithLead(lead.ID.String())

	address := phone.ChatAddress(lead.Phone, c.cfg.GetPhoneRegion(), c.cfg.GetDefaultCountryCode())
	if address == "" {
		return TurnResult{}, fmt.Errorf("lead %s has no usable phone number", lead.ID)
	}

	history, err := c.loadHistory(ctx, campaign.SessionName, address)
	if err != nil {
		return TurnResult{}, fmt.Errorf("load history: %w", err)
	}

	if c.awaitingReply(history, lead, campaign) {
		log.Debug("waiting for lead reply, skipping turn")
		return TurnResult{Outcome: OutcomeAwaitingReply}, nil
	}

	systemPrompt, err := c.prompts.System(campaign, lead)
	if err != nil {
		return TurnResult{}, err
	}

	conversation := make([]domain.HistoryEntry, 0, len(history)+1)
	conversation = append(conversation, history...)
	conversation = append(conversation, domain.HistoryEntry{
		Role:    domain.RoleUser,
		Content: c.prompts.Trigger(len(history) == 0),
	})

	reply, err := c.generator.Generate(ctx, GenerateRequest{
		Model:        campaign.Agent.Model,
		SystemPrompt: systemPrompt,
		Temperature:  campaign.Agent.Temperature,
		History:      conversation,
	})
	if errors.Is(err, ErrRateLimited) {
		log.Warn("reply generator rate limited, retrying on a later turn", "model", campaign.Agent.Model)
		return TurnResult{Outcome: OutcomeRateLimited}, nil
	}
	if err != nil {
		return TurnResult{}, fmt.Errorf("generate reply: %w", err)
	}

	if reply.Thought != "" {
		log.Debug("agent thought", "thought", reply.Thought)
	}

	status := domain.StatusForActions(reply.CRMActions)
	bubbles := nonEmptyBubbles(reply.Messages)

	if len(bubbles) == 0 {
		if status == domain.LeadContacted {
			return TurnResult{Outcome: OutcomeNothingToSay}, nil
		}
		result := TurnResult{Outcome: OutcomeCompleted}
		return c.commit(ctx, log, lead, result, status)
	}

	result, err := c.deliver(ctx, log, lead, campaign, address, bubbles)
	if err != nil {
		if result.Sent == 0 {
			return result, err
		}
		// Part of the reply is on the wire: the lead must not be reopened
		// with a fresh opener, so the outcome is written even after cancellation.
		log.Warn("turn interrupted after partial delivery", "sent", result.Sent, "remaining", len(bubbles)-result.Sent-result.Failed, "error", err)
		result.Outcome = OutcomeInterrupted
		if result.Failed > 0 {
			status = domain.LeadFailed
		}
		return c.commit(context.WithoutCancel(ctx), log, lead, result, status)
	}
	if result.Outcome == OutcomeTakenOver {
		log.TurnOutcome(string(result.Outcome), result.Sent, result.Failed, string(domain.LeadManualIntervention))
		return result, nil
	}

	if result.Failed > 0 {
		result.Outcome = OutcomePartialFailure
		return c.commit(ctx, log, lead, result, domain.LeadFailed)
	}

	result.Outcome = OutcomeCompleted
	return c.commit(ctx, log, lead, result, status)
}

func (c *TurnController) loadHistory(ctx context.Context, session, address string) ([]domain.HistoryEntry, error) {
	chatID, err := c.messages.FindChatByAddress(ctx, session, address)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	limit := c.cfg.GetHistoryLimit()
	if limit <= 0 {
		limit = 10
	}

	messages, err := c.messages.ListRecentMessages(ctx, chatID, limit)
	if err != nil {
		return nil, err
	}
	return domain.ToHistory(messages), nil
}

// awaitingReply is true when we spoke last and the backoff since the lead's
// last interaction has not elapsed. Presence-triggered campaigns never wait.
func (c *TurnController) awaitingReply(history []domain.HistoryEntry, lead domain.Lead, campaign domain.Campaign) bool {
	if len(history) == 0 || history[len(history)-1].Role != domain.RoleAssistant {
		return false
	}
	if campaign.Settings.IsPresenceTriggered() {
		return false
	}
	if lead.LastInteraction == nil {
		return false
	}
	return c.now().Sub(*lead.LastInteraction) < c.cfg.GetReplyBackoff()
}

func (c *TurnController) deliver(
	ctx context.Context,
	log *logger.Logger,
	lead domain.Lead,
	campaign domain.Campaign,
	address string,
	bubbles []string,
) (TurnResult, error) {
	var result TurnResult

	for i, text := range bubbles {
		if i > 0 {
			if err := c.sleep(ctx, c.typingDelay(text)); err != nil {
				return result, err
			}
		}

		current, err := c.leads.GetLeadStatus(ctx, lead.ID)
		if err != nil {
			return result, fmt.Errorf("re-read lead status: %w", err)
		}
		if current == domain.LeadManualIntervention {
			log.Info("lead taken over by operator, aborting remaining messages",
				"sent", result.Sent, "remaining", len(bubbles)-i)
			result.Outcome = OutcomeTakenOver
			return result, nil
		}

		providerID, err := c.gateway.SendText(ctx, campaign.SessionName, address, text)
		if err != nil {
			result.Failed++
			log.Warn("failed to send message", "bubble", i+1, "error", err)
			continue
		}
		result.Sent++

		c.recordSent(ctx, log, campaign, lead, address, providerID, text)
	}

	return result, nil
}

// recordSent stores a delivered bubble. Failures are logged only: the message
// is already on the wire and the webhook echo will store it as well.
func (c *TurnController) recordSent(
	ctx context.Context,
	log *logger.Logger,
	campaign domain.Campaign,
	lead domain.Lead,
	address, providerID, text string,
) {
	chatID, err := c.messages.EnsureChat(ctx, campaign.SessionName, address, lead.Name)
	if err != nil {
		log.DatabaseError("ensure_chat", err)
		return
	}

	if providerID == "" {
		providerID = "local:" + uuid.NewString()
	}

	author := campaign.Agent.Name
	if err := c.messages.UpsertMessage(ctx, repository.SentMessage{
		ProviderMessageID: providerID,
		ChatID:            chatID,
		Body:              text,
		FromMe:            true,
		Author:            &author,
		SentAt:            c.now(),
	}); err != nil {
		log.DatabaseError("upsert_message", err)
	}
}

func (c *TurnController) commit(
	ctx context.Context,
	log *logger.Logger,
	lead domain.Lead,
	result TurnResult,
	status domain.LeadStatus,
) (TurnResult, error) {
	update := repository.LeadUpdate{Status: status}
	if status != domain.LeadFailed {
		now := c.now()
		update.LastInteraction = &now
	}

	written, err := c.leads.UpdateLead(ctx, lead.ID, update)
	if err != nil {
		return result, fmt.Errorf("commit lead status: %w", err)
	}
	if !written {
		result.Outcome = OutcomeTakenOver
		log.TurnOutcome(string(result.Outcome), result.Sent, result.Failed, string(domain.LeadManualIntervention))
		return result, nil
	}

	result.Status = status
	log.TurnOutcome(string(result.Outcome), result.Sent, result.Failed, string(status))
	return result, nil
}

func (c *TurnController) typingDelay(text string) time.Duration {
	perChar := c.cfg.GetTypingDelayPerChar()
	if perChar <= 0 {
		return 0
	}
	delay := time.Duration(utf8.RuneCountInString(text)) * perChar
	if limit := c.cfg.GetTypingDelayMax(); limit > 0 && delay > limit {
		return limit
	}
	return delay
}

func nonEmptyBubbles(messages []string) []string {
	bubbles := make([]string, 0, len(messages))
	for _, m := range messages {
		if trimmed := sanitize.Bubble(m); trimmed != "" {
			bubbles = append(bubbles, trimmed)
		}
	}
	return bubbles
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
