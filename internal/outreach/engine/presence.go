package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"outreach_backend/internal/events"
	"outreach_backend/internal/outreach/domain"
	"outreach_backend/internal/outreach/repository"
	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/phone"
)

const defaultPresenceCooldown = 5 * time.Minute

// presenceStatuses are the gateway presence states that mean the contact is
// looking at WhatsApp right now. WAHA reports "typing" for composing.
var presenceStatuses = map[string]bool{
	"online":    true,
	"composing": true,
	"typing":    true,
	"recording": true,
}

// PresenceDispatcher starts a turn for a pending lead of an online campaign
// as soon as the contact shows up online.
type PresenceDispatcher struct {
	campaigns CampaignStore
	leads     LeadStore
	turns     TurnRunner
	cooldown  CooldownStore
	cfg       config.EngineConfig
	log       *logger.Logger
	now       func() time.Time
}

func NewPresenceDispatcher(
	campaigns CampaignStore,
	leads LeadStore,
	turns TurnRunner,
	cooldown CooldownStore,
	cfg config.EngineConfig,
	log *logger.Logger,
) *PresenceDispatcher {
	return &PresenceDispatcher{
		campaigns: campaigns,
		leads:     leads,
		turns:     turns,
		cooldown:  cooldown,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// Subscribe registers the dispatcher for presence events on bus.
func (d *PresenceDispatcher) Subscribe(bus events.Bus) {
	bus.Subscribe(events.PresenceDetected{}.EventName(), d)
}

// Handle implements events.Handler.
func (d *PresenceDispatcher) Handle(ctx context.Context, event events.Event) error {
	e, ok := event.(events.PresenceDetected)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}
	_, err := d.OnPresence(ctx, e.Session, e.ChatAddress, e.Status)
	return err
}

// OnPresence reacts to one presence signal. It reports whether a turn was
// started. An empty session matches campaigns on any session.
func (d *PresenceDispatcher) OnPresence(ctx context.Context, session, chatAddress, status string) (dispatched bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("presence dispatch panic: %v", r)
		}
	}()

	if !presenceStatuses[strings.ToLower(strings.TrimSpace(status))] {
		return false, nil
	}

	digits := phone.DigitsFromChatAddress(chatAddress)
	if digits == "" {
		return false, nil
	}

	cooling, err := d.cooldown.Active(ctx, digits)
	if err != nil {
		return false, fmt.Errorf("check presence cooldown: %w", err)
	}
	if cooling {
		return false, nil
	}

	campaigns, err := d.campaigns.ListActiveCampaigns(ctx)
	if err != nil {
		return false, fmt.Errorf("list active campaigns: %w", err)
	}

	now := d.now().In(d.cfg.GetLocation())
	for _, campaign := range campaigns {
		if !campaign.Settings.IsPresenceTriggered() {
			continue
		}
		if session != "" && campaign.SessionName != session {
			continue
		}
		if !domain.IsWithinWindow(campaign.Settings, now) {
			continue
		}

		lead, err := d.leads.FindPendingLeadByPhone(ctx, campaign.ID, digits)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("find pending lead: %w", err)
		}

		acquired, err := d.cooldown.Acquire(ctx, digits, d.cooldownTTL())
		if err != nil {
			return false, fmt.Errorf("start presence cooldown: %w", err)
		}
		if !acquired {
			return false, nil
		}

		d.log.WithCampaign(campaign.ID.String(), campaign.Name).WithLead(lead.ID.String()).
			Info("contact online, starting turn", "presence", status)

		if _, err := d.turns.Run(ctx, lead, campaign); err != nil {
			return true, fmt.Errorf("presence turn: %w", err)
		}
		return true, nil
	}

	return false, nil
}

func (d *PresenceDispatcher) cooldownTTL() time.Duration {
	if ttl := d.cfg.GetPresenceCooldown(); ttl > 0 {
		return ttl
	}
	return defaultPresenceCooldown
}
