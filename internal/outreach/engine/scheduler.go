package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"outreach_backend/internal/outreach/domain"
	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"

	"github.com/google/uuid"
)

const defaultTickInterval = 30 * time.Second

// TurnRunner runs a conversation turn. *TurnController implements it.
type TurnRunner interface {
	Run(ctx context.Context, lead domain.Lead, campaign domain.Campaign) (TurnResult, error)
}

// IntervalScheduler drives interval campaigns: one lead per campaign per tick.
type IntervalScheduler struct {
	campaigns CampaignStore
	leads     LeadStore
	selector  *Selector
	turns     TurnRunner
	cfg       config.EngineConfig
	log       *logger.Logger
	now       func() time.Time

	mu       sync.Mutex
	lastTurn map[uuid.UUID]time.Time
}

func NewIntervalScheduler(
	campaigns CampaignStore,
	leads LeadStore,
	turns TurnRunner,
	cfg config.EngineConfig,
	log *logger.Logger,
) *IntervalScheduler {
	return &IntervalScheduler{
		campaigns: campaigns,
		leads:     leads,
		selector:  NewSelector(leads),
		turns:     turns,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
		lastTurn:  make(map[uuid.UUID]time.Time),
	}
}

// Run ticks until ctx is done.
func (s *IntervalScheduler) Run(ctx context.Context) {
	interval := s.cfg.GetTickInterval()
	if interval <= 0 {
		interval = defaultTickInterval
	}

	s.log.Info("interval scheduler started", "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("interval scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick processes every active interval campaign once, in listed order.
func (s *IntervalScheduler) Tick(ctx context.Context) {
	campaigns, err := s.campaigns.ListActiveCampaigns(ctx)
	if err != nil {
		s.log.DatabaseError("list_active_campaigns", err)
		return
	}

	for _, campaign := range campaigns {
		if ctx.Err() != nil {
			return
		}
		if campaign.Settings.IsPresenceTriggered() {
			continue
		}
		if err := s.runCampaign(ctx, campaign); err != nil {
			s.log.WithCampaign(campaign.ID.String(), campaign.Name).Error("campaign turn failed", "error", err)
		}
	}
}

func (s *IntervalScheduler) runCampaign(ctx context.Context, campaign domain.Campaign) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	now := s.now().In(s.cfg.GetLocation())
	if !domain.IsWithinWindow(campaign.Settings, now) {
		return nil
	}
	if !s.intervalElapsed(campaign, now) {
		return nil
	}

	capped, err := s.dailyCapReached(ctx, campaign, now)
	if err != nil {
		return fmt.Errorf("count leads touched today: %w", err)
	}
	if capped {
		return nil
	}

	lead, ok, err := s.selector.SelectNext(ctx, campaign.ID)
	if err != nil {
		return fmt.Errorf("select next lead: %w", err)
	}
	if !ok {
		return nil
	}

	s.markTurn(campaign.ID, now)

	_, err = s.turns.Run(ctx, lead, campaign)
	return err
}

func (s *IntervalScheduler) intervalElapsed(campaign domain.Campaign, now time.Time) bool {
	if campaign.Settings.MessageInterval <= 0 {
		return true
	}

	s.mu.Lock()
	last, ok := s.lastTurn[campaign.ID]
	s.mu.Unlock()

	if !ok {
		return true
	}
	return now.Sub(last) >= time.Duration(campaign.Settings.MessageInterval)*time.Second
}

func (s *IntervalScheduler) markTurn(campaignID uuid.UUID, now time.Time) {
	s.mu.Lock()
	s.lastTurn[campaignID] = now
	s.mu.Unlock()
}

func (s *IntervalScheduler) dailyCapReached(ctx context.Context, campaign domain.Campaign, now time.Time) (bool, error) {
	limit := campaign.Settings.MaxLeadsPerDay
	if limit <= 0 {
		return false, nil
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	touched, err := s.leads.CountLeadsTouchedSince(ctx, campaign.ID, midnight)
	if err != nil {
		return false, err
	}
	return touched >= limit, nil
}
