package engine

import (
	"context"

	"outreach_backend/internal/outreach/domain"

	"github.com/google/uuid"
)

// Selector picks the next lead of a campaign: the least recently touched
// in-flight lead, never touched leads first.
type Selector struct {
	leads LeadStore
}

func NewSelector(leads LeadStore) *Selector {
	return &Selector{leads: leads}
}

// SelectNext returns ok=false when the campaign has no selectable lead.
func (s *Selector) SelectNext(ctx context.Context, campaignID uuid.UUID) (domain.Lead, bool, error) {
	candidates, err := s.leads.ListActiveLeads(ctx, campaignID, 1)
	if err != nil {
		return domain.Lead{}, false, err
	}
	lead, ok := domain.NextLead(candidates)
	return lead, ok, nil
}
