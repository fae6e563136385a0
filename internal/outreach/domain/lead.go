package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

type LeadStatus string

const (
	LeadPending            LeadStatus = "pending"
	LeadContacted          LeadStatus = "contacted"
	LeadResponded          LeadStatus = "responded"
	LeadNegotiating        LeadStatus = "negotiating"
	LeadQualified          LeadStatus = "qualified"
	LeadLost               LeadStatus = "lost"
	LeadJunk               LeadStatus = "junk"
	LeadConverted          LeadStatus = "converted"
	LeadFailed             LeadStatus = "failed"
	LeadManualIntervention LeadStatus = "manual_intervention"
)

// selectableStatuses are the in-flight states the engine may pick up.
var selectableStatuses = map[LeadStatus]bool{
	LeadPending:     true,
	LeadContacted:   true,
	LeadResponded:   true,
	LeadNegotiating: true,
}

// terminalStatuses end the automated pipeline for a lead.
var terminalStatuses = map[LeadStatus]bool{
	LeadQualified: true,
	LeadLost:      true,
	LeadJunk:      true,
	LeadConverted: true,
	LeadFailed:    true,
}

// SelectableStatuses lists the in-flight statuses in a stable order (for SQL filters).
func SelectableStatuses() []string {
	return []string{
		string(LeadPending),
		string(LeadContacted),
		string(LeadResponded),
		string(LeadNegotiating),
	}
}

func (s LeadStatus) IsSelectable() bool { return selectableStatuses[s] }
func (s LeadStatus) IsTerminal() bool   { return terminalStatuses[s] }

// IsKnown reports whether s belongs to the lead status vocabulary.
func (s LeadStatus) IsKnown() bool {
	return selectableStatuses[s] || terminalStatuses[s] || s == LeadManualIntervention
}

// Lead is one contact pursued within a campaign.
type Lead struct {
	ID              uuid.UUID
	CampaignID      uuid.UUID
	Phone           string
	Name            string
	CustomFields    map[string]any
	Status          LeadStatus
	LastInteraction *time.Time
}

// NextLead returns the selectable lead that was touched longest ago; leads
// never contacted (nil LastInteraction) come first. Ties keep input order.
func NextLead(leads []Lead) (Lead, bool) {
	candidates := make([]Lead, 0, len(leads))
	for _, lead := range leads {
		if lead.Status.IsSelectable() {
			candidates = append(candidates, lead)
		}
	}
	if len(candidates) == 0 {
		return Lead{}, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return interactionBefore(candidates[i].LastInteraction, candidates[j].LastInteraction)
	})
	return candidates[0], true
}

func interactionBefore(a, b *time.Time) bool {
	switch {
	case a == nil && b == nil:
		return false
	case a == nil:
		return true
	case b == nil:
		return false
	default:
		return a.Before(*b)
	}
}
