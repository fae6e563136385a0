package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func leadAt(status LeadStatus, last *time.Time) Lead {
	return Lead{ID: uuid.New(), Status: status, LastInteraction: last}
}

func TestNextLeadPrefersNeverContacted(t *testing.T) {
	now := time.Now()
	old := now.Add(-72 * time.Hour)
	recent := now.Add(-1 * time.Hour)

	leads := []Lead{
		leadAt(LeadContacted, &recent),
		leadAt(LeadContacted, &old),
		leadAt(LeadPending, nil),
	}

	got, ok := NextLead(leads)
	if !ok {
		t.Fatalf("expected a lead to be selected")
	}
	if got.ID != leads[2].ID {
		t.Fatalf("expected never-contacted lead first, got %+v", got)
	}
}

func TestNextLeadPicksEarliestInteraction(t *testing.T) {
	now := time.Now()
	cases := [][]time.Duration{
		{-1 * time.Hour, -5 * time.Hour, -3 * time.Hour},
		{-10 * time.Minute, -20 * time.Minute},
		{-48 * time.Hour, -47 * time.Hour, -49 * time.Hour, -1 * time.Hour},
	}

	for _, offsets := range cases {
		leads := make([]Lead, 0, len(offsets))
		earliest := 0
		for i, off := range offsets {
			ts := now.Add(off)
			leads = append(leads, leadAt(LeadResponded, &ts))
			if off < offsets[earliest] {
				earliest = i
			}
		}

		got, ok := NextLead(leads)
		if !ok {
			t.Fatalf("expected selection for offsets %v", offsets)
		}
		if got.ID != leads[earliest].ID {
			t.Fatalf("offsets %v: expected lead %d, got %+v", offsets, earliest, got)
		}
	}
}

func TestNextLeadNeverReturnsTerminalOrTakenOver(t *testing.T) {
	excluded := []LeadStatus{
		LeadQualified, LeadLost, LeadJunk, LeadConverted, LeadFailed, LeadManualIntervention,
	}

	leads := make([]Lead, 0, len(excluded))
	for _, status := range excluded {
		leads = append(leads, leadAt(status, nil))
	}

	if got, ok := NextLead(leads); ok {
		t.Fatalf("expected no selectable lead, got %+v", got)
	}

	ts := time.Now()
	leads = append(leads, leadAt(LeadNegotiating, &ts))
	got, ok := NextLead(leads)
	if !ok || got.Status != LeadNegotiating {
		t.Fatalf("expected the negotiating lead, got %+v (ok=%v)", got, ok)
	}
}

func TestStatusVocabulary(t *testing.T) {
	for _, s := range SelectableStatuses() {
		if !LeadStatus(s).IsSelectable() || LeadStatus(s).IsTerminal() {
			t.Fatalf("expected %q to be selectable and not terminal", s)
		}
	}
	if LeadManualIntervention.IsSelectable() || LeadManualIntervention.IsTerminal() {
		t.Fatalf("manual_intervention must be neither selectable nor terminal")
	}
	if !LeadManualIntervention.IsKnown() || LeadStatus("archived").IsKnown() {
		t.Fatalf("unexpected IsKnown result")
	}
}
