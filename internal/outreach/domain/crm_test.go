package domain

import "testing"

func TestStatusForActionsPrecedence(t *testing.T) {
	cases := []struct {
		name string
		raw  []string
		want LeadStatus
	}{
		{"empty continues", nil, LeadContacted},
		{"qualified wins over lost", []string{"LOST", "QUALIFIED"}, LeadQualified},
		{"lost wins over junk", []string{"JUNK", "LOST"}, LeadLost},
		{"junk wins over converted", []string{"CONVERTED", "JUNK"}, LeadJunk},
		{"converted alone", []string{"CONVERTED"}, LeadConverted},
		{"free-form token", []string{"mark_as_qualified"}, LeadQualified},
		{"unknown falls back", []string{"SCHEDULE_CALL"}, LeadContacted},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := StatusForActions(ParseCRMActions(tc.raw))
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestParseCRMActionRejectsBlank(t *testing.T) {
	if _, ok := ParseCRMAction("   "); ok {
		t.Fatalf("expected blank action to be rejected")
	}
}
