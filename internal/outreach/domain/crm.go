package domain

import "strings"

// CRMAction is a pipeline decision recommended by the reply generator.
type CRMAction string

const (
	ActionQualified CRMAction = "QUALIFIED"
	ActionLost      CRMAction = "LOST"
	ActionJunk      CRMAction = "JUNK"
	ActionConverted CRMAction = "CONVERTED"
)

// actionPrecedence is the order in which actions decide the lead status.
var actionPrecedence = []struct {
	action CRMAction
	status LeadStatus
}{
	{ActionQualified, LeadQualified},
	{ActionLost, LeadLost},
	{ActionJunk, LeadJunk},
	{ActionConverted, LeadConverted},
}

// ParseCRMAction maps free-form model output onto the closed action set.
// Tokens such as "mark_as_QUALIFIED" are accepted; anything else is unknown.
func ParseCRMAction(raw string) (CRMAction, bool) {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	if upper == "" {
		return "", false
	}
	for _, p := range actionPrecedence {
		if strings.Contains(upper, string(p.action)) {
			return p.action, true
		}
	}
	return "", false
}

// ParseCRMActions keeps the known actions and drops the rest.
func ParseCRMActions(raw []string) []CRMAction {
	actions := make([]CRMAction, 0, len(raw))
	for _, r := range raw {
		if a, ok := ParseCRMAction(r); ok {
			actions = append(actions, a)
		}
	}
	return actions
}

// StatusForActions resolves the lead status a turn should commit:
// QUALIFIED > LOST > JUNK > CONVERTED, otherwise the conversation continues as contacted.
func StatusForActions(actions []CRMAction) LeadStatus {
	for _, p := range actionPrecedence {
		for _, a := range actions {
			if a == p.action {
				return p.status
			}
		}
	}
	return LeadContacted
}
