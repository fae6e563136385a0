// Package domain provides the core business rules of the outreach engine:
// campaign and lead vocabularies, the schedule gate, lead selection order
// and CRM action mapping. It has no I/O.
package domain

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignActive    CampaignStatus = "active"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
)

// IsKnownCampaignStatus reports whether s is part of the campaign lifecycle.
func IsKnownCampaignStatus(s string) bool {
	switch CampaignStatus(s) {
	case CampaignDraft, CampaignActive, CampaignPaused, CampaignCompleted:
		return true
	}
	return false
}

type TriggerType string

const (
	// TriggerInterval campaigns are driven by the periodic scheduler.
	TriggerInterval TriggerType = "interval"
	// TriggerOnline campaigns fire when a pending lead is seen online.
	TriggerOnline TriggerType = "online"
)

// Agent is the LLM persona a campaign speaks through.
type Agent struct {
	ID           uuid.UUID
	Name         string
	Model        string
	Temperature  float32
	SystemPrompt string
}

// OfferContext holds the free-form business facts injected into prompts.
type OfferContext struct {
	Type          string   `json:"type,omitempty"`
	ProductName   string   `json:"product_name,omitempty"`
	Price         Price    `json:"price,omitempty"`
	Goal          string   `json:"goal,omitempty"`
	SellingPoints []string `json:"selling_points,omitempty"`
}

// Price accepts both JSON strings and numbers; the dashboard writes either.
type Price string

func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Price(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*p = Price(n.String())
	return nil
}

// Settings are the timing rules of a campaign.
type Settings struct {
	TriggerType     TriggerType `json:"trigger_type,omitempty"`
	DailyStart      string      `json:"daily_start,omitempty"`
	DailyEnd        string      `json:"daily_end,omitempty"`
	MessageInterval int         `json:"message_interval,omitempty"`
	MaxLeadsPerDay  int         `json:"max_leads_per_day,omitempty"`
}

// IsPresenceTriggered reports whether the campaign fires on contact presence.
func (s Settings) IsPresenceTriggered() bool {
	return strings.EqualFold(string(s.TriggerType), string(TriggerOnline))
}

// Campaign is an outreach job: offer, timing rules and the persona used to talk.
type Campaign struct {
	ID          uuid.UUID
	Name        string
	Status      CampaignStatus
	SessionName string
	Offer       OfferContext
	Settings    Settings
	Agent       Agent
}
