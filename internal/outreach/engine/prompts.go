package engine

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"outreach_backend/internal/outreach/domain"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPromptsYAML []byte

type promptFile struct {
	System   string `yaml:"system"`
	Opening  string `yaml:"opening"`
	FollowUp string `yaml:"follow_up"`
}

// PromptTemplates renders the system prompt and trigger instructions for a turn.
type PromptTemplates struct {
	system   *template.Template
	opening  string
	followUp string
}

type promptData struct {
	Offer   domain.OfferContext
	Lead    domain.Lead
	Persona string
}

// DefaultPromptTemplates returns the built-in templates.
func DefaultPromptTemplates() (*PromptTemplates, error) {
	return ParsePromptTemplates(defaultPromptsYAML)
}

// LoadPromptTemplates reads templates from path, or the built-in ones when path is empty.
func LoadPromptTemplates(path string) (*PromptTemplates, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultPromptTemplates()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt templates: %w", err)
	}
	return ParsePromptTemplates(raw)
}

// ParsePromptTemplates parses a YAML document with system, opening and follow_up keys.
func ParsePromptTemplates(raw []byte) (*PromptTemplates, error) {
	var file promptFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse prompt templates: %w", err)
	}
	if strings.TrimSpace(file.System) == "" || strings.TrimSpace(file.Opening) == "" || strings.TrimSpace(file.FollowUp) == "" {
		return nil, fmt.Errorf("prompt templates need system, opening and follow_up")
	}

	system, err := template.New("system").Option("missingkey=zero").Parse(file.System)
	if err != nil {
		return nil, fmt.Errorf("parse system prompt: %w", err)
	}

	return &PromptTemplates{
		system:   system,
		opening:  strings.TrimSpace(file.Opening),
		followUp: strings.TrimSpace(file.FollowUp),
	}, nil
}

// System renders the system prompt for a lead of a campaign, persona appended.
func (p *PromptTemplates) System(campaign domain.Campaign, lead domain.Lead) (string, error) {
	var buf bytes.Buffer
	data := promptData{
		Offer:   campaign.Offer,
		Lead:    lead,
		Persona: strings.TrimSpace(campaign.Agent.SystemPrompt),
	}
	if err := p.system.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render system prompt: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Trigger returns the instruction appended as the final user turn.
func (p *PromptTemplates) Trigger(historyEmpty bool) string {
	if historyEmpty {
		return p.opening
	}
	return p.followUp
}
