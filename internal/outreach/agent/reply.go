package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"outreach_backend/internal/outreach/domain"
	"outreach_backend/internal/outreach/engine"
)

type replyPayload struct {
	Thought    string          `json:"thought"`
	Messages   json.RawMessage `json:"messages"`
	CRMActions json.RawMessage `json:"crm_actions"`
}

// ParseReply decodes the model output. Code fences and text around the JSON
// object are tolerated; messages and crm_actions may be a string or a list.
func ParseReply(raw string) (engine.Reply, error) {
	body := extractJSONObject(raw)
	if body == "" {
		return engine.Reply{}, fmt.Errorf("reply is not a json object: %q", truncate(raw, 200))
	}

	var payload replyPayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return engine.Reply{}, fmt.Errorf("decode reply: %w", err)
	}

	messages, err := stringList(payload.Messages)
	if err != nil {
		return engine.Reply{}, fmt.Errorf("decode reply messages: %w", err)
	}
	actions, err := stringList(payload.CRMActions)
	if err != nil {
		return engine.Reply{}, fmt.Errorf("decode reply crm_actions: %w", err)
	}

	return engine.Reply{
		Thought:    strings.TrimSpace(payload.Thought),
		Messages:   messages,
		CRMActions: domain.ParseCRMActions(actions),
	}, nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return ""
	}
	return raw[start : end+1]
}

func stringList(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	if raw[0] == '"' {
		var single string
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil, err
		}
		return []string{single}, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
