// Package whatsapp is the HTTP client for the WAHA WhatsApp gateway.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"
)

var ErrNotConfigured = errors.New("whatsapp gateway not configured")

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *logger.Logger
}

type sendTextRequest struct {
	Session string `json:"session"`
	ChatID  string `json:"chatId"`
	Text    string `json:"text"`
}

// sendTextResponse covers both WAHA engines: id is either the serialized
// string or an object carrying _serialized.
type sendTextResponse struct {
	ID json.RawMessage `json:"id"`
}

func NewClient(cfg config.WhatsAppConfig, log *logger.Logger) *Client {
	if cfg.GetWhatsAppURL() == "" {
		return nil
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.GetWhatsAppURL(), "/"),
		apiKey:  cfg.GetWhatsAppKey(),
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     log,
	}
}

// SendText sends a text message to chatID through session and returns the
// provider message id.
func (c *Client) SendText(ctx context.Context, session, chatID, text string) (string, error) {
	if c == nil {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(sendTextRequest{
		Session: session,
		ChatID:  chatID,
		Text:    text,
	})
	if err != nil {
		return "", fmt.Errorf("marshal whatsapp payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/sendText", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("whatsapp gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed sendTextResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decode whatsapp response: %w", err)
	}

	id, err := MessageID(parsed.ID)
	if err != nil {
		return "", err
	}

	c.log.Debug("whatsapp message sent", "session", session, "chat_id", chatID, "message_id", id)
	return id, nil
}

// MessageID extracts a WAHA message id, which is either the serialized string
// or an object carrying _serialized.
func MessageID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", fmt.Errorf("whatsapp response has no message id")
	}

	if raw[0] == '"' {
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			return "", err
		}
		return id, nil
	}

	var obj struct {
		Serialized string `json:"_serialized"`
		ID         string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", fmt.Errorf("decode whatsapp message id: %w", err)
	}
	if obj.Serialized != "" {
		return obj.Serialized, nil
	}
	if obj.ID != "" {
		return obj.ID, nil
	}
	return "", fmt.Errorf("whatsapp response has no message id")
}
