package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(&config.Config{WhatsAppURL: server.URL + "/", WhatsAppKey: "waha-key"}, logger.New("test"))
}

func TestSendTextPostsToWAHA(t *testing.T) {
	var got sendTextRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/sendText" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "waha-key" {
			t.Errorf("missing api key header")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"id":"true_5511987654321@c.us_3EB0"}`))
	})

	id, err := client.SendText(context.Background(), "default", "5511987654321@c.us", "Olá!")
	if err != nil {
		t.Fatalf("SendText returned error: %v", err)
	}
	if id != "true_5511987654321@c.us_3EB0" {
		t.Fatalf("unexpected id %q", id)
	}
	if got.Session != "default" || got.ChatID != "5511987654321@c.us" || got.Text != "Olá!" {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestSendTextSerializedID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":{"fromMe":true,"id":"3EB0","_serialized":"true_551199@c.us_3EB0"}}`))
	})

	id, err := client.SendText(context.Background(), "default", "551199@c.us", "hi")
	if err != nil {
		t.Fatalf("SendText returned error: %v", err)
	}
	if id != "true_551199@c.us_3EB0" {
		t.Fatalf("unexpected id %q", id)
	}
}

func TestSendTextErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "session not found", http.StatusUnprocessableEntity)
	})

	if _, err := client.SendText(context.Background(), "missing", "551199@c.us", "hi"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNilClientIsNotConfigured(t *testing.T) {
	client := NewClient(&config.Config{}, logger.New("test"))
	if client != nil {
		t.Fatalf("expected nil client without url")
	}
	if _, err := client.SendText(context.Background(), "s", "c", "t"); err != ErrNotConfigured {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
