package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestProductionLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("production", &buf)

	log.WithCampaign("c-1", "Consultoria X").WithLead("l-1").TurnOutcome("completed", 2, 0, "contacted")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected a JSON line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "turn_outcome" || entry["campaign_id"] != "c-1" || entry["lead_id"] != "l-1" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if entry["sent"] != float64(2) {
		t.Fatalf("expected sent=2, got %v", entry["sent"])
	}
}

func TestProductionLoggerSkipsDebug(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter("production", &buf).Debug("agent thought")
	if buf.Len() != 0 {
		t.Fatalf("expected debug to be filtered, got %q", buf.String())
	}

	buf.Reset()
	NewWithWriter("development", &buf).Debug("agent thought")
	if !strings.Contains(buf.String(), "agent thought") {
		t.Fatalf("expected debug output in development, got %q", buf.String())
	}
}

func TestDatabaseErrorCarriesError(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter("production", &buf).WithSession("default").DatabaseError("upsert_message", errors.New("conn reset"))
	out := buf.String()
	if !strings.Contains(out, `"error":"conn reset"`) || !strings.Contains(out, `"session":"default"`) {
		t.Fatalf("unexpected output %q", out)
	}
}
