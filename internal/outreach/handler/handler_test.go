package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"outreach_backend/internal/outreach/domain"
	"outreach_backend/internal/outreach/repository"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type fakeStore struct {
	leads     map[uuid.UUID]domain.Lead
	campaigns map[uuid.UUID]domain.Campaign
}

func (s *fakeStore) GetLead(_ context.Context, id uuid.UUID) (domain.Lead, error) {
	lead, ok := s.leads[id]
	if !ok {
		return domain.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (s *fakeStore) SetManualIntervention(_ context.Context, id uuid.UUID) error {
	lead, ok := s.leads[id]
	if !ok {
		return repository.ErrNotFound
	}
	lead.Status = domain.LeadManualIntervention
	s.leads[id] = lead
	return nil
}

func (s *fakeStore) ReleaseManualIntervention(_ context.Context, id uuid.UUID) error {
	lead, ok := s.leads[id]
	if !ok || lead.Status != domain.LeadManualIntervention {
		return repository.ErrNotFound
	}
	lead.Status = domain.LeadContacted
	s.leads[id] = lead
	return nil
}

func (s *fakeStore) GetCampaign(_ context.Context, id uuid.UUID) (domain.Campaign, error) {
	campaign, ok := s.campaigns[id]
	if !ok {
		return domain.Campaign{}, repository.ErrNotFound
	}
	return campaign, nil
}

func (s *fakeStore) SetCampaignStatus(_ context.Context, id uuid.UUID, status domain.CampaignStatus) error {
	campaign, ok := s.campaigns[id]
	if !ok {
		return repository.ErrNotFound
	}
	campaign.Status = status
	s.campaigns[id] = campaign
	return nil
}

type fakePicker struct {
	lead  domain.Lead
	found bool
}

func (p fakePicker) SelectNext(context.Context, uuid.UUID) (domain.Lead, bool, error) {
	return p.lead, p.found, nil
}

type fixture struct {
	store    *fakeStore
	lead     domain.Lead
	campaign domain.Campaign
	router   *gin.Engine
}

func newFixture(t *testing.T, picker LeadPicker) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	campaign := domain.Campaign{ID: uuid.New(), Name: "Consultoria X", Status: domain.CampaignActive}
	lead := domain.Lead{ID: uuid.New(), CampaignID: campaign.ID, Name: "Maria", Phone: "11987654321", Status: domain.LeadContacted}
	store := &fakeStore{
		leads:     map[uuid.UUID]domain.Lead{lead.ID: lead},
		campaigns: map[uuid.UUID]domain.Campaign{campaign.ID: campaign},
	}

	h, err := New(store, picker, validator.New(), logger.New("test"))
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	r := gin.New()
	r.POST("/leads/:id/takeover", h.Takeover)
	r.POST("/leads/:id/release", h.Release)
	r.PATCH("/campaigns/:id/status", h.UpdateCampaignStatus)
	r.GET("/campaigns/:id/leads/next", h.PreviewNextLead)

	return &fixture{store: store, lead: lead, campaign: campaign, router: r}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestTakeoverAndRelease(t *testing.T) {
	f := newFixture(t, fakePicker{})

	rec := f.do(http.MethodPost, "/leads/"+f.lead.ID.String()+"/takeover", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("takeover: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp LeadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != string(domain.LeadManualIntervention) {
		t.Fatalf("expected manual_intervention, got %s", resp.Status)
	}

	rec = f.do(http.MethodPost, "/leads/"+f.lead.ID.String()+"/release", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("release: expected 200, got %d", rec.Code)
	}
	if f.store.leads[f.lead.ID].Status != domain.LeadContacted {
		t.Fatalf("expected lead back to contacted, got %s", f.store.leads[f.lead.ID].Status)
	}

	rec = f.do(http.MethodPost, "/leads/"+f.lead.ID.String()+"/release", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("second release: expected 409, got %d", rec.Code)
	}
}

func TestTakeoverErrors(t *testing.T) {
	f := newFixture(t, fakePicker{})

	if rec := f.do(http.MethodPost, "/leads/not-a-uuid/takeover", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", rec.Code)
	}
	if rec := f.do(http.MethodPost, "/leads/"+uuid.NewString()+"/takeover", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown lead, got %d", rec.Code)
	}
}

func TestUpdateCampaignStatus(t *testing.T) {
	f := newFixture(t, fakePicker{})
	path := "/campaigns/" + f.campaign.ID.String() + "/status"

	rec := f.do(http.MethodPatch, path, `{"status":"paused"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if f.store.campaigns[f.campaign.ID].Status != domain.CampaignPaused {
		t.Fatalf("expected campaign paused")
	}

	rec = f.do(http.MethodPatch, path, `{"status":"archived"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", rec.Code)
	}
	var errResp struct {
		Details map[string]string `json:"details"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &errResp)
	if errResp.Details["status"] != "campaign_status" {
		t.Fatalf("expected field error on status, got %v", errResp.Details)
	}

	if rec := f.do(http.MethodPatch, "/campaigns/"+uuid.NewString()+"/status", `{"status":"active"}`); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown campaign, got %d", rec.Code)
	}
}

func TestPreviewNextLead(t *testing.T) {
	lead := domain.Lead{ID: uuid.New(), Name: "João", Status: domain.LeadPending}
	f := newFixture(t, fakePicker{lead: lead, found: true})

	rec := f.do(http.MethodGet, "/campaigns/"+f.campaign.ID.String()+"/leads/next", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp NextLeadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Lead == nil || resp.Lead.ID != lead.ID {
		t.Fatalf("expected preview of %s, got %+v", lead.ID, resp.Lead)
	}

	empty := newFixture(t, fakePicker{})
	rec = empty.do(http.MethodGet, "/campaigns/"+empty.campaign.ID.String()+"/leads/next", "")
	if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte(`"lead":null`)) {
		t.Fatalf("expected null lead, got %d %s", rec.Code, rec.Body.String())
	}

	if rec := f.do(http.MethodGet, "/campaigns/"+uuid.NewString()+"/leads/next", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown campaign, got %d", rec.Code)
	}
}
