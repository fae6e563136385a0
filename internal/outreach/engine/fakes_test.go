package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"outreach_backend/internal/outreach/domain"
	"outreach_backend/internal/outreach/repository"
	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/phone"

	"github.com/google/uuid"
)

var testNow = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		TickInterval:       30 * time.Second,
		ReplyBackoff:       24 * time.Hour,
		PresenceCooldown:   5 * time.Minute,
		HistoryLimit:       10,
		DefaultCountryCode: "55",
		PhoneRegion:        "BR",
		Location:           time.UTC,
	}
}

func testLogger() *logger.Logger {
	return logger.New("test")
}

func testCampaign(trigger domain.TriggerType) domain.Campaign {
	return domain.Campaign{
		ID:          uuid.New(),
		Name:        "Consultoria X launch",
		Status:      domain.CampaignActive,
		SessionName: "default",
		Offer: domain.OfferContext{
			Type:        "service",
			ProductName: "Consultoria X",
			Goal:        "meeting",
		},
		Settings: domain.Settings{TriggerType: trigger},
		Agent: domain.Agent{
			ID:           uuid.New(),
			Name:         "Ana",
			Model:        "gpt-4o-mini",
			Temperature:  0.7,
			SystemPrompt: "You are Ana, a friendly consultant.",
		},
	}
}

type leadUpdateCall struct {
	ID     uuid.UUID
	Update repository.LeadUpdate
}

type fakeLeadStore struct {
	mu           sync.Mutex
	leads        map[uuid.UUID]*domain.Lead
	order        []uuid.UUID
	updates      []leadUpdateCall
	statusReads  int
	onStatusRead func(read int, id uuid.UUID)
	listErr      error
	listCalls    int
	touchedToday int
}

func newFakeLeadStore(leads ...domain.Lead) *fakeLeadStore {
	s := &fakeLeadStore{leads: make(map[uuid.UUID]*domain.Lead)}
	for _, lead := range leads {
		s.add(lead)
	}
	return s
}

func (s *fakeLeadStore) add(lead domain.Lead) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := lead
	s.leads[l.ID] = &l
	s.order = append(s.order, l.ID)
}

func (s *fakeLeadStore) setStatus(id uuid.UUID, status domain.LeadStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads[id].Status = status
}

func (s *fakeLeadStore) get(id uuid.UUID) domain.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.leads[id]
}

func (s *fakeLeadStore) ListActiveLeads(_ context.Context, campaignID uuid.UUID, limit int) ([]domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}

	var result []domain.Lead
	for _, id := range s.order {
		lead := s.leads[id]
		if lead.CampaignID == campaignID && lead.Status.IsSelectable() {
			result = append(result, *lead)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i].LastInteraction, result[j].LastInteraction
		if a == nil {
			return b != nil
		}
		return b != nil && a.Before(*b)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *fakeLeadStore) GetLeadStatus(_ context.Context, id uuid.UUID) (domain.LeadStatus, error) {
	s.mu.Lock()
	s.statusReads++
	read := s.statusReads
	hook := s.onStatusRead
	s.mu.Unlock()

	if hook != nil {
		hook(read, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[id]
	if !ok {
		return "", repository.ErrNotFound
	}
	return lead.Status, nil
}

func (s *fakeLeadStore) UpdateLead(ctx context.Context, id uuid.UUID, update repository.LeadUpdate) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, leadUpdateCall{ID: id, Update: update})

	lead, ok := s.leads[id]
	if !ok || lead.Status == domain.LeadManualIntervention {
		return false, nil
	}
	lead.Status = update.Status
	if update.LastInteraction != nil {
		t := *update.LastInteraction
		lead.LastInteraction = &t
	}
	return true, nil
}

func (s *fakeLeadStore) FindPendingLeadByPhone(_ context.Context, campaignID uuid.UUID, digits string) (domain.Lead, error) {
	cfg := testConfig()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		lead := s.leads[id]
		if lead.CampaignID == campaignID && lead.Status == domain.LeadPending &&
			phone.SameNumber(lead.Phone, digits, cfg.GetPhoneRegion(), cfg.GetDefaultCountryCode()) {
			return *lead, nil
		}
	}
	return domain.Lead{}, repository.ErrNotFound
}

func (s *fakeLeadStore) CountLeadsTouchedSince(context.Context, uuid.UUID, time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touchedToday, nil
}

func (s *fakeLeadStore) updateCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.updates)
}

type fakeMessageStore struct {
	mu       sync.Mutex
	chats    map[string]uuid.UUID
	messages map[uuid.UUID][]domain.ChatMessage
	upserts  []repository.SentMessage
	findErr  error
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{
		chats:    make(map[string]uuid.UUID),
		messages: make(map[uuid.UUID][]domain.ChatMessage),
	}
}

func chatKey(session, address string) string { return session + "|" + address }

// seed stores a conversation; fromMe alternates according to the given roles.
func (s *fakeMessageStore) seed(session, address string, start time.Time, roles ...domain.Role) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	chatID := uuid.New()
	s.chats[chatKey(session, address)] = chatID
	for i, role := range roles {
		s.messages[chatID] = append(s.messages[chatID], domain.ChatMessage{
			ID:                uuid.New(),
			ChatID:            chatID,
			ProviderMessageID: fmt.Sprintf("seed-%d", i),
			Body:              fmt.Sprintf("message %d", i),
			FromMe:            role == domain.RoleAssistant,
			SentAt:            start.Add(time.Duration(i) * time.Minute),
		})
	}
	return chatID
}

func (s *fakeMessageStore) FindChatByAddress(_ context.Context, session, address string) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return uuid.Nil, s.findErr
	}
	id, ok := s.chats[chatKey(session, address)]
	if !ok {
		return uuid.Nil, repository.ErrNotFound
	}
	return id, nil
}

func (s *fakeMessageStore) ListRecentMessages(_ context.Context, chatID uuid.UUID, limit int) ([]domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := append([]domain.ChatMessage(nil), s.messages[chatID]...)
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].SentAt.Before(msgs[j].SentAt) })
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func (s *fakeMessageStore) EnsureChat(_ context.Context, session, address, _ string) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := chatKey(session, address)
	if id, ok := s.chats[key]; ok {
		return id, nil
	}
	id := uuid.New()
	s.chats[key] = id
	return id, nil
}

func (s *fakeMessageStore) UpsertMessage(_ context.Context, msg repository.SentMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.upserts {
		if existing.ProviderMessageID == msg.ProviderMessageID {
			return nil
		}
	}
	s.upserts = append(s.upserts, msg)
	return nil
}

type sendCall struct {
	Session string
	Address string
	Text    string
}

type fakeGateway struct {
	mu     sync.Mutex
	sends  []sendCall
	failOn map[int]bool
	onSend func(call int)
}

func (g *fakeGateway) SendText(_ context.Context, session, address, text string) (string, error) {
	g.mu.Lock()
	g.sends = append(g.sends, sendCall{Session: session, Address: address, Text: text})
	call := len(g.sends)
	hook := g.onSend
	fail := g.failOn[call]
	g.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if fail {
		return "", errors.New("gateway unavailable")
	}
	return fmt.Sprintf("wamid-%d", call), nil
}

func (g *fakeGateway) sendCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sends)
}

type fakeGenerator struct {
	mu       sync.Mutex
	reply    Reply
	err      error
	requests []GenerateRequest
}

func (g *fakeGenerator) Generate(_ context.Context, req GenerateRequest) (Reply, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.err != nil {
		return Reply{}, g.err
	}
	return g.reply, nil
}

func (g *fakeGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

type fakeCampaignStore struct {
	campaigns []domain.Campaign
	err       error
}

func (s *fakeCampaignStore) ListActiveCampaigns(context.Context) ([]domain.Campaign, error) {
	return s.campaigns, s.err
}

type turnCall struct {
	Lead     domain.Lead
	Campaign domain.Campaign
}

type fakeTurnRunner struct {
	mu      sync.Mutex
	calls   []turnCall
	err     error
	panicOn uuid.UUID
}

func (r *fakeTurnRunner) Run(_ context.Context, lead domain.Lead, campaign domain.Campaign) (TurnResult, error) {
	r.mu.Lock()
	r.calls = append(r.calls, turnCall{Lead: lead, Campaign: campaign})
	r.mu.Unlock()

	if campaign.ID == r.panicOn {
		panic("boom")
	}
	if r.err != nil {
		return TurnResult{}, r.err
	}
	return TurnResult{Outcome: OutcomeCompleted, Sent: 1, Status: domain.LeadContacted}, nil
}

func (r *fakeTurnRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type turnHarness struct {
	leads     *fakeLeadStore
	messages  *fakeMessageStore
	gateway   *fakeGateway
	generator *fakeGenerator
	sleeps    []time.Duration
	ctrl      *TurnController
}

func newTurnHarness(t interface{ Fatalf(string, ...any) }, leads ...domain.Lead) *turnHarness {
	prompts, err := DefaultPromptTemplates()
	if err != nil {
		t.Fatalf("load prompts: %v", err)
	}

	h := &turnHarness{
		leads:     newFakeLeadStore(leads...),
		messages:  newFakeMessageStore(),
		gateway:   &fakeGateway{failOn: map[int]bool{}},
		generator: &fakeGenerator{},
	}
	h.ctrl = NewTurnController(h.leads, h.messages, h.gateway, h.generator, prompts, testConfig(), testLogger())
	h.ctrl.now = func() time.Time { return testNow }
	h.ctrl.sleep = func(_ context.Context, d time.Duration) error {
		h.sleeps = append(h.sleeps, d)
		return nil
	}
	return h
}
