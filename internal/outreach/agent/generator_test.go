package agent

import (
	"context"
	"errors"
	"iter"
	"testing"

	"outreach_backend/internal/outreach/domain"
	"outreach_backend/internal/outreach/engine"
	"outreach_backend/platform/ai/openaicompat"
	"outreach_backend/platform/config"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

type fakeLLM struct {
	name     string
	text     string
	err      error
	requests []*model.LLMRequest
}

func (f *fakeLLM) Name() string { return f.name }

func (f *fakeLLM) GenerateContent(_ context.Context, req *model.LLMRequest, _ bool) iter.Seq2[*model.LLMResponse, error] {
	f.requests = append(f.requests, req)
	return func(yield func(*model.LLMResponse, error) bool) {
		if f.err != nil {
			yield(nil, f.err)
			return
		}
		yield(&model.LLMResponse{
			Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: f.text}}},
		}, nil)
	}
}

func newTestGenerator(llm *fakeLLM) (*Generator, *int) {
	builds := 0
	g := NewGeneratorWithFactory(func(_ context.Context, modelID string) (model.LLM, error) {
		builds++
		return llm, nil
	}, nil)
	return g, &builds
}

func TestGenerateBuildsRequestAndParsesReply(t *testing.T) {
	llm := &fakeLLM{name: "gpt-4o-mini", text: "```json\n{\"thought\":\"warm lead\",\"messages\":[\"Oi!\",\"Tudo bem?\"],\"crm_actions\":[\"mark_qualified\",\"schedule_call\"]}\n```"}
	g, builds := newTestGenerator(llm)

	reply, err := g.Generate(context.Background(), engine.GenerateRequest{
		Model:        "gpt-4o-mini",
		SystemPrompt: "sell things",
		Temperature:  0.3,
		History: []domain.HistoryEntry{
			{Role: domain.RoleUser, Content: "olá"},
			{Role: domain.RoleAssistant, Content: "oi, tudo bem?"},
			{Role: domain.RoleUser, Content: "respond"},
		},
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	if reply.Thought != "warm lead" || len(reply.Messages) != 2 {
		t.Fatalf("unexpected reply: %+v", reply)
	}
	if len(reply.CRMActions) != 1 || reply.CRMActions[0] != domain.ActionQualified {
		t.Fatalf("expected only QUALIFIED to survive, got %v", reply.CRMActions)
	}

	req := llm.requests[0]
	if len(req.Contents) != 3 || req.Contents[1].Role != "model" || req.Contents[0].Role != "user" {
		t.Fatalf("unexpected contents: %+v", req.Contents)
	}
	if req.Config.SystemInstruction.Parts[0].Text != "sell things" {
		t.Fatalf("system prompt not forwarded")
	}
	if req.Config.ResponseMIMEType != "application/json" {
		t.Fatalf("expected json output mode")
	}

	if _, err := g.Generate(context.Background(), engine.GenerateRequest{Model: "gpt-4o-mini"}); err != nil {
		t.Fatalf("second Generate returned error: %v", err)
	}
	if *builds != 1 {
		t.Fatalf("expected the model to be cached, built %d times", *builds)
	}
}

func TestGenerateWrapsRateLimits(t *testing.T) {
	cases := []error{
		errors.Join(errors.New("request failed"), openaicompat.ErrRateLimited),
		errors.New("Error 429, Message: quota, Status: RESOURCE_EXHAUSTED, Details: []"),
	}

	for _, providerErr := range cases {
		g, _ := newTestGenerator(&fakeLLM{err: providerErr})
		_, err := g.Generate(context.Background(), engine.GenerateRequest{Model: "m"})
		if !errors.Is(err, engine.ErrRateLimited) {
			t.Fatalf("expected rate limit for %q, got %v", providerErr, err)
		}
	}
}

func TestGenerateOtherErrorsAreNotRateLimits(t *testing.T) {
	g, _ := newTestGenerator(&fakeLLM{err: errors.New("connection refused")})

	_, err := g.Generate(context.Background(), engine.GenerateRequest{Model: "m"})
	if err == nil || errors.Is(err, engine.ErrRateLimited) {
		t.Fatalf("expected a plain error, got %v", err)
	}
}

func TestGenerateRejectsNonJSON(t *testing.T) {
	g, _ := newTestGenerator(&fakeLLM{text: "Sure! Here is a message for the lead."})

	if _, err := g.Generate(context.Background(), engine.GenerateRequest{Model: "m"}); err == nil {
		t.Fatalf("expected error for non-json output")
	}
}

func TestProviderFactoryFallsBackToOpenAICompatible(t *testing.T) {
	cfg := &config.Config{LLMBaseURL: "http://localhost:1234/v1", LLMDefaultModel: "gpt-4o-mini"}

	llm, err := providerFactory(cfg)(context.Background(), "")
	if err != nil {
		t.Fatalf("factory returned error: %v", err)
	}
	if _, ok := llm.(*openaicompat.Model); !ok {
		t.Fatalf("expected openai-compatible model, got %T", llm)
	}
	if llm.Name() != "gpt-4o-mini" {
		t.Fatalf("expected default model, got %q", llm.Name())
	}

	// Without a Gemini key gemini ids go to the compatible endpoint too.
	llm, err = providerFactory(cfg)(context.Background(), "gemini-2.0-flash")
	if err != nil {
		t.Fatalf("factory returned error: %v", err)
	}
	if _, ok := llm.(*openaicompat.Model); !ok {
		t.Fatalf("expected openai-compatible model, got %T", llm)
	}
}
