// Package agent turns a conversation into the next WhatsApp reply using the
// campaign agent's model.
package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"outreach_backend/internal/outreach/domain"
	"outreach_backend/internal/outreach/engine"
	"outreach_backend/platform/ai/openaicompat"
	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"

	"google.golang.org/adk/model"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/genai"
)

// ErrRateLimited is the engine sentinel; generators wrap it on HTTP 429.
var ErrRateLimited = engine.ErrRateLimited

// ModelFactory builds the model.LLM serving a model id.
type ModelFactory func(ctx context.Context, modelID string) (model.LLM, error)

// Generator implements engine.ReplyGenerator on top of ADK models.
type Generator struct {
	newModel ModelFactory
	log      *logger.Logger

	mu     sync.Mutex
	models map[string]model.LLM
}

// NewGenerator routes "gemini*" model ids to the Gemini API (when a key is
// configured) and everything else to the OpenAI-compatible endpoint.
func NewGenerator(cfg config.AIConfig, log *logger.Logger) *Generator {
	return NewGeneratorWithFactory(providerFactory(cfg), log)
}

func NewGeneratorWithFactory(factory ModelFactory, log *logger.Logger) *Generator {
	return &Generator{
		newModel: factory,
		log:      log,
		models:   make(map[string]model.LLM),
	}
}

func providerFactory(cfg config.AIConfig) ModelFactory {
	return func(ctx context.Context, modelID string) (model.LLM, error) {
		if modelID == "" {
			modelID = cfg.GetLLMDefaultModel()
		}

		if strings.HasPrefix(strings.ToLower(modelID), "gemini") && cfg.GetGeminiAPIKey() != "" {
			return gemini.NewModel(ctx, modelID, &genai.ClientConfig{
				APIKey:     cfg.GetGeminiAPIKey(),
				Backend:    genai.BackendGeminiAPI,
				HTTPClient: &http.Client{Timeout: cfg.GetLLMTimeout()},
			})
		}

		return openaicompat.NewModel(openaicompat.Config{
			APIKey:  cfg.GetLLMAPIKey(),
			BaseURL: cfg.GetLLMBaseURL(),
			Model:   modelID,
			Timeout: cfg.GetLLMTimeout(),
		}), nil
	}
}

func (g *Generator) modelFor(ctx context.Context, modelID string) (model.LLM, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if llm, ok := g.models[modelID]; ok {
		return llm, nil
	}
	llm, err := g.newModel(ctx, modelID)
	if err != nil {
		return nil, fmt.Errorf("init model %q: %w", modelID, err)
	}
	g.models[modelID] = llm
	return llm, nil
}

// Generate asks the model for the next turn and decodes its JSON answer.
func (g *Generator) Generate(ctx context.Context, req engine.GenerateRequest) (engine.Reply, error) {
	llm, err := g.modelFor(ctx, req.Model)
	if err != nil {
		return engine.Reply{}, err
	}

	temperature := req.Temperature
	llmReq := &model.LLMRequest{
		Model:    req.Model,
		Contents: toContents(req.History),
		Config: &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: req.SystemPrompt}}},
			Temperature:       &temperature,
			ResponseMIMEType:  "application/json",
		},
	}

	var output strings.Builder
	for resp, err := range llm.GenerateContent(ctx, llmReq, false) {
		if err != nil {
			return engine.Reply{}, classify(err)
		}
		if resp == nil {
			continue
		}
		if resp.ErrorCode != "" {
			return engine.Reply{}, classify(fmt.Errorf("model error %s: %s", resp.ErrorCode, resp.ErrorMessage))
		}
		if resp.Content == nil {
			continue
		}
		for _, part := range resp.Content.Parts {
			if part != nil {
				output.WriteString(part.Text)
			}
		}
	}

	reply, err := ParseReply(output.String())
	if err != nil {
		return engine.Reply{}, err
	}
	if g.log != nil && len(reply.CRMActions) > 0 {
		g.log.Debug("reply generator recommended crm actions", "model", req.Model, "actions", reply.CRMActions)
	}
	return reply, nil
}

func toContents(history []domain.HistoryEntry) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, entry := range history {
		role := string(genai.RoleUser)
		if entry.Role == domain.RoleAssistant {
			role = string(genai.RoleModel)
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: entry.Content}},
		})
	}
	return contents
}

// classify wraps provider throttling errors with ErrRateLimited.
func classify(err error) error {
	if isRateLimit(err) {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	return fmt.Errorf("generate content: %w", err)
}

func isRateLimit(err error) bool {
	if errors.Is(err, openaicompat.ErrRateLimited) || errors.Is(err, ErrRateLimited) {
		return true
	}

	var apiErr *genai.APIError
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED") {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "RESOURCE_EXHAUSTED") || strings.Contains(msg, "Error 429") || strings.Contains(msg, "error 429")
}
