package webhook

import (
	apphttp "outreach_backend/internal/http"
	"outreach_backend/internal/scheduler"
	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/validator"
)

// Module is the WAHA webhook module implementing http.Module.
type Module struct {
	handler *Handler
	hmacKey string
}

// NewModule wires the webhook. presence may be nil when Redis is not configured.
func NewModule(store Store, presence scheduler.PresenceEnqueuer, cfg config.WhatsAppConfig, val *validator.Validator, log *logger.Logger) *Module {
	service := NewService(store, presence, log)
	return &Module{
		handler: NewHandler(service, val),
		hmacKey: cfg.GetWhatsAppWebhookHMACKey(),
	}
}

func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts the gateway callback outside /api/v1; WAHA
// authenticates with an HMAC, not a JWT.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Engine.Group("/webhooks")
	if ctx.WebhookLimiter != nil {
		group.Use(ctx.WebhookLimiter.RateLimit())
	}
	group.Use(HMACMiddleware(m.hmacKey))
	group.POST("/waha", m.handler.HandleEvent)
}

var _ apphttp.Module = (*Module)(nil)
