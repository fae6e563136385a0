// Package outreach wires the operator-facing HTTP surface of the campaign engine.
package outreach

import (
	apphttp "outreach_backend/internal/http"
	"outreach_backend/internal/outreach/engine"
	"outreach_backend/internal/outreach/handler"
	"outreach_backend/internal/outreach/repository"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/validator"
)

// Module is the outreach bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
}

func NewModule(repo *repository.Repository, val *validator.Validator, log *logger.Logger) (*Module, error) {
	h, err := handler.New(repo, engine.NewSelector(repo), val, log)
	if err != nil {
		return nil, err
	}
	return &Module{handler: h}, nil
}

func (m *Module) Name() string {
	return "outreach"
}

// RegisterRoutes mounts the operator routes; all of them require a dashboard token.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	leads := ctx.Protected.Group("/leads")
	leads.POST("/:id/takeover", m.handler.Takeover)
	leads.POST("/:id/release", m.handler.Release)

	campaigns := ctx.Protected.Group("/campaigns")
	campaigns.PATCH("/:id/status", m.handler.UpdateCampaignStatus)
	campaigns.GET("/:id/leads/next", m.handler.PreviewNextLead)
}

var _ apphttp.Module = (*Module)(nil)
