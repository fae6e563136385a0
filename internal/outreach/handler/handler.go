// Package handler exposes the operator endpoints of the outreach engine.
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"outreach_backend/internal/outreach/domain"
	"outreach_backend/internal/outreach/repository"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/httpkit"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/validator"

	"github.com/gin-gonic/gin"
	gpvalidator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	errInvalidRequest = "invalid request body"
	errValidation     = "validation error"
	errInvalidLeadID  = "invalid lead ID"
	errInvalidCampID  = "invalid campaign ID"
	errLeadNotFound   = "lead not found"
	errCampNotFound   = "campaign not found"
)

// Store is the persistence the operator endpoints need.
type Store interface {
	GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	SetManualIntervention(ctx context.Context, id uuid.UUID) error
	ReleaseManualIntervention(ctx context.Context, id uuid.UUID) error
	GetCampaign(ctx context.Context, id uuid.UUID) (domain.Campaign, error)
	SetCampaignStatus(ctx context.Context, id uuid.UUID, status domain.CampaignStatus) error
}

// LeadPicker previews which lead the scheduler would take next.
type LeadPicker interface {
	SelectNext(ctx context.Context, campaignID uuid.UUID) (domain.Lead, bool, error)
}

type Handler struct {
	store  Store
	picker LeadPicker
	val    *validator.Validator
	log    *logger.Logger
}

// New creates the handler and registers the campaign_status validation tag on val.
func New(store Store, picker LeadPicker, val *validator.Validator, log *logger.Logger) (*Handler, error) {
	if err := val.RegisterValidation("campaign_status", func(fl gpvalidator.FieldLevel) bool {
		return domain.IsKnownCampaignStatus(fl.Field().String())
	}); err != nil {
		return nil, err
	}
	return &Handler{store: store, picker: picker, val: val, log: log}, nil
}

type LeadResponse struct {
	ID              uuid.UUID  `json:"id"`
	CampaignID      uuid.UUID  `json:"campaignId"`
	Name            string     `json:"name"`
	Phone           string     `json:"phone"`
	Status          string     `json:"status"`
	LastInteraction *time.Time `json:"lastInteraction"`
}

type NextLeadResponse struct {
	Lead *LeadResponse `json:"lead"`
}

type UpdateCampaignStatusRequest struct {
	Status string `json:"status" validate:"required,campaign_status"`
}

type CampaignStatusResponse struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

func toLeadResponse(lead domain.Lead) LeadResponse {
	return LeadResponse{
		ID:              lead.ID,
		CampaignID:      lead.CampaignID,
		Name:            lead.Name,
		Phone:           lead.Phone,
		Status:          string(lead.Status),
		LastInteraction: lead.LastInteraction,
	}
}

// Takeover hands a lead to the calling operator. In-flight turns stop before
// their next message.
// POST /api/v1/leads/:id/takeover
func (h *Handler) Takeover(c *gin.Context) {
	id, ok := parseUUIDParam(c, errInvalidLeadID)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := h.store.SetManualIntervention(ctx, id); err != nil {
		httpkit.HandleError(c, mapNotFound(err, errLeadNotFound))
		return
	}

	h.operatorLog(c).Info("lead taken over", "leadId", id)
	h.respondLead(c, id)
}

// Release gives a taken-over lead back to the engine.
// POST /api/v1/leads/:id/release
func (h *Handler) Release(c *gin.Context) {
	id, ok := parseUUIDParam(c, errInvalidLeadID)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := h.store.ReleaseManualIntervention(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			httpkit.HandleError(c, apperr.Conflict("lead is not under manual intervention"))
			return
		}
		httpkit.HandleError(c, err)
		return
	}

	h.operatorLog(c).Info("lead released", "leadId", id)
	h.respondLead(c, id)
}

// UpdateCampaignStatus moves a campaign through its lifecycle.
// PATCH /api/v1/campaigns/:id/status
func (h *Handler) UpdateCampaignStatus(c *gin.Context) {
	id, ok := parseUUIDParam(c, errInvalidCampID)
	if !ok {
		return
	}

	var req UpdateCampaignStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errValidation, validator.FieldErrors(err))
		return
	}

	status := domain.CampaignStatus(req.Status)
	if err := h.store.SetCampaignStatus(c.Request.Context(), id, status); err != nil {
		httpkit.HandleError(c, mapNotFound(err, errCampNotFound))
		return
	}

	h.operatorLog(c).Info("campaign status changed", "campaignId", id, "status", status)
	httpkit.OK(c, CampaignStatusResponse{ID: id, Status: string(status)})
}

// PreviewNextLead shows the lead the next interval turn would pick.
// GET /api/v1/campaigns/:id/leads/next
func (h *Handler) PreviewNextLead(c *gin.Context) {
	id, ok := parseUUIDParam(c, errInvalidCampID)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.store.GetCampaign(ctx, id); err != nil {
		httpkit.HandleError(c, mapNotFound(err, errCampNotFound))
		return
	}

	lead, found, err := h.picker.SelectNext(ctx, id)
	if httpkit.HandleError(c, err) {
		return
	}

	var resp NextLeadResponse
	if found {
		l := toLeadResponse(lead)
		resp.Lead = &l
	}
	httpkit.OK(c, resp)
}

func (h *Handler) respondLead(c *gin.Context, id uuid.UUID) {
	lead, err := h.store.GetLead(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, mapNotFound(err, errLeadNotFound))
		return
	}
	httpkit.OK(c, toLeadResponse(lead))
}

func (h *Handler) operatorLog(c *gin.Context) *logger.Logger {
	if operatorID, ok := httpkit.OperatorID(c); ok {
		return h.log.WithOperator(operatorID)
	}
	return h.log
}

func parseUUIDParam(c *gin.Context, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, message, nil)
		return uuid.UUID{}, false
	}
	return id, true
}

func mapNotFound(err error, message string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(message)
	}
	return err
}
