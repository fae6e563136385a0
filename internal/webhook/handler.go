package webhook

import (
	"net/http"

	"outreach_backend/platform/apperr"
	"outreach_backend/platform/httpkit"
	"outreach_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	errInvalidRequest = "invalid request body"
	errValidation     = "validation error"
)

// Handler handles WAHA webhook HTTP requests.
type Handler struct {
	service *Service
	val     *validator.Validator
}

func NewHandler(service *Service, val *validator.Validator) *Handler {
	return &Handler{service: service, val: val}
}

// HandleEvent processes one WAHA webhook call.
// POST /webhooks/waha
func (h *Handler) HandleEvent(c *gin.Context) {
	var env Envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(env); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errValidation, validator.FieldErrors(err))
		return
	}

	if err := h.service.Dispatch(c.Request.Context(), env); err != nil {
		// WAHA retries non-2xx responses.
		httpkit.HandleError(c, apperr.Wrap(apperr.KindUnavailable, "event not processed", err).WithOp("webhook.HandleEvent"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
