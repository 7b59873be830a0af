// Package handler exposes the leads module's HTTP endpoints.
package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"presales_backend/internal/leads/domain"
	"presales_backend/internal/leads/service"
	"presales_backend/internal/leads/transport"
	"presales_backend/platform/apperr"
	"presales_backend/platform/httpkit"
	"presales_backend/platform/validator"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts the lead routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.GetByID)
	rg.PUT("/:id/status", h.UpdateStatus)
}

// List returns a page of leads, newest first.
func (h *Handler) List(c *gin.Context) {
	limit := queryInt(c, "limit", 10)
	offset := queryInt(c, "offset", 0)

	result, err := h.svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		httpkit.Error(c, err)
		return
	}

	httpkit.OK(c, transport.ListResponse{
		Leads:  result.Leads,
		Total:  result.Total,
		Limit:  limit,
		Offset: offset,
	})
}

// GetByID returns a single lead.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, apperr.BadRequest("invalid lead id"))
		return
	}

	lead, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		httpkit.Error(c, err)
		return
	}
	httpkit.OK(c, lead)
}

// UpdateStatus changes the lead's follow-up status.
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, apperr.BadRequest("invalid lead id"))
		return
	}

	var req transport.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, apperr.Validation("validation failed"))
		return
	}

	lead, err := h.svc.UpdateStatus(c.Request.Context(), id, domain.FollowUpStatus(req.Status))
	if err != nil {
		httpkit.Error(c, err)
		return
	}
	httpkit.OK(c, lead)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
