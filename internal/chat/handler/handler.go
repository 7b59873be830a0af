// Package handler exposes the chat module's HTTP endpoints.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"presales_backend/internal/chat/service"
	"presales_backend/internal/chat/transport"
	"presales_backend/platform/apperr"
	"presales_backend/platform/httpkit"
	"presales_backend/platform/validator"
)

type Handler struct {
	svc *service.Orchestrator
	val *validator.Validator
}

func New(svc *service.Orchestrator, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts the chat routes on the protected group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, chatLimiter gin.HandlerFunc) {
	rg.POST("/chat", chatLimiter, h.Chat)
	rg.GET("/sessions/:id", h.GetSession)
	rg.DELETE("/sessions/:id", h.DeleteSession)
}

// Chat processes one conversation turn.
func (h *Handler) Chat(c *gin.Context) {
	var req transport.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, apperr.Validation("validation failed"))
		return
	}

	info := service.UserInfo{}
	if req.UserInfo != nil {
		info = service.UserInfo{
			Name:  req.UserInfo.Name,
			Email: req.UserInfo.Email,
			Phone: req.UserInfo.Phone,
		}
	}

	result, err := h.svc.HandleTurn(c.Request.Context(), req.SessionID, req.Message, info)
	if err != nil {
		httpkit.Error(c, err)
		return
	}

	httpkit.OK(c, transport.FromTurnResult(result))
}

// GetSession returns the session's state and collected facts.
func (h *Handler) GetSession(c *gin.Context) {
	info, err := h.svc.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpkit.Error(c, err)
		return
	}
	httpkit.OK(c, transport.FromSessionInfo(info))
}

// DeleteSession removes the session and archives its transcript.
func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.svc.DeleteSession(c.Request.Context(), c.Param("id")); err != nil {
		httpkit.Error(c, err)
		return
	}
	httpkit.JSON(c, http.StatusOK, gin.H{"status": "deleted", "session_id": c.Param("id")})
}
