package handler

import (
	"gift-market-wallet/internal/adapter/http/dto"
	"gift-market-wallet/internal/adapter/http/middleware"
	"gift-market-wallet/internal/core/ports"
	"gift-market-wallet/pkg/apperror"
	"gift-market-wallet/pkg/response"

	"github.com/gin-gonic/gin"
)

// AssistantHandler handles the wallet assistant endpoint.
type AssistantHandler struct {
	assistantSvc ports.AssistantService
}

// NewAssistantHandler creates a new AssistantHandler.
func NewAssistantHandler(assistantSvc ports.AssistantService) *AssistantHandler {
	return &AssistantHandler{assistantSvc: assistantSvc}
}

// Query handles POST /api/v1/assistant/query.
func (h *AssistantHandler) Query(c *gin.Context) {
	caller := middleware.AuthFromGin(c)
	if caller == nil {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.AssistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.ErrValidation(err.Error()))
		return
	}

	reply, err := h.assistantSvc.ProcessQuery(c.Request.Context(), caller, req.Query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, reply)
}
