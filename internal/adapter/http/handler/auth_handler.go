package handler

import (
	"gift-market-wallet/internal/adapter/http/dto"
	"gift-market-wallet/internal/core/domain"
	"gift-market-wallet/internal/core/ports"
	"gift-market-wallet/pkg/apperror"
	"gift-market-wallet/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuthHandler opens authenticated sessions for marketplace users.
type AuthHandler struct {
	users  ports.UserRepository
	tokens ports.TokenService
	audit  ports.AuditService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users ports.UserRepository, tokens ports.TokenService, audit ports.AuditService) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, audit: audit}
}

// OpenSession handles POST /api/v1/auth/session. The user row is created on
// first authentication; the Telegram id is the immutable user id.
func (h *AuthHandler) OpenSession(c *gin.Context) {
	var req dto.SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.ErrValidation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	method := domain.AuthMethod(req.AuthMethod)
	if method == "" {
		method = domain.AuthMethodTelegram
	}

	user := &domain.User{
		ID:          req.TelegramID,
		Username:    req.Username,
		DisplayName: req.DisplayName,
		AuthMethod:  method,
	}
	if err := h.users.Upsert(c.Request.Context(), user); err != nil {
		response.Error(c, apperror.ErrDatabaseError(err))
		return
	}

	token, expiresAt, err := h.tokens.Generate(user)
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}

	h.audit.Log(c.Request.Context(), user.ID, domain.AuditActionSessionOpened, "session", "", map[string]interface{}{
		"auth_method": string(method),
		"client_ip":   c.ClientIP(),
	})

	response.OK(c, dto.SessionResponse{Token: token, ExpiresAt: expiresAt})
}
