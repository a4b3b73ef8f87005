package handler

import (
	"gift-market-wallet/internal/adapter/http/dto"
	"gift-market-wallet/internal/adapter/http/middleware"
	"gift-market-wallet/internal/core/ports"
	"gift-market-wallet/pkg/apperror"
	"gift-market-wallet/pkg/response"

	"github.com/gin-gonic/gin"
)

// WithdrawalHandler handles the withdrawal endpoint.
type WithdrawalHandler struct {
	withdrawalSvc ports.WithdrawalService
}

// NewWithdrawalHandler creates a new WithdrawalHandler.
func NewWithdrawalHandler(withdrawalSvc ports.WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawalSvc: withdrawalSvc}
}

// Create handles POST /api/v1/wallet/withdrawals.
func (h *WithdrawalHandler) Create(c *gin.Context) {
	caller := middleware.AuthFromGin(c)
	if caller == nil {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.ErrValidation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	amount, err := dto.ParseAmount(req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.withdrawalSvc.ProcessWithdrawal(c.Request.Context(), caller, ports.WithdrawalRequest{
		UserID:                 caller.UserID,
		Amount:                 amount,
		DestinationAddress:     req.DestinationAddress,
		ConnectedWalletAddress: req.ConnectedWalletAddress,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.WithdrawalResponse{
		Success:       result.Success,
		TransactionID: result.TransactionID,
		Message:       result.Message,
	})
}
