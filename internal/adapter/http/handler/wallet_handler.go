package handler

import (
	"strconv"

	"gift-market-wallet/internal/adapter/http/dto"
	"gift-market-wallet/internal/adapter/http/middleware"
	"gift-market-wallet/internal/core/ports"
	"gift-market-wallet/pkg/apperror"
	"gift-market-wallet/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler handles wallet lifecycle and ledger endpoints.
type WalletHandler struct {
	walletSvc ports.WalletService
	ledgerSvc ports.LedgerService
	guard     ports.Guard
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService, ledgerSvc ports.LedgerService, guard ports.Guard) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc, ledgerSvc: ledgerSvc, guard: guard}
}

// targetUserID resolves the user id the request operates on. A user_id query
// parameter is accepted only so the guard can verify it matches the caller;
// identity always comes from the token.
func targetUserID(c *gin.Context, caller *ports.AuthContext) (int64, error) {
	raw := c.Query("user_id")
	if raw == "" {
		return caller.UserID, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ErrValidation("user_id must be a positive integer")
	}
	return id, nil
}

// GetWallet handles GET /api/v1/wallet.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	caller := middleware.AuthFromGin(c)
	if caller == nil {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	userID, err := targetUserID(c, caller)
	if err != nil {
		response.Error(c, err)
		return
	}

	wallet, err := h.walletSvc.GetWallet(c.Request.Context(), caller, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ToWalletResponse(wallet))
}

// CreateWallet handles POST /api/v1/wallet. Creation is asynchronous; the
// response carries the job id to poll.
func (h *WalletHandler) CreateWallet(c *gin.Context) {
	caller := middleware.AuthFromGin(c)
	if caller == nil {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	jobID, err := h.walletSvc.CreateWallet(c.Request.Context(), caller, caller.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, dto.WalletCreatedResponse{JobID: jobID, Status: "pending"})
}

// GetBalance handles GET /api/v1/wallet/balance.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	caller := middleware.AuthFromGin(c)
	if caller == nil {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	userID, err := targetUserID(c, caller)
	if err != nil {
		response.Error(c, err)
		return
	}

	summary, err := h.walletSvc.GetBalance(c.Request.Context(), caller, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ToBalanceResponse(summary))
}

// ListTransactions handles GET /api/v1/wallet/transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	caller := middleware.AuthFromGin(c)
	if caller == nil {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	userID, err := targetUserID(c, caller)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.guard.AssertOwner(c.Request.Context(), caller, userID, "transactions"); err != nil {
		response.Error(c, err)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	entries, err := h.ledgerSvc.History(c.Request.Context(), caller.UserID, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.TransactionResponse, 0, len(entries))
	for i := range entries {
		out = append(out, dto.ToTransactionResponse(&entries[i]))
	}
	response.OK(c, out)
}

// InitiateDeposit handles POST /api/v1/wallet/deposits.
func (h *WalletHandler) InitiateDeposit(c *gin.Context) {
	caller := middleware.AuthFromGin(c)
	if caller == nil {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.DepositRequest
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

	intent, err := h.walletSvc.InitiateDeposit(c.Request.Context(), caller, ports.DepositRequest{
		UserID:       caller.UserID,
		Amount:       amount,
		PayerAddress: req.PayerAddress,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ToDepositResponse(intent))
}
