package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gift-market-wallet/internal/adapter/http/dto"
	"gift-market-wallet/internal/core/domain"
	"gift-market-wallet/internal/core/ports"
	"gift-market-wallet/internal/core/ports/mocks"
	"gift-market-wallet/internal/service"
	"gift-market-wallet/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testUserID = int64(42)

// newAuthedContext builds a test context whose request carries the resolved
// caller identity, the way JWTAuth installs it.
func newAuthedContext(w *httptest.ResponseRecorder, method, target string, body []byte) (*gin.Context, *ports.AuthContext) {
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	auth := &ports.AuthContext{UserID: testUserID, Username: "alice", SessionID: uuid.NewString()}
	c.Request = c.Request.WithContext(service.WithAuthContext(c.Request.Context(), auth))
	return c, auth
}

// --- Auth Handler Tests ---

func TestOpenSession_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	users := mocks.NewMockUserRepository(ctrl)
	tokens := mocks.NewMockTokenService(ctrl)
	audit := mocks.NewMockAuditService(ctrl)
	h := NewAuthHandler(users, tokens, audit)

	expiry := time.Now().Add(time.Hour)
	users.EXPECT().Upsert(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ interface{}, u *domain.User) error {
			assert.Equal(t, testUserID, u.ID)
			assert.Equal(t, domain.AuthMethodTelegram, u.AuthMethod)
			return nil
		})
	tokens.EXPECT().Generate(gomock.Any()).Return("tok", expiry, nil)
	audit.EXPECT().Log(gomock.Any(), testUserID, domain.AuditActionSessionOpened, "session", "", gomock.Any())

	body, _ := json.Marshal(dto.SessionRequest{TelegramID: testUserID, Username: "alice"})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/auth/session", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.OpenSession(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "tok", data["token"])
}

func TestOpenSession_MissingTelegramID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewAuthHandler(mocks.NewMockUserRepository(ctrl), mocks.NewMockTokenService(ctrl), mocks.NewMockAuditService(ctrl))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/auth/session", bytes.NewReader([]byte("{}")))
	c.Request.Header.Set("Content-Type", "application/json")

	h.OpenSession(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Wallet Handler Tests ---

func TestGetWallet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	walletSvc := mocks.NewMockWalletService(ctrl)
	h := NewWalletHandler(walletSvc, mocks.NewMockLedgerService(ctrl), mocks.NewMockGuard(ctrl))

	wallet := &domain.Wallet{
		ID:      uuid.New(),
		UserID:  testUserID,
		Address: "UQBFzDL2cRGZz9gNJmDXLdGYyU_nO0Ri9pvY60yQ3qHm8t2w",
	}
	walletSvc.EXPECT().GetWallet(gomock.Any(), gomock.Any(), testUserID).Return(wallet, nil)

	w := httptest.NewRecorder()
	c, _ := newAuthedContext(w, http.MethodGet, "/api/v1/wallet", nil)

	h.GetWallet(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, wallet.Address, data["address"])
}

func TestGetWallet_Unauthenticated(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewWalletHandler(mocks.NewMockWalletService(ctrl), mocks.NewMockLedgerService(ctrl), mocks.NewMockGuard(ctrl))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil)

	h.GetWallet(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetWallet_ForeignUserIDForwardedToService(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	walletSvc := mocks.NewMockWalletService(ctrl)
	h := NewWalletHandler(walletSvc, mocks.NewMockLedgerService(ctrl), mocks.NewMockGuard(ctrl))

	// The handler forwards the requested id; the service's guard decides.
	walletSvc.EXPECT().GetWallet(gomock.Any(), gomock.Any(), int64(99)).
		Return(nil, apperror.ErrUnauthorized())

	w := httptest.NewRecorder()
	c, _ := newAuthedContext(w, http.MethodGet, "/api/v1/wallet?user_id=99", nil)

	h.GetWallet(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreateWallet_Accepted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	walletSvc := mocks.NewMockWalletService(ctrl)
	h := NewWalletHandler(walletSvc, mocks.NewMockLedgerService(ctrl), mocks.NewMockGuard(ctrl))

	jobID := uuid.New()
	walletSvc.EXPECT().CreateWallet(gomock.Any(), gomock.Any(), testUserID).Return(jobID, nil)

	w := httptest.NewRecorder()
	c, _ := newAuthedContext(w, http.MethodPost, "/api/v1/wallet", nil)

	h.CreateWallet(c)

	assert.Equal(t, http.StatusAccepted, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, jobID.String(), data["job_id"])
	assert.Equal(t, "pending", data["status"])
}

func TestGetBalance_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	walletSvc := mocks.NewMockWalletService(ctrl)
	h := NewWalletHandler(walletSvc, mocks.NewMockLedgerService(ctrl), mocks.NewMockGuard(ctrl))

	walletSvc.EXPECT().GetBalance(gomock.Any(), gomock.Any(), testUserID).Return(&domain.BalanceSummary{
		Deposited: decimal.NewFromInt(8),
		Withdrawn: decimal.NewFromInt(4),
		Available: decimal.NewFromInt(4),
	}, nil)

	w := httptest.NewRecorder()
	c, _ := newAuthedContext(w, http.MethodGet, "/api/v1/wallet/balance", nil)

	h.GetBalance(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "4", data["available"])
}

func TestListTransactions_GuardBlocksForeignTarget(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	guard := mocks.NewMockGuard(ctrl)
	h := NewWalletHandler(mocks.NewMockWalletService(ctrl), mocks.NewMockLedgerService(ctrl), guard)

	guard.EXPECT().AssertOwner(gomock.Any(), gomock.Any(), int64(7), "transactions").
		Return(apperror.ErrUnauthorized())

	w := httptest.NewRecorder()
	c, _ := newAuthedContext(w, http.MethodGet, "/api/v1/wallet/transactions?user_id=7", nil)

	h.ListTransactions(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestInitiateDeposit_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	walletSvc := mocks.NewMockWalletService(ctrl)
	h := NewWalletHandler(walletSvc, mocks.NewMockLedgerService(ctrl), mocks.NewMockGuard(ctrl))

	txID := uuid.New()
	walletSvc.EXPECT().InitiateDeposit(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ interface{}, _ *ports.AuthContext, req ports.DepositRequest) (*ports.DepositIntent, error) {
			assert.True(t, req.Amount.Equal(decimal.RequireFromString("5.5")))
			return &ports.DepositIntent{
				DepositAddress: "UQBFzDL2cRGZz9gNJmDXLdGYyU_nO0Ri9pvY60yQ3qHm8t2w",
				Memo:           &domain.EncryptedMemo{EncryptedData: "aa"},
				TransactionID:  txID,
				JobID:          uuid.New(),
			}, nil
		})

	body, _ := json.Marshal(dto.DepositRequest{
		Amount:       "5.5",
		PayerAddress: "EQDrjaLahLkMB-hMCmkzOyBuHJ139ZUYmPHu6RRBKnbdLIYI",
	})
	w := httptest.NewRecorder()
	c, _ := newAuthedContext(w, http.MethodPost, "/api/v1/wallet/deposits", body)

	h.InitiateDeposit(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, txID.String(), data["transaction_id"])
}

func TestInitiateDeposit_BadAmount(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewWalletHandler(mocks.NewMockWalletService(ctrl), mocks.NewMockLedgerService(ctrl), mocks.NewMockGuard(ctrl))

	body, _ := json.Marshal(dto.DepositRequest{Amount: "-1", PayerAddress: "EQDrjaLahLkMB-hMCmkzOyBuHJ139ZUYmPHu6RRBKnbdLIYI"})
	w := httptest.NewRecorder()
	c, _ := newAuthedContext(w, http.MethodPost, "/api/v1/wallet/deposits", body)

	h.InitiateDeposit(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Withdrawal Handler Tests ---

func TestWithdrawal_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	withdrawalSvc := mocks.NewMockWithdrawalService(ctrl)
	h := NewWithdrawalHandler(withdrawalSvc)

	txID := uuid.New()
	withdrawalSvc.EXPECT().ProcessWithdrawal(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&ports.WithdrawalResult{Success: true, TransactionID: txID, Message: "Withdrawal completed"}, nil)

	body, _ := json.Marshal(dto.WithdrawalRequest{
		Amount:                 "2",
		DestinationAddress:     "EQDrjaLahLkMB-hMCmkzOyBuHJ139ZUYmPHu6RRBKnbdLIYI",
		ConnectedWalletAddress: "EQDrjaLahLkMB-hMCmkzOyBuHJ139ZUYmPHu6RRBKnbdLIYI",
	})
	w := httptest.NewRecorder()
	c, _ := newAuthedContext(w, http.MethodPost, "/api/v1/wallet/withdrawals", body)

	h.Create(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, true, data["success"])
	assert.Equal(t, txID.String(), data["transaction_id"])
}

func TestWithdrawal_InsufficientBalance(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	withdrawalSvc := mocks.NewMockWithdrawalService(ctrl)
	h := NewWithdrawalHandler(withdrawalSvc)

	withdrawalSvc.EXPECT().ProcessWithdrawal(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrInsufficientBalance())

	body, _ := json.Marshal(dto.WithdrawalRequest{
		Amount:                 "1000",
		DestinationAddress:     "EQDrjaLahLkMB-hMCmkzOyBuHJ139ZUYmPHu6RRBKnbdLIYI",
		ConnectedWalletAddress: "EQDrjaLahLkMB-hMCmkzOyBuHJ139ZUYmPHu6RRBKnbdLIYI",
	})
	w := httptest.NewRecorder()
	c, _ := newAuthedContext(w, http.MethodPost, "/api/v1/wallet/withdrawals", body)

	h.Create(c)

	assert.Equal(t, apperror.ErrInsufficientBalance().HTTPStatus, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "PAY_001", resp["error_code"])
}

// --- Assistant Handler Tests ---

func TestAssistantQuery_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	assistantSvc := mocks.NewMockAssistantService(ctrl)
	h := NewAssistantHandler(assistantSvc)

	assistantSvc.EXPECT().ProcessQuery(gomock.Any(), gomock.Any(), "what is my balance").
		Return(&ports.AssistantReply{Message: "Your available balance is 4 TON."}, nil)

	body, _ := json.Marshal(dto.AssistantRequest{Query: "what is my balance"})
	w := httptest.NewRecorder()
	c, _ := newAuthedContext(w, http.MethodPost, "/api/v1/assistant/query", body)

	h.Query(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Contains(t, data["message"], "balance")
}

func TestAssistantQuery_EmptyBodyRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewAssistantHandler(mocks.NewMockAssistantService(ctrl))

	w := httptest.NewRecorder()
	c, _ := newAuthedContext(w, http.MethodPost, "/api/v1/assistant/query", []byte("{}"))

	h.Query(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Jobs Handler Tests ---

func TestJobCancel_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	queue := mocks.NewMockJobQueue(ctrl)
	h := NewJobsHandler(queue)

	jobID := uuid.New()
	queue.EXPECT().Cancel(gomock.Any(), gomock.Any(), jobID).Return(nil)

	w := httptest.NewRecorder()
	c, _ := newAuthedContext(w, http.MethodPost, "/api/v1/jobs/"+jobID.String()+"/cancel", nil)
	c.Params = gin.Params{{Key: "id", Value: jobID.String()}}

	h.Cancel(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJobCancel_BadID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewJobsHandler(mocks.NewMockJobQueue(ctrl))

	w := httptest.NewRecorder()
	c, _ := newAuthedContext(w, http.MethodPost, "/api/v1/jobs/not-a-uuid/cancel", nil)
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}

	h.Cancel(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Health Handler Tests ---

type fakeChecker struct {
	name string
	err  error
}

func (f fakeChecker) Ping(_ context.Context) error { return f.err }
func (f fakeChecker) Name() string                 { return f.name }

func TestHealthCheck_AllHealthy(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck(fakeChecker{name: "postgresql"}, fakeChecker{name: "redis"})(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthCheck_Degraded(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck(fakeChecker{name: "postgresql"}, fakeChecker{name: "redis", err: errors.New("connection refused")})(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp["status"])
}
