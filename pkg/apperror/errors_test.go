package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	e := New("VAL_001", "bad input", http.StatusBadRequest)
	assert.Equal(t, "[VAL_001] bad input", e.Error())

	wrapped := Wrap("SYS_001", "storage", http.StatusInternalServerError, fmt.Errorf("conn refused"))
	assert.Contains(t, wrapped.Error(), "conn refused")
}

func TestAppError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	e := Wrap("SYS_001", "outer", http.StatusInternalServerError, inner)
	assert.ErrorIs(t, e, inner)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrNetwork(errors.New("dial tcp"))))
	assert.True(t, IsRetryable(ErrTimeout(errors.New("deadline"))))
	assert.True(t, IsRetryable(ErrDatabaseError(errors.New("down"))))

	assert.False(t, IsRetryable(ErrInsufficientBalance()))
	assert.False(t, IsRetryable(ErrUnauthorized()))
	assert.False(t, IsRetryable(ErrComplianceBlocked("limit")))
	assert.False(t, IsRetryable(ErrMemoIntegrity("expired")))
	assert.False(t, IsRetryable(errors.New("plain error")))
}

func TestErrorStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusPaymentRequired, ErrInsufficientBalance().HTTPStatus)
	assert.Equal(t, http.StatusForbidden, ErrUnauthorized().HTTPStatus)
	assert.Equal(t, http.StatusUnauthorized, ErrInvalidToken().HTTPStatus)
	assert.Equal(t, http.StatusConflict, ErrWalletExists().HTTPStatus)
	assert.Equal(t, http.StatusUnprocessableEntity, ErrComplianceBlocked("x").HTTPStatus)
	assert.Equal(t, http.StatusBadRequest, ErrMemoIntegrity("hash mismatch").HTTPStatus)
}

func TestErrMemoIntegrity_NeverEchoesInternals(t *testing.T) {
	e := ErrMemoIntegrity("expired")
	assert.NotContains(t, e.Message, "user_id")
	assert.Contains(t, e.Message, "expired")
}
