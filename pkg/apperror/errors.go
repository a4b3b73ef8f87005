package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Retryable  bool   `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// IsRetryable reports whether the error is transient and safe to retry.
// Only network/timeout/storage-class errors qualify; validation,
// authorization, balance and compliance errors are final.
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// ---- Validation (VAL) ----

func ErrValidation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

func ErrInvalidAmount() *AppError {
	return New("VAL_002", "Invalid amount", http.StatusBadRequest)
}

func ErrAmountOutOfRange(min, max string) *AppError {
	return New("VAL_003", fmt.Sprintf("Amount must be between %s and %s", min, max), http.StatusBadRequest)
}

func ErrInvalidAddress() *AppError {
	return New("VAL_004", "Invalid wallet address format", http.StatusBadRequest)
}

func ErrAddressMismatch() *AppError {
	return New("VAL_005", "Withdrawals may only be sent to your connected wallet", http.StatusBadRequest)
}

// ---- Security & Authorization (SEC) ----

func ErrUnauthorized() *AppError {
	return New("SEC_001", "You are not authorized to access this resource", http.StatusForbidden)
}

func ErrInvalidToken() *AppError {
	return New("SEC_002", "Invalid or expired session", http.StatusUnauthorized)
}

func ErrMemoIntegrity(reason string) *AppError {
	return New("SEC_003", fmt.Sprintf("Deposit memo rejected: %s", reason), http.StatusBadRequest)
}

func ErrCrossUserQuery() *AppError {
	return New("SEC_004", "I can only help you with your own wallet. I cannot access other users' information.", http.StatusForbidden)
}

// ---- Wallet Business Logic (PAY) ----

func ErrInsufficientBalance() *AppError {
	return New("PAY_001", "Insufficient available balance", http.StatusPaymentRequired)
}

func ErrWalletNotFound() *AppError {
	return New("PAY_002", "Wallet not found", http.StatusNotFound)
}

func ErrWalletExists() *AppError {
	return New("PAY_003", "A wallet already exists for this account", http.StatusConflict)
}

func ErrNotFound(entity string) *AppError {
	return New("PAY_004", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrComplianceBlocked(reason string) *AppError {
	return New("PAY_005", fmt.Sprintf("Operation blocked by compliance policy: %s", reason), http.StatusUnprocessableEntity)
}

func ErrJobNotCancellable() *AppError {
	return New("PAY_006", "Job is no longer pending and cannot be cancelled", http.StatusConflict)
}

// ---- Network & External Dependencies (NET) ----

func ErrNetwork(err error) *AppError {
	e := Wrap("NET_001", "External service unavailable", http.StatusBadGateway, err)
	e.Retryable = true
	return e
}

func ErrTimeout(err error) *AppError {
	e := Wrap("NET_002", "External service timed out", http.StatusGatewayTimeout, err)
	e.Retryable = true
	return e
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	e := Wrap("SYS_001", "Internal storage error", http.StatusInternalServerError, err)
	e.Retryable = true
	return e
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap("SYS_002", "Encryption service failure", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}
