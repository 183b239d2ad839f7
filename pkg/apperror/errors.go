package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
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

// ---- Wallet (WAL) ----

func ErrInsufficientFunds() *AppError {
	return New("WAL_001", "Insufficient balance in wallet", http.StatusPaymentRequired)
}

func ErrInvalidAmount() *AppError {
	return New("WAL_002", "Amount must be greater than zero", http.StatusBadRequest)
}

func ErrInactiveWallet() *AppError {
	return New("WAL_003", "Wallet is deactivated", http.StatusForbidden)
}

func ErrNotFound(entity string) *AppError {
	return New("WAL_004", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Ledger (LED) ----

func ErrDuplicateReference() *AppError {
	return New("LED_001", "Transaction reference already exists", http.StatusConflict)
}

func ErrInvalidStateTransition(detail string) *AppError {
	return New("LED_002", detail, http.StatusConflict)
}

// ---- Settlement (SET) ----

func ErrSettlementFailure(err error) *AppError {
	return Wrap("SET_001", "Settlement could not be completed", http.StatusInternalServerError, err)
}

func ErrCurrencyMismatch() *AppError {
	return New("SET_002", "Wallet currencies do not match", http.StatusBadRequest)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a WAL_002-style validation error with a custom message.
func Validation(message string) *AppError {
	return New("WAL_002", message, http.StatusBadRequest)
}
