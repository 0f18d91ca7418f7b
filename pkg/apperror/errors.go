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

const (
	CodeValidation         = "VAL_001"
	CodeInvalidCredentials = "AUTH_001"
	CodeDuplicateIdentity  = "AUTH_002"
	CodeInvalidToken       = "AUTH_003"
	CodeForbidden          = "AUTH_004"
	CodeStorageFault       = "STO_001"
	CodeStorageTimeout     = "STO_002"
	CodeSubmissionBusy     = "PAY_001"
	CodeRateLimit          = "RATE_001"
	CodeInternal           = "SYS_001"
)

// ---- Validation (VAL) ----

// Validation reports a bad or missing caller-supplied field. Nothing is written.
func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}

// ---- Identity (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New(CodeInvalidCredentials, "Invalid credentials", http.StatusUnauthorized)
}

func ErrDuplicateIdentity() *AppError {
	return New(CodeDuplicateIdentity, "Identity already registered", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New(CodeInvalidToken, "Invalid or expired token", http.StatusUnauthorized)
}

func ErrForbidden() *AppError {
	return New(CodeForbidden, "Administrative access required", http.StatusForbidden)
}

// ---- Storage (STO) ----

// ErrStorageFault reports an unreachable or malformed tabular store.
func ErrStorageFault(err error) *AppError {
	return Wrap(CodeStorageFault, "Storage temporarily unavailable", http.StatusServiceUnavailable, err)
}

// ErrStorageTimeout reports a store call that exceeded its deadline.
func ErrStorageTimeout(err error) *AppError {
	return Wrap(CodeStorageTimeout, "Storage did not respond in time", http.StatusGatewayTimeout, err)
}

// ---- Ledger (PAY) ----

// ErrSubmissionInProgress reports a second submission carrying the token of
// one that has not finished yet.
func ErrSubmissionInProgress() *AppError {
	return New(CodeSubmissionBusy, "A submission with this idempotency key is still being processed", http.StatusConflict)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New(CodeRateLimit, "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap(CodeInternal, "Internal server error", http.StatusInternalServerError, err)
}

// HasCode reports whether err is an *AppError carrying code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsStorageFault reports whether err is a storage fault of either kind, so a
// caller can decide to retry.
func IsStorageFault(err error) bool {
	return HasCode(err, CodeStorageFault) || HasCode(err, CodeStorageTimeout)
}
