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

// ---- Request Validation (REQ) ----

// Validation wraps a binding or parsing failure of an incoming request.
func Validation(message string) *AppError {
	return New("REQ_001", message, http.StatusBadRequest)
}

// ---- Pass Resolution (PASS) ----

// ErrPassNotFound covers unknown and inactive passes alike; the client
// message deliberately does not distinguish the two.
func ErrPassNotFound() *AppError {
	return New("PASS_001", "Invalid or expired pass", http.StatusOK)
}

func ErrPassExpired() *AppError {
	return New("PASS_002", "Invalid or expired pass", http.StatusOK)
}

// ---- Identity Verification (IDV) ----

func ErrIdentityRequired(tier int) *AppError {
	return New("IDV_001", fmt.Sprintf("Identity verification tier %d required", tier), http.StatusOK)
}

// ---- Ledger & Settlement (LED) ----

func ErrInsufficientFunds() *AppError {
	return New("LED_001", "Insufficient wallet balance", http.StatusPaymentRequired)
}

func ErrCommitConflict(err error) *AppError {
	return Wrap("LED_002", "Concurrent ledger write conflict", http.StatusConflict, err)
}

func ErrDuplicateRefund() *AppError {
	return New("LED_003", "Refund already exists for this entry", http.StatusConflict)
}

func ErrEntryNotFound(entity string) *AppError {
	return New("LED_004", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrRefundExceedsOriginal() *AppError {
	return New("LED_005", "Refund amount exceeds original entry amount", http.StatusBadRequest)
}

func ErrInvalidAmount() *AppError {
	return New("LED_006", "Invalid amount", http.StatusBadRequest)
}

func ErrNotRefundable() *AppError {
	return New("LED_007", "Entry is not refundable", http.StatusConflict)
}

// ---- Profile Configuration (CFG) ----

// ErrSplitInvariant signals a revenue profile whose percentages do not sum
// to 100. This is a configuration bug, never a user-facing denial.
func ErrSplitInvariant(sum float64) *AppError {
	return New("CFG_001", fmt.Sprintf("Revenue split percentages sum to %.2f, expected 100", sum), http.StatusUnprocessableEntity)
}

func ErrInvalidTaxProfile(message string) *AppError {
	return New("CFG_002", message, http.StatusUnprocessableEntity)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an unexpected fault. Scan handling treats it as a
// fail-closed denial.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}
