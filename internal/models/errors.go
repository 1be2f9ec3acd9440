package models

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeValidation represents malformed or oversized payloads (4xx)
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeAuthentication represents failed credential resolution (401)
	ErrorTypeAuthentication ErrorType = "authentication"
	// ErrorTypeAuthorization represents insufficient role (403)
	ErrorTypeAuthorization ErrorType = "authorization"
	// ErrorTypeNotFound represents resource not found errors (404)
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeRateLimit represents rate limiting errors (429)
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeBudget represents the usage ledger's hard stop (402)
	ErrorTypeBudget ErrorType = "budget"
	// ErrorTypeProvider represents downstream model provider errors (502)
	ErrorTypeProvider ErrorType = "provider"
	// ErrorTypeTimeout represents timeout errors (504)
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeInternal represents internal server errors (500)
	ErrorTypeInternal ErrorType = "internal"
)

// ErrBudgetExceeded is the sentinel the usage ledger returns when a record
// would push cumulative cost over the configured ceiling. Callers must not
// retry: the call cannot succeed until the budget is reset or raised.
var ErrBudgetExceeded = errors.New("budget limit exceeded")

// ErrKeyNotFound is returned by the credential registry for keys that are
// absent or revoked. The two cases are deliberately indistinguishable.
var ErrKeyNotFound = errors.New("API key not found")

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Code       string    `json:"code,omitempty"`
	StatusCode int       `json:"-"`
	Retryable  bool      `json:"retryable"`
	Cause      error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// GetStatusCode returns the HTTP status code for the error
func (e *AppError) GetStatusCode() int {
	if e.StatusCode > 0 {
		return e.StatusCode
	}

	switch e.Type {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case ErrorTypeAuthorization:
		return http.StatusForbidden
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case ErrorTypeBudget:
		return http.StatusPaymentRequired
	case ErrorTypeProvider:
		return http.StatusBadGateway
	case ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// NewValidationError creates a validation error
func NewValidationError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Retryable:  false,
		Cause:      cause,
	}
}

// NewAuthenticationError creates the generic authentication failure. The
// externally visible message never distinguishes expired tokens from unknown
// keys; the cause stays internal for logs.
func NewAuthenticationError(cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeAuthentication,
		Message:    "authentication required or invalid",
		Code:       "AUTHENTICATION_FAILED",
		StatusCode: http.StatusUnauthorized,
		Retryable:  false,
		Cause:      cause,
	}
}

// NewAuthorizationError creates an insufficient-role error for a known caller.
func NewAuthorizationError(required Role) *AppError {
	return &AppError{
		Type:       ErrorTypeAuthorization,
		Message:    fmt.Sprintf("insufficient permissions: requires role %s", required),
		Code:       "INSUFFICIENT_ROLE",
		StatusCode: http.StatusForbidden,
		Retryable:  false,
	}
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError() *AppError {
	return &AppError{
		Type:       ErrorTypeRateLimit,
		Message:    "rate limit exceeded, please try again later",
		Code:       "RATE_LIMIT_EXCEEDED",
		StatusCode: http.StatusTooManyRequests,
		Retryable:  true,
	}
}

// NewBudgetExceededError creates the terminal budget failure for a call.
func NewBudgetExceededError(remaining float64) *AppError {
	return &AppError{
		Type:       ErrorTypeBudget,
		Message:    fmt.Sprintf("budget limit exceeded, remaining: $%.4f", remaining),
		Code:       "BUDGET_EXCEEDED",
		StatusCode: http.StatusPaymentRequired,
		Retryable:  false,
		Cause:      ErrBudgetExceeded,
	}
}

// NewProviderError creates a provider error
func NewProviderError(provider, message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeProvider,
		Message:    fmt.Sprintf("provider %s error: %s", provider, message),
		Code:       fmt.Sprintf("PROVIDER_%s_ERROR", provider),
		StatusCode: http.StatusBadGateway,
		Retryable:  true,
		Cause:      cause,
	}
}

// NewInternalError creates an internal server error
func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    "internal server error",
		StatusCode: http.StatusInternalServerError,
		Retryable:  false,
		Cause:      cause,
	}
}

// SanitizeError sanitizes an error for external consumption. Internal causes
// (stack traces, storage paths, secret material) never reach a response body.
func SanitizeError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Type:       appErr.Type,
			Message:    appErr.Message,
			Code:       appErr.Code,
			StatusCode: appErr.GetStatusCode(),
			Retryable:  appErr.Retryable,
		}
	}

	return NewInternalError("an unexpected error occurred", err)
}
