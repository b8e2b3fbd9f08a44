// Package errors defines the structured API errors returned by the LifeCompass backend
package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode represents different types of errors
type ErrorCode string

const (
	// Authentication and Authorization errors
	ErrUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrForbidden    ErrorCode = "FORBIDDEN"
	ErrExpiredToken ErrorCode = "EXPIRED_TOKEN"

	// Request validation errors
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"
	ErrMissingParameter ErrorCode = "MISSING_PARAMETER"
	ErrValidation       ErrorCode = "VALIDATION_FAILED"

	// Resource errors
	ErrNotFound ErrorCode = "NOT_FOUND"
	ErrConflict ErrorCode = "CONFLICT"

	// Rate limiting errors
	ErrRateLimited ErrorCode = "RATE_LIMITED"

	// Provider errors
	ErrNoProviderConfigured ErrorCode = "NO_PROVIDER_CONFIGURED"
	ErrGenerationFailed     ErrorCode = "GENERATION_FAILED"

	// Internal errors
	ErrInternalServer     ErrorCode = "INTERNAL_SERVER_ERROR"
	ErrServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrDatabaseError      ErrorCode = "DATABASE_ERROR"
)

// AppError represents an error that is safe to return to API clients
type AppError struct {
	Code           ErrorCode         `json:"code"`
	Message        string            `json:"message"`
	Details        string            `json:"details,omitempty"`
	Fields         map[string]string `json:"fields,omitempty"`
	HTTPStatusCode int               `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New creates a new application error
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:           code,
		Message:        message,
		HTTPStatusCode: getHTTPStatusCode(code),
	}
}

// NewWithDetails creates a new application error with details
func NewWithDetails(code ErrorCode, message, details string) *AppError {
	return &AppError{
		Code:           code,
		Message:        message,
		Details:        details,
		HTTPStatusCode: getHTTPStatusCode(code),
	}
}

// NewValidation creates a validation error carrying per-field messages
func NewValidation(fields map[string]string) *AppError {
	return &AppError{
		Code:           ErrValidation,
		Message:        "Validation failed",
		Fields:         fields,
		HTTPStatusCode: getHTTPStatusCode(ErrValidation),
	}
}

// getHTTPStatusCode maps error codes to HTTP status codes
func getHTTPStatusCode(code ErrorCode) int {
	switch code {
	case ErrUnauthorized, ErrExpiredToken:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrInvalidRequest, ErrMissingParameter:
		return http.StatusBadRequest
	case ErrValidation:
		return http.StatusUnprocessableEntity
	case ErrNotFound:
		return http.StatusNotFound
	case ErrConflict:
		return http.StatusConflict
	case ErrRateLimited:
		return http.StatusTooManyRequests
	case ErrNoProviderConfigured, ErrServiceUnavailable:
		return http.StatusServiceUnavailable
	case ErrGenerationFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Common error instances
var (
	ErrAuthenticationRequired = New(ErrUnauthorized, "Authentication required")
	ErrInvalidCredentials     = New(ErrUnauthorized, "Invalid credentials")
	ErrAccessDenied           = New(ErrForbidden, "Access denied")
	ErrInvalidRequestFormat   = New(ErrInvalidRequest, "Invalid request format")
	ErrResourceNotFound       = New(ErrNotFound, "Resource not found")
	ErrInternal               = New(ErrInternalServer, "Internal server error")
)
