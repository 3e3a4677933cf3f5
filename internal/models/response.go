// Package models defines the configuration structures and API payload types
// shared across the gatekeeper service.
package models

import (
	"time"
)

// DecisionResponse is the JSON body returned by the consume and check
// endpoints. Fields mirror the rate-limit headers so machine callers don't
// have to parse headers.
type DecisionResponse struct {
	Allowed           bool      `json:"allowed"`
	Window            string    `json:"window"`
	Limit             int       `json:"limit"`
	Remaining         int       `json:"remaining"`
	ResetAt           time.Time `json:"reset_at"`
	RetryAfterSeconds int       `json:"retry_after_seconds,omitempty"`
}

// WindowUsageResponse is one window's slice of a usage report.
type WindowUsageResponse struct {
	Count int64 `json:"count"`
	Limit int   `json:"limit"`
}

// UsageResponse reports a key's current counts across all windows.
type UsageResponse struct {
	Key    string              `json:"key"`
	Tier   string              `json:"tier"`
	Minute WindowUsageResponse `json:"minute"`
	Hour   WindowUsageResponse `json:"hour"`
	Day    WindowUsageResponse `json:"day"`
}

// ErrorResponse provides structured error information for API consumers.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Code      string    `json:"code,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthCheckResponse is returned by the health endpoints.
type HealthCheckResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
	Store     string    `json:"store,omitempty"`
}

// Error code constants for machine-readable error responses.
const (
	ErrorCodeBadRequest       = "BAD_REQUEST"         // 400: Invalid request data
	ErrorCodeUnauthorized     = "UNAUTHORIZED"        // 401: Authentication required
	ErrorCodeRateLimited      = "RATE_LIMIT_EXCEEDED" // 429: Over the tier ceiling
	ErrorCodeInternalError    = "INTERNAL_ERROR"      // 500: Server-side error
	ErrorCodeStoreUnavailable = "STORE_UNAVAILABLE"   // 503: Counter store unreachable
	ErrorCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"  // 405: Wrong HTTP method
)

// NewErrorResponse creates a standardized error response.
func NewErrorResponse(message string, code string) *ErrorResponse {
	return &ErrorResponse{
		Error:     "error",
		Message:   message,
		Code:      code,
		Timestamp: time.Now().UTC(),
	}
}
