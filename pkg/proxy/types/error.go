package types

import "net/http"

// ErrorResponse is the JSON error body for locally generated failures.
type ErrorResponse struct {
	// Error contains the error details.
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains detailed error information.
type ErrorDetail struct {
	// Message is a human-readable error message.
	Message string `json:"message"`

	// Type categorizes the error.
	// Possible values: "invalid_request_error", "not_found",
	// "method_not_allowed", "rate_limit_exceeded", "server_error",
	// "bad_gateway", "service_unavailable", "gateway_timeout".
	Type string `json:"type"`

	// Param is the name of the parameter that caused the error (if applicable).
	Param string `json:"param,omitempty"`

	// Code is a machine-readable error code.
	Code string `json:"code,omitempty"`

	// RetryAfter is the suggested wait in seconds before retrying.
	RetryAfter int `json:"retry_after,omitempty"`
}

// Error type constants.
const (
	// ErrorTypeInvalidRequest indicates a client-side error (400).
	ErrorTypeInvalidRequest = "invalid_request_error"

	// ErrorTypeNotFound indicates a resource was not found (404).
	ErrorTypeNotFound = "not_found"

	// ErrorTypeMethodNotAllowed indicates an unsupported method (405).
	ErrorTypeMethodNotAllowed = "method_not_allowed"

	// ErrorTypeRateLimitExceeded indicates a per-identity cap was hit (429).
	ErrorTypeRateLimitExceeded = "rate_limit_exceeded"

	// ErrorTypeServerError indicates an internal server error (500).
	ErrorTypeServerError = "server_error"

	// ErrorTypeBadGateway indicates an origin error (502).
	ErrorTypeBadGateway = "bad_gateway"

	// ErrorTypeServiceUnavailable indicates the relay is saturated or not ready (503).
	ErrorTypeServiceUnavailable = "service_unavailable"

	// ErrorTypeGatewayTimeout indicates an origin timeout (504).
	ErrorTypeGatewayTimeout = "gateway_timeout"
)

// Error code constants for common error scenarios.
const (
	// CodeInvalidValue indicates a parameter has an invalid value.
	CodeInvalidValue = "invalid_value"

	// CodeStreamLimit indicates the identity holds its maximum number of streams.
	CodeStreamLimit = "stream_limit_exceeded"

	// CodeCapacity indicates the global stream cap is saturated.
	CodeCapacity = "capacity_exhausted"

	// CodeUpstreamError indicates the origin failed.
	CodeUpstreamError = "upstream_error"

	// CodeUpstreamTimeout indicates the origin timed out.
	CodeUpstreamTimeout = "upstream_timeout"

	// CodeJournalUnavailable indicates the session journal is disabled or unreachable.
	CodeJournalUnavailable = "journal_unavailable"

	// CodeInternalError indicates an internal server error.
	CodeInternalError = "internal_error"
)

// NewErrorResponse creates a new error response with the given details.
func NewErrorResponse(message, errorType, param, code string) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Message: message,
			Type:    errorType,
			Param:   param,
			Code:    code,
		},
	}
}

// NewInvalidRequestError creates an error response for invalid requests (400).
func NewInvalidRequestError(message, param, code string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeInvalidRequest, param, code)
}

// NewNotFoundError creates an error response for unknown resources (404).
func NewNotFoundError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeNotFound, "", "")
}

// NewMethodNotAllowedError creates an error response for unsupported methods (405).
func NewMethodNotAllowedError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeMethodNotAllowed, "", "")
}

// NewRateLimitError creates an error response for a saturated per-identity
// cap (429) with a retry hint in seconds.
func NewRateLimitError(message string, retryAfter int) *ErrorResponse {
	resp := NewErrorResponse(message, ErrorTypeRateLimitExceeded, "", CodeStreamLimit)
	resp.Error.RetryAfter = retryAfter
	return resp
}

// NewCapacityError creates an error response for a saturated global cap with
// a retry hint in seconds. The status is 429 or 503 depending on deployment.
func NewCapacityError(message string, status, retryAfter int) *ErrorResponse {
	errType := ErrorTypeServiceUnavailable
	if status == http.StatusTooManyRequests {
		errType = ErrorTypeRateLimitExceeded
	}
	resp := NewErrorResponse(message, errType, "", CodeCapacity)
	resp.Error.RetryAfter = retryAfter
	return resp
}

// NewServerError creates an error response for internal server errors (500).
func NewServerError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeServerError, "", CodeInternalError)
}

// NewBadGatewayError creates an error response for origin errors (502).
func NewBadGatewayError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeBadGateway, "", CodeUpstreamError)
}

// NewServiceUnavailableError creates an error response for temporary unavailability (503).
func NewServiceUnavailableError(message, code string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeServiceUnavailable, "", code)
}

// NewGatewayTimeoutError creates an error response for origin timeouts (504).
func NewGatewayTimeoutError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeGatewayTimeout, "", CodeUpstreamTimeout)
}

// HTTPStatusCode returns the appropriate HTTP status code for the error type.
func (e *ErrorDetail) HTTPStatusCode() int {
	switch e.Type {
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case ErrorTypeRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrorTypeServerError:
		return http.StatusInternalServerError
	case ErrorTypeBadGateway:
		return http.StatusBadGateway
	case ErrorTypeServiceUnavailable:
		return http.StatusServiceUnavailable
	case ErrorTypeGatewayTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
