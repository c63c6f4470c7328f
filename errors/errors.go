package errors

import (
	"fmt"
	"net/http"
)

// Error codes returned in the "error" field of every failure payload.
const (
	CodeUnconfigured  = "unconfigured"
	CodeInvalidConfig = "invalid_configuration"
	CodeUnauthorized  = "unauthorized"
	CodeForbidden     = "forbidden"
	CodeUpstream      = "upstream_error"
	CodeValidation    = "invalid_request"
	CodeSigning       = "signing_error"
	CodeStorage       = "storage_error"
)

// GatewayError is the structured error returned by every component of the
// gateway. Status is the HTTP status an API handler should respond with;
// it is not serialized itself.
type GatewayError struct {
	Code    string   `json:"error"`
	Status  int      `json:"-"`
	Message string   `json:"message,omitempty"`
	Missing []string `json:"missing,omitempty"`
	Errors  []string `json:"errors,omitempty"`
	Body    any      `json:"body,omitempty"`
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewUnconfigured reports credentials that are absent rather than malformed.
// Benign on first run, so callers may log it at a lower severity.
func NewUnconfigured(missing []string) *GatewayError {
	return &GatewayError{
		Code:    CodeUnconfigured,
		Status:  http.StatusBadRequest,
		Message: "Invalid configuration",
		Missing: missing,
	}
}

// NewInvalidConfig reports credentials that are present but malformed.
func NewInvalidConfig(errs []string) *GatewayError {
	return &GatewayError{
		Code:    CodeInvalidConfig,
		Status:  http.StatusBadRequest,
		Message: "Invalid configuration",
		Errors:  errs,
	}
}

// NewUnauthorized reports a request with no authenticated principal.
func NewUnauthorized(description string) *GatewayError {
	return &GatewayError{
		Code:    CodeUnauthorized,
		Status:  http.StatusUnauthorized,
		Message: description,
	}
}

// NewForbidden reports an authenticated principal without a stored user token.
func NewForbidden(description string) *GatewayError {
	return &GatewayError{
		Code:    CodeForbidden,
		Status:  http.StatusForbidden,
		Message: description,
	}
}

// NewUpstream wraps a catalog API failure, passing the upstream status and
// decoded body through for diagnostics. Never retried automatically.
func NewUpstream(status int, body any) *GatewayError {
	if status < http.StatusBadRequest {
		status = http.StatusBadGateway
	}
	return &GatewayError{
		Code:    CodeUpstream,
		Status:  status,
		Message: "Apple Music API error",
		Body:    body,
	}
}

// NewValidation reports malformed caller input, detected before any
// network call is attempted.
func NewValidation(description string) *GatewayError {
	return &GatewayError{
		Code:    CodeValidation,
		Status:  http.StatusBadRequest,
		Message: description,
	}
}

// NewSigning reports a developer-token mint failure (malformed private key).
func NewSigning(description string) *GatewayError {
	return &GatewayError{
		Code:    CodeSigning,
		Status:  http.StatusInternalServerError,
		Message: description,
	}
}

// NewStorage reports a durable write/read failure. Read paths degrade to
// "no token" instead of using this; write paths must surface it.
func NewStorage(description string) *GatewayError {
	return &GatewayError{
		Code:    CodeStorage,
		Status:  http.StatusInternalServerError,
		Message: description,
	}
}
