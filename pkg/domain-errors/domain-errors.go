package domainerrors

import "errors"

// Code represents a client-core error category independent of the transport layer.
// These codes describe what went wrong in session/data-access terms, not HTTP terms.
type Code string

const (
	// CodeNotAuthenticated means no session was present when an
	// authenticated action was attempted.
	CodeNotAuthenticated Code = "not_authenticated"
	// CodeSessionExpired means the refresh token expired or refreshing failed;
	// the session has been forced back to anonymous.
	CodeSessionExpired Code = "session_expired"
	// CodeInvalidCredentials means the backend rejected a login attempt.
	CodeInvalidCredentials Code = "invalid_credentials"
	// CodeNetwork covers transport-level failures, including timeouts.
	CodeNetwork Code = "network_error"
	// CodeMalformedResponse means a response body did not have a required shape.
	CodeMalformedResponse Code = "malformed_response"
	// CodeUpstream means the backend returned a non-2xx status with a
	// decodable message.
	CodeUpstream Code = "upstream_error"
	CodeInternal Code = "internal_error"
)

// Error wraps session and data-access failures with a stable code.
// It is transport-agnostic and can be used across session, pipeline, and
// facade layers. Status carries the upstream HTTP status when one applies;
// zero means no status is associated with the failure.
type Error struct {
	Code    Code
	Message string
	Status  int
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// WithStatus creates a new domain error carrying an upstream HTTP status.
func WithStatus(code Code, status int, msg string) error {
	return &Error{Code: code, Message: msg, Status: status}
}

// Wrap creates a new domain error wrapping an existing error.
// If the wrapped error is already a domain error, the original code is preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		// Preserve the original domain code, update message
		return &Error{Code: existing.Code, Message: msg, Status: existing.Status, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// StatusOf returns the upstream HTTP status attached to a domain error,
// or zero when the error carries none.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}
