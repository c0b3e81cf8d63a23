package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	dErrors "patas/pkg/domain-errors"
)

// errorBody is the loose shape backends use for failure payloads; either
// field may carry the human-readable message.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// pickMessage extracts a human-readable message from a failure body,
// accepting both object payloads and plain strings.
func pickMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		if eb.Message != "" {
			return eb.Message
		}
		if eb.Error != "" {
			return eb.Error
		}
	}
	var s string
	if err := json.Unmarshal(body, &s); err == nil {
		return s
	}
	return ""
}

// normalizeStatus turns a non-2xx response into the shared domain error
// shape, carrying the upstream status.
func normalizeStatus(status int, body []byte) error {
	msg := pickMessage(body)
	if msg == "" {
		msg = fmt.Sprintf("backend returned %d %s", status, http.StatusText(status))
	}

	code := dErrors.CodeUpstream
	if status == http.StatusUnauthorized {
		code = dErrors.CodeSessionExpired
	}
	return dErrors.WithStatus(code, status, msg)
}

// normalizeTransport wraps a transport-level failure (dial errors, resets,
// timeouts) into the shared domain error shape.
func normalizeTransport(err error) error {
	return dErrors.Wrap(err, dErrors.CodeNetwork, "request failed: "+err.Error())
}
