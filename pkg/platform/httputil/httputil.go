// Package httputil carries the JSON plumbing shared by HTTP handlers:
// response encoding, domain error translation, and request body decoding.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	domainErrors "patas/pkg/domain-errors"
)

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		// best-effort fallback; don't override status for the caller
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// ErrorResponse is the JSON error envelope every endpoint answers with.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WriteError translates a domain error into an HTTP status and the standard
// error envelope. Unknown errors become a generic 500.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *domainErrors.Error
	if !errors.As(err, &domainErr) {
		WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: string(domainErrors.CodeInternal)})
		return
	}

	status := domainErr.Status
	if status == 0 {
		status = CodeToStatus(domainErr.Code)
	}
	WriteJSON(w, status, ErrorResponse{
		Error:   string(domainErr.Code),
		Message: domainErr.Message,
	})
}

// CodeToStatus maps domain error codes to HTTP status codes.
func CodeToStatus(code domainErrors.Code) int {
	switch code {
	case domainErrors.CodeInvalidCredentials:
		return http.StatusUnauthorized
	case domainErrors.CodeNotAuthenticated, domainErrors.CodeSessionExpired:
		return http.StatusUnauthorized
	case domainErrors.CodeMalformedResponse:
		return http.StatusBadRequest
	case domainErrors.CodeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
