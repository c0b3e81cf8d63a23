package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"

	domainErrors "patas/pkg/domain-errors"
)

// DecodeJSON decodes a JSON request body into the target type.
// On failure it writes the standard error envelope and returns false.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("failed to decode request body",
			"error", err,
			"path", r.URL.Path,
		)
		WriteError(w, domainErrors.WithStatus(domainErrors.CodeMalformedResponse, http.StatusBadRequest, "invalid request body"))
		return nil, false
	}
	return &req, true
}
