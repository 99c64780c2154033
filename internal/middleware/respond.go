package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/tubedesk/backend/internal/apperrors"
	"github.com/tubedesk/backend/internal/logging"
)

// writeError renders err with the same envelope the handlers use.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	structured := apperrors.AsStructuredError(err)
	status := structured.HTTPStatus()

	logger := logging.FromContext(ctx)
	if status >= http.StatusInternalServerError {
		logger.Error("request rejected", "status", status, "message", structured.Message, "error", structured.Cause)
	} else {
		logger.Warn("request rejected", "status", status, "message", structured.Message)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(structured.ToResponse()); err != nil {
		logger.Error("encode response body", "status", status, "error", err)
	}
}
