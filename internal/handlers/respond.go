package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/tubedesk/backend/internal/apperrors"
	"github.com/tubedesk/backend/internal/auth"
	"github.com/tubedesk/backend/internal/logging"
	"github.com/tubedesk/backend/internal/repositories"
	"github.com/tubedesk/backend/internal/youtube"
)

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

// respondError writes the failure envelope for err. Unstructured errors become 500s.
func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	structured := apperrors.AsStructuredError(err)
	if structured.Cause != nil {
		ctx = logging.With(ctx, "error", structured.Cause.Error())
	}
	for k, v := range structured.Context {
		ctx = logging.With(ctx, k, v)
	}
	respondJSON(ctx, w, structured.HTTPStatus(), structured.ToResponse())
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.Validation("invalid request body").WithField("decode_error", err.Error())
	}
	return nil
}

// storeError converts repository sentinels into client errors. Missing and
// foreign rows are both reported as notFound.
func storeError(err error, notFound, failure string) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return apperrors.NotFound(notFound)
	case errors.Is(err, repositories.ErrConflict):
		return apperrors.Conflict(failure)
	default:
		return apperrors.Internal(failure, err)
	}
}

func currentUserID(ctx context.Context) (int64, error) {
	id, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return 0, apperrors.Unauthenticated("Authentication required")
	}
	return id, nil
}

func pathID(r *http.Request, name, message string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.PathValue(name)), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.Validation(message)
	}
	return id, nil
}

func lengthBetween(s string, lo, hi int) bool {
	n := utf8.RuneCountInString(s)
	return n >= lo && n <= hi
}

// youtubeError maps adapter failures. action completes "YouTube access required to ...".
func youtubeError(err error, action string) error {
	var svcErr *youtube.ServiceError
	switch {
	case errors.Is(err, youtube.ErrExternalAccessRequired):
		return apperrors.Forbidden("YouTube access required to " + action)
	case errors.Is(err, youtube.ErrVideoNotFound):
		return apperrors.NotFound("Video not found on YouTube")
	case errors.As(err, &svcErr):
		return apperrors.External("Failed to "+action, err).
			WithField("youtube_status", svcErr.Status).
			WithField("youtube_token_rejected", svcErr.Forbidden())
	default:
		return apperrors.External("Failed to "+action, err)
	}
}
