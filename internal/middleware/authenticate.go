package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/tubedesk/backend/internal/apperrors"
	"github.com/tubedesk/backend/internal/auth"
	"github.com/tubedesk/backend/internal/logging"
	"github.com/tubedesk/backend/internal/models"
)

// TokenVerifier resolves an access token to its user.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (models.User, error)
}

// Authenticate requires a valid bearer access token and stores the caller's id
// on the request context.
func Authenticate(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if tokens == nil {
				writeError(ctx, w, apperrors.Internal("authentication services unavailable", nil))
				return
			}

			token := bearerToken(r)
			if token == "" {
				writeError(ctx, w, apperrors.Unauthenticated("No token provided"))
				return
			}

			user, err := tokens.Verify(ctx, token)
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrUserNotFound):
					writeError(ctx, w, apperrors.Unauthenticated("User not found"))
				case errors.Is(err, auth.ErrTokenExpired):
					writeError(ctx, w, apperrors.Unauthenticated("Token expired"))
				case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrWrongTokenType):
					writeError(ctx, w, apperrors.Forbidden("Invalid token"))
				default:
					writeError(ctx, w, apperrors.Internal("authentication failed", err))
				}
				return
			}

			ctx = auth.WithUserID(ctx, user.ID)
			ctx = logging.With(ctx, "user_id", user.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
