package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/tubedesk/backend/internal/apperrors"
	"github.com/tubedesk/backend/internal/auth"
	"github.com/tubedesk/backend/internal/logging"
	"github.com/tubedesk/backend/internal/models"
	"github.com/tubedesk/backend/internal/repositories"
)

// AuthHandler implements the sign-in and token endpoints.
type AuthHandler struct {
	Identity IdentityResolver
	Tokens   TokenService
	Users    UserStore
}

// External handles POST /api/auth/external.
func (h AuthHandler) External(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Identity == nil || h.Tokens == nil {
		logger.Error("authentication dependencies unavailable", "hasIdentity", h.Identity != nil, "hasTokens", h.Tokens != nil)
		respondError(ctx, w, apperrors.Internal("authentication services unavailable", nil))
		return
	}

	var req externalAuthRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	credential := strings.TrimSpace(req.Credential)
	if credential == "" {
		credential = strings.TrimSpace(req.Token)
	}
	if credential == "" {
		respondError(ctx, w, apperrors.Validation("Google token is required"))
		return
	}

	user, err := h.Identity.Resolve(ctx, credential)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidExternalCredential):
			respondError(ctx, w, apperrors.Unauthenticated("Invalid Google credential").WithField("verify_error", err.Error()))
		case errors.Is(err, auth.ErrMissingEmail):
			respondError(ctx, w, apperrors.Validation("Google account has no email address"))
		default:
			respondError(ctx, w, apperrors.Internal("Authentication failed", err))
		}
		return
	}

	tokens, err := h.Tokens.IssuePair(user.ID)
	if err != nil {
		respondError(ctx, w, apperrors.Internal("Authentication failed", err))
		return
	}

	logger.Info("user signed in", "user_id", user.ID)
	respondJSON(ctx, w, http.StatusOK, externalAuthResponse{
		Success:      true,
		User:         user,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
}

// Refresh handles POST /api/auth/refresh.
func (h AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Tokens == nil {
		logging.FromContext(ctx).Error("token service unavailable")
		respondError(ctx, w, apperrors.Internal("session service unavailable", nil))
		return
	}

	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	req.RefreshToken = strings.TrimSpace(req.RefreshToken)
	if req.RefreshToken == "" {
		respondError(ctx, w, apperrors.Validation("Refresh token is required"))
		return
	}

	accessToken, err := h.Tokens.Refresh(ctx, req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserNotFound):
			respondError(ctx, w, apperrors.Unauthenticated("User not found"))
		case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrWrongTokenType):
			respondError(ctx, w, apperrors.Forbidden("Invalid refresh token"))
		default:
			respondError(ctx, w, apperrors.Internal("unable to refresh session", err))
		}
		return
	}

	respondJSON(ctx, w, http.StatusOK, refreshResponse{Success: true, AccessToken: accessToken})
}

// StoreYouTubeToken handles POST /api/auth/youtube-token.
func (h AuthHandler) StoreYouTubeToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Users == nil {
		logging.FromContext(ctx).Error("user store unavailable")
		respondError(ctx, w, apperrors.Internal("authentication services unavailable", nil))
		return
	}

	userID, err := currentUserID(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	var req youtubeTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	req.AccessToken = strings.TrimSpace(req.AccessToken)
	if req.AccessToken == "" {
		respondError(ctx, w, apperrors.Validation("Access token is required"))
		return
	}

	if err := h.Users.SetExternalTokens(ctx, userID, req.AccessToken, strings.TrimSpace(req.RefreshToken)); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, apperrors.Unauthenticated("User not found"))
			return
		}
		respondError(ctx, w, apperrors.Internal("Failed to store YouTube token", err))
		return
	}

	respondJSON(ctx, w, http.StatusOK, messageResponse{Success: true, Message: "YouTube access token stored successfully"})
}

// Logout handles POST /api/auth/logout. Tokens are stateless, so the client just discards them.
func (h AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	respondJSON(r.Context(), w, http.StatusOK, messageResponse{Success: true, Message: "Logged out successfully"})
}

// Me handles GET /api/auth/me.
func (h AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Users == nil {
		logging.FromContext(ctx).Error("user store unavailable")
		respondError(ctx, w, apperrors.Internal("authentication services unavailable", nil))
		return
	}

	userID, err := currentUserID(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, apperrors.Unauthenticated("User not found"))
			return
		}
		respondError(ctx, w, apperrors.Internal("Failed to load user", err))
		return
	}

	respondJSON(ctx, w, http.StatusOK, meResponse{Success: true, User: user, HasYouTubeAccess: user.HasYouTubeAccess()})
}

type externalAuthRequest struct {
	Credential string `json:"credential"`
	Token      string `json:"token"`
}

type externalAuthResponse struct {
	Success      bool        `json:"success"`
	User         models.User `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	Success     bool   `json:"success"`
	AccessToken string `json:"accessToken"`
}

type youtubeTokenRequest struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type meResponse struct {
	Success          bool        `json:"success"`
	User             models.User `json:"user"`
	HasYouTubeAccess bool        `json:"hasYouTubeAccess"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
