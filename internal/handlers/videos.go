package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/tubedesk/backend/internal/apperrors"
	"github.com/tubedesk/backend/internal/logging"
	"github.com/tubedesk/backend/internal/models"
	"github.com/tubedesk/backend/internal/repositories"
	"github.com/tubedesk/backend/internal/youtube"
)

const cachedDataWarning = "Using cached data - YouTube API unavailable"

// VideoHandler provides the dashboard video endpoints.
type VideoHandler struct {
	Videos    VideoStore
	Users     UserStore
	YouTube   YouTubeClient
	Snapshots SnapshotArchiver
}

func (h VideoHandler) ready(ctx context.Context, w http.ResponseWriter, needsRemote bool) bool {
	if h.Videos == nil || h.Users == nil || (needsRemote && h.YouTube == nil) {
		logging.FromContext(ctx).Error("video dependencies unavailable",
			"hasVideos", h.Videos != nil, "hasUsers", h.Users != nil, "hasYouTube", h.YouTube != nil)
		respondError(ctx, w, apperrors.Internal("video services unavailable", nil))
		return false
	}
	return true
}

// List handles GET /api/videos.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(ctx, w, false) {
		return
	}
	userID, err := currentUserID(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	videos, err := h.Videos.List(ctx, userID)
	if err != nil {
		respondError(ctx, w, apperrors.Internal("Failed to fetch videos", err))
		return
	}
	respondJSON(ctx, w, http.StatusOK, videoListResponse{Success: true, Videos: videos})
}

// Get handles GET /api/videos/{id}. The stored row is refreshed from YouTube
// when possible; otherwise the cached copy is returned with a warning.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(ctx, w, false) {
		return
	}
	userID, err := currentUserID(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	id, err := pathID(r, "id", "Video ID must be a number")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	video, err := h.Videos.Get(ctx, id, userID)
	if err != nil {
		respondError(ctx, w, storeError(err, "Video not found", "Failed to fetch video details"))
		return
	}

	refreshed, err := h.refresh(ctx, userID, video)
	if err != nil {
		logging.FromContext(ctx).Warn("serving cached video", "video_id", video.ID, "error", err)
		respondJSON(ctx, w, http.StatusOK, videoResponse{Success: true, Video: video, Warning: cachedDataWarning})
		return
	}
	respondJSON(ctx, w, http.StatusOK, videoResponse{Success: true, Video: refreshed})
}

func (h VideoHandler) refresh(ctx context.Context, userID int64, video models.Video) (models.Video, error) {
	if h.YouTube == nil {
		return models.Video{}, errors.New("youtube client not configured")
	}
	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		return models.Video{}, err
	}
	details, err := h.YouTube.FetchVideo(ctx, user.ExternalAccessToken, video.YouTubeVideoID)
	if err != nil {
		return models.Video{}, err
	}
	updated, err := h.Videos.ApplyRemote(ctx, video.ID, userID, details)
	if err != nil {
		return models.Video{}, err
	}
	h.archive(ctx, details)
	return updated, nil
}

// Sync handles POST /api/videos/sync.
func (h VideoHandler) Sync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(ctx, w, true) {
		return
	}
	userID, err := currentUserID(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	var req syncRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	input := strings.TrimSpace(req.ExternalVideoID)
	if input == "" {
		input = strings.TrimSpace(req.YouTubeVideoID)
	}
	if input == "" {
		respondError(ctx, w, apperrors.Validation("YouTube video ID is required"))
		return
	}
	videoID, err := youtube.ExtractVideoID(input)
	if err != nil {
		respondError(ctx, w, apperrors.Validation("Invalid YouTube video ID or URL"))
		return
	}

	exists, err := h.Videos.ExistsByYouTubeID(ctx, videoID)
	if err != nil {
		respondError(ctx, w, apperrors.Internal("Failed to sync video", err))
		return
	}
	if exists {
		respondError(ctx, w, apperrors.Conflict("Video already exists in dashboard"))
		return
	}

	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		respondError(ctx, w, storeError(err, "User not found", "Failed to sync video"))
		return
	}

	details, err := h.YouTube.FetchVideo(ctx, user.ExternalAccessToken, videoID)
	if err != nil {
		respondError(ctx, w, youtubeError(err, "sync videos"))
		return
	}

	video, err := h.Videos.Create(ctx, userID, details)
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, apperrors.Conflict("Video already exists in dashboard"))
			return
		}
		respondError(ctx, w, apperrors.Internal("Failed to sync video", err))
		return
	}
	h.archive(ctx, details)

	respondJSON(ctx, w, http.StatusCreated, videoResponse{Success: true, Video: video, Message: "Video synced successfully"})
}

// Update handles PUT /api/videos/{id}. Edits are local only; see Publish.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(ctx, w, false) {
		return
	}
	userID, err := currentUserID(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	id, err := pathID(r, "id", "Video ID must be a number")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	var patch models.VideoPatch
	if err := decodeJSON(r, &patch); err != nil {
		respondError(ctx, w, err)
		return
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if !lengthBetween(title, 1, 500) {
			respondError(ctx, w, apperrors.Validation("Title must be 1-500 characters"))
			return
		}
		patch.Title = &title
	}
	if patch.Description != nil && !lengthBetween(*patch.Description, 0, 5000) {
		respondError(ctx, w, apperrors.Validation("Description must be less than 5000 characters"))
		return
	}

	video, err := h.Videos.Update(ctx, id, userID, patch)
	if err != nil {
		respondError(ctx, w, storeError(err, "Video not found", "Failed to update video"))
		return
	}
	respondJSON(ctx, w, http.StatusOK, videoResponse{Success: true, Video: video, Message: "Video updated successfully"})
}

// Publish handles POST /api/videos/{id}/publish, pushing the stored title and
// description to YouTube.
func (h VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(ctx, w, true) {
		return
	}
	userID, err := currentUserID(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	id, err := pathID(r, "id", "Video ID must be a number")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	video, err := h.Videos.Get(ctx, id, userID)
	if err != nil {
		respondError(ctx, w, storeError(err, "Video not found", "Failed to publish video"))
		return
	}
	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		respondError(ctx, w, storeError(err, "User not found", "Failed to publish video"))
		return
	}

	patch := models.VideoPatch{Title: &video.Title, Description: &video.Description}
	if _, err := h.YouTube.UpdateVideo(ctx, user.ExternalAccessToken, video.YouTubeVideoID, patch); err != nil {
		respondError(ctx, w, youtubeError(err, "update videos"))
		return
	}
	respondJSON(ctx, w, http.StatusOK, videoResponse{Success: true, Video: video, Message: "Video published to YouTube"})
}

// Delete handles DELETE /api/videos/{id}. Comments and notes are removed with it.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(ctx, w, false) {
		return
	}
	userID, err := currentUserID(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	id, err := pathID(r, "id", "Video ID must be a number")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	if err := h.Videos.Delete(ctx, id, userID); err != nil {
		respondError(ctx, w, storeError(err, "Video not found", "Failed to delete video"))
		return
	}
	respondJSON(ctx, w, http.StatusOK, messageResponse{Success: true, Message: "Video removed from dashboard"})
}

// Remote handles GET /api/videos/remote, listing the caller's own uploads on YouTube.
func (h VideoHandler) Remote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(ctx, w, true) {
		return
	}
	userID, err := currentUserID(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	var limit int64
	if raw := strings.TrimSpace(r.URL.Query().Get("max")); raw != "" {
		limit, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || limit < 1 || limit > 50 {
			respondError(ctx, w, apperrors.Validation("max must be between 1 and 50"))
			return
		}
	}

	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		respondError(ctx, w, storeError(err, "User not found", "Failed to list YouTube videos"))
		return
	}
	videos, err := h.YouTube.ListOwnedVideos(ctx, user.ExternalAccessToken, limit)
	if err != nil {
		respondError(ctx, w, youtubeError(err, "list YouTube videos"))
		return
	}
	respondJSON(ctx, w, http.StatusOK, remoteVideosResponse{Success: true, Videos: videos})
}

func (h VideoHandler) archive(ctx context.Context, details models.VideoDetails) {
	if h.Snapshots == nil || len(details.Raw) == 0 {
		return
	}
	key, err := h.Snapshots.Archive(ctx, details.YouTubeVideoID, details.Raw)
	if err != nil {
		logging.FromContext(ctx).Warn("archive video snapshot", "youtube_video_id", details.YouTubeVideoID, "error", err)
		return
	}
	logging.FromContext(ctx).Debug("archived video snapshot", "key", key)
}

type syncRequest struct {
	ExternalVideoID string `json:"externalVideoId"`
	YouTubeVideoID  string `json:"youtubeVideoId"`
}

type videoResponse struct {
	Success bool         `json:"success"`
	Video   models.Video `json:"video"`
	Message string       `json:"message,omitempty"`
	Warning string       `json:"warning,omitempty"`
}

type videoListResponse struct {
	Success bool           `json:"success"`
	Videos  []models.Video `json:"videos"`
}

type remoteVideosResponse struct {
	Success bool                  `json:"success"`
	Videos  []models.VideoDetails `json:"videos"`
}
