package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tubedesk/backend/internal/apperrors"
	"github.com/tubedesk/backend/internal/logging"
	"github.com/tubedesk/backend/internal/models"
)

const commentTextMax = 1000

// CommentHandler provides the comment endpoints. Comments are stored locally
// unless the caller asks to publish them, in which case YouTube is written first.
type CommentHandler struct {
	Comments CommentStore
	Videos   VideoStore
	Users    UserStore
	YouTube  YouTubeClient
	NowFunc  func() time.Time
}

func (h CommentHandler) ready(ctx context.Context, w http.ResponseWriter) bool {
	if h.Comments == nil || h.Videos == nil || h.Users == nil {
		logging.FromContext(ctx).Error("comment dependencies unavailable",
			"hasComments", h.Comments != nil, "hasVideos", h.Videos != nil, "hasUsers", h.Users != nil)
		respondError(ctx, w, apperrors.Internal("comment services unavailable", nil))
		return false
	}
	return true
}

// ListForVideo handles GET /api/comments/video/{videoId}.
func (h CommentHandler) ListForVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(ctx, w) {
		return
	}
	userID, err := currentUserID(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	videoID, err := pathID(r, "videoId", "Video ID must be a number")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	if _, err := h.Videos.Get(ctx, videoID, userID); err != nil {
		respondError(ctx, w, storeError(err, "Video not found", "Failed to fetch comments"))
		return
	}

	comments, err := h.Comments.ListForVideo(ctx, videoID, userID)
	if err != nil {
		respondError(ctx, w, apperrors.Internal("Failed to fetch comments", err))
		return
	}
	respondJSON(ctx, w, http.StatusOK, commentListResponse{Success: true, Comments: comments, TotalCount: len(comments)})
}

// Create handles POST /api/comments.
func (h CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(ctx, w) {
		return
	}
	userID, err := currentUserID(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	var req createCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}
	if req.VideoID <= 0 {
		respondError(ctx, w, apperrors.Validation("Video ID must be a number"))
		return
	}
	if strings.TrimSpace(req.Text) == "" || !lengthBetween(req.Text, 1, commentTextMax) {
		respondError(ctx, w, apperrors.Validation("Comment text is required and must be 1-1000 characters"))
		return
	}

	video, err := h.Videos.Get(ctx, req.VideoID, userID)
	if err != nil {
		respondError(ctx, w, storeError(err, "Video not found", "Failed to add comment"))
		return
	}
	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		respondError(ctx, w, storeError(err, "User not found", "Failed to add comment"))
		return
	}

	var comment models.Comment
	if req.Publish {
		if h.YouTube == nil {
			respondError(ctx, w, apperrors.Internal("comment services unavailable", nil))
			return
		}
		comment, err = h.YouTube.InsertComment(ctx, user.ExternalAccessToken, video.YouTubeVideoID, req.Text)
		if err != nil {
			respondError(ctx, w, youtubeError(err, "publish comments"))
			return
		}
	} else {
		comment = h.localComment(user, req.Text)
	}
	comment.VideoID = video.ID

	created, err := h.Comments.Create(ctx, comment)
	if err != nil {
		respondError(ctx, w, storeError(err, "Video not found", "Failed to add comment"))
		return
	}
	respondJSON(ctx, w, http.StatusCreated, commentResponse{Success: true, Comment: &created, Message: "Comment added successfully"})
}

func (h CommentHandler) localComment(user models.User, text string) models.Comment {
	now := h.now()
	author := strings.TrimSpace(user.Name)
	if author == "" {
		author = "User"
	}
	return models.Comment{
		YouTubeCommentID: fmt.Sprintf("%s%d_%s", models.LocalCommentPrefix, now.UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:9]),
		AuthorName:       author,
		TextDisplay:      text,
		PublishedAt:      &now,
		UpdatedAt:        &now,
	}
}

// Reply handles POST /api/comments/{commentId}/reply. Replies always go to YouTube.
func (h CommentHandler) Reply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(ctx, w) {
		return
	}
	userID, err := currentUserID(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	parentID := strings.TrimSpace(r.PathValue("commentId"))

	var req replyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" || !lengthBetween(req.Text, 1, commentTextMax) {
		respondError(ctx, w, apperrors.Validation("Reply text is required and must be 1-1000 characters"))
		return
	}

	parent, err := h.Comments.FindOwnedTopLevel(ctx, parentID, userID)
	if err != nil {
		respondError(ctx, w, storeError(err, "Comment not found", "Failed to add reply"))
		return
	}
	if parent.IsLocal() {
		respondError(ctx, w, apperrors.Validation("Cannot reply to a comment that has not been published to YouTube"))
		return
	}

	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		respondError(ctx, w, storeError(err, "User not found", "Failed to add reply"))
		return
	}
	if h.YouTube == nil {
		respondError(ctx, w, apperrors.Internal("comment services unavailable", nil))
		return
	}

	reply, err := h.YouTube.InsertReply(ctx, user.ExternalAccessToken, parent.YouTubeCommentID, req.Text)
	if err != nil {
		respondError(ctx, w, youtubeError(err, "reply to comments"))
		return
	}
	reply.VideoID = parent.VideoID
	reply.IsReply = true
	reply.ParentCommentID = parent.YouTubeCommentID

	created, err := h.Comments.Create(ctx, reply)
	if err != nil {
		respondError(ctx, w, storeError(err, "Comment not found", "Failed to add reply"))
		return
	}
	respondJSON(ctx, w, http.StatusCreated, commentResponse{Success: true, Reply: &created, Message: "Reply added successfully"})
}

// Delete handles DELETE /api/comments/{commentId}. Published comments are
// removed from YouTube before the local row.
func (h CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(ctx, w) {
		return
	}
	userID, err := currentUserID(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	commentID := strings.TrimSpace(r.PathValue("commentId"))

	comment, err := h.Comments.FindOwned(ctx, commentID, userID)
	if err != nil {
		respondError(ctx, w, storeError(err, "Comment not found", "Failed to delete comment"))
		return
	}

	if !comment.IsLocal() {
		user, err := h.Users.FindByID(ctx, userID)
		if err != nil {
			respondError(ctx, w, storeError(err, "User not found", "Failed to delete comment"))
			return
		}
		if h.YouTube == nil {
			respondError(ctx, w, apperrors.Internal("comment services unavailable", nil))
			return
		}
		if err := h.YouTube.DeleteComment(ctx, user.ExternalAccessToken, comment.YouTubeCommentID); err != nil {
			respondError(ctx, w, youtubeError(err, "delete comments"))
			return
		}
	}

	if err := h.Comments.Delete(ctx, comment.ID, userID); err != nil {
		respondError(ctx, w, storeError(err, "Comment not found", "Failed to delete comment"))
		return
	}
	respondJSON(ctx, w, http.StatusOK, messageResponse{Success: true, Message: "Comment deleted successfully"})
}

func (h CommentHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

type createCommentRequest struct {
	VideoID int64  `json:"videoId"`
	Text    string `json:"text"`
	Publish bool   `json:"publish"`
}

type replyRequest struct {
	Text string `json:"text"`
}

type commentListResponse struct {
	Success    bool             `json:"success"`
	Comments   []models.Comment `json:"comments"`
	TotalCount int              `json:"totalCount"`
}

type commentResponse struct {
	Success bool            `json:"success"`
	Comment *models.Comment `json:"comment,omitempty"`
	Reply   *models.Comment `json:"reply,omitempty"`
	Message string          `json:"message,omitempty"`
}
