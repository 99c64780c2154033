package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/tubedesk/backend/internal/apperrors"
	"github.com/tubedesk/backend/internal/logging"
	"github.com/tubedesk/backend/internal/models"
)

// NoteHandler provides the personal note endpoints. Notes never leave the local store.
type NoteHandler struct {
	Notes  NoteStore
	Videos VideoStore
}

func (h NoteHandler) ready(ctx context.Context, w http.ResponseWriter) bool {
	if h.Notes == nil || h.Videos == nil {
		logging.FromContext(ctx).Error("note dependencies unavailable", "hasNotes", h.Notes != nil, "hasVideos", h.Videos != nil)
		respondError(ctx, w, apperrors.Internal("note services unavailable", nil))
		return false
	}
	return true
}

// ListForVideo handles GET /api/notes/video/{videoId}.
func (h NoteHandler) ListForVideo(w http.ResponseWriter, r *http.Request) {
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
		respondError(ctx, w, storeError(err, "Video not found", "Failed to fetch notes"))
		return
	}

	notes, err := h.Notes.List(ctx, userID, models.NoteFilter{VideoID: videoID})
	if err != nil {
		respondError(ctx, w, apperrors.Internal("Failed to fetch notes", err))
		return
	}
	respondJSON(ctx, w, http.StatusOK, noteListResponse{Success: true, Notes: notes, TotalCount: len(notes)})
}

// ListByCategory handles GET /api/notes/category/{category}.
func (h NoteHandler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(ctx, w) {
		return
	}
	userID, err := currentUserID(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	category := r.PathValue("category")
	if !models.IsNoteCategory(category) {
		respondError(ctx, w, apperrors.Validation("Category must be one of "+strings.Join(models.NoteCategories, ", ")))
		return
	}

	notes, err := h.Notes.List(ctx, userID, models.NoteFilter{Category: category})
	if err != nil {
		respondError(ctx, w, apperrors.Internal("Failed to fetch notes by category", err))
		return
	}
	respondJSON(ctx, w, http.StatusOK, noteListResponse{Success: true, Notes: notes, TotalCount: len(notes), Category: category})
}

// Search handles GET /api/notes/search?q=&videoId=.
func (h NoteHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(ctx, w) {
		return
	}
	userID, err := currentUserID(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		respondError(ctx, w, apperrors.Validation("Search query is required"))
		return
	}

	filter := models.NoteFilter{Query: query}
	if raw := strings.TrimSpace(r.URL.Query().Get("videoId")); raw != "" {
		filter.VideoID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || filter.VideoID <= 0 {
			respondError(ctx, w, apperrors.Validation("Video ID must be a number"))
			return
		}
	}

	notes, err := h.Notes.List(ctx, userID, filter)
	if err != nil {
		respondError(ctx, w, apperrors.Internal("Failed to search notes", err))
		return
	}
	respondJSON(ctx, w, http.StatusOK, noteListResponse{Success: true, Notes: notes, TotalCount: len(notes), SearchQuery: query})
}

// Create handles POST /api/notes.
func (h NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(ctx, w) {
		return
	}
	userID, err := currentUserID(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	var req createNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}
	if req.VideoID <= 0 {
		respondError(ctx, w, apperrors.Validation("Video ID must be a number"))
		return
	}

	note := models.Note{
		VideoID:  req.VideoID,
		UserID:   userID,
		Title:    strings.TrimSpace(req.Title),
		Content:  req.Content,
		Priority: models.NotePriorityDefault,
	}
	if err := validateNote(models.NotePatch{Title: &note.Title, Content: &req.Content, Category: req.Category, Priority: req.Priority}); err != nil {
		respondError(ctx, w, err)
		return
	}
	if req.Category != nil && *req.Category != "" {
		note.Category = req.Category
	}
	if req.Priority != nil {
		note.Priority = *req.Priority
	}

	if _, err := h.Videos.Get(ctx, req.VideoID, userID); err != nil {
		respondError(ctx, w, storeError(err, "Video not found", "Failed to create note"))
		return
	}

	created, err := h.Notes.Create(ctx, note)
	if err != nil {
		respondError(ctx, w, storeError(err, "Video not found", "Failed to create note"))
		return
	}
	respondJSON(ctx, w, http.StatusCreated, noteResponse{Success: true, Note: created, Message: "Note created successfully"})
}

// Update handles PUT /api/notes/{id}. Only the provided fields change.
func (h NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(ctx, w) {
		return
	}
	userID, err := currentUserID(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	id, err := pathID(r, "id", "Note ID must be a number")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	var patch models.NotePatch
	if err := decodeJSON(r, &patch); err != nil {
		respondError(ctx, w, err)
		return
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		patch.Title = &title
	}
	if err := validateNote(patch); err != nil {
		respondError(ctx, w, err)
		return
	}

	note, err := h.Notes.Update(ctx, id, userID, patch)
	if err != nil {
		respondError(ctx, w, storeError(err, "Note not found", "Failed to update note"))
		return
	}
	respondJSON(ctx, w, http.StatusOK, noteResponse{Success: true, Note: note, Message: "Note updated successfully"})
}

// Delete handles DELETE /api/notes/{id}.
func (h NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(ctx, w) {
		return
	}
	userID, err := currentUserID(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	id, err := pathID(r, "id", "Note ID must be a number")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	if err := h.Notes.Delete(ctx, id, userID); err != nil {
		respondError(ctx, w, storeError(err, "Note not found", "Failed to delete note"))
		return
	}
	respondJSON(ctx, w, http.StatusOK, messageResponse{Success: true, Message: "Note deleted successfully"})
}

// validateNote checks the provided fields; nil fields are skipped. An empty
// category is accepted and clears the field.
func validateNote(p models.NotePatch) error {
	if p.Title != nil && !lengthBetween(*p.Title, 1, 255) {
		return apperrors.Validation("Title is required and must be 1-255 characters")
	}
	if p.Content != nil && (strings.TrimSpace(*p.Content) == "" || !lengthBetween(*p.Content, 1, 5000)) {
		return apperrors.Validation("Content is required and must be 1-5000 characters")
	}
	if p.Category != nil && *p.Category != "" && !models.IsNoteCategory(*p.Category) {
		return apperrors.Validation("Category must be one of " + strings.Join(models.NoteCategories, ", "))
	}
	if p.Priority != nil && (*p.Priority < models.NotePriorityMin || *p.Priority > models.NotePriorityMax) {
		return apperrors.Validation("Priority must be between 1 and 5")
	}
	return nil
}

type createNoteRequest struct {
	VideoID  int64   `json:"videoId"`
	Title    string  `json:"title"`
	Content  string  `json:"content"`
	Category *string `json:"category"`
	Priority *int    `json:"priority"`
}

type noteListResponse struct {
	Success     bool          `json:"success"`
	Notes       []models.Note `json:"notes"`
	TotalCount  int           `json:"totalCount"`
	Category    string        `json:"category,omitempty"`
	SearchQuery string        `json:"searchQuery,omitempty"`
}

type noteResponse struct {
	Success bool        `json:"success"`
	Note    models.Note `json:"note"`
	Message string      `json:"message,omitempty"`
}
