package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tubedesk/backend/internal/models"
	"github.com/tubedesk/backend/internal/youtube"
)

// fakeYouTube mimics the adapter: an empty token fails before any call is made.
type fakeYouTube struct {
	mu          sync.Mutex
	videos      map[string]models.VideoDetails
	owned       []models.VideoDetails
	err         error
	calls       []string
	updates     []models.VideoPatch
	nextComment int
}

func newFakeYouTube() *fakeYouTube {
	return &fakeYouTube{videos: make(map[string]models.VideoDetails)}
}

func (f *fakeYouTube) record(token, call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token == "" {
		return youtube.ErrExternalAccessRequired
	}
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeYouTube) FetchVideo(_ context.Context, token, videoID string) (models.VideoDetails, error) {
	if err := f.record(token, "fetch:"+videoID); err != nil {
		return models.VideoDetails{}, err
	}
	d, ok := f.videos[videoID]
	if !ok {
		return models.VideoDetails{}, youtube.ErrVideoNotFound
	}
	return d, nil
}

func (f *fakeYouTube) newComment(text string) models.Comment {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextComment++
	now := time.Date(2024, time.May, 2, 8, 0, 0, 0, time.UTC)
	return models.Comment{
		YouTubeCommentID: fmt.Sprintf("Ugz%08d", f.nextComment),
		AuthorName:       "Carol's Channel",
		TextDisplay:      text,
		PublishedAt:      &now,
		UpdatedAt:        &now,
	}
}

func (f *fakeYouTube) InsertComment(_ context.Context, token, videoID, text string) (models.Comment, error) {
	if err := f.record(token, "comment:"+videoID); err != nil {
		return models.Comment{}, err
	}
	return f.newComment(text), nil
}

func (f *fakeYouTube) InsertReply(_ context.Context, token, parentID, text string) (models.Comment, error) {
	if err := f.record(token, "reply:"+parentID); err != nil {
		return models.Comment{}, err
	}
	return f.newComment(text), nil
}

func (f *fakeYouTube) DeleteComment(_ context.Context, token, commentID string) error {
	return f.record(token, "delete:"+commentID)
}

func (f *fakeYouTube) UpdateVideo(_ context.Context, token, videoID string, patch models.VideoPatch) (models.VideoDetails, error) {
	if err := f.record(token, "update:"+videoID); err != nil {
		return models.VideoDetails{}, err
	}
	f.mu.Lock()
	f.updates = append(f.updates, patch)
	f.mu.Unlock()
	return models.VideoDetails{YouTubeVideoID: videoID, Title: *patch.Title, Description: *patch.Description}, nil
}

func (f *fakeYouTube) ListOwnedVideos(_ context.Context, token string, limit int64) ([]models.VideoDetails, error) {
	if err := f.record(token, fmt.Sprintf("list:%d", limit)); err != nil {
		return nil, err
	}
	return f.owned, nil
}

type recordingArchiver struct {
	keys []string
	err  error
}

func (a *recordingArchiver) Archive(_ context.Context, youtubeVideoID string, raw []byte) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	key := "videos/" + youtubeVideoID + "/1.json"
	a.keys = append(a.keys, key)
	return key, nil
}

func remoteDetails(id, title string, views int64) models.VideoDetails {
	published := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	return models.VideoDetails{
		YouTubeVideoID: id,
		Title:          title,
		Description:    "remote description",
		ThumbnailURL:   "https://i.ytimg.com/vi/" + id + "/hqdefault.jpg",
		ViewCount:      views,
		LikeCount:      12,
		CommentCount:   3,
		PublishedAt:    &published,
		Raw:            []byte(`{"id":"` + id + `"}`),
	}
}

func TestVideoHandlerSync(t *testing.T) {
	env := newTestEnv(t)
	env.db.addUser(3, "carol", "ya29.carol")
	env.youtube.videos["dQw4w9WgXcQ"] = remoteDetails("dQw4w9WgXcQ", "Launch day", 1000)
	token := env.accessToken(t, 3)

	rec := env.do(t, http.MethodPost, "/api/videos/sync", token, map[string]string{"externalVideoId": "https://youtu.be/dQw4w9WgXcQ"})
	expectStatus(t, rec, http.StatusCreated)

	var resp videoResponse
	decodeBody(t, rec, &resp)
	if resp.Video.YouTubeVideoID != "dQw4w9WgXcQ" || resp.Video.UserID != 3 || resp.Video.ViewCount != 1000 {
		t.Fatalf("unexpected video: %+v", resp.Video)
	}
	if resp.Message != "Video synced successfully" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
	if len(env.snapshots.keys) != 1 {
		t.Fatalf("expected one archived snapshot, got %v", env.snapshots.keys)
	}

	rec = env.do(t, http.MethodPost, "/api/videos/sync", token, map[string]string{"youtubeVideoId": "dQw4w9WgXcQ"})
	expectError(t, rec, http.StatusConflict, "Video already exists in dashboard")
	if len(env.db.videos) != 1 {
		t.Fatalf("expected re-sync to create no row, have %d", len(env.db.videos))
	}
}

func TestVideoHandlerSyncFailures(t *testing.T) {
	env := newTestEnv(t)
	env.db.addUser(3, "carol", "ya29.carol")
	env.db.addUser(4, "dave", "")
	carol := env.accessToken(t, 3)
	dave := env.accessToken(t, 4)

	cases := []struct {
		name    string
		token   string
		input   string
		status  int
		message string
	}{
		{name: "missing id", token: carol, input: "", status: http.StatusBadRequest, message: "YouTube video ID is required"},
		{name: "bad id", token: carol, input: "https://example.com/watch?v=nope", status: http.StatusBadRequest, message: "Invalid YouTube video ID or URL"},
		{name: "no youtube access", token: dave, input: "dQw4w9WgXcQ", status: http.StatusForbidden, message: "YouTube access required to sync videos"},
		{name: "unknown remote video", token: carol, input: "aaaaaaaaaaa", status: http.StatusNotFound, message: "Video not found on YouTube"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/videos/sync", tc.token, map[string]string{"externalVideoId": tc.input})
			expectError(t, rec, tc.status, tc.message)
		})
	}
	if len(env.db.videos) != 0 {
		t.Fatalf("expected no rows, have %d", len(env.db.videos))
	}
}

func TestVideoHandlerOwnership(t *testing.T) {
	env := newTestEnv(t)
	env.db.addUser(3, "carol", "ya29.carol")
	env.db.addUser(4, "dave", "ya29.dave")
	env.db.addVideo(7, 3, "dQw4w9WgXcQ", "Carol's video")
	dave := env.accessToken(t, 4)

	expectError(t, env.do(t, http.MethodGet, "/api/videos/7", dave, nil), http.StatusNotFound, "Video not found")
	expectError(t, env.do(t, http.MethodPut, "/api/videos/7", dave, map[string]string{"title": "mine now"}), http.StatusNotFound, "Video not found")
	expectError(t, env.do(t, http.MethodPost, "/api/videos/7/publish", dave, nil), http.StatusNotFound, "Video not found")
	expectError(t, env.do(t, http.MethodDelete, "/api/videos/7", dave, nil), http.StatusNotFound, "Video not found")

	rec := env.do(t, http.MethodGet, "/api/videos", dave, nil)
	expectStatus(t, rec, http.StatusOK)
	var list videoListResponse
	decodeBody(t, rec, &list)
	if len(list.Videos) != 0 {
		t.Fatalf("expected dave to see no videos, got %+v", list.Videos)
	}

	if env.db.videos[7].Title != "Carol's video" {
		t.Fatal("foreign update must not change the row")
	}
	if len(env.youtube.calls) != 0 {
		t.Fatalf("expected no remote calls, got %v", env.youtube.calls)
	}
}

func TestVideoHandlerGetRefreshesFromYouTube(t *testing.T) {
	env := newTestEnv(t)
	env.db.addUser(3, "carol", "ya29.carol")
	env.db.addVideo(7, 3, "dQw4w9WgXcQ", "Stale title")
	env.youtube.videos["dQw4w9WgXcQ"] = remoteDetails("dQw4w9WgXcQ", "Fresh title", 2500)
	token := env.accessToken(t, 3)

	rec := env.do(t, http.MethodGet, "/api/videos/7", token, nil)
	expectStatus(t, rec, http.StatusOK)

	var resp videoResponse
	decodeBody(t, rec, &resp)
	if resp.Warning != "" {
		t.Fatalf("unexpected warning %q", resp.Warning)
	}
	if resp.Video.Title != "Fresh title" || resp.Video.ViewCount != 2500 {
		t.Fatalf("expected refreshed video, got %+v", resp.Video)
	}
	if env.db.videos[7].ViewCount != 2500 {
		t.Fatal("expected refreshed counts to be persisted")
	}
}

func TestVideoHandlerGetFallsBackToCache(t *testing.T) {
	env := newTestEnv(t)
	env.db.addUser(3, "carol", "ya29.carol")
	env.db.addVideo(7, 3, "dQw4w9WgXcQ", "Cached title")
	env.youtube.err = &youtube.ServiceError{Op: "videos.list", Status: http.StatusServiceUnavailable, Err: errors.New("backend error")}
	token := env.accessToken(t, 3)

	rec := env.do(t, http.MethodGet, "/api/videos/7", token, nil)
	expectStatus(t, rec, http.StatusOK)

	var resp videoResponse
	decodeBody(t, rec, &resp)
	if resp.Warning != cachedDataWarning {
		t.Fatalf("expected cached data warning, got %q", resp.Warning)
	}
	if resp.Video.Title != "Cached title" {
		t.Fatalf("expected cached video, got %+v", resp.Video)
	}
}

func TestVideoHandlerUpdate(t *testing.T) {
	env := newTestEnv(t)
	env.db.addUser(3, "carol", "")
	env.db.addVideo(7, 3, "dQw4w9WgXcQ", "Old")
	token := env.accessToken(t, 3)

	expectError(t, env.do(t, http.MethodPut, "/api/videos/7", token, map[string]string{"title": "   "}),
		http.StatusBadRequest, "Title must be 1-500 characters")
	expectError(t, env.do(t, http.MethodPut, "/api/videos/7", token, map[string]string{"title": strings.Repeat("a", 501)}),
		http.StatusBadRequest, "Title must be 1-500 characters")
	expectError(t, env.do(t, http.MethodPut, "/api/videos/7", token, map[string]string{"description": strings.Repeat("d", 5001)}),
		http.StatusBadRequest, "Description must be less than 5000 characters")
	expectError(t, env.do(t, http.MethodPut, "/api/videos/abc", token, map[string]string{"title": "x"}),
		http.StatusBadRequest, "Video ID must be a number")

	rec := env.do(t, http.MethodPut, "/api/videos/7", token, map[string]string{"title": "  New title ", "description": ""})
	expectStatus(t, rec, http.StatusOK)

	var resp videoResponse
	decodeBody(t, rec, &resp)
	if resp.Video.Title != "New title" || resp.Video.Description != "" {
		t.Fatalf("unexpected video after update: %+v", resp.Video)
	}
	if len(env.youtube.calls) != 0 {
		t.Fatalf("local edits must not call YouTube, got %v", env.youtube.calls)
	}
}

func TestVideoHandlerPublish(t *testing.T) {
	env := newTestEnv(t)
	env.db.addUser(3, "carol", "ya29.carol")
	env.db.addVideo(7, 3, "dQw4w9WgXcQ", "Edited locally")
	token := env.accessToken(t, 3)

	rec := env.do(t, http.MethodPost, "/api/videos/7/publish", token, nil)
	expectStatus(t, rec, http.StatusOK)

	if len(env.youtube.updates) != 1 || *env.youtube.updates[0].Title != "Edited locally" {
		t.Fatalf("expected stored title to be pushed, got %+v", env.youtube.updates)
	}
	if env.youtube.calls[0] != "update:dQw4w9WgXcQ" {
		t.Fatalf("unexpected remote call %v", env.youtube.calls)
	}
}

func TestVideoHandlerDeleteCascades(t *testing.T) {
	env := newTestEnv(t)
	env.db.addUser(3, "carol", "")
	env.db.addVideo(7, 3, "dQw4w9WgXcQ", "Doomed")
	token := env.accessToken(t, 3)

	expectStatus(t, env.do(t, http.MethodPost, "/api/comments", token, map[string]any{"videoId": 7, "text": "draft"}), http.StatusCreated)
	expectStatus(t, env.do(t, http.MethodPost, "/api/notes", token, map[string]any{"videoId": 7, "title": "t", "content": "c"}), http.StatusCreated)

	rec := env.do(t, http.MethodGet, "/api/videos", token, nil)
	var list videoListResponse
	decodeBody(t, rec, &list)
	if len(list.Videos) != 1 || list.Videos[0].LocalComments != 1 || list.Videos[0].LocalNotes != 1 {
		t.Fatalf("unexpected listing %+v", list.Videos)
	}

	expectStatus(t, env.do(t, http.MethodDelete, "/api/videos/7", token, nil), http.StatusOK)

	if len(env.db.comments) != 0 || len(env.db.notes) != 0 {
		t.Fatalf("expected dependents to be removed, comments=%d notes=%d", len(env.db.comments), len(env.db.notes))
	}
	expectError(t, env.do(t, http.MethodGet, "/api/notes/video/7", token, nil), http.StatusNotFound, "Video not found")
}

func TestVideoHandlerRemote(t *testing.T) {
	env := newTestEnv(t)
	env.db.addUser(3, "carol", "ya29.carol")
	env.youtube.owned = []models.VideoDetails{remoteDetails("dQw4w9WgXcQ", "One", 1), remoteDetails("aaaaaaaaaaa", "Two", 2)}
	token := env.accessToken(t, 3)

	expectError(t, env.do(t, http.MethodGet, "/api/videos/remote?max=51", token, nil), http.StatusBadRequest, "max must be between 1 and 50")

	rec := env.do(t, http.MethodGet, "/api/videos/remote?max=10", token, nil)
	expectStatus(t, rec, http.StatusOK)

	var resp remoteVideosResponse
	decodeBody(t, rec, &resp)
	if len(resp.Videos) != 2 {
		t.Fatalf("expected two remote videos, got %d", len(resp.Videos))
	}
	if env.youtube.calls[0] != "list:10" {
		t.Fatalf("unexpected remote call %v", env.youtube.calls)
	}
}
