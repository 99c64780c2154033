package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tubedesk/backend/internal/auth"
	"github.com/tubedesk/backend/internal/models"
	"github.com/tubedesk/backend/internal/repositories"
)

// memoryDB backs the in-memory stores used by the handler tests. It mirrors
// the ownership and cascade rules of the Postgres repositories.
type memoryDB struct {
	mu       sync.Mutex
	clock    *clockwork.FakeClock
	nextID   int64
	users    map[int64]models.User
	videos   map[int64]models.Video
	comments map[int64]models.Comment
	notes    map[int64]models.Note
}

func newMemoryDB() *memoryDB {
	return &memoryDB{
		clock:    clockwork.NewFakeClockAt(time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)),
		users:    make(map[int64]models.User),
		videos:   make(map[int64]models.Video),
		comments: make(map[int64]models.Comment),
		notes:    make(map[int64]models.Note),
	}
}

func (db *memoryDB) tick() time.Time {
	db.clock.Advance(time.Second)
	return db.clock.Now()
}

func (db *memoryDB) id() int64 {
	db.nextID++
	return db.nextID
}

func (db *memoryDB) addUser(id int64, name, accessToken string) models.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	user := models.User{ID: id, GoogleID: "g-" + name, Email: name + "@example.com", Name: name, ExternalAccessToken: accessToken}
	db.users[id] = user
	return user
}

func (db *memoryDB) addVideo(id, userID int64, youtubeID, title string) models.Video {
	db.mu.Lock()
	defer db.mu.Unlock()
	now := db.tick()
	video := models.Video{ID: id, UserID: userID, YouTubeVideoID: youtubeID, Title: title, CreatedAt: now, UpdatedAt: now}
	db.videos[id] = video
	if db.nextID < id {
		db.nextID = id
	}
	return video
}

func (db *memoryDB) ownedVideo(id, userID int64) (models.Video, bool) {
	v, ok := db.videos[id]
	if !ok || v.UserID != userID {
		return models.Video{}, false
	}
	return v, true
}

type memUsers struct{ db *memoryDB }

func (s memUsers) FindByID(_ context.Context, id int64) (models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	user, ok := s.db.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s memUsers) SetExternalTokens(_ context.Context, userID int64, accessToken, refreshToken string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	user, ok := s.db.users[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	user.ExternalAccessToken = accessToken
	if refreshToken != "" {
		user.ExternalRefreshToken = refreshToken
	}
	s.db.users[userID] = user
	return nil
}

type memVideos struct{ db *memoryDB }

func (s memVideos) List(_ context.Context, userID int64) ([]models.Video, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []models.Video{}
	for _, v := range s.db.videos {
		if v.UserID == userID {
			out = append(out, s.withCounts(v))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s memVideos) withCounts(v models.Video) models.Video {
	for _, c := range s.db.comments {
		if c.VideoID == v.ID {
			v.LocalComments++
		}
	}
	for _, n := range s.db.notes {
		if n.VideoID == v.ID {
			v.LocalNotes++
		}
	}
	return v
}

func (s memVideos) Get(_ context.Context, id, userID int64) (models.Video, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	v, ok := s.db.ownedVideo(id, userID)
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	return s.withCounts(v), nil
}

func (s memVideos) ExistsByYouTubeID(_ context.Context, youtubeVideoID string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, v := range s.db.videos {
		if v.YouTubeVideoID == youtubeVideoID {
			return true, nil
		}
	}
	return false, nil
}

func (s memVideos) Create(_ context.Context, userID int64, d models.VideoDetails) (models.Video, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, v := range s.db.videos {
		if v.YouTubeVideoID == d.YouTubeVideoID {
			return models.Video{}, repositories.ErrConflict
		}
	}
	now := s.db.tick()
	v := models.Video{ID: s.db.id(), UserID: userID, CreatedAt: now}
	v = applyDetails(v, d, now)
	s.db.videos[v.ID] = v
	return v, nil
}

func applyDetails(v models.Video, d models.VideoDetails, now time.Time) models.Video {
	v.YouTubeVideoID = d.YouTubeVideoID
	v.Title = d.Title
	v.Description = d.Description
	v.ThumbnailURL = d.ThumbnailURL
	v.ViewCount = d.ViewCount
	v.LikeCount = d.LikeCount
	v.CommentCount = d.CommentCount
	v.PublishedAt = d.PublishedAt
	v.Metadata = d.Raw
	v.UpdatedAt = now
	return v
}

func (s memVideos) ApplyRemote(_ context.Context, id, userID int64, d models.VideoDetails) (models.Video, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	v, ok := s.db.ownedVideo(id, userID)
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	v = applyDetails(v, d, s.db.tick())
	s.db.videos[id] = v
	return s.withCounts(v), nil
}

func (s memVideos) Update(_ context.Context, id, userID int64, patch models.VideoPatch) (models.Video, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	v, ok := s.db.ownedVideo(id, userID)
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	if patch.Title != nil {
		v.Title = *patch.Title
	}
	if patch.Description != nil {
		v.Description = *patch.Description
	}
	v.UpdatedAt = s.db.tick()
	s.db.videos[id] = v
	return s.withCounts(v), nil
}

func (s memVideos) Delete(_ context.Context, id, userID int64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.ownedVideo(id, userID); !ok {
		return repositories.ErrNotFound
	}
	delete(s.db.videos, id)
	for cid, c := range s.db.comments {
		if c.VideoID == id {
			delete(s.db.comments, cid)
		}
	}
	for nid, n := range s.db.notes {
		if n.VideoID == id {
			delete(s.db.notes, nid)
		}
	}
	return nil
}

type memComments struct{ db *memoryDB }

func (s memComments) ListForVideo(_ context.Context, videoID, userID int64) ([]models.Comment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []models.Comment{}
	if _, ok := s.db.ownedVideo(videoID, userID); !ok {
		return out, nil
	}
	for _, c := range s.db.comments {
		if c.VideoID == videoID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s memComments) Create(_ context.Context, c models.Comment) (models.Comment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.videos[c.VideoID]; !ok {
		return models.Comment{}, repositories.ErrNotFound
	}
	for _, existing := range s.db.comments {
		if existing.YouTubeCommentID == c.YouTubeCommentID {
			return models.Comment{}, repositories.ErrConflict
		}
	}
	c.ID = s.db.id()
	c.CreatedAt = s.db.tick()
	s.db.comments[c.ID] = c
	return c, nil
}

func (s memComments) find(youtubeCommentID string, userID int64, topLevel bool) (models.Comment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, c := range s.db.comments {
		if c.YouTubeCommentID != youtubeCommentID || (topLevel && c.IsReply) {
			continue
		}
		if _, ok := s.db.ownedVideo(c.VideoID, userID); ok {
			return c, nil
		}
	}
	return models.Comment{}, repositories.ErrNotFound
}

func (s memComments) FindOwned(_ context.Context, youtubeCommentID string, userID int64) (models.Comment, error) {
	return s.find(youtubeCommentID, userID, false)
}

func (s memComments) FindOwnedTopLevel(_ context.Context, youtubeCommentID string, userID int64) (models.Comment, error) {
	return s.find(youtubeCommentID, userID, true)
}

func (s memComments) Delete(_ context.Context, id, userID int64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c, ok := s.db.comments[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if _, ok := s.db.ownedVideo(c.VideoID, userID); !ok {
		return repositories.ErrNotFound
	}
	delete(s.db.comments, id)
	return nil
}

type memNotes struct{ db *memoryDB }

func (s memNotes) List(_ context.Context, userID int64, f models.NoteFilter) ([]models.Note, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []models.Note{}
	query := strings.ToLower(f.Query)
	for _, n := range s.db.notes {
		switch {
		case n.UserID != userID:
			continue
		case f.VideoID != 0 && n.VideoID != f.VideoID:
			continue
		case f.Category != "" && (n.Category == nil || *n.Category != f.Category):
			continue
		case query != "" && !strings.Contains(strings.ToLower(n.Title), query) && !strings.Contains(strings.ToLower(n.Content), query):
			continue
		}
		if f.VideoID == 0 {
			v := s.db.videos[n.VideoID]
			n.Video = &models.VideoSummary{ID: v.ID, Title: v.Title, YouTubeVideoID: v.YouTubeVideoID}
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.IsCompleted != b.IsCompleted {
			return !a.IsCompleted
		}
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return out, nil
}

func (s memNotes) Get(_ context.Context, id, userID int64) (models.Note, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	n, ok := s.db.notes[id]
	if !ok || n.UserID != userID {
		return models.Note{}, repositories.ErrNotFound
	}
	return n, nil
}

func (s memNotes) Create(_ context.Context, n models.Note) (models.Note, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.ownedVideo(n.VideoID, n.UserID); !ok {
		return models.Note{}, repositories.ErrNotFound
	}
	n.ID = s.db.id()
	n.CreatedAt = s.db.tick()
	n.UpdatedAt = n.CreatedAt
	s.db.notes[n.ID] = n
	return n, nil
}

func (s memNotes) Update(_ context.Context, id, userID int64, p models.NotePatch) (models.Note, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	n, ok := s.db.notes[id]
	if !ok || n.UserID != userID {
		return models.Note{}, repositories.ErrNotFound
	}
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
	if p.Category != nil {
		if *p.Category == "" {
			n.Category = nil
		} else {
			category := *p.Category
			n.Category = &category
		}
	}
	if p.Priority != nil {
		n.Priority = *p.Priority
	}
	if p.IsCompleted != nil {
		n.IsCompleted = *p.IsCompleted
	}
	n.UpdatedAt = s.db.tick()
	s.db.notes[id] = n
	return n, nil
}

func (s memNotes) Delete(_ context.Context, id, userID int64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	n, ok := s.db.notes[id]
	if !ok || n.UserID != userID {
		return repositories.ErrNotFound
	}
	delete(s.db.notes, id)
	return nil
}

// testEnv is a fully routed API over the in-memory stores.
type testEnv struct {
	db        *memoryDB
	tokens    *auth.TokenService
	youtube   *fakeYouTube
	snapshots *recordingArchiver
	mux       *http.ServeMux
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newMemoryDB()
	env := &testEnv{
		db:        db,
		tokens:    auth.NewTokenService([]byte("handler-test-secret"), time.Hour, 24*time.Hour, memUsers{db}, db.clock),
		youtube:   newFakeYouTube(),
		snapshots: &recordingArchiver{},
		mux:       http.NewServeMux(),
	}
	RegisterRoutes(env.mux, Dependencies{
		Tokens:    env.tokens,
		Identity:  &stubIdentity{db: db},
		Users:     memUsers{db},
		Videos:    memVideos{db},
		Comments:  memComments{db},
		Notes:     memNotes{db},
		YouTube:   env.youtube,
		Snapshots: env.snapshots,
	})
	return env
}

func (e *testEnv) accessToken(t *testing.T, userID int64) string {
	t.Helper()
	token, err := e.tokens.IssueAccess(userID)
	if err != nil {
		t.Fatalf("issue access token: %v", err)
	}
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d got %d: %s", want, rec.Code, rec.Body.String())
	}
}

type errorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	expectStatus(t, rec, status)
	var body errorEnvelope
	decodeBody(t, rec, &body)
	if body.Success {
		t.Fatal("expected success=false")
	}
	if body.Error != http.StatusText(status) {
		t.Fatalf("expected error %q got %q", http.StatusText(status), body.Error)
	}
	if message != "" && body.Message != message {
		t.Fatalf("expected message %q got %q", message, body.Message)
	}
}
