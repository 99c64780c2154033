package dashboard

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tubedesk/backend/internal/client"
	"github.com/tubedesk/backend/internal/models"
)

type fakeAPI struct {
	videos   []models.Video
	comments []models.Comment
	notes    []models.Note
	err      error
	calls    map[string]int
	nextID   int64
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{calls: make(map[string]int), nextID: 100}
}

func (f *fakeAPI) call(name string) error {
	f.calls[name]++
	return f.err
}

func (f *fakeAPI) SignIn(_ context.Context, credential string) (client.Session, error) {
	if err := f.call("SignIn"); err != nil {
		return client.Session{}, err
	}
	return client.Session{
		User:   models.User{ID: 3, Email: "carol@example.com", Name: "Carol"},
		Tokens: models.TokenPair{AccessToken: "access", RefreshToken: "refresh"},
	}, nil
}

func (f *fakeAPI) SignOut(context.Context) error { return f.call("SignOut") }

func (f *fakeAPI) ListVideos(context.Context) ([]models.Video, error) {
	if err := f.call("ListVideos"); err != nil {
		return nil, err
	}
	return append([]models.Video(nil), f.videos...), nil
}

func (f *fakeAPI) SyncVideo(_ context.Context, input string) (models.Video, error) {
	if err := f.call("SyncVideo"); err != nil {
		return models.Video{}, err
	}
	f.nextID++
	return models.Video{ID: f.nextID, YouTubeVideoID: input, Title: "Synced"}, nil
}

func (f *fakeAPI) UpdateVideo(_ context.Context, id int64, patch models.VideoPatch) (models.Video, error) {
	if err := f.call("UpdateVideo"); err != nil {
		return models.Video{}, err
	}
	for i := range f.videos {
		if f.videos[i].ID == id && patch.Title != nil {
			f.videos[i].Title = *patch.Title
		}
	}
	return models.Video{ID: id}, nil
}

func (f *fakeAPI) DeleteVideo(context.Context, int64) error { return f.call("DeleteVideo") }

func (f *fakeAPI) ListComments(context.Context, int64) ([]models.Comment, error) {
	if err := f.call("ListComments"); err != nil {
		return nil, err
	}
	return f.comments, nil
}

func (f *fakeAPI) AddComment(_ context.Context, c client.NewComment) (models.Comment, error) {
	if err := f.call("AddComment"); err != nil {
		return models.Comment{}, err
	}
	f.nextID++
	return models.Comment{ID: f.nextID, VideoID: c.VideoID, YouTubeCommentID: "local_1_abc", TextDisplay: c.Text}, nil
}

func (f *fakeAPI) Reply(_ context.Context, commentID, text string) (models.Comment, error) {
	if err := f.call("Reply"); err != nil {
		return models.Comment{}, err
	}
	return models.Comment{VideoID: 7, YouTubeCommentID: "Ugz-reply", IsReply: true, ParentCommentID: commentID, TextDisplay: text}, nil
}

func (f *fakeAPI) DeleteComment(context.Context, string) error { return f.call("DeleteComment") }

func (f *fakeAPI) ListNotes(context.Context, int64) ([]models.Note, error) {
	if err := f.call("ListNotes"); err != nil {
		return nil, err
	}
	return f.notes, nil
}

func (f *fakeAPI) AddNote(_ context.Context, n client.NewNote) (models.Note, error) {
	if err := f.call("AddNote"); err != nil {
		return models.Note{}, err
	}
	f.nextID++
	priority := models.NotePriorityDefault
	if n.Priority != nil {
		priority = *n.Priority
	}
	return models.Note{ID: f.nextID, VideoID: n.VideoID, Title: n.Title, Priority: priority, CreatedAt: time.Now()}, nil
}

func (f *fakeAPI) UpdateNote(_ context.Context, id int64, p models.NotePatch) (models.Note, error) {
	if err := f.call("UpdateNote"); err != nil {
		return models.Note{}, err
	}
	for _, n := range f.notes {
		if n.ID == id {
			if p.IsCompleted != nil {
				n.IsCompleted = *p.IsCompleted
			}
			return n, nil
		}
	}
	return models.Note{}, errors.New("missing")
}

func (f *fakeAPI) DeleteNote(context.Context, int64) error { return f.call("DeleteNote") }

func noteTitles(notes []models.Note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.Title
	}
	return out
}

func TestSignInSaveAndLoad(t *testing.T) {
	api := newFakeAPI()
	api.videos = []models.Video{{ID: 7, Title: "Launch"}}
	state := New(api)

	require.NoError(t, state.SignIn(context.Background(), "credential"))
	require.NoError(t, state.LoadVideos(context.Background()))
	assert.True(t, state.SignedIn())

	path := filepath.Join(t.TempDir(), "nested", "state.json")
	require.NoError(t, state.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	restored := New(api)
	require.NoError(t, restored.Load(path))
	snap := restored.Snapshot()
	require.NotNil(t, snap.User)
	assert.Equal(t, int64(3), snap.User.ID)
	assert.Equal(t, "refresh", snap.Tokens.RefreshToken)
	assert.Equal(t, []models.Video{{ID: 7, Title: "Launch"}}, snap.Videos)
}

func TestLoadMissingFileIsSignedOut(t *testing.T) {
	state := New(newFakeAPI())

	require.NoError(t, state.Load(filepath.Join(t.TempDir(), "absent.json")))
	assert.False(t, state.SignedIn())
	assert.Empty(t, state.Videos())
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	assert.Error(t, New(newFakeAPI()).Load(path))
}

func TestSnapshotIsACopy(t *testing.T) {
	state := New(newFakeAPI())
	state.Hydrate(Persisted{Videos: []models.Video{{ID: 1, Title: "original"}}})

	snap := state.Snapshot()
	snap.Videos[0].Title = "mutated"

	assert.Equal(t, "original", state.Videos()[0].Title)
}

func TestFailedActionKeepsState(t *testing.T) {
	api := newFakeAPI()
	state := New(api)
	state.Hydrate(Persisted{Videos: []models.Video{{ID: 7, Title: "Launch"}}, SelectedVideoID: 7})

	api.err = &client.APIError{Status: 409, Code: "Conflict", Message: "Video already exists in dashboard"}
	_, err := state.SyncVideo(context.Background(), "dQw4w9WgXcQ")
	require.Error(t, err)

	assert.Equal(t, err, state.Err())
	assert.False(t, state.Loading())
	assert.Len(t, state.Videos(), 1)

	api.err = nil
	video, err := state.SyncVideo(context.Background(), "aaaaaaaaaaa")
	require.NoError(t, err)
	assert.NoError(t, state.Err())
	assert.Equal(t, video.ID, state.Videos()[0].ID, "synced videos go first")
}

func TestUpdateVideoReloads(t *testing.T) {
	api := newFakeAPI()
	api.videos = []models.Video{{ID: 7, Title: "Old"}}
	state := New(api)
	require.NoError(t, state.LoadVideos(context.Background()))

	title := "New"
	require.NoError(t, state.UpdateVideo(context.Background(), 7, models.VideoPatch{Title: &title}))

	assert.Equal(t, 2, api.calls["ListVideos"])
	assert.Equal(t, "New", state.Videos()[0].Title)
}

func TestDeleteSelectedVideoClearsDependents(t *testing.T) {
	api := newFakeAPI()
	api.comments = []models.Comment{{ID: 1, VideoID: 7, YouTubeCommentID: "Ugz1"}}
	api.notes = []models.Note{{ID: 2, VideoID: 7, Title: "n"}}
	state := New(api)
	state.Hydrate(Persisted{Videos: []models.Video{{ID: 7}, {ID: 8}}})

	require.NoError(t, state.SelectVideo(context.Background(), 7))
	assert.Len(t, state.Comments(), 1)
	assert.Len(t, state.Notes(), 1)

	require.NoError(t, state.DeleteVideo(context.Background(), 7))
	snap := state.Snapshot()
	assert.Zero(t, snap.SelectedVideoID)
	assert.Equal(t, []models.Video{{ID: 8}}, snap.Videos)
	assert.Empty(t, state.Comments())
	assert.Empty(t, state.Notes())
}

func TestCommentActions(t *testing.T) {
	api := newFakeAPI()
	api.comments = []models.Comment{{ID: 1, VideoID: 7, YouTubeCommentID: "Ugz1"}}
	state := New(api)
	state.Hydrate(Persisted{Videos: []models.Video{{ID: 7}}})
	require.NoError(t, state.SelectVideo(context.Background(), 7))

	_, err := state.AddComment(context.Background(), "draft", false)
	require.NoError(t, err)
	_, err = state.Reply(context.Background(), "Ugz1", "thanks")
	require.NoError(t, err)
	assert.Len(t, state.Comments(), 3)

	require.NoError(t, state.DeleteComment(context.Background(), "Ugz1"))
	for _, c := range state.Comments() {
		assert.NotEqual(t, "Ugz1", c.YouTubeCommentID)
	}
	assert.Len(t, state.Comments(), 2)
}

func TestNoteActionsKeepDisplayOrder(t *testing.T) {
	api := newFakeAPI()
	base := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	api.notes = []models.Note{
		{ID: 1, VideoID: 7, Title: "urgent", Priority: 4, CreatedAt: base},
		{ID: 2, VideoID: 7, Title: "low", Priority: 1, CreatedAt: base},
	}
	state := New(api)
	state.Hydrate(Persisted{Videos: []models.Video{{ID: 7}}})
	require.NoError(t, state.SelectVideo(context.Background(), 7))

	priority := 5
	_, err := state.AddNote(context.Background(), client.NewNote{VideoID: 7, Title: "critical", Content: "c", Priority: &priority})
	require.NoError(t, err)
	assert.Equal(t, []string{"critical", "urgent", "low"}, noteTitles(state.Notes()))

	done := true
	_, err = state.UpdateNote(context.Background(), 1, models.NotePatch{IsCompleted: &done})
	require.NoError(t, err)
	assert.Equal(t, []string{"critical", "low", "urgent"}, noteTitles(state.Notes()))

	require.NoError(t, state.DeleteNote(context.Background(), 2))
	assert.Equal(t, []string{"critical", "urgent"}, noteTitles(state.Notes()))
}

func TestSignOutClearsEverything(t *testing.T) {
	api := newFakeAPI()
	api.err = errors.New("offline")
	state := New(api)
	state.Hydrate(Persisted{User: &models.User{ID: 3}, Tokens: models.TokenPair{AccessToken: "a"}})

	assert.Error(t, state.SignOut(context.Background()))
	assert.False(t, state.SignedIn())
	assert.Nil(t, state.Snapshot().User)
}
