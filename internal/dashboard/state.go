// Package dashboard holds the client-side view of a signed-in creator: what is
// persisted between runs and what is loaded per screen.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/tubedesk/backend/internal/client"
	"github.com/tubedesk/backend/internal/models"
)

// API is the subset of the REST client the dashboard drives.
type API interface {
	SignIn(ctx context.Context, credential string) (client.Session, error)
	SignOut(ctx context.Context) error
	ListVideos(ctx context.Context) ([]models.Video, error)
	SyncVideo(ctx context.Context, input string) (models.Video, error)
	UpdateVideo(ctx context.Context, id int64, patch models.VideoPatch) (models.Video, error)
	DeleteVideo(ctx context.Context, id int64) error
	ListComments(ctx context.Context, videoID int64) ([]models.Comment, error)
	AddComment(ctx context.Context, comment client.NewComment) (models.Comment, error)
	Reply(ctx context.Context, commentID, text string) (models.Comment, error)
	DeleteComment(ctx context.Context, commentID string) error
	ListNotes(ctx context.Context, videoID int64) ([]models.Note, error)
	AddNote(ctx context.Context, note client.NewNote) (models.Note, error)
	UpdateNote(ctx context.Context, id int64, patch models.NotePatch) (models.Note, error)
	DeleteNote(ctx context.Context, id int64) error
}

// Persisted is the part of the state that survives restarts.
type Persisted struct {
	User            *models.User     `json:"user,omitempty"`
	Tokens          models.TokenPair `json:"tokens"`
	Videos          []models.Video   `json:"videos"`
	SelectedVideoID int64            `json:"selectedVideoId,omitempty"`
}

// State is the dashboard state container. Actions call the API first and
// change local state only after the call succeeded.
type State struct {
	api API

	mu        sync.Mutex
	persisted Persisted
	comments  []models.Comment
	notes     []models.Note
	loading   bool
	err       error
}

// New returns an empty, signed-out state.
func New(api API) *State {
	return &State{api: api}
}

// Snapshot returns a copy of the persisted slice.
func (s *State) Snapshot() Persisted {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.persisted
	out.Videos = append([]models.Video(nil), s.persisted.Videos...)
	if s.persisted.User != nil {
		user := *s.persisted.User
		out.User = &user
	}
	return out
}

// Hydrate replaces the persisted slice and clears transient state.
func (s *State) Hydrate(p Persisted) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.persisted = p
	s.persisted.Videos = append([]models.Video(nil), p.Videos...)
	s.comments, s.notes = nil, nil
	s.loading, s.err = false, nil
}

// SetTokens records refreshed tokens, typically from client.WithTokenListener.
func (s *State) SetTokens(tokens models.TokenPair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persisted.Tokens = tokens
}

// Comments returns the comments of the selected video.
func (s *State) Comments() []models.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Comment(nil), s.comments...)
}

// Notes returns the notes of the selected video in display order.
func (s *State) Notes() []models.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Note(nil), s.notes...)
}

// Loading reports whether an action is in flight.
func (s *State) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the failure of the most recent action, if any.
func (s *State) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// run brackets an API call: it marks the state as loading, records the
// failure, or applies the successful result under the lock.
func (s *State) run(call func() error, apply func()) error {
	s.mu.Lock()
	s.loading, s.err = true, nil
	s.mu.Unlock()

	err := call()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.err = err
		return err
	}
	if apply != nil {
		apply()
	}
	return nil
}

// Save writes the persisted slice to path, readable by the owner only.
func (s *State) Save(path string) error {
	data, err := json.MarshalIndent(s.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode dashboard state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".state-*.json")
	if err != nil {
		return fmt.Errorf("create state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("restrict state file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// Load hydrates from path. A missing file leaves the state signed out.
func (s *State) Load(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.Hydrate(Persisted{})
		return nil
	}
	if err != nil {
		return fmt.Errorf("read dashboard state: %w", err)
	}

	var p Persisted
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode dashboard state: %w", err)
	}
	s.Hydrate(p)
	return nil
}

// sortNotes keeps incomplete notes first, then higher priority, then newest.
func sortNotes(notes []models.Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		a, b := notes[i], notes[j]
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
}
