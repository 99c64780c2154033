package dashboard

import (
	"context"

	"github.com/tubedesk/backend/internal/client"
	"github.com/tubedesk/backend/internal/models"
)

// SignIn exchanges a Google credential and resets the state to the new user.
func (s *State) SignIn(ctx context.Context, credential string) error {
	var session client.Session
	return s.run(func() (err error) {
		session, err = s.api.SignIn(ctx, credential)
		return err
	}, func() {
		user := session.User
		s.persisted = Persisted{User: &user, Tokens: session.Tokens}
		s.comments, s.notes = nil, nil
	})
}

// SignOut forgets everything. Local state is cleared even if the server call fails.
func (s *State) SignOut(ctx context.Context) error {
	err := s.api.SignOut(ctx)
	s.Hydrate(Persisted{})
	return err
}

// SignedIn reports whether tokens are held.
func (s *State) SignedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persisted.Tokens.AccessToken != ""
}

// LoadVideos replaces the video list from the server.
func (s *State) LoadVideos(ctx context.Context) error {
	var videos []models.Video
	return s.run(func() (err error) {
		videos, err = s.api.ListVideos(ctx)
		return err
	}, func() {
		s.persisted.Videos = videos
		if _, ok := s.videoIndexLocked(s.persisted.SelectedVideoID); !ok {
			s.persisted.SelectedVideoID = 0
		}
	})
}

// Videos returns the cached dashboard videos.
func (s *State) Videos() []models.Video {
	return s.Snapshot().Videos
}

// SelectVideo makes id current and loads its comments and notes.
func (s *State) SelectVideo(ctx context.Context, id int64) error {
	var (
		comments []models.Comment
		notes    []models.Note
	)
	return s.run(func() (err error) {
		if comments, err = s.api.ListComments(ctx, id); err != nil {
			return err
		}
		notes, err = s.api.ListNotes(ctx, id)
		return err
	}, func() {
		s.persisted.SelectedVideoID = id
		s.comments, s.notes = comments, notes
	})
}

// SyncVideo adds a YouTube video and puts it at the top of the list.
func (s *State) SyncVideo(ctx context.Context, input string) (models.Video, error) {
	var video models.Video
	err := s.run(func() (err error) {
		video, err = s.api.SyncVideo(ctx, input)
		return err
	}, func() {
		s.persisted.Videos = append([]models.Video{video}, s.persisted.Videos...)
	})
	return video, err
}

// UpdateVideo edits a video and reloads the whole list, since counts and
// ordering may have changed on the server.
func (s *State) UpdateVideo(ctx context.Context, id int64, patch models.VideoPatch) error {
	if err := s.run(func() error {
		_, err := s.api.UpdateVideo(ctx, id, patch)
		return err
	}, nil); err != nil {
		return err
	}
	return s.LoadVideos(ctx)
}

// DeleteVideo removes a video and, if it was selected, its loaded dependents.
func (s *State) DeleteVideo(ctx context.Context, id int64) error {
	return s.run(func() error {
		return s.api.DeleteVideo(ctx, id)
	}, func() {
		if i, ok := s.videoIndexLocked(id); ok {
			s.persisted.Videos = append(s.persisted.Videos[:i:i], s.persisted.Videos[i+1:]...)
		}
		if s.persisted.SelectedVideoID == id {
			s.persisted.SelectedVideoID = 0
			s.comments, s.notes = nil, nil
		}
	})
}

func (s *State) videoIndexLocked(id int64) (int, bool) {
	for i, v := range s.persisted.Videos {
		if v.ID == id {
			return i, true
		}
	}
	return 0, false
}

// AddComment stores a comment on the selected video.
func (s *State) AddComment(ctx context.Context, text string, publish bool) (models.Comment, error) {
	videoID := s.Snapshot().SelectedVideoID
	var comment models.Comment
	err := s.run(func() (err error) {
		comment, err = s.api.AddComment(ctx, client.NewComment{VideoID: videoID, Text: text, Publish: publish})
		return err
	}, func() {
		if s.persisted.SelectedVideoID == comment.VideoID {
			s.comments = append([]models.Comment{comment}, s.comments...)
		}
	})
	return comment, err
}

// Reply answers a published comment.
func (s *State) Reply(ctx context.Context, commentID, text string) (models.Comment, error) {
	var reply models.Comment
	err := s.run(func() (err error) {
		reply, err = s.api.Reply(ctx, commentID, text)
		return err
	}, func() {
		if s.persisted.SelectedVideoID == reply.VideoID {
			s.comments = append(s.comments, reply)
		}
	})
	return reply, err
}

// DeleteComment removes a comment by its YouTube or local id.
func (s *State) DeleteComment(ctx context.Context, commentID string) error {
	return s.run(func() error {
		return s.api.DeleteComment(ctx, commentID)
	}, func() {
		kept := s.comments[:0]
		for _, c := range s.comments {
			if c.YouTubeCommentID != commentID {
				kept = append(kept, c)
			}
		}
		s.comments = kept
	})
}

// AddNote creates a note and slots it into display order.
func (s *State) AddNote(ctx context.Context, note client.NewNote) (models.Note, error) {
	var created models.Note
	err := s.run(func() (err error) {
		created, err = s.api.AddNote(ctx, note)
		return err
	}, func() {
		if s.persisted.SelectedVideoID == created.VideoID {
			s.notes = append(s.notes, created)
			sortNotes(s.notes)
		}
	})
	return created, err
}

// UpdateNote applies a partial update and re-sorts the notes.
func (s *State) UpdateNote(ctx context.Context, id int64, patch models.NotePatch) (models.Note, error) {
	var updated models.Note
	err := s.run(func() (err error) {
		updated, err = s.api.UpdateNote(ctx, id, patch)
		return err
	}, func() {
		for i := range s.notes {
			if s.notes[i].ID == id {
				s.notes[i] = updated
			}
		}
		sortNotes(s.notes)
	})
	return updated, err
}

// DeleteNote removes a note.
func (s *State) DeleteNote(ctx context.Context, id int64) error {
	return s.run(func() error {
		return s.api.DeleteNote(ctx, id)
	}, func() {
		kept := s.notes[:0]
		for _, n := range s.notes {
			if n.ID != id {
				kept = append(kept, n)
			}
		}
		s.notes = kept
	})
}
