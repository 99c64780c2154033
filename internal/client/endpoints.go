package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tubedesk/backend/internal/models"
)

// Session is the result of signing in.
type Session struct {
	User   models.User
	Tokens models.TokenPair
}

// Profile is the signed-in account as reported by /auth/me.
type Profile struct {
	User             models.User `json:"user"`
	HasYouTubeAccess bool        `json:"hasYouTubeAccess"`
}

// VideoResult carries a video and the cache warning the server may attach.
type VideoResult struct {
	Video   models.Video `json:"video"`
	Message string       `json:"message"`
	Warning string       `json:"warning"`
}

// NewComment is the body of a comment creation.
type NewComment struct {
	VideoID int64  `json:"videoId"`
	Text    string `json:"text"`
	Publish bool   `json:"publish,omitempty"`
}

// NewNote is the body of a note creation.
type NewNote struct {
	VideoID  int64   `json:"videoId"`
	Title    string  `json:"title"`
	Content  string  `json:"content"`
	Category *string `json:"category,omitempty"`
	Priority *int    `json:"priority,omitempty"`
}

// SignIn exchanges a Google credential for local tokens and stores them.
func (c *Client) SignIn(ctx context.Context, credential string) (Session, error) {
	var resp struct {
		User         models.User `json:"user"`
		AccessToken  string      `json:"accessToken"`
		RefreshToken string      `json:"refreshToken"`
	}
	err := c.do(ctx, request{method: http.MethodPost, path: "/api/auth/external", body: map[string]string{"credential": credential}, out: &resp})
	if err != nil {
		return Session{}, err
	}

	tokens := models.TokenPair{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}
	c.SetTokens(tokens)
	return Session{User: resp.User, Tokens: tokens}, nil
}

// Refresh trades the stored refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	tokens := c.Tokens()
	var resp struct {
		AccessToken string `json:"accessToken"`
	}
	err := c.do(ctx, request{method: http.MethodPost, path: "/api/auth/refresh", body: map[string]string{"refreshToken": tokens.RefreshToken}, out: &resp})
	if err != nil {
		return "", fmt.Errorf("refresh session: %w", err)
	}

	tokens.AccessToken = resp.AccessToken
	c.SetTokens(tokens)
	return resp.AccessToken, nil
}

// StoreYouTubeToken saves the caller's YouTube OAuth tokens on the server.
func (c *Client) StoreYouTubeToken(ctx context.Context, accessToken, refreshToken string) error {
	body := map[string]string{"accessToken": accessToken, "refreshToken": refreshToken}
	return c.do(ctx, request{method: http.MethodPost, path: "/api/auth/youtube-token", body: body, authed: true})
}

// SignOut notifies the server and forgets the stored tokens.
func (c *Client) SignOut(ctx context.Context) error {
	err := c.do(ctx, request{method: http.MethodPost, path: "/api/auth/logout", authed: true})
	c.SetTokens(models.TokenPair{})
	return err
}

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (Profile, error) {
	var resp Profile
	err := c.do(ctx, request{method: http.MethodGet, path: "/api/auth/me", out: &resp, authed: true})
	return resp, err
}

// ListVideos returns the caller's dashboard videos.
func (c *Client) ListVideos(ctx context.Context) ([]models.Video, error) {
	var resp struct {
		Videos []models.Video `json:"videos"`
	}
	err := c.do(ctx, request{method: http.MethodGet, path: "/api/videos", out: &resp, authed: true})
	return resp.Videos, err
}

// RemoteVideos lists the caller's uploads on YouTube. limit 0 uses the server default.
func (c *Client) RemoteVideos(ctx context.Context, limit int) ([]models.VideoDetails, error) {
	path := "/api/videos/remote"
	if limit > 0 {
		path += "?max=" + strconv.Itoa(limit)
	}
	var resp struct {
		Videos []models.VideoDetails `json:"videos"`
	}
	err := c.do(ctx, request{method: http.MethodGet, path: path, out: &resp, authed: true})
	return resp.Videos, err
}

// GetVideo fetches one video, refreshed from YouTube when possible.
func (c *Client) GetVideo(ctx context.Context, id int64) (VideoResult, error) {
	var resp VideoResult
	err := c.do(ctx, request{method: http.MethodGet, path: videoPath(id), out: &resp, authed: true})
	return resp, err
}

// SyncVideo adds a YouTube video (id or URL) to the dashboard.
func (c *Client) SyncVideo(ctx context.Context, input string) (models.Video, error) {
	var resp VideoResult
	err := c.do(ctx, request{method: http.MethodPost, path: "/api/videos/sync", body: map[string]string{"externalVideoId": input}, out: &resp, authed: true})
	return resp.Video, err
}

// UpdateVideo edits the local title and description.
func (c *Client) UpdateVideo(ctx context.Context, id int64, patch models.VideoPatch) (models.Video, error) {
	var resp VideoResult
	err := c.do(ctx, request{method: http.MethodPut, path: videoPath(id), body: patch, out: &resp, authed: true})
	return resp.Video, err
}

// PublishVideo pushes the stored title and description to YouTube.
func (c *Client) PublishVideo(ctx context.Context, id int64) (models.Video, error) {
	var resp VideoResult
	err := c.do(ctx, request{method: http.MethodPost, path: videoPath(id) + "/publish", out: &resp, authed: true})
	return resp.Video, err
}

// DeleteVideo removes a video with its comments and notes.
func (c *Client) DeleteVideo(ctx context.Context, id int64) error {
	return c.do(ctx, request{method: http.MethodDelete, path: videoPath(id), authed: true})
}

// ListComments returns the stored comments of a video.
func (c *Client) ListComments(ctx context.Context, videoID int64) ([]models.Comment, error) {
	var resp struct {
		Comments []models.Comment `json:"comments"`
	}
	err := c.do(ctx, request{method: http.MethodGet, path: fmt.Sprintf("/api/comments/video/%d", videoID), out: &resp, authed: true})
	return resp.Comments, err
}

// AddComment stores a comment, publishing it to YouTube when asked.
func (c *Client) AddComment(ctx context.Context, comment NewComment) (models.Comment, error) {
	var resp struct {
		Comment models.Comment `json:"comment"`
	}
	err := c.do(ctx, request{method: http.MethodPost, path: "/api/comments", body: comment, out: &resp, authed: true})
	return resp.Comment, err
}

// Reply answers a published top-level comment.
func (c *Client) Reply(ctx context.Context, commentID, text string) (models.Comment, error) {
	var resp struct {
		Reply models.Comment `json:"reply"`
	}
	path := "/api/comments/" + url.PathEscape(commentID) + "/reply"
	err := c.do(ctx, request{method: http.MethodPost, path: path, body: map[string]string{"text": text}, out: &resp, authed: true})
	return resp.Reply, err
}

// DeleteComment removes a comment by its YouTube (or local) id.
func (c *Client) DeleteComment(ctx context.Context, commentID string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: "/api/comments/" + url.PathEscape(commentID), authed: true})
}

type noteList struct {
	Notes []models.Note `json:"notes"`
}

// ListNotes returns the notes of one video in display order.
func (c *Client) ListNotes(ctx context.Context, videoID int64) ([]models.Note, error) {
	var resp noteList
	err := c.do(ctx, request{method: http.MethodGet, path: fmt.Sprintf("/api/notes/video/%d", videoID), out: &resp, authed: true})
	return resp.Notes, err
}

// NotesByCategory returns the caller's notes filed under category.
func (c *Client) NotesByCategory(ctx context.Context, category string) ([]models.Note, error) {
	var resp noteList
	err := c.do(ctx, request{method: http.MethodGet, path: "/api/notes/category/" + url.PathEscape(category), out: &resp, authed: true})
	return resp.Notes, err
}

// SearchNotes matches query against note titles and contents. videoID 0 searches all videos.
func (c *Client) SearchNotes(ctx context.Context, query string, videoID int64) ([]models.Note, error) {
	params := url.Values{"q": {query}}
	if videoID > 0 {
		params.Set("videoId", strconv.FormatInt(videoID, 10))
	}
	var resp noteList
	err := c.do(ctx, request{method: http.MethodGet, path: "/api/notes/search?" + params.Encode(), out: &resp, authed: true})
	return resp.Notes, err
}

type noteResult struct {
	Note models.Note `json:"note"`
}

// AddNote creates a note.
func (c *Client) AddNote(ctx context.Context, note NewNote) (models.Note, error) {
	var resp noteResult
	err := c.do(ctx, request{method: http.MethodPost, path: "/api/notes", body: note, out: &resp, authed: true})
	return resp.Note, err
}

// UpdateNote applies a partial update.
func (c *Client) UpdateNote(ctx context.Context, id int64, patch models.NotePatch) (models.Note, error) {
	var resp noteResult
	err := c.do(ctx, request{method: http.MethodPut, path: notePath(id), body: patch, out: &resp, authed: true})
	return resp.Note, err
}

// DeleteNote removes a note.
func (c *Client) DeleteNote(ctx context.Context, id int64) error {
	return c.do(ctx, request{method: http.MethodDelete, path: notePath(id), authed: true})
}

func videoPath(id int64) string { return fmt.Sprintf("/api/videos/%d", id) }

func notePath(id int64) string { return fmt.Sprintf("/api/notes/%d", id) }
