// Package youtube wraps the YouTube Data API calls the dashboard makes on a
// user's behalf. Every call authenticates with the caller's stored OAuth access
// token. Client itself never retries; CachingClient adds a short-lived cache
// of video lookups.
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/tubedesk/backend/internal/logging"
	"github.com/tubedesk/backend/internal/models"
)

const (
	defaultListSize = 25
	maxListSize     = 50
)

// Client issues YouTube Data API requests.
type Client struct {
	opts []option.ClientOption
}

// New constructs a Client. opts are applied to every underlying service and
// exist mostly so tests can point the client at a fake endpoint.
func New(opts ...option.ClientOption) *Client {
	return &Client{opts: opts}
}

func (c *Client) service(ctx context.Context, token string) (*yt.Service, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrExternalAccessRequired
	}
	opts := append([]option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})),
	}, c.opts...)
	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, wrapError("create service", err)
	}
	return svc, nil
}

// FetchVideo loads snippet, statistics and status for videoID.
func (c *Client) FetchVideo(ctx context.Context, token, videoID string) (models.VideoDetails, error) {
	ctx, span := logging.StartSpan(ctx, "youtube.videos.list")
	defer span.End()

	details, err := c.fetchVideo(ctx, token, videoID)
	if err != nil {
		span.Fail(err)
	}
	return details, err
}

func (c *Client) fetchVideo(ctx context.Context, token, videoID string) (models.VideoDetails, error) {
	item, err := c.getVideo(ctx, token, videoID, "snippet", "statistics", "status")
	if err != nil {
		return models.VideoDetails{}, err
	}
	return videoDetails(item)
}

func (c *Client) getVideo(ctx context.Context, token, videoID string, parts ...string) (*yt.Video, error) {
	svc, err := c.service(ctx, token)
	if err != nil {
		return nil, err
	}
	resp, err := svc.Videos.List(parts).Id(videoID).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			return nil, ErrVideoNotFound
		}
		return nil, wrapError("videos.list", err)
	}
	if len(resp.Items) == 0 || resp.Items[0] == nil {
		return nil, ErrVideoNotFound
	}
	return resp.Items[0], nil
}

// InsertComment posts a new top-level comment on videoID.
func (c *Client) InsertComment(ctx context.Context, token, videoID, text string) (models.Comment, error) {
	ctx, span := logging.StartSpan(ctx, "youtube.commentThreads.insert")
	defer span.End()

	svc, err := c.service(ctx, token)
	if err != nil {
		span.Fail(err)
		return models.Comment{}, err
	}

	thread, err := svc.CommentThreads.Insert([]string{"snippet"}, &yt.CommentThread{
		Snippet: &yt.CommentThreadSnippet{
			VideoId: videoID,
			TopLevelComment: &yt.Comment{
				Snippet: &yt.CommentSnippet{TextOriginal: text},
			},
		},
	}).Context(ctx).Do()
	if err != nil {
		err = wrapError("commentThreads.insert", err)
		span.Fail(err)
		return models.Comment{}, err
	}
	if thread.Snippet == nil || thread.Snippet.TopLevelComment == nil {
		err := wrapError("commentThreads.insert", errors.New("response has no top-level comment"))
		span.Fail(err)
		return models.Comment{}, err
	}
	comment, err := commentFrom(thread.Snippet.TopLevelComment)
	if err != nil {
		span.Fail(err)
		return models.Comment{}, err
	}
	return comment, nil
}

// InsertReply posts a reply to the remote comment parentID.
func (c *Client) InsertReply(ctx context.Context, token, parentID, text string) (models.Comment, error) {
	ctx, span := logging.StartSpan(ctx, "youtube.comments.insert")
	defer span.End()

	svc, err := c.service(ctx, token)
	if err != nil {
		span.Fail(err)
		return models.Comment{}, err
	}

	reply, err := svc.Comments.Insert([]string{"snippet"}, &yt.Comment{
		Snippet: &yt.CommentSnippet{ParentId: parentID, TextOriginal: text},
	}).Context(ctx).Do()
	if err != nil {
		err = wrapError("comments.insert", err)
		span.Fail(err)
		return models.Comment{}, err
	}

	comment, err := commentFrom(reply)
	if err != nil {
		span.Fail(err)
		return models.Comment{}, err
	}
	comment.IsReply = true
	comment.ParentCommentID = parentID
	return comment, nil
}

// DeleteComment removes the remote comment commentID.
func (c *Client) DeleteComment(ctx context.Context, token, commentID string) error {
	ctx, span := logging.StartSpan(ctx, "youtube.comments.delete")
	defer span.End()

	svc, err := c.service(ctx, token)
	if err != nil {
		span.Fail(err)
		return err
	}
	if err := svc.Comments.Delete(commentID).Context(ctx).Do(); err != nil {
		err = wrapError("comments.delete", err)
		span.Fail(err)
		return err
	}
	return nil
}

// UpdateVideo merges the patch into the current remote snippet and writes it back.
// Snippet fields absent from the patch, including the category, are preserved.
func (c *Client) UpdateVideo(ctx context.Context, token, videoID string, patch models.VideoPatch) (models.VideoDetails, error) {
	ctx, span := logging.StartSpan(ctx, "youtube.videos.update")
	defer span.End()

	current, err := c.getVideo(ctx, token, videoID, "snippet")
	if err != nil {
		span.Fail(err)
		return models.VideoDetails{}, err
	}

	snippet := current.Snippet
	if snippet == nil {
		snippet = &yt.VideoSnippet{}
	}
	if patch.Title != nil {
		snippet.Title = *patch.Title
	}
	if patch.Description != nil {
		snippet.Description = *patch.Description
		snippet.ForceSendFields = append(snippet.ForceSendFields, "Description")
	}

	svc, err := c.service(ctx, token)
	if err != nil {
		span.Fail(err)
		return models.VideoDetails{}, err
	}
	updated, err := svc.Videos.Update([]string{"snippet"}, &yt.Video{Id: videoID, Snippet: snippet}).Context(ctx).Do()
	if err != nil {
		err = wrapError("videos.update", err)
		span.Fail(err)
		return models.VideoDetails{}, err
	}
	return videoDetails(updated)
}

// ListOwnedVideos returns the caller's most recent uploads.
func (c *Client) ListOwnedVideos(ctx context.Context, token string, limit int64) ([]models.VideoDetails, error) {
	ctx, span := logging.StartSpan(ctx, "youtube.search.list")
	defer span.End()

	if limit <= 0 {
		limit = defaultListSize
	}
	if limit > maxListSize {
		limit = maxListSize
	}

	svc, err := c.service(ctx, token)
	if err != nil {
		span.Fail(err)
		return nil, err
	}

	resp, err := svc.Search.List([]string{"snippet"}).
		ForMine(true).
		Type("video").
		Order("date").
		MaxResults(limit).
		Context(ctx).
		Do()
	if err != nil {
		err = wrapError("search.list", err)
		span.Fail(err)
		return nil, err
	}

	videos := make([]models.VideoDetails, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item == nil || item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		details := models.VideoDetails{YouTubeVideoID: item.Id.VideoId}
		if s := item.Snippet; s != nil {
			details.Title = s.Title
			details.Description = s.Description
			details.ThumbnailURL = thumbnailURL(s.Thumbnails)
			details.PublishedAt = parseTime(s.PublishedAt)
		}
		videos = append(videos, details)
	}
	return videos, nil
}

func videoDetails(item *yt.Video) (models.VideoDetails, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return models.VideoDetails{}, wrapError("encode video", err)
	}
	details := models.VideoDetails{YouTubeVideoID: item.Id, Raw: raw}
	if s := item.Snippet; s != nil {
		details.Title = s.Title
		details.Description = s.Description
		details.ThumbnailURL = thumbnailURL(s.Thumbnails)
		details.PublishedAt = parseTime(s.PublishedAt)
	}
	if st := item.Statistics; st != nil {
		details.ViewCount = int64(st.ViewCount)
		details.LikeCount = int64(st.LikeCount)
		details.CommentCount = int64(st.CommentCount)
	}
	return details, nil
}

func commentFrom(c *yt.Comment) (models.Comment, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return models.Comment{}, wrapError("encode comment", err)
	}
	comment := models.Comment{YouTubeCommentID: c.Id, Metadata: raw}
	if s := c.Snippet; s != nil {
		comment.AuthorName = s.AuthorDisplayName
		comment.AuthorChannelURL = s.AuthorChannelUrl
		comment.TextDisplay = s.TextDisplay
		if comment.TextDisplay == "" {
			comment.TextDisplay = s.TextOriginal
		}
		comment.LikeCount = s.LikeCount
		comment.PublishedAt = parseTime(s.PublishedAt)
		comment.UpdatedAt = parseTime(s.UpdatedAt)
		if s.ParentId != "" {
			comment.IsReply = true
			comment.ParentCommentID = s.ParentId
		}
	}
	return comment, nil
}

func thumbnailURL(t *yt.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, thumb := range []*yt.Thumbnail{t.High, t.Medium, t.Default} {
		if thumb != nil && thumb.Url != "" {
			return thumb.Url
		}
	}
	return ""
}

func parseTime(value string) *time.Time {
	if value == "" {
		return nil
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil
	}
	ts = ts.UTC()
	return &ts
}
