package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/tubedesk/backend/internal/models"
)

const videoJSON = `{
  "items": [{
    "id": "dQw4w9WgXcQ",
    "snippet": {
      "title": "Launch day",
      "description": "Behind the scenes",
      "categoryId": "22",
      "publishedAt": "2024-03-01T12:00:00Z",
      "thumbnails": {"default": {"url": "https://i.ytimg.com/default.jpg"}, "high": {"url": "https://i.ytimg.com/high.jpg"}}
    },
    "statistics": {"viewCount": "1500", "likeCount": "42", "commentCount": "7"},
    "status": {"privacyStatus": "unlisted"}
  }]
}`

type fakeYouTube struct {
	t        *testing.T
	requests []string
	updated  map[string]any
	status   int
}

func (f *fakeYouTube) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	w.Header().Set("Content-Type", "application/json")

	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = io.WriteString(w, `{"error":{"code":403,"message":"insufficientPermissions"}}`)
		return
	}

	switch r.Method + " " + r.URL.Path {
	case "GET /youtube/v3/videos":
		if r.URL.Query().Get("id") != "dQw4w9WgXcQ" {
			_, _ = io.WriteString(w, `{"items": []}`)
			return
		}
		_, _ = io.WriteString(w, videoJSON)
	case "PUT /youtube/v3/videos":
		var body map[string]any
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
		f.updated = body
		_ = json.NewEncoder(w).Encode(body)
	case "POST /youtube/v3/commentThreads":
		_, _ = io.WriteString(w, `{"id":"thread-1","snippet":{"videoId":"dQw4w9WgXcQ","topLevelComment":{"id":"Ugx-top","snippet":{"authorDisplayName":"Creator","authorChannelUrl":"https://youtube.com/@creator","textDisplay":"First!","likeCount":0,"publishedAt":"2024-03-02T08:00:00Z","updatedAt":"2024-03-02T08:00:00Z"}}}}`)
	case "POST /youtube/v3/comments":
		_, _ = io.WriteString(w, `{"id":"Ugx-top.reply","snippet":{"parentId":"Ugx-top","authorDisplayName":"Creator","textDisplay":"Thanks","publishedAt":"2024-03-02T09:00:00Z"}}`)
	case "DELETE /youtube/v3/comments":
		w.WriteHeader(http.StatusNoContent)
	case "GET /youtube/v3/search":
		assert.Equal(f.t, "true", r.URL.Query().Get("forMine"))
		assert.Equal(f.t, "10", r.URL.Query().Get("maxResults"))
		_, _ = io.WriteString(w, `{"items":[{"id":{"kind":"youtube#video","videoId":"aaaaaaaaaaa"},"snippet":{"title":"Newest","publishedAt":"2024-04-01T00:00:00Z"}},{"id":{"kind":"youtube#channel"}}]}`)
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T) (*Client, *fakeYouTube) {
	t.Helper()
	fake := &fakeYouTube{t: t}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return New(option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client())), fake
}

func TestFetchVideo(t *testing.T) {
	client, _ := newTestClient(t)

	details, err := client.FetchVideo(context.Background(), "ya29.token", "dQw4w9WgXcQ")
	require.NoError(t, err)

	assert.Equal(t, "dQw4w9WgXcQ", details.YouTubeVideoID)
	assert.Equal(t, "Launch day", details.Title)
	assert.Equal(t, "https://i.ytimg.com/high.jpg", details.ThumbnailURL)
	assert.Equal(t, int64(1500), details.ViewCount)
	assert.Equal(t, int64(42), details.LikeCount)
	assert.Equal(t, int64(7), details.CommentCount)
	require.NotNil(t, details.PublishedAt)
	assert.Equal(t, 2024, details.PublishedAt.Year())
	assert.Contains(t, string(details.Raw), `"privacyStatus":"unlisted"`)
}

func TestFetchVideoNotFound(t *testing.T) {
	client, _ := newTestClient(t)

	_, err := client.FetchVideo(context.Background(), "ya29.token", "zzzzzzzzzzz")
	assert.ErrorIs(t, err, ErrVideoNotFound)
}

func TestEmptyTokenShortCircuits(t *testing.T) {
	client, fake := newTestClient(t)

	_, err := client.FetchVideo(context.Background(), "", "dQw4w9WgXcQ")
	assert.ErrorIs(t, err, ErrExternalAccessRequired)
	err = client.DeleteComment(context.Background(), "  ", "Ugx-top")
	assert.ErrorIs(t, err, ErrExternalAccessRequired)
	_, err = client.ListOwnedVideos(context.Background(), "", 5)
	assert.ErrorIs(t, err, ErrExternalAccessRequired)

	assert.Empty(t, fake.requests, "no remote call may be made without a token")
}

func TestRemoteFailureIsServiceError(t *testing.T) {
	client, fake := newTestClient(t)
	fake.status = http.StatusForbidden

	_, err := client.InsertComment(context.Background(), "ya29.token", "dQw4w9WgXcQ", "hi")

	var svcErr *ServiceError
	require.True(t, errors.As(err, &svcErr), "expected *ServiceError, got %T", err)
	assert.Equal(t, http.StatusForbidden, svcErr.Status)
	assert.True(t, svcErr.Forbidden())
	assert.Len(t, fake.requests, 1, "failures must not be retried")
}

func TestCommentWrites(t *testing.T) {
	client, fake := newTestClient(t)
	ctx := context.Background()

	top, err := client.InsertComment(ctx, "ya29.token", "dQw4w9WgXcQ", "First!")
	require.NoError(t, err)
	assert.Equal(t, "Ugx-top", top.YouTubeCommentID)
	assert.Equal(t, "Creator", top.AuthorName)
	assert.False(t, top.IsReply)
	assert.Contains(t, string(top.Metadata), `"authorDisplayName":"Creator"`)

	reply, err := client.InsertReply(ctx, "ya29.token", "Ugx-top", "Thanks")
	require.NoError(t, err)
	assert.True(t, reply.IsReply)
	assert.Equal(t, "Ugx-top", reply.ParentCommentID)
	assert.Equal(t, "Thanks", reply.TextDisplay)
	assert.Contains(t, string(reply.Metadata), `"parentId":"Ugx-top"`)

	require.NoError(t, client.DeleteComment(ctx, "ya29.token", "Ugx-top"))
	assert.Equal(t, []string{
		"POST /youtube/v3/commentThreads",
		"POST /youtube/v3/comments",
		"DELETE /youtube/v3/comments",
	}, fake.requests)
}

func TestUpdateVideoKeepsCategory(t *testing.T) {
	client, fake := newTestClient(t)

	title := "Launch day (remastered)"
	details, err := client.UpdateVideo(context.Background(), "ya29.token", "dQw4w9WgXcQ", models.VideoPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, details.Title)

	require.NotNil(t, fake.updated)
	snippet, ok := fake.updated["snippet"].(map[string]any)
	require.True(t, ok, "expected snippet in update body")
	assert.Equal(t, "22", snippet["categoryId"])
	assert.Equal(t, "Behind the scenes", snippet["description"])
}

func TestListOwnedVideos(t *testing.T) {
	client, _ := newTestClient(t)

	videos, err := client.ListOwnedVideos(context.Background(), "ya29.token", 10)
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, "aaaaaaaaaaa", videos[0].YouTubeVideoID)
	assert.Equal(t, "Newest", videos[0].Title)
}

func TestExtractVideoID(t *testing.T) {
	cases := map[string]string{
		"dQw4w9WgXcQ":                                     "dQw4w9WgXcQ",
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=1": "dQw4w9WgXcQ",
		"youtube.com/watch?v=dQw4w9WgXcQ":                 "dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ?si=abc":             "dQw4w9WgXcQ",
		"https://www.youtube.com/embed/dQw4w9WgXcQ":       "dQw4w9WgXcQ",
		"https://m.youtube.com/shorts/dQw4w9WgXcQ":        "dQw4w9WgXcQ",
	}
	for input, want := range cases {
		got, err := ExtractVideoID(input)
		if assert.NoError(t, err, input) {
			assert.Equal(t, want, got, input)
		}
	}

	for _, input := range []string{"", "short", "https://vimeo.com/12345678901", "https://www.youtube.com/watch?v=bad"} {
		_, err := ExtractVideoID(input)
		assert.ErrorIs(t, err, ErrInvalidVideoID, input)
	}
}
