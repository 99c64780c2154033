package handlers

import (
	"context"

	"github.com/tubedesk/backend/internal/models"
)

// UserStore captures the user operations required by the handlers.
type UserStore interface {
	FindByID(ctx context.Context, id int64) (models.User, error)
	SetExternalTokens(ctx context.Context, userID int64, accessToken, refreshToken string) error
}

// IdentityResolver exchanges a Google credential for a local user.
type IdentityResolver interface {
	Resolve(ctx context.Context, credential string) (models.User, error)
}

// TokenService issues, verifies and refreshes local bearer tokens.
type TokenService interface {
	IssuePair(userID int64) (models.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Verify(ctx context.Context, token string) (models.User, error)
}

// VideoStore captures owner-scoped persistence for synced videos.
type VideoStore interface {
	List(ctx context.Context, userID int64) ([]models.Video, error)
	Get(ctx context.Context, id, userID int64) (models.Video, error)
	ExistsByYouTubeID(ctx context.Context, youtubeVideoID string) (bool, error)
	Create(ctx context.Context, userID int64, details models.VideoDetails) (models.Video, error)
	ApplyRemote(ctx context.Context, id, userID int64, details models.VideoDetails) (models.Video, error)
	Update(ctx context.Context, id, userID int64, patch models.VideoPatch) (models.Video, error)
	Delete(ctx context.Context, id, userID int64) error
}

// CommentStore captures comment persistence scoped through the owning video.
type CommentStore interface {
	ListForVideo(ctx context.Context, videoID, userID int64) ([]models.Comment, error)
	Create(ctx context.Context, comment models.Comment) (models.Comment, error)
	FindOwned(ctx context.Context, youtubeCommentID string, userID int64) (models.Comment, error)
	FindOwnedTopLevel(ctx context.Context, youtubeCommentID string, userID int64) (models.Comment, error)
	Delete(ctx context.Context, id, userID int64) error
}

// NoteStore captures owner-scoped persistence for notes.
type NoteStore interface {
	List(ctx context.Context, userID int64, filter models.NoteFilter) ([]models.Note, error)
	Get(ctx context.Context, id, userID int64) (models.Note, error)
	Create(ctx context.Context, note models.Note) (models.Note, error)
	Update(ctx context.Context, id, userID int64, patch models.NotePatch) (models.Note, error)
	Delete(ctx context.Context, id, userID int64) error
}

// YouTubeClient performs YouTube Data API calls with a user's access token.
type YouTubeClient interface {
	FetchVideo(ctx context.Context, token, videoID string) (models.VideoDetails, error)
	InsertComment(ctx context.Context, token, videoID, text string) (models.Comment, error)
	InsertReply(ctx context.Context, token, parentID, text string) (models.Comment, error)
	DeleteComment(ctx context.Context, token, commentID string) error
	UpdateVideo(ctx context.Context, token, videoID string, patch models.VideoPatch) (models.VideoDetails, error)
	ListOwnedVideos(ctx context.Context, token string, limit int64) ([]models.VideoDetails, error)
}

// SnapshotArchiver keeps raw remote payloads for later inspection.
type SnapshotArchiver interface {
	Archive(ctx context.Context, youtubeVideoID string, raw []byte) (string, error)
}
