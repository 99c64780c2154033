package models

import (
	"encoding/json"
	"strings"
	"time"
)

// User represents an account within the TubeDesk dashboard.
type User struct {
	ID                   int64     `json:"id"`
	GoogleID             string    `json:"googleId"`
	Email                string    `json:"email"`
	Name                 string    `json:"name"`
	ExternalAccessToken  string    `json:"-"`
	ExternalRefreshToken string    `json:"-"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// HasYouTubeAccess reports whether the user has a stored credential for calling the YouTube API.
func (u User) HasYouTubeAccess() bool {
	return u.ExternalAccessToken != ""
}

// ExternalIdentity is the normalized identity returned by a sign-in provider.
type ExternalIdentity struct {
	ExternalID  string
	Email       string
	DisplayName string
}

// Video mirrors the metadata of a remote YouTube video owned by a user.
type Video struct {
	ID             int64           `json:"id"`
	UserID         int64           `json:"userId"`
	YouTubeVideoID string          `json:"youtubeVideoId"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	ThumbnailURL   string          `json:"thumbnailUrl"`
	ViewCount      int64           `json:"viewCount"`
	LikeCount      int64           `json:"likeCount"`
	CommentCount   int64           `json:"commentCount"`
	PublishedAt    *time.Time      `json:"publishedAt"`
	Metadata       json.RawMessage `json:"youtubeMetadata,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`

	// Counts of locally stored dependents, populated by list and get queries.
	LocalComments int `json:"localCommentCount"`
	LocalNotes    int `json:"localNoteCount"`
}

// VideoDetails is the subset of remote video state persisted on sync and refresh.
type VideoDetails struct {
	YouTubeVideoID string          `json:"youtubeVideoId"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	ThumbnailURL   string          `json:"thumbnailUrl"`
	ViewCount      int64           `json:"viewCount"`
	LikeCount      int64           `json:"likeCount"`
	CommentCount   int64           `json:"commentCount"`
	PublishedAt    *time.Time      `json:"publishedAt"`
	Raw            json.RawMessage `json:"-"`
}

// VideoPatch enumerates the locally editable video fields. Nil fields are left untouched.
type VideoPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Empty reports whether the patch carries no field.
func (p VideoPatch) Empty() bool {
	return p.Title == nil && p.Description == nil
}

// Comment is a comment on a synced video, top-level or reply.
type Comment struct {
	ID               int64           `json:"id"`
	VideoID          int64           `json:"videoId"`
	YouTubeCommentID string          `json:"youtubeCommentId"`
	AuthorName       string          `json:"authorName"`
	AuthorChannelURL string          `json:"authorChannelUrl"`
	TextDisplay      string          `json:"textDisplay"`
	LikeCount        int64           `json:"likeCount"`
	PublishedAt      *time.Time      `json:"publishedAt"`
	UpdatedAt        *time.Time      `json:"updatedAt"`
	IsReply          bool            `json:"isReply"`
	ParentCommentID  string          `json:"parentCommentId,omitempty"`
	Metadata         json.RawMessage `json:"youtubeMetadata,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// LocalCommentPrefix marks comments that only exist in the local store.
const LocalCommentPrefix = "local_"

// IsLocal reports whether the comment was never published to YouTube.
func (c Comment) IsLocal() bool {
	return strings.HasPrefix(c.YouTubeCommentID, LocalCommentPrefix)
}

// Note is a personal, local-only note attached to a video.
type Note struct {
	ID          int64     `json:"id"`
	VideoID     int64     `json:"videoId"`
	UserID      int64     `json:"userId"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Category    *string   `json:"category"`
	Priority    int       `json:"priority"`
	IsCompleted bool      `json:"isCompleted"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// Video is populated by cross-video queries (search, category).
	Video *VideoSummary `json:"video,omitempty"`
}

// VideoSummary is the short form of a video embedded in note listings.
type VideoSummary struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	YouTubeVideoID string `json:"youtubeVideoId"`
}

// NotePatch enumerates the editable note fields. Nil fields are left untouched;
// a non-nil empty Category clears the category.
type NotePatch struct {
	Title       *string `json:"title,omitempty"`
	Content     *string `json:"content,omitempty"`
	Category    *string `json:"category,omitempty"`
	Priority    *int    `json:"priority,omitempty"`
	IsCompleted *bool   `json:"isCompleted,omitempty"`
}

// Empty reports whether the patch carries no field.
func (p NotePatch) Empty() bool {
	return p.Title == nil && p.Content == nil && p.Category == nil && p.Priority == nil && p.IsCompleted == nil
}

// NoteFilter narrows note listings. Zero values disable a filter.
type NoteFilter struct {
	VideoID  int64
	Category string
	Query    string
}

const (
	NotePriorityMin     = 1
	NotePriorityMax     = 5
	NotePriorityDefault = NotePriorityMin
)

// NoteCategories is the fixed set of labels a note may be filed under.
var NoteCategories = []string{
	"Content",
	"SEO",
	"Thumbnail",
	"Title",
	"Description",
	"Tags",
	"Engagement",
	"Technical",
	"Ideas",
	"Other",
}

// IsNoteCategory reports whether name is one of NoteCategories.
func IsNoteCategory(name string) bool {
	for _, c := range NoteCategories {
		if c == name {
			return true
		}
	}
	return false
}

var priorityLabels = map[int]string{
	1: "Low",
	2: "Medium",
	3: "High",
	4: "Urgent",
	5: "Critical",
}

// PriorityLabel returns the display label for a note priority.
func PriorityLabel(priority int) string {
	if label, ok := priorityLabels[priority]; ok {
		return label
	}
	return "Unknown"
}

// TokenPair groups the locally issued bearer credentials.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
