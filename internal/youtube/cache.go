package youtube

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tubedesk/backend/internal/models"
)

// Service is the set of YouTube calls the handlers make.
type Service interface {
	FetchVideo(ctx context.Context, token, videoID string) (models.VideoDetails, error)
	InsertComment(ctx context.Context, token, videoID, text string) (models.Comment, error)
	InsertReply(ctx context.Context, token, parentID, text string) (models.Comment, error)
	DeleteComment(ctx context.Context, token, commentID string) error
	UpdateVideo(ctx context.Context, token, videoID string, patch models.VideoPatch) (models.VideoDetails, error)
	ListOwnedVideos(ctx context.Context, token string, limit int64) ([]models.VideoDetails, error)
}

type cacheKey struct {
	token   string
	videoID string
}

type cacheEntry struct {
	details models.VideoDetails
	expires time.Time
}

// CachingClient wraps a Service and caches FetchVideo results per access
// token for a fixed TTL. Only successful lookups are cached; UpdateVideo
// drops the cached entry for the edited video.
type CachingClient struct {
	Service
	ttl   time.Duration
	clock clockwork.Clock

	mu    sync.RWMutex
	items map[cacheKey]cacheEntry
}

// NewCachingClient returns base wrapped with a lookup cache. A non-positive
// ttl falls back to one minute; a nil clock uses the real clock.
func NewCachingClient(base Service, ttl time.Duration, clock clockwork.Clock) *CachingClient {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CachingClient{
		Service: base,
		ttl:     ttl,
		clock:   clock,
		items:   make(map[cacheKey]cacheEntry),
	}
}

// FetchVideo returns cached details when fresh, otherwise it delegates and
// stores the result.
func (c *CachingClient) FetchVideo(ctx context.Context, token, videoID string) (models.VideoDetails, error) {
	key := cacheKey{token: token, videoID: videoID}
	now := c.clock.Now()

	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.details, nil
	}

	details, err := c.Service.FetchVideo(ctx, token, videoID)
	if err != nil {
		return models.VideoDetails{}, err
	}

	c.mu.Lock()
	c.evictExpiredLocked(now)
	c.items[key] = cacheEntry{details: details, expires: now.Add(c.ttl)}
	c.mu.Unlock()

	return details, nil
}

// UpdateVideo delegates and invalidates every cached lookup for videoID,
// whichever token it was fetched with.
func (c *CachingClient) UpdateVideo(ctx context.Context, token, videoID string, patch models.VideoPatch) (models.VideoDetails, error) {
	details, err := c.Service.UpdateVideo(ctx, token, videoID, patch)

	c.mu.Lock()
	for key := range c.items {
		if key.videoID == videoID {
			delete(c.items, key)
		}
	}
	c.mu.Unlock()

	return details, err
}

// Len returns the number of cached lookups, expired or not.
func (c *CachingClient) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *CachingClient) evictExpiredLocked(now time.Time) {
	for key, entry := range c.items {
		if !now.Before(entry.expires) {
			delete(c.items, key)
		}
	}
}
