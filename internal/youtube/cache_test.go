package youtube

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tubedesk/backend/internal/models"
)

type stubService struct {
	Service
	details models.VideoDetails
	err     error
	fetches int
	updates int
}

func (s *stubService) FetchVideo(context.Context, string, string) (models.VideoDetails, error) {
	s.fetches++
	if s.err != nil {
		return models.VideoDetails{}, s.err
	}
	return s.details, nil
}

func (s *stubService) UpdateVideo(context.Context, string, string, models.VideoPatch) (models.VideoDetails, error) {
	s.updates++
	return s.details, nil
}

func TestCachingClientFetchVideo(t *testing.T) {
	clock := clockwork.NewFakeClock()
	base := &stubService{details: models.VideoDetails{YouTubeVideoID: "dQw4w9WgXcQ", Title: "Launch"}}
	cache := NewCachingClient(base, time.Minute, clock)
	ctx := context.Background()

	details, err := cache.FetchVideo(ctx, "token", "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if details.Title != "Launch" {
		t.Fatalf("unexpected details: %+v", details)
	}

	if _, err := cache.FetchVideo(ctx, "token", "dQw4w9WgXcQ"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if base.fetches != 1 {
		t.Fatalf("expected cached result got %d calls", base.fetches)
	}

	if _, err := cache.FetchVideo(ctx, "other-token", "dQw4w9WgXcQ"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if base.fetches != 2 {
		t.Fatalf("expected a separate entry per token got %d calls", base.fetches)
	}

	clock.Advance(time.Minute)
	if _, err := cache.FetchVideo(ctx, "token", "dQw4w9WgXcQ"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if base.fetches != 3 {
		t.Fatalf("expected expired entry to be refetched got %d calls", base.fetches)
	}
	if cache.Len() != 1 {
		t.Fatalf("expected expired entries to be evicted got %d", cache.Len())
	}
}

func TestCachingClientDoesNotCacheErrors(t *testing.T) {
	base := &stubService{err: ErrVideoNotFound}
	cache := NewCachingClient(base, time.Minute, clockwork.NewFakeClock())

	for i := 0; i < 2; i++ {
		if _, err := cache.FetchVideo(context.Background(), "token", "dQw4w9WgXcQ"); !errors.Is(err, ErrVideoNotFound) {
			t.Fatalf("expected ErrVideoNotFound got %v", err)
		}
	}
	if base.fetches != 2 {
		t.Fatalf("expected every failure to reach the base got %d calls", base.fetches)
	}
}

func TestCachingClientUpdateInvalidates(t *testing.T) {
	base := &stubService{details: models.VideoDetails{YouTubeVideoID: "dQw4w9WgXcQ"}}
	cache := NewCachingClient(base, time.Minute, clockwork.NewFakeClock())
	ctx := context.Background()

	if _, err := cache.FetchVideo(ctx, "token", "dQw4w9WgXcQ"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	title := "Renamed"
	if _, err := cache.UpdateVideo(ctx, "token", "dQw4w9WgXcQ", models.VideoPatch{Title: &title}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := cache.FetchVideo(ctx, "token", "dQw4w9WgXcQ"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if base.fetches != 2 || base.updates != 1 {
		t.Fatalf("expected refetch after update got %d fetches %d updates", base.fetches, base.updates)
	}
}

func TestCachingClientUpdateInvalidatesEveryToken(t *testing.T) {
	base := &stubService{details: models.VideoDetails{YouTubeVideoID: "dQw4w9WgXcQ"}}
	cache := NewCachingClient(base, time.Minute, clockwork.NewFakeClock())
	ctx := context.Background()

	for _, key := range []struct{ token, videoID string }{
		{"old-token", "dQw4w9WgXcQ"},
		{"new-token", "dQw4w9WgXcQ"},
		{"new-token", "9bZkp7q19f0"},
	} {
		if _, err := cache.FetchVideo(ctx, key.token, key.videoID); err != nil {
			t.Fatalf("fetch %s/%s: %v", key.token, key.videoID, err)
		}
	}

	title := "Renamed"
	if _, err := cache.UpdateVideo(ctx, "new-token", "dQw4w9WgXcQ", models.VideoPatch{Title: &title}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if cache.Len() != 1 {
		t.Fatalf("expected only the other video to stay cached, have %d entries", cache.Len())
	}

	if _, err := cache.FetchVideo(ctx, "old-token", "dQw4w9WgXcQ"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if base.fetches != 4 {
		t.Fatalf("expected lookup under the old token to refetch, got %d fetches", base.fetches)
	}
}
