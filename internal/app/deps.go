package app

import (
	"context"
	"fmt"
	"time"

	"github.com/tubedesk/backend/internal/auth"
	"github.com/tubedesk/backend/internal/config"
	"github.com/tubedesk/backend/internal/crypto"
	"github.com/tubedesk/backend/internal/db"
	"github.com/tubedesk/backend/internal/handlers"
	"github.com/tubedesk/backend/internal/middleware"
	"github.com/tubedesk/backend/internal/repositories"
	"github.com/tubedesk/backend/internal/storage"
	"github.com/tubedesk/backend/internal/youtube"
)

const authLimiterTTL = 10 * time.Minute

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, error) {
	cipher, err := crypto.New(cfg.TokenEncryptionKey)
	if err != nil {
		return handlers.Dependencies{}, fmt.Errorf("configure token encryption: %w", err)
	}

	users := repositories.NewPostgresUserRepository(pool, cipher)

	verifier, err := auth.NewGoogleVerifier(ctx, cfg.GoogleClientID)
	if err != nil {
		return handlers.Dependencies{}, err
	}

	deps := handlers.Dependencies{
		Tokens:      auth.NewTokenService([]byte(cfg.JWTSecret), cfg.AccessTokenTTL, cfg.RefreshTokenTTL, users, nil),
		Identity:    auth.NewResolver(verifier, users),
		Users:       users,
		Videos:      repositories.NewPostgresVideoRepository(pool),
		Comments:    repositories.NewPostgresCommentRepository(pool),
		Notes:       repositories.NewPostgresNoteRepository(pool),
		YouTube:     youtubeService(cfg),
		AuthLimiter: middleware.NewIPRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow, cfg.AuthRateBurst, authLimiterTTL, nil),
		Health:      pool.Ping,
	}

	if cfg.SnapshotsEnabled() {
		archive, err := storage.NewSnapshotArchive(ctx, cfg)
		if err != nil {
			return handlers.Dependencies{}, err
		}
		deps.Snapshots = archive
	}

	return deps, nil
}

func youtubeService(cfg config.Config) handlers.YouTubeClient {
	client := youtube.New()
	if cfg.YouTubeCacheTTL <= 0 {
		return client
	}
	return youtube.NewCachingClient(client, cfg.YouTubeCacheTTL, nil)
}
