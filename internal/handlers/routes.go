package handlers

import (
	"context"
	"net/http"

	"github.com/tubedesk/backend/internal/middleware"
)

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{Check: deps.Health}
	authHandler := AuthHandler{Identity: deps.Identity, Tokens: deps.Tokens, Users: deps.Users}
	videos := VideoHandler{Videos: deps.Videos, Users: deps.Users, YouTube: deps.YouTube, Snapshots: deps.Snapshots}
	comments := CommentHandler{Comments: deps.Comments, Videos: deps.Videos, Users: deps.Users, YouTube: deps.YouTube}
	notes := NoteHandler{Notes: deps.Notes, Videos: deps.Videos}

	var verifier middleware.TokenVerifier
	if deps.Tokens != nil {
		verifier = deps.Tokens
	}
	authenticate := middleware.Authenticate(verifier)
	protected := func(h http.HandlerFunc) http.Handler { return authenticate(h) }
	limited := func(h http.Handler) http.Handler { return rateLimited(deps.AuthLimiter, "auth", h) }

	mux.HandleFunc("GET /healthz", health.Handle)
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics)
	}

	mux.Handle("POST /api/auth/external", limited(http.HandlerFunc(authHandler.External)))
	mux.Handle("POST /api/auth/refresh", limited(http.HandlerFunc(authHandler.Refresh)))
	mux.Handle("POST /api/auth/youtube-token", limited(protected(authHandler.StoreYouTubeToken)))
	mux.Handle("POST /api/auth/logout", limited(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("GET /api/auth/me", protected(authHandler.Me))

	mux.Handle("GET /api/videos", protected(videos.List))
	mux.Handle("GET /api/videos/remote", protected(videos.Remote))
	mux.Handle("POST /api/videos/sync", protected(videos.Sync))
	mux.Handle("GET /api/videos/{id}", protected(videos.Get))
	mux.Handle("PUT /api/videos/{id}", protected(videos.Update))
	mux.Handle("DELETE /api/videos/{id}", protected(videos.Delete))
	mux.Handle("POST /api/videos/{id}/publish", protected(videos.Publish))

	mux.Handle("GET /api/comments/video/{videoId}", protected(comments.ListForVideo))
	mux.Handle("POST /api/comments", protected(comments.Create))
	mux.Handle("POST /api/comments/{commentId}/reply", protected(comments.Reply))
	mux.Handle("DELETE /api/comments/{commentId}", protected(comments.Delete))

	mux.Handle("GET /api/notes/video/{videoId}", protected(notes.ListForVideo))
	mux.Handle("GET /api/notes/category/{category}", protected(notes.ListByCategory))
	mux.Handle("GET /api/notes/search", protected(notes.Search))
	mux.Handle("POST /api/notes", protected(notes.Create))
	mux.Handle("PUT /api/notes/{id}", protected(notes.Update))
	mux.Handle("DELETE /api/notes/{id}", protected(notes.Delete))
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Tokens      TokenService
	Identity    IdentityResolver
	Users       UserStore
	Videos      VideoStore
	Comments    CommentStore
	Notes       NoteStore
	YouTube     YouTubeClient
	Snapshots   SnapshotArchiver
	AuthLimiter RateLimiter
	Health      func(ctx context.Context) error
	Metrics     http.Handler
}
