package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/tubedesk/backend/internal/db"
	"github.com/tubedesk/backend/internal/models"
)

// VideoRepository exposes owner-scoped data access for synced videos.
type VideoRepository interface {
	List(ctx context.Context, userID int64) ([]models.Video, error)
	Get(ctx context.Context, id, userID int64) (models.Video, error)
	ExistsByYouTubeID(ctx context.Context, youtubeVideoID string) (bool, error)
	Create(ctx context.Context, userID int64, details models.VideoDetails) (models.Video, error)
	ApplyRemote(ctx context.Context, id, userID int64, details models.VideoDetails) (models.Video, error)
	Update(ctx context.Context, id, userID int64, patch models.VideoPatch) (models.Video, error)
	Delete(ctx context.Context, id, userID int64) error
}

// PostgresVideoRepository provides PostgreSQL-backed persistence for synced videos.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

const videoSelect = `
        SELECT v.id, v.user_id, v.youtube_video_id, v.title, COALESCE(v.description, ''),
               COALESCE(v.thumbnail_url, ''), v.view_count, v.like_count, v.comment_count,
               v.published_at, v.metadata, v.created_at, v.updated_at,
               (SELECT count(*) FROM comments c WHERE c.video_id = v.id),
               (SELECT count(*) FROM notes n WHERE n.video_id = v.id)
        FROM videos v`

func scanVideo(row pgx.Row) (models.Video, error) {
	var (
		video    models.Video
		metadata []byte
	)
	err := row.Scan(&video.ID, &video.UserID, &video.YouTubeVideoID, &video.Title, &video.Description,
		&video.ThumbnailURL, &video.ViewCount, &video.LikeCount, &video.CommentCount,
		&video.PublishedAt, &metadata, &video.CreatedAt, &video.UpdatedAt,
		&video.LocalComments, &video.LocalNotes)
	if err != nil {
		return models.Video{}, err
	}
	if len(metadata) > 0 {
		video.Metadata = metadata
	}
	return video, nil
}

// List returns the user's videos, newest first.
func (r *PostgresVideoRepository) List(ctx context.Context, userID int64) ([]models.Video, error) {
	conn, err := acquire(ctx, r.pool)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, videoSelect+`
        WHERE v.user_id = $1
        ORDER BY v.created_at DESC, v.id DESC
    `, userID)
	if err != nil {
		return nil, translateError("query videos", err)
	}
	defer rows.Close()

	videos := []models.Video{}
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, translateError("scan video", err)
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError("iterate videos", err)
	}
	return videos, nil
}

// Get loads a single video owned by userID.
func (r *PostgresVideoRepository) Get(ctx context.Context, id, userID int64) (models.Video, error) {
	conn, err := acquire(ctx, r.pool)
	if err != nil {
		return models.Video{}, err
	}
	defer conn.Release()

	video, err := scanVideo(conn.QueryRow(ctx, videoSelect+` WHERE v.id = $1 AND v.user_id = $2`, id, userID))
	if err != nil {
		return models.Video{}, translateError("select video", err)
	}
	return video, nil
}

// ExistsByYouTubeID reports whether any user already synced the remote video.
func (r *PostgresVideoRepository) ExistsByYouTubeID(ctx context.Context, youtubeVideoID string) (bool, error) {
	conn, err := acquire(ctx, r.pool)
	if err != nil {
		return false, err
	}
	defer conn.Release()

	var exists bool
	if err := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM videos WHERE youtube_video_id = $1)`, youtubeVideoID).Scan(&exists); err != nil {
		return false, translateError("check video exists", err)
	}
	return exists, nil
}

// Create inserts a freshly synced video. A duplicate remote id yields ErrConflict.
func (r *PostgresVideoRepository) Create(ctx context.Context, userID int64, details models.VideoDetails) (models.Video, error) {
	conn, err := acquire(ctx, r.pool)
	if err != nil {
		return models.Video{}, err
	}
	defer conn.Release()

	var id int64
	err = conn.QueryRow(ctx, `
        INSERT INTO videos (user_id, youtube_video_id, title, description, thumbnail_url,
                            view_count, like_count, comment_count, published_at, metadata)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id
    `, userID, details.YouTubeVideoID, details.Title, nullIfEmpty(details.Description), nullIfEmpty(details.ThumbnailURL),
		details.ViewCount, details.LikeCount, details.CommentCount, details.PublishedAt, jsonParam(details.Raw)).Scan(&id)
	if err != nil {
		return models.Video{}, translateError("insert video", err)
	}

	video, err := scanVideo(conn.QueryRow(ctx, videoSelect+` WHERE v.id = $1`, id))
	if err != nil {
		return models.Video{}, translateError("select created video", err)
	}
	return video, nil
}

// ApplyRemote overwrites the mirrored remote fields after a refresh from YouTube.
func (r *PostgresVideoRepository) ApplyRemote(ctx context.Context, id, userID int64, details models.VideoDetails) (models.Video, error) {
	conn, err := acquire(ctx, r.pool)
	if err != nil {
		return models.Video{}, err
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE videos
        SET title = $3,
            description = $4,
            thumbnail_url = $5,
            view_count = $6,
            like_count = $7,
            comment_count = $8,
            published_at = $9,
            metadata = $10,
            updated_at = now()
        WHERE id = $1 AND user_id = $2
    `, id, userID, details.Title, nullIfEmpty(details.Description), nullIfEmpty(details.ThumbnailURL),
		details.ViewCount, details.LikeCount, details.CommentCount, details.PublishedAt, jsonParam(details.Raw))
	if err != nil {
		return models.Video{}, translateError("update video from remote", err)
	}
	if tag.RowsAffected() == 0 {
		return models.Video{}, ErrNotFound
	}

	video, err := scanVideo(conn.QueryRow(ctx, videoSelect+` WHERE v.id = $1 AND v.user_id = $2`, id, userID))
	if err != nil {
		return models.Video{}, translateError("select refreshed video", err)
	}
	return video, nil
}

// Update applies a local-only edit. Fields absent from the patch keep their value.
func (r *PostgresVideoRepository) Update(ctx context.Context, id, userID int64, patch models.VideoPatch) (models.Video, error) {
	conn, err := acquire(ctx, r.pool)
	if err != nil {
		return models.Video{}, err
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE videos
        SET title = COALESCE($3::text, title),
            description = COALESCE($4::text, description),
            updated_at = now()
        WHERE id = $1 AND user_id = $2
    `, id, userID, patch.Title, patch.Description)
	if err != nil {
		return models.Video{}, translateError("update video", err)
	}
	if tag.RowsAffected() == 0 {
		return models.Video{}, ErrNotFound
	}

	video, err := scanVideo(conn.QueryRow(ctx, videoSelect+` WHERE v.id = $1 AND v.user_id = $2`, id, userID))
	if err != nil {
		return models.Video{}, translateError("select updated video", err)
	}
	return video, nil
}

// Delete removes the video; comments and notes go with it through ON DELETE CASCADE.
func (r *PostgresVideoRepository) Delete(ctx context.Context, id, userID int64) error {
	conn, err := acquire(ctx, r.pool)
	if err != nil {
		return err
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM videos WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return translateError("delete video", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
