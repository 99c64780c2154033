package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/tubedesk/backend/internal/db"
	"github.com/tubedesk/backend/internal/models"
)

// CommentRepository exposes comment access scoped through the owning video.
type CommentRepository interface {
	ListForVideo(ctx context.Context, videoID, userID int64) ([]models.Comment, error)
	Create(ctx context.Context, comment models.Comment) (models.Comment, error)
	FindOwned(ctx context.Context, youtubeCommentID string, userID int64) (models.Comment, error)
	FindOwnedTopLevel(ctx context.Context, youtubeCommentID string, userID int64) (models.Comment, error)
	Delete(ctx context.Context, id, userID int64) error
}

// PostgresCommentRepository provides PostgreSQL-backed persistence for comments.
type PostgresCommentRepository struct {
	pool db.Pool
}

// NewPostgresCommentRepository constructs a comment repository backed by PostgreSQL.
func NewPostgresCommentRepository(pool db.Pool) *PostgresCommentRepository {
	return &PostgresCommentRepository{pool: pool}
}

const commentColumns = `c.id, c.video_id, c.youtube_comment_id, c.author_name, COALESCE(c.author_channel_url, ''),
               c.text_display, c.like_count, c.published_at, c.updated_at, c.is_reply,
               COALESCE(c.parent_comment_id, ''), c.metadata, c.created_at`

func scanComment(row pgx.Row) (models.Comment, error) {
	var (
		c        models.Comment
		metadata []byte
	)
	err := row.Scan(&c.ID, &c.VideoID, &c.YouTubeCommentID, &c.AuthorName, &c.AuthorChannelURL,
		&c.TextDisplay, &c.LikeCount, &c.PublishedAt, &c.UpdatedAt, &c.IsReply,
		&c.ParentCommentID, &metadata, &c.CreatedAt)
	if len(metadata) > 0 {
		c.Metadata = metadata
	}
	return c, err
}

// ListForVideo returns the comments of a video owned by userID, most recently published first.
func (r *PostgresCommentRepository) ListForVideo(ctx context.Context, videoID, userID int64) ([]models.Comment, error) {
	conn, err := acquire(ctx, r.pool)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+commentColumns+`
        FROM comments c
        JOIN videos v ON v.id = c.video_id
        WHERE c.video_id = $1 AND v.user_id = $2
        ORDER BY c.published_at IS NULL, c.published_at DESC, c.id DESC
    `, videoID, userID)
	if err != nil {
		return nil, translateError("query comments", err)
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, translateError("scan comment", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError("iterate comments", err)
	}
	return comments, nil
}

// Create stores a comment. A missing parent video yields ErrNotFound.
func (r *PostgresCommentRepository) Create(ctx context.Context, comment models.Comment) (models.Comment, error) {
	conn, err := acquire(ctx, r.pool)
	if err != nil {
		return models.Comment{}, err
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        INSERT INTO comments AS c (video_id, youtube_comment_id, author_name, author_channel_url, text_display,
                                   like_count, published_at, updated_at, is_reply, parent_comment_id, metadata)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING `+commentColumns,
		comment.VideoID, comment.YouTubeCommentID, comment.AuthorName, nullIfEmpty(comment.AuthorChannelURL),
		comment.TextDisplay, comment.LikeCount, comment.PublishedAt, comment.UpdatedAt, comment.IsReply,
		nullIfEmpty(comment.ParentCommentID), jsonParam(comment.Metadata))

	created, err := scanComment(row)
	if err != nil {
		return models.Comment{}, translateError("insert comment", err)
	}
	return created, nil
}

// FindOwned loads a comment by its YouTube id when it belongs to one of the user's videos.
func (r *PostgresCommentRepository) FindOwned(ctx context.Context, youtubeCommentID string, userID int64) (models.Comment, error) {
	return r.findOne(ctx, `
        SELECT `+commentColumns+`
        FROM comments c
        JOIN videos v ON v.id = c.video_id
        WHERE c.youtube_comment_id = $1 AND v.user_id = $2
    `, youtubeCommentID, userID)
}

// FindOwnedTopLevel is FindOwned restricted to comments that are not replies.
func (r *PostgresCommentRepository) FindOwnedTopLevel(ctx context.Context, youtubeCommentID string, userID int64) (models.Comment, error) {
	return r.findOne(ctx, `
        SELECT `+commentColumns+`
        FROM comments c
        JOIN videos v ON v.id = c.video_id
        WHERE c.youtube_comment_id = $1 AND v.user_id = $2 AND NOT c.is_reply
    `, youtubeCommentID, userID)
}

func (r *PostgresCommentRepository) findOne(ctx context.Context, query string, args ...any) (models.Comment, error) {
	conn, err := acquire(ctx, r.pool)
	if err != nil {
		return models.Comment{}, err
	}
	defer conn.Release()

	c, err := scanComment(conn.QueryRow(ctx, query, args...))
	if err != nil {
		return models.Comment{}, translateError("select comment", err)
	}
	return c, nil
}

// Delete removes a comment that belongs to one of the user's videos.
func (r *PostgresCommentRepository) Delete(ctx context.Context, id, userID int64) error {
	conn, err := acquire(ctx, r.pool)
	if err != nil {
		return err
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM comments
        WHERE id = $1 AND video_id IN (SELECT id FROM videos WHERE user_id = $2)
    `, id, userID)
	if err != nil {
		return translateError("delete comment", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
