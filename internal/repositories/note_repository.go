package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/tubedesk/backend/internal/db"
	"github.com/tubedesk/backend/internal/models"
)

// NoteRepository exposes owner-scoped access to personal notes.
type NoteRepository interface {
	List(ctx context.Context, userID int64, filter models.NoteFilter) ([]models.Note, error)
	Get(ctx context.Context, id, userID int64) (models.Note, error)
	Create(ctx context.Context, note models.Note) (models.Note, error)
	Update(ctx context.Context, id, userID int64, patch models.NotePatch) (models.Note, error)
	Delete(ctx context.Context, id, userID int64) error
}

// PostgresNoteRepository provides PostgreSQL-backed persistence for notes.
type PostgresNoteRepository struct {
	pool db.Pool
}

// NewPostgresNoteRepository constructs a note repository backed by PostgreSQL.
func NewPostgresNoteRepository(pool db.Pool) *PostgresNoteRepository {
	return &PostgresNoteRepository{pool: pool}
}

const noteSelect = `
        SELECT n.id, n.video_id, n.user_id, n.title, n.content, n.category, n.priority,
               n.is_completed, n.created_at, n.updated_at,
               v.id, v.title, v.youtube_video_id
        FROM notes n
        JOIN videos v ON v.id = n.video_id`

// noteOrder puts open notes first, then the most urgent, then the newest.
const noteOrder = ` ORDER BY n.is_completed ASC, n.priority DESC, n.created_at DESC, n.id DESC`

func scanNote(row pgx.Row) (models.Note, error) {
	var (
		n       models.Note
		summary models.VideoSummary
	)
	err := row.Scan(&n.ID, &n.VideoID, &n.UserID, &n.Title, &n.Content, &n.Category, &n.Priority,
		&n.IsCompleted, &n.CreatedAt, &n.UpdatedAt,
		&summary.ID, &summary.Title, &summary.YouTubeVideoID)
	if err != nil {
		return models.Note{}, err
	}
	n.Video = &summary
	return n, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// List returns the user's notes matching filter in display order.
func (r *PostgresNoteRepository) List(ctx context.Context, userID int64, filter models.NoteFilter) ([]models.Note, error) {
	var (
		where = []string{"n.user_id = $1"}
		args  = []any{userID}
	)
	if filter.VideoID != 0 {
		args = append(args, filter.VideoID)
		where = append(where, fmt.Sprintf("n.video_id = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("n.category = $%d", len(args)))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+likeEscaper.Replace(q)+"%")
		where = append(where, fmt.Sprintf("(n.title ILIKE $%[1]d OR n.content ILIKE $%[1]d)", len(args)))
	}

	conn, err := acquire(ctx, r.pool)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, noteSelect+" WHERE "+strings.Join(where, " AND ")+noteOrder, args...)
	if err != nil {
		return nil, translateError("query notes", err)
	}
	defer rows.Close()

	notes := []models.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, translateError("scan note", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError("iterate notes", err)
	}
	return notes, nil
}

// Get loads a note owned by userID.
func (r *PostgresNoteRepository) Get(ctx context.Context, id, userID int64) (models.Note, error) {
	conn, err := acquire(ctx, r.pool)
	if err != nil {
		return models.Note{}, err
	}
	defer conn.Release()

	n, err := scanNote(conn.QueryRow(ctx, noteSelect+` WHERE n.id = $1 AND n.user_id = $2`, id, userID))
	if err != nil {
		return models.Note{}, translateError("select note", err)
	}
	return n, nil
}

// Create inserts a note; the caller has already checked the video belongs to note.UserID.
func (r *PostgresNoteRepository) Create(ctx context.Context, note models.Note) (models.Note, error) {
	priority := note.Priority
	if priority == 0 {
		priority = models.NotePriorityDefault
	}

	conn, err := acquire(ctx, r.pool)
	if err != nil {
		return models.Note{}, err
	}
	defer conn.Release()

	var id int64
	err = conn.QueryRow(ctx, `
        INSERT INTO notes (video_id, user_id, title, content, category, priority, is_completed)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `, note.VideoID, note.UserID, note.Title, note.Content, note.Category, priority, note.IsCompleted).Scan(&id)
	if err != nil {
		return models.Note{}, translateError("insert note", err)
	}

	created, err := scanNote(conn.QueryRow(ctx, noteSelect+` WHERE n.id = $1`, id))
	if err != nil {
		return models.Note{}, translateError("select created note", err)
	}
	return created, nil
}

// Update applies the provided patch fields. An empty Category clears it.
func (r *PostgresNoteRepository) Update(ctx context.Context, id, userID int64, patch models.NotePatch) (models.Note, error) {
	conn, err := acquire(ctx, r.pool)
	if err != nil {
		return models.Note{}, err
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE notes
        SET title = COALESCE($3::text, title),
            content = COALESCE($4::text, content),
            category = CASE WHEN $5::bool THEN NULLIF($6::text, '') ELSE category END,
            priority = COALESCE($7::int, priority),
            is_completed = COALESCE($8::bool, is_completed),
            updated_at = now()
        WHERE id = $1 AND user_id = $2
    `, id, userID, patch.Title, patch.Content, patch.Category != nil, patch.Category, patch.Priority, patch.IsCompleted)
	if err != nil {
		return models.Note{}, translateError("update note", err)
	}
	if tag.RowsAffected() == 0 {
		return models.Note{}, ErrNotFound
	}

	updated, err := scanNote(conn.QueryRow(ctx, noteSelect+` WHERE n.id = $1 AND n.user_id = $2`, id, userID))
	if err != nil {
		return models.Note{}, translateError("select updated note", err)
	}
	return updated, nil
}

// Delete removes a note owned by userID.
func (r *PostgresNoteRepository) Delete(ctx context.Context, id, userID int64) error {
	conn, err := acquire(ctx, r.pool)
	if err != nil {
		return err
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM notes WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return translateError("delete note", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
