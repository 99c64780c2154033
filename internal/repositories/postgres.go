package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tubedesk/backend/internal/db"
)

// acquire checks out a pooled connection; callers must Release it.
func acquire(ctx context.Context, pool db.Pool) (*pgxpool.Conn, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return conn, nil
}

// nullIfEmpty turns an empty string into a SQL NULL parameter.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// jsonParam passes raw JSON through to a JSONB column, NULL when empty.
func jsonParam(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

var (
	_ UserRepository    = (*PostgresUserRepository)(nil)
	_ VideoRepository   = (*PostgresVideoRepository)(nil)
	_ CommentRepository = (*PostgresCommentRepository)(nil)
	_ NoteRepository    = (*PostgresNoteRepository)(nil)
)
