package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tubedesk/backend/internal/crypto"
	"github.com/tubedesk/backend/internal/db"
	"github.com/tubedesk/backend/internal/models"
)

// UserRepository defines the data access contract for users.
type UserRepository interface {
	FindByID(ctx context.Context, id int64) (models.User, error)
	UpsertExternal(ctx context.Context, identity models.ExternalIdentity, accessToken string) (models.User, error)
	SetExternalTokens(ctx context.Context, userID int64, accessToken, refreshToken string) error
}

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
// External tokens are encrypted before they reach the database.
type PostgresUserRepository struct {
	pool   db.Pool
	cipher crypto.Service
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool, cipher crypto.Service) *PostgresUserRepository {
	if cipher == nil {
		cipher = crypto.NoopService{}
	}
	return &PostgresUserRepository{pool: pool, cipher: cipher}
}

const userColumns = `id, google_id, email, name, COALESCE(access_token, ''), COALESCE(refresh_token, ''), created_at, updated_at`

// FindByID loads a user by primary key.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id int64) (models.User, error) {
	conn, err := acquire(ctx, r.pool)
	if err != nil {
		return models.User{}, err
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := r.scan(row)
	if err != nil {
		return models.User{}, translateError("select user by id", err)
	}
	return user, nil
}

// UpsertExternal creates the user bound to identity.ExternalID or refreshes its
// profile. The stored external access token is always replaced.
func (r *PostgresUserRepository) UpsertExternal(ctx context.Context, identity models.ExternalIdentity, accessToken string) (models.User, error) {
	sealed, err := r.cipher.Encrypt(accessToken)
	if err != nil {
		return models.User{}, fmt.Errorf("encrypt access token: %w", err)
	}

	conn, err := acquire(ctx, r.pool)
	if err != nil {
		return models.User{}, err
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        INSERT INTO users (google_id, email, name, access_token)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (google_id)
        DO UPDATE SET email = EXCLUDED.email,
                      name = EXCLUDED.name,
                      access_token = EXCLUDED.access_token,
                      updated_at = now()
        RETURNING `+userColumns,
		identity.ExternalID, identity.Email, identity.DisplayName, nullIfEmpty(sealed))

	user, err := r.scan(row)
	if err != nil {
		return models.User{}, translateError("upsert user", err)
	}
	return user, nil
}

// SetExternalTokens stores a YouTube credential pair. An empty refresh token
// keeps the previously stored one.
func (r *PostgresUserRepository) SetExternalTokens(ctx context.Context, userID int64, accessToken, refreshToken string) error {
	sealedAccess, err := r.cipher.Encrypt(accessToken)
	if err != nil {
		return fmt.Errorf("encrypt access token: %w", err)
	}
	sealedRefresh, err := r.cipher.Encrypt(refreshToken)
	if err != nil {
		return fmt.Errorf("encrypt refresh token: %w", err)
	}

	conn, err := acquire(ctx, r.pool)
	if err != nil {
		return err
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET access_token = $2,
            refresh_token = COALESCE($3, refresh_token),
            updated_at = now()
        WHERE id = $1
    `, userID, nullIfEmpty(sealedAccess), nullIfEmpty(sealedRefresh))
	if err != nil {
		return translateError("update user tokens", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresUserRepository) scan(row pgx.Row) (models.User, error) {
	var (
		user          models.User
		sealedAccess  string
		sealedRefresh string
	)
	if err := row.Scan(&user.ID, &user.GoogleID, &user.Email, &user.Name, &sealedAccess, &sealedRefresh, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return models.User{}, err
	}

	var err error
	if user.ExternalAccessToken, err = r.cipher.Decrypt(sealedAccess); err != nil {
		return models.User{}, fmt.Errorf("decrypt access token: %w", err)
	}
	if user.ExternalRefreshToken, err = r.cipher.Decrypt(sealedRefresh); err != nil {
		return models.User{}, fmt.Errorf("decrypt refresh token: %w", err)
	}
	return user, nil
}
