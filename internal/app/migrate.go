package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tubedesk/backend/internal/config"
	"github.com/tubedesk/backend/internal/db"
	"github.com/tubedesk/backend/internal/migrations"
)

const (
	migrationMaxRetries  = 3
	migrationBaseBackoff = 100 * time.Millisecond
	migrationMaxBackoff  = 3 * time.Second
)

var retryablePgErrorCodes = map[string]struct{}{
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"55P03": {}, // lock_not_available
}

func runMigrations(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string) error {
	command := "up"
	if len(args) > 0 {
		command = args[0]
	}

	var step func(context.Context, *sql.DB) error
	switch command {
	case "up", "":
		step = migrations.Up
	case "status":
		step = migrations.Status
	case "down":
		step = migrations.Down
	default:
		return fmt.Errorf("unknown migrate command %q", command)
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	sqlDB := db.SQLDB(pool)
	defer sqlDB.Close()

	return retryMigration(ctx, logger, command, func(ctx context.Context) error {
		return step(ctx, sqlDB)
	})
}

// retryMigration runs fn until it succeeds, fails permanently or exhausts
// migrationMaxRetries, backing off exponentially between attempts.
func retryMigration(ctx context.Context, logger *slog.Logger, command string, fn func(context.Context) error) error {
	var err error
	for attempt := 0; attempt < migrationMaxRetries; attempt++ {
		if attempt > 0 {
			if werr := waitBackoff(ctx, attempt); werr != nil {
				return werr
			}
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !shouldRetryMigration(err) {
			return fmt.Errorf("migrate %s: %w", command, err)
		}
		logger.Warn("transient migration error", "command", command, "attempt", attempt+1, "max_attempts", migrationMaxRetries, "error", err)
	}
	return fmt.Errorf("migrate %s: exceeded max retries (%d): %w", command, migrationMaxRetries, err)
}

func waitBackoff(ctx context.Context, attempt int) error {
	backoff := time.Duration(math.Pow(2, float64(attempt-1))) * migrationBaseBackoff
	if backoff > migrationMaxBackoff {
		backoff = migrationMaxBackoff
	}
	timer := time.NewTimer(backoff)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func shouldRetryMigration(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if _, ok := retryablePgErrorCodes[pgErr.Code]; ok {
			return true
		}
	}

	return errors.Is(err, pgx.ErrTxClosed)
}
