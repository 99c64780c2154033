// Package migrations embeds the goose schema migrations.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var FS embed.FS

func setup() error {
	goose.SetBaseFS(FS)
	return goose.SetDialect("postgres")
}

// Up applies every pending migration.
func Up(ctx context.Context, db *sql.DB) error {
	if err := setup(); err != nil {
		return fmt.Errorf("configure goose: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// Status prints applied and pending migrations.
func Status(ctx context.Context, db *sql.DB) error {
	if err := setup(); err != nil {
		return fmt.Errorf("configure goose: %w", err)
	}
	return goose.StatusContext(ctx, db, ".")
}

// Down rolls back the most recent migration.
func Down(ctx context.Context, db *sql.DB) error {
	if err := setup(); err != nil {
		return fmt.Errorf("configure goose: %w", err)
	}
	return goose.DownContext(ctx, db, ".")
}
