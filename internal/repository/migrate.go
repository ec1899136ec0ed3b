package repository

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
)

//go:embed migrations
var migrationsFS embed.FS

// migrate applies all pending schema migrations for the dialect.
func migrate(ctx context.Context, db *sql.DB, d dialect) error {
	fsys, err := fs.Sub(migrationsFS, d.migrationsDir)
	if err != nil {
		return fmt.Errorf("failed to open migrations for %s: %w", d.name, err)
	}

	provider, err := goose.NewProvider(d.goose, db, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	for _, r := range results {
		slog.Info("Applied migration", "dialect", d.name, "version", r.Source.Version, "duration", r.Duration)
	}
	return nil
}
