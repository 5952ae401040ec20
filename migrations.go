package auth

import (
	"context"
	"embed"
	"io/fs"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/migrate"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS returns the embedded migration tree, one directory per dialect
func GetMigrationsFS() fs.FS {
	return migrationsFS
}

// MigrationsDir returns the migration directory for a bun dialect
func MigrationsDir(name dialect.Name) string {
	if name == dialect.SQLite {
		return "data/sql/migrations/sqlite"
	}
	return "data/sql/migrations/postgres"
}

// Migrate applies every pending migration for the database dialect
func Migrate(ctx context.Context, db *bun.DB, logger Logger) error {
	if logger == nil {
		logger = defLogger{}
	}

	sub, err := fs.Sub(migrationsFS, MigrationsDir(db.Dialect().Name()))
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to open migrations")
	}

	migrations := migrate.NewMigrations()
	if err := migrations.Discover(sub); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to discover migrations")
	}

	migrator := migrate.NewMigrator(db, migrations)
	if err := migrator.Init(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to init migrations")
	}

	if err := migrator.Lock(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to lock migrations")
	}
	defer migrator.Unlock(ctx) //nolint:errcheck

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to run migrations")
	}

	if group.IsZero() {
		logger.Debug("no new migrations")
		return nil
	}

	logger.Info("migrated", "group", group.String())
	return nil
}
