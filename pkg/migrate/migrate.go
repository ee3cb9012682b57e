package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/tripcrew-backend/pkg/config"
)

const DefaultDir = "pkg/migrate/migrations"

const embeddedDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// DialectFor maps the configured database driver onto a goose dialect name.
func DialectFor(driver string) (string, error) {
	cfg := config.DBConfig{Driver: driver}
	switch {
	case cfg.IsSQLite():
		return "sqlite3", nil
	case cfg.IsPostgres():
		return "postgres", nil
	default:
		return "", fmt.Errorf("no goose dialect for driver %q", driver)
	}
}

// Run executes a standard goose command against migrations on disk.
func Run(ctx context.Context, db *sql.DB, dialect string, dir string, command string, args ...string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	if err := prepare(dialect, false); err != nil {
		return err
	}

	if err := goose.RunContext(ctx, command, db, dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// UpEmbedded applies the migrations compiled into the binary. Binaries without
// access to the source tree and the test suites use it.
func UpEmbedded(ctx context.Context, db *sql.DB, dialect string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	if err := prepare(dialect, true); err != nil {
		return err
	}
	defer goose.SetBaseFS(nil)

	if err := goose.UpContext(ctx, db, embeddedDir); err != nil {
		return fmt.Errorf("goose up (embedded): %w", err)
	}
	return nil
}

// MigrateToVersion moves the schema up or down until goose reports target as
// the current version.
func MigrateToVersion(ctx context.Context, db *sql.DB, dialect string, dir string, target string) error {
	version, err := ParseVersion(target)
	if err != nil {
		return err
	}
	current, err := CurrentVersion(ctx, db, dialect)
	if err != nil {
		return err
	}
	if current == version {
		return nil
	}

	step, apply := "up-to", goose.UpToContext
	if current > version {
		step, apply = "down-to", goose.DownToContext
	}
	if err := apply(ctx, db, dir, version); err != nil {
		return fmt.Errorf("goose %s %d: %w", step, version, err)
	}
	return nil
}

// CurrentVersion returns the latest applied goose version.
func CurrentVersion(ctx context.Context, db *sql.DB, dialect string) (int64, error) {
	if db == nil {
		return 0, fmt.Errorf("db is required")
	}
	if err := prepare(dialect, false); err != nil {
		return 0, err
	}
	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

func prepare(dialect string, embedded bool) error {
	if dialect == "" {
		return fmt.Errorf("dialect is required")
	}
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if embedded {
		goose.SetBaseFS(embeddedMigrations)
	} else {
		goose.SetBaseFS(nil)
	}
	return nil
}
