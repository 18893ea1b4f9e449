// Package migrations embeds SQL migration files and applies them with goose.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pressly/goose/v3"
)

// FS contains the embedded SQL migration files, one directory per dialect.
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS

// Dialect selects a migration set.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

func (d Dialect) gooseDialect() (string, error) {
	switch d {
	case SQLite:
		return "sqlite3", nil
	case Postgres:
		return "postgres", nil
	default:
		return "", fmt.Errorf("unknown migration dialect %q", d)
	}
}

// slogAdapter satisfies goose.Logger.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Printf(format string, v ...any) {
	a.logger.Info(strings.TrimSpace(strings.TrimPrefix(fmt.Sprintf(format, v...), "goose: ")), "component", "migrations")
}

func (a slogAdapter) Fatalf(format string, v ...any) {
	a.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "migrations")
	os.Exit(1)
}

// SetLogger routes migration output to logger. A nil logger discards it.
func SetLogger(logger *slog.Logger) {
	if logger == nil {
		goose.SetLogger(goose.NopLogger())
		return
	}
	goose.SetLogger(slogAdapter{logger: logger})
}

func setup(d Dialect) error {
	name, err := d.gooseDialect()
	if err != nil {
		return err
	}
	goose.SetBaseFS(FS)
	if err := goose.SetDialect(name); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	return nil
}

// Up applies all pending migrations.
func Up(db *sql.DB, d Dialect) error {
	if err := setup(d); err != nil {
		return err
	}
	if err := goose.Up(db, string(d)); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Down rolls back the most recent migration.
func Down(db *sql.DB, d Dialect) error {
	if err := setup(d); err != nil {
		return err
	}
	if err := goose.Down(db, string(d)); err != nil {
		return fmt.Errorf("roll back migration: %w", err)
	}
	return nil
}

// Status logs the applied state of every migration.
func Status(db *sql.DB, d Dialect) error {
	if err := setup(d); err != nil {
		return err
	}
	if err := goose.Status(db, string(d)); err != nil {
		return fmt.Errorf("migration status: %w", err)
	}
	return nil
}
