package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/amishk599/bankradar/internal/config"
	"github.com/amishk599/bankradar/internal/store"
	"github.com/amishk599/bankradar/internal/store/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

func migrateAction(use, short string, fn func(*sql.DB, migrations.Dialect) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}
			migrations.SetLogger(setupLogger(debug))
			db, dialect, closeDB, err := openSQL(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeDB()
			return fn(db, dialect)
		},
	}
}

func init() {
	migrateCmd.AddCommand(
		migrateAction("up", "Apply all pending migrations", migrations.Up),
		migrateAction("down", "Roll back the most recent migration", migrations.Down),
		migrateAction("status", "Show applied migrations", migrations.Status),
	)
	rootCmd.AddCommand(migrateCmd)
}

// openSQL opens the configured database without migrating it.
func openSQL(ctx context.Context, cfg *config.Config) (*sql.DB, migrations.Dialect, func(), error) {
	if cfg.Storage.Driver == config.DriverPostgres {
		pool, err := store.NewPostgresPool(ctx, cfg.Storage.PostgresURL)
		if err != nil {
			return nil, "", nil, err
		}
		db := stdlib.OpenDBFromPool(pool)
		return db, migrations.Postgres, func() { db.Close(); pool.Close() }, nil
	}
	db, err := store.OpenSQLite(cfg.Storage.SQLitePath)
	if err != nil {
		return nil, "", nil, fmt.Errorf("open sqlite: %w", err)
	}
	return db, migrations.SQLite, func() { db.Close() }, nil
}
