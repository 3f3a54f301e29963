package main

import (
	"errors"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/medportal/medportal/internal/config"
	"github.com/spf13/cobra"
)

var migrationsSource string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the user directory and session schema migrations.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		m, err := migrate.New(migrationsSource, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer func() {
			srcErr, dbErr := m.Close()
			if srcErr != nil || dbErr != nil {
				slog.Warn("closing migrator", "source_error", srcErr, "database_error", dbErr)
			}
		}()

		if err := m.Up(); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				slog.Info("no changes to apply")
				return nil
			}
			return err
		}

		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		slog.Info("migrations applied successfully", "version", version, "dirty", dirty)
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrationsSource, "source", "file://db/migrations", "Migration source URL")
}
