package main

import (
	"errors"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/mktstack/integrationhub/internal/config"
	"github.com/spf13/cobra"
)

var (
	migrateSource string
	migrateSteps  int
)

var migrateCmd = &cobra.Command{
	Use:         "migrate",
	Short:       "Run database migrations",
	Args:        cobra.NoArgs,
	Annotations: structuredLog(),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		m, err := migrate.New(migrateSource, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer func() {
			_, _ = m.Close()
		}()

		if migrateSteps != 0 {
			err = m.Steps(migrateSteps)
		} else {
			err = m.Up()
		}
		if err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				slog.Info("no changes to apply")
				return nil
			}
			return err
		}

		version, dirty, _ := m.Version()
		slog.Info("migrations applied successfully", "version", version, "dirty", dirty)
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrateSource, "source", "file://db/migrations", "Migration source URL.")
	migrateCmd.Flags().IntVar(&migrateSteps, "steps", 0, "Apply n migrations; negative values roll back. 0 applies all pending.")
}
