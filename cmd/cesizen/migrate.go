package main

import (
	"github.com/spf13/cobra"

	"github.com/Organisation-de-merge/backend-cesizen/migrations"
	"github.com/Organisation-de-merge/backend-cesizen/pkg/database"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all up migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(database.DirectionUp, 0)
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(database.DirectionDown, steps)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back (0 rolls back everything)")

	cmd.AddCommand(up, down)
	return cmd
}

func runMigrations(direction database.Direction, steps int) error {
	cfg, logr, err := bootstrap()
	if err != nil {
		return err
	}
	defer logr.Sync() //nolint:errcheck

	if err := database.Migrate(cfg.Database, migrations.FS, direction, steps); err != nil {
		return err
	}
	logr.Sugar().Infow("migrations finished", "direction", direction, "steps", steps)
	return nil
}
