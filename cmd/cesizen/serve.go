package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "github.com/Organisation-de-merge/backend-cesizen/api/swagger"
	"github.com/Organisation-de-merge/backend-cesizen/internal/server"
	"github.com/Organisation-de-merge/backend-cesizen/migrations"
	"github.com/Organisation-de-merge/backend-cesizen/pkg/database"
)

func newServeCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logr, err := bootstrap()
			if err != nil {
				return err
			}
			defer logr.Sync() //nolint:errcheck

			if migrate {
				if err := database.Migrate(cfg.Database, migrations.FS, database.DirectionUp, 0); err != nil {
					return err
				}
				logr.Info("migrations applied")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv, err := server.New(ctx, cfg, logr)
			if err != nil {
				return err
			}
			if err := srv.Start(ctx); err != nil {
				logr.Error("server stopped", zap.Error(err))
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}
