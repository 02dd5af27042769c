package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/Organisation-de-merge/backend-cesizen/internal/repository"
	"github.com/Organisation-de-merge/backend-cesizen/internal/seed"
	"github.com/Organisation-de-merge/backend-cesizen/pkg/database"
	"github.com/Organisation-de-merge/backend-cesizen/pkg/password"
)

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create reference roles, demo accounts, the main menu and activity types",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logr, err := bootstrap()
			if err != nil {
				return err
			}
			defer logr.Sync() //nolint:errcheck

			db, err := database.NewPostgres(cmd.Context(), cfg.Database)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer db.Close()

			seeder := seed.New(
				repository.NewRoleRepository(db),
				repository.NewUserRepository(db),
				repository.NewMenuRepository(db),
				repository.NewActivityTypeRepository(db),
				password.NewHasher(bcrypt.DefaultCost),
				logr,
			)
			report, err := seeder.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d roles, %d users, %d menus, %d activity types\n",
				report.Roles, report.Users, report.Menus, report.ActivityTypes)
			return nil
		},
	}
}
