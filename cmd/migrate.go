package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/articles-api/internal/config"
	pgstore "github.com/JakeFAU/articles-api/internal/storage/postgres"
)

// applyMigrations is a variable so tests can run without a database.
var applyMigrations = pgstore.ApplyMigrations

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := resolveRuntime(cmd.Context())
			if err != nil {
				return err
			}
			if rt.cfg.DB.Backend == config.DBBackendMemory {
				return fmt.Errorf("migrate: db.backend %q has no schema to migrate", rt.cfg.DB.Backend)
			}
			if err := applyMigrations(cmd.Context(), rt.cfg.DB.DSN, rt.logger.Named("migrations")); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			rt.logger.Info("migrations complete")
			return nil
		},
	}
}
