package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/articles-api/internal/server"
)

// buildApp is a variable so tests can swap the application factory.
var buildApp = server.Build

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Apply migrations and serve the HTTP API",
		Long: `Applies pending schema migrations (unless db.migrate_on_start is false),
opens the connection pool, starts the worker pool and serves HTTP until
SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := resolveRuntime(cmd.Context())
			if err != nil {
				return err
			}
			app, err := buildApp(cmd.Context(), rt.cfg, rt.logger)
			if err != nil {
				return fmt.Errorf("build application: %w", err)
			}
			if err := app.Run(cmd.Context()); err != nil {
				return fmt.Errorf("run server: %w", err)
			}
			return nil
		},
	}
}
