package cli

import (
	"github.com/contentforge/studio/internal/app"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the front and admin APIs",
	Long: `Serve the front and admin APIs. The reset sweeper, the settings watcher
and the login code cleaner run in the same process until it is signalled.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return app.RunServer(cmd.Context(), appConfig())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return app.Migrate(cmd.Context(), appConfig())
	},
}
