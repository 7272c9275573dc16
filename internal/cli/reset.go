package cli

import (
	"encoding/json"

	"github.com/contentforge/studio/internal/app"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(resetCmd)
	resetCmd.AddCommand(resetRunCmd)
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Monthly reset and yearly stipend jobs",
}

var resetRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Grant every due period once and print the summary",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		summary, err := app.RunResetSweep(cmd.Context(), appConfig())
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if errEncode := enc.Encode(summary); errEncode != nil {
			return errEncode
		}
		return err
	},
}
