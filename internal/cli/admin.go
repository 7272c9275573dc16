package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/contentforge/studio/internal/app"
	"github.com/spf13/cobra"
)

// adminPasswordEnv supplies the password when --password is omitted.
const adminPasswordEnv = "STUDIO_ADMIN_PASSWORD"

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminCreateCmd)

	adminCreateCmd.Flags().StringP("username", "u", "", "Admin login name")
	adminCreateCmd.Flags().StringP("password", "p", "", "Admin password (or set "+adminPasswordEnv+")")
	adminCreateCmd.Flags().Bool("super", true, "Grant every permission")
}

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin console accounts",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an admin account",
	Args:  cobra.NoArgs,
	RunE:  runAdminCreate,
}

func runAdminCreate(cmd *cobra.Command, _ []string) error {
	username, _ := cmd.Flags().GetString("username")
	password, _ := cmd.Flags().GetString("password")
	super, _ := cmd.Flags().GetBool("super")
	if strings.TrimSpace(password) == "" {
		password = os.Getenv(adminPasswordEnv)
	}
	if strings.TrimSpace(username) == "" {
		return errors.New("--username is required")
	}

	admin, err := app.CreateAdmin(cmd.Context(), appConfig(), app.CreateAdminParams{
		Username:   username,
		Password:   password,
		SuperAdmin: super,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (id=%d super=%t)\n", admin.Username, admin.ID, admin.IsSuperAdmin)
	return nil
}
