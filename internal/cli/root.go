// Package cli wires the studio command tree.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/contentforge/studio/internal/config"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "studio",
	Short:         "Credits ledger and API for the content studio",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.yaml (defaults to CONFIG_PATH or ./config.yaml)")
}

// Execute runs the root command until it returns or the process is signalled.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func appConfig() config.AppConfig {
	return config.AppConfig{ConfigPath: configPath}
}
