// Package cli holds the shop command line: the API server, the migration
// runner, the mailer worker and session tooling.
package cli

import (
	"github.com/fjod/go_shop/internal/config"
	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:          "shop",
	Short:        "Cart, offer and order fulfillment backend",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (env vars take precedence)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(mailerCmd)
	rootCmd.AddCommand(sessionCmd)
}

func Execute() error {
	return rootCmd.Execute()
}

func loadConfig() (*config.Config, error) {
	return config.Load(configFile)
}
