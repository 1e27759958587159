package commands

import (
	"fmt"
	"os"

	"motorent/internal/config"
	"motorent/internal/database"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "motorent",
	Short: "Motorbike rental marketplace API",
	Long: `motorent serves the storefront and back-office API for motorbike rentals.

Configuration comes from the environment (and a .env file when present).

Examples:
  motorent serve                 # run the HTTP API
  motorent migrate               # create or update the schema
  motorent worker                # send queued notification emails
  motorent create-admin --email admin@motorent.vn --name Admin`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// connect loads config and opens database.DB; callers defer database.Close.
func connect() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := database.Init(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
