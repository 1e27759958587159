package commands

import (
	"motorent/internal/database"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := connect(); err != nil {
			return err
		}
		defer database.Close()

		return database.Migrate(database.DB)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
