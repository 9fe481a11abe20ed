package command

import (
	"reviewhub/database"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.close()

		if err := database.Migrate(e.db, e.log); err != nil {
			return err
		}
		cmd.Println("✓ Schema is up to date")
		return nil
	},
}
