package cli

import (
	"log"

	"github.com/fjod/go_shop/internal/repository"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		creds := sqlCredentials(cfg)
		store, err := repository.NewSQLStore(creds)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.RunMigrations(creds); err != nil {
			return err
		}
		log.Println("Database migrations completed")
		return nil
	},
}
