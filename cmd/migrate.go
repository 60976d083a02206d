package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RishabhDotasara/Photoflow/internal/config"
	"github.com/RishabhDotasara/Photoflow/internal/database/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if cfg.Database.URL == "" {
			return errors.New("DATABASE_URL environment variable is required")
		}

		pool, err := postgres.NewPool(&cfg.Database)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer pool.Close()

		if err := pool.Migrate(cmd.Context()); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}

		applied, err := pool.MigrationsApplied(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing migrations: %w", err)
		}
		fmt.Printf("Database schema up to date (%d migrations)\n", len(applied))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
