package commands

import (
	"github.com/spf13/cobra"

	"go-forum-app/internal/data"
)

var steps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Run database migrations.

Subcommands:
  up      - Apply pending migrations
  down    - Rollback migrations`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		if err := data.ApplyMigrations(cfg.DB.DSN, cfg.DB.MigrationsPath); err != nil {
			return err
		}
		log.Info("Migrations applied successfully.")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Rollback migrations",
	Long: `Rollback applied migrations.

Examples:
  forumctl migrate down              # Rollback last migration
  forumctl migrate down --steps 2    # Rollback the last two migrations`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		if err := data.RollbackMigrations(cfg.DB.DSN, cfg.DB.MigrationsPath, steps); err != nil {
			return err
		}
		log.Info("Migrations rolled back.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)

	migrateDownCmd.Flags().IntVar(&steps, "steps", 1, "Number of migrations to rollback")
}
