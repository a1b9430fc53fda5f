// Package commands holds the forumctl maintenance commands.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go-forum-app/internal/config"
	"go-forum-app/internal/logger"
)

var (
	// Global flags
	dsn           string
	migrationsDir string
	verbose       bool
)

var rootCmd = &cobra.Command{
	Use:   "forumctl",
	Short: "Maintenance commands for the forum",
	Long: `forumctl runs maintenance tasks against the forum database.

Configuration is read the same way as the server (config.yml and FORUM_*
environment variables). Flags override it.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "Database DSN (defaults to db.dsn)")
	rootCmd.PersistentFlags().StringVar(&migrationsDir, "migrations-dir", "", "Migrations directory (defaults to db.migrations_path)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}

// loadConfig reads the configuration and applies the global flags.
func loadConfig() (*config.Config, logger.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if dsn != "" {
		cfg.DB.DSN = dsn
	}
	if migrationsDir != "" {
		cfg.DB.MigrationsPath = migrationsDir
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, logger.New(cfg.Log, os.Stderr), nil
}
