package cmd

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dalmia/vidly/internal/database"
	"github.com/dalmia/vidly/internal/models"
	"github.com/dalmia/vidly/pkg/config"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Manage database migrations for the Vidly API.

The session store schema is managed with GORM auto-migration. These
subcommands apply the schema, drop it, and report what is present.

Available subcommands:
  up      - Apply all pending migrations
  down    - Drop the managed tables
  status  - Show current migration status`,
}

// migrateUpCmd applies pending migrations
var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Long: `Apply all pending database migrations.

Brings the session store schema up to date with the current models.`,
	RunE: runMigrateUp,
}

// migrateDownCmd drops the managed tables
var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Drop the managed tables",
	Long: `Rollback the last applied migration.

Drops the session store tables. All stored sessions are lost.`,
	RunE: runMigrateDown,
}

// migrateStatusCmd shows migration status
var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	Long: `Display the current status of database migrations.

Shows which managed tables exist in the configured session store.`,
	RunE: runMigrateStatus,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateStatusCmd)

	migrateCmd.PersistentFlags().Bool("dry-run", false, "show what would be done without making changes")
}

func openDatabase() (*database.DB, error) {
	cfg, err := config.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return database.Initialize(cfg.Database.DSN, cfg.Database.Verbose)
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	if dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "Dry run mode - would auto-migrate: sessions")
		return nil
	}

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("[ERROR] Failed to close database: %v", err)
		}
	}()

	if err := db.AutoMigrate(&models.Session{}); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
	return nil
}

func runMigrateDown(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	if dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "Dry run mode - would drop: sessions")
		return nil
	}

	// Confirmation prompt for destructive action
	fmt.Print("WARNING: This will drop the session tables. Continue? (y/N): ")
	var response string
	_, _ = fmt.Scanln(&response)
	if response != "y" && response != "Y" {
		fmt.Fprintln(cmd.OutOrStdout(), "Migration rollback cancelled")
		return nil
	}

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("[ERROR] Failed to close database: %v", err)
		}
	}()

	if err := db.DB.Migrator().DropTable(&models.Session{}); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Tables dropped")
	return nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("[ERROR] Failed to close database: %v", err)
		}
	}()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Database Migration Status")
	fmt.Fprintln(out, strings.Repeat("=", 50))

	if db.DB.Migrator().HasTable(&models.Session{}) {
		fmt.Fprintln(out, "sessions: present")
	} else {
		fmt.Fprintln(out, "sessions: missing (run `vidly migrate up`)")
	}

	return nil
}
