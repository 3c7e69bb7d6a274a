package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/DukeRupert/guichet/internal"
)

// migrateCmd applies the export job schema
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the export job database migrations",
	Long:  `Apply the migrations of the export job queue to the database named by DATABASE_URL.`,
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	ctx, cancel := operationContext(cmd)
	defer cancel()

	db, err := internal.OpenDatabase(ctx, dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := internal.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
	return nil
}
