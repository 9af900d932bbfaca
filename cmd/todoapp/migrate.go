package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"todoapp/internal/repository"
)

var (
	migrateTo          int
	migrateDestructive bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the store schema",
	Long: `Walk the store along the migration chain, one transaction per version.

Examples:
  todoapp migrate
  todoapp migrate --to 10
  todoapp migrate --destructive   # wipe a store whose version is unknown`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().IntVar(&migrateTo, "to", repository.CurrentVersion, "target schema version")
	migrateCmd.Flags().BoolVar(&migrateDestructive, "destructive", false, "drop all data if the stored version is not on the chain")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	store, err := repository.Open(ctx, cfg.DatabasePath, repository.Options{
		AllowDestructiveReset: migrateDestructive || cfg.AllowDestructiveReset,
		SkipMigrations:        true,
	})
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer store.Close()

	from, err := store.Migrator().Version(ctx)
	if err != nil {
		return err
	}
	if err := store.Migrator().MigrateTo(ctx, migrateTo); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	to, err := store.Migrator().Version(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if from == to {
		fmt.Fprintf(out, "%s is already at version %d\n", cfg.DatabasePath, to)
		return nil
	}
	fmt.Fprintf(out, "%s migrated from version %d to %d\n", cfg.DatabasePath, from, to)
	return nil
}
