package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"todoapp/internal/repository"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store and configuration status",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	store, err := repository.Open(ctx, cfg.DatabasePath, repository.Options{SkipMigrations: true, MustExist: true})
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer store.Close()

	version, err := store.Migrator().Version(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "todoapp status")
	fmt.Fprintln(out, strings.Repeat("=", 40))
	fmt.Fprintf(out, "  Database:  %s\n", cfg.DatabasePath)
	fmt.Fprintf(out, "  Schema:    %d (current %d)\n", version, repository.CurrentVersion)
	fmt.Fprintf(out, "  Bot:       %s\n", enabled(cfg.BotEnabled()))
	fmt.Fprintf(out, "  Reminders: every %s\n", cfg.ReminderInterval)

	if version != repository.CurrentVersion {
		fmt.Fprintln(out, "\nRun `todoapp migrate` to bring the schema up to date.")
		return nil
	}

	users, err := repository.NewUserRepository(store.DB()).ListAll(ctx)
	if err != nil {
		return err
	}
	reminders, err := repository.NewReminderRepository(store.DB()).List(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "  Users:     %d\n", len(users))
	fmt.Fprintf(out, "  Reminders: %d scheduled\n", len(reminders))
	return nil
}

func enabled(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled (no telegram_token)"
}
