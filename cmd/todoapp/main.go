package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"todoapp/internal/config"
	"todoapp/internal/logger"
)

var Version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:           "todoapp",
	Short:         "Task manager with a Telegram front end",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (TODO_* env vars override it)")
	rootCmd.AddCommand(serveCmd, migrateCmd, statusCmd)
}

func main() {
	err := rootCmd.Execute()
	logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the config and initializes logging for a command.
func setup() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}
	if err := logger.Init(cfg.LogDevelopment); err != nil {
		return config.Config{}, fmt.Errorf("logger: %w", err)
	}
	return cfg, nil
}
