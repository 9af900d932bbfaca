package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config keeps runtime settings for the app.
type Config struct {
	DatabasePath          string        `mapstructure:"database_path"`
	TelegramToken         string        `mapstructure:"telegram_token"`
	ReminderInterval      time.Duration `mapstructure:"reminder_interval"`
	LogDevelopment        bool          `mapstructure:"log_development"`
	AllowDestructiveReset bool          `mapstructure:"allow_destructive_reset"`
	Timezone              string        `mapstructure:"timezone"`
}

// Load reads configuration from defaults, an optional YAML file and TODO_*
// environment variables, in increasing order of precedence. An empty path
// skips the file.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetDefault("database_path", "todo.db")
	v.SetDefault("telegram_token", "")
	v.SetDefault("reminder_interval", time.Minute)
	v.SetDefault("log_development", false)
	v.SetDefault("allow_destructive_reset", false)
	v.SetDefault("timezone", "Local")

	v.SetEnvPrefix("TODO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.DatabasePath = strings.TrimSpace(cfg.DatabasePath)
	cfg.TelegramToken = strings.TrimSpace(cfg.TelegramToken)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.DatabasePath == "" {
		return errors.New("database_path is required")
	}
	if c.ReminderInterval < time.Second {
		return fmt.Errorf("reminder_interval must be at least 1s, got %s", c.ReminderInterval)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone; dates typed by users are read in it.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// BotEnabled reports whether a Telegram token was configured.
func (c Config) BotEnabled() bool {
	return c.TelegramToken != ""
}
