package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"todoapp/internal/bot"
	"todoapp/internal/logger"
	"todoapp/internal/model"
	"todoapp/internal/repository"
	"todoapp/internal/service"
)

const dispatchTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot and the reminder scheduler",
	Long: `Open the store (migrating it if needed), start the reminder scheduler
and poll Telegram until interrupted.

Without a telegram_token the scheduler still runs and due reminders are
only logged.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := setup()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	store, err := repository.Open(ctx, cfg.DatabasePath, repository.Options{
		AllowDestructiveReset: cfg.AllowDestructiveReset,
	})
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer store.Close()

	userRepo := repository.NewUserRepository(store.DB())
	taskRepo := repository.NewTaskRepository(store.DB())
	reminderRepo := repository.NewReminderRepository(store.DB())

	svc := bot.Services{
		Auth:      service.NewAuthService(userRepo),
		Tasks:     service.NewTaskService(taskRepo),
		Reminders: service.NewReminderService(reminderRepo, taskRepo),
	}

	var (
		telegramBot *bot.Bot
		notifier    service.Notifier = logNotifier{}
	)
	if cfg.BotEnabled() {
		telegramBot, err = bot.New(cfg.TelegramToken, svc, loc)
		if err != nil {
			return fmt.Errorf("bot: %w", err)
		}
		notifier = telegramBot
	} else {
		logger.Warn("telegram_token is empty, running without the bot")
	}

	dispatcher := service.NewReminderDispatcher(reminderRepo, notifier, time.Now())
	scheduler := service.NewSchedulerService(loc)
	if _, err := scheduler.ScheduleInterval(cfg.ReminderInterval, dispatcher.Job(ctx, dispatchTimeout)); err != nil {
		return fmt.Errorf("schedule reminders: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	logger.Info("todoapp started",
		zap.String("db", cfg.DatabasePath),
		zap.Duration("reminder_interval", cfg.ReminderInterval),
		zap.Bool("bot", telegramBot != nil))

	if telegramBot != nil {
		if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("bot stopped with error: %w", err)
		}
	} else {
		<-ctx.Done()
	}

	logger.Info("shutdown complete")
	return nil
}

// logNotifier stands in for the bot when no token is configured.
type logNotifier struct{}

func (logNotifier) Notify(_ context.Context, due model.DueReminder) error {
	logger.Info("reminder due",
		zap.Uint("reminder_id", due.ID),
		zap.Uint("task_id", due.Task.ID),
		zap.Uint("user_id", due.Task.UserID),
		zap.String("title", due.Task.Title),
		zap.Time("at", due.At()))
	return nil
}
