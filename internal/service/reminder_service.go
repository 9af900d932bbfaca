package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"todoapp/internal/logger"
	"todoapp/internal/model"
	"todoapp/internal/repository"
)

// ReminderService manages reminders on behalf of a task owner.
type ReminderService struct {
	reminderRepo *repository.ReminderRepository
	taskRepo     *repository.TaskRepository
}

func NewReminderService(reminderRepo *repository.ReminderRepository, taskRepo *repository.TaskRepository) *ReminderService {
	return &ReminderService{reminderRepo: reminderRepo, taskRepo: taskRepo}
}

// Schedule adds a reminder for one of the user's tasks. The reminder must lie
// in the future relative to now.
func (s *ReminderService) Schedule(ctx context.Context, userID, taskID uint, at, now time.Time) (*model.Reminder, error) {
	if !at.After(now) {
		return nil, ErrReminderTime
	}
	if _, err := s.taskRepo.FindByID(ctx, userID, taskID); err != nil {
		return nil, err
	}
	reminder := model.Reminder{TaskID: taskID, ReminderTime: at.UnixMilli()}
	if err := s.reminderRepo.Create(ctx, &reminder); err != nil {
		return nil, err
	}
	return &reminder, nil
}

func (s *ReminderService) ListForTask(ctx context.Context, userID, taskID uint) ([]model.Reminder, error) {
	if _, err := s.taskRepo.FindByID(ctx, userID, taskID); err != nil {
		return nil, err
	}
	return s.reminderRepo.ListByTask(ctx, taskID)
}

// Reschedule moves an existing reminder. Reminders of other users' tasks are
// left alone and reported as not changed.
func (s *ReminderService) Reschedule(ctx context.Context, userID, reminderID uint, at, now time.Time) (bool, error) {
	if !at.After(now) {
		return false, ErrReminderTime
	}
	reminder, ok, err := s.owned(ctx, userID, reminderID)
	if err != nil || !ok {
		return false, err
	}
	reminder.ReminderTime = at.UnixMilli()
	n, err := s.reminderRepo.Update(ctx, reminder)
	return n > 0, err
}

func (s *ReminderService) Cancel(ctx context.Context, userID, reminderID uint) (bool, error) {
	_, ok, err := s.owned(ctx, userID, reminderID)
	if err != nil || !ok {
		return false, err
	}
	n, err := s.reminderRepo.Delete(ctx, reminderID)
	return n > 0, err
}

func (s *ReminderService) owned(ctx context.Context, userID, reminderID uint) (*model.Reminder, bool, error) {
	reminder, err := s.reminderRepo.FindByID(ctx, reminderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	ok, err := s.taskRepo.Owns(ctx, userID, reminder.TaskID)
	if err != nil || !ok {
		return nil, false, err
	}
	return reminder, true, nil
}

// Notifier delivers a due reminder to the owner of its task.
type Notifier interface {
	Notify(ctx context.Context, due model.DueReminder) error
}

// ReminderDispatcher fires reminders whose time has come since the previous
// run. Reminders that were due before the dispatcher started are not sent.
type ReminderDispatcher struct {
	reminderRepo *repository.ReminderRepository
	notifier     Notifier

	mu        sync.Mutex
	watermark int64
}

func NewReminderDispatcher(reminderRepo *repository.ReminderRepository, notifier Notifier, since time.Time) *ReminderDispatcher {
	return &ReminderDispatcher{
		reminderRepo: reminderRepo,
		notifier:     notifier,
		watermark:    since.UnixMilli(),
	}
}

// Dispatch sends every reminder due in (watermark, now] and advances the
// watermark. Delivery failures are logged and do not stop the batch.
func (d *ReminderDispatcher) Dispatch(ctx context.Context, now time.Time) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	to := now.UnixMilli()
	if to <= d.watermark {
		return 0, nil
	}
	due, err := d.reminderRepo.ListDueBetween(ctx, d.watermark, to)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, item := range due {
		if err := d.notifier.Notify(ctx, item); err != nil {
			logger.Error("deliver reminder", err,
				zap.Uint("reminder_id", item.ID),
				zap.Uint("task_id", item.Task.ID))
			continue
		}
		sent++
	}
	d.watermark = to
	if len(due) > 0 {
		logger.Info("reminders dispatched", zap.Int("due", len(due)), zap.Int("sent", sent))
	}
	return sent, nil
}

// Job adapts Dispatch to the scheduler's func() signature.
func (d *ReminderDispatcher) Job(ctx context.Context, timeout time.Duration) func() {
	return func() {
		jobCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if _, err := d.Dispatch(jobCtx, time.Now()); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("dispatch reminders", err)
		}
	}
}
