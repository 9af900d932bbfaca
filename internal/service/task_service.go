package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"todoapp/internal/logger"
	"todoapp/internal/model"
	"todoapp/internal/repository"
)

// TaskInput is the editable part of a task, as submitted by a task form.
type TaskInput struct {
	Title       string
	Description string
	Priority    model.Priority
	Date        int64 // epoch millis, 0 = unset
	Time        int64 // epoch millis, 0 = unset
}

// Validate applies the rules shared by every create and update path.
func (in TaskInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return ErrEmptyTitle
	}
	if strings.TrimSpace(in.Description) == "" {
		return ErrEmptyDescription
	}
	if !in.Priority.Valid() {
		return ErrInvalidPriority
	}
	return nil
}

// TaskService wraps task-related business logic. Mutations report whether a
// row changed; a missing or foreign task is a silent no-op.
type TaskService struct {
	taskRepo *repository.TaskRepository
}

func NewTaskService(taskRepo *repository.TaskRepository) *TaskService {
	return &TaskService{taskRepo: taskRepo}
}

func (s *TaskService) CreateTask(ctx context.Context, userID uint, input TaskInput) (*model.Task, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	task := model.Task{
		Title:       input.Title,
		Description: input.Description,
		Priority:    input.Priority,
		Date:        input.Date,
		Time:        input.Time,
		UserID:      userID,
	}
	if err := s.taskRepo.Create(ctx, &task); err != nil {
		return nil, err
	}

	logger.Info("task created", zap.Uint("task_id", task.ID), zap.Uint("user_id", userID))
	return &task, nil
}

func (s *TaskService) GetTask(ctx context.Context, userID, taskID uint) (*model.Task, error) {
	return s.taskRepo.FindByID(ctx, userID, taskID)
}

func (s *TaskService) ListActive(ctx context.Context, userID uint) ([]model.Task, error) {
	return s.taskRepo.ListActive(ctx, userID)
}

func (s *TaskService) ListCompleted(ctx context.Context, userID uint) ([]model.Task, error) {
	return s.taskRepo.ListCompleted(ctx, userID)
}

func (s *TaskService) ListTrash(ctx context.Context, userID uint) ([]model.Task, error) {
	return s.taskRepo.ListDeleted(ctx, userID)
}

func (s *TaskService) ListByPriority(ctx context.Context, userID uint) ([]model.Task, error) {
	return s.taskRepo.ListSortedByPriorityAndDate(ctx, userID)
}

// EditTask is the partial update used by the edit form. Done and trash
// state are left as they are.
func (s *TaskService) EditTask(ctx context.Context, userID, taskID uint, input TaskInput) (bool, error) {
	if err := input.Validate(); err != nil {
		return false, err
	}
	return s.mutate(ctx, userID, taskID, "edit", func() (int64, error) {
		return s.taskRepo.UpdateFields(ctx, taskID, input.Title, input.Description, input.Priority, input.Date, input.Time)
	})
}

// ReplaceTask writes every column of task. The owner cannot be changed.
func (s *TaskService) ReplaceTask(ctx context.Context, userID uint, task model.Task) (bool, error) {
	input := TaskInput{Title: task.Title, Description: task.Description, Priority: task.Priority, Date: task.Date, Time: task.Time}
	if err := input.Validate(); err != nil {
		return false, err
	}
	task.UserID = userID
	return s.mutate(ctx, userID, task.ID, "replace", func() (int64, error) {
		return s.taskRepo.Update(ctx, &task)
	})
}

func (s *TaskService) SetDone(ctx context.Context, userID, taskID uint, done bool) (bool, error) {
	return s.mutate(ctx, userID, taskID, "set done", func() (int64, error) {
		return s.taskRepo.SetDone(ctx, taskID, done)
	})
}

func (s *TaskService) MoveToTrash(ctx context.Context, userID, taskID uint) (bool, error) {
	return s.mutate(ctx, userID, taskID, "trash", func() (int64, error) {
		return s.taskRepo.SoftDelete(ctx, taskID)
	})
}

func (s *TaskService) Restore(ctx context.Context, userID, taskID uint) (bool, error) {
	return s.mutate(ctx, userID, taskID, "restore", func() (int64, error) {
		return s.taskRepo.Restore(ctx, taskID)
	})
}

// Purge deletes the task for good, together with its reminders.
func (s *TaskService) Purge(ctx context.Context, userID, taskID uint) (bool, error) {
	return s.mutate(ctx, userID, taskID, "purge", func() (int64, error) {
		return s.taskRepo.DeleteHard(ctx, taskID)
	})
}

func (s *TaskService) mutate(ctx context.Context, userID, taskID uint, op string, apply func() (int64, error)) (bool, error) {
	owns, err := s.taskRepo.Owns(ctx, userID, taskID)
	if err != nil {
		return false, err
	}
	if !owns {
		logger.Debug("task not found, nothing to do", zap.String("op", op), zap.Uint("task_id", taskID), zap.Uint("user_id", userID))
		return false, nil
	}
	n, err := apply()
	if err != nil {
		return false, fmt.Errorf("%s task %d: %w", op, taskID, err)
	}
	return n > 0, nil
}

// IsNotFound reports whether err means the task does not exist for this user.
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
