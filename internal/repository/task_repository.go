package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"todoapp/internal/model"
)

// priorityOrder ranks High=1, Medium=2, Low=3; unknown labels sort last.
const priorityOrder = `CASE priority WHEN 'High' THEN 1 WHEN 'Medium' THEN 2 WHEN 'Low' THEN 3 ELSE 4 END`

// TaskRepository handles CRUD for tasks. Mutators report rows affected; zero
// means there was nothing to change and is not an error.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts the task and fills in its id. The owner must exist.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireOwner(tx, task.UserID); err != nil {
			return err
		}
		return tx.Create(task).Error
	})
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func requireOwner(tx *gorm.DB, userID uint) error {
	var owners int64
	if err := tx.Model(&model.User{}).Where("id = ?", userID).Count(&owners).Error; err != nil {
		return err
	}
	if owners == 0 {
		return ErrUnknownUser
	}
	return nil
}

func (r *TaskRepository) ListActive(ctx context.Context, userID uint) ([]model.Task, error) {
	return r.list(ctx, "userId = ? AND done = ? AND isDeleted = ?", userID, false, false)
}

func (r *TaskRepository) ListCompleted(ctx context.Context, userID uint) ([]model.Task, error) {
	return r.list(ctx, "userId = ? AND done = ? AND isDeleted = ?", userID, true, false)
}

// ListDeleted returns the trash.
func (r *TaskRepository) ListDeleted(ctx context.Context, userID uint) ([]model.Task, error) {
	return r.list(ctx, "userId = ? AND isDeleted = ?", userID, true)
}

func (r *TaskRepository) list(ctx context.Context, where string, args ...interface{}) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where(where, args...).Order("id ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// ListSortedByPriorityAndDate returns non-deleted tasks ordered by priority
// rank, then date ascending (unset dates first), then id.
func (r *TaskRepository) ListSortedByPriorityAndDate(ctx context.Context, userID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("userId = ? AND isDeleted = ?", userID, false).
		Order(priorityOrder + ", date ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list sorted tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, userID, taskID uint) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Where("userId = ? AND id = ?", userID, taskID).First(&task).Error
	switch {
	case err == nil:
		return &task, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("find task: %w", err)
	}
}

// Owns reports whether taskID exists and belongs to userID.
func (r *TaskRepository) Owns(ctx context.Context, userID, taskID uint) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Task{}).Where("userId = ? AND id = ?", userID, taskID).Count(&n).Error; err != nil {
		return false, fmt.Errorf("check task owner: %w", err)
	}
	return n > 0, nil
}

// Update replaces every column of the row with task.ID. Like Create, the
// owner must exist.
func (r *TaskRepository) Update(ctx context.Context, task *model.Task) (int64, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireOwner(tx, task.UserID); err != nil {
			return err
		}
		res := tx.Model(&model.Task{}).
			Where("id = ?", task.ID).
			Select("title", "description", "priority", "date", "time", "done", "isDeleted", "userId").
			Updates(task)
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, fmt.Errorf("update task: %w", err)
	}
	return affected, nil
}

// UpdateFields is the partial update used by edit flows.
func (r *TaskRepository) UpdateFields(ctx context.Context, taskID uint, title, description string, priority model.Priority, date, clock int64) (int64, error) {
	return r.updateColumns(ctx, taskID, map[string]interface{}{
		"title":       title,
		"description": description,
		"priority":    priority,
		"date":        date,
		"time":        clock,
	})
}

func (r *TaskRepository) SetDone(ctx context.Context, taskID uint, done bool) (int64, error) {
	return r.updateColumns(ctx, taskID, map[string]interface{}{"done": done})
}

// SoftDelete moves the task to the trash without touching its done flag.
func (r *TaskRepository) SoftDelete(ctx context.Context, taskID uint) (int64, error) {
	return r.updateColumns(ctx, taskID, map[string]interface{}{"isDeleted": true})
}

func (r *TaskRepository) Restore(ctx context.Context, taskID uint) (int64, error) {
	return r.updateColumns(ctx, taskID, map[string]interface{}{"isDeleted": false})
}

func (r *TaskRepository) updateColumns(ctx context.Context, taskID uint, values map[string]interface{}) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", taskID).Updates(values)
	if res.Error != nil {
		return 0, fmt.Errorf("update task %d: %w", taskID, res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteHard removes the row; its reminders go with it through the foreign key.
func (r *TaskRepository) DeleteHard(ctx context.Context, taskID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", taskID).Delete(&model.Task{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete task: %w", res.Error)
	}
	return res.RowsAffected, nil
}
