package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"todoapp/internal/model"
)

// ReminderRepository handles CRUD for reminders. Rows disappear with their
// task through ON DELETE CASCADE.
type ReminderRepository struct {
	db *gorm.DB
}

func NewReminderRepository(db *gorm.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

func (r *ReminderRepository) Create(ctx context.Context, reminder *model.Reminder) error {
	if err := r.db.WithContext(ctx).Create(reminder).Error; err != nil {
		return fmt.Errorf("create reminder: %w", err)
	}
	return nil
}

func (r *ReminderRepository) List(ctx context.Context) ([]model.Reminder, error) {
	var reminders []model.Reminder
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&reminders).Error; err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	return reminders, nil
}

func (r *ReminderRepository) ListByTask(ctx context.Context, taskID uint) ([]model.Reminder, error) {
	var reminders []model.Reminder
	if err := r.db.WithContext(ctx).Where("taskId = ?", taskID).Order("reminderTime ASC, id ASC").Find(&reminders).Error; err != nil {
		return nil, fmt.Errorf("list task reminders: %w", err)
	}
	return reminders, nil
}

func (r *ReminderRepository) FindByID(ctx context.Context, id uint) (*model.Reminder, error) {
	var reminder model.Reminder
	err := r.db.WithContext(ctx).First(&reminder, id).Error
	switch {
	case err == nil:
		return &reminder, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("find reminder: %w", err)
	}
}

func (r *ReminderRepository) Update(ctx context.Context, reminder *model.Reminder) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Reminder{}).
		Where("id = ?", reminder.ID).
		Select("taskId", "reminderTime").
		Updates(reminder)
	if res.Error != nil {
		return 0, fmt.Errorf("update reminder: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *ReminderRepository) Delete(ctx context.Context, id uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Reminder{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete reminder: %w", res.Error)
	}
	return res.RowsAffected, nil
}

type dueReminderRow struct {
	ReminderID   uint   `gorm:"column:reminder_id"`
	ReminderTime int64  `gorm:"column:reminder_time"`
	TaskID       uint   `gorm:"column:task_id"`
	Title        string `gorm:"column:title"`
	Description  string `gorm:"column:description"`
	Priority     string `gorm:"column:priority"`
	Date         int64  `gorm:"column:date"`
	Time         int64  `gorm:"column:time"`
	UserID       uint   `gorm:"column:user_id"`
}

// ListDueBetween returns reminders with from < reminderTime <= to whose task
// is neither done nor in the trash, in firing order.
func (r *ReminderRepository) ListDueBetween(ctx context.Context, from, to int64) ([]model.DueReminder, error) {
	var rows []dueReminderRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT r.id AS reminder_id, r.reminderTime AS reminder_time,
		       t.id AS task_id, t.title AS title, t.description AS description,
		       t.priority AS priority, t.date AS date, t.time AS time, t.userId AS user_id
		FROM "Reminder" r
		JOIN "TodoModel" t ON t.id = r.taskId
		WHERE r.reminderTime > ? AND r.reminderTime <= ?
		  AND t.done = 0 AND t.isDeleted = 0
		ORDER BY r.reminderTime ASC, r.id ASC`, from, to).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list due reminders: %w", err)
	}

	due := make([]model.DueReminder, 0, len(rows))
	for _, row := range rows {
		due = append(due, model.DueReminder{
			Reminder: model.Reminder{ID: row.ReminderID, TaskID: row.TaskID, ReminderTime: row.ReminderTime},
			Task: model.Task{
				ID:          row.TaskID,
				Title:       row.Title,
				Description: row.Description,
				Priority:    model.Priority(row.Priority),
				Date:        row.Date,
				Time:        row.Time,
				UserID:      row.UserID,
			},
		})
	}
	return due, nil
}
