package model

import "time"

// Reminder is a point in time at which the owner of a task gets notified.
type Reminder struct {
	ID           uint  `gorm:"column:id;primaryKey;autoIncrement"`
	TaskID       uint  `gorm:"column:taskId;not null;index:index_Reminder_taskId"`
	ReminderTime int64 `gorm:"column:reminderTime;not null"` // epoch millis
}

func (Reminder) TableName() string { return ReminderTable }

func (r Reminder) At() time.Time {
	return time.UnixMilli(r.ReminderTime)
}

// DueReminder is a reminder joined with the task it belongs to.
type DueReminder struct {
	Reminder
	Task Task
}
