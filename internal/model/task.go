package model

import (
	"strings"
	"time"
)

// Priority is the urgency label stored in the priority column.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Rank orders priorities for sorting: High=1, Medium=2, Low=3, anything else 4.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

func (p Priority) Valid() bool {
	return p.Rank() < 4
}

// ParsePriority accepts any letter case and returns the canonical label.
func ParsePriority(raw string) (Priority, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low":
		return PriorityLow, true
	case "medium":
		return PriorityMedium, true
	case "high":
		return PriorityHigh, true
	default:
		return "", false
	}
}

// Task represents a single item in the to-do list.
type Task struct {
	ID          uint     `gorm:"column:id;primaryKey;autoIncrement"`
	Title       string   `gorm:"column:title;not null"`
	Description string   `gorm:"column:description;not null"`
	Priority    Priority `gorm:"column:priority;not null;default:Low"`
	Date        int64    `gorm:"column:date;not null;default:0"` // epoch millis, 0 = unset
	Time        int64    `gorm:"column:time;not null;default:0"` // epoch millis, 0 = unset
	Done        bool     `gorm:"column:done;not null;default:false"`
	IsDeleted   bool     `gorm:"column:isDeleted;not null;default:false"`
	UserID      uint     `gorm:"column:userId;not null"`
}

func (Task) TableName() string { return TaskTable }

// DueAt combines the date and time columns in loc. The zero time means no
// due date.
func (t Task) DueAt(loc *time.Location) time.Time {
	if t.Date == 0 {
		return time.Time{}
	}
	due := time.UnixMilli(t.Date).In(loc)
	if t.Time == 0 {
		return due
	}
	clock := time.UnixMilli(t.Time).In(loc)
	y, m, d := due.Date()
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, loc)
}
