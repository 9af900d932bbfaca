package model

// Physical table names. They match the legacy store so old databases open
// without renames.
const (
	TaskTable     = "TodoModel"
	UserTable     = "User"
	ReminderTable = "Reminder"
)
