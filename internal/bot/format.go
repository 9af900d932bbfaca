package bot

import (
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"
	"unicode"

	"todoapp/internal/model"
	"todoapp/internal/repository"
	"todoapp/internal/service"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
)

var (
	errTaskFormat = errors.New("expected: title | description | priority | YYYY-MM-DD [HH:MM]")
	errDueFormat  = errors.New("expected a date as YYYY-MM-DD or YYYY-MM-DD HH:MM")
	errWhenFormat = errors.New("expected a moment as YYYY-MM-DD HH:MM")
)

func parseID(raw string) (uint, error) {
	value, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(value), nil
}

// parseTaskArgs reads "title | description | priority | due". Priority
// defaults to Low and the due date is optional.
func parseTaskArgs(raw string, loc *time.Location) (service.TaskInput, error) {
	parts := strings.Split(raw, "|")
	if len(parts) < 2 || len(parts) > 4 {
		return service.TaskInput{}, errTaskFormat
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	input := service.TaskInput{
		Title:       parts[0],
		Description: parts[1],
		Priority:    model.PriorityLow,
	}
	if len(parts) > 2 && parts[2] != "" {
		priority, ok := model.ParsePriority(parts[2])
		if !ok {
			return service.TaskInput{}, service.ErrInvalidPriority
		}
		input.Priority = priority
	}
	if len(parts) > 3 && parts[3] != "" {
		date, clock, err := parseDue(parts[3], loc)
		if err != nil {
			return service.TaskInput{}, err
		}
		input.Date, input.Time = date, clock
	}
	return input, input.Validate()
}

// parseDue returns the date (local midnight) and, when a clock time is given,
// the full moment, both in epoch millis.
func parseDue(raw string, loc *time.Location) (date, clock int64, err error) {
	fields := strings.Fields(raw)
	switch len(fields) {
	case 1:
		day, err := time.ParseInLocation(dateLayout, fields[0], loc)
		if err != nil {
			return 0, 0, errDueFormat
		}
		return day.UnixMilli(), 0, nil
	case 2:
		at, err := time.ParseInLocation(dateTimeLayout, fields[0]+" "+fields[1], loc)
		if err != nil {
			return 0, 0, errDueFormat
		}
		y, m, d := at.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, loc).UnixMilli(), at.UnixMilli(), nil
	default:
		return 0, 0, errDueFormat
	}
}

func parseWhen(raw string, loc *time.Location) (time.Time, error) {
	at, err := time.ParseInLocation(dateTimeLayout, strings.Join(strings.Fields(raw), " "), loc)
	if err != nil {
		return time.Time{}, errWhenFormat
	}
	return at, nil
}

// userMessage maps an error to the reply text. known is false for errors the
// user cannot act on.
func userMessage(err error) (text string, known bool) {
	switch {
	case errors.Is(err, service.ErrEmptyTitle):
		return "The title must not be empty.", true
	case errors.Is(err, service.ErrEmptyDescription):
		return "The description must not be empty.", true
	case errors.Is(err, service.ErrInvalidPriority):
		return "Priority must be Low, Medium or High.", true
	case errors.Is(err, service.ErrInvalidEmail):
		return "That does not look like an email address.", true
	case errors.Is(err, service.ErrWeakPassword):
		return "The password needs at least 8 characters with a digit and an upper-case letter.", true
	case errors.Is(err, service.ErrPasswordMismatch):
		return "The passwords do not match.", true
	case errors.Is(err, service.ErrEmailTaken):
		return "This email is already registered. Try /login.", true
	case errors.Is(err, service.ErrInvalidCredentials):
		return "Wrong username or password.", true
	case errors.Is(err, service.ErrReminderTime):
		return "The reminder must be in the future.", true
	case errors.Is(err, repository.ErrNotFound):
		return "Task not found.", true
	case errors.Is(err, errTaskFormat), errors.Is(err, errDueFormat), errors.Is(err, errWhenFormat):
		return "Format error: " + escape(err.Error()), true
	default:
		return "Something went wrong. Please try again later.", false
	}
}

func formatTask(task model.Task, loc *time.Location, now time.Time) string {
	var b strings.Builder
	icon := iconDefault
	due := task.DueAt(loc)
	switch {
	case task.Done:
		icon = iconDone
	case task.IsDeleted:
		icon = iconTrash
	case !due.IsZero() && now.After(due):
		icon = iconOverdue
	case !due.IsZero() && due.Sub(now) <= 48*time.Hour:
		icon = iconDue
	}
	b.WriteString(fmt.Sprintf("%s <b>#%d</b> %s · %s\n", icon, task.ID, escape(normalizeTitle(task.Title)), priorityLabel(task.Priority)))
	if !due.IsZero() {
		if !task.Done && now.After(due) {
			b.WriteString(fmt.Sprintf("   ⏰ Due: %s · <b>overdue</b>\n", formatDue(task, loc)))
		} else {
			b.WriteString(fmt.Sprintf("   ⏰ Due: %s\n", formatDue(task, loc)))
		}
	}
	if task.Description != "" {
		b.WriteString(fmt.Sprintf("   📝 %s\n", escape(task.Description)))
	}
	b.WriteByte('\n')
	return b.String()
}

func formatDue(task model.Task, loc *time.Location) string {
	due := task.DueAt(loc)
	if task.Time == 0 {
		return due.Format(dateLayout)
	}
	return due.Format(dateTimeLayout)
}

func formatReminder(due model.DueReminder, loc *time.Location) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("⏰ <b>Reminder</b> · %s\n", due.At().In(loc).Format(dateTimeLayout)))
	b.WriteString(fmt.Sprintf("<b>#%d</b> %s · %s\n", due.Task.ID, escape(normalizeTitle(due.Task.Title)), priorityLabel(due.Task.Priority)))
	if due.Task.Date != 0 {
		b.WriteString(fmt.Sprintf("Due: %s\n", formatDue(due.Task, loc)))
	}
	if due.Task.Description != "" {
		b.WriteString(fmt.Sprintf("📝 %s\n", escape(due.Task.Description)))
	}
	b.WriteString(fmt.Sprintf("/complete %d when it is done.", due.Task.ID))
	return b.String()
}

func formatReminders(taskID uint, reminders []model.Reminder, loc *time.Location) string {
	if len(reminders) == 0 {
		return fmt.Sprintf("Task #%d has no reminders. Add one with /remind %d YYYY-MM-DD HH:MM", taskID, taskID)
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("⏰ <b>Reminders of task #%d</b>\n", taskID))
	for _, r := range reminders {
		b.WriteString(fmt.Sprintf("• #%d at %s\n", r.ID, r.At().In(loc).Format(dateTimeLayout)))
	}
	return strings.TrimSpace(b.String())
}

func priorityLabel(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "🔴 High"
	case model.PriorityMedium:
		return "🟠 Medium"
	case model.PriorityLow:
		return "🟢 Low"
	default:
		return escape(string(p))
	}
}

func escape(s string) string {
	return html.EscapeString(s)
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	clean = normalizeTitle(clean)
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}
