package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"todoapp/internal/logger"
	"todoapp/internal/model"
	"todoapp/internal/service"
	"todoapp/internal/view"
)

type taskAction int

const (
	actionComplete taskAction = iota
	actionReopen
	actionTrash
	actionRestore
)

func (a taskAction) done(title string) string {
	switch a {
	case actionReopen:
		return fmt.Sprintf("↩️ Task «%s» is open again.", title)
	case actionTrash:
		return fmt.Sprintf("🗑 Task «%s» moved to the trash. /restore brings it back.", title)
	case actionRestore:
		return fmt.Sprintf("♻️ Task «%s» restored.", title)
	default:
		return fmt.Sprintf("✅ Task «%s» completed.", title)
	}
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Commands</b>\n" +
		"• /signup &lt;email&gt; &lt;password&gt; &lt;password&gt; — create an account\n" +
		"• /login &lt;username&gt; &lt;password&gt; — log in this chat\n" +
		"• /logout — end the session\n" +
		"• /new — add a task step by step, or in one line:\n" +
		"  <code>/new title | description | High | 2025-11-30 18:00</code>\n" +
		"• /edit &lt;id&gt; title | description | priority | date — change a task\n" +
		"• /tasks, /completed, /trash — show a list\n" +
		"• /agenda — open tasks and done ones, by priority then date\n" +
		"• /complete, /reopen, /delete, /restore, /purge &lt;id&gt; — change a task's state\n" +
		"• /search &lt;text&gt; — filter the list (empty clears)\n" +
		"• /sort stored|priority|due — order the list\n" +
		"• /remind &lt;id&gt; 2025-11-30 09:00 — set a reminder\n" +
		"• /reminders &lt;id&gt; — reminders of a task\n" +
		"• /reschedule &lt;reminder&gt; 2025-11-30 10:00, /unremind &lt;reminder&gt;\n" +
		"• /cancel — stop the current input"
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleSignup(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		return b.sendText(chatID, "Usage: /signup &lt;email&gt; &lt;password&gt; &lt;password&gt;")
	}
	b.forget(msg)
	if len(args) != 3 {
		return b.sendText(chatID, "Usage: /signup &lt;email&gt; &lt;password&gt; &lt;password&gt;")
	}

	user, err := b.auth.Signup(ctx, service.SignupInput{Email: args[0], Password: args[1], ConfirmPassword: args[2]})
	if err != nil {
		return b.reportError(chatID, err)
	}

	b.clearSession(chatID)
	b.setSession(chatID, user.ID)
	return b.sendText(chatID, fmt.Sprintf("🎉 Account created. You are logged in as <b>%s</b>.", escape(user.Username)))
}

func (b *Bot) handleLogin(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		return b.sendText(chatID, "Usage: /login &lt;username&gt; &lt;password&gt;")
	}
	b.forget(msg)
	if len(args) != 2 {
		return b.sendText(chatID, "Usage: /login &lt;username&gt; &lt;password&gt;")
	}

	user, err := b.auth.Login(ctx, args[0], args[1])
	if err != nil {
		logger.Info("login failed", zap.Int64("chat_id", chatID))
		return b.reportError(chatID, err)
	}

	b.clearSession(chatID)
	b.setSession(chatID, user.ID)
	logger.Info("login", zap.Int64("chat_id", chatID), zap.Uint("user_id", user.ID))
	return b.sendText(chatID, fmt.Sprintf("👋 Welcome back, <b>%s</b>. /tasks shows your list.", escape(user.Username)))
}

func (b *Bot) handleLogout(msg *tgbotapi.Message) error {
	b.clearSession(msg.Chat.ID)
	return b.sendTextWithRemove(msg.Chat.ID, "Logged out.")
}

func (b *Bot) handleNew(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		return b.startNewTaskConversation(chatID)
	}

	userID, ok, err := b.requireSession(chatID)
	if !ok {
		return err
	}
	input, err := parseTaskArgs(args, b.loc)
	if err != nil {
		return b.reportError(chatID, err)
	}
	return b.finishTaskCreation(ctx, chatID, userID, input)
}

func (b *Bot) handleEdit(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	userID, ok, err := b.requireSession(chatID)
	if !ok {
		return err
	}

	rawID, rest, _ := strings.Cut(strings.TrimSpace(msg.CommandArguments()), " ")
	taskID, err := parseID(rawID)
	if err != nil || strings.TrimSpace(rest) == "" {
		return b.sendText(chatID, "Usage: /edit &lt;id&gt; title | description | priority | YYYY-MM-DD [HH:MM]")
	}
	input, err := parseTaskArgs(rest, b.loc)
	if err != nil {
		return b.reportError(chatID, err)
	}

	changed, err := b.tasks.EditTask(ctx, userID, taskID, input)
	if err != nil {
		return b.reportError(chatID, err)
	}
	if !changed {
		return b.sendText(chatID, fmt.Sprintf("Task #%d not found.", taskID))
	}
	if err := b.sendText(chatID, fmt.Sprintf("✏️ Task #%d updated.", taskID)); err != nil {
		return err
	}
	b.refreshView(ctx, chatID)
	return nil
}

func (b *Bot) handleList(ctx context.Context, msg *tgbotapi.Message, kind listKind) error {
	chatID := msg.Chat.ID
	userID, ok, err := b.requireSession(chatID)
	if !ok {
		return err
	}
	if err := b.openView(ctx, chatID, userID, kind); err != nil {
		return b.reportError(chatID, err)
	}
	return nil
}

func (b *Bot) handleTaskAction(ctx context.Context, msg *tgbotapi.Message, action taskAction) error {
	chatID := msg.Chat.ID
	userID, ok, err := b.requireSession(chatID)
	if !ok {
		return err
	}
	taskID, err := parseID(msg.CommandArguments())
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Give the task id, for example /%s 12", msg.Command()))
	}
	return b.applyAction(ctx, chatID, userID, taskID, action)
}

func (b *Bot) applyAction(ctx context.Context, chatID int64, userID, taskID uint, action taskAction) error {
	task, err := b.tasks.GetTask(ctx, userID, taskID)
	if service.IsNotFound(err) {
		return b.sendText(chatID, fmt.Sprintf("Task #%d not found.", taskID))
	}
	if err != nil {
		return b.reportError(chatID, err)
	}

	var changed bool
	switch action {
	case actionComplete:
		changed, err = b.tasks.SetDone(ctx, userID, taskID, true)
	case actionReopen:
		changed, err = b.tasks.SetDone(ctx, userID, taskID, false)
	case actionTrash:
		changed, err = b.tasks.MoveToTrash(ctx, userID, taskID)
	case actionRestore:
		changed, err = b.tasks.Restore(ctx, userID, taskID)
	}
	if err != nil {
		return b.reportError(chatID, err)
	}
	if !changed {
		return b.sendText(chatID, fmt.Sprintf("Task #%d not found.", taskID))
	}

	if err := b.sendText(chatID, action.done(escape(normalizeTitle(task.Title)))); err != nil {
		return err
	}
	b.refreshView(ctx, chatID)
	return nil
}

func (b *Bot) handlePurge(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	userID, ok, err := b.requireSession(chatID)
	if !ok {
		return err
	}
	taskID, err := parseID(msg.CommandArguments())
	if err != nil {
		return b.sendText(chatID, "Give the task id, for example /purge 12")
	}
	return b.askPurgeConfirmation(ctx, chatID, userID, taskID)
}

func (b *Bot) askPurgeConfirmation(ctx context.Context, chatID int64, userID, taskID uint) error {
	task, err := b.tasks.GetTask(ctx, userID, taskID)
	if service.IsNotFound(err) {
		return b.sendText(chatID, fmt.Sprintf("Task #%d not found.", taskID))
	}
	if err != nil {
		return b.reportError(chatID, err)
	}

	b.setConfirmation(chatID, task.ID)
	text := fmt.Sprintf("Delete task «%s» (#%d) for good? Its reminders go too.", escape(normalizeTitle(task.Title)), task.ID)
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, taskID uint) error {
	chatID := msg.Chat.ID
	switch text := strings.TrimSpace(msg.Text); {
	case isConfirmInput(text):
		b.clearConfirmation(chatID)
		userID, ok, err := b.requireSession(chatID)
		if !ok {
			return err
		}
		changed, err := b.tasks.Purge(ctx, userID, taskID)
		if err != nil {
			return b.reportError(chatID, err)
		}
		if !changed {
			return b.sendText(chatID, fmt.Sprintf("Task #%d is already gone.", taskID))
		}
		logger.Info("task purged", zap.Uint("task_id", taskID), zap.Uint("user_id", userID))
		if err := b.sendText(chatID, fmt.Sprintf("❌ Task #%d deleted.", taskID)); err != nil {
			return err
		}
		b.refreshView(ctx, chatID)
		return nil
	case isCancelInput(text):
		b.clearConfirmation(chatID)
		return b.sendText(chatID, "Kept.")
	default:
		return b.sendWithReplyMarkup(chatID, "Confirm or cancel the deletion.", confirmKeyboard())
	}
}

func (b *Bot) handleSearch(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	userID, ok, err := b.requireSession(chatID)
	if !ok {
		return err
	}
	cv, err := b.ensureView(ctx, chatID, userID)
	if err != nil {
		return b.reportError(chatID, err)
	}

	query := strings.TrimSpace(msg.CommandArguments())
	if query == "" {
		cv.sync.List().ClearFilter()
		return nil
	}
	cv.sync.List().Filter(query)
	return nil
}

func (b *Bot) handleSort(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	userID, ok, err := b.requireSession(chatID)
	if !ok {
		return err
	}
	mode, valid := view.ParseSortMode(msg.CommandArguments())
	if !valid {
		return b.sendText(chatID, "Usage: /sort stored|priority|due")
	}
	cv, err := b.ensureView(ctx, chatID, userID)
	if err != nil {
		return b.reportError(chatID, err)
	}
	cv.sync.List().SetSort(mode)
	return nil
}

func (b *Bot) handleRemind(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	userID, ok, err := b.requireSession(chatID)
	if !ok {
		return err
	}
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 3 {
		return b.sendText(chatID, "Usage: /remind &lt;id&gt; YYYY-MM-DD HH:MM")
	}
	taskID, err := parseID(args[0])
	if err != nil {
		return b.sendText(chatID, "The task id must be a number.")
	}
	at, err := parseWhen(args[1]+" "+args[2], b.loc)
	if err != nil {
		return b.reportError(chatID, err)
	}

	reminder, err := b.reminders.Schedule(ctx, userID, taskID, at, b.now())
	if err != nil {
		return b.reportError(chatID, err)
	}
	return b.sendText(chatID, fmt.Sprintf("⏰ Reminder #%d set for %s.", reminder.ID, reminder.At().In(b.loc).Format(dateTimeLayout)))
}

func (b *Bot) handleReminders(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	userID, ok, err := b.requireSession(chatID)
	if !ok {
		return err
	}
	taskID, err := parseID(msg.CommandArguments())
	if err != nil {
		return b.sendText(chatID, "Usage: /reminders &lt;id&gt;")
	}

	reminders, err := b.reminders.ListForTask(ctx, userID, taskID)
	if err != nil {
		return b.reportError(chatID, err)
	}
	return b.sendText(chatID, formatReminders(taskID, reminders, b.loc))
}

func (b *Bot) handleReschedule(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	userID, ok, err := b.requireSession(chatID)
	if !ok {
		return err
	}
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 3 {
		return b.sendText(chatID, "Usage: /reschedule &lt;reminder&gt; YYYY-MM-DD HH:MM")
	}
	reminderID, err := parseID(args[0])
	if err != nil {
		return b.sendText(chatID, "The reminder id must be a number.")
	}
	at, err := parseWhen(args[1]+" "+args[2], b.loc)
	if err != nil {
		return b.reportError(chatID, err)
	}

	changed, err := b.reminders.Reschedule(ctx, userID, reminderID, at, b.now())
	if err != nil {
		return b.reportError(chatID, err)
	}
	if !changed {
		return b.sendText(chatID, fmt.Sprintf("Reminder #%d not found.", reminderID))
	}
	return b.sendText(chatID, fmt.Sprintf("⏰ Reminder #%d moved to %s.", reminderID, at.Format(dateTimeLayout)))
}

func (b *Bot) handleUnremind(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	userID, ok, err := b.requireSession(chatID)
	if !ok {
		return err
	}
	reminderID, err := parseID(msg.CommandArguments())
	if err != nil {
		return b.sendText(chatID, "Usage: /unremind &lt;reminder&gt;")
	}

	changed, err := b.reminders.Cancel(ctx, userID, reminderID)
	if err != nil {
		return b.reportError(chatID, err)
	}
	if !changed {
		return b.sendText(chatID, fmt.Sprintf("Reminder #%d not found.", reminderID))
	}
	return b.sendText(chatID, fmt.Sprintf("🔕 Reminder #%d removed.", reminderID))
}

func (b *Bot) startNewTaskConversation(chatID int64) error {
	if _, ok, err := b.requireSession(chatID); !ok {
		return err
	}
	b.setConversation(chatID, &conversationState{stage: stageTitle})
	return b.sendWithReplyMarkup(chatID, "🆕 New task.\n<b>Step 1:</b> what is it called?", cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	state := b.getConversation(chatID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageTitle:
		if text == "" {
			return b.sendWithReplyMarkup(chatID, "The title must not be empty.", cancelKeyboard())
		}
		state.input.Title = text
		state.stage = stageDescription
		return b.sendWithReplyMarkup(chatID, "✏️ <b>Step 2:</b> add a short description.", cancelKeyboard())
	case stageDescription:
		if text == "" {
			return b.sendWithReplyMarkup(chatID, "The description must not be empty.", cancelKeyboard())
		}
		state.input.Description = text
		state.stage = stagePriority
		return b.sendWithReplyMarkup(chatID, "🏷 <b>Step 3:</b> pick a priority (Low if skipped).", priorityKeyboard())
	case stagePriority:
		state.input.Priority = model.PriorityLow
		if !isSkipInput(text) {
			priority, ok := model.ParsePriority(stripIcon(text))
			if !ok {
				return b.sendWithReplyMarkup(chatID, "Pick Low, Medium or High.", priorityKeyboard())
			}
			state.input.Priority = priority
		}
		state.stage = stageDue
		return b.sendWithReplyMarkup(chatID, "⏰ <b>Step 4:</b> due date as <code>2025-11-30</code> or <code>2025-11-30 18:00</code> (or skip).", skipKeyboard())
	case stageDue:
		if !isSkipInput(text) {
			date, clock, err := parseDue(text, b.loc)
			if err != nil {
				return b.sendWithReplyMarkup(chatID, "I cannot read that date. Use <code>2025-11-30</code> or <code>2025-11-30 18:00</code>, or skip.", skipKeyboard())
			}
			state.input.Date, state.input.Time = date, clock
		}
		b.clearConversation(chatID)
		userID, ok, err := b.requireSession(chatID)
		if !ok {
			return err
		}
		return b.finishTaskCreation(ctx, chatID, userID, state.input)
	default:
		b.clearConversation(chatID)
		return b.sendText(chatID, "Input reset. Start again with /new.")
	}
}

func (b *Bot) finishTaskCreation(ctx context.Context, chatID int64, userID uint, input service.TaskInput) error {
	task, err := b.tasks.CreateTask(ctx, userID, input)
	if err != nil {
		return b.reportError(chatID, err)
	}

	var summary strings.Builder
	summary.WriteString("✅ <b>Task saved</b>\n")
	summary.WriteString(fmt.Sprintf("• <b>ID:</b> %d\n", task.ID))
	summary.WriteString(fmt.Sprintf("• <b>Title:</b> %s\n", escape(normalizeTitle(task.Title))))
	summary.WriteString(fmt.Sprintf("• <b>Description:</b> %s\n", escape(task.Description)))
	summary.WriteString(fmt.Sprintf("• <b>Priority:</b> %s\n", task.Priority))
	if due := task.DueAt(b.loc); !due.IsZero() {
		summary.WriteString(fmt.Sprintf("• <b>Due:</b> %s\n", formatDue(*task, b.loc)))
	}

	if err := b.sendText(chatID, strings.TrimSpace(summary.String())); err != nil {
		return err
	}
	b.refreshView(ctx, chatID)
	return nil
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	if _, err := b.out.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		logger.Warn("callback ack", zap.Error(err))
	}

	chatID := cb.Message.Chat.ID
	userID, ok, err := b.requireSession(chatID)
	if !ok {
		return err
	}

	prefixes := []struct {
		prefix string
		action taskAction
	}{
		{cbCompletePrefix, actionComplete},
		{cbReopenPrefix, actionReopen},
		{cbTrashPrefix, actionTrash},
		{cbRestorePrefix, actionRestore},
	}
	for _, p := range prefixes {
		if strings.HasPrefix(cb.Data, p.prefix) {
			taskID, err := parseID(strings.TrimPrefix(cb.Data, p.prefix))
			if err != nil {
				return nil
			}
			logger.Info("callback", zap.Int64("chat_id", chatID), zap.String("data", cb.Data))
			return b.applyAction(ctx, chatID, userID, taskID, p.action)
		}
	}
	if strings.HasPrefix(cb.Data, cbPurgePrefix) {
		taskID, err := parseID(strings.TrimPrefix(cb.Data, cbPurgePrefix))
		if err != nil {
			return nil
		}
		return b.askPurgeConfirmation(ctx, chatID, userID, taskID)
	}
	return nil
}

// reportError turns known errors into a reply and logs the rest.
func (b *Bot) reportError(chatID int64, err error) error {
	text, known := userMessage(err)
	if !known {
		logger.Error("request failed", err, zap.Int64("chat_id", chatID))
	}
	return b.sendText(chatID, text)
}
