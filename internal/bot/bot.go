package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"todoapp/internal/logger"
	"todoapp/internal/model"
	"todoapp/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTitle
	stageDescription
	stagePriority
	stageDue
)

const (
	cbCompletePrefix = "complete:"
	cbReopenPrefix   = "reopen:"
	cbTrashPrefix    = "trash:"
	cbRestorePrefix  = "restore:"
	cbPurgePrefix    = "purge:"
)

const (
	btnSkip            = "⏭️ Skip"
	btnConfirm         = "✅ Confirm"
	btnCancel          = "↩️ Cancel"
	btnCancelDialog    = "⏪ Stop input"
	iconDefault        = "🟢"
	iconDue            = "⏳"
	iconOverdue        = "⚠️"
	iconDone           = "✅"
	iconTrash          = "🗑"
	menuLabelNewTask   = "➕ New task"
	menuLabelTasks     = "📋 Tasks"
	menuLabelCompleted = "✅ Completed"
	menuLabelTrash     = "🗑 Trash"
	menuLabelHelp      = "ℹ️ Help"
)

// sender is the part of the Telegram API the bot talks to.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type conversationState struct {
	stage conversationStage
	input service.TaskInput
}

// Services groups what the bot calls into.
type Services struct {
	Auth      *service.AuthService
	Tasks     *service.TaskService
	Reminders *service.ReminderService
}

// Bot aggregates Telegram API with services. Every chat has its own login
// session and its own task view.
type Bot struct {
	api       *tgbotapi.BotAPI
	out       sender
	auth      *service.AuthService
	tasks     *service.TaskService
	reminders *service.ReminderService
	loc       *time.Location
	now       func() time.Time

	mu            sync.Mutex
	sessions      map[int64]uint
	conversations map[int64]*conversationState
	confirmations map[int64]uint
	views         map[int64]*chatView
}

func New(token string, svc Services, loc *time.Location) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	logger.Info("bot authorized", zap.String("account", api.Self.UserName))

	b := newBot(api, svc, loc)
	b.api = api
	return b, nil
}

func newBot(out sender, svc Services, loc *time.Location) *Bot {
	if loc == nil {
		loc = time.Local
	}
	return &Bot{
		out:           out,
		auth:          svc.Auth,
		tasks:         svc.Tasks,
		reminders:     svc.Reminders,
		loc:           loc,
		now:           time.Now,
		sessions:      make(map[int64]uint),
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]uint),
		views:         make(map[int64]*chatView),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if b.api == nil {
		return errors.New("bot has no telegram api")
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	logger.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				logger.Error("handle callback", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				logger.Error("handle message", err, zap.Int64("chat_id", update.Message.Chat.ID))
			}
		}
	}

	b.closeViews()
	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil || msg.Chat == nil {
		return nil
	}
	chatID := msg.Chat.ID

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(chatID)
		b.clearConfirmation(chatID)
		return b.sendText(chatID, "⏪ Input cancelled.")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		// Arguments may carry a password, so only the command is logged.
		logger.Info("command received", zap.Int64("chat_id", chatID), zap.String("command", msg.Command()))
		return b.handleCommand(ctx, msg)
	}

	if taskID, ok := b.getConfirmation(chatID); ok {
		return b.handleConfirmationResponse(ctx, msg, taskID)
	}

	if b.hasConversation(chatID) {
		return b.handleConversation(ctx, msg)
	}

	return b.sendText(chatID, "I did not get that. Send /new to add a task or /help for the command list.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start", "help":
		return b.handleHelp(msg)
	case "signup":
		return b.handleSignup(ctx, msg)
	case "login":
		return b.handleLogin(ctx, msg)
	case "logout":
		return b.handleLogout(msg)
	case "new":
		return b.handleNew(ctx, msg)
	case "edit":
		return b.handleEdit(ctx, msg)
	case "tasks":
		return b.handleList(ctx, msg, listActive)
	case "completed", "done":
		return b.handleList(ctx, msg, listCompleted)
	case "trash":
		return b.handleList(ctx, msg, listTrash)
	case "agenda":
		return b.handleList(ctx, msg, listAgenda)
	case "complete":
		return b.handleTaskAction(ctx, msg, actionComplete)
	case "reopen":
		return b.handleTaskAction(ctx, msg, actionReopen)
	case "delete":
		return b.handleTaskAction(ctx, msg, actionTrash)
	case "restore":
		return b.handleTaskAction(ctx, msg, actionRestore)
	case "purge":
		return b.handlePurge(ctx, msg)
	case "search":
		return b.handleSearch(ctx, msg)
	case "sort":
		return b.handleSort(ctx, msg)
	case "remind":
		return b.handleRemind(ctx, msg)
	case "reminders":
		return b.handleReminders(ctx, msg)
	case "reschedule":
		return b.handleReschedule(ctx, msg)
	case "unremind":
		return b.handleUnremind(ctx, msg)
	case "cancel":
		b.clearConversation(msg.Chat.ID)
		b.clearConfirmation(msg.Chat.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelNewTask):
		return true, b.startNewTaskConversation(msg.Chat.ID)
	case strings.ToLower(menuLabelTasks):
		return true, b.handleList(ctx, msg, listActive)
	case strings.ToLower(menuLabelCompleted):
		return true, b.handleList(ctx, msg, listCompleted)
	case strings.ToLower(menuLabelTrash):
		return true, b.handleList(ctx, msg, listTrash)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

// Notify sends a due reminder to every chat logged in as the task owner.
func (b *Bot) Notify(ctx context.Context, due model.DueReminder) error {
	chats := b.chatsOf(due.Task.UserID)
	if len(chats) == 0 {
		logger.Debug("no open session for reminder",
			zap.Uint("reminder_id", due.ID),
			zap.Uint("user_id", due.Task.UserID))
		return nil
	}

	text := formatReminder(due, b.loc)
	var errs []error
	for _, chatID := range chats {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.sendText(chatID, text); err != nil {
			errs = append(errs, fmt.Errorf("send reminder to chat %d: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.out.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.out.Send(msg)
	return err
}

func (b *Bot) sendTextWithRemove(chatID int64, text string) error {
	return b.sendWithReplyMarkup(chatID, text, tgbotapi.NewRemoveKeyboard(true))
}

// forget deletes a message that carried credentials. Failure is not fatal.
func (b *Bot) forget(msg *tgbotapi.Message) {
	if _, err := b.out.Request(tgbotapi.NewDeleteMessage(msg.Chat.ID, msg.MessageID)); err != nil {
		logger.Warn("delete credentials message", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
	}
}

func (b *Bot) session(chatID int64) (uint, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	userID, ok := b.sessions[chatID]
	return userID, ok
}

// requireSession answers with a login hint when the chat is anonymous.
func (b *Bot) requireSession(chatID int64) (uint, bool, error) {
	userID, ok := b.session(chatID)
	if !ok {
		return 0, false, b.sendText(chatID, "Please /login or /signup first.")
	}
	return userID, true, nil
}

func (b *Bot) setSession(chatID int64, userID uint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions[chatID] = userID
}

func (b *Bot) clearSession(chatID int64) {
	b.mu.Lock()
	cv := b.views[chatID]
	delete(b.sessions, chatID)
	delete(b.views, chatID)
	delete(b.conversations, chatID)
	delete(b.confirmations, chatID)
	b.mu.Unlock()

	if cv != nil {
		cv.close()
	}
}

func (b *Bot) chatsOf(userID uint) []int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	var chats []int64
	for chatID, owner := range b.sessions {
		if owner == userID {
			chats = append(chats, chatID)
		}
	}
	return chats
}

func (b *Bot) getConfirmation(chatID int64) (uint, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	taskID, ok := b.confirmations[chatID]
	return taskID, ok
}

func (b *Bot) setConfirmation(chatID int64, taskID uint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[chatID] = taskID
}

func (b *Bot) clearConfirmation(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, chatID)
}

func (b *Bot) setConversation(chatID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[chatID] = state
}

func (b *Bot) getConversation(chatID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[chatID]
}

func (b *Bot) hasConversation(chatID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[chatID]
	return ok
}

func (b *Bot) clearConversation(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, chatID)
}
