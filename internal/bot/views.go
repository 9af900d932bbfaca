package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"todoapp/internal/logger"
	"todoapp/internal/model"
	"todoapp/internal/view"
)

// maxListed keeps rendered lists under Telegram's message size limit.
const maxListed = 40

type listKind int

const (
	listActive listKind = iota
	listCompleted
	listTrash
	listAgenda
)

func (k listKind) String() string {
	switch k {
	case listCompleted:
		return "completed"
	case listTrash:
		return "trash"
	case listAgenda:
		return "agenda"
	default:
		return "active"
	}
}

func (k listKind) header() string {
	switch k {
	case listCompleted:
		return "✅ <b>Completed tasks</b>"
	case listTrash:
		return "🗑 <b>Trash</b>"
	case listAgenda:
		return "📆 <b>Agenda</b> (by priority, then date)"
	default:
		return "📋 <b>Current tasks</b>"
	}
}

func (k listKind) empty() string {
	switch k {
	case listCompleted:
		return "Nothing completed yet."
	case listTrash:
		return "The trash is empty."
	default:
		return "You have no open tasks. Add one with /new."
	}
}

// chatView is the list a chat is currently looking at. Every change to the
// list is rendered back into the chat.
type chatView struct {
	kind        listKind
	sync        *view.Synchronizer
	unsubscribe func()
}

func (v *chatView) close() {
	v.sync.Close()
	v.unsubscribe()
}

func (b *Bot) loader(userID uint, kind listKind) view.Loader {
	return func(ctx context.Context) ([]model.Task, error) {
		switch kind {
		case listCompleted:
			return b.tasks.ListCompleted(ctx, userID)
		case listTrash:
			return b.tasks.ListTrash(ctx, userID)
		case listAgenda:
			return b.tasks.ListByPriority(ctx, userID)
		default:
			return b.tasks.ListActive(ctx, userID)
		}
	}
}

// openView replaces the chat's view with one of the given kind and loads it.
// The search text and sort mode carry over.
func (b *Bot) openView(ctx context.Context, chatID int64, userID uint, kind listKind) error {
	list := view.NewList()

	b.mu.Lock()
	prev := b.views[chatID]
	b.mu.Unlock()
	if prev != nil {
		list.Filter(prev.sync.List().Query())
		list.SetSort(prev.sync.List().SortMode())
		prev.close()
	}

	unsubscribe := list.Subscribe(func(items []model.Task) {
		if err := b.renderList(chatID, kind, list, items); err != nil {
			logger.Error("render list", err, zap.Int64("chat_id", chatID), zap.Stringer("list", kind))
		}
	})
	cv := &chatView{
		kind:        kind,
		sync:        view.NewSynchronizer(kind.String(), list, b.loader(userID, kind)),
		unsubscribe: unsubscribe,
	}

	b.mu.Lock()
	b.views[chatID] = cv
	b.mu.Unlock()

	return cv.sync.Refresh(ctx)
}

func (b *Bot) currentView(chatID int64) *chatView {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.views[chatID]
}

// ensureView returns the chat's view, opening the active list if there is none.
func (b *Bot) ensureView(ctx context.Context, chatID int64, userID uint) (*chatView, error) {
	if cv := b.currentView(chatID); cv != nil {
		return cv, nil
	}
	if err := b.openView(ctx, chatID, userID, listActive); err != nil {
		return nil, err
	}
	return b.currentView(chatID), nil
}

// refreshView re-runs the chat's query after a change, if a list is open.
func (b *Bot) refreshView(ctx context.Context, chatID int64) {
	cv := b.currentView(chatID)
	if cv == nil {
		return
	}
	if err := cv.sync.Refresh(ctx); err != nil {
		logger.Error("refresh chat view", err, zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) closeViews() {
	b.mu.Lock()
	views := b.views
	b.views = make(map[int64]*chatView)
	b.mu.Unlock()

	for _, cv := range views {
		cv.close()
	}
}

func (b *Bot) renderList(chatID int64, kind listKind, list *view.List, items []model.Task) error {
	var builder strings.Builder
	builder.WriteString(kind.header())
	builder.WriteByte('\n')
	if q := list.Query(); q != "" {
		builder.WriteString(fmt.Sprintf("🔎 matching “%s” · /search to clear\n", escape(q)))
	}
	if mode := list.SortMode(); mode != view.SortStored {
		builder.WriteString(fmt.Sprintf("↕️ sorted by %s\n", mode))
	}
	builder.WriteByte('\n')

	if len(items) == 0 {
		builder.WriteString(kind.empty())
		return b.sendText(chatID, strings.TrimSpace(builder.String()))
	}

	now := b.now()
	shown := items
	if len(shown) > maxListed {
		shown = shown[:maxListed]
	}

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, task := range shown {
		builder.WriteString(formatTask(task, b.loc, now))
		buttons = append(buttons, taskButtons(kind, task))
	}
	if rest := len(items) - len(shown); rest > 0 {
		builder.WriteString(fmt.Sprintf("… and %d more. Narrow the list with /search.", rest))
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.out.Send(msg)
	return err
}

func taskButtons(kind listKind, task model.Task) []tgbotapi.InlineKeyboardButton {
	label := fmt.Sprintf("#%d · %s", task.ID, shortTitle(task.Title, 20))
	data := func(prefix string) string { return fmt.Sprintf("%s%d", prefix, task.ID) }

	switch kind {
	case listTrash:
		return tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("♻️ "+label, data(cbRestorePrefix)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Purge", data(cbPurgePrefix)),
		)
	case listCompleted:
		return tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("↩️ "+label, data(cbReopenPrefix)),
			tgbotapi.NewInlineKeyboardButtonData(iconTrash, data(cbTrashPrefix)),
		)
	default:
		if task.Done {
			return tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("↩️ "+label, data(cbReopenPrefix)),
				tgbotapi.NewInlineKeyboardButtonData(iconTrash, data(cbTrashPrefix)),
			)
		}
		return tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(iconDone+" "+label, data(cbCompletePrefix)),
			tgbotapi.NewInlineKeyboardButtonData(iconTrash, data(cbTrashPrefix)),
		)
	}
}
