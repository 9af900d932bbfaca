package bot

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todoapp/internal/model"
	"todoapp/internal/service"
)

func TestParseTaskArgs(t *testing.T) {
	loc := time.UTC

	input, err := parseTaskArgs(" Buy milk | 2 litres | high | 2026-03-02 18:30 ", loc)
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", input.Title)
	assert.Equal(t, "2 litres", input.Description)
	assert.Equal(t, model.PriorityHigh, input.Priority)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, loc).UnixMilli(), input.Date)
	assert.Equal(t, time.Date(2026, 3, 2, 18, 30, 0, 0, loc).UnixMilli(), input.Time)

	input, err = parseTaskArgs("Call mom | sunday", loc)
	require.NoError(t, err)
	assert.Equal(t, model.PriorityLow, input.Priority)
	assert.Zero(t, input.Date)
	assert.Zero(t, input.Time)

	_, err = parseTaskArgs("only a title", loc)
	assert.ErrorIs(t, err, errTaskFormat)

	_, err = parseTaskArgs("t | d | urgent", loc)
	assert.ErrorIs(t, err, service.ErrInvalidPriority)

	_, err = parseTaskArgs("t |   | low", loc)
	assert.ErrorIs(t, err, service.ErrEmptyDescription)

	_, err = parseTaskArgs("t | d | low | 02.03.2026", loc)
	assert.ErrorIs(t, err, errDueFormat)
}

func TestParseWhen(t *testing.T) {
	at, err := parseWhen("2026-03-02  09:15", time.UTC)
	require.NoError(t, err)
	assert.True(t, time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC).Equal(at))

	_, err = parseWhen("2026-03-02", time.UTC)
	assert.ErrorIs(t, err, errWhenFormat)
}

func TestFormatTask(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, loc)
	task := model.Task{
		ID:          3,
		Title:       "buy <milk>",
		Description: "2 litres",
		Priority:    model.PriorityHigh,
		Date:        time.Date(2026, 3, 2, 0, 0, 0, 0, loc).UnixMilli(),
		Time:        time.Date(2026, 3, 2, 18, 30, 0, 0, loc).UnixMilli(),
	}

	text := formatTask(task, loc, now)
	assert.Contains(t, text, iconDue)
	assert.Contains(t, text, "Buy &lt;milk&gt;")
	assert.Contains(t, text, "2026-03-02 18:30")
	assert.Contains(t, text, "High")

	text = formatTask(task, loc, now.Add(72*time.Hour))
	assert.Contains(t, text, "overdue")

	task.Done = true
	text = formatTask(task, loc, now.Add(72*time.Hour))
	assert.Contains(t, text, iconDone)
	assert.NotContains(t, text, "overdue")
}

func TestUserMessage(t *testing.T) {
	text, known := userMessage(service.ErrInvalidCredentials)
	assert.True(t, known)
	assert.Equal(t, "Wrong username or password.", text)

	_, known = userMessage(errors.New("disk I/O error"))
	assert.False(t, known)
}

func TestShortTitle(t *testing.T) {
	assert.Equal(t, "Buy milk", shortTitle("buy milk", 20))
	assert.Equal(t, "Call mo…", shortTitle("call mom tonight", 8))
	assert.Equal(t, "High", stripIcon(priorityLabel(model.PriorityHigh)))
}
