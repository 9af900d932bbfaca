package view

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todoapp/internal/model"
)

func task(id uint, title, description string, priority model.Priority, date, clock int64) model.Task {
	return model.Task{ID: id, Title: title, Description: description, Priority: priority, Date: date, Time: clock}
}

func titles(tasks []model.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Title)
	}
	return out
}

func TestFilterAndClear(t *testing.T) {
	l := NewList()
	l.Replace([]model.Task{
		task(1, "Buy milk", "2 litres", model.PriorityLow, 0, 0),
		task(2, "Call mom", "sunday", model.PriorityHigh, 0, 0),
	})

	l.Filter("ca")
	assert.Equal(t, []string{"Call mom"}, titles(l.Items()))
	assert.Equal(t, 2, l.Len())

	l.Filter("LITRES")
	assert.Equal(t, []string{"Buy milk"}, titles(l.Items()))

	l.ClearFilter()
	assert.Equal(t, []string{"Buy milk", "Call mom"}, titles(l.Items()))
}

func TestReplaceReappliesFilter(t *testing.T) {
	l := NewList()
	l.Replace([]model.Task{task(1, "Buy milk", "x", model.PriorityLow, 0, 0)})
	l.Filter("call")
	assert.Empty(t, l.Items())

	l.Replace([]model.Task{
		task(1, "Buy milk", "x", model.PriorityLow, 0, 0),
		task(3, "Call dad", "x", model.PriorityLow, 0, 0),
	})
	assert.Equal(t, []string{"Call dad"}, titles(l.Items()))
	assert.Equal(t, "call", l.Query())
}

func TestSortModes(t *testing.T) {
	l := NewList()
	l.Replace([]model.Task{
		task(1, "A", "x", model.PriorityLow, 100, 0),
		task(2, "B", "x", model.PriorityHigh, 300, 0),
		task(3, "C", "x", model.PriorityHigh, 200, 0),
		task(4, "D", "x", model.PriorityMedium, 200, 50),
		task(5, "E", "x", model.PriorityMedium, 0, 0),
	})

	l.SetSort(SortPriority)
	assert.Equal(t, []string{"C", "B", "E", "D", "A"}, titles(l.Items()))

	l.SetSort(SortDueDate)
	assert.Equal(t, []string{"E", "A", "C", "D", "B"}, titles(l.Items()))

	l.SetSort(SortStored)
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, titles(l.Items()))
}

func TestRemoveAndUpsert(t *testing.T) {
	l := NewList()
	l.Replace([]model.Task{
		task(1, "Buy milk", "x", model.PriorityLow, 0, 0),
		task(2, "Call mom", "x", model.PriorityLow, 0, 0),
	})

	assert.True(t, l.Remove(1))
	assert.False(t, l.Remove(1))
	assert.Equal(t, []string{"Call mom"}, titles(l.Items()))

	l.Upsert(task(2, "Call mom tonight", "x", model.PriorityLow, 0, 0))
	l.Upsert(task(7, "Walk dog", "x", model.PriorityLow, 0, 0))
	assert.Equal(t, []string{"Call mom tonight", "Walk dog"}, titles(l.Items()))
}

func TestItemsReturnsCopy(t *testing.T) {
	l := NewList()
	l.Replace([]model.Task{task(1, "Buy milk", "x", model.PriorityLow, 0, 0)})
	items := l.Items()
	items[0].Title = "changed"
	assert.Equal(t, "Buy milk", l.Items()[0].Title)
}

func TestSubscribe(t *testing.T) {
	l := NewList()
	var got [][]string
	unsubscribe := l.Subscribe(func(tasks []model.Task) {
		// Reading the list from a callback must not deadlock.
		_ = l.Len()
		got = append(got, titles(tasks))
	})

	l.Replace([]model.Task{task(1, "Buy milk", "x", model.PriorityLow, 0, 0)})
	l.Filter("nothing")
	unsubscribe()
	l.ClearFilter()

	require.Len(t, got, 2)
	assert.Equal(t, []string{"Buy milk"}, got[0])
	assert.Empty(t, got[1])
}

func TestConcurrentAccess(t *testing.T) {
	l := NewList()
	l.Subscribe(func([]model.Task) {})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				l.Upsert(task(uint(i*100+j), "t", "d", model.PriorityLow, 0, 0))
				_ = l.Items()
				l.Filter("t")
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 400, l.Len())
}

func TestParseSortMode(t *testing.T) {
	mode, ok := ParseSortMode("Priority")
	assert.True(t, ok)
	assert.Equal(t, SortPriority, mode)

	mode, ok = ParseSortMode("due")
	assert.True(t, ok)
	assert.Equal(t, "due", mode.String())

	_, ok = ParseSortMode("random")
	assert.False(t, ok)
}
