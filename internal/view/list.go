// Package view keeps in-memory task lists in sync with store queries.
package view

import (
	"sort"
	"strings"
	"sync"

	"todoapp/internal/model"
)

// SortMode selects the local ordering of the visible projection.
type SortMode int

const (
	// SortStored keeps the order the query returned.
	SortStored SortMode = iota
	// SortPriority orders by priority rank, then date.
	SortPriority
	// SortDueDate orders by date, then time.
	SortDueDate
)

// ParseSortMode maps the names used by the presentation layer.
func ParseSortMode(raw string) (SortMode, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "stored", "default", "":
		return SortStored, true
	case "priority":
		return SortPriority, true
	case "due", "date":
		return SortDueDate, true
	default:
		return SortStored, false
	}
}

func (m SortMode) String() string {
	switch m {
	case SortPriority:
		return "priority"
	case SortDueDate:
		return "due"
	default:
		return "stored"
	}
}

// List holds the last full query result and the visible projection derived
// from it by the active filter and sort mode. It is safe for concurrent use.
type List struct {
	mu      sync.RWMutex
	full    []model.Task
	visible []model.Task
	query   string
	sort    SortMode

	subMu  sync.Mutex
	subs   map[int]func([]model.Task)
	nextID int
}

func NewList() *List {
	return &List{subs: make(map[int]func([]model.Task))}
}

// Replace supersedes the list with a fresh query result and re-applies the
// active filter and sort.
func (l *List) Replace(tasks []model.Task) {
	l.mu.Lock()
	l.full = append([]model.Task(nil), tasks...)
	snap := l.rebuildLocked()
	l.mu.Unlock()
	l.publish(snap)
}

// Filter shows only tasks whose title or description contains query,
// ignoring case. An empty query shows everything.
func (l *List) Filter(query string) {
	l.mu.Lock()
	l.query = query
	snap := l.rebuildLocked()
	l.mu.Unlock()
	l.publish(snap)
}

func (l *List) ClearFilter() {
	l.Filter("")
}

func (l *List) SetSort(mode SortMode) {
	l.mu.Lock()
	l.sort = mode
	snap := l.rebuildLocked()
	l.mu.Unlock()
	l.publish(snap)
}

// Remove drops a task ahead of the next re-query. It reports whether the
// task was present.
func (l *List) Remove(taskID uint) bool {
	l.mu.Lock()
	idx := indexOf(l.full, taskID)
	if idx < 0 {
		l.mu.Unlock()
		return false
	}
	l.full = append(l.full[:idx:idx], l.full[idx+1:]...)
	snap := l.rebuildLocked()
	l.mu.Unlock()
	l.publish(snap)
	return true
}

// Upsert replaces the task with the same id in place, or appends it.
func (l *List) Upsert(task model.Task) {
	l.mu.Lock()
	if idx := indexOf(l.full, task.ID); idx >= 0 {
		l.full[idx] = task
	} else {
		l.full = append(l.full, task)
	}
	snap := l.rebuildLocked()
	l.mu.Unlock()
	l.publish(snap)
}

// Items returns a copy of the visible projection.
func (l *List) Items() []model.Task {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]model.Task(nil), l.visible...)
}

// Len is the size of the full result, ignoring the filter.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.full)
}

func (l *List) Query() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.query
}

func (l *List) SortMode() SortMode {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sort
}

// Subscribe registers fn to receive a snapshot of the visible projection
// after every change. The returned func unsubscribes.
func (l *List) Subscribe(fn func([]model.Task)) func() {
	l.subMu.Lock()
	id := l.nextID
	l.nextID++
	l.subs[id] = fn
	l.subMu.Unlock()

	return func() {
		l.subMu.Lock()
		delete(l.subs, id)
		l.subMu.Unlock()
	}
}

// publish runs outside l.mu so subscribers may read the list.
func (l *List) publish(snap []model.Task) {
	l.subMu.Lock()
	fns := make([]func([]model.Task), 0, len(l.subs))
	for _, fn := range l.subs {
		fns = append(fns, fn)
	}
	l.subMu.Unlock()

	for _, fn := range fns {
		fn(append([]model.Task(nil), snap...))
	}
}

func (l *List) rebuildLocked() []model.Task {
	visible := make([]model.Task, 0, len(l.full))
	needle := strings.ToLower(l.query)
	for _, task := range l.full {
		if matches(task, needle) {
			visible = append(visible, task)
		}
	}
	sortTasks(visible, l.sort)
	l.visible = visible
	return append([]model.Task(nil), visible...)
}

func matches(task model.Task, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(task.Title), needle) ||
		strings.Contains(strings.ToLower(task.Description), needle)
}

func sortTasks(tasks []model.Task, mode SortMode) {
	switch mode {
	case SortPriority:
		sort.SliceStable(tasks, func(i, j int) bool {
			ri, rj := tasks[i].Priority.Rank(), tasks[j].Priority.Rank()
			if ri != rj {
				return ri < rj
			}
			return tasks[i].Date < tasks[j].Date
		})
	case SortDueDate:
		sort.SliceStable(tasks, func(i, j int) bool {
			if tasks[i].Date != tasks[j].Date {
				return tasks[i].Date < tasks[j].Date
			}
			return tasks[i].Time < tasks[j].Time
		})
	}
}

func indexOf(tasks []model.Task, id uint) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}
