package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPriorityRank(t *testing.T) {
	assert.Equal(t, 1, PriorityHigh.Rank())
	assert.Equal(t, 2, PriorityMedium.Rank())
	assert.Equal(t, 3, PriorityLow.Rank())
	assert.Equal(t, 4, Priority("Someday").Rank())
	assert.False(t, Priority("").Valid())
}

func TestParsePriority(t *testing.T) {
	p, ok := ParsePriority(" hIgH ")
	assert.True(t, ok)
	assert.Equal(t, PriorityHigh, p)

	_, ok = ParsePriority("urgent")
	assert.False(t, ok)
}

func TestDueAt(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, loc)
	clock := time.Date(2026, 3, 1, 18, 30, 0, 0, loc)

	assert.True(t, Task{}.DueAt(loc).IsZero())
	assert.True(t, day.Equal(Task{Date: day.UnixMilli()}.DueAt(loc)))
	assert.True(t, time.Date(2026, 3, 2, 18, 30, 0, 0, loc).Equal(Task{Date: day.UnixMilli(), Time: clock.UnixMilli()}.DueAt(loc)))
}
