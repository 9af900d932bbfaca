package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalSpec(t *testing.T) {
	spec, err := intervalSpec(90 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "@every 90s", spec)

	spec, err = intervalSpec(1500 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "@every 1s", spec)

	_, err = intervalSpec(500 * time.Millisecond)
	assert.Error(t, err)
}

func TestScheduleInterval(t *testing.T) {
	s := NewSchedulerService(time.UTC)
	_, err := s.ScheduleInterval(time.Minute, func() {})
	require.NoError(t, err)
	_, err = s.ScheduleInterval(0, func() {})
	assert.Error(t, err)
	assert.Equal(t, 1, s.Entries())

	s.Start()
	s.Stop()
}
