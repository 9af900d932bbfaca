package view

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"todoapp/internal/logger"
	"todoapp/internal/model"
)

// Loader runs one store query, for example TaskService.ListActive bound to a
// user.
type Loader func(ctx context.Context) ([]model.Task, error)

// Synchronizer feeds a List from a Loader.
type Synchronizer struct {
	name string
	list *List
	load Loader

	mu     sync.Mutex
	closed bool
}

func NewSynchronizer(name string, list *List, load Loader) *Synchronizer {
	return &Synchronizer{name: name, list: list, load: load}
}

func (s *Synchronizer) List() *List {
	return s.list
}

// Refresh re-runs the query and replaces the list contents. A refresh that
// finishes after Close is discarded. Subscribers of the list must not call
// Close.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	if s.Closed() {
		return nil
	}
	tasks, err := s.load(ctx)
	if err != nil {
		logger.Error("refresh view", err, zap.String("view", s.name))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		logger.Debug("view closed, dropping refresh", zap.String("view", s.name))
		return nil
	}
	s.list.Replace(tasks)
	return nil
}

// Close stops publishing. It is safe to call more than once.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *Synchronizer) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
