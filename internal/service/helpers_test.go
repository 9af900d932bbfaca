package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"todoapp/internal/model"
	"todoapp/internal/repository"
)

type fixture struct {
	ctx       context.Context
	store     *repository.Store
	users     *repository.UserRepository
	tasks     *repository.TaskRepository
	reminders *repository.ReminderRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store, err := repository.Open(ctx, filepath.Join(t.TempDir(), "todo.db"), repository.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return &fixture{
		ctx:       ctx,
		store:     store,
		users:     repository.NewUserRepository(store.DB()),
		tasks:     repository.NewTaskRepository(store.DB()),
		reminders: repository.NewReminderRepository(store.DB()),
	}
}

func (f *fixture) user(t *testing.T, name string) model.User {
	t.Helper()
	user := model.User{Username: name, Email: name + "@example.com"}
	require.NoError(t, f.users.Create(f.ctx, &user))
	return user
}

func validInput(title string) TaskInput {
	return TaskInput{Title: title, Description: title + " details", Priority: model.PriorityMedium}
}
