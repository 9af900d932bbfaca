package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todoapp/internal/model"
)

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(openCurrent(t).DB())

	ann := model.User{Username: "ann", Email: "ann@example.com", PasswordHash: "h1"}
	require.NoError(t, repo.Create(ctx, &ann))
	require.NotZero(t, ann.ID)

	// No uniqueness at this layer.
	twin := model.User{Username: "ann", Email: "other@example.com", PasswordHash: "h2"}
	require.NoError(t, repo.Create(ctx, &twin))

	got, err := repo.FindByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, ann, *got)

	got, err = repo.FindByID(ctx, twin.ID)
	require.NoError(t, err)
	assert.Equal(t, "other@example.com", got.Email)

	same, err := repo.ListByUsername(ctx, "ann")
	require.NoError(t, err)
	require.Len(t, same, 2)
	assert.Equal(t, ann.ID, same[0].ID)

	_, err = repo.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	none, err := repo.ListByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUserEmailDefaultsToEmpty(t *testing.T) {
	ctx := context.Background()
	store := openCurrent(t)
	require.NoError(t, store.DB().Exec(`INSERT INTO "User" (username) VALUES ('legacy')`).Error)

	users, err := NewUserRepository(store.DB()).ListByUsername(ctx, "legacy")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "", users[0].Email)
	assert.Equal(t, "", users[0].PasswordHash)
}
