package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todoapp/internal/repository"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestMigrateAndStatus(t *testing.T) {
	t.Setenv("TODO_DATABASE_PATH", filepath.Join(t.TempDir(), "todo.db"))
	t.Cleanup(func() {
		migrateTo = repository.CurrentVersion
		migrateDestructive = false
	})

	out := run(t, "migrate", "--to", "10")
	assert.Contains(t, out, "migrated from version 0 to 10")

	out = run(t, "status")
	assert.Contains(t, out, "Schema:    10 (current 12)")
	assert.Contains(t, out, "todoapp migrate")

	out = run(t, "migrate", "--to", "12")
	assert.Contains(t, out, "from version 10 to 12")

	out = run(t, "status")
	assert.Contains(t, out, "Users:     0")

	out = run(t, "migrate", "--to", "12")
	assert.Contains(t, out, "already at version 12")
}

func TestStatusDoesNotCreateStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "todo.db")
	t.Setenv("TODO_DATABASE_PATH", path)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"status"})
	err := rootCmd.Execute()
	require.ErrorIs(t, err, repository.ErrNoStore)

	_, statErr := os.Stat(filepath.Dir(path))
	assert.True(t, os.IsNotExist(statErr))
}
