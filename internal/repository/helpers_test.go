package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// openRaw opens an unmigrated store file in a temp dir.
func openRaw(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "todo.db")
	store, err := Open(context.Background(), path, Options{SkipMigrations: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func openCurrent(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "todo.db")
	store, err := Open(context.Background(), path, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// seedSchema lays down the given tables and stamps the version, the way an
// older build of the app would have left the file.
func seedSchema(t *testing.T, db *gorm.DB, version int, defs ...tableDef) {
	t.Helper()
	for _, def := range defs {
		require.NoError(t, def.create(db))
	}
	setUserVersion(t, db, version)
}

func setUserVersion(t *testing.T, db *gorm.DB, version int) {
	t.Helper()
	require.NoError(t, db.Exec(fmt.Sprintf("PRAGMA user_version = %d", version)).Error)
}

func columnsOf(t *testing.T, db *gorm.DB, table string) map[string]bool {
	t.Helper()
	cols, err := tableColumns(db, table)
	require.NoError(t, err)
	return cols
}

func countColumn(t *testing.T, db *gorm.DB, table, column string) int {
	t.Helper()
	var infos []columnInfo
	require.NoError(t, db.Raw(fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table))).Scan(&infos).Error)
	n := 0
	for _, info := range infos {
		if info.Name == column {
			n++
		}
	}
	return n
}
