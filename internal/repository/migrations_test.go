package repository

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"todoapp/internal/model"
	"todoapp/internal/password"
)

func TestOpenFreshStoreReachesCurrentVersion(t *testing.T) {
	store := openCurrent(t)
	db := store.DB()

	version, err := store.Migrator().Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, version)

	taskCols := columnsOf(t, db, model.TaskTable)
	for _, col := range taskV11.Columns {
		assert.True(t, taskCols[col.Name], "missing task column %s", col.Name)
	}
	assert.False(t, taskCols["isFinished"])
	assert.False(t, taskCols["completed"])
	assert.False(t, taskCols["categoryId"])

	userCols := columnsOf(t, db, model.UserTable)
	assert.True(t, userCols["passwordHash"])
	assert.True(t, userCols["email"])
	assert.False(t, userCols["password"])

	assert.True(t, db.Migrator().HasIndex(model.ReminderTable, "index_Reminder_taskId"))
}

func TestReopenIsNoop(t *testing.T) {
	store, path := openRaw(t)
	require.NoError(t, store.Migrator().Up(context.Background()))
	require.NoError(t, store.Close())

	reopened, err := Open(context.Background(), path, Options{})
	require.NoError(t, err)
	defer reopened.Close()

	version, err := reopened.Migrator().Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, version)
}

func TestMigrateFromBaseVersionKeepsData(t *testing.T) {
	ctx := context.Background()
	store, _ := openRaw(t)
	db := store.DB()

	seedSchema(t, db, 4, userV4, taskV4)
	require.NoError(t, db.Exec(`INSERT INTO "User" (id, username, password) VALUES (1, 'ann@example.com', 'Secret123')`).Error)
	require.NoError(t, db.Exec(`INSERT INTO "TodoModel" (id, title, description, priority, date, time, isFinished, isDeleted, userId, categoryId)
		VALUES (7, 'Buy milk', 'two litres', 'High', 1000, 2000, 1, 0, 1, 3)`).Error)

	require.NoError(t, store.Migrator().MigrateTo(ctx, 10))

	version, err := store.Migrator().Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, version)

	taskCols := columnsOf(t, db, model.TaskTable)
	assert.False(t, taskCols["categoryId"])
	assert.True(t, taskCols["completed"])
	assert.True(t, taskCols["isDeleted"])
	assert.True(t, columnsOf(t, db, model.UserTable)["email"])
	assert.True(t, db.Migrator().HasTable(model.ReminderTable))

	var row struct {
		Title      string
		Priority   string
		Date       int64
		Time       int64
		IsFinished int `gorm:"column:isFinished"`
		Completed  int
	}
	require.NoError(t, db.Raw(`SELECT title, priority, date, time, isFinished, completed FROM "TodoModel" WHERE id = 7`).Scan(&row).Error)
	assert.Equal(t, "Buy milk", row.Title)
	assert.Equal(t, "High", row.Priority)
	assert.EqualValues(t, 1000, row.Date)
	assert.EqualValues(t, 2000, row.Time)
	assert.Equal(t, 1, row.IsFinished)
	assert.Equal(t, 0, row.Completed)

	var email string
	require.NoError(t, db.Raw(`SELECT email FROM "User" WHERE id = 1`).Scan(&email).Error)
	assert.Equal(t, "", email)

	require.NoError(t, store.Migrator().Up(ctx))

	var task model.Task
	require.NoError(t, db.First(&task, 7).Error)
	assert.True(t, task.Done)
	assert.Equal(t, model.PriorityHigh, task.Priority)

	var user model.User
	require.NoError(t, db.First(&user, 1).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("Secret123")))
}

func TestIsDeletedMigrationIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, _ := openRaw(t)
	db := store.DB()

	seedSchema(t, db, 8, userV4, taskV10, reminderV6)
	require.NoError(t, db.Exec(`INSERT INTO "User" (id, username, password) VALUES (1, 'bob', 'pw')`).Error)
	require.NoError(t, db.Exec(`INSERT INTO "TodoModel" (id, title, description, userId, isDeleted) VALUES (1, 't', 'd', 1, 1)`).Error)

	require.NoError(t, store.Migrator().MigrateTo(ctx, 10))

	// Replay 8→9 and 9→10 on a store that already has both columns.
	setUserVersion(t, db, 8)
	require.NoError(t, store.Migrator().MigrateTo(ctx, 10))

	version, err := store.Migrator().Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, version)
	assert.Equal(t, 1, countColumn(t, db, model.TaskTable, "isDeleted"))
	assert.Equal(t, 1, countColumn(t, db, model.UserTable, "email"))

	var isDeleted int
	require.NoError(t, db.Raw(`SELECT isDeleted FROM "TodoModel" WHERE id = 1`).Scan(&isDeleted).Error)
	assert.Equal(t, 1, isDeleted)
}

func TestEveryStepIsRerunnable(t *testing.T) {
	ctx := context.Background()
	store, _ := openRaw(t)
	db := store.DB()

	require.NoError(t, store.Migrator().Up(ctx))
	for _, mig := range migrations {
		err := db.Transaction(func(tx *gorm.DB) error {
			for _, s := range mig.steps {
				if err := s.apply(tx); err != nil {
					return err
				}
			}
			return nil
		})
		require.NoError(t, err, "replaying %d→%d", mig.from, mig.to)
	}
}

func TestCompletionFlagsCollapseIntoDone(t *testing.T) {
	ctx := context.Background()
	store, _ := openRaw(t)
	db := store.DB()

	seedSchema(t, db, 10, userV4, taskV10, reminderV6)
	require.NoError(t, db.Exec(`ALTER TABLE "User" ADD COLUMN email TEXT NOT NULL DEFAULT ''`).Error)
	require.NoError(t, db.Exec(`INSERT INTO "User" (id, username, password) VALUES (1, 'bob', 'pw')`).Error)
	require.NoError(t, db.Exec(`INSERT INTO "TodoModel" (id, title, description, userId, isFinished, completed) VALUES
		(1, 'a', 'a', 1, 1, 0),
		(2, 'b', 'b', 1, 0, 1),
		(3, 'c', 'c', 1, 1, 1),
		(4, 'd', 'd', 1, 0, 0)`).Error)

	require.NoError(t, store.Migrator().Up(ctx))

	var tasks []model.Task
	require.NoError(t, db.Order("id").Find(&tasks).Error)
	require.Len(t, tasks, 4)
	assert.True(t, tasks[0].Done)
	assert.True(t, tasks[1].Done)
	assert.True(t, tasks[2].Done)
	assert.False(t, tasks[3].Done)
}

func TestLongLegacyPasswordIsHashed(t *testing.T) {
	ctx := context.Background()
	store, _ := openRaw(t)
	db := store.DB()

	long := strings.Repeat("A1", 40)
	seedSchema(t, db, 10, userV4, taskV10, reminderV6)
	require.NoError(t, db.Exec(`ALTER TABLE "User" ADD COLUMN email TEXT NOT NULL DEFAULT ''`).Error)
	require.NoError(t, db.Exec(`INSERT INTO "User" (id, username, password) VALUES (1, 'ann', 'Secret123'), (2, 'bob', ?)`, long).Error)

	require.NoError(t, store.Migrator().Up(ctx))

	version, err := store.Migrator().Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, version)

	var users []model.User
	require.NoError(t, db.Order("id").Find(&users).Error)
	require.Len(t, users, 2)
	assert.NoError(t, password.Compare([]byte(users[0].PasswordHash), "Secret123"))
	assert.NoError(t, password.Compare([]byte(users[1].PasswordHash), long))
	assert.Error(t, password.Compare([]byte(users[1].PasswordHash), long[:password.MaxBytes]))
}

func TestTaskRebuildKeepsReminders(t *testing.T) {
	ctx := context.Background()
	store, _ := openRaw(t)
	db := store.DB()

	seedSchema(t, db, 10, userV4, taskV10, reminderV6)
	require.NoError(t, db.Exec(`ALTER TABLE "User" ADD COLUMN email TEXT NOT NULL DEFAULT ''`).Error)
	require.NoError(t, db.Exec(`INSERT INTO "User" (id, username, password) VALUES (1, 'bob', 'pw')`).Error)
	require.NoError(t, db.Exec(`INSERT INTO "TodoModel" (id, title, description, userId) VALUES (5, 't', 'd', 1)`).Error)
	require.NoError(t, db.Exec(`INSERT INTO "Reminder" (taskId, reminderTime) VALUES (5, 123)`).Error)

	require.NoError(t, store.Migrator().Up(ctx))

	var reminders []model.Reminder
	require.NoError(t, db.Find(&reminders).Error)
	require.Len(t, reminders, 1)
	assert.EqualValues(t, 5, reminders[0].TaskID)

	// Cascade still points at the rebuilt table.
	require.NoError(t, db.Exec(`DELETE FROM "TodoModel" WHERE id = 5`).Error)
	require.NoError(t, db.Find(&reminders).Error)
	assert.Empty(t, reminders)
}

func TestFailedStepRollsBack(t *testing.T) {
	ctx := context.Background()
	store, _ := openRaw(t)
	db := store.DB()

	seedSchema(t, db, 10, userV4, taskV10, reminderV6)
	require.NoError(t, db.Exec(`ALTER TABLE "User" ADD COLUMN email TEXT NOT NULL DEFAULT ''`).Error)
	require.NoError(t, db.Exec(`PRAGMA foreign_keys = OFF`).Error)
	require.NoError(t, db.Exec(`INSERT INTO "Reminder" (taskId, reminderTime) VALUES (999, 1)`).Error)
	require.NoError(t, db.Exec(`PRAGMA foreign_keys = ON`).Error)

	err := store.Migrator().Up(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrate 10 to 11")

	version, err := store.Migrator().Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, version)

	cols := columnsOf(t, db, model.TaskTable)
	assert.True(t, cols["isFinished"])
	assert.True(t, cols["completed"])
	assert.False(t, cols["done"])
	assert.False(t, db.Migrator().HasTable(model.TaskTable+"_new"))
}

func TestUnknownVersionIsRefused(t *testing.T) {
	ctx := context.Background()
	store, path := openRaw(t)
	db := store.DB()

	seedSchema(t, db, 99, userV12)
	require.NoError(t, db.Exec(`INSERT INTO "User" (username) VALUES ('keep')`).Error)
	require.NoError(t, store.Close())

	_, err := Open(ctx, path, Options{})
	require.ErrorIs(t, err, ErrUnsupportedSchemaVersion)

	raw, err := Open(ctx, path, Options{SkipMigrations: true})
	require.NoError(t, err)
	var n int64
	require.NoError(t, raw.DB().Table(model.UserTable).Count(&n).Error)
	assert.EqualValues(t, 1, n)
	require.NoError(t, raw.Close())
}

func TestUnversionedTablesAreRefused(t *testing.T) {
	store, _ := openRaw(t)
	require.NoError(t, userV4.create(store.DB()))

	err := store.Migrator().Up(context.Background())
	require.ErrorIs(t, err, ErrUnsupportedSchemaVersion)
}

func TestDestructiveResetIsOptIn(t *testing.T) {
	ctx := context.Background()
	store, path := openRaw(t)
	db := store.DB()

	seedSchema(t, db, 2, userV4)
	require.NoError(t, db.Exec(`INSERT INTO "User" (username, password) VALUES ('gone', 'x')`).Error)
	require.NoError(t, store.Close())

	reset, err := Open(ctx, path, Options{AllowDestructiveReset: true})
	require.NoError(t, err)
	defer reset.Close()

	version, err := reset.Migrator().Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, version)

	var n int64
	require.NoError(t, reset.DB().Model(&model.User{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestMigrateToRejectsDowngradeAndUnknownTarget(t *testing.T) {
	ctx := context.Background()
	store := openCurrent(t)

	assert.ErrorIs(t, store.Migrator().MigrateTo(ctx, 10), ErrUnsupportedSchemaVersion)
	assert.ErrorIs(t, store.Migrator().MigrateTo(ctx, CurrentVersion+1), ErrUnsupportedSchemaVersion)
	assert.ErrorIs(t, store.Migrator().MigrateTo(ctx, 3), ErrUnsupportedSchemaVersion)
}

func TestProjectColumnsPrefersExplicitSources(t *testing.T) {
	existing := map[string]bool{"id": true, "title": true, "isFinished": true, "done": false}
	sources := map[string][]columnSource{
		"done": {
			{Expr: "both", Requires: []string{"isFinished", "completed"}},
			{Expr: "finished", Requires: []string{"isFinished"}},
		},
	}
	target := tableDef{Columns: []columnDef{{"id", ""}, {"title", ""}, {"done", ""}, {"priority", ""}}}

	cols, exprs := projectColumns(target, existing, sources)
	assert.Equal(t, []string{`"id"`, `"title"`, `"done"`}, cols)
	assert.Equal(t, []string{`"id"`, `"title"`, "finished"}, exprs)
}
