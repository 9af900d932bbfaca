package repository

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"todoapp/internal/model"
)

type columnDef struct {
	Name string
	Decl string
}

type indexDef struct {
	Name   string
	Column string
}

// tableDef is the declarative shape of one table at one schema version.
type tableDef struct {
	Name        string
	Columns     []columnDef
	Constraints []string
	Indexes     []indexDef
}

func (t tableDef) createSQL(name string) string {
	parts := make([]string, 0, len(t.Columns)+len(t.Constraints))
	for _, c := range t.Columns {
		parts = append(parts, quoteIdent(c.Name)+" "+c.Decl)
	}
	parts = append(parts, t.Constraints...)
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", quoteIdent(name), strings.Join(parts, ",\n\t"))
}

func (t tableDef) column(name string) (columnDef, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return columnDef{}, false
}

func (t tableDef) create(tx *gorm.DB) error {
	if err := tx.Exec(t.createSQL(t.Name)).Error; err != nil {
		return fmt.Errorf("create table %s: %w", t.Name, err)
	}
	return t.createIndexes(tx)
}

func (t tableDef) createIndexes(tx *gorm.DB) error {
	for _, idx := range t.Indexes {
		stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)", quoteIdent(idx.Name), quoteIdent(t.Name), quoteIdent(idx.Column))
		if err := tx.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index %s: %w", idx.Name, err)
		}
	}
	return nil
}

var (
	// taskV4 still carries the category reference retired by 4→5.
	taskV4 = tableDef{
		Name: model.TaskTable,
		Columns: []columnDef{
			{"id", "INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL"},
			{"title", "TEXT NOT NULL"},
			{"description", "TEXT NOT NULL"},
			{"priority", "TEXT NOT NULL DEFAULT 'Low'"},
			{"date", "INTEGER NOT NULL DEFAULT 0"},
			{"time", "INTEGER NOT NULL DEFAULT 0"},
			{"isFinished", "INTEGER NOT NULL DEFAULT 0"},
			{"isDeleted", "INTEGER NOT NULL DEFAULT 0"},
			{"userId", "INTEGER NOT NULL"},
			{"categoryId", "INTEGER"},
		},
	}

	// taskV10 has both completion flags.
	taskV10 = tableDef{
		Name: model.TaskTable,
		Columns: []columnDef{
			{"id", "INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL"},
			{"title", "TEXT NOT NULL"},
			{"description", "TEXT NOT NULL"},
			{"priority", "TEXT NOT NULL DEFAULT 'Low'"},
			{"date", "INTEGER NOT NULL DEFAULT 0"},
			{"time", "INTEGER NOT NULL DEFAULT 0"},
			{"isFinished", "INTEGER NOT NULL DEFAULT 0"},
			{"isDeleted", "INTEGER NOT NULL DEFAULT 0"},
			{"userId", "INTEGER NOT NULL"},
			{"completed", "INTEGER NOT NULL DEFAULT 0"},
		},
	}

	taskV11 = tableDef{
		Name: model.TaskTable,
		Columns: []columnDef{
			{"id", "INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL"},
			{"title", "TEXT NOT NULL"},
			{"description", "TEXT NOT NULL"},
			{"priority", "TEXT NOT NULL DEFAULT 'Low'"},
			{"date", "INTEGER NOT NULL DEFAULT 0"},
			{"time", "INTEGER NOT NULL DEFAULT 0"},
			{"done", "INTEGER NOT NULL DEFAULT 0"},
			{"isDeleted", "INTEGER NOT NULL DEFAULT 0"},
			{"userId", "INTEGER NOT NULL"},
		},
	}

	userV4 = tableDef{
		Name: model.UserTable,
		Columns: []columnDef{
			{"id", "INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL"},
			{"username", "TEXT"},
			{"password", "TEXT"},
		},
	}

	userV12 = tableDef{
		Name: model.UserTable,
		Columns: []columnDef{
			{"id", "INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL"},
			{"username", "TEXT"},
			{"email", "TEXT NOT NULL DEFAULT ''"},
			{"passwordHash", "TEXT NOT NULL DEFAULT ''"},
		},
	}

	reminderV6 = tableDef{
		Name: model.ReminderTable,
		Columns: []columnDef{
			{"id", "INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL"},
			{"taskId", "INTEGER NOT NULL"},
			{"reminderTime", "INTEGER NOT NULL"},
		},
		Constraints: []string{
			fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s(%s) ON DELETE CASCADE", quoteIdent("taskId"), quoteIdent(model.TaskTable), quoteIdent("id")),
		},
		Indexes: []indexDef{{Name: "index_Reminder_taskId", Column: "taskId"}},
	}
)

// baseSchema is the oldest layout the migration chain starts from. Fresh
// databases are created at this version and walked up the chain.
var baseSchema = []tableDef{userV4, taskV4}

type columnInfo struct {
	CID     int     `gorm:"column:cid"`
	Name    string  `gorm:"column:name"`
	Type    string  `gorm:"column:type"`
	NotNull int     `gorm:"column:notnull"`
	Default *string `gorm:"column:dflt_value"`
	PK      int     `gorm:"column:pk"`
}

// tableColumns lists the column names of a table. A missing table yields an
// empty set.
func tableColumns(tx *gorm.DB, table string) (map[string]bool, error) {
	var infos []columnInfo
	if err := tx.Raw(fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table))).Scan(&infos).Error; err != nil {
		return nil, fmt.Errorf("inspect table %s: %w", table, err)
	}
	cols := make(map[string]bool, len(infos))
	for _, info := range infos {
		cols[info.Name] = true
	}
	return cols, nil
}

func hasColumn(tx *gorm.DB, table, column string) (bool, error) {
	cols, err := tableColumns(tx, table)
	if err != nil {
		return false, err
	}
	return cols[column], nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
