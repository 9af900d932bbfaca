package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"todoapp/internal/logger"
	"todoapp/internal/model"
	"todoapp/internal/password"
)

const (
	// BaseVersion is the oldest schema the migration chain can upgrade.
	BaseVersion = 4
	// CurrentVersion is the schema the repositories are written against.
	CurrentVersion = 12
)

var ErrUnsupportedSchemaVersion = errors.New("unsupported schema version")

// step is one re-runnable structural change. Every step must succeed when
// applied to a store where it already ran, fully or partially.
type step struct {
	name  string
	apply func(tx *gorm.DB) error
}

type migration struct {
	from, to int
	steps    []step
}

var migrations = []migration{
	{4, 5, []step{rebuildTable(taskV10, nil)}},
	{5, 6, []step{createTable(reminderV6)}},
	{6, 7, []step{addColumn(model.TaskTable, "completed", "INTEGER NOT NULL DEFAULT 0")}},
	{7, 8, []step{rebuildTable(taskV10, nil)}},
	{8, 9, []step{addColumn(model.TaskTable, "isDeleted", "INTEGER NOT NULL DEFAULT 0")}},
	{9, 10, []step{addColumn(model.UserTable, "email", "TEXT NOT NULL DEFAULT ''")}},
	{10, 11, []step{rebuildTable(taskV11, map[string][]columnSource{
		"done": {
			{Expr: `"isFinished" <> 0 OR "completed" <> 0`, Requires: []string{"isFinished", "completed"}},
			{Expr: `"isFinished" <> 0`, Requires: []string{"isFinished"}},
			{Expr: `"completed" <> 0`, Requires: []string{"completed"}},
		},
	})}},
	{11, 12, []step{
		addColumn(model.UserTable, "passwordHash", "TEXT NOT NULL DEFAULT ''"),
		hashLegacyPasswords(),
		rebuildTable(userV12, nil),
	}},
}

// columnSource is one way to fill a target column from the source table. It
// only applies when every column in Requires exists in the source.
type columnSource struct {
	Expr     string
	Requires []string
}

// rebuildTable projects the existing table onto target through a shadow
// table: create shadow, copy mapped columns, drop original, rename shadow.
// Target columns without an explicit source copy the same-named source
// column when there is one and otherwise take their declared default.
func rebuildTable(target tableDef, mapping map[string][]columnSource) step {
	return step{
		name: "rebuild " + target.Name,
		apply: func(tx *gorm.DB) error {
			existing, err := tableColumns(tx, target.Name)
			if err != nil {
				return err
			}
			if len(existing) == 0 {
				return target.create(tx)
			}

			shadow := target.Name + "_new"
			if err := tx.Exec("DROP TABLE IF EXISTS " + quoteIdent(shadow)).Error; err != nil {
				return fmt.Errorf("drop stale shadow: %w", err)
			}
			if err := tx.Exec(target.createSQL(shadow)).Error; err != nil {
				return fmt.Errorf("create shadow: %w", err)
			}

			targetCols, selectExprs := projectColumns(target, existing, mapping)
			copySQL := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
				quoteIdent(shadow), strings.Join(targetCols, ", "), strings.Join(selectExprs, ", "), quoteIdent(target.Name))
			if err := tx.Exec(copySQL).Error; err != nil {
				return fmt.Errorf("copy rows: %w", err)
			}
			if err := tx.Exec("DROP TABLE " + quoteIdent(target.Name)).Error; err != nil {
				return fmt.Errorf("drop original: %w", err)
			}
			if err := tx.Exec(fmt.Sprintf("ALTER TABLE %s RENAME TO %s", quoteIdent(shadow), quoteIdent(target.Name))).Error; err != nil {
				return fmt.Errorf("rename shadow: %w", err)
			}
			return target.createIndexes(tx)
		},
	}
}

func projectColumns(target tableDef, existing map[string]bool, mapping map[string][]columnSource) ([]string, []string) {
	var cols, exprs []string
	for _, col := range target.Columns {
		expr, ok := resolveSource(col.Name, existing, mapping[col.Name])
		if !ok {
			continue
		}
		cols = append(cols, quoteIdent(col.Name))
		exprs = append(exprs, expr)
	}
	return cols, exprs
}

func resolveSource(column string, existing map[string]bool, sources []columnSource) (string, bool) {
	for _, src := range sources {
		if hasAll(existing, src.Requires) {
			return src.Expr, true
		}
	}
	if existing[column] {
		return quoteIdent(column), true
	}
	return "", false
}

func hasAll(existing map[string]bool, cols []string) bool {
	for _, c := range cols {
		if !existing[c] {
			return false
		}
	}
	return true
}

func createTable(def tableDef) step {
	return step{
		name:  "create " + def.Name,
		apply: def.create,
	}
}

// addColumn is a direct add-with-default guarded by a column lookup.
func addColumn(table, column, decl string) step {
	return step{
		name: fmt.Sprintf("add %s.%s", table, column),
		apply: func(tx *gorm.DB) error {
			exists, err := hasColumn(tx, table, column)
			if err != nil {
				return err
			}
			if exists {
				logger.Debug("column already present, skipping", zap.String("table", table), zap.String("column", column))
				return nil
			}
			stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", quoteIdent(table), quoteIdent(column), decl)
			return tx.Exec(stmt).Error
		},
	}
}

type legacyCredential struct {
	ID       uint    `gorm:"column:id"`
	Password *string `gorm:"column:password"`
}

// hashLegacyPasswords fills passwordHash for rows that still only have a
// plaintext password.
func hashLegacyPasswords() step {
	return step{
		name: "hash legacy passwords",
		apply: func(tx *gorm.DB) error {
			exists, err := hasColumn(tx, model.UserTable, "password")
			if err != nil || !exists {
				return err
			}
			var rows []legacyCredential
			query := fmt.Sprintf(`SELECT id, password FROM %s WHERE "passwordHash" = ''`, quoteIdent(model.UserTable))
			if err := tx.Raw(query).Scan(&rows).Error; err != nil {
				return fmt.Errorf("read legacy passwords: %w", err)
			}
			hashed := 0
			for _, row := range rows {
				// Rows without a password keep an empty hash, which never verifies.
				if row.Password == nil || *row.Password == "" {
					continue
				}
				hash, err := password.Hash(*row.Password, bcrypt.DefaultCost)
				if err != nil {
					return fmt.Errorf("hash password for user %d: %w", row.ID, err)
				}
				if err := tx.Table(model.UserTable).Where("id = ?", row.ID).Update("passwordHash", string(hash)).Error; err != nil {
					return fmt.Errorf("store hash for user %d: %w", row.ID, err)
				}
				hashed++
			}
			if hashed > 0 {
				logger.Info("hashed legacy passwords", zap.Int("users", hashed))
			}
			return nil
		},
	}
}

// Migrator walks a store along the known migration chain. The schema
// version lives in PRAGMA user_version.
type Migrator struct {
	db                    *gorm.DB
	allowDestructiveReset bool
}

func NewMigrator(db *gorm.DB, allowDestructiveReset bool) *Migrator {
	return &Migrator{db: db, allowDestructiveReset: allowDestructiveReset}
}

func (m *Migrator) Version(ctx context.Context) (int, error) {
	var version int
	if err := m.db.WithContext(ctx).Raw("PRAGMA user_version").Scan(&version).Error; err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

// Up migrates to CurrentVersion.
func (m *Migrator) Up(ctx context.Context) error {
	return m.MigrateTo(ctx, CurrentVersion)
}

// MigrateTo applies every migration between the stored version and target.
// Each version step commits on its own; a failure leaves the store at the
// last committed version.
func (m *Migrator) MigrateTo(ctx context.Context, target int) error {
	if target < BaseVersion || target > CurrentVersion {
		return fmt.Errorf("%w: target %d outside %d..%d", ErrUnsupportedSchemaVersion, target, BaseVersion, CurrentVersion)
	}

	version, err := m.Version(ctx)
	if err != nil {
		return err
	}

	if version == 0 || version < BaseVersion || version > CurrentVersion {
		version, err = m.bootstrap(ctx, version)
		if err != nil {
			return err
		}
	}

	if version > target {
		return fmt.Errorf("%w: store is at %d, cannot go back to %d", ErrUnsupportedSchemaVersion, version, target)
	}

	for _, mig := range migrations {
		if mig.from < version || mig.to > target {
			continue
		}
		if err := m.apply(ctx, mig); err != nil {
			return err
		}
		version = mig.to
	}
	return nil
}

// bootstrap handles stores that are not on the chain: empty files get the
// base schema, anything else is refused unless a destructive reset was
// explicitly allowed.
func (m *Migrator) bootstrap(ctx context.Context, version int) (int, error) {
	tables, err := m.userTables(ctx)
	if err != nil {
		return 0, err
	}

	if version != 0 || len(tables) > 0 {
		if !m.allowDestructiveReset {
			return 0, fmt.Errorf("%w: store reports version %d with %d tables; known chain is %d..%d",
				ErrUnsupportedSchemaVersion, version, len(tables), BaseVersion, CurrentVersion)
		}
		logger.Warn("destructive reset: dropping all data of unmigratable store",
			zap.Int("version", version), zap.Strings("tables", tables))
		if err := m.dropAll(ctx, tables); err != nil {
			return 0, err
		}
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, def := range baseSchema {
			if err := def.create(tx); err != nil {
				return err
			}
		}
		return setVersion(tx, BaseVersion)
	})
	if err != nil {
		return 0, fmt.Errorf("create base schema: %w", err)
	}
	logger.Info("created base schema", zap.Int("version", BaseVersion))
	return BaseVersion, nil
}

func (m *Migrator) dropAll(ctx context.Context, tables []string) error {
	db := m.db.WithContext(ctx)
	if err := db.Exec("PRAGMA foreign_keys = OFF").Error; err != nil {
		return fmt.Errorf("disable foreign keys: %w", err)
	}
	defer db.Exec("PRAGMA foreign_keys = ON")

	return db.Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			if err := tx.Exec("DROP TABLE IF EXISTS " + quoteIdent(table)).Error; err != nil {
				return fmt.Errorf("drop %s: %w", table, err)
			}
		}
		return setVersion(tx, 0)
	})
}

func (m *Migrator) userTables(ctx context.Context) ([]string, error) {
	var tables []string
	err := m.db.WithContext(ctx).
		Raw("SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name").
		Scan(&tables).Error
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return tables, nil
}

// apply runs one version step in a single transaction. Foreign keys are
// switched off around it so table rebuilds do not cascade; the step only
// commits if foreign_key_check comes back clean.
func (m *Migrator) apply(ctx context.Context, mig migration) error {
	db := m.db.WithContext(ctx)
	if err := db.Exec("PRAGMA foreign_keys = OFF").Error; err != nil {
		return fmt.Errorf("disable foreign keys: %w", err)
	}
	defer db.Exec("PRAGMA foreign_keys = ON")

	err := db.Transaction(func(tx *gorm.DB) error {
		for _, s := range mig.steps {
			if err := s.apply(tx); err != nil {
				return fmt.Errorf("%s: %w", s.name, err)
			}
		}
		if err := checkForeignKeys(tx); err != nil {
			return err
		}
		return setVersion(tx, mig.to)
	})
	if err != nil {
		logger.Error("migration failed", err, zap.Int("from", mig.from), zap.Int("to", mig.to))
		return fmt.Errorf("migrate %d to %d: %w", mig.from, mig.to, err)
	}
	logger.Info("migrated schema", zap.Int("from", mig.from), zap.Int("to", mig.to))
	return nil
}

type foreignKeyViolation struct {
	Table  string `gorm:"column:table"`
	RowID  int64  `gorm:"column:rowid"`
	Parent string `gorm:"column:parent"`
}

func checkForeignKeys(tx *gorm.DB) error {
	var violations []foreignKeyViolation
	if err := tx.Raw("PRAGMA foreign_key_check").Scan(&violations).Error; err != nil {
		return fmt.Errorf("foreign key check: %w", err)
	}
	if len(violations) > 0 {
		v := violations[0]
		return fmt.Errorf("foreign key check: %d violations, first in %s row %d -> %s", len(violations), v.Table, v.RowID, v.Parent)
	}
	return nil
}

func setVersion(tx *gorm.DB, version int) error {
	if err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", version)).Error; err != nil {
		return fmt.Errorf("set schema version %d: %w", version, err)
	}
	return nil
}
