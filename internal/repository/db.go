package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"todoapp/internal/logger"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrUnknownUser = errors.New("owner user does not exist")
	ErrNoStore     = errors.New("database file does not exist")
)

// Options control how a store is opened.
type Options struct {
	// AllowDestructiveReset wipes a store whose schema version is not on the
	// migration chain instead of refusing to open it.
	AllowDestructiveReset bool
	// SkipMigrations opens the file as-is; used by tooling that drives the
	// Migrator itself.
	SkipMigrations bool
	// MustExist fails with ErrNoStore instead of creating a missing file.
	MustExist bool
}

// Store owns the database handle. It is built by Open and released by Close.
type Store struct {
	db       *gorm.DB
	migrator *Migrator
}

// Open opens a SQLite database and migrates it to CurrentVersion.
func Open(ctx context.Context, dsn string, opts Options) (*Store, error) {
	if dsn == "" {
		dsn = "todo.db"
	}

	if opts.MustExist {
		if path, ok := sqlitePath(dsn); ok {
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrNoStore, path)
			}
		}
	} else if err := ensureDirForSQLite(dsn); err != nil {
		return nil, err
	}

	dbLogger := gormlogger.New(
		logger.StdLog(),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(withPragmas(dsn)), &gorm.Config{
		Logger: dbLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection serializes writers and keeps connection-scoped pragmas
	// (foreign_keys) stable for the migrator.
	sqlDB.SetMaxOpenConns(1)

	store := &Store{
		db:       db,
		migrator: NewMigrator(db, opts.AllowDestructiveReset),
	}

	if !opts.SkipMigrations {
		if err := store.migrator.Up(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("migrate db: %w", err)
		}
	}

	logger.Info("store opened", zap.String("dsn", dsn))
	return store, nil
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) Migrator() *Migrator {
	return s.migrator
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// withPragmas turns on foreign key enforcement for every connection.
func withPragmas(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on&_busy_timeout=5000"
}

// sqlitePath strips the DSN down to the file path. In-memory databases have
// none.
func sqlitePath(dsn string) (string, bool) {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return "", false
	}
	clean := strings.TrimPrefix(dsn, "file:")
	return strings.Split(clean, "?")[0], true
}

// ensureDirForSQLite creates parent dir for SQLite file if needed.
func ensureDirForSQLite(dsn string) error {
	path, ok := sqlitePath(dsn)
	if !ok {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}
