// Package dbtest opens throwaway in-memory databases with the production schema.
package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/vladimiradmaev/glucose-guide/internal/database"
)

// Open returns a migrated, empty database. Each call gets its own database.
func Open() (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Discard,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; callers inside a transaction must use the tx handle.
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// New is Open for tests; it fails t on error and closes the database on cleanup.
func New(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := Open()
	if err != nil {
		t.Fatalf("dbtest: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}
