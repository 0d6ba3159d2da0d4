package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/vladimiradmaev/glucose-guide/internal/domain"
	"github.com/vladimiradmaev/glucose-guide/internal/logger"
)

//go:embed sql/*.sql
var sqlFiles embed.FS

// Migration represents a database migration
type Migration struct {
	ID string
	// Dialect restricts the migration to one gorm dialector ("postgres", "sqlite").
	// Empty runs everywhere.
	Dialect string
	Up      func(*gorm.DB) error
}

// Migrator holds an ordered set of migrations and applies the pending ones.
type Migrator struct {
	migrations map[string]Migration
}

func NewMigrator() *Migrator {
	return &Migrator{migrations: make(map[string]Migration)}
}

// Default returns a migrator loaded with the schema and the embedded SQL files.
func Default() (*Migrator, error) {
	m := NewMigrator()
	m.Register(Migration{ID: "0001_schema", Up: createSchema})
	if err := m.LoadSQL(sqlFiles, "sql"); err != nil {
		return nil, err
	}
	return m, nil
}

// Register adds a new migration to the registry
func (m *Migrator) Register(migration Migration) {
	m.migrations[migration.ID] = migration
}

// LoadSQL registers every .sql file under dir. A file named
// 0002_checks.postgres.sql only runs on the postgres dialect.
func (m *Migrator) LoadSQL(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		content, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", entry.Name(), err)
		}

		id := strings.TrimSuffix(entry.Name(), ".sql")
		dialect := ""
		if i := strings.LastIndex(id, "."); i >= 0 {
			id, dialect = id[:i], id[i+1:]
		}
		statements := string(content)
		m.Register(Migration{
			ID:      id,
			Dialect: dialect,
			Up: func(db *gorm.DB) error {
				return db.Exec(statements).Error
			},
		})
	}

	return nil
}

// Pending lists the ids that Run would apply to db, in order.
func (m *Migrator) Pending(db *gorm.DB) ([]string, error) {
	if err := db.AutoMigrate(&MigrationRecord{}); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	var executed []MigrationRecord
	if err := db.Find(&executed).Error; err != nil {
		return nil, fmt.Errorf("failed to get executed migrations: %w", err)
	}
	done := make(map[string]bool, len(executed))
	for _, r := range executed {
		done[r.ID] = true
	}

	dialect := db.Dialector.Name()
	var ids []string
	for id, migration := range m.migrations {
		if done[id] {
			continue
		}
		if migration.Dialect != "" && migration.Dialect != dialect {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Run executes all pending migrations, each in its own transaction.
func (m *Migrator) Run(db *gorm.DB) error {
	ids, err := m.Pending(db)
	if err != nil {
		return err
	}

	for _, id := range ids {
		migration := m.migrations[id]
		logger.Info("Running migration", "id", id)

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := migration.Up(tx); err != nil {
				return err
			}
			return tx.Create(&MigrationRecord{ID: id}).Error
		})
		if err != nil {
			return fmt.Errorf("failed to run migration %s: %w", id, err)
		}
		logger.Info("Completed migration", "id", id)
	}

	return nil
}

// MigrationRecord represents a record of executed migrations
type MigrationRecord struct {
	ID        string `gorm:"primaryKey"`
	CreatedAt int64  `gorm:"autoCreateTime"`
}

func createSchema(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.DoctorPatient{},
		&domain.Measurement{},
		&domain.DailyInsulinSuggestion{},
		&domain.Alert{},
		&domain.AdherenceItem{},
		&domain.AdherenceRecord{},
	)
}
