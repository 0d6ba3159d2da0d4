package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/vladimiradmaev/glucose-guide/internal/config"
	"github.com/vladimiradmaev/glucose-guide/internal/database/migrations"
	"github.com/vladimiradmaev/glucose-guide/internal/logger"
)

// NewPostgresDB opens the clinic database. Migrations are run separately with Migrate.
func NewPostgresDB(cfg config.DBConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	logger.Info("Database connection established", "host", cfg.Host, "database", cfg.Name)
	return db, nil
}

// Migrate applies every pending migration to db.
func Migrate(db *gorm.DB) error {
	migrator, err := migrations.Default()
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	if err := migrator.Run(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close releases the connection pool behind db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
