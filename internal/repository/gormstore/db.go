// Package gormstore keeps commit jobs, bulk schedules and users in a SQL database
// through gorm. It backs single-node deployments (sqlite) and postgres.
package gormstore

import (
	"fmt"

	"streakd/internal/logger"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// Dialector picks the gorm driver for a configured dialect.
func Dialector(dialect, dsn string) (gorm.Dialector, error) {
	switch dialect {
	case DialectSQLite, "":
		return sqlite.Open(dsn), nil
	case DialectPostgres:
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported sql dialect %q", dialect)
	}
}

// Open connects and migrates the schema.
func Open(dialector gorm.Dialector, log logger.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogger(log, gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Info("database ready", logger.String("dialect", dialector.Name()))
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&commitJobModel{}, &bulkScheduleModel{}, &userModel{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
