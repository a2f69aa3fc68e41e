// Package database opens the gorm connection for mysql or sqlite and keeps
// the schema migrated.
package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/trendjack/core/internal/config"
	"github.com/trendjack/core/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// schema lists every persisted model in migration order.
var schema = []interface{}{
	&models.TranscriptModel{},
	&models.TopicModel{},
	&models.RunModel{},
	&models.PostModel{},
}

// mysqlFixups relax columns that older deployments created as NOT NULL.
var mysqlFixups = []string{
	"ALTER TABLE `runs` MODIFY COLUMN `urls` LONGTEXT NULL",
	"ALTER TABLE `transcript_topics` MODIFY COLUMN `evidence` LONGTEXT NULL",
}

var logLevels = map[string]logger.LogLevel{
	"silent": logger.Silent,
	"error":  logger.Error,
	"warn":   logger.Warn,
	"info":   logger.Info,
}

// Connect opens the configured database, migrating it when autoMigrate is set.
func Connect(cfg *config.AppConfig, autoMigrate bool) (*gorm.DB, error) {
	db, err := Open(cfg.Database.Driver, cfg.DSN, resolveLogLevel(cfg))
	if err != nil {
		return nil, err
	}
	if !autoMigrate {
		return db, nil
	}
	if err := Migrate(db); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return db, nil
}

// EnsureSchema migrates through a throwaway connection.
func EnsureSchema(cfg *config.AppConfig) error {
	db, err := Connect(cfg, true)
	if err != nil {
		return err
	}
	closeDB(db)
	return nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// resolveLogLevel honours database.log_level, else logs every statement in
// development and only warnings elsewhere.
func resolveLogLevel(cfg *config.AppConfig) logger.LogLevel {
	if lvl, ok := logLevels[cfg.Database.LogLevel]; ok {
		return lvl
	}
	if cfg.IsDev() {
		return logger.Info
	}
	return logger.Warn
}

// Open connects to a mysql or sqlite database.
func Open(driver, dsn string, logLevel logger.LogLevel) (*gorm.DB, error) {
	dialector, err := dialectorFor(driver, dsn)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logLevel)})
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("resolve sql db: %w", err)
	}
	if driver == config.DriverSQLite {
		// one writer at a time, or sqlite answers SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}
	return db, nil
}

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case config.DriverMySQL:
		return mysql.New(mysql.Config{DSN: dsn, DefaultStringSize: 191}), nil
	case config.DriverSQLite:
		if err := ensureSQLiteDir(dsn); err != nil {
			return nil, err
		}
		return sqlite.Open(dsn), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

func ensureSQLiteDir(dsn string) error {
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create sqlite dir: %w", err)
	}
	return nil
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(schema...); err != nil {
		return err
	}
	if db.Dialector.Name() != config.DriverMySQL {
		return nil
	}
	for _, stmt := range mysqlFixups {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return nil
}
