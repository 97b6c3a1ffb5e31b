package db

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"aircon-schedule-backend/config"
	"aircon-schedule-backend/internal/logger"
	"aircon-schedule-backend/internal/model"
)

// Init opens the database selected by the DSN and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(openDialector(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	}

	logger.Infof("running database migrations")
	if err := db.AutoMigrate(
		&model.ScheduledAction{},
		&model.SmartModeConfig{},
		&model.WeeklySchedule{},
		&model.Credential{},
	); err != nil {
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}

	logger.Infof("database initialization complete")
	return db, nil
}

// openDialector picks SQLite for file-style DSNs, Postgres otherwise.
func openDialector(dsn string) gorm.Dialector {
	if strings.HasPrefix(dsn, "file:") || strings.HasSuffix(dsn, ".db") || dsn == ":memory:" {
		return sqlite.Open(dsn)
	}
	return postgres.Open(dsn)
}
