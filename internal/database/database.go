package database

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ecomplus/app-fb-conversions/internal/config"
	"github.com/ecomplus/app-fb-conversions/internal/model"
	"github.com/ecomplus/app-fb-conversions/pkg/log"
)

var db *gorm.DB

// Init opens the webhook audit database and migrates its schema.
// Only called when database.enabled is set; the webhook flow never
// depends on it.
func Init(cfg *config.Config) error {
	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(parseLogLevel(cfg.Database.LogLevel)),
	}

	conn, err := gorm.Open(mysql.Open(cfg.Database.GetDSN()), gormConfig)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := conn.AutoMigrate(&model.WebhookLog{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	db = conn
	log.Info("Database connected successfully")
	return nil
}

// GetDB returns the database handle, nil when the audit log is
// disabled
func GetDB() *gorm.DB {
	return db
}

// Close closes the database connection
func Close() error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func parseLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
