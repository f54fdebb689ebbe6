package database

import (
	"fmt"

	"github.com/pagemill/core/internal/config"
	"github.com/pagemill/core/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens a MySQL connection and runs auto-migration. The returned
// handle is threaded through every service constructor; nothing in the
// process holds it as a package global.
func Connect(cfg *config.AppConfig) (*gorm.DB, error) {
	logLevel := logger.Warn
	if cfg.IsDev() {
		logLevel = logger.Info
	}

	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:               cfg.DSN,
		DefaultStringSize: 191,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		// Unique-constraint violations must surface as gorm.ErrDuplicatedKey
		// so slug reservation can report SlugTaken from the engine's verdict.
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return db, nil
}

// Migrate runs GORM auto-migration for all models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.LandingPageModel{},
		&models.SlugModel{},
		&models.SlugRedirectModel{},
		&models.AnalyticsRecordModel{},
	)
}
