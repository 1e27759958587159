package database

import (
	"fmt"
	"time"

	"motorent/internal/config"
	"motorent/internal/models"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Open connects to Postgres and tunes the pool gorm sits on.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(10 * time.Minute)

	return db, nil
}

func Init(cfg *config.Config) error {
	db, err := Open(cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Migrate runs AutoMigrate for every model plus the few manual fixes AutoMigrate cannot express.
func Migrate(db *gorm.DB) error {
	// Older rows were written with mixed-case statuses; normalise before the enum-ish index is used.
	if db.Migrator().HasTable(&models.Rental{}) {
		if err := db.Exec("UPDATE rentals SET status = LOWER(status) WHERE status <> LOWER(status)").Error; err != nil {
			log.Warnf("rental status normalisation failed (continuing): %v", err)
		}
	}

	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	log.Info("database migration finished")
	return nil
}

// Close releases the pool behind DB.
func Close() {
	if DB == nil {
		return
	}
	if sqlDB, err := DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	DB = nil
}
