package pkg

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/medscan/radiology-service/internal/config"
	"github.com/medscan/radiology-service/internal/models"
)

// InitDatabase opens the postgres connection and migrates the record
// store schema.
func InitDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Patient{},
		&models.Radiologist{},
		&models.Scan{},
		&models.Report{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}
