package database

import (
	"gorm.io/gorm"

	"github.com/wayfarer-app/backend/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Traveler{},
		&models.Itinerary{},
		&models.DayPlan{},
		&models.Activity{},
		&models.Notification{},
	)
}
