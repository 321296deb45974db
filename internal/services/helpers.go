package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/wayfarer-app/backend/internal/models"
)

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// ensureTraveler materialises the local profile row for an upstream identity.
// Identity management lives outside this service, so any traveler id must be
// accepted; concurrent creation races resolve to the existing row.
func ensureTraveler(tx *gorm.DB, travelerID string) (*models.Traveler, error) {
	traveler := models.Traveler{BaseModel: models.BaseModel{ID: travelerID}}
	err := tx.Where("id = ?", travelerID).FirstOrCreate(&traveler).Error
	if err != nil && !isUniqueConstraintError(err) {
		return nil, err
	}
	return &traveler, nil
}

func clampLimit(limit, fallback, max int) int {
	if limit <= 0 || limit > max {
		return fallback
	}
	return limit
}

func max0(value int) int {
	if value < 0 {
		return 0
	}
	return value
}
