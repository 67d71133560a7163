package repository

import (
	"errors"
	"time"

	"exchange-reconciliation-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RateRepository struct {
	db *gorm.DB
}

func NewRateRepository(db *gorm.DB) *RateRepository {
	return &RateRepository{db: db}
}

// Get returns the current rate, falling back to the default when unset.
func (r *RateRepository) Get() (int64, error) {
	var rate models.ExchangeRate
	err := r.db.First(&rate, "id = ?", 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.DefaultRateMilli, nil
	}
	if err != nil {
		return 0, err
	}
	return rate.RateMilli, nil
}

// Set upserts the singleton rate row.
func (r *RateRepository) Set(rateMilli int64) error {
	rate := &models.ExchangeRate{
		ID:        1,
		RateMilli: rateMilli,
		UpdatedAt: time.Now(),
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rate_milli", "updated_at"}),
	}).Create(rate).Error
}
