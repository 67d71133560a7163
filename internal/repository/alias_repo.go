package repository

import (
	"strings"
	"time"

	"exchange-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AliasRepository struct {
	db *gorm.DB
}

func NewAliasRepository(db *gorm.DB) *AliasRepository {
	return &AliasRepository{db: db}
}

// ListAll returns all alias entries in insertion order.
func (r *AliasRepository) ListAll() ([]models.AliasEntry, error) {
	var aliases []models.AliasEntry
	err := r.db.Order("created_at ASC").Find(&aliases).Error
	return aliases, err
}

// Create adds an alias for an account; duplicates are ignored.
func (r *AliasRepository) Create(alias string, accountID uuid.UUID) (*models.AliasEntry, error) {
	entry := &models.AliasEntry{
		ID:            uuid.New(),
		Alias:         strings.TrimSpace(alias),
		BankAccountID: accountID,
		CreatedAt:     time.Now(),
	}
	if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// Delete removes an alias entry.
func (r *AliasRepository) Delete(id uuid.UUID) error {
	return r.db.Delete(&models.AliasEntry{}, "id = ?", id).Error
}
