package repository

import (
	"time"

	"exchange-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BankAccountRepository struct {
	db *gorm.DB
}

func NewBankAccountRepository(db *gorm.DB) *BankAccountRepository {
	return &BankAccountRepository{db: db}
}

// Expose DB if needed
func (r *BankAccountRepository) DB() *gorm.DB {
	return r.db
}

// GetByID fetch a single account by ID
func (r *BankAccountRepository) GetByID(id uuid.UUID) (*models.BankAccount, error) {
	var account models.BankAccount
	err := r.db.First(&account, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// ListActive returns active accounts, optionally filtered by currency,
// in configuration order.
func (r *BankAccountRepository) ListActive(currency string) ([]models.BankAccount, error) {
	var accounts []models.BankAccount
	query := r.db.Where("is_active = ?", true).Order("position ASC, created_at ASC")
	if currency != "" {
		query = query.Where("currency = ?", currency)
	}
	err := query.Find(&accounts).Error
	return accounts, err
}

// ListAll returns every account including deactivated ones.
func (r *BankAccountRepository) ListAll() ([]models.BankAccount, error) {
	var accounts []models.BankAccount
	err := r.db.Order("currency ASC, position ASC").Find(&accounts).Error
	return accounts, err
}

// Create inserts a new account with the next configuration position.
func (r *BankAccountRepository) Create(currency, bankName, accountNumber, accountName, displayName string, initialBalanceMinor int64) (*models.BankAccount, error) {
	var maxPos int
	r.db.Model(&models.BankAccount{}).Select("COALESCE(MAX(position), 0)").Scan(&maxPos)

	account := &models.BankAccount{
		ID:            uuid.New(),
		Currency:      currency,
		BankName:      bankName,
		AccountNumber: accountNumber,
		AccountName:   accountName,
		DisplayName:   displayName,
		BalanceMinor:  initialBalanceMinor,
		IsActive:      true,
		Position:      maxPos + 1,
		CreatedAt:     time.Now(),
	}
	if err := r.db.Create(account).Error; err != nil {
		return nil, err
	}
	return account, nil
}

// Deactivate marks an account inactive; balances and history are kept.
func (r *BankAccountRepository) Deactivate(id uuid.UUID) error {
	return r.db.Model(&models.BankAccount{}).
		Where("id = ?", id).
		Update("is_active", false).
		Error
}

// UpdateDisplayName sets the display name shown in balance reports.
func (r *BankAccountRepository) UpdateDisplayName(id uuid.UUID, displayName string) error {
	return r.db.Model(&models.BankAccount{}).
		Where("id = ?", id).
		Update("display_name", displayName).
		Error
}
