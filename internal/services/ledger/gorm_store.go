package ledger

import (
	"context"

	"exchange-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore is the postgres-backed BalanceStore. InTx maps to a database
// transaction with row locks, so a failed operation leaves no partial state.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) GetAccount(ctx context.Context, accountID uuid.UUID) (*models.BankAccount, error) {
	var account models.BankAccount
	if err := s.db.WithContext(ctx).First(&account, "id = ?", accountID).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *GormStore) InTx(ctx context.Context, fn func(tx BalanceTx) error) error {
	return s.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		return fn(&gormTx{db: dbtx})
	})
}

type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) Get(accountID uuid.UUID) (*models.BankAccount, error) {
	var account models.BankAccount
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&account, "id = ?", accountID).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (t *gormTx) UpdateBalance(accountID uuid.UUID, newBalanceMinor int64) error {
	return t.db.Model(&models.BankAccount{}).
		Where("id = ?", accountID).
		Update("balance_minor", newBalanceMinor).
		Error
}

func (t *gormTx) AppendAudit(entry *models.BalanceAuditLog) error {
	return t.db.Create(entry).Error
}
