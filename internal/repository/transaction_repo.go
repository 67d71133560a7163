package repository

import (
	"context"
	"time"

	"exchange-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create inserts a new transaction in the submitted state.
func (r *TransactionRepository) Create(ctx context.Context, tx *models.ExchangeTransaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if tx.Status == "" {
		tx.Status = models.StatusSubmitted
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(tx).Error
}

// Get fetches a transaction by ID.
func (r *TransactionRepository) Get(ctx context.Context, id uuid.UUID) (*models.ExchangeTransaction, error) {
	var tx models.ExchangeTransaction
	if err := r.db.WithContext(ctx).First(&tx, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tx, nil
}

// Save persists the current transaction row.
func (r *TransactionRepository) Save(ctx context.Context, tx *models.ExchangeTransaction) error {
	return r.db.WithContext(ctx).Save(tx).Error
}

// ListToday returns today's transactions, newest first.
func (r *TransactionRepository) ListToday(ctx context.Context) ([]models.ExchangeTransaction, error) {
	var txs []models.ExchangeTransaction
	start := time.Now().Truncate(24 * time.Hour)
	err := r.db.WithContext(ctx).
		Where("created_at >= ?", start).
		Order("created_at DESC").
		Find(&txs).Error
	return txs, err
}

type DailyStats struct {
	ConfirmedCount int64 `json:"confirmed_count"`
	PendingCount   int64 `json:"pending_count"`
	TotalPayMinor  int64 `json:"total_pay_minor"`
	TotalOutMinor  int64 `json:"total_payout_minor"`
}

// GetDailyStats aggregates today's confirmed volume and pending backlog.
func (r *TransactionRepository) GetDailyStats(ctx context.Context) (DailyStats, error) {
	var stats DailyStats
	start := time.Now().Truncate(24 * time.Hour)

	err := r.db.WithContext(ctx).Model(&models.ExchangeTransaction{}).
		Where("created_at >= ? AND status = ?", start, models.StatusConfirmed).
		Select("COUNT(*) as confirmed_count, COALESCE(SUM(pay_amount_minor),0) as total_pay_minor, COALESCE(SUM(payout_amount_minor),0) as total_out_minor").
		Scan(&stats).Error
	if err != nil {
		return stats, err
	}

	err = r.db.WithContext(ctx).Model(&models.ExchangeTransaction{}).
		Where("created_at >= ? AND status IN ?", start, []string{
			models.StatusSubmitted, models.StatusExtracted,
			models.StatusMatched, models.StatusPendingAdmin,
		}).
		Count(&stats.PendingCount).Error
	return stats, err
}
