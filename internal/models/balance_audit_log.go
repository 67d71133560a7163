package models

import (
	"time"

	"github.com/google/uuid"
)

// BalanceAuditLog records every ledger mutation, including manual admin
// adjustments, with the balance observed after the change.
type BalanceAuditLog struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	BankAccountID     uuid.UUID `gorm:"index"`
	Currency          string
	DeltaMinor        int64
	BalanceAfterMinor int64
	TransactionID     *uuid.UUID `gorm:"index"`
	PerformedBy       string
	Reason            string
	CreatedAt         time.Time
}
