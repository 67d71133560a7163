package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Transaction lifecycle states. Confirmed, rejected and insufficient_funds
// are terminal.
const (
	StatusSubmitted         = "submitted"
	StatusExtracted         = "extracted"
	StatusMatched           = "matched"
	StatusPendingAdmin      = "pending_admin"
	StatusConfirmed         = "confirmed"
	StatusRejected          = "rejected"
	StatusInsufficientFunds = "insufficient_funds"
)

// ExchangeTransaction is one user exchange request. Amounts are minor units;
// RateMilli is the applied exchange rate scaled by 1000.
type ExchangeTransaction struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserRef string    `gorm:"index"`

	PayAmountMinor    int64
	PayCurrency       string
	PayoutAmountMinor int64
	PayoutCurrency    string
	RateMilli         int64

	// User's receiving account for the payout leg.
	PayoutBankName      string
	PayoutAccountNumber string
	PayoutAccountName   string

	// Company accounts resolved during reconciliation / admin confirmation.
	MatchedAccountID *uuid.UUID
	PayoutAccountID  *uuid.UUID

	Status               string `gorm:"index"`
	NeedsManualSelection bool
	ShortageMinor        int64

	ExtractionDetails datatypes.JSON
	AdminReceiptRef   *string

	CreatedAt   time.Time
	FinalizedAt *time.Time
}

// IsTerminal reports whether the transaction has reached a final state.
func (t *ExchangeTransaction) IsTerminal() bool {
	switch t.Status {
	case StatusConfirmed, StatusRejected, StatusInsufficientFunds:
		return true
	}
	return false
}
