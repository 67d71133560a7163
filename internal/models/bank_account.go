package models

import (
	"time"

	"github.com/google/uuid"
)

// BankAccount is a company receiving/paying account. BalanceMinor is in
// minor units (satang, pya); it must only be mutated through the ledger.
type BankAccount struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	Currency      string    `gorm:"index"`
	BankName      string    `gorm:"index"`
	AccountNumber string
	AccountName   string
	DisplayName   string
	BalanceMinor  int64 `gorm:"not null;default:0"`
	IsActive      bool  `gorm:"index;default:true"`
	Position      int   `gorm:"index"`
	CreatedAt     time.Time
}
