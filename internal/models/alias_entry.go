package models

import (
	"time"

	"github.com/google/uuid"
)

// AliasEntry maps a free-text bank-name variant (abbreviation, common
// misspelling) to a canonical bank account. Many aliases per account.
type AliasEntry struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	Alias         string    `gorm:"uniqueIndex"`
	BankAccountID uuid.UUID `gorm:"index"`
	CreatedAt     time.Time
}
