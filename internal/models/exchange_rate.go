package models

import "time"

// ExchangeRate is a singleton row (id=1) holding the current THB->MMK rate
// scaled by 1000, e.g. 121.5 is stored as 121500.
type ExchangeRate struct {
	ID        int64 `gorm:"primaryKey"`
	RateMilli int64 `gorm:"not null"`
	UpdatedAt time.Time
}

// DefaultRateMilli seeds the rate table on first boot.
const DefaultRateMilli = 121500
