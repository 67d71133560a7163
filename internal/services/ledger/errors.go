package ledger

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrSameAccount rejects a transfer whose credit and debit legs name the
// same account; locking aside, such a call is always a caller bug.
var ErrSameAccount = errors.New("transfer credit and debit accounts must differ")

// InsufficientFundsError is a business condition, not a system fault. The
// operation it aborts leaves no mutation behind.
type InsufficientFundsError struct {
	AccountID     uuid.UUID
	ShortageMinor int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds on account %s: short %d minor units",
		e.AccountID, e.ShortageMinor)
}

// StorageError wraps an infrastructure fault. The ledger operation is
// treated as not having occurred and is safe to retry.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("ledger storage failure in %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
