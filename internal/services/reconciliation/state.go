package reconciliation

import (
	"errors"
	"fmt"
	"time"

	"exchange-reconciliation-backend/internal/models"
)

// ErrBusy means another reconciliation for the same transaction is in
// flight; the caller should retry.
var ErrBusy = errors.New("transaction is busy")

// ErrAlreadyFinalized is the idempotent no-op signal for transitions
// attempted from a terminal state.
var ErrAlreadyFinalized = errors.New("transaction already finalized")

// ErrNoMatchedAccount means admin confirmation arrived before a receiving
// account was matched or manually selected.
var ErrNoMatchedAccount = errors.New("no receiving account matched or selected")

// ErrAccountUnavailable means the requested account is missing, inactive,
// or in the wrong currency.
var ErrAccountUnavailable = errors.New("bank account unavailable")

// InvalidTransitionError reports a transition the state machine does not
// define.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
}

// transitions is the full state machine. A state absent from a source's
// list is unreachable from it.
var transitions = map[string][]string{
	models.StatusSubmitted: {models.StatusExtracted},
	models.StatusExtracted: {models.StatusMatched, models.StatusPendingAdmin},
	models.StatusMatched:   {models.StatusPendingAdmin},
	models.StatusPendingAdmin: {
		models.StatusConfirmed,
		models.StatusRejected,
		models.StatusInsufficientFunds,
	},
}

// canTransition reports whether from -> to is a defined transition.
func canTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// advance moves the transaction to the next state, stamping FinalizedAt on
// terminal states. Terminal sources return ErrAlreadyFinalized without
// mutating anything.
func advance(tx *models.ExchangeTransaction, to string) error {
	if tx.IsTerminal() {
		return ErrAlreadyFinalized
	}
	if !canTransition(tx.Status, to) {
		return &InvalidTransitionError{From: tx.Status, To: to}
	}
	tx.Status = to
	if tx.IsTerminal() {
		now := time.Now()
		tx.FinalizedAt = &now
	}
	return nil
}
