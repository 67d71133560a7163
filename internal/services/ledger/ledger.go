// Package ledger holds authoritative per-account balances. Every mutation is
// serialized per account, re-checked inside a storage transaction, audited,
// and durable before the call returns.
package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"exchange-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// BalanceTx is the per-operation view of the store. Implementations must
// apply all writes atomically when the surrounding InTx returns nil.
type BalanceTx interface {
	Get(accountID uuid.UUID) (*models.BankAccount, error)
	UpdateBalance(accountID uuid.UUID, newBalanceMinor int64) error
	AppendAudit(entry *models.BalanceAuditLog) error
}

// BalanceStore abstracts the durable record store.
type BalanceStore interface {
	InTx(ctx context.Context, fn func(tx BalanceTx) error) error
	GetAccount(ctx context.Context, accountID uuid.UUID) (*models.BankAccount, error)
}

type Ledger struct {
	store BalanceStore
	log   zerolog.Logger

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func New(store BalanceStore, log zerolog.Logger) *Ledger {
	return &Ledger{
		store: store,
		log:   log,
		locks: make(map[uuid.UUID]*sync.Mutex),
	}
}

// lockFor returns the mutex serializing adjusts for one account.
func (l *Ledger) lockFor(accountID uuid.UUID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[accountID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[accountID] = m
	}
	return m
}

// GetBalance reads the current balance in minor units.
func (l *Ledger) GetBalance(ctx context.Context, accountID uuid.UUID) (int64, error) {
	account, err := l.store.GetAccount(ctx, accountID)
	if err != nil {
		return 0, &StorageError{Op: "get_balance", Err: err}
	}
	return account.BalanceMinor, nil
}

// CheckSufficient is an advisory pre-check. The authoritative decision is
// always the re-check inside Adjust/Transfer, which closes the
// check-then-act race.
func (l *Ledger) CheckSufficient(ctx context.Context, accountID uuid.UUID, amountMinor int64) (bool, int64, error) {
	balance, err := l.GetBalance(ctx, accountID)
	if err != nil {
		return false, 0, err
	}
	if balance < amountMinor {
		return false, amountMinor - balance, nil
	}
	return true, 0, nil
}

// Adjust applies a signed delta to one account. A negative delta that would
// take the balance below zero fails with InsufficientFundsError and no
// mutation.
func (l *Ledger) Adjust(ctx context.Context, accountID uuid.UUID, deltaMinor int64, actor, reason string, txID *uuid.UUID) (int64, error) {
	lock := l.lockFor(accountID)
	lock.Lock()
	defer lock.Unlock()

	var newBalance int64
	err := l.store.InTx(ctx, func(tx BalanceTx) error {
		account, err := tx.Get(accountID)
		if err != nil {
			return &StorageError{Op: "adjust_get", Err: err}
		}
		newBalance = account.BalanceMinor + deltaMinor
		if newBalance < 0 {
			return &InsufficientFundsError{AccountID: accountID, ShortageMinor: -newBalance}
		}
		if err := tx.UpdateBalance(accountID, newBalance); err != nil {
			return &StorageError{Op: "adjust_update", Err: err}
		}
		if err := tx.AppendAudit(&models.BalanceAuditLog{
			ID:                uuid.New(),
			BankAccountID:     accountID,
			Currency:          account.Currency,
			DeltaMinor:        deltaMinor,
			BalanceAfterMinor: newBalance,
			TransactionID:     txID,
			PerformedBy:       actor,
			Reason:            reason,
			CreatedAt:         time.Now(),
		}); err != nil {
			return &StorageError{Op: "adjust_audit", Err: err}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	l.log.Info().
		Str("account_id", accountID.String()).
		Int64("delta_minor", deltaMinor).
		Int64("balance_minor", newBalance).
		Str("reason", reason).
		Msg("balance adjusted")
	return newBalance, nil
}

// Transfer applies one credit and one debit as a single atomic scope.
// Account locks are taken in fixed UUID order so concurrent transfers
// touching the same two accounts in opposite order cannot deadlock.
func (l *Ledger) Transfer(ctx context.Context, creditID uuid.UUID, creditMinor int64, debitID uuid.UUID, debitMinor int64, actor string, txID uuid.UUID) error {
	if creditID == debitID {
		return ErrSameAccount
	}
	ids := []uuid.UUID{creditID, debitID}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	for _, id := range ids {
		lock := l.lockFor(id)
		lock.Lock()
		defer lock.Unlock()
	}

	err := l.store.InTx(ctx, func(tx BalanceTx) error {
		credit, err := tx.Get(creditID)
		if err != nil {
			return &StorageError{Op: "transfer_get_credit", Err: err}
		}
		debit, err := tx.Get(debitID)
		if err != nil {
			return &StorageError{Op: "transfer_get_debit", Err: err}
		}

		debitAfter := debit.BalanceMinor - debitMinor
		if debitAfter < 0 {
			return &InsufficientFundsError{AccountID: debitID, ShortageMinor: -debitAfter}
		}
		creditAfter := credit.BalanceMinor + creditMinor

		if err := tx.UpdateBalance(creditID, creditAfter); err != nil {
			return &StorageError{Op: "transfer_update_credit", Err: err}
		}
		if err := tx.UpdateBalance(debitID, debitAfter); err != nil {
			return &StorageError{Op: "transfer_update_debit", Err: err}
		}

		now := time.Now()
		if err := tx.AppendAudit(&models.BalanceAuditLog{
			ID:                uuid.New(),
			BankAccountID:     creditID,
			Currency:          credit.Currency,
			DeltaMinor:        creditMinor,
			BalanceAfterMinor: creditAfter,
			TransactionID:     &txID,
			PerformedBy:       actor,
			Reason:            "transfer_credit",
			CreatedAt:         now,
		}); err != nil {
			return &StorageError{Op: "transfer_audit_credit", Err: err}
		}
		if err := tx.AppendAudit(&models.BalanceAuditLog{
			ID:                uuid.New(),
			BankAccountID:     debitID,
			Currency:          debit.Currency,
			DeltaMinor:        -debitMinor,
			BalanceAfterMinor: debitAfter,
			TransactionID:     &txID,
			PerformedBy:       actor,
			Reason:            "transfer_debit",
			CreatedAt:         now,
		}); err != nil {
			return &StorageError{Op: "transfer_audit_debit", Err: err}
		}
		return nil
	})
	if err != nil {
		return err
	}

	l.log.Info().
		Str("transaction_id", txID.String()).
		Str("credit_account", creditID.String()).
		Int64("credit_minor", creditMinor).
		Str("debit_account", debitID.String()).
		Int64("debit_minor", debitMinor).
		Msg("transfer committed")
	return nil
}
