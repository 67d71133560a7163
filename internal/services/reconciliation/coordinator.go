// Package reconciliation drives a submitted receipt through extraction,
// alias matching, sufficiency checks and admin confirmation, enforcing
// at-most-one in-flight operation per transaction.
package reconciliation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"exchange-reconciliation-backend/internal/models"
	"exchange-reconciliation-backend/internal/services/alias"
	"exchange-reconciliation-backend/internal/services/extractor"
	"exchange-reconciliation-backend/internal/services/ledger"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
)

// TransactionStore persists transaction rows.
type TransactionStore interface {
	Get(ctx context.Context, id uuid.UUID) (*models.ExchangeTransaction, error)
	Save(ctx context.Context, tx *models.ExchangeTransaction) error
}

// AccountDirectory reads configured bank accounts.
type AccountDirectory interface {
	GetByID(id uuid.UUID) (*models.BankAccount, error)
	ListActive(currency string) ([]models.BankAccount, error)
}

type OutcomeKind string

const (
	OutcomeAdvanced          OutcomeKind = "advanced"
	OutcomeNoMatch           OutcomeKind = "no_match_needs_manual_selection"
	OutcomeInsufficientFunds OutcomeKind = "insufficient_funds"
	OutcomeFinalized         OutcomeKind = "finalized"
	OutcomeBusy              OutcomeKind = "busy"
	OutcomeError             OutcomeKind = "error"
)

// Outcome is what the chat layer renders. Err is set only for OutcomeBusy
// and OutcomeError.
type Outcome struct {
	Kind          OutcomeKind `json:"kind"`
	State         string      `json:"state,omitempty"`
	ShortageMinor int64       `json:"shortage_minor,omitempty"`
	Err           error       `json:"-"`
}

type Coordinator struct {
	store    TransactionStore
	accounts AccountDirectory
	resolver *alias.Resolver
	ledger   *ledger.Ledger
	log      zerolog.Logger

	mu       sync.Mutex
	inflight map[uuid.UUID]bool
}

func NewCoordinator(store TransactionStore, accounts AccountDirectory, resolver *alias.Resolver, ldg *ledger.Ledger, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		store:    store,
		accounts: accounts,
		resolver: resolver,
		ledger:   ldg,
		log:      log,
		inflight: make(map[uuid.UUID]bool),
	}
}

// acquire claims the single-flight slot for a transaction. The second
// concurrent caller for the same id loses immediately rather than queueing,
// which turns duplicate webhook deliveries into Busy outcomes.
func (c *Coordinator) acquire(id uuid.UUID) (func(), bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight[id] {
		return nil, false
	}
	c.inflight[id] = true
	return func() {
		c.mu.Lock()
		delete(c.inflight, id)
		c.mu.Unlock()
	}, true
}

// Reconcile turns raw OCR text into a validated state advance for one
// transaction. No ledger mutation happens here; the transfer is deferred to
// admin confirmation.
func (c *Coordinator) Reconcile(ctx context.Context, txID uuid.UUID, rawText string) Outcome {
	release, ok := c.acquire(txID)
	if !ok {
		return Outcome{Kind: OutcomeBusy, Err: ErrBusy}
	}
	defer release()

	tx, err := c.store.Get(ctx, txID)
	if err != nil {
		return Outcome{Kind: OutcomeError, Err: &ledger.StorageError{Op: "load_transaction", Err: err}}
	}
	if tx.IsTerminal() {
		return Outcome{Kind: OutcomeFinalized, State: tx.Status}
	}
	if tx.Status == models.StatusPendingAdmin {
		// Re-delivery while awaiting the admin is a read-only no-op.
		return Outcome{Kind: OutcomeAdvanced, State: tx.Status}
	}

	cand, err := extractor.Extract(rawText)
	if err != nil {
		c.log.Warn().Str("transaction_id", txID.String()).Err(err).Msg("extraction failed")
		return Outcome{Kind: OutcomeError, State: tx.Status, Err: err}
	}

	// Extraction is deterministic, so a transaction stranded mid-pipeline by
	// an earlier save failure is simply re-driven from its current state.
	// The row is persisted once, after the pipeline completes.
	tx.PayAmountMinor = cand.AmountMinor
	tx.PayCurrency = cand.Currency
	if tx.RateMilli > 0 {
		tx.PayoutAmountMinor = cand.AmountMinor * tx.RateMilli / 1000
	}
	tx.ExtractionDetails = extractionDetails(cand)
	if tx.Status == models.StatusSubmitted {
		if err := advance(tx, models.StatusExtracted); err != nil {
			return Outcome{Kind: OutcomeError, Err: err}
		}
	}

	match := c.resolver.Resolve(cand.BankFragment)
	c.log.Info().
		Str("transaction_id", txID.String()).
		Str("fragment", cand.BankFragment).
		Str("match", match.Kind.String()).
		Float64("score", match.Score).
		Msg("alias resolved")

	matched := c.vetMatch(cand, tx, match)
	if matched == nil {
		tx.NeedsManualSelection = true
		tx.MatchedAccountID = nil
		if err := advance(tx, models.StatusPendingAdmin); err != nil {
			return Outcome{Kind: OutcomeError, Err: err}
		}
		if err := c.store.Save(ctx, tx); err != nil {
			return Outcome{Kind: OutcomeError, Err: &ledger.StorageError{Op: "save_reconciled", Err: err}}
		}
		return Outcome{Kind: OutcomeNoMatch, State: tx.Status}
	}

	matchedID := matched.ID
	tx.MatchedAccountID = &matchedID
	tx.NeedsManualSelection = false
	if tx.Status == models.StatusExtracted {
		if err := advance(tx, models.StatusMatched); err != nil {
			return Outcome{Kind: OutcomeError, Err: err}
		}
	}

	sufficient, shortage, err := c.payoutSufficiency(ctx, tx)
	if err != nil {
		return Outcome{Kind: OutcomeError, Err: err}
	}
	if !sufficient {
		tx.ShortageMinor = shortage
	}
	if err := advance(tx, models.StatusPendingAdmin); err != nil {
		return Outcome{Kind: OutcomeError, Err: err}
	}
	if err := c.store.Save(ctx, tx); err != nil {
		return Outcome{Kind: OutcomeError, Err: &ledger.StorageError{Op: "save_reconciled", Err: err}}
	}

	if !sufficient {
		// Non-terminal: admin tops up the payout account and retries.
		return Outcome{Kind: OutcomeInsufficientFunds, State: tx.Status, ShortageMinor: shortage}
	}
	return Outcome{Kind: OutcomeAdvanced, State: tx.Status}
}

// vetMatch validates a resolver hit before it becomes the transaction's
// receiving account: the account must carry the pay currency, still be
// active, and the receipt's receiver name and account-number tail must
// agree with it. A nil return routes the transaction to manual selection.
func (c *Coordinator) vetMatch(cand *extractor.Candidate, tx *models.ExchangeTransaction, match alias.MatchResult) *models.BankAccount {
	if match.Kind == alias.NoMatch {
		return nil
	}
	if match.Account.Currency != tx.PayCurrency {
		c.log.Warn().
			Str("transaction_id", tx.ID.String()).
			Str("bank", match.Account.BankName).
			Str("currency", match.Account.Currency).
			Msg("matched account carries wrong currency")
		return nil
	}
	account, err := c.accounts.GetByID(match.Account.ID)
	if err != nil || !account.IsActive {
		return nil
	}
	if !receiverMatches(cand, account) {
		c.log.Warn().
			Str("transaction_id", tx.ID.String()).
			Str("bank", account.BankName).
			Msg("receiver details disagree with matched account")
		return nil
	}
	return account
}

// payoutSufficiency is the advisory check: can any active payout-currency
// account cover the payout leg. The authoritative recheck happens inside
// the transfer.
func (c *Coordinator) payoutSufficiency(ctx context.Context, tx *models.ExchangeTransaction) (bool, int64, error) {
	accounts, err := c.accounts.ListActive(tx.PayoutCurrency)
	if err != nil {
		return false, 0, &ledger.StorageError{Op: "list_payout_accounts", Err: err}
	}
	var best int64 = -1
	for _, acc := range accounts {
		if acc.BalanceMinor > best {
			best = acc.BalanceMinor
		}
	}
	if best >= tx.PayoutAmountMinor {
		return true, 0, nil
	}
	if best < 0 {
		best = 0
	}
	return false, tx.PayoutAmountMinor - best, nil
}

// SelectAccount records the admin's manual choice of receiving account
// after a NoMatch, or overrides the matched one.
func (c *Coordinator) SelectAccount(ctx context.Context, txID, accountID uuid.UUID) Outcome {
	release, ok := c.acquire(txID)
	if !ok {
		return Outcome{Kind: OutcomeBusy, Err: ErrBusy}
	}
	defer release()

	tx, err := c.store.Get(ctx, txID)
	if err != nil {
		return Outcome{Kind: OutcomeError, Err: &ledger.StorageError{Op: "load_transaction", Err: err}}
	}
	if tx.IsTerminal() {
		return Outcome{Kind: OutcomeFinalized, State: tx.Status}
	}
	if tx.Status != models.StatusPendingAdmin {
		return Outcome{Kind: OutcomeError, Err: &InvalidTransitionError{From: tx.Status, To: tx.Status}}
	}

	account, err := c.accounts.GetByID(accountID)
	if err != nil || !account.IsActive || account.Currency != tx.PayCurrency {
		return Outcome{Kind: OutcomeError, Err: ErrAccountUnavailable}
	}

	tx.MatchedAccountID = &accountID
	tx.NeedsManualSelection = false
	if err := c.store.Save(ctx, tx); err != nil {
		return Outcome{Kind: OutcomeError, Err: &ledger.StorageError{Op: "save_selection", Err: err}}
	}
	return Outcome{Kind: OutcomeAdvanced, State: tx.Status}
}

// Confirm is the admin settlement step: it performs the atomic transfer
// (credit the matched receiving account, debit the chosen payout account)
// and finalizes the transaction.
func (c *Coordinator) Confirm(ctx context.Context, txID, payoutAccountID uuid.UUID, adminReceiptRef, actor string) Outcome {
	release, ok := c.acquire(txID)
	if !ok {
		return Outcome{Kind: OutcomeBusy, Err: ErrBusy}
	}
	defer release()

	tx, err := c.store.Get(ctx, txID)
	if err != nil {
		return Outcome{Kind: OutcomeError, Err: &ledger.StorageError{Op: "load_transaction", Err: err}}
	}
	if tx.IsTerminal() {
		return Outcome{Kind: OutcomeFinalized, State: tx.Status}
	}
	if tx.Status != models.StatusPendingAdmin {
		return Outcome{Kind: OutcomeError, Err: &InvalidTransitionError{From: tx.Status, To: models.StatusConfirmed}}
	}
	if tx.MatchedAccountID == nil {
		return Outcome{Kind: OutcomeError, Err: ErrNoMatchedAccount}
	}

	matched, err := c.accounts.GetByID(*tx.MatchedAccountID)
	if err != nil || !matched.IsActive || matched.Currency != tx.PayCurrency {
		return Outcome{Kind: OutcomeError, Err: ErrAccountUnavailable}
	}

	payoutAccount, err := c.accounts.GetByID(payoutAccountID)
	if err != nil || !payoutAccount.IsActive || payoutAccount.Currency != tx.PayoutCurrency {
		return Outcome{Kind: OutcomeError, Err: ErrAccountUnavailable}
	}

	err = c.ledger.Transfer(ctx,
		*tx.MatchedAccountID, tx.PayAmountMinor,
		payoutAccountID, tx.PayoutAmountMinor,
		actor, tx.ID)

	var insufficient *ledger.InsufficientFundsError
	switch {
	case err == nil:
		tx.PayoutAccountID = &payoutAccountID
		if adminReceiptRef != "" {
			tx.AdminReceiptRef = &adminReceiptRef
		}
		tx.ShortageMinor = 0
		if aerr := advance(tx, models.StatusConfirmed); aerr != nil {
			return Outcome{Kind: OutcomeError, Err: aerr}
		}
		if serr := c.store.Save(ctx, tx); serr != nil {
			c.log.Error().Str("transaction_id", txID.String()).Err(serr).
				Msg("transfer committed but state save failed")
			return Outcome{Kind: OutcomeError, Err: &ledger.StorageError{Op: "save_confirmed", Err: serr}}
		}
		return Outcome{Kind: OutcomeAdvanced, State: tx.Status}

	case errors.As(err, &insufficient):
		// Race: funds vanished between the advisory check and commit.
		tx.ShortageMinor = insufficient.ShortageMinor
		if aerr := advance(tx, models.StatusInsufficientFunds); aerr != nil {
			return Outcome{Kind: OutcomeError, Err: aerr}
		}
		if serr := c.store.Save(ctx, tx); serr != nil {
			return Outcome{Kind: OutcomeError, Err: &ledger.StorageError{Op: "save_insufficient", Err: serr}}
		}
		return Outcome{Kind: OutcomeInsufficientFunds, State: tx.Status, ShortageMinor: insufficient.ShortageMinor}

	default:
		// Storage fault: no leg was applied, state stays pending_admin.
		return Outcome{Kind: OutcomeError, Err: err}
	}
}

// Reject is the explicit admin rejection; no ledger mutation.
func (c *Coordinator) Reject(ctx context.Context, txID uuid.UUID) Outcome {
	release, ok := c.acquire(txID)
	if !ok {
		return Outcome{Kind: OutcomeBusy, Err: ErrBusy}
	}
	defer release()

	tx, err := c.store.Get(ctx, txID)
	if err != nil {
		return Outcome{Kind: OutcomeError, Err: &ledger.StorageError{Op: "load_transaction", Err: err}}
	}
	if tx.IsTerminal() {
		return Outcome{Kind: OutcomeFinalized, State: tx.Status}
	}
	if err := advance(tx, models.StatusRejected); err != nil {
		return Outcome{Kind: OutcomeError, Err: err}
	}
	if err := c.store.Save(ctx, tx); err != nil {
		return Outcome{Kind: OutcomeError, Err: &ledger.StorageError{Op: "save_rejected", Err: err}}
	}
	return Outcome{Kind: OutcomeAdvanced, State: tx.Status}
}

func extractionDetails(cand *extractor.Candidate) datatypes.JSON {
	details := map[string]interface{}{
		"amount_minor":  cand.AmountMinor,
		"currency":      cand.Currency,
		"bank_fragment": cand.BankFragment,
		"receiver_name": cand.ReceiverName,
		"receiver_ref":  cand.ReceiverRef,
		"reference":     cand.Reference,
		"confidence":    cand.Confidence,
	}
	raw, _ := json.Marshal(details)
	return raw
}
