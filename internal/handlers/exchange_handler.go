package handler

import (
	"errors"
	"io"
	"net/http"

	"exchange-reconciliation-backend/internal/models"
	"exchange-reconciliation-backend/internal/repository"
	"exchange-reconciliation-backend/internal/services/extractor"
	"exchange-reconciliation-backend/internal/services/ocr"
	"exchange-reconciliation-backend/internal/services/reconciliation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type ExchangeHandler struct {
	coordinator *reconciliation.Coordinator
	ocr         ocr.TextExtractor
	txRepo      *repository.TransactionRepository
	rateRepo    *repository.RateRepository
	log         zerolog.Logger
}

func NewExchangeHandler(
	coordinator *reconciliation.Coordinator,
	textExtractor ocr.TextExtractor,
	txRepo *repository.TransactionRepository,
	rateRepo *repository.RateRepository,
	log zerolog.Logger,
) *ExchangeHandler {
	return &ExchangeHandler{
		coordinator: coordinator,
		ocr:         textExtractor,
		txRepo:      txRepo,
		rateRepo:    rateRepo,
		log:         log,
	}
}

// Submit creates a transaction from a receipt upload and runs the first
// reconciliation pass.
func (h *ExchangeHandler) Submit(c *gin.Context) {
	userRef := c.PostForm("user_ref")
	payoutBank := c.PostForm("payout_bank")
	payoutNumber := c.PostForm("payout_account_number")
	payoutName := c.PostForm("payout_account_name")

	if payoutBank == "" || payoutNumber == "" || payoutName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payout bank, account number and account name are required"})
		return
	}

	rawText, ok := h.receiptText(c)
	if !ok {
		return
	}

	rateMilli, err := h.rateRepo.Get()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot load exchange rate"})
		return
	}

	tx := &models.ExchangeTransaction{
		ID:                  uuid.New(),
		UserRef:             userRef,
		PayCurrency:         "THB",
		PayoutCurrency:      "MMK",
		RateMilli:           rateMilli,
		PayoutBankName:      payoutBank,
		PayoutAccountNumber: payoutNumber,
		PayoutAccountName:   payoutName,
	}
	if err := h.txRepo.Create(c.Request.Context(), tx); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	outcome := h.coordinator.Reconcile(c.Request.Context(), tx.ID, rawText)
	h.respondOutcome(c, tx.ID, outcome)
}

// Reconcile re-runs reconciliation for an existing transaction, e.g. after
// the user resubmits a clearer receipt.
func (h *ExchangeHandler) Reconcile(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	rawText, ok := h.receiptText(c)
	if !ok {
		return
	}
	outcome := h.coordinator.Reconcile(c.Request.Context(), id, rawText)
	h.respondOutcome(c, id, outcome)
}

// Confirm settles a pending transaction: admin supplies their transfer
// proof and the payout account, and the ledger transfer commits.
func (h *ExchangeHandler) Confirm(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var payload struct {
		PayoutAccountID string `json:"payout_account_id"`
		AdminReceiptRef string `json:"admin_receipt_ref"`
		Actor           string `json:"actor"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	payoutID, err := uuid.Parse(payload.PayoutAccountID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payout account ID"})
		return
	}
	actor := payload.Actor
	if actor == "" {
		actor = "admin"
	}

	outcome := h.coordinator.Confirm(c.Request.Context(), id, payoutID, payload.AdminReceiptRef, actor)
	h.respondOutcome(c, id, outcome)
}

// Reject marks a pending transaction rejected; no balances move.
func (h *ExchangeHandler) Reject(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	outcome := h.coordinator.Reject(c.Request.Context(), id)
	h.respondOutcome(c, id, outcome)
}

// SelectAccount records the admin's manual receiving-account choice after
// the resolver reported no match.
func (h *ExchangeHandler) SelectAccount(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var payload struct {
		AccountID string `json:"account_id"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	accountID, err := uuid.Parse(payload.AccountID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account ID"})
		return
	}

	outcome := h.coordinator.SelectAccount(c.Request.Context(), id, accountID)
	h.respondOutcome(c, id, outcome)
}

// Get returns the current transaction state; timed-out callers use this
// instead of cancelling in-flight work.
func (h *ExchangeHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	tx, err := h.txRepo.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}

// ListToday returns today's transactions with a volume summary.
func (h *ExchangeHandler) ListToday(c *gin.Context) {
	txs, err := h.txRepo.ListToday(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	stats, err := h.txRepo.GetDailyStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": txs, "stats": stats})
}

// receiptText reads raw OCR text from the request: either a pre-extracted
// raw_text field or a receipt image to run through the OCR provider.
func (h *ExchangeHandler) receiptText(c *gin.Context) (string, bool) {
	if raw := c.PostForm("raw_text"); raw != "" {
		return raw, true
	}

	file, header, err := c.Request.FormFile("receipt")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "receipt image or raw_text required"})
		return "", false
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read receipt image"})
		return "", false
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	rawText, err := h.ocr.ExtractText(c.Request.Context(), image, mimeType)
	if err != nil {
		h.log.Error().Err(err).Msg("ocr failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "receipt could not be read, please resend a clearer screenshot"})
		return "", false
	}
	return rawText, true
}

func (h *ExchangeHandler) respondOutcome(c *gin.Context, txID uuid.UUID, outcome reconciliation.Outcome) {
	body := gin.H{
		"transaction_id": txID.String(),
		"outcome":        outcome.Kind,
	}
	if outcome.State != "" {
		body["state"] = outcome.State
	}
	if outcome.ShortageMinor > 0 {
		body["shortage_minor"] = outcome.ShortageMinor
	}

	switch outcome.Kind {
	case reconciliation.OutcomeBusy:
		c.JSON(http.StatusTooManyRequests, body)
	case reconciliation.OutcomeError:
		status := http.StatusInternalServerError
		var extractionErr *extractor.ExtractionError
		var transitionErr *reconciliation.InvalidTransitionError
		switch {
		case errors.As(outcome.Err, &extractionErr):
			status = http.StatusUnprocessableEntity
		case errors.As(outcome.Err, &transitionErr),
			errors.Is(outcome.Err, reconciliation.ErrNoMatchedAccount),
			errors.Is(outcome.Err, reconciliation.ErrAccountUnavailable):
			status = http.StatusConflict
		}
		body["error"] = outcome.Err.Error()
		c.JSON(status, body)
	default:
		c.JSON(http.StatusOK, body)
	}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return uuid.Nil, false
	}
	return id, true
}
