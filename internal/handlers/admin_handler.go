package handler

import (
	"net/http"
	"strings"

	"exchange-reconciliation-backend/internal/repository"
	"exchange-reconciliation-backend/internal/services/alias"
	"exchange-reconciliation-backend/internal/services/extractor"
	"exchange-reconciliation-backend/internal/services/ledger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AdminHandler covers account/alias configuration, manual balance
// adjustments and the exchange rate. Config changes rebuild the resolver
// snapshot so in-flight resolves keep a consistent view.
type AdminHandler struct {
	accountRepo *repository.BankAccountRepository
	aliasRepo   *repository.AliasRepository
	rateRepo    *repository.RateRepository
	ledger      *ledger.Ledger
	resolver    *alias.Resolver
	log         zerolog.Logger
}

func NewAdminHandler(
	accountRepo *repository.BankAccountRepository,
	aliasRepo *repository.AliasRepository,
	rateRepo *repository.RateRepository,
	ldg *ledger.Ledger,
	resolver *alias.Resolver,
	log zerolog.Logger,
) *AdminHandler {
	return &AdminHandler{
		accountRepo: accountRepo,
		aliasRepo:   aliasRepo,
		rateRepo:    rateRepo,
		ledger:      ldg,
		resolver:    resolver,
		log:         log,
	}
}

// GetBalances returns active account balances grouped by currency.
func (h *AdminHandler) GetBalances(c *gin.Context) {
	accounts, err := h.accountRepo.ListActive("")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	grouped := make(map[string][]gin.H)
	for _, acc := range accounts {
		display := acc.DisplayName
		if display == "" {
			display = acc.BankName
		}
		grouped[acc.Currency] = append(grouped[acc.Currency], gin.H{
			"id":            acc.ID.String(),
			"bank_name":     acc.BankName,
			"display_name":  display,
			"balance_minor": acc.BalanceMinor,
			"balance":       extractor.FormatMinor(acc.BalanceMinor),
		})
	}
	c.JSON(http.StatusOK, gin.H{"balances": grouped})
}

// AdjustBalance applies a signed admin adjustment through the ledger so it
// is serialized and audited like any other mutation.
func (h *AdminHandler) AdjustBalance(c *gin.Context) {
	var payload struct {
		AccountID  string `json:"account_id"`
		DeltaMinor int64  `json:"delta_minor"`
		Reason     string `json:"reason"`
		Actor      string `json:"actor"`
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
	if payload.DeltaMinor == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "delta must be non-zero"})
		return
	}
	actor := payload.Actor
	if actor == "" {
		actor = "admin"
	}
	reason := payload.Reason
	if reason == "" {
		reason = "manual_adjustment"
	}

	newBalance, err := h.ledger.Adjust(c.Request.Context(), accountID, payload.DeltaMinor, actor, reason, nil)
	if err != nil {
		if insufficient, ok := err.(*ledger.InsufficientFundsError); ok {
			c.JSON(http.StatusConflict, gin.H{
				"error":          "insufficient funds",
				"shortage_minor": insufficient.ShortageMinor,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance_minor": newBalance})
}

// GetRate returns the current exchange rate.
func (h *AdminHandler) GetRate(c *gin.Context) {
	rateMilli, err := h.rateRepo.Get()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rate_milli": rateMilli})
}

// SetRate updates the exchange rate used for new submissions.
func (h *AdminHandler) SetRate(c *gin.Context) {
	var payload struct {
		RateMilli int64 `json:"rate_milli"`
	}
	if err := c.BindJSON(&payload); err != nil || payload.RateMilli <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rate_milli must be a positive integer"})
		return
	}
	if err := h.rateRepo.Set(payload.RateMilli); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.log.Info().Int64("rate_milli", payload.RateMilli).Msg("exchange rate updated")
	c.JSON(http.StatusOK, gin.H{"rate_milli": payload.RateMilli})
}

// ListAccounts returns all configured accounts including deactivated ones.
func (h *AdminHandler) ListAccounts(c *gin.Context) {
	accounts, err := h.accountRepo.ListAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

// CreateAccount adds a bank account and refreshes the resolver snapshot.
func (h *AdminHandler) CreateAccount(c *gin.Context) {
	var payload struct {
		Currency            string `json:"currency"`
		BankName            string `json:"bank_name"`
		AccountNumber       string `json:"account_number"`
		AccountName         string `json:"account_name"`
		DisplayName         string `json:"display_name"`
		InitialBalanceMinor int64  `json:"initial_balance_minor"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	payload.Currency = strings.ToUpper(strings.TrimSpace(payload.Currency))
	if payload.Currency == "" || payload.BankName == "" || payload.AccountNumber == "" || payload.AccountName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "currency, bank_name, account_number and account_name are required"})
		return
	}
	if payload.InitialBalanceMinor < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "initial balance cannot be negative"})
		return
	}

	account, err := h.accountRepo.Create(
		payload.Currency, payload.BankName, payload.AccountNumber,
		payload.AccountName, payload.DisplayName, payload.InitialBalanceMinor,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.refreshSnapshot()
	c.JSON(http.StatusOK, gin.H{"account": account})
}

// DeactivateAccount marks an account inactive and refreshes the snapshot.
func (h *AdminHandler) DeactivateAccount(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account ID"})
		return
	}
	if err := h.accountRepo.Deactivate(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.refreshSnapshot()
	c.JSON(http.StatusOK, gin.H{"message": "account deactivated"})
}

// UpdateDisplayName sets the name shown in balance reports.
func (h *AdminHandler) UpdateDisplayName(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account ID"})
		return
	}
	var payload struct {
		DisplayName string `json:"display_name"`
	}
	if err := c.BindJSON(&payload); err != nil || payload.DisplayName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "display_name is required"})
		return
	}
	if err := h.accountRepo.UpdateDisplayName(id, payload.DisplayName); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "display name updated"})
}

// ListAliases returns all alias entries.
func (h *AdminHandler) ListAliases(c *gin.Context) {
	aliases, err := h.aliasRepo.ListAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"aliases": aliases})
}

// CreateAlias adds a bank-name variant and refreshes the snapshot.
func (h *AdminHandler) CreateAlias(c *gin.Context) {
	var payload struct {
		Alias     string `json:"alias"`
		AccountID string `json:"account_id"`
	}
	if err := c.BindJSON(&payload); err != nil || payload.Alias == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "alias and account_id are required"})
		return
	}
	accountID, err := uuid.Parse(payload.AccountID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account ID"})
		return
	}
	if _, err := h.accountRepo.GetByID(accountID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}

	entry, err := h.aliasRepo.Create(payload.Alias, accountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.refreshSnapshot()
	c.JSON(http.StatusOK, gin.H{"alias": entry})
}

// DeleteAlias removes an alias entry and refreshes the snapshot.
func (h *AdminHandler) DeleteAlias(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alias ID"})
		return
	}
	if err := h.aliasRepo.Delete(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.refreshSnapshot()
	c.JSON(http.StatusOK, gin.H{"message": "alias deleted"})
}

// refreshSnapshot rebuilds the resolver view from current configuration
// and swaps it in atomically.
func (h *AdminHandler) refreshSnapshot() {
	accounts, err := h.accountRepo.ListActive("")
	if err != nil {
		h.log.Error().Err(err).Msg("snapshot refresh: list accounts")
		return
	}
	aliases, err := h.aliasRepo.ListAll()
	if err != nil {
		h.log.Error().Err(err).Msg("snapshot refresh: list aliases")
		return
	}
	h.resolver.Swap(alias.BuildSnapshot(accounts, aliases))
}
