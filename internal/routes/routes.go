package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	handler "exchange-reconciliation-backend/internal/handlers"
	"exchange-reconciliation-backend/internal/repository"
	"exchange-reconciliation-backend/internal/services/alias"
	"exchange-reconciliation-backend/internal/services/ledger"
	"exchange-reconciliation-backend/internal/services/ocr"
	"exchange-reconciliation-backend/internal/services/reconciliation"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, textExtractor ocr.TextExtractor, log zerolog.Logger) {
	accountRepo := repository.NewBankAccountRepository(db)
	aliasRepo := repository.NewAliasRepository(db)
	txRepo := repository.NewTransactionRepository(db)
	rateRepo := repository.NewRateRepository(db)

	accounts, err := accountRepo.ListActive("")
	if err != nil {
		log.Fatal().Err(err).Msg("loading accounts for alias snapshot")
	}
	aliases, err := aliasRepo.ListAll()
	if err != nil {
		log.Fatal().Err(err).Msg("loading alias table")
	}
	resolver := alias.NewResolver(alias.BuildSnapshot(accounts, aliases))

	ldg := ledger.New(ledger.NewGormStore(db), log)
	coordinator := reconciliation.NewCoordinator(txRepo, accountRepo, resolver, ldg, log)

	exchangeHandler := handler.NewExchangeHandler(coordinator, textExtractor, txRepo, rateRepo, log)
	adminHandler := handler.NewAdminHandler(accountRepo, aliasRepo, rateRepo, ldg, resolver, log)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Exchange lifecycle
	exchanges := api.Group("/exchanges")
	exchanges.POST("", exchangeHandler.Submit)
	exchanges.GET("", exchangeHandler.ListToday)
	exchanges.GET("/:id", exchangeHandler.Get)
	exchanges.POST("/:id/reconcile", exchangeHandler.Reconcile)
	exchanges.POST("/:id/confirm", exchangeHandler.Confirm)
	exchanges.POST("/:id/reject", exchangeHandler.Reject)
	exchanges.POST("/:id/select-account", exchangeHandler.SelectAccount)

	// Balances and rate
	api.GET("/balances", adminHandler.GetBalances)
	api.POST("/balances/adjust", adminHandler.AdjustBalance)
	api.GET("/rate", adminHandler.GetRate)
	api.PUT("/rate", adminHandler.SetRate)

	// Admin configuration
	accountsGroup := api.Group("/accounts")
	{
		accountsGroup.GET("", adminHandler.ListAccounts)
		accountsGroup.POST("", adminHandler.CreateAccount)
		accountsGroup.DELETE("/:id", adminHandler.DeactivateAccount)
		accountsGroup.PUT("/:id/display-name", adminHandler.UpdateDisplayName)
	}
	aliasesGroup := api.Group("/aliases")
	{
		aliasesGroup.GET("", adminHandler.ListAliases)
		aliasesGroup.POST("", adminHandler.CreateAlias)
		aliasesGroup.DELETE("/:id", adminHandler.DeleteAlias)
	}
}
