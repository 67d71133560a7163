package main

import (
	"context"
	"time"

	"exchange-reconciliation-backend/internal/config"
	"exchange-reconciliation-backend/internal/logger"
	"exchange-reconciliation-backend/internal/models"
	"exchange-reconciliation-backend/internal/repository"
	"exchange-reconciliation-backend/internal/routes"
	"exchange-reconciliation-backend/internal/services/ocr"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	log := logger.New()

	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, relying on system env")
	}

	db := config.InitDB()

	db.AutoMigrate(
		&models.BankAccount{},
		&models.AliasEntry{},
		&models.ExchangeTransaction{},
		&models.ExchangeRate{},
		&models.BalanceAuditLog{},
	)

	// Seed the rate singleton on first boot.
	rateRepo := repository.NewRateRepository(db)
	var count int64
	db.Model(&models.ExchangeRate{}).Count(&count)
	if count == 0 {
		if err := rateRepo.Set(models.DefaultRateMilli); err != nil {
			log.Fatal().Err(err).Msg("seeding exchange rate")
		}
	}

	textExtractor, err := ocr.NewGenAIExtractor(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("initializing OCR provider")
	}

	r := gin.Default()
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{config.Getenv("CORS_ORIGIN", "http://localhost:3000")},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, db, textExtractor, log)

	r.Run(":" + config.Getenv("PORT", "8080"))
}
