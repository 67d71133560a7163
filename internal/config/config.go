package config

import (
	"fmt"
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Getenv returns the environment variable or a fallback.
func Getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// DSN builds the postgres connection string from DATABASE_URL or the
// individual DB_* variables.
func DSN() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		Getenv("DB_HOST", "localhost"),
		Getenv("DB_USER", "postgres"),
		Getenv("DB_PASSWORD", "postgres"),
		Getenv("DB_NAME", "exchange"),
		Getenv("DB_PORT", "5432"),
		Getenv("DB_SSLMODE", "disable"),
	)
}

// InitDB opens the postgres connection used by the whole service.
func InitDB() *gorm.DB {
	db, err := gorm.Open(postgres.Open(DSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	return db
}
