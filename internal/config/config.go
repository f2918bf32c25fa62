package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all runtime configuration. Values are loaded from
// environment variables, with a .env file honoured when present.
type AppConfig struct {
	Port     string
	DBPath   string
	LogLevel string

	// ReportingCurrency is the currency all FX figures are expressed in.
	ReportingCurrency string

	// FXAPIBaseURL is the live rate service; empty disables live lookups
	// and the static fallback table is used directly.
	FXAPIBaseURL string
	FXTimeout    time.Duration
	RateCacheTTL time.Duration

	// FXLossThreshold is the auto-refund loss limit in reporting units.
	FXLossThreshold string

	// RetryCap bounds the verifier→eligibility resend cycle.
	RetryCap int

	SeedDataDir string
}

// Load reads configuration from the environment. Missing values fall
// back to development defaults.
func Load() *AppConfig {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	return &AppConfig{
		Port:              getEnv("PORT", "8080"),
		DBPath:            getEnv("DB_PATH", "returns.db"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		ReportingCurrency: getEnv("REPORTING_CURRENCY", "AUD"),
		FXAPIBaseURL:      getEnv("FX_API_BASE_URL", "https://api.frankfurter.app"),
		FXTimeout:         getDuration("FX_TIMEOUT", 5*time.Second),
		RateCacheTTL:      getDuration("RATE_CACHE_TTL", 15*time.Minute),
		FXLossThreshold:   getEnv("FX_LOSS_THRESHOLD", "300"),
		RetryCap:          getInt("RESEND_RETRY_CAP", 3),
		SeedDataDir:       getEnv("SEED_DATA_DIR", "testdata"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		log.Printf("Invalid %s=%q, using default %d", key, v, fallback)
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
		log.Printf("Invalid %s=%q, using default %s", key, v, fallback)
	}
	return fallback
}
