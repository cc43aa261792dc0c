// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration, resolved once at startup from
// environment variables. Treated as immutable after Load.
type Config struct {
	DataDir     string // Base directory for the SQLite database (always absolute)
	ModelsDir   string // Directory scanned for serialized models
	FrontendDir string // Static frontend files served at /
	Port        int
	DevMode     bool
	LogLevel    string

	// Market data providers
	CoinDeskAPIURL string
	CoinDeskAPIKey string
	DaysLimit      int // Max daily bars requested from the daily provider
	HoursLimit     int // Max hourly bars requested from the hourly provider

	// Prediction horizons
	DaysAheadMax  int
	HoursAheadMax int

	// Currency labels attached to prediction responses
	DailyCurrency  string
	HourlyCurrency string

	// Auth
	AdminUsername string
	AdminPassword string
	SessionSecret string

	// Async evaluation
	UseAsyncEval bool
	RedisURL     string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", ".")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:     absDataDir,
		ModelsDir:   getEnv("MODELS_DIR", "models"),
		FrontendDir: getEnv("FRONTEND_DIR", "frontend"),
		Port:        getEnvAsInt("PORT", 5000),
		DevMode:     getEnvAsBool("DEV_MODE", false),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		CoinDeskAPIURL: getEnv("COINDESK_API_URL", "https://api.coindesk.com/v1/bpi/currentprice.json"),
		CoinDeskAPIKey: getEnv("COINDESK_API_KEY", ""),
		DaysLimit:      getEnvAsInt("YAHOO_FINANCE_DAYS_LIMIT", 60),
		HoursLimit:     getEnvAsInt("BINANCE_HOURS_LIMIT", 60),

		DaysAheadMax:  getEnvAsInt("DAYS_AHEAD_MAX", 30),
		HoursAheadMax: getEnvAsInt("HOURS_AHEAD_MAX", 23),

		DailyCurrency:  getEnv("DAILY_MODEL_CURRENCY", "INR"),
		HourlyCurrency: getEnv("HOURLY_MODEL_CURRENCY", "USDT"),

		AdminUsername: getEnv("APP_USERNAME", "admin"),
		AdminPassword: getEnv("APP_PASSWORD", "admin"),
		SessionSecret: getEnv("SESSION_SECRET", "change-this-secret-in-env"),

		UseAsyncEval: getEnvAsBool("USE_ASYNC_EVAL", false),
		RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379/0"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DatabasePath returns the full path of the application database file
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "app.db")
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DaysAheadMax <= 0 {
		return fmt.Errorf("DAYS_AHEAD_MAX must be positive, got %d", c.DaysAheadMax)
	}
	if c.HoursAheadMax <= 0 {
		return fmt.Errorf("HOURS_AHEAD_MAX must be positive, got %d", c.HoursAheadMax)
	}
	if !c.DevMode && c.SessionSecret == "change-this-secret-in-env" {
		return fmt.Errorf("SESSION_SECRET must be set outside dev mode")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
