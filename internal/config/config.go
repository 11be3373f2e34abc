// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Auth
	JWTSecret string        // HS256 signing secret for access tokens
	TokenTTL  time.Duration // Access-token lifetime

	// Anomaly detector
	Contamination float64 // Expected fraction of outliers in training data
	TreeCount     int     // Isolation trees per forest
	SubsampleSize int     // Training rows sampled per tree
	Seed          int64   // RNG seed for reproducible forests

	// Training lifecycle
	HistorySize     int           // Successful logins fetched for (re)training
	RetrainInterval time.Duration // How often the trainer checks for due retrains
	RetrainEvery    int           // New logins between retrains

	// Security
	AdminSecret        string // Shared secret for /v1/admin routes
	RateLimitPerMinute int    // Max requests per IP per minute

	// Observability
	OTLPEndpoint string // OTLP gRPC endpoint; tracing disabled if empty
}

// Defaults
const (
	DefaultPort            = "8080"
	DefaultEnv             = "development"
	DefaultLogLevel        = "info"
	DefaultTokenTTL        = 30 * time.Minute
	DefaultContamination   = 0.15
	DefaultTreeCount       = 100
	DefaultSubsampleSize   = 256
	DefaultSeed            = 42
	DefaultHistorySize     = 100
	DefaultRetrainInterval = 15 * time.Minute
	DefaultRetrainEvery    = 25
	DefaultRateLimit       = 100
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", DefaultPort),
		Env:                getEnv("ENV", DefaultEnv),
		LogLevel:           getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:        os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		JWTSecret:          os.Getenv("JWT_SECRET"),
		TokenTTL:           getEnvDuration("TOKEN_TTL", DefaultTokenTTL),
		Contamination:      getEnvFloat("DETECTOR_CONTAMINATION", DefaultContamination),
		TreeCount:          int(getEnvInt64("DETECTOR_TREE_COUNT", DefaultTreeCount)),
		SubsampleSize:      int(getEnvInt64("DETECTOR_SUBSAMPLE_SIZE", DefaultSubsampleSize)),
		Seed:               getEnvInt64("DETECTOR_SEED", DefaultSeed),
		HistorySize:        int(getEnvInt64("TRAINER_HISTORY_SIZE", DefaultHistorySize)),
		RetrainInterval:    getEnvDuration("TRAINER_RETRAIN_INTERVAL", DefaultRetrainInterval),
		RetrainEvery:       int(getEnvInt64("TRAINER_RETRAIN_EVERY", DefaultRetrainEvery)),
		AdminSecret:        os.Getenv("ADMIN_SECRET"),
		RateLimitPerMinute: int(getEnvInt64("RATE_LIMIT_PER_MINUTE", DefaultRateLimit)),
		OTLPEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	if c.IsProduction() {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if len(c.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters")
		}
		if c.AdminSecret == "" {
			return fmt.Errorf("ADMIN_SECRET is required in production")
		}
	}

	if c.Contamination <= 0 || c.Contamination >= 0.5 {
		return fmt.Errorf("DETECTOR_CONTAMINATION must be in (0, 0.5), got %v", c.Contamination)
	}
	if c.TreeCount <= 0 {
		return fmt.Errorf("DETECTOR_TREE_COUNT must be positive")
	}
	if c.SubsampleSize <= 1 {
		return fmt.Errorf("DETECTOR_SUBSAMPLE_SIZE must be at least 2")
	}
	if c.HistorySize <= 0 {
		return fmt.Errorf("TRAINER_HISTORY_SIZE must be positive")
	}
	if c.RetrainEvery <= 0 {
		return fmt.Errorf("TRAINER_RETRAIN_EVERY must be positive")
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
