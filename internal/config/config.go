package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Invoice number sequencers
const (
	SequenceDatabase = "database"
	SequenceRedis    = "redis"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port        string
	Environment string
	LogLevel    string

	// Database
	DatabaseURL string
	AutoMigrate bool

	// JWT
	JWTSecret string

	// Background Workers
	WorkerCount          int
	OverdueSweepInterval time.Duration
	BalanceSweepInterval time.Duration

	// CORS
	AllowedOrigins []string

	// Invoice numbering
	InvoiceSequence      string
	InvoiceNumberRetries int
	RedisURL             string

	// Sentry
	SentryDSN string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		Environment:          getEnv("ENVIRONMENT", "development"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		AutoMigrate:          getEnvAsBool("AUTO_MIGRATE", true),
		JWTSecret:            getEnv("JWT_SECRET", ""),
		WorkerCount:          getEnvAsInt("WORKER_COUNT", 5),
		OverdueSweepInterval: getEnvAsDuration("OVERDUE_SWEEP_INTERVAL", time.Hour),
		BalanceSweepInterval: getEnvAsDuration("BALANCE_SWEEP_INTERVAL", 6*time.Hour),
		AllowedOrigins:       getEnvAsSlice("ALLOWED_ORIGINS", []string{"*"}),
		InvoiceSequence:      strings.ToLower(getEnv("INVOICE_SEQUENCE", SequenceDatabase)),
		InvoiceNumberRetries: getEnvAsInt("INVOICE_NUMBER_RETRIES", 3),
		RedisURL:             getEnv("REDIS_URL", ""),
		SentryDSN:            getEnv("SENTRY_DSN", ""),
	}

	// Validate required configuration
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" && cfg.Environment == "production" {
		return nil, fmt.Errorf("JWT_SECRET is required in production")
	}

	if cfg.InvoiceSequence == "" {
		cfg.InvoiceSequence = SequenceDatabase
	}
	switch cfg.InvoiceSequence {
	case SequenceDatabase:
	case SequenceRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required when INVOICE_SEQUENCE=redis")
		}
	default:
		return nil, fmt.Errorf("INVOICE_SEQUENCE must be %q or %q, got %q", SequenceDatabase, SequenceRedis, cfg.InvoiceSequence)
	}

	if cfg.InvoiceNumberRetries < 1 {
		cfg.InvoiceNumberRetries = 1
	}
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}

	// Set default JWT secret for development
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-change-in-production"
	}

	return cfg, nil
}

// IsProduction reports whether the service runs with production settings
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt reads an environment variable as integer
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go duration strings such as "30m" or "1h"
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

// getEnvAsSlice reads an environment variable as comma-separated slice
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
