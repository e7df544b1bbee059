// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"

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

	// Session settings
	SessionTTLHours   int  // Lifetime of a newly created session
	TrustedGeoHeaders bool // Trust X-Geo-* headers from an edge proxy for location resolution

	// Risk policy
	SuspiciousThreshold int // Scores strictly above this mark the session suspicious

	// Security
	RateLimitRPM   int
	AllowedOrigins string // Comma-separated CORS origins, "*" for all

	// Tracing
	OTLPEndpoint string // OTLP/gRPC collector endpoint; tracing disabled when empty
}

// Defaults
const (
	DefaultPort                = "8080"
	DefaultEnv                 = "development"
	DefaultLogLevel            = "info"
	DefaultSessionTTLHours     = 24 * 7
	DefaultSuspiciousThreshold = 70
	DefaultRateLimitRPM        = 120
)

// Load reads configuration from environment variables.
// It loads .env file if present (for local development).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", DefaultPort),
		Env:                 getEnv("ENV", DefaultEnv),
		LogLevel:            getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:         os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		SessionTTLHours:     getEnvInt("SESSION_TTL_HOURS", DefaultSessionTTLHours),
		TrustedGeoHeaders:   getEnvBool("TRUSTED_GEO_HEADERS", true),
		SuspiciousThreshold: getEnvInt("SUSPICIOUS_THRESHOLD", DefaultSuspiciousThreshold),
		RateLimitRPM:        getEnvInt("RATE_LIMIT_RPM", DefaultRateLimitRPM),
		AllowedOrigins:      getEnv("ALLOWED_ORIGINS", "*"),
		OTLPEndpoint:        os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.SessionTTLHours <= 0 {
		return fmt.Errorf("SESSION_TTL_HOURS must be positive")
	}
	if c.SuspiciousThreshold < 0 || c.SuspiciousThreshold > 100 {
		return fmt.Errorf("SUSPICIOUS_THRESHOLD must be in [0,100]")
	}
	if c.RateLimitRPM <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPM must be positive")
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

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
