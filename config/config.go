package config

import (
	"os"
	"time"
)

// Config holds the application configuration
type Config struct {
	// Database
	DatabaseURL string

	// Server
	ServerPort string

	// Cook processing service
	CookBaseURL  string
	CookClientID string

	// File store
	StoreRoot string

	// Poller
	PollInterval time.Duration

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		DatabaseURL:  getEnv("DATABASE_URL", "postgres://localhost/asset_pipeline?sslmode=disable"),
		ServerPort:   getEnv("SERVER_PORT", "8080"),
		CookBaseURL:  getEnv("COOK_BASE_URL", "http://localhost:8000"),
		CookClientID: getEnv("COOK_CLIENT_ID", "asset-pipeline"),
		StoreRoot:    getEnv("STORE_ROOT", "/var/lib/asset-pipeline"),
		PollInterval: getDuration("POLL_INTERVAL", 3*time.Second),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
