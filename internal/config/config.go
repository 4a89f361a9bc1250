package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	ServerPort string
	Debug      bool

	// Database. Empty means the in-memory state store is used.
	DatabaseURL string

	// Remote optimization API
	UpstreamBaseURL string
	UpstreamTimeout time.Duration

	// Vehicle catalog
	CatalogTTL time.Duration

	// Per-client optimize submit limits
	OptimizeRate  float64
	OptimizeBurst int
}

func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:      getEnv("PORT", "8080"),
		Debug:           getEnvBool("DEBUG", false),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		UpstreamBaseURL: getEnv("UPSTREAM_BASE_URL", "http://localhost:5000"),
		UpstreamTimeout: getEnvDuration("UPSTREAM_TIMEOUT", 30*time.Second),
		CatalogTTL:      getEnvDuration("CATALOG_TTL", 5*time.Minute),
		OptimizeRate:    getEnvFloat("OPTIMIZE_RATE", 1),
		OptimizeBurst:   getEnvInt("OPTIMIZE_BURST", 3),
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		n, err := strconv.Atoi(value)
		if err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		f, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return defaultValue
}
