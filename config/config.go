package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port         string // default: 8080
	MaxBodyBytes int64  // request body cap, default: 1 MiB

	// Backend
	AccountID string
	APIToken  string
	APIBase   string // default: https://api.cloudflare.com/client/v4

	// Auth: static list of accepted gateway API keys
	APIKeys []string

	// Optional infrastructure
	RedisAddr   string // enables rate limiting when set
	PostgresDSN string // enables usage logging when set

	// Observability
	OTELExporterType     string // "stdout" or "otlp"
	OTELExporterEndpoint string // default: "localhost:4317"

	// Rate Limiting
	DefaultRateLimitTPM int64 // tokens per minute, default: 100000
}

func Load() (*Config, error) {
	// Load .env file if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		AccountID:            os.Getenv("CF_ACCOUNT_ID"),
		APIToken:             os.Getenv("CF_API_TOKEN"),
		APIBase:              getEnv("CF_API_BASE", "https://api.cloudflare.com/client/v4"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		PostgresDSN:          os.Getenv("POSTGRES_DSN"),
		OTELExporterType:     getEnv("OTEL_EXPORTER_TYPE", "stdout"),
		OTELExporterEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
	}

	for _, key := range strings.Split(os.Getenv("API_KEYS"), ",") {
		key = strings.TrimSpace(key)
		if key != "" {
			cfg.APIKeys = append(cfg.APIKeys, key)
		}
	}

	tpmStr := getEnv("DEFAULT_RATE_LIMIT_TPM", "100000")
	tpm, err := strconv.ParseInt(tpmStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_RATE_LIMIT_TPM: %w", err)
	}
	cfg.DefaultRateLimitTPM = tpm

	bodyStr := getEnv("MAX_BODY_BYTES", "1048576")
	maxBody, err := strconv.ParseInt(bodyStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_BODY_BYTES: %w", err)
	}
	cfg.MaxBodyBytes = maxBody

	// Validation
	if cfg.AccountID == "" {
		return nil, fmt.Errorf("CF_ACCOUNT_ID is required")
	}
	if cfg.APIToken == "" {
		return nil, fmt.Errorf("CF_API_TOKEN is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
