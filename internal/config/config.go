// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for perksyncd.
type Config struct {
	BillingURL   string
	NotifierURL  string
	SeedFile     string
	SyncSchedule string
	LogLevel     string
	Tracing      TracingConfig
}

// TracingConfig holds the OpenTelemetry exporter settings.
type TracingConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
	SampleRate   float64
}

// Load reads configuration from a .env file and environment variables.
// A missing .env file is not an error; plain environment variables win.
func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		BillingURL:   getEnv("BILLING_URL", "http://localhost:8081"),
		NotifierURL:  getEnv("NOTIFIER_URL", "http://localhost:8082"),
		SeedFile:     getEnv("SEED_FILE", "members.json"),
		SyncSchedule: getEnv("SYNC_SCHEDULE", "0 * * * *"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		Tracing: TracingConfig{
			Enabled:      getBoolEnv("TRACING_ENABLED", false),
			OTLPEndpoint: getEnv("OTLP_ENDPOINT", "localhost:4318"),
			ServiceName:  getEnv("SERVICE_NAME", "perksyncd"),
			SampleRate:   getFloatEnv("TRACE_SAMPLE_RATE", 1.0),
		},
	}

	if cfg.BillingURL == "" {
		return nil, fmt.Errorf("BILLING_URL must not be empty")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getFloatEnv(key string, defaultValue float64) float64 {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}
