// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

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

	// Artifact paths
	LogsPath          string // directory for the append-only decision log
	ReportsPath       string // directory for investigation case artifacts
	ModelRegistryPath string // directory holding the model pointer + artifacts

	// Security / compliance
	APIKey     string // shared secret for the X-API-Key header (optional)
	IncludePII bool   // when false, enrichment responses redact name/email

	// CORS (comma-separated origin list)
	CORSAllowOrigins string

	// Investigation (optional capability)
	InvestigationEnabled bool
	OpenAIAPIKey         string
	OpenAIModel          string
	OpenAIBaseURL        string

	// Rate limiting
	RateLimitRPS int

	// Tracing
	OTLPEndpoint string
}

// Defaults
const (
	DefaultPort              = "8080"
	DefaultEnv               = "development"
	DefaultLogLevel          = "info"
	DefaultLogsPath          = "logs"
	DefaultReportsPath       = "reports"
	DefaultModelRegistryPath = "artifacts/models"
	DefaultOpenAIModel       = "gpt-4o-mini"
	DefaultOpenAIBaseURL     = "https://api.openai.com/v1"
	DefaultRateLimit         = 100
	DefaultCORSAllowOrigins  = "http://localhost:5173,http://localhost:8501"
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", DefaultPort),
		Env:                  getEnv("ENV", DefaultEnv),
		LogLevel:             getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:          os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		LogsPath:             getEnv("LOGS_PATH", DefaultLogsPath),
		ReportsPath:          getEnv("REPORTS_PATH", DefaultReportsPath),
		ModelRegistryPath:    getEnv("MODEL_REGISTRY_PATH", DefaultModelRegistryPath),
		APIKey:               os.Getenv("FRAUDSHIELD_API_KEY"),
		IncludePII:           getEnvBool("INCLUDE_PII", false),
		CORSAllowOrigins:     getEnv("CORS_ALLOW_ORIGINS", DefaultCORSAllowOrigins),
		InvestigationEnabled: getEnvBool("INVESTIGATION_ENABLED", false),
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:          getEnv("OPENAI_MODEL", DefaultOpenAIModel),
		OpenAIBaseURL:        getEnv("OPENAI_BASE_URL", DefaultOpenAIBaseURL),
		RateLimitRPS:         int(getEnvInt64("RATE_LIMIT_RPS", int64(DefaultRateLimit))),
		OTLPEndpoint:         os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent
func (c *Config) Validate() error {
	if c.LogsPath == "" {
		return fmt.Errorf("LOGS_PATH must not be empty")
	}
	if c.ModelRegistryPath == "" {
		return fmt.Errorf("MODEL_REGISTRY_PATH must not be empty")
	}
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be positive")
	}
	return nil
}

// AllowedOrigins returns the parsed CORS origin list
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.EqualFold(strings.TrimSpace(value), "true")
	}
	return defaultValue
}
