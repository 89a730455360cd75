package config

import (
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds SQL database connection settings.
type DatabaseConfig struct {
	// Driver selects the backend: "postgres" (default) or "sqlite".
	Driver string
	// URL is a full connection string. For postgres it overrides the individual
	// fields below; for sqlite it is the database file path.
	URL                string
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
	AutoMigrate        bool
}

// MinIOConfig holds object storage settings for uploaded requirement files.
// Storage is optional; an empty Endpoint disables it.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// Enabled reports whether an object storage endpoint is configured.
func (c MinIOConfig) Enabled() bool {
	return c.Endpoint != ""
}

// GenerationConfig holds settings for the generative-AI provider.
type GenerationConfig struct {
	Provider     string
	APIKey       string
	BaseURL      string
	Model        string
	MaxTokens    int
	SystemPrompt string
	TimeoutSec   int
}

// Timeout returns the per-call deadline for generation requests.
func (c GenerationConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// AuditConfig holds settings for the spreadsheet audit log.
type AuditConfig struct {
	SpreadsheetID   string
	CredentialsFile string
	Range           string
	// Endpoint overrides the Sheets API base URL. Empty means the Google default.
	Endpoint   string
	TimeoutSec int
}

// Timeout returns the per-call deadline for audit appends.
func (c AuditConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// RateLimitConfig bounds inbound requests per client address.
type RateLimitConfig struct {
	Max       int
	WindowSec int
}

// Window returns the sliding window length.
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSec) * time.Second
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables once at startup and passed by
// reference to constructors. Sensitive values are not hardcoded.
type AppConfig struct {
	Port            string
	Env             string
	LogLevel        string
	StoreTimeoutSec int
	Database        DatabaseConfig
	MinIO           MinIOConfig
	Generation      GenerationConfig
	Audit           AuditConfig
	RateLimit       RateLimitConfig
}

// StoreTimeout returns the per-call deadline for persistence writes.
func (c *AppConfig) StoreTimeout() time.Duration {
	return time.Duration(c.StoreTimeoutSec) * time.Second
}

// IsDevelopment reports whether APP_ENV is "development".
func (c *AppConfig) IsDevelopment() bool {
	return c.Env == "development"
}

// DefaultSystemPrompt frames the assistant's role for every generation request.
const DefaultSystemPrompt = "You are a code generation assistant. Generate code that implements the user's requirement."

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		Port:            getEnv("PORT", "5000"),
		Env:             getEnv("APP_ENV", "production"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		StoreTimeoutSec: getEnvInt("STORE_TIMEOUT_SEC", 10),
		Database: DatabaseConfig{
			Driver:             getEnv("DB_DRIVER", "postgres"),
			URL:                getEnv("DATABASE_URL", ""),
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
			AutoMigrate:        getEnvBool("DB_AUTO_MIGRATE", true),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			Region:    getEnv("MINIO_REGION", "us-east-1"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Generation: GenerationConfig{
			Provider:     getEnv("GENERATION_PROVIDER", "openai"),
			APIKey:       getEnv("AI_API_KEY", ""),
			BaseURL:      getEnv("AI_BASE_URL", ""),
			Model:        getEnv("AI_MODEL", ""),
			MaxTokens:    getEnvInt("GENERATION_MAX_TOKENS", 1024),
			SystemPrompt: getEnv("GENERATION_SYSTEM_PROMPT", DefaultSystemPrompt),
			TimeoutSec:   getEnvInt("GENERATION_TIMEOUT_SEC", 60),
		},
		Audit: AuditConfig{
			SpreadsheetID:   getEnv("GOOGLE_SHEET_ID", ""),
			CredentialsFile: getEnv("GOOGLE_SHEETS_CREDENTIALS_FILE", "service_account.json"),
			Range:           getEnv("AUDIT_RANGE", "Sheet1!A:C"),
			Endpoint:        getEnv("GOOGLE_SHEETS_ENDPOINT", ""),
			TimeoutSec:      getEnvInt("AUDIT_TIMEOUT_SEC", 30),
		},
		RateLimit: RateLimitConfig{
			Max:       getEnvInt("RATE_LIMIT_MAX", 100),
			WindowSec: getEnvInt("RATE_LIMIT_WINDOW_SEC", 15*60),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
