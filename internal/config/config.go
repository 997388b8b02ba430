// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	SecretKey  string // Signs the session cookie
	BaseURL    string // OAuth redirect URI and post-logout landing page
	DataDir    string // Base directory for all databases (always absolute)
	LogLevel   string
	Port       int
	DevMode    bool
	AdminToken string // Bearer token for the portal admin API (empty disables it)

	SessionLifetime time.Duration

	CopyTrade CopyTradeConfig
	Positions PositionsConfig
	Backup    BackupConfig
}

// CopyTradeConfig holds upstream platform settings
type CopyTradeConfig struct {
	APIURL      string
	IdentityURL string
	ClientID    string
	TenantID    string
	WhiteLabel  string
	Timeout     time.Duration
	RateLimit   float64 // requests per second, 0 = unlimited
}

// PositionsConfig tunes the open positions summary aggregator
type PositionsConfig struct {
	CacheTTL     time.Duration
	MaxWorkers   int
	FetchTimeout time.Duration
	CacheIdle    time.Duration // Entries untouched for this long are pruned
}

// BackupConfig holds Cloudflare R2 backup settings
type BackupConfig struct {
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2Bucket          string
	Schedule          string
	RetentionDays     int
}

// Enabled reports whether all R2 credentials are present
func (b BackupConfig) Enabled() bool {
	return b.R2AccountID != "" && b.R2AccessKeyID != "" && b.R2SecretAccessKey != "" && b.R2Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	absDataDir, err := filepath.Abs(getEnv("DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		SecretKey:       getEnv("SECRET_KEY", ""),
		BaseURL:         strings.TrimRight(getEnv("BASE_URL", "https://localhost"), "/"),
		DataDir:         absDataDir,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Port:            getEnvAsInt("PORT", 8080),
		DevMode:         getEnvAsBool("DEV_MODE", false),
		AdminToken:      getEnv("ADMIN_TOKEN", ""),
		SessionLifetime: getEnvAsDuration("SESSION_LIFETIME", time.Hour),
		CopyTrade: CopyTradeConfig{
			APIURL:      getEnv("COPYTRADE_API_URL", "https://papi.copy-trade.io"),
			IdentityURL: getEnv("COPYTRADE_IDENTITY_URL", "https://identity.copy-trade.io"),
			ClientID:    getEnv("COPYTRADE_CLIENT_ID", "api-client"),
			TenantID:    getEnv("COPYTRADE_TENANT_ID", "pepperstone"),
			WhiteLabel:  getEnv("COPYTRADE_WHITE_LABEL", "pepperstone"),
			Timeout:     getEnvAsDuration("COPYTRADE_TIMEOUT", 5*time.Second),
			RateLimit:   getEnvAsFloat("COPYTRADE_RATE_LIMIT", 0),
		},
		Positions: PositionsConfig{
			CacheTTL:     getEnvAsDuration("POSITIONS_CACHE_TTL", 60*time.Second),
			MaxWorkers:   getEnvAsInt("POSITIONS_MAX_WORKERS", 8),
			FetchTimeout: getEnvAsDuration("POSITIONS_FETCH_TIMEOUT", 2*time.Second),
			CacheIdle:    getEnvAsDuration("POSITIONS_CACHE_IDLE", 30*time.Minute),
		},
		Backup: BackupConfig{
			R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
			R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
			R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
			R2Bucket:          getEnv("R2_BUCKET", ""),
			Schedule:          getEnv("BACKUP_SCHEDULE", "0 0 3 * * *"),
			RetentionDays:     getEnvAsInt("BACKUP_RETENTION_DAYS", 14),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required fields and value ranges
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("SECRET_KEY is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.SessionLifetime <= 0 {
		return fmt.Errorf("SESSION_LIFETIME must be positive")
	}
	if c.CopyTrade.Timeout <= 0 {
		return fmt.Errorf("COPYTRADE_TIMEOUT must be positive")
	}
	if c.CopyTrade.RateLimit < 0 {
		return fmt.Errorf("COPYTRADE_RATE_LIMIT must not be negative")
	}
	if c.Positions.CacheTTL <= 0 {
		return fmt.Errorf("POSITIONS_CACHE_TTL must be positive")
	}
	if c.Positions.MaxWorkers <= 0 {
		return fmt.Errorf("POSITIONS_MAX_WORKERS must be positive")
	}
	if c.Positions.FetchTimeout <= 0 {
		return fmt.Errorf("POSITIONS_FETCH_TIMEOUT must be positive")
	}
	if c.Positions.CacheIdle < c.Positions.CacheTTL {
		return fmt.Errorf("POSITIONS_CACHE_IDLE must be at least POSITIONS_CACHE_TTL")
	}
	return nil
}

// SecureCookies reports whether cookies should carry the Secure flag
func (c *Config) SecureCookies() bool {
	return strings.HasPrefix(c.BaseURL, "https://")
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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

// getEnvAsDuration accepts Go durations ("90s") or bare seconds ("90")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
