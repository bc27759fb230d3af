// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// DefaultFundSiteBaseURL is the page root that per-ticker paths are appended to.
const DefaultFundSiteBaseURL = "https://www.fundsexplorer.com.br/funds"

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for ledger.db and cache.db (always absolute)
	LogLevel string
	Port     int
	DevMode  bool
	Fetch    FetchConfig
	Backup   BackupConfig
}

// FetchConfig controls the outbound page fetcher and the scheduled batch run
type FetchConfig struct {
	BaseURL      string
	Timeout      time.Duration
	UserAgent    string
	Schedule     string        // Cron spec with seconds; empty disables the scheduled run
	PageCacheTTL time.Duration // Zero disables the page cache
}

// BackupConfig holds the S3-compatible off-site backup settings
type BackupConfig struct {
	Bucket          string
	Endpoint        string // Empty uses the AWS default resolver (R2/MinIO need an explicit endpoint)
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Schedule        string
	RetentionDays   int // Zero keeps every archive
}

// Enabled reports whether enough settings are present to upload backups
func (b BackupConfig) Enabled() bool {
	return b.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("FIIS_DATA_DIR", "./data")

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("PORT", 8000),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Fetch: FetchConfig{
			BaseURL:      strings.TrimRight(getEnv("FUND_SITE_BASE_URL", DefaultFundSiteBaseURL), "/"),
			Timeout:      time.Duration(getEnvAsInt("FETCH_TIMEOUT_SECONDS", 20)) * time.Second,
			UserAgent:    getEnv("FETCH_USER_AGENT", "Mozilla/5.0"),
			Schedule:     lookupEnv("FETCH_SCHEDULE", "0 0 9 * * *"),
			PageCacheTTL: time.Duration(getEnvAsInt("PAGE_CACHE_TTL_MINUTES", 10)) * time.Minute,
		},
		Backup: BackupConfig{
			Bucket:          getEnv("BACKUP_BUCKET", ""),
			Endpoint:        getEnv("BACKUP_ENDPOINT", ""),
			Region:          getEnv("BACKUP_REGION", "auto"),
			AccessKeyID:     getEnv("BACKUP_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("BACKUP_SECRET_ACCESS_KEY", ""),
			Schedule:        getEnv("BACKUP_SCHEDULE", "@daily"),
			RetentionDays:   getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LedgerPath returns the path of the ledger database
func (c *Config) LedgerPath() string {
	return filepath.Join(c.DataDir, "ledger.db")
}

// CachePath returns the path of the page cache database
func (c *Config) CachePath() string {
	return filepath.Join(c.DataDir, "cache.db")
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	u, err := url.Parse(c.Fetch.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid fund site base URL: %q", c.Fetch.BaseURL)
	}

	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive")
	}

	if c.Fetch.PageCacheTTL < 0 {
		return fmt.Errorf("page cache TTL must not be negative")
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if c.Fetch.Schedule != "" {
		if _, err := parser.Parse(c.Fetch.Schedule); err != nil {
			return fmt.Errorf("invalid FETCH_SCHEDULE %q: %w", c.Fetch.Schedule, err)
		}
	}
	if c.Backup.RetentionDays < 0 {
		return fmt.Errorf("backup retention must not be negative")
	}
	if c.Backup.Enabled() {
		if _, err := parser.Parse(c.Backup.Schedule); err != nil {
			return fmt.Errorf("invalid BACKUP_SCHEDULE %q: %w", c.Backup.Schedule, err)
		}
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// lookupEnv distinguishes an explicitly empty variable (disable) from an unset one.
func lookupEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
