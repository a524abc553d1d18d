package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/liamashdown/arbscan/internal/secrets"
)

// FeedSource selects where raw quotes are loaded from
type FeedSource string

const (
	FeedSourceCSV   FeedSource = "csv"
	FeedSourceMySQL FeedSource = "mysql"
	FeedSourceHTTP  FeedSource = "http"
)

// AuthMode represents the authentication mode for the HTTP quote feed
type AuthMode string

const (
	AuthModeNone   AuthMode = "none"
	AuthModeBearer AuthMode = "bearer"
	AuthModeAPIKey AuthMode = "api_key"
)

// Config holds all application configuration
type Config struct {
	// Environment
	Environment string
	LogLevel    string

	// Quote feed
	FeedSource  FeedSource
	FeedCSVPath string

	// Feed database
	FeedDatabaseDSN     string
	DatabaseMaxConns    int
	DatabaseMaxIdleTime time.Duration

	// HTTP feed
	FeedHTTPBaseURL      string
	FeedHTTPAuthMode     AuthMode
	FeedHTTPBearerToken  string
	FeedHTTPAPIKey       string
	FeedHTTPExtraHeaders map[string]string
	FeedHTTPRPS          float64

	// Allocation
	Strategy             string  // unbiased, biased
	Bankroll             float64 // accepted, not used by any computation yet
	TargetPayout         float64 // payout each leg is sized to return
	RequireDistinctBooks bool

	// Range scans
	ScanWorkers int

	// Watch mode
	WatchIntervalSec int

	// Alerts
	AlertMode          string // comma-separated: log, discord, smtp
	DiscordWebhookURLs []string
	DiscordRPS         float64
	SMTPHost           string
	SMTPPort           int
	SMTPUser           string
	SMTPPassword       string
	SMTPFrom           string
	SMTPTo             []string

	// Metrics/Health
	HealthPort int
}

// Load reads configuration from environment variables, after merging a .env
// file from the working directory when one exists
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment:          getEnv("ENVIRONMENT", "production"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		FeedSource:           FeedSource(getEnv("FEED_SOURCE", "csv")),
		FeedCSVPath:          getEnv("FEED_CSV_PATH", "quotes.csv"),
		FeedDatabaseDSN:      secrets.GetOptionalSecret("FEED_DATABASE_DSN", "arbscan:arbscan@tcp(mysql:3306)/odds?parseTime=true"),
		DatabaseMaxConns:     getEnvInt("DATABASE_MAX_CONNS", 10),
		DatabaseMaxIdleTime:  time.Duration(getEnvInt("DATABASE_MAX_IDLE_TIME_MINS", 5)) * time.Minute,
		FeedHTTPBaseURL:      getEnv("FEED_HTTP_BASE_URL", ""),
		FeedHTTPAuthMode:     AuthMode(getEnv("FEED_HTTP_AUTH_MODE", "none")),
		FeedHTTPBearerToken:  secrets.GetOptionalSecret("FEED_HTTP_BEARER_TOKEN", ""),
		FeedHTTPAPIKey:       secrets.GetOptionalSecret("FEED_HTTP_API_KEY", ""),
		FeedHTTPRPS:          getEnvFloat("FEED_HTTP_RPS", 2.0),
		Strategy:             getEnv("STRATEGY", "unbiased"),
		Bankroll:             getEnvFloat("BANKROLL", 0),
		TargetPayout:         getEnvFloat("TARGET_PAYOUT", 100),
		RequireDistinctBooks: getEnvBool("REQUIRE_DISTINCT_BOOKS", false),
		ScanWorkers:          getEnvInt("SCAN_WORKERS", 4),
		WatchIntervalSec:     getEnvInt("WATCH_INTERVAL_SEC", 300),
		AlertMode:            getEnv("ALERT_MODE", "log"),
		DiscordRPS:           getEnvFloat("DISCORD_RPS", 0.5),
		SMTPHost:             getEnv("SMTP_HOST", ""),
		SMTPPort:             getEnvInt("SMTP_PORT", 587),
		SMTPUser:             getEnv("SMTP_USER", ""),
		SMTPPassword:         secrets.GetOptionalSecret("SMTP_PASSWORD", ""),
		SMTPFrom:             getEnv("SMTP_FROM", "arbscan@example.com"),
		HealthPort:           getEnvInt("HEALTH_PORT", 8080),
	}

	cfg.DiscordWebhookURLs = parseCSV(secrets.GetOptionalSecret("DISCORD_WEBHOOK_URLS", ""))
	cfg.SMTPTo = parseCSV(getEnv("SMTP_TO", ""))

	extraHeadersJSON := getEnv("FEED_HTTP_EXTRA_HEADERS", "{}")
	if err := json.Unmarshal([]byte(extraHeadersJSON), &cfg.FeedHTTPExtraHeaders); err != nil {
		return nil, fmt.Errorf("invalid FEED_HTTP_EXTRA_HEADERS JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration for errors. The strategy name itself is
// checked by the scanner so the error carries the allocation error type.
func (c *Config) Validate() error {
	switch c.FeedSource {
	case FeedSourceCSV:
		if c.FeedCSVPath == "" {
			return fmt.Errorf("FEED_CSV_PATH is required when FEED_SOURCE is csv")
		}
	case FeedSourceMySQL:
		if c.FeedDatabaseDSN == "" {
			return fmt.Errorf("FEED_DATABASE_DSN is required when FEED_SOURCE is mysql")
		}
	case FeedSourceHTTP:
		if c.FeedHTTPBaseURL == "" {
			return fmt.Errorf("FEED_HTTP_BASE_URL is required when FEED_SOURCE is http")
		}
		if err := c.validateAuthMode(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid FEED_SOURCE: %s (must be csv, mysql, or http)", c.FeedSource)
	}

	if !isFinite(c.TargetPayout) || c.TargetPayout <= 0 {
		return fmt.Errorf("TARGET_PAYOUT must be a positive finite number, got %v", c.TargetPayout)
	}
	if !isFinite(c.Bankroll) || c.Bankroll < 0 {
		return fmt.Errorf("BANKROLL must be a non-negative finite number, got %v", c.Bankroll)
	}
	if c.ScanWorkers < 1 {
		return fmt.Errorf("SCAN_WORKERS must be at least 1, got %d", c.ScanWorkers)
	}

	return c.validateAlertMode()
}

func (c *Config) validateAuthMode() error {
	switch c.FeedHTTPAuthMode {
	case AuthModeNone:
	case AuthModeBearer:
		if c.FeedHTTPBearerToken == "" {
			return fmt.Errorf("FEED_HTTP_BEARER_TOKEN is required when FEED_HTTP_AUTH_MODE is bearer")
		}
	case AuthModeAPIKey:
		if c.FeedHTTPAPIKey == "" {
			return fmt.Errorf("FEED_HTTP_API_KEY is required when FEED_HTTP_AUTH_MODE is api_key")
		}
	default:
		return fmt.Errorf("invalid FEED_HTTP_AUTH_MODE: %s (must be none, bearer, or api_key)", c.FeedHTTPAuthMode)
	}
	return nil
}

func (c *Config) validateAlertMode() error {
	for _, mode := range c.AlertModes() {
		switch mode {
		case "log":
		case "discord":
			if len(c.DiscordWebhookURLs) == 0 {
				return fmt.Errorf("DISCORD_WEBHOOK_URLS is required when discord is in ALERT_MODE")
			}
		case "smtp":
			if c.SMTPHost == "" {
				return fmt.Errorf("SMTP_HOST is required when smtp is in ALERT_MODE")
			}
			if len(c.SMTPTo) == 0 {
				return fmt.Errorf("SMTP_TO is required when smtp is in ALERT_MODE")
			}
		default:
			return fmt.Errorf("invalid ALERT_MODE value: %s (valid values: log, discord, smtp)", mode)
		}
	}
	return nil
}

// AlertModes returns the trimmed, non-empty entries of AlertMode
func (c *Config) AlertModes() []string {
	return parseCSV(c.AlertMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// strconv.ParseFloat accepts "NaN" and "Inf"
func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func parseCSV(s string) []string {
	var result []string
	for _, item := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
