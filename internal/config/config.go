package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	AI        AIConfig
	MongoDB   MongoDBConfig
	Sheets    SheetsConfig
	Redis     RedisConfig
	Scheduler SchedulerConfig
	Log       LogConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port           string
	AllowedOrigins []string
}

// AIConfig holds settings for the Gemini forecast client.
type AIConfig struct {
	GeminiKey      string
	Model          string
	BaseURL        string
	ThinkingBudget int
	Timeout        time.Duration
}

// MongoDBConfig holds settings for the forecast history store. An empty URI
// disables it.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// SheetsConfig contains configuration required to export forecasts to Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// Enabled reports whether the export log is configured.
func (s SheetsConfig) Enabled() bool {
	return s.CredentialsPath != "" && s.SpreadsheetID != ""
}

// RedisConfig holds the forecast cache settings. An empty URL disables caching.
type RedisConfig struct {
	URL string
	TTL time.Duration
}

// SchedulerConfig holds cron settings for background jobs.
type SchedulerConfig struct {
	WatchlistCron string
	DigestCron    string
	Timezone      string
	Watchlist     []WatchItem
}

// WatchItem is a crop/region combination refreshed on a schedule.
type WatchItem struct {
	Crop     string
	Region   string
	Season   string
	Quantity float64
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are acceptable when configuration comes from the
		// environment directly.
		_ = godotenv.Load()
	}

	thinkingBudget, err := getenvInt("GEMINI_THINKING_BUDGET", 512)
	if err != nil {
		return nil, err
	}
	aiTimeout, err := getenvDuration("AI_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := getenvDuration("FORECAST_CACHE_TTL", 6*time.Hour)
	if err != nil {
		return nil, err
	}
	watchlist, err := ParseWatchlist(os.Getenv("WATCHLIST"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getenvWithDefault("APP_PORT", "8080"),
			AllowedOrigins: splitList(getenvWithDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		AI: AIConfig{
			GeminiKey:      os.Getenv("GEMINI_API_KEY"),
			Model:          getenvWithDefault("GEMINI_MODEL", "gemini-2.5-flash"),
			BaseURL:        getenvWithDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
			ThinkingBudget: thinkingBudget,
			Timeout:        aiTimeout,
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "agriforecast"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
			TTL: cacheTTL,
		},
		Scheduler: SchedulerConfig{
			WatchlistCron: getenvWithDefault("WATCHLIST_CRON", "0 6 * * *"),
			DigestCron:    getenvWithDefault("DIGEST_CRON", "0 20 * * 5"),
			Timezone:      getenvWithDefault("TIMEZONE", "Asia/Kolkata"),
			Watchlist:     watchlist,
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.AI.Model == "" {
		return errors.New("GEMINI_MODEL must not be empty")
	}
	if c.AI.BaseURL == "" {
		return errors.New("GEMINI_BASE_URL must not be empty")
	}
	if c.AI.ThinkingBudget < 0 {
		return errors.New("GEMINI_THINKING_BUDGET must not be negative")
	}
	if c.AI.Timeout <= 0 {
		return errors.New("AI_TIMEOUT must be positive")
	}

	if c.MongoDB.URI != "" && c.MongoDB.DBName == "" {
		return errors.New("MONGODB_DB_NAME must be provided with MONGODB_URI")
	}

	switch {
	case c.Sheets.CredentialsPath != "" && c.Sheets.SpreadsheetID == "":
		return errors.New("GOOGLE_SHEET_DATABASE_ID must be provided with GOOGLE_SHEETS_CREDENTIALS_PATH")
	case c.Sheets.SpreadsheetID != "" && c.Sheets.CredentialsPath == "":
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided with GOOGLE_SHEET_DATABASE_ID")
	}

	if c.Redis.URL != "" && c.Redis.TTL <= 0 {
		return errors.New("FORECAST_CACHE_TTL must be positive")
	}

	if c.Scheduler.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE is invalid: %w", err)
	}

	return nil
}

// ParseWatchlist parses "Crop:Region:Season:Qty" entries separated by commas.
// The quantity is optional.
func ParseWatchlist(value string) ([]WatchItem, error) {
	var items []WatchItem
	for _, entry := range splitList(value) {
		fields := strings.Split(entry, ":")
		if len(fields) < 3 || len(fields) > 4 {
			return nil, fmt.Errorf("WATCHLIST entry %q must be Crop:Region:Season[:Qty]", entry)
		}
		item := WatchItem{
			Crop:   strings.TrimSpace(fields[0]),
			Region: strings.TrimSpace(fields[1]),
			Season: strings.TrimSpace(fields[2]),
		}
		if len(fields) == 4 {
			qty, err := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)
			if err != nil || qty <= 0 {
				return nil, fmt.Errorf("WATCHLIST entry %q has invalid quantity", entry)
			}
			item.Quantity = qty
		}
		items = append(items, item)
	}
	return items, nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
