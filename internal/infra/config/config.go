package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken       string
	StorageDriver       string
	DatabaseURL         string
	AdminTelegramID     int64
	LogLevel            string
	Environment         string
	ForecastAPIURL      string
	ForecastAPIKey      string
	ActualsAPIURL       string
	ActualsAPIKey       string
	ExternalCallTimeout time.Duration // timebox for each forecast/actuals/telegram call
	JobTimeout          time.Duration // upper bound for a single job pass
	CronSpecActuals     string
	CronSpecRefresh     string
	CronSpecNotify      string
	CronSpecExpiry      string
	MetricsAddr         string // empty disables the metrics endpoint
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load does not override variables that are already set.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	cfg.StorageDriver = strings.ToLower(envOrDefault("STORAGE_DRIVER", StorageDriverPostgres))
	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is not set")
		}
	case StorageDriverMemory:
	default:
		return nil, fmt.Errorf("invalid STORAGE_DRIVER %q: expected %q or %q", cfg.StorageDriver, StorageDriverPostgres, StorageDriverMemory)
	}

	adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID")
	if adminIDStr == "" {
		return nil, fmt.Errorf("ADMIN_TELEGRAM_ID is not set")
	}
	cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
	}

	cfg.ForecastAPIURL = strings.TrimRight(os.Getenv("FORECAST_API_URL"), "/")
	if cfg.ForecastAPIURL == "" {
		return nil, fmt.Errorf("FORECAST_API_URL is not set")
	}
	cfg.ForecastAPIKey = os.Getenv("FORECAST_API_KEY")

	cfg.ActualsAPIURL = strings.TrimRight(os.Getenv("ACTUALS_API_URL"), "/")
	if cfg.ActualsAPIURL == "" {
		return nil, fmt.Errorf("ACTUALS_API_URL is not set")
	}
	cfg.ActualsAPIKey = os.Getenv("ACTUALS_API_KEY")

	cfg.LogLevel = strings.ToLower(envOrDefault("LOG_LEVEL", "info"))
	cfg.Environment = strings.ToLower(envOrDefault("ENVIRONMENT", "development"))

	if cfg.ExternalCallTimeout, err = durationOrDefault("EXTERNAL_CALL_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.JobTimeout, err = durationOrDefault("JOB_TIMEOUT", 10*time.Minute); err != nil {
		return nil, err
	}

	cfg.CronSpecActuals = envOrDefault("CRON_SPEC_ACTUALS", "0 6 * * *")   // daily at 06:00 UTC
	cfg.CronSpecRefresh = envOrDefault("CRON_SPEC_REFRESH", "0 */3 * * *") // every forecast bucket
	cfg.CronSpecNotify = envOrDefault("CRON_SPEC_NOTIFY", "0 0,12 * * *")  // twice daily
	cfg.CronSpecExpiry = envOrDefault("CRON_SPEC_EXPIRY", "30 3 * * *")

	cfg.MetricsAddr = ":9090"
	if v, ok := os.LookupEnv("METRICS_ADDR"); ok {
		cfg.MetricsAddr = v
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationOrDefault(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}
