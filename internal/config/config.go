package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	SourceRemote = "remote"
	SourceCache  = "cache"
)

type Config struct {
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	DBPath    string `envconfig:"DB_PATH" default:"data/plantshop.db"`
	OutputDir string `envconfig:"OUTPUT_DIR" default:"out"`

	CatalogAPIBaseURL      string        `envconfig:"CATALOG_API_BASE_URL" default:"https://openapi.programming-hero.com/api"`
	CatalogSource          string        `envconfig:"CATALOG_SOURCE" default:"remote"`
	CatalogRateLimitRPS    int           `envconfig:"CATALOG_RATE_LIMIT_RPS" default:"5"`
	CatalogTimeout         time.Duration `envconfig:"CATALOG_TIMEOUT" default:"30s"`
	CatalogMaxAttempts     int           `envconfig:"CATALOG_MAX_ATTEMPTS" default:"5"`
	CatalogSyncConcurrency int           `envconfig:"CATALOG_SYNC_CONCURRENCY" default:"4"`
	CatalogSyncDetails     bool          `envconfig:"CATALOG_SYNC_DETAILS" default:"true"`

	HTTPServerPort         string        `envconfig:"HTTP_SERVER_PORT" default:"8080"`
	HTTPServerTimeoutRead  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_READ" default:"15s"`
	HTTPServerTimeoutWrite time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_WRITE" default:"15s"`
	HTTPServerTimeoutIdle  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_IDLE" default:"60s"`

	CartSessionIdleTTL time.Duration `envconfig:"CART_SESSION_IDLE_TTL" default:"24h"`
	CartMaxSessions    int           `envconfig:"CART_MAX_SESSIONS" default:"10000"`

	SyncInterval   time.Duration `envconfig:"SYNC_INTERVAL" default:"1h"`
	SyncAutoExport bool          `envconfig:"SYNC_AUTO_EXPORT" default:"false"`

	ReceiptFromName    string `envconfig:"RECEIPT_FROM_NAME" default:"Plant Shop"`
	ReceiptFromAddress string `envconfig:"RECEIPT_FROM_ADDRESS" default:"orders@plantshop.local"`
}

// Load reads .env when present and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to process configuration: %w", err)
	}

	cfg.CatalogSource = strings.ToLower(strings.TrimSpace(cfg.CatalogSource))
	switch cfg.CatalogSource {
	case SourceRemote, SourceCache:
	default:
		return Config{}, fmt.Errorf("unsupported CATALOG_SOURCE: %s", cfg.CatalogSource)
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required value: %s", name)
	}
	return nil
}

func (c Config) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, "development")
}
