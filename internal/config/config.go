package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the whole application configuration, populated from
// environment variables.
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Cashfree CashfreeConfig
	Payment  PaymentConfig
	Jobs     JobsConfig
}

type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Port        string
	Version     string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Host     string
	Password string
	DB       int
}

type JWTConfig struct {
	// Shared secret with the identity service that issues the tokens.
	Secret string
}

// =====================================================
// CASHFREE CONFIGURATION
// =====================================================

type CashfreeConfig struct {
	ClientID      string // x-client-id header
	ClientSecret  string // x-client-secret header
	Mode          string // TEST or PRODUCTION
	WebhookSecret string // HMAC key for webhook verification
}

// PaymentConfig carries the callback surface Cashfree talks back to and
// the browser destinations when a reference document has none.
type PaymentConfig struct {
	ReturnURL   string // browser redirect target, order_id gets appended
	NotifyURL   string // webhook endpoint as seen from Cashfree
	SuccessPath string
	FailurePath string

	StatusCacheTTL time.Duration
}

// JobsConfig drives the background worker.
type JobsConfig struct {
	StaleWindow        time.Duration // age before an Initiated entry is swept
	ReconcileInterval  time.Duration
	WebhookRetryEvery  time.Duration
	ReconcileBatchSize int
}

// Load reads config from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Cashfree Gateway"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "payments"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 25),
			MinConns: getEnvInt("DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		},
		Cashfree: CashfreeConfig{
			ClientID:      getEnv("CASHFREE_CLIENT_ID", ""),
			ClientSecret:  getEnv("CASHFREE_CLIENT_SECRET", ""),
			Mode:          getEnv("CASHFREE_MODE", "TEST"),
			WebhookSecret: getEnv("CASHFREE_WEBHOOK_SECRET", ""),
		},
		Payment: PaymentConfig{
			ReturnURL:      getEnv("PAYMENT_RETURN_URL", "http://localhost:8080/api/v1/payments/return"),
			NotifyURL:      getEnv("PAYMENT_NOTIFY_URL", "http://localhost:8080/api/v1/webhooks/cashfree"),
			SuccessPath:    getEnv("PAYMENT_SUCCESS_PATH", "/payment-success"),
			FailurePath:    getEnv("PAYMENT_FAILURE_PATH", "/payment-failed"),
			StatusCacheTTL: getEnvDuration("PAYMENT_STATUS_CACHE_TTL", 30*time.Second),
		},
		Jobs: JobsConfig{
			StaleWindow:        getEnvDuration("JOB_STALE_WINDOW", 30*time.Minute),
			ReconcileInterval:  getEnvDuration("JOB_RECONCILE_INTERVAL", 10*time.Minute),
			WebhookRetryEvery:  getEnvDuration("JOB_WEBHOOK_RETRY_INTERVAL", 5*time.Minute),
			ReconcileBatchSize: getEnvInt("JOB_RECONCILE_BATCH", 100),
		},
	}

	// Validate critical config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate rejects configurations that cannot work
func (c *Config) Validate() error {
	if c.Cashfree.ClientID == "" || c.Cashfree.ClientSecret == "" {
		return fmt.Errorf("CASHFREE_CLIENT_ID and CASHFREE_CLIENT_SECRET must be set")
	}

	if c.Cashfree.Mode != "TEST" && c.Cashfree.Mode != "PRODUCTION" {
		return fmt.Errorf("CASHFREE_MODE must be TEST or PRODUCTION, got %q", c.Cashfree.Mode)
	}

	if c.App.Environment == "production" {
		if c.JWT.Secret == "your-secret-key-change-in-production" {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD must be set in production")
		}
		if c.Cashfree.WebhookSecret == "" {
			// Webhooks would be rejected fail-closed; refuse to boot in a
			// shape that silently drops every notification.
			return fmt.Errorf("CASHFREE_WEBHOOK_SECRET must be set in production")
		}
	}

	return nil
}

// IsProduction reports whether the Cashfree integration runs against the
// live endpoint.
func (c *CashfreeConfig) IsProduction() bool {
	return c.Mode == "PRODUCTION"
}

// Helper functions
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
