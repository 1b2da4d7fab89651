package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"cashfree-gateway/pkg/logger"
)

// DBConfig centralizes the PostgreSQL connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	DBName   string
	SSLMode  string

	// Connection pool tuning.
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration

	// Startup retry behaviour. The database frequently comes up after the
	// service in containerized deployments.
	MaxRetries     int
	RetryDelay     time.Duration
	ConnectTimeout time.Duration
}

// PostgresDB manages the pgx connection pool lifecycle.
type PostgresDB struct {
	Pool   *pgxpool.Pool
	Config *DBConfig
}

func NewPostgresDB(config *DBConfig) *PostgresDB {
	if config.MaxConnLifetime <= 0 {
		config.MaxConnLifetime = 5 * time.Minute
	}
	if config.MaxConnIdleTime <= 0 {
		config.MaxConnIdleTime = time.Minute
	}
	if config.HealthCheckPeriod <= 0 {
		config.HealthCheckPeriod = time.Minute
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 5
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = time.Second
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = 10 * time.Second
	}

	return &PostgresDB{Config: config}
}

func (db *PostgresDB) buildConnectionString() string {
	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		db.Config.Username,
		db.Config.Password,
		db.Config.Host,
		db.Config.Port,
		db.Config.DBName,
		db.Config.SSLMode,
	)
}

func (db *PostgresDB) configurePool() (*pgxpool.Config, error) {
	config, err := pgxpool.ParseConfig(db.buildConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = db.Config.MaxConns
	config.MinConns = db.Config.MinConns
	config.MaxConnLifetime = db.Config.MaxConnLifetime
	config.MaxConnIdleTime = db.Config.MaxConnIdleTime
	config.HealthCheckPeriod = db.Config.HealthCheckPeriod
	config.ConnConfig.ConnectTimeout = db.Config.ConnectTimeout

	return config, nil
}

// Connect establishes the pool, retrying with exponential backoff.
func (db *PostgresDB) Connect(ctx context.Context) error {
	config, err := db.configurePool()
	if err != nil {
		return err
	}

	delay := db.Config.RetryDelay
	var lastErr error

	for attempt := 1; attempt <= db.Config.MaxRetries; attempt++ {
		pool, err := pgxpool.NewWithConfig(ctx, config)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				db.Pool = pool
				logger.Info("Database connected", map[string]interface{}{
					"host":      db.Config.Host,
					"database":  db.Config.DBName,
					"max_conns": db.Config.MaxConns,
				})
				return nil
			}
			pool.Close()
		}

		lastErr = err
		logger.Warn("Database connection attempt failed", map[string]interface{}{
			"attempt": attempt,
			"error":   err.Error(),
		})

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return fmt.Errorf("failed to connect to database after %d attempts: %w", db.Config.MaxRetries, lastErr)
}

// HealthCheck pings the pool with a short deadline.
func (db *PostgresDB) HealthCheck(ctx context.Context) error {
	if db.Pool == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}

func (db *PostgresDB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}
