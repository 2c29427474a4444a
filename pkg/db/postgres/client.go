package postgres

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/canopy-network/trackx/pkg/retry"
	"github.com/canopy-network/trackx/pkg/utils"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Client wraps a PostgreSQL connection pool.
type Client struct {
	Logger *zap.Logger
	Pool   *pgxpool.Pool
}

// PoolConfig defines connection pool settings for a specific component
type PoolConfig struct {
	MinConns         int32
	MaxConns         int32
	ConnMaxLifetime  time.Duration
	ConnMaxIdleTime  time.Duration
	StatementTimeout time.Duration
	Component        string // For logging/debugging
}

// New connects to POSTGRES_URL and verifies the pool with a ping, retrying with backoff.
func New(ctx context.Context, logger *zap.Logger, poolConfig ...*PoolConfig) (client Client, err error) {
	connCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	client.Logger = logger

	dbURL := utils.Env("POSTGRES_URL", "postgres://localhost:5432/postgres")
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return Client{}, fmt.Errorf("failed to parse POSTGRES_URL: %w", err)
	}

	poolConf := GetPoolConfigForComponent("")
	if len(poolConfig) > 0 && poolConfig[0] != nil {
		poolConf = poolConfig[0]
	}
	applyPoolConfig(config, poolConf)

	retryErr := retry.WithBackoff(connCtx, retry.DefaultConfig(), logger, "postgres_connection", func() error {
		pool, openErr := pgxpool.NewWithConfig(connCtx, config)
		if openErr != nil {
			return fmt.Errorf("failed to create postgres connection pool: %w", openErr)
		}

		if pingErr := pool.Ping(connCtx); pingErr != nil {
			pool.Close()
			return fmt.Errorf("failed to ping postgres: %w", pingErr)
		}

		client.Pool = pool
		logger.Info("PostgreSQL connection pool configured",
			zap.String("component", poolConf.Component),
			zap.Int32("min_conns", poolConf.MinConns),
			zap.Int32("max_conns", poolConf.MaxConns),
			zap.Duration("statement_timeout", poolConf.StatementTimeout),
		)
		return nil
	})
	if retryErr != nil {
		return Client{}, retryErr
	}

	return client, nil
}

func applyPoolConfig(config *pgxpool.Config, poolConf *PoolConfig) {
	config.MinConns = poolConf.MinConns
	config.MaxConns = poolConf.MaxConns
	config.MaxConnLifetime = poolConf.ConnMaxLifetime
	config.MaxConnIdleTime = poolConf.ConnMaxIdleTime
	if poolConf.StatementTimeout > 0 {
		if config.ConnConfig.RuntimeParams == nil {
			config.ConnConfig.RuntimeParams = map[string]string{}
		}
		config.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(poolConf.StatementTimeout.Milliseconds(), 10)
	}
}

// Version returns the server's SELECT version() string.
func (c *Client) Version(ctx context.Context) (string, error) {
	var version string
	if err := c.Pool.QueryRow(ctx, "SELECT version()").Scan(&version); err != nil {
		return "", fmt.Errorf("select version: %w", err)
	}
	return version, nil
}

// Close closes the connection pool
func (c *Client) Close() {
	c.Pool.Close()
}

// GetPoolConfigForComponent returns deterministic pool settings for each component
func GetPoolConfigForComponent(component string) *PoolConfig {
	conf := &PoolConfig{
		MinConns:         1,
		MaxConns:         20,
		ConnMaxLifetime:  time.Hour,
		ConnMaxIdleTime:  30 * time.Minute,
		StatementTimeout: 60 * time.Second,
		Component:        component,
	}

	switch component {
	case "query":
	case "cli":
		conf.MaxConns = 2
	default:
		conf.Component = "unknown"
	}
	return conf
}
