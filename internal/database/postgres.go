package database

import (
	"context"
	"fmt"
	"time"

	"gameforge/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ConnectOptions bounds the connection attempts made by Connect.
type ConnectOptions struct {
	MaxRetries     int
	RetryDelay     time.Duration
	AttemptTimeout time.Duration
}

// DefaultConnectOptions waits long enough for a database container to come up.
func DefaultConnectOptions() ConnectOptions {
	return ConnectOptions{MaxRetries: 50, RetryDelay: 3 * time.Second, AttemptTimeout: 5 * time.Second}
}

// Connect opens a pgx pool and pings it, retrying until the database answers.
func Connect(ctx context.Context, cfg config.PostgresConfig, opts ConnectOptions, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	poolConfig.MaxConnIdleTime = cfg.IdleTimeout
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 1
	}

	logger.Info("Connecting to PostgreSQL",
		zap.String("dsn", cfg.MaskedDSN()),
		zap.Int("max_retries", opts.MaxRetries),
		zap.Duration("retry_delay", opts.RetryDelay))

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= opts.MaxRetries; attempt++ {
		pool, err = tryConnect(ctx, poolConfig, opts.AttemptTimeout)
		if err == nil {
			logger.Info("Connected to PostgreSQL", zap.Int("attempt", attempt))
			return pool, nil
		}
		logger.Warn("PostgreSQL connection attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", opts.MaxRetries),
			zap.Error(err))
		if attempt == opts.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(opts.RetryDelay):
		}
	}
	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", opts.MaxRetries, err)
}

func tryConnect(ctx context.Context, poolConfig *pgxpool.Config, timeout time.Duration) (*pgxpool.Pool, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
