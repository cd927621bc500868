package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/inkworks/inkworks/internal/platform/cache"
	"github.com/inkworks/inkworks/internal/platform/db"
)

// Infra holds the connections shared by the binaries.
type Infra struct {
	Pool   *pgxpool.Pool
	Redis  *redis.Client
	logger *slog.Logger
}

// OpenInfra connects to postgres and redis. A redis that does not answer the
// first ping is logged and kept: the client reconnects on its own.
func OpenInfra(ctx context.Context, cfg *Config, logger *slog.Logger) (*Infra, error) {
	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConn, MaxConnIdleTime: cfg.PGIdle})
	if err != nil {
		return nil, fmt.Errorf("app: connect postgres: %w", err)
	}
	client, err := cache.New(ctx, cfg.RedisAddr)
	if client == nil {
		pool.Close()
		return nil, fmt.Errorf("app: redis: %w", err)
	}
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	return &Infra{Pool: pool, Redis: client, logger: logger}, nil
}

// Close releases both connections.
func (i *Infra) Close() {
	if i == nil {
		return
	}
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			i.logger.Warn("redis close", slog.Any("error", err))
		}
	}
	if i.Pool != nil {
		i.Pool.Close()
	}
}
