package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"caseopener-rest-api/internal/cache"
	"caseopener-rest-api/internal/config"
	"caseopener-rest-api/internal/repository"
)

// OpenStore connects the store backend selected by DB_TYPE and migrates it.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig) (repository.Store, error) {
	switch cfg.Type {
	case "memory":
		slog.Warn("Using in-memory store, data is lost on restart")
		return repository.NewMemoryStore(), nil
	case "postgres", "postgresql":
		store, err := repository.NewPostgresStore(ctx, cfg.PostgresDSN(), repository.PostgresOptions{
			Driver:       cfg.PostgresDriver,
			MaxOpenConns: cfg.MaxOpenConns,
			MaxIdleConns: cfg.MaxIdleConns,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		slog.Info("PostgreSQL store initialized", "driver", cfg.PostgresDriver)
		return store, nil
	case "mysql":
		store, err := repository.NewMySQLStore(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MySQL: %w", err)
		}
		slog.Info("MySQL store initialized")
		return store, nil
	case "sqlite", "":
		store, err := repository.NewSQLiteStore(ctx, cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite: %w", err)
		}
		slog.Info("SQLite store initialized", "path", cfg.Path)
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Type)
	}
}

// OpenRedis connects to Redis. It returns nil without error when the cache
// type is not redis.
func OpenRedis(ctx context.Context, cfg config.CacheConfig) (*redis.Client, error) {
	if cfg.Type != "redis" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.RedisAddress(), err)
	}

	slog.Info("Redis client initialized", "addr", cfg.RedisAddress())
	return client, nil
}

// SessionCache returns the token store: Redis when a client is given,
// otherwise an in-process cache.
func SessionCache(client *redis.Client, cfg config.CacheConfig) cache.Cache {
	if client != nil {
		return cache.NewRedisCache(client, cfg.KeyPrefix)
	}
	return cache.NewMemoryCache(time.Minute)
}
