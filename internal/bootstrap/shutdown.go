package bootstrap

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"caseopener-rest-api/internal/cache"
	"caseopener-rest-api/internal/repository"
	"caseopener-rest-api/internal/service"
)

// ShutdownComponents holds all components that need graceful shutdown.
// Nil fields are skipped.
type ShutdownComponents struct {
	Server        *http.Server
	CatalogSync   *service.CatalogSyncScheduler
	HistoryBuffer *cache.RedisHistoryBuffer
	Sessions      cache.Cache
	Redis         *redis.Client
	Store         repository.Store
}

// GracefulShutdown stops components in dependency order:
// 1. HTTP server (stop accepting new requests)
// 2. Background schedulers
// 3. History buffer (drain pending records into the store)
// 4. Caches, Redis and the store
//
// Errors are logged and do not stop the sequence.
func GracefulShutdown(ctx context.Context, c ShutdownComponents) {
	slog.Info("Shutting down server...")

	if c.Server != nil {
		if err := c.Server.Shutdown(ctx); err != nil {
			slog.Error("Server forced to shutdown", "error", err)
		}
	}

	if c.CatalogSync != nil {
		c.CatalogSync.Stop()
	}

	if c.HistoryBuffer != nil {
		slog.Info("Draining history buffer...")
		c.HistoryBuffer.Close()
	}

	if c.Sessions != nil {
		if err := c.Sessions.Close(); err != nil {
			slog.Error("Session cache close failed", "error", err)
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			slog.Error("Redis close failed", "error", err)
		}
	}

	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			slog.Error("Store close failed", "error", err)
		}
	}

	slog.Info("Server stopped")
}
