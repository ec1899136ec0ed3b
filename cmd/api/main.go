package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"caseopener-rest-api/internal/bootstrap"
	"caseopener-rest-api/internal/cache"
	"caseopener-rest-api/internal/catalog"
	"caseopener-rest-api/internal/config"
	"caseopener-rest-api/internal/handler"
	"caseopener-rest-api/internal/middleware"
	"caseopener-rest-api/internal/router"
	"caseopener-rest-api/internal/selection"
	"caseopener-rest-api/internal/service"
)

func main() {
	// Load configuration
	cfg := config.MustLoad()
	bootstrap.SetupLogger(cfg)
	slog.Info("Starting case opener API", "version", cfg.App.Version, "environment", cfg.App.Environment)

	ctx := context.Background()

	// Case definitions and rarity weights
	weights, cases, err := catalog.Load(cfg.Game.CatalogFile)
	if err != nil {
		fatal("Failed to load catalog", err)
	}
	engine, err := selection.NewEngine(weights, selection.ReelConfig{
		Length:      cfg.Game.ReelLength,
		MarginStart: cfg.Game.ReelMarginStart,
		MarginEnd:   cfg.Game.ReelMarginEnd,
	})
	if err != nil {
		fatal("Invalid reel configuration", err)
	}
	slog.Info("Catalog loaded", "cases", cases.Len(), "reel_length", cfg.Game.ReelLength)

	// Store
	store, err := bootstrap.OpenStore(ctx, cfg.Database)
	if err != nil {
		fatal("Failed to open store", err)
	}

	// Redis (optional)
	redisClient, err := bootstrap.OpenRedis(ctx, cfg.Cache)
	if err != nil {
		fatal("Failed to connect to Redis", err)
	}
	sessions := bootstrap.SessionCache(redisClient, cfg.Cache)

	// Acquisition history: buffered through Redis or written directly
	var historyBuffer *cache.RedisHistoryBuffer
	var historySink service.HistorySink = service.NewDirectHistorySink(store)
	if cfg.History.Buffered && redisClient != nil {
		historyBuffer = cache.NewRedisHistoryBuffer(redisClient, cache.RedisBufferConfig{
			FlushInterval: cfg.History.FlushInterval,
			KeyPrefix:     cfg.Cache.KeyPrefix + "history",
		}, service.HistoryFlushFunc(store))
		historySink = historyBuffer
	}

	// Services
	pools := cache.NewPoolCache(cfg.Game.PoolCacheSize, cfg.Game.PoolCacheTTL)
	tokens := service.NewTokenService(sessions, cfg.App.SessionTTL)
	authService := service.NewAuthService(store, tokens, cfg.App.StartingMoney)
	historyService := service.NewHistoryService(historySink, store, cfg.History.RecentLimit)
	economyService := service.NewEconomyService(store, store)
	spinService := service.NewSpinService(service.SpinDeps{
		Cases:   cases,
		Engine:  engine,
		Items:   store,
		Users:   store,
		Spins:   store,
		History: historyService,
		Pools:   pools,
	})
	catalogService := service.NewCatalogService(store, pools)

	var assets fs.FS
	if info, err := os.Stat(cfg.Game.AssetDir); err == nil && info.IsDir() {
		assets = os.DirFS(cfg.Game.AssetDir)
	} else {
		slog.Warn("Asset directory not found, catalog sync limited to rarity backfill", "dir", cfg.Game.AssetDir)
	}
	catalogSync := service.NewCatalogSyncScheduler(catalogService, service.CatalogSyncConfig{
		Assets:    assets,
		URLPrefix: cfg.Game.AssetURLPrefix,
		Interval:  cfg.Game.CatalogSyncPeriod,
	})

	if cfg.App.SeedDemoUser {
		if err := authService.SeedDemoUser(ctx); err != nil {
			slog.Warn("Failed to seed demo user", "error", err)
		}
	}
	if n, err := catalogService.BackfillRarities(ctx); err != nil {
		slog.Warn("Rarity backfill failed", "error", err)
	} else if n > 0 {
		slog.Info("Rarity backfill complete", "updated", n)
	}
	if cfg.Game.CatalogSyncPeriod > 0 {
		catalogSync.Start()
	}

	// Handlers
	var bufferCounter handler.PendingCounter
	if historyBuffer != nil {
		bufferCounter = historyBuffer
	}

	r := router.New(router.Config{
		Handler:     handler.New(cfg.App.Name, cfg.App.Version, store),
		AuthHandler: handler.NewAuthHandler(authService, int(cfg.App.SessionTTL.Seconds())),
		CaseHandler: handler.NewCaseHandler(spinService),
		MeHandler:   handler.NewMeHandler(economyService, historyService),
		AdminHandler: handler.NewAdminHandler(handler.AdminConfig{
			Stats:         store,
			HistoryBuffer: bufferCounter,
			Economy:       economyService,
			Catalog:       catalogSync,
			DBType:        cfg.Database.Type,
			LoginKey:      cfg.App.LoginKey,
		}),
		AuthMiddleware:  middleware.NewAuthMiddleware(tokens),
		AdminMiddleware: middleware.NewLoginKeyMiddleware(cfg.App.LoginKey),
		CORSOrigins:     cfg.Server.CORSOrigins,
		StaticDir:       "./static",
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		slog.Info("Server listening", "addr", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("Server error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	bootstrap.GracefulShutdown(shutdownCtx, bootstrap.ShutdownComponents{
		Server:        srv,
		CatalogSync:   catalogSync,
		HistoryBuffer: historyBuffer,
		Sessions:      sessions,
		Redis:         redisClient,
		Store:         store,
	})
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
