package service

import (
	"context"
	"io/fs"
	"log/slog"
	"sync"
	"time"
)

// CatalogSyncConfig holds configuration for the catalog sync scheduler.
type CatalogSyncConfig struct {
	// Assets is the weapon image tree. Nil limits syncs to rarity backfill.
	Assets fs.FS

	// URLPrefix is prepended to image paths found under Assets.
	URLPrefix string

	// Interval is how often the sync runs.
	// Default: 10 minutes
	Interval time.Duration

	// Timeout bounds a single run.
	// Default: 5 minutes
	Timeout time.Duration
}

// CatalogSyncScheduler periodically re-scans the asset tree into the catalog.
type CatalogSyncScheduler struct {
	catalog   *CatalogService
	config    CatalogSyncConfig
	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex
	runMu     sync.Mutex
}

// NewCatalogSyncScheduler creates a new catalog sync scheduler.
func NewCatalogSyncScheduler(catalog *CatalogService, config CatalogSyncConfig) *CatalogSyncScheduler {
	if config.Interval <= 0 {
		config.Interval = 10 * time.Minute
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Minute
	}
	if config.URLPrefix == "" {
		config.URLPrefix = DefaultAssetURLPrefix
	}

	return &CatalogSyncScheduler{
		catalog: catalog,
		config:  config,
		stopCh:  make(chan struct{}),
	}
}

// Start runs one sync immediately and then one per interval.
func (s *CatalogSyncScheduler) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.ticker = time.NewTicker(s.config.Interval)
	s.mu.Unlock()

	slog.Info("Catalog sync scheduler started", "interval", s.config.Interval)

	go s.run()
}

func (s *CatalogSyncScheduler) run() {
	s.runSync()
	for {
		select {
		case <-s.ticker.C:
			s.runSync()
		case <-s.stopCh:
			slog.Info("Catalog sync scheduler stopped")
			return
		}
	}
}

func (s *CatalogSyncScheduler) runSync() {
	report, err := s.RunNow(context.Background())
	if err != nil {
		slog.Error("Catalog sync failed", "error", err)
		return
	}
	slog.Debug("Catalog sync finished",
		"created", report.Created, "updated", report.Updated, "backfilled", report.Backfilled)
}

// Stop stops the scheduler.
func (s *CatalogSyncScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
		s.isRunning = false
	})
}

// RunNow performs a sync immediately. Concurrent calls are serialized.
func (s *CatalogSyncScheduler) RunNow(ctx context.Context) (IngestReport, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	return s.catalog.Sync(ctx, s.config.Assets, s.config.URLPrefix)
}
