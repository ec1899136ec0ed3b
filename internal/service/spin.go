package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"caseopener-rest-api/internal/cache"
	"caseopener-rest-api/internal/catalog"
	"caseopener-rest-api/internal/concurrency"
	"caseopener-rest-api/internal/logger"
	"caseopener-rest-api/internal/metrics"
	"caseopener-rest-api/internal/model"
	"caseopener-rest-api/internal/repository"
	"caseopener-rest-api/internal/selection"
)

// SpinResult is the outcome of one case opening.
type SpinResult struct {
	Reel           []model.ItemView `json:"reel"`
	StopIndex      int              `json:"stopIndex"`
	Win            model.ItemView   `json:"win"`
	InventoryValue int64            `json:"inventoryValue"`
	AutoSeeded     bool             `json:"autoSeeded"`
}

// SpinDeps groups the collaborators of SpinService.
type SpinDeps struct {
	Cases   *catalog.Catalog
	Engine  *selection.Engine
	Items   repository.ItemRepository
	Users   repository.UserRepository
	Spins   repository.SpinStore
	History *HistoryService
	// Pools is optional.
	Pools *cache.PoolCache
	// Starter is inserted when the catalog is empty. Defaults to catalog.StarterItems.
	Starter []model.Item
}

// SpinService charges for a case, draws the winning item and records it.
type SpinService struct {
	cases   *catalog.Catalog
	engine  *selection.Engine
	items   repository.ItemRepository
	users   repository.UserRepository
	spins   repository.SpinStore
	history *HistoryService
	pools   *cache.PoolCache
	starter []model.Item
	locks   *concurrency.LockManager
}

// NewSpinService creates a spin service.
func NewSpinService(deps SpinDeps) *SpinService {
	starter := deps.Starter
	if starter == nil {
		starter = catalog.StarterItems()
	}
	return &SpinService{
		cases:   deps.Cases,
		engine:  deps.Engine,
		items:   deps.Items,
		users:   deps.Users,
		spins:   deps.Spins,
		history: deps.History,
		pools:   deps.Pools,
		starter: starter,
		locks:   concurrency.NewLockManager(),
	}
}

// ListCases returns every case in display order.
func (s *SpinService) ListCases() []catalog.Case {
	return s.cases.List()
}

// GetCase returns one case definition.
func (s *SpinService) GetCase(caseID int) (catalog.Case, error) {
	cs, ok := s.cases.Get(caseID)
	if !ok {
		return catalog.Case{}, ErrCaseNotFound
	}
	return cs, nil
}

// Spin opens caseID for userID.
//
// The spend ledger always grows by the full case price while the balance is
// only reduced by what the user holds. Ledger and inventory are committed
// together; acquisition history is written afterwards on a best-effort basis.
func (s *SpinService) Spin(ctx context.Context, userID int64, caseID int) (*SpinResult, error) {
	start := time.Now()
	log := logger.FromContext(ctx)
	caseLabel := strconv.Itoa(caseID)

	result, cs, err := s.spin(ctx, userID, caseID)
	if err != nil {
		metrics.SpinsTotal.WithLabelValues(caseLabel, spinOutcome(err)).Inc()
		if errors.Is(err, ErrPersistence) {
			log.Error("Spin failed", "user_id", userID, "case_id", caseID, "error", err)
		}
		return nil, err
	}

	metrics.SpinsTotal.WithLabelValues(caseLabel, "ok").Inc()
	metrics.MoneySpentTotal.Add(float64(cs.Price))
	metrics.SpinDuration.Observe(time.Since(start).Seconds())
	rarity := "none"
	if result.Win.Rarity != nil {
		rarity = *result.Win.Rarity
	}
	metrics.ItemsWonTotal.WithLabelValues(rarity).Inc()

	log.Info("Case opened",
		"user_id", userID, "case_id", caseID, "price", cs.Price,
		"item_id", result.Win.ID, "rarity", rarity, "auto_seeded", result.AutoSeeded)
	return result, nil
}

func (s *SpinService) spin(ctx context.Context, userID int64, caseID int) (*SpinResult, catalog.Case, error) {
	cs, ok := s.cases.Get(caseID)
	if !ok {
		return nil, cs, ErrCaseNotFound
	}

	if userID <= 0 {
		return nil, cs, ErrUnauthenticated
	}
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, cs, ErrUnauthenticated
		}
		return nil, cs, persistenceErr("load user", err)
	}

	pool, seeded, err := s.resolvePool(ctx, cs)
	if err != nil {
		return nil, cs, err
	}

	lock := s.locks.UserLock(userID)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.spins.BeginSpinTx(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, cs, ErrUnauthenticated
		}
		return nil, cs, persistenceErr("begin spin", err)
	}
	defer tx.Rollback()

	user := tx.User()
	user.Debit(cs.Price)
	if err := tx.SaveLedger(ctx, user.Money, user.TotalSpent); err != nil {
		return nil, cs, persistenceErr("save ledger", err)
	}

	win := s.engine.PickWeighted(pool)
	reel, stop := s.engine.BuildReel(pool, win)

	if err := tx.IncrementInventory(ctx, win.ID); err != nil {
		return nil, cs, persistenceErr("add inventory", err)
	}

	entries, err := tx.ListInventory(ctx)
	if err != nil {
		return nil, cs, persistenceErr("read inventory", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, cs, persistenceErr("commit spin", err)
	}

	if s.history != nil {
		s.history.RecordAcquisition(ctx, model.AcquisitionRecord{
			UserID:   userID,
			ItemID:   win.ID,
			CaseID:   cs.ID,
			CaseName: cs.Name,
		})
	}

	views := make([]model.ItemView, len(reel))
	for i, it := range reel {
		views[i] = it.View()
	}

	return &SpinResult{
		Reel:           views,
		StopIndex:      stop,
		Win:            win.View(),
		InventoryValue: model.InventoryValue(entries),
		AutoSeeded:     seeded,
	}, cs, nil
}

// resolvePool returns the items a case can drop. It narrows by rarity,
// widens to the whole catalog, and finally seeds an empty catalog.
func (s *SpinService) resolvePool(ctx context.Context, cs catalog.Case) ([]model.Item, bool, error) {
	key := cache.PoolKey(cs.Rarities)
	if s.pools != nil {
		if pool, ok := s.pools.Get(key); ok {
			return pool, false, nil
		}
	}

	pool, err := s.queryPool(ctx, cs.Rarities)
	if err != nil {
		return nil, false, err
	}

	seeded := false
	if len(pool) == 0 {
		inserted, err := s.items.SeedIfEmpty(ctx, s.starter)
		if err != nil {
			logger.FromContext(ctx).Warn("Failed to seed empty catalog", "error", err)
			return nil, false, ErrEmptyPool
		}
		if inserted {
			seeded = true
			metrics.CatalogAutoSeedTotal.Inc()
			logger.FromContext(ctx).Info("Seeded empty catalog with starter items", "count", len(s.starter))
			s.InvalidatePools()
		}

		pool, err = s.queryPool(ctx, cs.Rarities)
		if err != nil {
			return nil, false, err
		}
	}

	if len(pool) == 0 {
		return nil, false, ErrEmptyPool
	}

	if s.pools != nil {
		s.pools.Add(key, pool)
	}
	return pool, seeded, nil
}

func (s *SpinService) queryPool(ctx context.Context, rarities []string) ([]model.Item, error) {
	pool, err := s.items.ListItemsByRarities(ctx, rarities)
	if err != nil {
		return nil, persistenceErr("list items", err)
	}
	if len(pool) > 0 || len(rarities) == 0 {
		return pool, nil
	}
	pool, err = s.items.ListItems(ctx)
	if err != nil {
		return nil, persistenceErr("list items", err)
	}
	return pool, nil
}

// InvalidatePools drops cached pools after catalog writes.
func (s *SpinService) InvalidatePools() {
	if s.pools != nil {
		s.pools.Purge()
	}
}

func spinOutcome(err error) string {
	switch {
	case errors.Is(err, ErrCaseNotFound):
		return "case_not_found"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrEmptyPool):
		return "empty_pool"
	default:
		return "persistence_failure"
	}
}
