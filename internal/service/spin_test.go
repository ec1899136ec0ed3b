package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"caseopener-rest-api/internal/cache"
	"caseopener-rest-api/internal/catalog"
	"caseopener-rest-api/internal/model"
	"caseopener-rest-api/internal/repository"
	"caseopener-rest-api/internal/selection"
)

type spinFixture struct {
	store *repository.MemoryStore
	svc   *SpinService
}

func newEngine(t *testing.T) *selection.Engine {
	t.Helper()
	engine, err := selection.NewEngine(catalog.DefaultWeights(), selection.DefaultReelConfig(),
		selection.WithSource(rand.New(rand.NewPCG(7, 11))))
	require.NoError(t, err)
	return engine
}

func newSpinFixture(t *testing.T, modify func(*SpinDeps)) *spinFixture {
	t.Helper()
	store := repository.NewMemoryStore()
	deps := SpinDeps{
		Cases:   catalog.DefaultCatalog(),
		Engine:  newEngine(t),
		Items:   store,
		Users:   store,
		Spins:   store,
		History: NewHistoryService(NewDirectHistorySink(store), store, 25),
		Pools:   cache.NewPoolCache(16, time.Minute),
	}
	if modify != nil {
		modify(&deps)
	}
	return &spinFixture{store: store, svc: NewSpinService(deps)}
}

func (f *spinFixture) addUser(t *testing.T, money int64) *model.User {
	t.Helper()
	u := &model.User{Username: "player", PasswordHash: "x", Money: money}
	require.NoError(t, f.store.CreateUser(context.Background(), u))
	return u
}

func (f *spinFixture) addItem(t *testing.T, name, rarity string, value int64) *model.Item {
	t.Helper()
	it := &model.Item{Name: name, Rarity: rarity, Value: value, Image: "static/imgs/weapon/" + name + ".png"}
	require.NoError(t, f.store.CreateItem(context.Background(), it))
	return it
}

func TestSpin_ChargesAndAwards(t *testing.T) {
	ctx := context.Background()
	f := newSpinFixture(t, nil)
	user := f.addUser(t, 100)
	item := f.addItem(t, "pistol", catalog.RarityCommon, 5)

	res, err := f.svc.Spin(ctx, user.ID, 0)
	require.NoError(t, err)

	assert.Equal(t, item.ID, res.Win.ID)
	assert.False(t, res.AutoSeeded)
	assert.Equal(t, int64(5), res.InventoryValue)
	require.Len(t, res.Reel, selection.DefaultReelLength)
	assert.GreaterOrEqual(t, res.StopIndex, selection.DefaultMarginStart)
	assert.Less(t, res.StopIndex, selection.DefaultReelLength-selection.DefaultMarginEnd)
	assert.Equal(t, res.Win, res.Reel[res.StopIndex])

	got, err := f.store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(75), got.Money)
	assert.Equal(t, int64(25), got.TotalSpent)

	inv, err := f.store.ListInventory(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, inv, 1)
	assert.Equal(t, int64(1), inv[0].Quantity)

	roi, err := NewEconomyService(f.store, f.store).ROI(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(-20), roi)

	history, err := f.store.ListRecentHistory(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Alpha Case 1", history[0].CaseName)
	assert.Equal(t, item.ID, history[0].ItemID)
}

func TestSpin_InsufficientFundsStillSpends(t *testing.T) {
	ctx := context.Background()
	f := newSpinFixture(t, nil)
	user := f.addUser(t, 10)
	f.addItem(t, "pistol", catalog.RarityCommon, 5)

	_, err := f.svc.Spin(ctx, user.ID, 0)
	require.NoError(t, err)

	got, err := f.store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Money)
	assert.Equal(t, int64(25), got.TotalSpent)
}

func TestSpin_NegativeBalanceUnchanged(t *testing.T) {
	ctx := context.Background()
	f := newSpinFixture(t, nil)
	user := f.addUser(t, 0)
	f.addItem(t, "pistol", catalog.RarityCommon, 5)
	_, err := f.store.AdjustMoney(ctx, user.ID, -40)
	require.NoError(t, err)

	_, err = f.svc.Spin(ctx, user.ID, 1)
	require.NoError(t, err)

	got, err := f.store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(-40), got.Money)
	assert.Equal(t, int64(50), got.TotalSpent)
}

func TestSpin_TotalSpentAccumulates(t *testing.T) {
	ctx := context.Background()
	f := newSpinFixture(t, nil)
	user := f.addUser(t, 60)
	f.addItem(t, "pistol", catalog.RarityCommon, 5)

	for range 4 {
		_, err := f.svc.Spin(ctx, user.ID, 0)
		require.NoError(t, err)
	}

	got, err := f.store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.TotalSpent)
	assert.Equal(t, int64(0), got.Money)

	value, err := NewEconomyService(f.store, f.store).InventoryTotalValue(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), value)
}

func TestSpin_Errors(t *testing.T) {
	ctx := context.Background()
	f := newSpinFixture(t, nil)
	user := f.addUser(t, 100)
	f.addItem(t, "pistol", catalog.RarityCommon, 5)

	tests := []struct {
		name    string
		userID  int64
		caseID  int
		wantErr error
	}{
		{"unknown case", user.ID, 42, ErrCaseNotFound},
		{"unknown case before auth", 0, 42, ErrCaseNotFound},
		{"no user", 0, 0, ErrUnauthenticated},
		{"negative user", -3, 0, ErrUnauthenticated},
		{"missing user", 999, 0, ErrUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.svc.Spin(ctx, tt.userID, tt.caseID)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	got, err := f.store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.Money)
	assert.Equal(t, int64(0), got.TotalSpent)
}

func TestSpin_FallsBackToFullCatalog(t *testing.T) {
	ctx := context.Background()
	f := newSpinFixture(t, nil)
	user := f.addUser(t, 100)
	relic := f.addItem(t, "relic", catalog.RarityAncient, 750)

	res, err := f.svc.Spin(ctx, user.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, relic.ID, res.Win.ID)
	assert.False(t, res.AutoSeeded)
}

func TestSpin_AutoSeedsEmptyCatalog(t *testing.T) {
	ctx := context.Background()
	f := newSpinFixture(t, nil)
	user := f.addUser(t, 100)

	res, err := f.svc.Spin(ctx, user.ID, 0)
	require.NoError(t, err)
	assert.True(t, res.AutoSeeded)

	names := make([]string, 0)
	for _, it := range catalog.StarterItems() {
		names = append(names, it.Name)
	}
	assert.Contains(t, names, res.Win.Name)

	count, err := f.store.CountItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(len(catalog.StarterItems())), count)

	res, err = f.svc.Spin(ctx, user.ID, 0)
	require.NoError(t, err)
	assert.False(t, res.AutoSeeded)
}

func TestSpin_FailedSeedLeavesUserUntouched(t *testing.T) {
	ctx := context.Background()
	items := new(MockItemRepository)
	items.On("ListItemsByRarities", mock.Anything, mock.Anything).Return([]model.Item{}, nil)
	items.On("ListItems", mock.Anything).Return([]model.Item{}, nil)
	items.On("SeedIfEmpty", mock.Anything, mock.Anything).Return(false, errors.New("read-only database"))

	f := newSpinFixture(t, func(d *SpinDeps) { d.Pools = nil })
	f.svc.items = items
	user := f.addUser(t, 100)

	res, err := f.svc.Spin(ctx, user.ID, 0)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrEmptyPool)
	items.AssertExpectations(t)

	got, err := f.store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.Money)
	assert.Equal(t, int64(0), got.TotalSpent)
}

func TestSpin_EmptyAfterSeed(t *testing.T) {
	ctx := context.Background()
	items := new(MockItemRepository)
	items.On("ListItemsByRarities", mock.Anything, mock.Anything).Return([]model.Item{}, nil)
	items.On("ListItems", mock.Anything).Return([]model.Item{}, nil)
	items.On("SeedIfEmpty", mock.Anything, mock.Anything).Return(false, nil)

	f := newSpinFixture(t, nil)
	f.svc.items = items
	user := f.addUser(t, 100)

	_, err := f.svc.Spin(ctx, user.ID, 0)
	assert.ErrorIs(t, err, ErrEmptyPool)
	assert.Equal(t, ErrMsgEmptyPool, err.Error())
}

func TestSpin_CommitFailureAppliesNothing(t *testing.T) {
	ctx := context.Background()
	f := newSpinFixture(t, nil)
	f.svc.spins = failingCommitStore{MemoryStore: f.store}
	user := f.addUser(t, 100)
	f.addItem(t, "pistol", catalog.RarityCommon, 5)

	res, err := f.svc.Spin(ctx, user.ID, 0)
	assert.Nil(t, res)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, errCommitFailed)

	var perr *PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "commit spin", perr.Op)

	got, err := f.store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.Money)
	assert.Equal(t, int64(0), got.TotalSpent)

	inv, err := f.store.ListInventory(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, inv)

	history, err := f.store.ListRecentHistory(ctx, user.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSpin_HistoryFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	sink := new(MockHistorySink)
	sink.On("Record", mock.Anything, mock.Anything).Return(errors.New("history table locked"))

	f := newSpinFixture(t, nil)
	f.svc.history = NewHistoryService(sink, f.store, 25)
	user := f.addUser(t, 100)
	f.addItem(t, "pistol", catalog.RarityCommon, 5)

	res, err := f.svc.Spin(ctx, user.ID, 0)
	require.NoError(t, err)
	require.NotNil(t, res)
	sink.AssertNumberOfCalls(t, "Record", 1)

	got, err := f.store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(75), got.Money)
}

func TestSpin_ConcurrentSameUser(t *testing.T) {
	ctx := context.Background()
	f := newSpinFixture(t, nil)
	user := f.addUser(t, 1000)
	f.addItem(t, "pistol", catalog.RarityCommon, 5)
	f.addItem(t, "smg", catalog.RarityUncommon, 15)

	const spins = 20
	var wg sync.WaitGroup
	errs := make(chan error, spins)
	for range spins {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Spin(ctx, user.ID, 0)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := f.store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), got.Money)
	assert.Equal(t, int64(500), got.TotalSpent)

	inv, err := f.store.ListInventory(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(spins), model.InventoryCount(inv))
}

func TestSpin_CachedPoolInvalidated(t *testing.T) {
	ctx := context.Background()
	pools := cache.NewPoolCache(16, time.Minute)
	f := newSpinFixture(t, func(d *SpinDeps) { d.Pools = pools })
	user := f.addUser(t, 100)
	f.addItem(t, "pistol", catalog.RarityCommon, 5)

	_, err := f.svc.Spin(ctx, user.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, pools.Len())

	f.svc.InvalidatePools()
	assert.Equal(t, 0, pools.Len())
}

func TestSpinService_Cases(t *testing.T) {
	f := newSpinFixture(t, nil)

	assert.Len(t, f.svc.ListCases(), 10)

	cs, err := f.svc.GetCase(5)
	require.NoError(t, err)
	assert.Equal(t, "Omega Case 1", cs.Name)
	assert.Equal(t, int64(200), cs.Price)

	_, err = f.svc.GetCase(10)
	assert.ErrorIs(t, err, ErrCaseNotFound)
}
