package repository

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseopener-rest-api/internal/model"
)

type storeFactory func(t *testing.T) Store

func newSQLiteTestStore(t *testing.T) Store {
	t.Helper()
	store, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newMemoryTestStore(t *testing.T) Store {
	t.Helper()
	return NewMemoryStore()
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, newMemoryTestStore)
}

func TestSQLiteStore(t *testing.T) {
	runStoreSuite(t, newSQLiteTestStore)
}

func runStoreSuite(t *testing.T, newStore storeFactory) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("items", func(t *testing.T) { testItems(t, newStore(t)) })
	t.Run("seed if empty", func(t *testing.T) { testSeedIfEmpty(t, newStore(t)) })
	t.Run("spin commit", func(t *testing.T) { testSpinCommit(t, newStore(t)) })
	t.Run("spin rollback", func(t *testing.T) { testSpinRollback(t, newStore(t)) })
	t.Run("spin unknown user", func(t *testing.T) { testSpinUnknownUser(t, newStore(t)) })
	t.Run("spin concurrent", func(t *testing.T) { testSpinConcurrent(t, newStore(t)) })
	t.Run("history", func(t *testing.T) { testHistory(t, newStore(t)) })
	t.Run("stats", func(t *testing.T) { testStats(t, newStore(t)) })
}

func createUser(t *testing.T, s Store, name string, money int64) *model.User {
	t.Helper()
	u := &model.User{Username: name, PasswordHash: "hash", Money: money}
	require.NoError(t, s.CreateUser(context.Background(), u))
	require.NotZero(t, u.ID)
	return u
}

func createItem(t *testing.T, s Store, name string, value int64, rarity string) *model.Item {
	t.Helper()
	it := &model.Item{Name: name, Value: value, Rarity: rarity}
	require.NoError(t, s.CreateItem(context.Background(), it))
	require.NotZero(t, it.ID)
	return it
}

func testUsers(t *testing.T, s Store) {
	ctx := context.Background()
	u := createUser(t, s, "alice", 100)

	got, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, int64(100), got.Money)
	assert.Equal(t, int64(0), got.TotalSpent)

	got, err = s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	err = s.CreateUser(ctx, &model.User{Username: "alice", PasswordHash: "x"})
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = s.GetUserByID(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err = s.AdjustMoney(ctx, u.ID, -150)
	require.NoError(t, err)
	assert.Equal(t, int64(-50), got.Money)
	assert.Equal(t, int64(0), got.TotalSpent)

	_, err = s.AdjustMoney(ctx, 9999, 10)
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := s.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func testItems(t *testing.T, s Store) {
	ctx := context.Background()
	pistol := createItem(t, s, "Pistol", 5, "common")
	rifle := createItem(t, s, "Rifle", 120, "rare")
	legacy := createItem(t, s, "Legacy", 300, "")

	all, err := s.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, pistol.ID, all[0].ID)
	assert.Equal(t, "", all[2].Rarity)

	rare, err := s.ListItemsByRarities(ctx, []string{"rare", "legendary"})
	require.NoError(t, err)
	require.Len(t, rare, 1)
	assert.Equal(t, rifle.ID, rare[0].ID)

	none, err := s.ListItemsByRarities(ctx, []string{"immortal"})
	require.NoError(t, err)
	assert.Empty(t, none)

	every, err := s.ListItemsByRarities(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, every, 3)

	err = s.CreateItem(ctx, &model.Item{Name: "Pistol", Value: 1})
	assert.ErrorIs(t, err, ErrDuplicate)

	byName, err := s.GetItemByName(ctx, "Rifle")
	require.NoError(t, err)
	assert.Equal(t, int64(120), byName.Value)

	_, err = s.GetItemByName(ctx, "Nope")
	assert.ErrorIs(t, err, ErrNotFound)

	missing, err := s.ListItemsMissingRarity(ctx)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, legacy.ID, missing[0].ID)

	require.NoError(t, s.SetItemRarity(ctx, legacy.ID, "rare"))
	missing, err = s.ListItemsMissingRarity(ctx)
	require.NoError(t, err)
	assert.Empty(t, missing)

	byName.Image = "static/imgs/rifle.png"
	byName.Value = 130
	require.NoError(t, s.UpdateItem(ctx, *byName))
	byName, err = s.GetItemByName(ctx, "Rifle")
	require.NoError(t, err)
	assert.Equal(t, "static/imgs/rifle.png", byName.Image)
	assert.Equal(t, int64(130), byName.Value)

	n, err := s.CountItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func testSeedIfEmpty(t *testing.T, s Store) {
	ctx := context.Background()
	seed := []model.Item{
		{Name: "A", Value: 1, Rarity: "common"},
		{Name: "B", Value: 2, Rarity: "rare"},
	}

	inserted, err := s.SeedIfEmpty(ctx, seed)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.SeedIfEmpty(ctx, []model.Item{{Name: "C", Value: 3}})
	require.NoError(t, err)
	assert.False(t, inserted)

	n, err := s.CountItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func testSpinCommit(t *testing.T, s Store) {
	ctx := context.Background()
	u := createUser(t, s, "bob", 100)
	it := createItem(t, s, "Pistol", 5, "common")

	tx, err := s.BeginSpinTx(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), tx.User().Money)

	require.NoError(t, tx.SaveLedger(ctx, 75, 25))
	require.NoError(t, tx.IncrementInventory(ctx, it.ID))
	require.NoError(t, tx.IncrementInventory(ctx, it.ID))

	inTx, err := tx.ListInventory(ctx)
	require.NoError(t, err)
	require.Len(t, inTx, 1)
	assert.Equal(t, int64(2), inTx[0].Quantity)
	assert.Equal(t, int64(10), model.InventoryValue(inTx))

	require.NoError(t, tx.Commit())
	require.NoError(t, tx.Rollback(), "rollback after commit is a no-op")

	got, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(75), got.Money)
	assert.Equal(t, int64(25), got.TotalSpent)

	inv, err := s.ListInventory(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, inv, 1)
	assert.Equal(t, int64(2), inv[0].Quantity)
	require.NotNil(t, inv[0].Item)
	assert.Equal(t, "Pistol", inv[0].Item.Name)
}

func testSpinRollback(t *testing.T, s Store) {
	ctx := context.Background()
	u := createUser(t, s, "carol", 100)
	it := createItem(t, s, "Pistol", 5, "common")

	tx, err := s.BeginSpinTx(ctx, u.ID)
	require.NoError(t, err)
	require.NoError(t, tx.SaveLedger(ctx, 0, 100))
	require.NoError(t, tx.IncrementInventory(ctx, it.ID))
	require.NoError(t, tx.Rollback())

	got, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.Money)
	assert.Equal(t, int64(0), got.TotalSpent)

	inv, err := s.ListInventory(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, inv)

	// the user lock is released after rollback
	tx, err = s.BeginSpinTx(ctx, u.ID)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
}

func testSpinUnknownUser(t *testing.T, s Store) {
	_, err := s.BeginSpinTx(context.Background(), 424242)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func testSpinConcurrent(t *testing.T, s Store) {
	ctx := context.Background()
	u := createUser(t, s, "dave", 1000)
	it := createItem(t, s, "Pistol", 5, "common")

	const spins = 20
	var wg sync.WaitGroup
	errs := make(chan error, spins)
	for range spins {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx, err := s.BeginSpinTx(ctx, u.ID)
			if err != nil {
				errs <- err
				return
			}
			defer tx.Rollback()

			cur := tx.User()
			cur.Debit(10)
			if err := tx.SaveLedger(ctx, cur.Money, cur.TotalSpent); err != nil {
				errs <- err
				return
			}
			if err := tx.IncrementInventory(ctx, it.ID); err != nil {
				errs <- err
				return
			}
			errs <- tx.Commit()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000-spins*10), got.Money)
	assert.Equal(t, int64(spins*10), got.TotalSpent)

	inv, err := s.ListInventory(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, inv, 1)
	assert.Equal(t, int64(spins), inv[0].Quantity)
}

func testHistory(t *testing.T, s Store) {
	ctx := context.Background()
	u := createUser(t, s, "erin", 0)
	other := createUser(t, s, "frank", 0)
	it := createItem(t, s, "Pistol", 5, "common")

	var records []model.AcquisitionRecord
	for i := range 30 {
		records = append(records, model.AcquisitionRecord{UserID: u.ID, ItemID: it.ID, CaseID: i, CaseName: "Alpha Case 1"})
	}
	require.NoError(t, s.AppendHistory(ctx, records))
	require.NoError(t, s.AppendHistory(ctx, []model.AcquisitionRecord{{UserID: other.ID, ItemID: it.ID, CaseName: "Omega Case 1"}}))
	require.NoError(t, s.AppendHistory(ctx, nil))

	recent, err := s.ListRecentHistory(ctx, u.ID, 25)
	require.NoError(t, err)
	require.Len(t, recent, 25)
	assert.Equal(t, 29, recent[0].CaseID, "newest first")
	require.NotNil(t, recent[0].Item)
	assert.Equal(t, "Pistol", recent[0].Item.Name)
	for _, r := range recent {
		assert.Equal(t, u.ID, r.UserID)
	}
}

func testStats(t *testing.T, s Store) {
	ctx := context.Background()
	createUser(t, s, "gina", 0)
	createItem(t, s, "Pistol", 5, "common")

	stats, err := s.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats["users"])
	assert.Equal(t, int64(1), stats["items"])
	assert.NoError(t, s.Ping(ctx))
}

func TestMemoryStore_OrphanedInventory(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	u := createUser(t, s, "hank", 0)
	it := createItem(t, s, "Gone", 50, "uncommon")

	tx, err := s.BeginSpinTx(ctx, u.ID)
	require.NoError(t, err)
	require.NoError(t, tx.IncrementInventory(ctx, it.ID))
	require.NoError(t, tx.Commit())

	require.NoError(t, s.DeleteItem(ctx, it.ID))

	inv, err := s.ListInventory(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, inv, 1)
	assert.Nil(t, inv[0].Item)
	assert.Equal(t, int64(0), model.InventoryValue(inv))
}

func TestRebind(t *testing.T) {
	q := `SELECT * FROM users WHERE id = ? AND name = ?`
	assert.Equal(t, q, sqliteDialect.rebind(q))
	assert.Equal(t, q, mysqlDialect.rebind(q))
	assert.Equal(t, `SELECT * FROM users WHERE id = $1 AND name = $2`, postgresDialect.rebind(q))
}
