package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"caseopener-rest-api/internal/concurrency"
	"caseopener-rest-api/internal/model"
)

// MemoryStore is an in-process Store for development and tests.
// Data is lost on restart. Spin transactions hold a per-user lock so
// different users never wait on each other.
type MemoryStore struct {
	mu sync.RWMutex

	users     map[int64]*model.User
	usernames map[string]int64
	items     map[int64]*model.Item
	itemNames map[string]int64
	inventory map[int64]map[int64]*model.InventoryEntry
	history   []model.AcquisitionRecord

	nextUserID    int64
	nextItemID    int64
	nextEntryID   int64
	nextHistoryID int64

	locks *concurrency.LockManager
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[int64]*model.User),
		usernames: make(map[string]int64),
		items:     make(map[int64]*model.Item),
		itemNames: make(map[string]int64),
		inventory: make(map[int64]map[int64]*model.InventoryEntry),
		locks:     concurrency.NewLockManager(),
	}
}

// --- items ---

func (m *MemoryStore) sortedItems(keep func(*model.Item) bool) []model.Item {
	out := make([]model.Item, 0, len(m.items))
	for _, it := range m.items {
		if keep == nil || keep(it) {
			out = append(out, *it)
		}
	}
	slices.SortFunc(out, func(a, b model.Item) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// ListItems returns every catalog item ordered by id.
func (m *MemoryStore) ListItems(ctx context.Context) ([]model.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedItems(nil), nil
}

// ListItemsByRarities returns items whose rarity is in the given set.
func (m *MemoryStore) ListItemsByRarities(ctx context.Context, rarities []string) ([]model.Item, error) {
	if len(rarities) == 0 {
		return m.ListItems(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedItems(func(it *model.Item) bool {
		return it.Rarity != "" && slices.Contains(rarities, it.Rarity)
	}), nil
}

// GetItemByName finds an item by its unique name.
func (m *MemoryStore) GetItemByName(ctx context.Context, name string) (*model.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.itemNames[name]
	if !ok {
		return nil, ErrNotFound
	}
	it := *m.items[id]
	return &it, nil
}

func (m *MemoryStore) insertItemLocked(item *model.Item) error {
	if _, taken := m.itemNames[item.Name]; taken {
		return fmt.Errorf("item %q: %w", item.Name, ErrDuplicate)
	}
	m.nextItemID++
	item.ID = m.nextItemID
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	stored := *item
	m.items[item.ID] = &stored
	m.itemNames[item.Name] = item.ID
	return nil
}

// CreateItem inserts an item and sets its ID.
func (m *MemoryStore) CreateItem(ctx context.Context, item *model.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertItemLocked(item)
}

// UpdateItem overwrites value, image and rarity of an existing item.
func (m *MemoryStore) UpdateItem(ctx context.Context, item model.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.items[item.ID]
	if !ok {
		return ErrNotFound
	}
	stored.Value = item.Value
	stored.Image = item.Image
	stored.Rarity = item.Rarity
	return nil
}

// DeleteItem removes an item from the catalog. Inventory entries that
// reference it are left in place.
func (m *MemoryStore) DeleteItem(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.itemNames, it.Name)
	delete(m.items, id)
	return nil
}

// ListItemsMissingRarity returns items stored without a rarity label.
func (m *MemoryStore) ListItemsMissingRarity(ctx context.Context) ([]model.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedItems(func(it *model.Item) bool { return it.Rarity == "" }), nil
}

// SetItemRarity assigns a rarity label to one item.
func (m *MemoryStore) SetItemRarity(ctx context.Context, id int64, rarity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	it.Rarity = rarity
	return nil
}

// SeedIfEmpty inserts items only when the catalog has no rows.
func (m *MemoryStore) SeedIfEmpty(ctx context.Context, items []model.Item) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.items) > 0 {
		return false, nil
	}
	inserted := false
	for _, it := range items {
		if err := m.insertItemLocked(&it); err == nil {
			inserted = true
		}
	}
	return inserted, nil
}

// CountItems returns the number of catalog items.
func (m *MemoryStore) CountItems(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.items)), nil
}

// --- users ---

// CreateUser inserts a user and sets its ID.
func (m *MemoryStore) CreateUser(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.usernames[user.Username]; taken {
		return fmt.Errorf("username %q: %w", user.Username, ErrDuplicate)
	}
	m.nextUserID++
	user.ID = m.nextUserID
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	stored := *user
	m.users[user.ID] = &stored
	m.usernames[user.Username] = user.ID
	return nil
}

// GetUserByID finds a user by id.
func (m *MemoryStore) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// GetUserByUsername finds a user by username.
func (m *MemoryStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	m.mu.RLock()
	id, ok := m.usernames[username]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return m.GetUserByID(ctx, id)
}

// AdjustMoney adds delta to the balance without touching the spend ledger.
func (m *MemoryStore) AdjustMoney(ctx context.Context, id int64, delta int64) (*model.User, error) {
	lock := m.locks.UserLock(id)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	u.Money += delta
	cp := *u
	return &cp, nil
}

// CountUsers returns the number of accounts.
func (m *MemoryStore) CountUsers(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.users)), nil
}

// --- inventory ---

func (m *MemoryStore) inventoryLocked(userID int64) []model.InventoryEntry {
	owned := m.inventory[userID]
	out := make([]model.InventoryEntry, 0, len(owned))
	for _, e := range owned {
		cp := *e
		if it, ok := m.items[e.ItemID]; ok {
			item := *it
			cp.Item = &item
		} else {
			cp.Item = nil
		}
		out = append(out, cp)
	}
	slices.SortFunc(out, func(a, b model.InventoryEntry) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// ListInventory returns a user's entries with their items joined.
func (m *MemoryStore) ListInventory(ctx context.Context, userID int64) ([]model.InventoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.inventoryLocked(userID), nil
}

// --- history ---

// AppendHistory inserts acquisition records.
func (m *MemoryStore) AppendHistory(ctx context.Context, records []model.AcquisitionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range records {
		m.nextHistoryID++
		r.ID = m.nextHistoryID
		r.Item = nil
		if r.CreatedAt.IsZero() {
			r.CreatedAt = time.Now().UTC()
		}
		m.history = append(m.history, r)
	}
	return nil
}

// ListRecentHistory returns the newest records for a user, newest first.
func (m *MemoryStore) ListRecentHistory(ctx context.Context, userID int64, limit int) ([]model.AcquisitionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.AcquisitionRecord
	for i := len(m.history) - 1; i >= 0 && len(out) < limit; i-- {
		r := m.history[i]
		if r.UserID != userID {
			continue
		}
		if it, ok := m.items[r.ItemID]; ok {
			item := *it
			r.Item = &item
		}
		out = append(out, r)
	}
	return out, nil
}

// --- spin transactions ---

type memorySpinTx struct {
	store  *MemoryStore
	lock   *sync.Mutex
	user   model.User
	ledger bool
	adds   []int64
	done   bool
}

// BeginSpinTx locks the user and stages writes until Commit.
func (m *MemoryStore) BeginSpinTx(ctx context.Context, userID int64) (SpinTx, error) {
	lock := m.locks.UserLock(userID)
	lock.Lock()

	m.mu.RLock()
	u, ok := m.users[userID]
	var snapshot model.User
	if ok {
		snapshot = *u
	}
	m.mu.RUnlock()

	if !ok {
		lock.Unlock()
		return nil, ErrNotFound
	}
	return &memorySpinTx{store: m, lock: lock, user: snapshot}, nil
}

func (t *memorySpinTx) User() model.User {
	return t.user
}

func (t *memorySpinTx) SaveLedger(ctx context.Context, money, totalSpent int64) error {
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	t.user.Money = money
	t.user.TotalSpent = totalSpent
	t.ledger = true
	return nil
}

func (t *memorySpinTx) IncrementInventory(ctx context.Context, itemID int64) error {
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	t.adds = append(t.adds, itemID)
	return nil
}

func (t *memorySpinTx) ListInventory(ctx context.Context) ([]model.InventoryEntry, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	entries := t.store.inventoryLocked(t.user.ID)
	for _, itemID := range t.adds {
		idx := slices.IndexFunc(entries, func(e model.InventoryEntry) bool { return e.ItemID == itemID })
		if idx >= 0 {
			entries[idx].Quantity++
			continue
		}
		e := model.InventoryEntry{UserID: t.user.ID, ItemID: itemID, Quantity: 1}
		if it, ok := t.store.items[itemID]; ok {
			item := *it
			e.Item = &item
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (t *memorySpinTx) Commit() error {
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	m := t.store
	m.mu.Lock()
	defer m.mu.Unlock()
	defer t.finish()

	u, ok := m.users[t.user.ID]
	if !ok {
		return ErrNotFound
	}
	if t.ledger {
		u.Money = t.user.Money
		u.TotalSpent = t.user.TotalSpent
	}

	owned := m.inventory[t.user.ID]
	if owned == nil {
		owned = make(map[int64]*model.InventoryEntry)
		m.inventory[t.user.ID] = owned
	}
	for _, itemID := range t.adds {
		if e, ok := owned[itemID]; ok {
			e.Quantity++
			continue
		}
		m.nextEntryID++
		owned[itemID] = &model.InventoryEntry{
			ID:        m.nextEntryID,
			UserID:    t.user.ID,
			ItemID:    itemID,
			Quantity:  1,
			CreatedAt: time.Now().UTC(),
		}
	}
	return nil
}

func (t *memorySpinTx) Rollback() error {
	if !t.done {
		t.finish()
	}
	return nil
}

func (t *memorySpinTx) finish() {
	t.done = true
	t.lock.Unlock()
}

// --- maintenance ---

// GetStats returns row counts.
func (m *MemoryStore) GetStats(ctx context.Context) (map[string]interface{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := 0
	for _, owned := range m.inventory {
		entries += len(owned)
	}
	return map[string]interface{}{
		"backend":             "memory",
		"users":               int64(len(m.users)),
		"items":               int64(len(m.items)),
		"inventory_items":     int64(entries),
		"acquisition_history": int64(len(m.history)),
	}, nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
