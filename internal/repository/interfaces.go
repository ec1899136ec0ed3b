package repository

import (
	"context"
	"errors"

	"caseopener-rest-api/internal/model"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("duplicate record")
)

// ItemRepository defines catalog item data access methods.
type ItemRepository interface {
	// ListItems returns every catalog item ordered by id.
	ListItems(ctx context.Context) ([]model.Item, error)

	// ListItemsByRarities returns items whose rarity is in the given set.
	// An empty set returns every item.
	ListItemsByRarities(ctx context.Context, rarities []string) ([]model.Item, error)

	// GetItemByName finds an item by its unique name.
	GetItemByName(ctx context.Context, name string) (*model.Item, error)

	// CreateItem inserts an item and sets its ID.
	CreateItem(ctx context.Context, item *model.Item) error

	// UpdateItem overwrites value, image and rarity of an existing item.
	UpdateItem(ctx context.Context, item model.Item) error

	// ListItemsMissingRarity returns items stored without a rarity label.
	ListItemsMissingRarity(ctx context.Context) ([]model.Item, error)

	// SetItemRarity assigns a rarity label to one item.
	SetItemRarity(ctx context.Context, id int64, rarity string) error

	// SeedIfEmpty inserts items only when the catalog has no rows.
	// It reports whether anything was inserted.
	SeedIfEmpty(ctx context.Context, items []model.Item) (bool, error)

	// CountItems returns the number of catalog items.
	CountItems(ctx context.Context) (int64, error)
}

// UserRepository defines user account data access methods.
type UserRepository interface {
	// CreateUser inserts a user and sets its ID. Returns ErrDuplicate for a taken username.
	CreateUser(ctx context.Context, user *model.User) error

	// GetUserByID finds a user by id. Returns ErrNotFound if absent.
	GetUserByID(ctx context.Context, id int64) (*model.User, error)

	// GetUserByUsername finds a user by username. Returns ErrNotFound if absent.
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)

	// AdjustMoney adds delta to the balance without touching the spend ledger.
	AdjustMoney(ctx context.Context, id int64, delta int64) (*model.User, error)

	// CountUsers returns the number of accounts.
	CountUsers(ctx context.Context) (int64, error)
}

// InventoryRepository defines inventory read methods.
type InventoryRepository interface {
	// ListInventory returns a user's entries with their items joined.
	// Entries whose item was removed from the catalog carry a nil Item.
	ListInventory(ctx context.Context, userID int64) ([]model.InventoryEntry, error)
}

// HistoryRepository defines acquisition history data access methods.
type HistoryRepository interface {
	// AppendHistory inserts acquisition records.
	AppendHistory(ctx context.Context, records []model.AcquisitionRecord) error

	// ListRecentHistory returns the newest records for a user, newest first.
	ListRecentHistory(ctx context.Context, userID int64, limit int) ([]model.AcquisitionRecord, error)
}

// SpinStore opens the transaction that applies a spin.
type SpinStore interface {
	// BeginSpinTx starts a transaction holding the user's row lock.
	// Returns ErrNotFound if the user does not exist.
	BeginSpinTx(ctx context.Context, userID int64) (SpinTx, error)
}

// SpinTx is a unit of work over one user's ledger and inventory.
// Nothing is visible to other readers until Commit succeeds.
type SpinTx interface {
	// User returns the locked user row as read at the start of the transaction.
	User() model.User

	// SaveLedger writes the new balance and spend total.
	SaveLedger(ctx context.Context, money, totalSpent int64) error

	// IncrementInventory adds one unit of the item, creating the entry if needed.
	IncrementInventory(ctx context.Context, itemID int64) error

	// ListInventory returns the user's inventory as seen inside the transaction.
	ListInventory(ctx context.Context) ([]model.InventoryEntry, error)

	// Commit applies all writes atomically.
	Commit() error

	// Rollback discards all writes. Safe to call after Commit.
	Rollback() error
}

// Store is the full persistence surface used by the service layer.
type Store interface {
	ItemRepository
	UserRepository
	InventoryRepository
	HistoryRepository
	SpinStore

	// GetStats returns row counts and backend details.
	GetStats(ctx context.Context) (map[string]interface{}, error)

	// Ping checks connectivity.
	Ping(ctx context.Context) error

	// Close closes the underlying connection.
	Close() error
}
