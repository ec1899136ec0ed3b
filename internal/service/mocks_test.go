package service

import (
	"context"
	"errors"

	"github.com/stretchr/testify/mock"

	"caseopener-rest-api/internal/model"
	"caseopener-rest-api/internal/repository"
)

// MockItemRepository implements repository.ItemRepository for testing
type MockItemRepository struct {
	mock.Mock
}

func (m *MockItemRepository) ListItems(ctx context.Context) ([]model.Item, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Item), args.Error(1)
}

func (m *MockItemRepository) ListItemsByRarities(ctx context.Context, rarities []string) ([]model.Item, error) {
	args := m.Called(ctx, rarities)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Item), args.Error(1)
}

func (m *MockItemRepository) GetItemByName(ctx context.Context, name string) (*model.Item, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Item), args.Error(1)
}

func (m *MockItemRepository) CreateItem(ctx context.Context, item *model.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockItemRepository) UpdateItem(ctx context.Context, item model.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockItemRepository) ListItemsMissingRarity(ctx context.Context) ([]model.Item, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Item), args.Error(1)
}

func (m *MockItemRepository) SetItemRarity(ctx context.Context, id int64, rarity string) error {
	args := m.Called(ctx, id, rarity)
	return args.Error(0)
}

func (m *MockItemRepository) SeedIfEmpty(ctx context.Context, items []model.Item) (bool, error) {
	args := m.Called(ctx, items)
	return args.Bool(0), args.Error(1)
}

func (m *MockItemRepository) CountItems(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockHistorySink implements HistorySink for testing
type MockHistorySink struct {
	mock.Mock
}

func (m *MockHistorySink) Record(ctx context.Context, rec model.AcquisitionRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

var errCommitFailed = errors.New("disk I/O error")

// failingCommitStore hands out transactions whose Commit always fails.
type failingCommitStore struct {
	*repository.MemoryStore
}

func (s failingCommitStore) BeginSpinTx(ctx context.Context, userID int64) (repository.SpinTx, error) {
	tx, err := s.MemoryStore.BeginSpinTx(ctx, userID)
	if err != nil {
		return nil, err
	}
	return failingCommitTx{SpinTx: tx}, nil
}

type failingCommitTx struct {
	repository.SpinTx
}

func (t failingCommitTx) Commit() error {
	_ = t.SpinTx.Rollback()
	return errCommitFailed
}
