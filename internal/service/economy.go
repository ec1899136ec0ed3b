package service

import (
	"context"
	"errors"
	"fmt"

	"caseopener-rest-api/internal/logger"
	"caseopener-rest-api/internal/model"
	"caseopener-rest-api/internal/repository"
)

// EconomySummary is the derived financial view of a user.
type EconomySummary struct {
	UserID         int64  `json:"user_id"`
	Username       string `json:"username"`
	Money          int64  `json:"money"`
	TotalSpent     int64  `json:"total_spent"`
	InventoryValue int64  `json:"inventory_value"`
	ItemCount      int64  `json:"item_count"`
	ROI            int64  `json:"roi"`
}

// EconomyService serves read-only balance, inventory and ROI views.
type EconomyService struct {
	users     repository.UserRepository
	inventory repository.InventoryRepository
}

// NewEconomyService creates a new economy service.
func NewEconomyService(users repository.UserRepository, inventory repository.InventoryRepository) *EconomyService {
	return &EconomyService{users: users, inventory: inventory}
}

// InventoryTotalValue sums value x quantity over the user's inventory.
// Entries whose item no longer exists contribute nothing.
func (s *EconomyService) InventoryTotalValue(ctx context.Context, userID int64) (int64, error) {
	entries, err := s.inventory.ListInventory(ctx, userID)
	if err != nil {
		return 0, persistenceErr("list inventory", err)
	}
	return model.InventoryValue(entries), nil
}

// ROI is inventory value minus cumulative spend. It may be negative.
func (s *EconomyService) ROI(ctx context.Context, userID int64) (int64, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	value, err := s.InventoryTotalValue(ctx, userID)
	if err != nil {
		return 0, err
	}
	return value - user.TotalSpent, nil
}

// Summary returns balance, spend, inventory value and ROI in one read.
func (s *EconomyService) Summary(ctx context.Context, userID int64) (*EconomySummary, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	entries, err := s.inventory.ListInventory(ctx, userID)
	if err != nil {
		return nil, persistenceErr("list inventory", err)
	}
	value := model.InventoryValue(entries)
	return &EconomySummary{
		UserID:         user.ID,
		Username:       user.Username,
		Money:          user.Money,
		TotalSpent:     user.TotalSpent,
		InventoryValue: value,
		ItemCount:      model.InventoryCount(entries),
		ROI:            value - user.TotalSpent,
	}, nil
}

// Inventory returns the user's entries, skipping those whose item was deleted.
func (s *EconomyService) Inventory(ctx context.Context, userID int64) ([]model.InventoryEntry, error) {
	entries, err := s.inventory.ListInventory(ctx, userID)
	if err != nil {
		return nil, persistenceErr("list inventory", err)
	}
	out := make([]model.InventoryEntry, 0, len(entries))
	for _, e := range entries {
		if e.Item == nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// GrantMoney adds amount to a user's balance. Negative amounts remove money.
func (s *EconomyService) GrantMoney(ctx context.Context, userID, amount int64) (*model.User, error) {
	user, err := s.users.AdjustMoney(ctx, userID, amount)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, persistenceErr("adjust money", err)
	}
	logger.FromContext(ctx).Info("Money granted", "user_id", userID, "amount", amount, "balance", user.Money)
	return user, nil
}

func (s *EconomyService) getUser(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, persistenceErr(fmt.Sprintf("load user %d", userID), err)
	}
	return user, nil
}
