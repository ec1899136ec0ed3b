package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"caseopener-rest-api/internal/model"
)

// sqlSpinTx is a SpinTx over a database/sql transaction.
type sqlSpinTx struct {
	store *SQLStore
	tx    *sql.Tx
	user  model.User
}

// BeginSpinTx starts a transaction and locks the user's row.
// PostgreSQL and MySQL use SELECT ... FOR UPDATE; SQLite takes the database
// write lock at BEGIN (see _txlock=immediate in the DSN).
func (s *SQLStore) BeginSpinTx(ctx context.Context, userID int64) (SpinTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	u, err := s.getUser(ctx, tx, `id = ?`+s.dialect.lockClause, userID)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	return &sqlSpinTx{store: s, tx: tx, user: *u}, nil
}

func (t *sqlSpinTx) User() model.User {
	return t.user
}

func (t *sqlSpinTx) SaveLedger(ctx context.Context, money, totalSpent int64) error {
	_, err := t.store.exec(ctx, t.tx,
		`UPDATE users SET money = ?, total_spent = ? WHERE id = ?`,
		money, totalSpent, t.user.ID)
	if err != nil {
		return fmt.Errorf("failed to save ledger: %w", err)
	}
	t.user.Money = money
	t.user.TotalSpent = totalSpent
	return nil
}

func (t *sqlSpinTx) IncrementInventory(ctx context.Context, itemID int64) error {
	_, err := t.store.exec(ctx, t.tx, t.store.dialect.upsertInventory, t.user.ID, itemID, now())
	if err != nil {
		return fmt.Errorf("failed to increment inventory: %w", err)
	}
	return nil
}

func (t *sqlSpinTx) ListInventory(ctx context.Context) ([]model.InventoryEntry, error) {
	return t.store.listInventory(ctx, t.tx, t.user.ID)
}

func (t *sqlSpinTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (t *sqlSpinTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}
