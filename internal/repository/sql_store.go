package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"caseopener-rest-api/internal/model"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore implements Store on database/sql for SQLite, PostgreSQL and MySQL.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect) (*SQLStore, error) {
	if err := migrate(ctx, db, d); err != nil {
		return nil, err
	}
	return &SQLStore{db: db, dialect: d}, nil
}

// Dialect returns the backend name.
func (s *SQLStore) Dialect() string {
	return s.dialect.name
}

// DB exposes the underlying pool.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

func (s *SQLStore) exec(ctx context.Context, q queryer, query string, args ...any) (sql.Result, error) {
	return q.ExecContext(ctx, s.dialect.rebind(query), args...)
}

func (s *SQLStore) query(ctx context.Context, q queryer, query string, args ...any) (*sql.Rows, error) {
	return q.QueryContext(ctx, s.dialect.rebind(query), args...)
}

func (s *SQLStore) queryRow(ctx context.Context, q queryer, query string, args ...any) *sql.Row {
	return q.QueryRowContext(ctx, s.dialect.rebind(query), args...)
}

// insertID runs an INSERT and returns the generated primary key.
func (s *SQLStore) insertID(ctx context.Context, q queryer, query string, args ...any) (int64, error) {
	if s.dialect.returning {
		var id int64
		err := s.queryRow(ctx, q, query+" RETURNING id", args...).Scan(&id)
		return id, err
	}
	res, err := s.exec(ctx, q, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func now() time.Time {
	return time.Now().UTC()
}

// --- items ---

const itemColumns = `id, name, value, image, rarity, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (model.Item, error) {
	var (
		it     model.Item
		image  sql.NullString
		rarity sql.NullString
	)
	if err := row.Scan(&it.ID, &it.Name, &it.Value, &image, &rarity, &it.CreatedAt); err != nil {
		return model.Item{}, err
	}
	it.Image = image.String
	it.Rarity = rarity.String
	return it, nil
}

func (s *SQLStore) listItems(ctx context.Context, query string, args ...any) ([]model.Item, error) {
	rows, err := s.query(ctx, s.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return items, nil
}

// ListItems returns every catalog item ordered by id.
func (s *SQLStore) ListItems(ctx context.Context) ([]model.Item, error) {
	return s.listItems(ctx, `SELECT `+itemColumns+` FROM items ORDER BY id`)
}

// ListItemsByRarities returns items whose rarity is in the given set.
func (s *SQLStore) ListItemsByRarities(ctx context.Context, rarities []string) ([]model.Item, error) {
	if len(rarities) == 0 {
		return s.ListItems(ctx)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(rarities)), ", ")
	args := make([]any, len(rarities))
	for i, r := range rarities {
		args[i] = r
	}

	query := `SELECT ` + itemColumns + ` FROM items WHERE rarity IN (` + placeholders + `) ORDER BY id`
	return s.listItems(ctx, query, args...)
}

// GetItemByName finds an item by its unique name.
func (s *SQLStore) GetItemByName(ctx context.Context, name string) (*model.Item, error) {
	row := s.queryRow(ctx, s.db, `SELECT `+itemColumns+` FROM items WHERE name = ?`, name)
	it, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return &it, nil
}

// CreateItem inserts an item and sets its ID.
func (s *SQLStore) CreateItem(ctx context.Context, item *model.Item) error {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now()
	}
	id, err := s.insertID(ctx, s.db,
		`INSERT INTO items (name, value, image, rarity, created_at) VALUES (?, ?, ?, ?, ?)`,
		item.Name, item.Value, nullString(item.Image), nullString(item.Rarity), item.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("item %q: %w", item.Name, ErrDuplicate)
		}
		return fmt.Errorf("failed to create item: %w", err)
	}
	item.ID = id
	return nil
}

// UpdateItem overwrites value, image and rarity of an existing item.
func (s *SQLStore) UpdateItem(ctx context.Context, item model.Item) error {
	res, err := s.exec(ctx, s.db,
		`UPDATE items SET value = ?, image = ?, rarity = ? WHERE id = ?`,
		item.Value, nullString(item.Image), nullString(item.Rarity), item.ID)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	return requireAffected(res, s.dialect)
}

// ListItemsMissingRarity returns items stored without a rarity label.
func (s *SQLStore) ListItemsMissingRarity(ctx context.Context) ([]model.Item, error) {
	return s.listItems(ctx, `SELECT `+itemColumns+` FROM items WHERE rarity IS NULL OR rarity = '' ORDER BY id`)
}

// SetItemRarity assigns a rarity label to one item.
func (s *SQLStore) SetItemRarity(ctx context.Context, id int64, rarity string) error {
	res, err := s.exec(ctx, s.db, `UPDATE items SET rarity = ? WHERE id = ?`, rarity, id)
	if err != nil {
		return fmt.Errorf("failed to set item rarity: %w", err)
	}
	return requireAffected(res, s.dialect)
}

// SeedIfEmpty inserts items only when the catalog has no rows.
func (s *SQLStore) SeedIfEmpty(ctx context.Context, items []model.Item) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var count int64
	if err := s.queryRow(ctx, tx, `SELECT COUNT(*) FROM items`).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to count items: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	stmt, err := tx.PrepareContext(ctx, s.dialect.rebind(s.dialect.insertItemOnce))
	if err != nil {
		return false, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	inserted := false
	createdAt := now()
	for _, it := range items {
		res, err := stmt.ExecContext(ctx, it.Name, it.Value, nullString(it.Image), nullString(it.Rarity), createdAt)
		if err != nil {
			return false, fmt.Errorf("failed to seed item %s: %w", it.Name, err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			inserted = true
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return inserted, nil
}

// CountItems returns the number of catalog items.
func (s *SQLStore) CountItems(ctx context.Context) (int64, error) {
	var n int64
	if err := s.queryRow(ctx, s.db, `SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return n, nil
}

// --- users ---

const userColumns = `id, username, password_hash, money, total_spent, created_at`

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Money, &u.TotalSpent, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a user and sets its ID.
func (s *SQLStore) CreateUser(ctx context.Context, user *model.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now()
	}
	id, err := s.insertID(ctx, s.db,
		`INSERT INTO users (username, password_hash, money, total_spent, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.Username, user.PasswordHash, user.Money, user.TotalSpent, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("username %q: %w", user.Username, ErrDuplicate)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.ID = id
	return nil
}

func (s *SQLStore) getUser(ctx context.Context, q queryer, where string, arg any) (*model.User, error) {
	u, err := scanUser(s.queryRow(ctx, q, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetUserByID finds a user by id.
func (s *SQLStore) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return s.getUser(ctx, s.db, `id = ?`, id)
}

// GetUserByUsername finds a user by username.
func (s *SQLStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.getUser(ctx, s.db, `username = ?`, username)
}

// AdjustMoney adds delta to the balance without touching the spend ledger.
func (s *SQLStore) AdjustMoney(ctx context.Context, id int64, delta int64) (*model.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := s.exec(ctx, tx, `UPDATE users SET money = money + ? WHERE id = ?`, delta, id)
	if err != nil {
		return nil, fmt.Errorf("failed to adjust money: %w", err)
	}
	if err := requireAffected(res, s.dialect); err != nil {
		return nil, err
	}

	u, err := s.getUser(ctx, tx, `id = ?`, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return u, nil
}

// CountUsers returns the number of accounts.
func (s *SQLStore) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := s.queryRow(ctx, s.db, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// --- inventory ---

const inventoryQuery = `
	SELECT ii.id, ii.user_id, ii.item_id, ii.quantity, ii.created_at,
	       i.id, i.name, i.value, i.image, i.rarity
	FROM inventory_items ii
	LEFT JOIN items i ON i.id = ii.item_id
	WHERE ii.user_id = ?
	ORDER BY ii.id`

func (s *SQLStore) listInventory(ctx context.Context, q queryer, userID int64) ([]model.InventoryEntry, error) {
	rows, err := s.query(ctx, q, inventoryQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory: %w", err)
	}
	defer rows.Close()

	var entries []model.InventoryEntry
	for rows.Next() {
		var (
			e      model.InventoryEntry
			itemID sql.NullInt64
			name   sql.NullString
			value  sql.NullInt64
			image  sql.NullString
			rarity sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.ItemID, &e.Quantity, &e.CreatedAt,
			&itemID, &name, &value, &image, &rarity); err != nil {
			return nil, fmt.Errorf("failed to scan inventory entry: %w", err)
		}
		if itemID.Valid {
			e.Item = &model.Item{
				ID:     itemID.Int64,
				Name:   name.String,
				Value:  value.Int64,
				Image:  image.String,
				Rarity: rarity.String,
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate inventory: %w", err)
	}
	return entries, nil
}

// ListInventory returns a user's entries with their items joined.
func (s *SQLStore) ListInventory(ctx context.Context, userID int64) ([]model.InventoryEntry, error) {
	return s.listInventory(ctx, s.db, userID)
}

// --- history ---

// AppendHistory inserts acquisition records in one transaction.
func (s *SQLStore) AppendHistory(ctx context.Context, records []model.AcquisitionRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.dialect.rebind(
		`INSERT INTO acquisition_history (user_id, item_id, case_id, case_name, created_at) VALUES (?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		createdAt := r.CreatedAt
		if createdAt.IsZero() {
			createdAt = now()
		}
		if _, err := stmt.ExecContext(ctx, r.UserID, r.ItemID, r.CaseID, r.CaseName, createdAt.UTC()); err != nil {
			return fmt.Errorf("failed to insert history for user %d: %w", r.UserID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListRecentHistory returns the newest records for a user, newest first.
func (s *SQLStore) ListRecentHistory(ctx context.Context, userID int64, limit int) ([]model.AcquisitionRecord, error) {
	rows, err := s.query(ctx, s.db, `
		SELECT h.id, h.user_id, h.item_id, h.case_id, h.case_name, h.created_at,
		       i.id, i.name, i.value, i.image, i.rarity
		FROM acquisition_history h
		LEFT JOIN items i ON i.id = h.item_id
		WHERE h.user_id = ?
		ORDER BY h.created_at DESC, h.id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []model.AcquisitionRecord
	for rows.Next() {
		var (
			r      model.AcquisitionRecord
			itemID sql.NullInt64
			name   sql.NullString
			value  sql.NullInt64
			image  sql.NullString
			rarity sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.ItemID, &r.CaseID, &r.CaseName, &r.CreatedAt,
			&itemID, &name, &value, &image, &rarity); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		if itemID.Valid {
			r.Item = &model.Item{
				ID:     itemID.Int64,
				Name:   name.String,
				Value:  value.Int64,
				Image:  image.String,
				Rarity: rarity.String,
			}
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}
	return records, nil
}

// --- maintenance ---

// GetStats returns row counts and backend details.
func (s *SQLStore) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := map[string]interface{}{
		"backend": s.dialect.name,
	}

	tables := []string{"users", "items", "inventory_items", "acquisition_history"}
	for _, table := range tables {
		var count int64
		if err := s.queryRow(ctx, s.db, `SELECT COUNT(*) FROM `+table).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		stats[table] = count
	}

	dbStats := s.db.Stats()
	stats["open_connections"] = dbStats.OpenConnections
	stats["in_use"] = dbStats.InUse

	return stats, nil
}

// Ping checks connectivity.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// requireAffected maps "no rows changed" to ErrNotFound. MySQL reports zero
// affected rows for no-op updates, so it is only trusted elsewhere.
func requireAffected(res sql.Result, d dialect) error {
	if d.name == mysqlDialect.name {
		return nil
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Ensure SQLStore implements Store
var _ Store = (*SQLStore)(nil)
