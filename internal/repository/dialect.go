package repository

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// dialect captures the SQL differences between supported backends.
type dialect struct {
	name          string
	goose         goose.Dialect
	migrationsDir string

	// numbered placeholders ($1, $2, ...) instead of ?
	numbered bool
	// INSERT ... RETURNING id instead of LastInsertId
	returning bool
	// appended to the user SELECT inside a spin transaction
	lockClause string

	upsertInventory string
	insertItemOnce  string
}

var (
	sqliteDialect = dialect{
		name:          "sqlite",
		goose:         goose.DialectSQLite3,
		migrationsDir: "migrations/sqlite",
		upsertInventory: `
			INSERT INTO inventory_items (user_id, item_id, quantity, created_at)
			VALUES (?, ?, 1, ?)
			ON CONFLICT (user_id, item_id) DO UPDATE SET quantity = inventory_items.quantity + 1`,
		insertItemOnce: `
			INSERT INTO items (name, value, image, rarity, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (name) DO NOTHING`,
	}

	postgresDialect = dialect{
		name:          "postgres",
		goose:         goose.DialectPostgres,
		migrationsDir: "migrations/postgres",
		numbered:      true,
		returning:     true,
		lockClause:    " FOR UPDATE",
		upsertInventory: `
			INSERT INTO inventory_items (user_id, item_id, quantity, created_at)
			VALUES (?, ?, 1, ?)
			ON CONFLICT (user_id, item_id) DO UPDATE SET quantity = inventory_items.quantity + 1`,
		insertItemOnce: `
			INSERT INTO items (name, value, image, rarity, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (name) DO NOTHING`,
	}

	mysqlDialect = dialect{
		name:          "mysql",
		goose:         goose.DialectMySQL,
		migrationsDir: "migrations/mysql",
		lockClause:    " FOR UPDATE",
		upsertInventory: `
			INSERT INTO inventory_items (user_id, item_id, quantity, created_at)
			VALUES (?, ?, 1, ?)
			ON DUPLICATE KEY UPDATE quantity = quantity + 1`,
		insertItemOnce: `
			INSERT IGNORE INTO items (name, value, image, rarity, created_at)
			VALUES (?, ?, ?, ?, ?)`,
	}
)

// rebind rewrites ? placeholders for backends that number them.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// isUniqueViolation recognizes unique-key errors from every supported driver.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}

	return false
}
