package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

// NewMySQLStore connects to MySQL and migrates the schema.
// The DSN must set parseTime=true.
func NewMySQLStore(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	store, err := newSQLStore(ctx, db, mysqlDialect)
	if err != nil {
		db.Close()
		return nil, err
	}

	slog.Info("MySQL store initialized")
	return store, nil
}
