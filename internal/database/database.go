package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/MrJamesThe3rd/supiri/internal/config"
)

// New opens and pings the database behind driver. SQLite is limited to a
// single connection since the file is written by one process.
func New(driver config.Driver, dsn string) (*sqlx.DB, error) {
	var name string

	switch driver {
	case config.DriverSQLite:
		name = "sqlite"
	case config.DriverPostgres:
		name = "pgx"
	default:
		return nil, fmt.Errorf("opening database: unsupported driver %q", driver)
	}

	db, err := sqlx.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if driver == config.DriverSQLite {
		db.SetMaxOpenConns(1)
		return db, nil
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// Dates are stored as YYYY-MM-DD text and timestamps as RFC 3339 text so the
// same schema and row mapping work on both drivers.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		id {{pk}},
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS items (
		id {{pk}},
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price BIGINT NOT NULL,
		cost_price BIGINT NOT NULL DEFAULT 0,
		quantity BIGINT NOT NULL DEFAULT 0,
		category TEXT NOT NULL DEFAULT '',
		sku TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sales (
		id {{pk}},
		customer_id BIGINT NOT NULL,
		sale_date TEXT NOT NULL,
		subtotal BIGINT NOT NULL DEFAULT 0,
		discount BIGINT NOT NULL DEFAULT 0,
		tax BIGINT NOT NULL DEFAULT 0,
		final_amount BIGINT NOT NULL DEFAULT 0,
		amount_paid BIGINT NOT NULL DEFAULT 0,
		payment_status TEXT NOT NULL,
		item_count BIGINT NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sale_items (
		id {{pk}},
		sale_id BIGINT NOT NULL,
		item_id BIGINT NOT NULL,
		quantity BIGINT NOT NULL,
		price BIGINT NOT NULL,
		total BIGINT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id {{pk}},
		sale_id BIGINT NOT NULL,
		amount BIGINT NOT NULL,
		payment_date TEXT NOT NULL,
		method TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_customer_id ON sales (customer_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_sale_date ON sales (sale_date)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_payment_status ON sales (payment_status)`,
	`CREATE INDEX IF NOT EXISTS idx_sale_items_sale_id ON sale_items (sale_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sale_items_item_id ON sale_items (item_id)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_sale_id ON payments (sale_id)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_payment_date ON payments (payment_date)`,
}

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	pk := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.DriverName() == "pgx" {
		pk = "BIGSERIAL PRIMARY KEY"
	}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, strings.ReplaceAll(stmt, "{{pk}}", pk)); err != nil {
			return fmt.Errorf("running migration: %w", err)
		}
	}

	return nil
}

const timestampLayout = time.RFC3339Nano

// Timestamp encodes t for a TEXT timestamp column.
func Timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// ParseTimestamp decodes a value written by Timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}

	return t, nil
}

// Date encodes the calendar day of t for a TEXT date column.
func Date(t time.Time) string {
	return t.Format(time.DateOnly)
}

// ParseDate decodes a value written by Date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}

	return t, nil
}
