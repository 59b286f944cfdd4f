package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/MrJamesThe3rd/supiri/internal/database"
	"github.com/MrJamesThe3rd/supiri/internal/item"
)

type Store struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

type row struct {
	ID          int64  `db:"id"`
	Name        string `db:"name"`
	Description string `db:"description"`
	Price       int64  `db:"price"`
	CostPrice   int64  `db:"cost_price"`
	Quantity    int64  `db:"quantity"`
	Category    string `db:"category"`
	SKU         string `db:"sku"`
	CreatedAt   string `db:"created_at"`
	UpdatedAt   string `db:"updated_at"`
}

func (r row) toItem() (*item.Item, error) {
	created, err := database.ParseTimestamp(r.CreatedAt)
	if err != nil {
		return nil, err
	}

	updated, err := database.ParseTimestamp(r.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return &item.Item{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		CostPrice:   r.CostPrice,
		Quantity:    r.Quantity,
		Category:    r.Category,
		SKU:         r.SKU,
		CreatedAt:   created,
		UpdatedAt:   updated,
	}, nil
}

const selectColumns = `id, name, description, price, cost_price, quantity, category, sku, created_at, updated_at`

func (s *Store) CreateItem(ctx context.Context, it *item.Item) error {
	query := s.db.Rebind(`
		INSERT INTO items (name, description, price, cost_price, quantity, category, sku, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := s.db.QueryRowxContext(ctx, query,
		it.Name,
		it.Description,
		it.Price,
		it.CostPrice,
		it.Quantity,
		it.Category,
		it.SKU,
		database.Timestamp(it.CreatedAt),
		database.Timestamp(it.UpdatedAt),
	).Scan(&it.ID)
	if err != nil {
		return fmt.Errorf("creating item: %w", err)
	}

	return nil
}

func (s *Store) GetItem(ctx context.Context, id int64) (*item.Item, error) {
	var r row

	err := s.db.GetContext(ctx, &r, s.db.Rebind(`SELECT `+selectColumns+` FROM items WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, item.ErrNotFound
		}

		return nil, fmt.Errorf("getting item: %w", err)
	}

	return r.toItem()
}

func (s *Store) ListItems(ctx context.Context) ([]*item.Item, error) {
	var rows []row
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+selectColumns+` FROM items ORDER BY name, id`); err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}

	items := make([]*item.Item, 0, len(rows))

	for _, r := range rows {
		it, err := r.toItem()
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}

		items = append(items, it)
	}

	return items, nil
}

func (s *Store) UpdateItem(ctx context.Context, it *item.Item) error {
	query := s.db.Rebind(`
		UPDATE items
		SET name = ?, description = ?, price = ?, cost_price = ?, quantity = ?, category = ?, sku = ?, updated_at = ?
		WHERE id = ?
	`)

	res, err := s.db.ExecContext(ctx, query,
		it.Name,
		it.Description,
		it.Price,
		it.CostPrice,
		it.Quantity,
		it.Category,
		it.SKU,
		database.Timestamp(it.UpdatedAt),
		it.ID,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}

	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("updating item: %w", err)
	} else if n == 0 {
		return item.ErrNotFound
	}

	return nil
}

func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM items WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}

	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("deleting item: %w", err)
	} else if n == 0 {
		return item.ErrNotFound
	}

	return nil
}
