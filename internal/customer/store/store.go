package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/MrJamesThe3rd/supiri/internal/customer"
	"github.com/MrJamesThe3rd/supiri/internal/database"
)

type Store struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

type row struct {
	ID        int64  `db:"id"`
	Name      string `db:"name"`
	Email     string `db:"email"`
	Phone     string `db:"phone"`
	Address   string `db:"address"`
	Notes     string `db:"notes"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

func (r row) toCustomer() (*customer.Customer, error) {
	created, err := database.ParseTimestamp(r.CreatedAt)
	if err != nil {
		return nil, err
	}

	updated, err := database.ParseTimestamp(r.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return &customer.Customer{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		Phone:     r.Phone,
		Address:   r.Address,
		Notes:     r.Notes,
		CreatedAt: created,
		UpdatedAt: updated,
	}, nil
}

const selectColumns = `id, name, email, phone, address, notes, created_at, updated_at`

func (s *Store) CreateCustomer(ctx context.Context, c *customer.Customer) error {
	query := s.db.Rebind(`
		INSERT INTO customers (name, email, phone, address, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := s.db.QueryRowxContext(ctx, query,
		c.Name,
		c.Email,
		c.Phone,
		c.Address,
		c.Notes,
		database.Timestamp(c.CreatedAt),
		database.Timestamp(c.UpdatedAt),
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("creating customer: %w", err)
	}

	return nil
}

func (s *Store) GetCustomer(ctx context.Context, id int64) (*customer.Customer, error) {
	var r row

	err := s.db.GetContext(ctx, &r, s.db.Rebind(`SELECT `+selectColumns+` FROM customers WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customer.ErrNotFound
		}

		return nil, fmt.Errorf("getting customer: %w", err)
	}

	return r.toCustomer()
}

func (s *Store) ListCustomers(ctx context.Context) ([]*customer.Customer, error) {
	var rows []row
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+selectColumns+` FROM customers ORDER BY name, id`); err != nil {
		return nil, fmt.Errorf("listing customers: %w", err)
	}

	customers := make([]*customer.Customer, 0, len(rows))

	for _, r := range rows {
		c, err := r.toCustomer()
		if err != nil {
			return nil, fmt.Errorf("scanning customer: %w", err)
		}

		customers = append(customers, c)
	}

	return customers, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, c *customer.Customer) error {
	query := s.db.Rebind(`
		UPDATE customers
		SET name = ?, email = ?, phone = ?, address = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`)

	res, err := s.db.ExecContext(ctx, query,
		c.Name,
		c.Email,
		c.Phone,
		c.Address,
		c.Notes,
		database.Timestamp(c.UpdatedAt),
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("updating customer: %w", err)
	}

	return expectOne(res, "updating customer")
}

func (s *Store) DeleteCustomer(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM customers WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("deleting customer: %w", err)
	}

	return expectOne(res, "deleting customer")
}

func expectOne(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if n == 0 {
		return customer.ErrNotFound
	}

	return nil
}
