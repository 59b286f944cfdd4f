package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/MrJamesThe3rd/supiri/internal/database"
	"github.com/MrJamesThe3rd/supiri/internal/sale"
)

// Store keeps sales, line items and payments in three tables with no
// cross-table constraints. The ledger is responsible for ordering writes.
type Store struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

type saleRow struct {
	ID            int64  `db:"id"`
	CustomerID    int64  `db:"customer_id"`
	SaleDate      string `db:"sale_date"`
	Subtotal      int64  `db:"subtotal"`
	Discount      int64  `db:"discount"`
	Tax           int64  `db:"tax"`
	FinalAmount   int64  `db:"final_amount"`
	AmountPaid    int64  `db:"amount_paid"`
	PaymentStatus string `db:"payment_status"`
	ItemCount     int    `db:"item_count"`
	Notes         string `db:"notes"`
	CreatedAt     string `db:"created_at"`
	UpdatedAt     string `db:"updated_at"`
}

func (r saleRow) toSale() (*sale.Sale, error) {
	date, err := database.ParseDate(r.SaleDate)
	if err != nil {
		return nil, err
	}

	created, err := database.ParseTimestamp(r.CreatedAt)
	if err != nil {
		return nil, err
	}

	updated, err := database.ParseTimestamp(r.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return &sale.Sale{
		ID:            r.ID,
		CustomerID:    r.CustomerID,
		SaleDate:      date,
		Subtotal:      r.Subtotal,
		Discount:      r.Discount,
		Tax:           r.Tax,
		FinalAmount:   r.FinalAmount,
		AmountPaid:    r.AmountPaid,
		PaymentStatus: sale.PaymentStatus(r.PaymentStatus),
		ItemCount:     r.ItemCount,
		Notes:         r.Notes,
		CreatedAt:     created,
		UpdatedAt:     updated,
	}, nil
}

type lineItemRow struct {
	ID        int64  `db:"id"`
	SaleID    int64  `db:"sale_id"`
	ItemID    int64  `db:"item_id"`
	Quantity  int64  `db:"quantity"`
	Price     int64  `db:"price"`
	Total     int64  `db:"total"`
	CreatedAt string `db:"created_at"`
}

func (r lineItemRow) toLineItem() (*sale.LineItem, error) {
	created, err := database.ParseTimestamp(r.CreatedAt)
	if err != nil {
		return nil, err
	}

	return &sale.LineItem{
		ID:        r.ID,
		SaleID:    r.SaleID,
		ItemID:    r.ItemID,
		Quantity:  r.Quantity,
		Price:     r.Price,
		Total:     r.Total,
		CreatedAt: created,
	}, nil
}

type paymentRow struct {
	ID          int64  `db:"id"`
	SaleID      int64  `db:"sale_id"`
	Amount      int64  `db:"amount"`
	PaymentDate string `db:"payment_date"`
	Method      string `db:"method"`
	Notes       string `db:"notes"`
	CreatedAt   string `db:"created_at"`
}

func (r paymentRow) toPayment() (*sale.Payment, error) {
	date, err := database.ParseDate(r.PaymentDate)
	if err != nil {
		return nil, err
	}

	created, err := database.ParseTimestamp(r.CreatedAt)
	if err != nil {
		return nil, err
	}

	return &sale.Payment{
		ID:          r.ID,
		SaleID:      r.SaleID,
		Amount:      r.Amount,
		PaymentDate: date,
		Method:      sale.PaymentMethod(r.Method),
		Notes:       r.Notes,
		CreatedAt:   created,
	}, nil
}

const (
	saleColumns = `id, customer_id, sale_date, subtotal, discount, tax, final_amount, amount_paid,
		payment_status, item_count, notes, created_at, updated_at`
	lineItemColumns = `id, sale_id, item_id, quantity, price, total, created_at`
	paymentColumns  = `id, sale_id, amount, payment_date, method, notes, created_at`
)

func (s *Store) CreateSale(ctx context.Context, sl *sale.Sale) error {
	query := s.db.Rebind(`
		INSERT INTO sales (customer_id, sale_date, subtotal, discount, tax, final_amount, amount_paid,
			payment_status, item_count, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := s.db.QueryRowxContext(ctx, query,
		sl.CustomerID,
		database.Date(sl.SaleDate),
		sl.Subtotal,
		sl.Discount,
		sl.Tax,
		sl.FinalAmount,
		sl.AmountPaid,
		string(sl.PaymentStatus),
		sl.ItemCount,
		sl.Notes,
		database.Timestamp(sl.CreatedAt),
		database.Timestamp(sl.UpdatedAt),
	).Scan(&sl.ID)
	if err != nil {
		return fmt.Errorf("creating sale: %w", err)
	}

	return nil
}

func (s *Store) GetSale(ctx context.Context, id int64) (*sale.Sale, error) {
	var r saleRow

	err := s.db.GetContext(ctx, &r, s.db.Rebind(`SELECT `+saleColumns+` FROM sales WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sale.ErrNotFound
		}

		return nil, fmt.Errorf("getting sale: %w", err)
	}

	return r.toSale()
}

func (s *Store) ListSales(ctx context.Context, filter sale.ListFilter) ([]*sale.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE 1 = 1`

	var args []any

	if filter.Status != "" {
		query += " AND payment_status = ?"

		args = append(args, string(filter.Status))
	}

	if filter.CustomerID > 0 {
		query += " AND customer_id = ?"

		args = append(args, filter.CustomerID)
	}

	if !filter.From.IsZero() {
		query += " AND sale_date >= ?"

		args = append(args, database.Date(filter.From))
	}

	if !filter.To.IsZero() {
		query += " AND sale_date <= ?"

		args = append(args, database.Date(filter.To))
	}

	query += " ORDER BY sale_date DESC, id DESC"

	var rows []saleRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("listing sales: %w", err)
	}

	sales := make([]*sale.Sale, 0, len(rows))

	for _, r := range rows {
		sl, err := r.toSale()
		if err != nil {
			return nil, fmt.Errorf("scanning sale: %w", err)
		}

		sales = append(sales, sl)
	}

	return sales, nil
}

func (s *Store) UpdateSale(ctx context.Context, sl *sale.Sale) error {
	query := s.db.Rebind(`
		UPDATE sales
		SET customer_id = ?, sale_date = ?, subtotal = ?, discount = ?, tax = ?, final_amount = ?,
			amount_paid = ?, payment_status = ?, item_count = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`)

	res, err := s.db.ExecContext(ctx, query,
		sl.CustomerID,
		database.Date(sl.SaleDate),
		sl.Subtotal,
		sl.Discount,
		sl.Tax,
		sl.FinalAmount,
		sl.AmountPaid,
		string(sl.PaymentStatus),
		sl.ItemCount,
		sl.Notes,
		database.Timestamp(sl.UpdatedAt),
		sl.ID,
	)
	if err != nil {
		return fmt.Errorf("updating sale: %w", err)
	}

	return affected(res, "updating sale")
}

func (s *Store) DeleteSale(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "sales", id)
}

func (s *Store) CreateLineItem(ctx context.Context, li *sale.LineItem) error {
	query := s.db.Rebind(`
		INSERT INTO sale_items (sale_id, item_id, quantity, price, total, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := s.db.QueryRowxContext(ctx, query,
		li.SaleID,
		li.ItemID,
		li.Quantity,
		li.Price,
		li.Total,
		database.Timestamp(li.CreatedAt),
	).Scan(&li.ID)
	if err != nil {
		return fmt.Errorf("creating line item: %w", err)
	}

	return nil
}

func (s *Store) GetLineItem(ctx context.Context, id int64) (*sale.LineItem, error) {
	var r lineItemRow

	err := s.db.GetContext(ctx, &r, s.db.Rebind(`SELECT `+lineItemColumns+` FROM sale_items WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sale.ErrNotFound
		}

		return nil, fmt.Errorf("getting line item: %w", err)
	}

	return r.toLineItem()
}

func (s *Store) ListLineItems(ctx context.Context, saleID int64) ([]*sale.LineItem, error) {
	var rows []lineItemRow

	err := s.db.SelectContext(ctx, &rows,
		s.db.Rebind(`SELECT `+lineItemColumns+` FROM sale_items WHERE sale_id = ? ORDER BY id`), saleID)
	if err != nil {
		return nil, fmt.Errorf("listing line items: %w", err)
	}

	items := make([]*sale.LineItem, 0, len(rows))

	for _, r := range rows {
		li, err := r.toLineItem()
		if err != nil {
			return nil, fmt.Errorf("scanning line item: %w", err)
		}

		items = append(items, li)
	}

	return items, nil
}

func (s *Store) UpdateLineItem(ctx context.Context, li *sale.LineItem) error {
	query := s.db.Rebind(`
		UPDATE sale_items
		SET sale_id = ?, item_id = ?, quantity = ?, price = ?, total = ?
		WHERE id = ?
	`)

	res, err := s.db.ExecContext(ctx, query, li.SaleID, li.ItemID, li.Quantity, li.Price, li.Total, li.ID)
	if err != nil {
		return fmt.Errorf("updating line item: %w", err)
	}

	return affected(res, "updating line item")
}

func (s *Store) DeleteLineItem(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "sale_items", id)
}

func (s *Store) CreatePayment(ctx context.Context, p *sale.Payment) error {
	query := s.db.Rebind(`
		INSERT INTO payments (sale_id, amount, payment_date, method, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := s.db.QueryRowxContext(ctx, query,
		p.SaleID,
		p.Amount,
		database.Date(p.PaymentDate),
		string(p.Method),
		p.Notes,
		database.Timestamp(p.CreatedAt),
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("creating payment: %w", err)
	}

	return nil
}

func (s *Store) GetPayment(ctx context.Context, id int64) (*sale.Payment, error) {
	var r paymentRow

	err := s.db.GetContext(ctx, &r, s.db.Rebind(`SELECT `+paymentColumns+` FROM payments WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sale.ErrNotFound
		}

		return nil, fmt.Errorf("getting payment: %w", err)
	}

	return r.toPayment()
}

func (s *Store) ListPayments(ctx context.Context, saleID int64) ([]*sale.Payment, error) {
	var rows []paymentRow

	err := s.db.SelectContext(ctx, &rows,
		s.db.Rebind(`SELECT `+paymentColumns+` FROM payments WHERE sale_id = ? ORDER BY payment_date, id`), saleID)
	if err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}

	payments := make([]*sale.Payment, 0, len(rows))

	for _, r := range rows {
		p, err := r.toPayment()
		if err != nil {
			return nil, fmt.Errorf("scanning payment: %w", err)
		}

		payments = append(payments, p)
	}

	return payments, nil
}

func (s *Store) DeletePayment(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "payments", id)
}

// deleteByID is only called with the fixed table names above.
func (s *Store) deleteByID(ctx context.Context, table string, id int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM `+table+` WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("deleting from %s: %w", table, err)
	}

	return affected(res, "deleting from "+table)
}

func affected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if n == 0 {
		return sale.ErrNotFound
	}

	return nil
}
