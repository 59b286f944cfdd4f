package sale

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrJamesThe3rd/supiri/internal/customer"
	"github.com/MrJamesThe3rd/supiri/internal/keylock"
)

//go:generate mockgen -source=ledger.go -destination=repository_mock.go -package=sale
type Repository interface {
	CreateSale(ctx context.Context, s *Sale) error
	GetSale(ctx context.Context, id int64) (*Sale, error)
	ListSales(ctx context.Context, filter ListFilter) ([]*Sale, error)
	UpdateSale(ctx context.Context, s *Sale) error
	DeleteSale(ctx context.Context, id int64) error

	CreateLineItem(ctx context.Context, li *LineItem) error
	GetLineItem(ctx context.Context, id int64) (*LineItem, error)
	ListLineItems(ctx context.Context, saleID int64) ([]*LineItem, error)
	UpdateLineItem(ctx context.Context, li *LineItem) error
	DeleteLineItem(ctx context.Context, id int64) error

	CreatePayment(ctx context.Context, p *Payment) error
	GetPayment(ctx context.Context, id int64) (*Payment, error)
	ListPayments(ctx context.Context, saleID int64) ([]*Payment, error)
	DeletePayment(ctx context.Context, id int64) error
}

// CustomerFinder resolves the customer a sale points at.
type CustomerFinder interface {
	Get(ctx context.Context, id int64) (*customer.Customer, error)
}

// Ledger owns every mutation of a sale and its children. After any method
// returns without error the sale header agrees with its line items and
// payments. Mutations on the same sale are serialized.
type Ledger struct {
	repo      Repository
	customers CustomerFinder
	logger    *slog.Logger
	locks     *keylock.Map[int64]
	now       func() time.Time
}

func NewLedger(repo Repository, customers CustomerFinder, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}

	return &Ledger{
		repo:      repo,
		customers: customers,
		logger:    logger,
		locks:     keylock.New[int64](),
		now:       time.Now,
	}
}

// WithClock replaces the time source used for defaults and timestamps.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

type CreateParams struct {
	CustomerID int64
	SaleDate   time.Time
	Notes      string

	// Staged totals, set when a draft is committed in one shot. Line items
	// attached afterwards bring the header back in line with its children.
	Subtotal  int64
	Discount  int64
	Tax       int64
	ItemCount int
}

func (l *Ledger) Create(ctx context.Context, params CreateParams) (*Sale, error) {
	if params.CustomerID <= 0 {
		return nil, invalid("customer is required")
	}

	if params.Subtotal < 0 || params.Discount < 0 || params.Tax < 0 || params.ItemCount < 0 {
		return nil, invalid("staged totals must not be negative")
	}

	if params.Discount > params.Subtotal {
		return nil, invalid("discount %d exceeds subtotal %d", params.Discount, params.Subtotal)
	}

	now := l.now()

	date := params.SaleDate
	if date.IsZero() {
		date = now
	}

	final, err := FinalAmount(params.Subtotal, params.Discount, params.Tax)
	if err != nil {
		return nil, err
	}

	s := &Sale{
		CustomerID:    params.CustomerID,
		SaleDate:      Today(date),
		Subtotal:      params.Subtotal,
		Discount:      params.Discount,
		Tax:           params.Tax,
		FinalAmount:   final,
		PaymentStatus: StatusFor(0, final),
		ItemCount:     params.ItemCount,
		Notes:         params.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := l.repo.CreateSale(ctx, s); err != nil {
		return nil, storageErr("creating sale", err)
	}

	return s, nil
}

// Details loads a sale with its customer, line items and payments.
func (l *Ledger) Details(ctx context.Context, saleID int64) (*Details, error) {
	s, err := l.repo.GetSale(ctx, saleID)
	if err != nil {
		return nil, storageErr("getting sale", err)
	}

	d := &Details{Sale: s}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		items, err := l.repo.ListLineItems(gctx, saleID)
		if err != nil {
			return storageErr("listing line items", err)
		}

		d.Items = items

		return nil
	})

	g.Go(func() error {
		payments, err := l.repo.ListPayments(gctx, saleID)
		if err != nil {
			return storageErr("listing payments", err)
		}

		d.Payments = payments

		return nil
	})

	g.Go(func() error {
		c, err := l.customer(gctx, s.CustomerID)
		if err != nil {
			return err
		}

		d.Customer = c

		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return d, nil
}

// customer returns nil for a dangling reference.
func (l *Ledger) customer(ctx context.Context, id int64) (*customer.Customer, error) {
	if l.customers == nil {
		return nil, nil
	}

	c, err := l.customers.Get(ctx, id)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			return nil, nil
		}

		return nil, storageErr("getting customer", err)
	}

	return c, nil
}

type LineItemParams struct {
	ItemID    int64
	Quantity  int64
	UnitPrice int64
}

func (p LineItemParams) validate() error {
	if p.ItemID <= 0 {
		return invalid("item is required")
	}

	if p.Quantity < 1 {
		return invalid("quantity must be at least 1, got %d", p.Quantity)
	}

	if p.UnitPrice < 0 {
		return invalid("unit price must not be negative, got %d", p.UnitPrice)
	}

	_, err := LineTotal(p.Quantity, p.UnitPrice)

	return err
}

// AddLineItem appends an item to a sale at the given unit price and
// recomputes the sale totals.
func (l *Ledger) AddLineItem(ctx context.Context, saleID int64, params LineItemParams) (*LineItem, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	total, err := LineTotal(params.Quantity, params.UnitPrice)
	if err != nil {
		return nil, err
	}

	return l.attach(ctx, saleID, &LineItem{
		ItemID:   params.ItemID,
		Quantity: params.Quantity,
		Price:    params.UnitPrice,
		Total:    total,
	})
}

// AttachLineItem persists a line whose total was already computed, as staged
// by a draft, and recomputes the sale totals.
func (l *Ledger) AttachLineItem(ctx context.Context, saleID int64, li LineItem) (*LineItem, error) {
	params := LineItemParams{ItemID: li.ItemID, Quantity: li.Quantity, UnitPrice: li.Price}
	if err := params.validate(); err != nil {
		return nil, err
	}

	if li.Total < 0 {
		return nil, invalid("line total must not be negative, got %d", li.Total)
	}

	return l.attach(ctx, saleID, &LineItem{
		ItemID:   li.ItemID,
		Quantity: li.Quantity,
		Price:    li.Price,
		Total:    li.Total,
	})
}

func (l *Ledger) attach(ctx context.Context, saleID int64, li *LineItem) (*LineItem, error) {
	unlock := l.locks.Lock(saleID)
	defer unlock()

	s, err := l.repo.GetSale(ctx, saleID)
	if err != nil {
		return nil, storageErr("getting sale", err)
	}

	items, err := l.repo.ListLineItems(ctx, saleID)
	if err != nil {
		return nil, storageErr("listing line items", err)
	}

	if _, _, err := totals(withLine(items, li), s.Discount, s.Tax); err != nil {
		return nil, err
	}

	li.SaleID = saleID
	li.CreatedAt = l.now()

	if err := l.repo.CreateLineItem(ctx, li); err != nil {
		return nil, storageErr("creating line item", err)
	}

	if err := l.recomputeTotals(ctx, s); err != nil {
		return nil, err
	}

	return li, nil
}

func (l *Ledger) UpdateLineItemQuantity(ctx context.Context, lineItemID, quantity int64) (*LineItem, error) {
	if quantity < 1 {
		return nil, invalid("quantity must be at least 1, got %d", quantity)
	}

	li, unlock, err := l.lockLineItem(ctx, lineItemID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	s, err := l.repo.GetSale(ctx, li.SaleID)
	if err != nil {
		return nil, storageErr("getting sale", err)
	}

	total, err := LineTotal(quantity, li.Price)
	if err != nil {
		return nil, err
	}

	items, err := l.repo.ListLineItems(ctx, li.SaleID)
	if err != nil {
		return nil, storageErr("listing line items", err)
	}

	updated := *li
	updated.Quantity = quantity
	updated.Total = total

	if _, _, err := totals(withLine(items, &updated), s.Discount, s.Tax); err != nil {
		return nil, err
	}

	li.Quantity = quantity
	li.Total = total

	if err := l.repo.UpdateLineItem(ctx, li); err != nil {
		return nil, storageErr("updating line item", err)
	}

	if err := l.recomputeTotals(ctx, s); err != nil {
		return nil, err
	}

	return li, nil
}

func (l *Ledger) RemoveLineItem(ctx context.Context, lineItemID int64) error {
	li, unlock, err := l.lockLineItem(ctx, lineItemID)
	if err != nil {
		return err
	}
	defer unlock()

	if err := l.repo.DeleteLineItem(ctx, lineItemID); err != nil {
		return storageErr("deleting line item", err)
	}

	s, err := l.repo.GetSale(ctx, li.SaleID)
	if err != nil {
		// Orphans left behind by an interrupted delete have no header to update.
		if errors.Is(err, ErrNotFound) {
			return nil
		}

		return storageErr("getting sale", err)
	}

	return l.recomputeTotals(ctx, s)
}

// lockLineItem locks the line item's sale and re-reads the line under the lock.
func (l *Ledger) lockLineItem(ctx context.Context, id int64) (*LineItem, func(), error) {
	li, err := l.repo.GetLineItem(ctx, id)
	if err != nil {
		return nil, nil, storageErr("getting line item", err)
	}

	unlock := l.locks.Lock(li.SaleID)

	li, err = l.repo.GetLineItem(ctx, id)
	if err != nil {
		unlock()
		return nil, nil, storageErr("getting line item", err)
	}

	return li, unlock, nil
}

// lockPayment locks the payment's sale and re-reads the payment under the lock.
func (l *Ledger) lockPayment(ctx context.Context, id int64) (*Payment, func(), error) {
	p, err := l.repo.GetPayment(ctx, id)
	if err != nil {
		return nil, nil, storageErr("getting payment", err)
	}

	unlock := l.locks.Lock(p.SaleID)

	p, err = l.repo.GetPayment(ctx, id)
	if err != nil {
		unlock()
		return nil, nil, storageErr("getting payment", err)
	}

	return p, unlock, nil
}

// RecomputeTotals rebuilds every derived header field from the sale's
// children. Running it again without intervening writes changes nothing.
func (l *Ledger) RecomputeTotals(ctx context.Context, saleID int64) (*Sale, error) {
	unlock := l.locks.Lock(saleID)
	defer unlock()

	s, err := l.repo.GetSale(ctx, saleID)
	if err != nil {
		return nil, storageErr("getting sale", err)
	}

	if err := l.recomputeTotals(ctx, s); err != nil {
		return nil, err
	}

	return s, nil
}

func (l *Ledger) RecomputePaymentStatus(ctx context.Context, saleID int64) (*Sale, error) {
	unlock := l.locks.Lock(saleID)
	defer unlock()

	s, err := l.repo.GetSale(ctx, saleID)
	if err != nil {
		return nil, storageErr("getting sale", err)
	}

	if err := l.recomputePayments(ctx, s); err != nil {
		return nil, err
	}

	return s, nil
}

func (l *Ledger) recomputeTotals(ctx context.Context, s *Sale) error {
	items, err := l.repo.ListLineItems(ctx, s.ID)
	if err != nil {
		return storageErr("listing line items", err)
	}

	subtotal, final, err := totals(items, s.Discount, s.Tax)
	if err != nil {
		return err
	}

	s.Subtotal = subtotal
	s.ItemCount = len(items)
	s.FinalAmount = final

	return l.recomputePayments(ctx, s)
}

func (l *Ledger) recomputePayments(ctx context.Context, s *Sale) error {
	payments, err := l.repo.ListPayments(ctx, s.ID)
	if err != nil {
		return storageErr("listing payments", err)
	}

	paid, err := paymentTotal(payments)
	if err != nil {
		return err
	}

	s.AmountPaid = paid
	s.PaymentStatus = StatusFor(paid, s.FinalAmount)
	s.UpdatedAt = l.now()

	if err := l.repo.UpdateSale(ctx, s); err != nil {
		return storageErr("updating sale", err)
	}

	return nil
}

// totals derives the subtotal and final amount of a sale holding items.
func totals(items []*LineItem, discount, tax int64) (subtotal, final int64, err error) {
	lineTotals := make([]int64, len(items))
	for i, li := range items {
		lineTotals[i] = li.Total
	}

	if subtotal, err = SumAmounts(lineTotals...); err != nil {
		return 0, 0, err
	}

	if final, err = FinalAmount(subtotal, discount, tax); err != nil {
		return 0, 0, err
	}

	return subtotal, final, nil
}

// withLine returns items with li in place of the line sharing its ID, or
// appended when li is not stored yet.
func withLine(items []*LineItem, li *LineItem) []*LineItem {
	out := make([]*LineItem, 0, len(items)+1)
	replaced := false

	for _, existing := range items {
		if li.ID != 0 && existing.ID == li.ID {
			out = append(out, li)
			replaced = true

			continue
		}

		out = append(out, existing)
	}

	if !replaced {
		out = append(out, li)
	}

	return out
}

func paymentTotal(payments []*Payment, extra ...int64) (int64, error) {
	amounts := make([]int64, 0, len(payments)+len(extra))
	for _, p := range payments {
		amounts = append(amounts, p.Amount)
	}

	return SumAmounts(append(amounts, extra...)...)
}

// ApplyDiscount sets the sale discount. The discount may not exceed the
// subtotal of the sale's current line items.
func (l *Ledger) ApplyDiscount(ctx context.Context, saleID, amount int64) (*Sale, error) {
	if amount < 0 {
		return nil, invalid("discount must not be negative, got %d", amount)
	}

	unlock := l.locks.Lock(saleID)
	defer unlock()

	s, err := l.repo.GetSale(ctx, saleID)
	if err != nil {
		return nil, storageErr("getting sale", err)
	}

	items, err := l.repo.ListLineItems(ctx, saleID)
	if err != nil {
		return nil, storageErr("listing line items", err)
	}

	subtotal, _, err := totals(items, amount, s.Tax)
	if err != nil {
		return nil, err
	}

	if amount > subtotal {
		return nil, invalid("discount %d exceeds subtotal %d", amount, subtotal)
	}

	s.Discount = amount

	if err := l.recomputeTotals(ctx, s); err != nil {
		return nil, err
	}

	return s, nil
}

func (l *Ledger) SetTax(ctx context.Context, saleID, amount int64) (*Sale, error) {
	if amount < 0 {
		return nil, invalid("tax must not be negative, got %d", amount)
	}

	unlock := l.locks.Lock(saleID)
	defer unlock()

	s, err := l.repo.GetSale(ctx, saleID)
	if err != nil {
		return nil, storageErr("getting sale", err)
	}

	items, err := l.repo.ListLineItems(ctx, saleID)
	if err != nil {
		return nil, storageErr("listing line items", err)
	}

	if _, _, err := totals(items, s.Discount, amount); err != nil {
		return nil, err
	}

	s.Tax = amount

	if err := l.recomputeTotals(ctx, s); err != nil {
		return nil, err
	}

	return s, nil
}

// HeaderParams edits the non-derived header fields. Zero values leave a field unchanged.
type HeaderParams struct {
	CustomerID int64
	SaleDate   time.Time
	Notes      *string
}

func (l *Ledger) UpdateHeader(ctx context.Context, saleID int64, params HeaderParams) (*Sale, error) {
	if params.CustomerID < 0 {
		return nil, invalid("customer id must not be negative")
	}

	unlock := l.locks.Lock(saleID)
	defer unlock()

	s, err := l.repo.GetSale(ctx, saleID)
	if err != nil {
		return nil, storageErr("getting sale", err)
	}

	if params.CustomerID > 0 {
		s.CustomerID = params.CustomerID
	}

	if !params.SaleDate.IsZero() {
		s.SaleDate = Today(params.SaleDate)
	}

	if params.Notes != nil {
		s.Notes = *params.Notes
	}

	s.UpdatedAt = l.now()

	if err := l.repo.UpdateSale(ctx, s); err != nil {
		return nil, storageErr("updating sale", err)
	}

	return s, nil
}

type PaymentParams struct {
	Amount int64
	Date   time.Time
	Method PaymentMethod
	Notes  string
}

// RecordPayment adds a payment and refreshes the paid amount and status.
// Payments beyond the final amount are accepted.
func (l *Ledger) RecordPayment(ctx context.Context, saleID int64, params PaymentParams) (*Payment, error) {
	if params.Amount <= 0 {
		return nil, invalid("payment amount must be positive, got %d", params.Amount)
	}

	if params.Method == "" {
		params.Method = MethodCash
	}

	if !params.Method.Valid() {
		return nil, invalid("unknown payment method %q", params.Method)
	}

	unlock := l.locks.Lock(saleID)
	defer unlock()

	s, err := l.repo.GetSale(ctx, saleID)
	if err != nil {
		return nil, storageErr("getting sale", err)
	}

	payments, err := l.repo.ListPayments(ctx, saleID)
	if err != nil {
		return nil, storageErr("listing payments", err)
	}

	if _, err := paymentTotal(payments, params.Amount); err != nil {
		return nil, err
	}

	now := l.now()

	date := params.Date
	if date.IsZero() {
		date = now
	}

	p := &Payment{
		SaleID:      saleID,
		Amount:      params.Amount,
		PaymentDate: Today(date),
		Method:      params.Method,
		Notes:       params.Notes,
		CreatedAt:   now,
	}

	if err := l.repo.CreatePayment(ctx, p); err != nil {
		return nil, storageErr("creating payment", err)
	}

	if err := l.recomputePayments(ctx, s); err != nil {
		return nil, err
	}

	return p, nil
}

func (l *Ledger) RemovePayment(ctx context.Context, paymentID int64) error {
	p, unlock, err := l.lockPayment(ctx, paymentID)
	if err != nil {
		return err
	}
	defer unlock()

	if err := l.repo.DeletePayment(ctx, paymentID); err != nil {
		return storageErr("deleting payment", err)
	}

	s, err := l.repo.GetSale(ctx, p.SaleID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}

		return storageErr("getting sale", err)
	}

	return l.recomputePayments(ctx, s)
}

// Delete removes a sale's line items, then its payments, then the header.
// Children that are already gone count as removed, so a Delete interrupted
// with a CascadeError can be retried with the same sale ID.
func (l *Ledger) Delete(ctx context.Context, saleID int64) error {
	unlock := l.locks.Lock(saleID)
	defer unlock()

	if _, err := l.repo.GetSale(ctx, saleID); err != nil {
		return storageErr("getting sale", err)
	}

	items, err := l.repo.ListLineItems(ctx, saleID)
	if err != nil {
		return storageErr("listing line items", err)
	}

	payments, err := l.repo.ListPayments(ctx, saleID)
	if err != nil {
		return storageErr("listing payments", err)
	}

	removed := 0

	for _, li := range items {
		if err := l.repo.DeleteLineItem(ctx, li.ID); err != nil && !errors.Is(err, ErrNotFound) {
			return l.cascadeFailure(saleID, StageLineItems, removed, storageErr("deleting line item", err))
		}
		removed++
	}

	for _, p := range payments {
		if err := l.repo.DeletePayment(ctx, p.ID); err != nil && !errors.Is(err, ErrNotFound) {
			return l.cascadeFailure(saleID, StagePayments, removed, storageErr("deleting payment", err))
		}
		removed++
	}

	if err := l.repo.DeleteSale(ctx, saleID); err != nil && !errors.Is(err, ErrNotFound) {
		return l.cascadeFailure(saleID, StageHeader, removed, storageErr("deleting sale", err))
	}

	return nil
}

func (l *Ledger) cascadeFailure(saleID int64, stage string, removed int, err error) error {
	if removed == 0 {
		return err
	}

	l.logger.Warn("sale delete stopped part way", "sale_id", saleID, "stage", stage, "removed", removed, "error", err)

	return &CascadeError{SaleID: saleID, Stage: stage, Removed: removed, Err: err}
}
