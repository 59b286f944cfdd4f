package draft

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/supiri/internal/customer"
	"github.com/MrJamesThe3rd/supiri/internal/item"
	"github.com/MrJamesThe3rd/supiri/internal/keylock"
	"github.com/MrJamesThe3rd/supiri/internal/sale"
)

const initialPaymentNote = "Initial payment"

//go:generate mockgen -source=service.go -destination=service_mock.go -package=draft
type Ledger interface {
	Create(ctx context.Context, params sale.CreateParams) (*sale.Sale, error)
	AttachLineItem(ctx context.Context, saleID int64, li sale.LineItem) (*sale.LineItem, error)
	RecordPayment(ctx context.Context, saleID int64, params sale.PaymentParams) (*sale.Payment, error)
	Details(ctx context.Context, saleID int64) (*sale.Details, error)
}

type CustomerFinder interface {
	Get(ctx context.Context, id int64) (*customer.Customer, error)
}

type ItemFinder interface {
	Get(ctx context.Context, id int64) (*item.Item, error)
}

type Service struct {
	store     SessionStore
	ledger    Ledger
	customers CustomerFinder
	items     ItemFinder
	logger    *slog.Logger
	locks     *keylock.Map[uuid.UUID]
	now       func() time.Time
}

func NewService(store SessionStore, ledger Ledger, customers CustomerFinder, items ItemFinder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:     store,
		ledger:    ledger,
		customers: customers,
		items:     items,
		logger:    logger,
		locks:     keylock.New[uuid.UUID](),
		now:       time.Now,
	}
}

func (s *Service) Start(ctx context.Context) (*Draft, error) {
	d := New(s.now())
	if err := s.store.Save(ctx, d); err != nil {
		return nil, err
	}

	return d, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Draft, error) {
	return s.store.Load(ctx, id)
}

func (s *Service) Discard(ctx context.Context, id uuid.UUID) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	return s.store.Delete(ctx, id)
}

// Update loads a draft, applies fn and saves the result. Nothing is saved when
// fn fails. Updates and commits of one draft never overlap.
func (s *Service) Update(ctx context.Context, id uuid.UUID, fn func(d *Draft) error) (*Draft, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	d, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	if d.SaleID != 0 {
		return nil, fmt.Errorf("%w as sale %d", ErrCommitted, d.SaleID)
	}

	if err := fn(d); err != nil {
		return nil, err
	}

	d.UpdatedAt = s.now()

	if err := s.store.Save(ctx, d); err != nil {
		return nil, err
	}

	return d, nil
}

func (s *Service) SelectCustomer(ctx context.Context, id uuid.UUID, customerID int64) (*Draft, error) {
	c, err := s.customers.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}

	return s.Update(ctx, id, func(d *Draft) error {
		return d.SelectCustomer(c.ID, c.Name)
	})
}

// AddItem stages an item at its current catalogue price.
func (s *Service) AddItem(ctx context.Context, id uuid.UUID, itemID int64) (*Draft, error) {
	it, err := s.items.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}

	return s.Update(ctx, id, func(d *Draft) error {
		return d.AddItem(it.ID, it.Name, it.Price)
	})
}

func (s *Service) SetQuantity(ctx context.Context, id uuid.UUID, itemID, qty int64) (*Draft, error) {
	return s.Update(ctx, id, func(d *Draft) error { return d.SetQuantity(itemID, qty) })
}

func (s *Service) Increment(ctx context.Context, id uuid.UUID, itemID int64) (*Draft, error) {
	return s.Update(ctx, id, func(d *Draft) error { return d.Increment(itemID) })
}

func (s *Service) Decrement(ctx context.Context, id uuid.UUID, itemID int64) (*Draft, error) {
	return s.Update(ctx, id, func(d *Draft) error { return d.Decrement(itemID) })
}

func (s *Service) RemoveItem(ctx context.Context, id uuid.UUID, itemID int64) (*Draft, error) {
	return s.Update(ctx, id, func(d *Draft) error { return d.RemoveItem(itemID) })
}

func (s *Service) SetAdjustments(ctx context.Context, id uuid.UUID, a Adjustments) (*Draft, error) {
	return s.Update(ctx, id, func(d *Draft) error { return d.SetAdjustments(a) })
}

func (s *Service) Next(ctx context.Context, id uuid.UUID) (*Draft, error) {
	return s.Update(ctx, id, func(d *Draft) error { return d.Next() })
}

func (s *Service) Back(ctx context.Context, id uuid.UUID) (*Draft, error) {
	return s.Update(ctx, id, func(d *Draft) error {
		d.Back()
		return nil
	})
}

// CommitError reports a commit that created the sale but failed while adding
// its line items or initial payment. The sale is left as written and the
// draft keeps the progress, so committing the draft again finishes the sale.
type CommitError struct {
	SaleID int64
	Stage  string
	Err    error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("committing draft: sale %d created, stopped at %s: %v", e.SaleID, e.Stage, e.Err)
}

func (e *CommitError) Unwrap() []error {
	return []error{sale.ErrPartialCascade, e.Err}
}

// Commit writes the draft as a sale: the header with the staged totals, each
// staged line with its staged total, then the initial payment if one was
// entered. Progress is saved on the draft after each write, so a commit that
// stopped part way resumes where it left off. The draft is removed once the
// sale is complete.
func (s *Service) Commit(ctx context.Context, id uuid.UUID) (*sale.Details, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	d, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	if d.SaleID == 0 {
		if err := d.Ready(); err != nil {
			return nil, err
		}

		created, err := s.ledger.Create(ctx, sale.CreateParams{
			CustomerID: d.CustomerID,
			SaleDate:   d.SaleDate,
			Notes:      d.Notes,
			Subtotal:   d.Subtotal(),
			Discount:   d.Discount,
			Tax:        d.Tax,
			ItemCount:  len(d.Lines),
		})
		if err != nil {
			return nil, fmt.Errorf("creating sale: %w", err)
		}

		d.SaleID = created.ID
		if err := s.saveProgress(ctx, d); err != nil {
			return nil, s.commitFailure(d, "header", err)
		}
	} else {
		s.logger.Info("resuming draft commit", "draft_id", id, "sale_id", d.SaleID, "lines_attached", d.LinesAttached)
	}

	for d.LinesAttached < len(d.Lines) {
		l := d.Lines[d.LinesAttached]

		_, err := s.ledger.AttachLineItem(ctx, d.SaleID, sale.LineItem{
			ItemID:   l.ItemID,
			Quantity: l.Quantity,
			Price:    l.Price,
			Total:    l.Total,
		})
		if err != nil {
			return nil, s.commitFailure(d, "line items", err)
		}

		d.LinesAttached++
		if err := s.saveProgress(ctx, d); err != nil {
			return nil, s.commitFailure(d, "line items", err)
		}
	}

	if d.PaymentAmount > 0 && !d.PaymentRecorded {
		_, err := s.ledger.RecordPayment(ctx, d.SaleID, sale.PaymentParams{
			Amount: d.PaymentAmount,
			Method: d.PaymentMethod,
			Notes:  initialPaymentNote,
		})
		if err != nil {
			return nil, s.commitFailure(d, "initial payment", err)
		}

		d.PaymentRecorded = true
	}

	if err := s.store.Delete(ctx, id); err != nil {
		s.logger.Warn("failed to discard committed draft", "draft_id", id, "sale_id", d.SaleID, "error", err)
	}

	details, err := s.ledger.Details(ctx, d.SaleID)
	if err != nil {
		return nil, fmt.Errorf("loading committed sale %d: %w", d.SaleID, err)
	}

	return details, nil
}

func (s *Service) saveProgress(ctx context.Context, d *Draft) error {
	d.UpdatedAt = s.now()

	if err := s.store.Save(ctx, d); err != nil {
		return fmt.Errorf("saving commit progress: %w", err)
	}

	return nil
}

func (s *Service) commitFailure(d *Draft, stage string, err error) error {
	s.logger.Warn("draft commit stopped part way", "draft_id", d.ID, "sale_id", d.SaleID, "stage", stage, "error", err)
	return &CommitError{SaleID: d.SaleID, Stage: stage, Err: err}
}
