// Package draft stages a sale across the three wizard steps (customer, items,
// checkout) and commits it to the ledger in one shot.
package draft

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/supiri/internal/sale"
)

var (
	ErrNotFound     = fmt.Errorf("draft %w", sale.ErrNotFound)
	ErrLineNotFound = fmt.Errorf("draft line %w", sale.ErrNotFound)
	ErrIncomplete   = fmt.Errorf("%w: draft incomplete", sale.ErrInvalidArgument)
	ErrCommitted    = fmt.Errorf("%w: draft already committed", sale.ErrInvalidArgument)
)

type Step int

const (
	StepCustomer Step = iota + 1
	StepItems
	StepCheckout
)

func (s Step) String() string {
	switch s {
	case StepCustomer:
		return "customer"
	case StepItems:
		return "items"
	case StepCheckout:
		return "checkout"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

type Line struct {
	ItemID   int64  `json:"item_id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int64  `json:"quantity"`
	Total    int64  `json:"total"`
}

// Draft is an uncommitted sale. It lives only in session storage.
type Draft struct {
	ID            uuid.UUID          `json:"id"`
	Step          Step               `json:"step"`
	CustomerID    int64              `json:"customer_id"`
	CustomerName  string             `json:"customer_name"`
	SaleDate      time.Time          `json:"sale_date"`
	Lines         []Line             `json:"lines"`
	Discount      int64              `json:"discount"`
	Tax           int64              `json:"tax"`
	PaymentAmount int64              `json:"payment_amount"`
	PaymentMethod sale.PaymentMethod `json:"payment_method"`
	Notes         string             `json:"notes"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`

	// Commit progress. A draft with a SaleID has a header in the ledger and
	// can only be committed again, which resumes after the recorded steps.
	SaleID          int64 `json:"sale_id,omitempty"`
	LinesAttached   int   `json:"lines_attached,omitempty"`
	PaymentRecorded bool  `json:"payment_recorded,omitempty"`
}

func New(now time.Time) *Draft {
	return &Draft{
		ID:            uuid.New(),
		Step:          StepCustomer,
		SaleDate:      sale.Today(now),
		Lines:         []Line{},
		PaymentMethod: sale.MethodCash,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (d *Draft) SelectCustomer(id int64, name string) error {
	if id <= 0 {
		return fmt.Errorf("%w: customer is required", sale.ErrInvalidArgument)
	}

	d.CustomerID = id
	d.CustomerName = name

	return nil
}

func (d *Draft) line(itemID int64) int {
	return slices.IndexFunc(d.Lines, func(l Line) bool { return l.ItemID == itemID })
}

// AddItem stages one unit of an item. Adding an item that is already staged
// bumps its quantity instead of adding a second line.
func (d *Draft) AddItem(itemID int64, name string, price int64) error {
	if itemID <= 0 {
		return fmt.Errorf("%w: item is required", sale.ErrInvalidArgument)
	}

	if price < 0 {
		return fmt.Errorf("%w: price must not be negative", sale.ErrInvalidArgument)
	}

	if i := d.line(itemID); i >= 0 {
		return d.increment(i)
	}

	d.Lines = append(d.Lines, Line{
		ItemID:   itemID,
		Name:     name,
		Price:    price,
		Quantity: 1,
		Total:    price,
	})

	if err := d.checkTotals(); err != nil {
		d.Lines = d.Lines[:len(d.Lines)-1]
		return err
	}

	return nil
}

// setQuantity stages qty, at least 1, for line i. The line is left as it was
// when the new totals would overflow.
func (d *Draft) setQuantity(i int, qty int64) error {
	qty = max(1, qty)

	total, err := sale.LineTotal(qty, d.Lines[i].Price)
	if err != nil {
		return err
	}

	prev := d.Lines[i]
	d.Lines[i].Quantity = qty
	d.Lines[i].Total = total

	if err := d.checkTotals(); err != nil {
		d.Lines[i] = prev
		return err
	}

	return nil
}

// checkTotals fails when the staged subtotal or final amount does not fit in an int64.
func (d *Draft) checkTotals() error {
	_, err := d.totals(d.Discount, d.Tax)
	return err
}

func (d *Draft) totals(discount, tax int64) (final int64, err error) {
	lineTotals := make([]int64, len(d.Lines))
	for i, l := range d.Lines {
		lineTotals[i] = l.Total
	}

	subtotal, err := sale.SumAmounts(lineTotals...)
	if err != nil {
		return 0, err
	}

	return sale.FinalAmount(subtotal, discount, tax)
}

// SetQuantity clamps qty to at least 1; removing a line is RemoveItem.
func (d *Draft) SetQuantity(itemID, qty int64) error {
	i := d.line(itemID)
	if i < 0 {
		return ErrLineNotFound
	}

	return d.setQuantity(i, qty)
}

func (d *Draft) Increment(itemID int64) error {
	i := d.line(itemID)
	if i < 0 {
		return ErrLineNotFound
	}

	return d.increment(i)
}

func (d *Draft) increment(i int) error {
	qty, err := sale.SumAmounts(d.Lines[i].Quantity, 1)
	if err != nil {
		return err
	}

	return d.setQuantity(i, qty)
}

func (d *Draft) Decrement(itemID int64) error {
	i := d.line(itemID)
	if i < 0 {
		return ErrLineNotFound
	}

	return d.setQuantity(i, d.Lines[i].Quantity-1)
}

func (d *Draft) RemoveItem(itemID int64) error {
	i := d.line(itemID)
	if i < 0 {
		return ErrLineNotFound
	}

	d.Lines = slices.Delete(d.Lines, i, i+1)

	return nil
}

// Adjustments are the checkout step inputs. A zero SaleDate keeps the current date.
type Adjustments struct {
	SaleDate      time.Time
	Discount      int64
	Tax           int64
	PaymentAmount int64
	PaymentMethod sale.PaymentMethod
	Notes         string
}

func (d *Draft) SetAdjustments(a Adjustments) error {
	if a.Discount < 0 || a.Tax < 0 || a.PaymentAmount < 0 {
		return fmt.Errorf("%w: discount, tax and payment must not be negative", sale.ErrInvalidArgument)
	}

	if _, err := d.totals(a.Discount, a.Tax); err != nil {
		return err
	}

	if a.Discount > d.Subtotal() {
		return fmt.Errorf("%w: discount %d exceeds subtotal %d", sale.ErrInvalidArgument, a.Discount, d.Subtotal())
	}

	if a.PaymentMethod == "" {
		a.PaymentMethod = sale.MethodCash
	}

	if !a.PaymentMethod.Valid() {
		return fmt.Errorf("%w: unknown payment method %q", sale.ErrInvalidArgument, a.PaymentMethod)
	}

	if !a.SaleDate.IsZero() {
		d.SaleDate = sale.Today(a.SaleDate)
	}

	d.Discount = a.Discount
	d.Tax = a.Tax
	d.PaymentAmount = a.PaymentAmount
	d.PaymentMethod = a.PaymentMethod
	d.Notes = a.Notes

	return nil
}

func (d *Draft) Subtotal() int64 {
	var total int64
	for _, l := range d.Lines {
		total += l.Total
	}

	return total
}

// FinalAmount is the amount the sale would be committed at. Every mutator keeps
// the staged amounts within range, so the arithmetic cannot fail here.
func (d *Draft) FinalAmount() int64 {
	final, _ := d.totals(d.Discount, d.Tax)
	return final
}

// PaymentStatus is the status the sale would have if committed now.
func (d *Draft) PaymentStatus() sale.PaymentStatus {
	return sale.StatusFor(d.PaymentAmount, d.FinalAmount())
}

// Ready reports whether the draft can be committed.
func (d *Draft) Ready() error {
	var errs []error

	if d.CustomerID <= 0 {
		errs = append(errs, errors.New("no customer selected"))
	}

	if len(d.Lines) == 0 {
		errs = append(errs, errors.New("no items added"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrIncomplete, errors.Join(errs...))
	}

	return nil
}

// Next advances one step. Leaving the customer step needs a customer and
// leaving the items step needs at least one line.
func (d *Draft) Next() error {
	switch d.Step {
	case StepCustomer:
		if d.CustomerID <= 0 {
			return fmt.Errorf("%w: select a customer first", ErrIncomplete)
		}
	case StepItems:
		if len(d.Lines) == 0 {
			return fmt.Errorf("%w: add at least one item", ErrIncomplete)
		}
	default:
		return fmt.Errorf("%w: already at %s", sale.ErrInvalidArgument, d.Step)
	}

	d.Step++

	return nil
}

func (d *Draft) Back() {
	if d.Step > StepCustomer {
		d.Step--
	}
}
