package sale

import (
	"time"

	"github.com/MrJamesThe3rd/supiri/internal/customer"
)

// PaymentStatus is derived from AmountPaid and FinalAmount; it is never set directly.
type PaymentStatus string

const (
	StatusUnpaid        PaymentStatus = "Unpaid"
	StatusPartiallyPaid PaymentStatus = "Partially Paid"
	StatusPaid          PaymentStatus = "Paid"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case StatusUnpaid, StatusPartiallyPaid, StatusPaid:
		return true
	}

	return false
}

type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodCreditCard   PaymentMethod = "credit_card"
	MethodOther        PaymentMethod = "other"
)

// Methods lists the accepted payment methods in display order.
var Methods = []PaymentMethod{MethodCash, MethodBankTransfer, MethodCreditCard, MethodOther}

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodBankTransfer, MethodCreditCard, MethodOther:
		return true
	}

	return false
}

// Sale is the aggregate root. Every amount is in cents and every field below
// Discount/Tax is derived from the sale's line items and payments.
type Sale struct {
	ID            int64
	CustomerID    int64
	SaleDate      time.Time
	Subtotal      int64
	Discount      int64
	Tax           int64
	FinalAmount   int64
	AmountPaid    int64
	PaymentStatus PaymentStatus
	ItemCount     int
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// LineItem is one item on a sale. Price is the unit price at the time of sale.
type LineItem struct {
	ID        int64
	SaleID    int64
	ItemID    int64
	Quantity  int64
	Price     int64
	Total     int64
	CreatedAt time.Time
}

type Payment struct {
	ID          int64
	SaleID      int64
	Amount      int64
	PaymentDate time.Time
	Method      PaymentMethod
	Notes       string
	CreatedAt   time.Time
}

// Details is a sale header together with its children. Customer is nil when
// the sale references a customer that no longer exists.
type Details struct {
	Sale     *Sale
	Customer *customer.Customer
	Items    []*LineItem
	Payments []*Payment
}

// ListFilter narrows ListSales. Zero values mean no constraint.
type ListFilter struct {
	Status     PaymentStatus
	CustomerID int64
	From       time.Time
	To         time.Time
}

// Today returns the calendar day of t as a UTC midnight, the form sale and
// payment dates are stored in.
func Today(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
