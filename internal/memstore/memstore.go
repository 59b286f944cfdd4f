// Package memstore keeps every collection in process memory. It backs the
// "memory" driver and the ledger tests.
package memstore

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/MrJamesThe3rd/supiri/internal/customer"
	"github.com/MrJamesThe3rd/supiri/internal/item"
	"github.com/MrJamesThe3rd/supiri/internal/sale"
)

type Store struct {
	mu sync.RWMutex

	seq       int64
	customers map[int64]customer.Customer
	items     map[int64]item.Item
	sales     map[int64]sale.Sale
	lineItems map[int64]sale.LineItem
	payments  map[int64]sale.Payment
}

func New() *Store {
	return &Store{
		customers: make(map[int64]customer.Customer),
		items:     make(map[int64]item.Item),
		sales:     make(map[int64]sale.Sale),
		lineItems: make(map[int64]sale.LineItem),
		payments:  make(map[int64]sale.Payment),
	}
}

// nextID must be called with mu held.
func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

func sortedByID[T any](m map[int64]T, keep func(T) bool) []int64 {
	ids := make([]int64, 0, len(m))
	for id, v := range m {
		if keep == nil || keep(v) {
			ids = append(ids, id)
		}
	}

	slices.Sort(ids)

	return ids
}

func (s *Store) CreateCustomer(_ context.Context, c *customer.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = s.nextID()
	s.customers[c.ID] = *c

	return nil
}

func (s *Store) GetCustomer(_ context.Context, id int64) (*customer.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[id]
	if !ok {
		return nil, customer.ErrNotFound
	}

	return &c, nil
}

func (s *Store) ListCustomers(_ context.Context) ([]*customer.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*customer.Customer, 0, len(s.customers))
	for _, id := range sortedByID(s.customers, nil) {
		c := s.customers[id]
		out = append(out, &c)
	}

	slices.SortStableFunc(out, func(a, b *customer.Customer) int { return cmp.Compare(a.Name, b.Name) })

	return out, nil
}

func (s *Store) UpdateCustomer(_ context.Context, c *customer.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customers[c.ID]; !ok {
		return customer.ErrNotFound
	}

	s.customers[c.ID] = *c

	return nil
}

func (s *Store) DeleteCustomer(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customers[id]; !ok {
		return customer.ErrNotFound
	}

	delete(s.customers, id)

	return nil
}

func (s *Store) CreateItem(_ context.Context, it *item.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it.ID = s.nextID()
	s.items[it.ID] = *it

	return nil
}

func (s *Store) GetItem(_ context.Context, id int64) (*item.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.items[id]
	if !ok {
		return nil, item.ErrNotFound
	}

	return &it, nil
}

func (s *Store) ListItems(_ context.Context) ([]*item.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*item.Item, 0, len(s.items))
	for _, id := range sortedByID(s.items, nil) {
		it := s.items[id]
		out = append(out, &it)
	}

	slices.SortStableFunc(out, func(a, b *item.Item) int { return cmp.Compare(a.Name, b.Name) })

	return out, nil
}

func (s *Store) UpdateItem(_ context.Context, it *item.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[it.ID]; !ok {
		return item.ErrNotFound
	}

	s.items[it.ID] = *it

	return nil
}

func (s *Store) DeleteItem(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return item.ErrNotFound
	}

	delete(s.items, id)

	return nil
}

func (s *Store) CreateSale(_ context.Context, sl *sale.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl.ID = s.nextID()
	s.sales[sl.ID] = *sl

	return nil
}

func (s *Store) GetSale(_ context.Context, id int64) (*sale.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sl, ok := s.sales[id]
	if !ok {
		return nil, sale.ErrNotFound
	}

	return &sl, nil
}

func (s *Store) ListSales(_ context.Context, filter sale.ListFilter) ([]*sale.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keep := func(sl sale.Sale) bool {
		switch {
		case filter.Status != "" && sl.PaymentStatus != filter.Status:
			return false
		case filter.CustomerID > 0 && sl.CustomerID != filter.CustomerID:
			return false
		case !filter.From.IsZero() && sl.SaleDate.Before(sale.Today(filter.From)):
			return false
		case !filter.To.IsZero() && sl.SaleDate.After(sale.Today(filter.To)):
			return false
		}

		return true
	}

	ids := sortedByID(s.sales, keep)
	out := make([]*sale.Sale, 0, len(ids))

	for _, id := range slices.Backward(ids) {
		sl := s.sales[id]
		out = append(out, &sl)
	}

	slices.SortStableFunc(out, func(a, b *sale.Sale) int { return b.SaleDate.Compare(a.SaleDate) })

	return out, nil
}

func (s *Store) UpdateSale(_ context.Context, sl *sale.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sales[sl.ID]; !ok {
		return sale.ErrNotFound
	}

	s.sales[sl.ID] = *sl

	return nil
}

func (s *Store) DeleteSale(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sales[id]; !ok {
		return sale.ErrNotFound
	}

	delete(s.sales, id)

	return nil
}

func (s *Store) CreateLineItem(_ context.Context, li *sale.LineItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	li.ID = s.nextID()
	s.lineItems[li.ID] = *li

	return nil
}

func (s *Store) GetLineItem(_ context.Context, id int64) (*sale.LineItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	li, ok := s.lineItems[id]
	if !ok {
		return nil, sale.ErrNotFound
	}

	return &li, nil
}

func (s *Store) ListLineItems(_ context.Context, saleID int64) ([]*sale.LineItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := sortedByID(s.lineItems, func(li sale.LineItem) bool { return li.SaleID == saleID })
	out := make([]*sale.LineItem, 0, len(ids))

	for _, id := range ids {
		li := s.lineItems[id]
		out = append(out, &li)
	}

	return out, nil
}

func (s *Store) UpdateLineItem(_ context.Context, li *sale.LineItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lineItems[li.ID]; !ok {
		return sale.ErrNotFound
	}

	s.lineItems[li.ID] = *li

	return nil
}

func (s *Store) DeleteLineItem(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lineItems[id]; !ok {
		return sale.ErrNotFound
	}

	delete(s.lineItems, id)

	return nil
}

func (s *Store) CreatePayment(_ context.Context, p *sale.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = s.nextID()
	s.payments[p.ID] = *p

	return nil
}

func (s *Store) GetPayment(_ context.Context, id int64) (*sale.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.payments[id]
	if !ok {
		return nil, sale.ErrNotFound
	}

	return &p, nil
}

func (s *Store) ListPayments(_ context.Context, saleID int64) ([]*sale.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := sortedByID(s.payments, func(p sale.Payment) bool { return p.SaleID == saleID })
	out := make([]*sale.Payment, 0, len(ids))

	for _, id := range ids {
		p := s.payments[id]
		out = append(out, &p)
	}

	return out, nil
}

func (s *Store) DeletePayment(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.payments[id]; !ok {
		return sale.ErrNotFound
	}

	delete(s.payments, id)

	return nil
}

// Counts reports how many line items and payments reference saleID.
func (s *Store) Counts(saleID int64) (lineItems, payments int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, li := range s.lineItems {
		if li.SaleID == saleID {
			lineItems++
		}
	}

	for _, p := range s.payments {
		if p.SaleID == saleID {
			payments++
		}
	}

	return lineItems, payments
}
