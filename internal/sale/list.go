package sale

import (
	"cmp"
	"context"
	"slices"
	"time"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100

	// UnknownCustomer labels sales whose customer record no longer exists.
	UnknownCustomer = "Unknown Customer"
)

type ListParams struct {
	Page       int
	Limit      int
	Status     PaymentStatus
	CustomerID int64
	From       time.Time
	To         time.Time
}

type Summary struct {
	Sale         *Sale
	CustomerName string
}

type Page struct {
	Sales      []Summary
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

// List returns one page of sales, newest sale date first, each labelled with
// its customer's name.
func (l *Ledger) List(ctx context.Context, params ListParams) (*Page, error) {
	if params.Status != "" && !params.Status.Valid() {
		return nil, invalid("unknown payment status %q", params.Status)
	}

	if params.Page < 1 {
		params.Page = 1
	}

	if params.Limit < 1 {
		params.Limit = DefaultPageSize
	}

	params.Limit = min(params.Limit, MaxPageSize)

	sales, err := l.repo.ListSales(ctx, ListFilter{
		Status:     params.Status,
		CustomerID: params.CustomerID,
		From:       params.From,
		To:         params.To,
	})
	if err != nil {
		return nil, storageErr("listing sales", err)
	}

	slices.SortStableFunc(sales, func(a, b *Sale) int {
		if c := b.SaleDate.Compare(a.SaleDate); c != 0 {
			return c
		}

		return cmp.Compare(b.ID, a.ID)
	})

	page := &Page{
		Total: len(sales),
		Page:  params.Page,
		Limit: params.Limit,
		Sales: []Summary{},
	}
	page.TotalPages = (page.Total + params.Limit - 1) / params.Limit

	start := (params.Page - 1) * params.Limit
	if start >= len(sales) {
		return page, nil
	}

	end := min(start+params.Limit, len(sales))

	names := make(map[int64]string)

	for _, s := range sales[start:end] {
		name, ok := names[s.CustomerID]
		if !ok {
			c, err := l.customer(ctx, s.CustomerID)
			if err != nil {
				return nil, err
			}

			name = UnknownCustomer
			if c != nil {
				name = c.Name
			}

			names[s.CustomerID] = name
		}

		page.Sales = append(page.Sales, Summary{Sale: s, CustomerName: name})
	}

	return page, nil
}
