package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/supiri/internal/config"
	"github.com/MrJamesThe3rd/supiri/internal/database"
	"github.com/MrJamesThe3rd/supiri/internal/sale"
	"github.com/MrJamesThe3rd/supiri/internal/sale/store"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()

	db, err := database.New(config.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "sales.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(context.Background(), db))

	return store.New(db)
}

func TestStore_SaleRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 2, 8, 15, 0, 0, time.UTC)

	sl := &sale.Sale{
		CustomerID:    3,
		SaleDate:      time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Subtotal:      500,
		Discount:      50,
		Tax:           45,
		FinalAmount:   495,
		PaymentStatus: sale.StatusUnpaid,
		ItemCount:     2,
		Notes:         "walk-in",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, s.CreateSale(ctx, sl))
	require.NotZero(t, sl.ID)

	got, err := s.GetSale(ctx, sl.ID)
	require.NoError(t, err)
	assert.Equal(t, sl, got)

	got.AmountPaid = 495
	got.PaymentStatus = sale.StatusPaid
	require.NoError(t, s.UpdateSale(ctx, got))

	again, err := s.GetSale(ctx, sl.ID)
	require.NoError(t, err)
	assert.Equal(t, sale.StatusPaid, again.PaymentStatus)

	require.NoError(t, s.DeleteSale(ctx, sl.ID))
	_, err = s.GetSale(ctx, sl.ID)
	assert.ErrorIs(t, err, sale.ErrNotFound)
	assert.ErrorIs(t, s.DeleteSale(ctx, sl.ID), sale.ErrNotFound)
	assert.ErrorIs(t, s.UpdateSale(ctx, sl), sale.ErrNotFound)
}

func TestStore_ChildrenByIndex(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Now()

	for _, saleID := range []int64{1, 1, 2} {
		require.NoError(t, s.CreateLineItem(ctx, &sale.LineItem{
			SaleID: saleID, ItemID: 9, Quantity: 2, Price: 100, Total: 200, CreatedAt: now,
		}))
	}

	p := &sale.Payment{SaleID: 1, Amount: 120, PaymentDate: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), Method: sale.MethodBankTransfer, CreatedAt: now}
	require.NoError(t, s.CreatePayment(ctx, p))

	items, err := s.ListLineItems(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 2)

	items[0].Quantity = 3
	items[0].Total = 300
	require.NoError(t, s.UpdateLineItem(ctx, items[0]))

	li, err := s.GetLineItem(ctx, items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(300), li.Total)

	payments, err := s.ListPayments(ctx, 1)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, sale.MethodBankTransfer, payments[0].Method)
	assert.Equal(t, p.PaymentDate, payments[0].PaymentDate)

	require.NoError(t, s.DeletePayment(ctx, p.ID))
	_, err = s.GetPayment(ctx, p.ID)
	assert.ErrorIs(t, err, sale.ErrNotFound)

	require.NoError(t, s.DeleteLineItem(ctx, li.ID))
	assert.ErrorIs(t, s.DeleteLineItem(ctx, li.ID), sale.ErrNotFound)
}

func TestStore_ListSalesFilter(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Now()

	fixtures := []struct {
		customer int64
		day      int
		status   sale.PaymentStatus
	}{
		{customer: 1, day: 1, status: sale.StatusPaid},
		{customer: 1, day: 5, status: sale.StatusUnpaid},
		{customer: 2, day: 9, status: sale.StatusUnpaid},
	}

	for _, f := range fixtures {
		require.NoError(t, s.CreateSale(ctx, &sale.Sale{
			CustomerID:    f.customer,
			SaleDate:      time.Date(2024, 7, f.day, 0, 0, 0, 0, time.UTC),
			PaymentStatus: f.status,
			CreatedAt:     now,
			UpdatedAt:     now,
		}))
	}

	all, err := s.ListSales(ctx, sale.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 9, all[0].SaleDate.Day())

	unpaid, err := s.ListSales(ctx, sale.ListFilter{Status: sale.StatusUnpaid, CustomerID: 1})
	require.NoError(t, err)
	require.Len(t, unpaid, 1)
	assert.Equal(t, 5, unpaid[0].SaleDate.Day())

	ranged, err := s.ListSales(ctx, sale.ListFilter{
		From: time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 7, 9, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Len(t, ranged, 2)
}

func TestStore_BacksLedger(t *testing.T) {
	ctx := context.Background()
	l := sale.NewLedger(newStore(t), nil, nil)

	sl, err := l.Create(ctx, sale.CreateParams{CustomerID: 1})
	require.NoError(t, err)

	_, err = l.AddLineItem(ctx, sl.ID, sale.LineItemParams{ItemID: 1, Quantity: 2, UnitPrice: 100})
	require.NoError(t, err)

	_, err = l.RecordPayment(ctx, sl.ID, sale.PaymentParams{Amount: 120})
	require.NoError(t, err)

	d, err := l.Details(ctx, sl.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), d.Sale.FinalAmount)
	assert.Equal(t, sale.StatusPartiallyPaid, d.Sale.PaymentStatus)

	require.NoError(t, l.Delete(ctx, sl.ID))
	_, err = l.Details(ctx, sl.ID)
	assert.ErrorIs(t, err, sale.ErrNotFound)
}
