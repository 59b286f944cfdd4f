package draft_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/supiri/internal/customer"
	"github.com/MrJamesThe3rd/supiri/internal/draft"
	"github.com/MrJamesThe3rd/supiri/internal/item"
	"github.com/MrJamesThe3rd/supiri/internal/memstore"
	"github.com/MrJamesThe3rd/supiri/internal/sale"
)

// stagedDraft saves a ready-to-commit draft: 2 x 100 and 1 x 50, discount 20,
// tax 10, paying 100 by bank transfer.
func stagedDraft(t *testing.T, store draft.SessionStore) *draft.Draft {
	t.Helper()

	d := draft.New(now)
	require.NoError(t, d.SelectCustomer(7, "Dilani"))
	require.NoError(t, d.AddItem(1, "Pen", 100))
	require.NoError(t, d.AddItem(1, "Pen", 100))
	require.NoError(t, d.AddItem(2, "Book", 50))
	require.NoError(t, d.SetAdjustments(draft.Adjustments{
		Discount:      20,
		Tax:           10,
		PaymentAmount: 100,
		PaymentMethod: sale.MethodBankTransfer,
		Notes:         "school order",
	}))
	require.NoError(t, store.Save(context.Background(), d))

	return d
}

func TestService_Commit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := draft.NewMemoryStore(time.Hour)
	d := stagedDraft(t, store)
	ledger := draft.NewMockLedger(ctrl)

	gomock.InOrder(
		ledger.EXPECT().
			Create(gomock.Any(), sale.CreateParams{
				CustomerID: 7,
				SaleDate:   d.SaleDate,
				Notes:      "school order",
				Subtotal:   250,
				Discount:   20,
				Tax:        10,
				ItemCount:  2,
			}).
			Return(&sale.Sale{ID: 42}, nil),
		ledger.EXPECT().
			AttachLineItem(gomock.Any(), int64(42), sale.LineItem{ItemID: 1, Quantity: 2, Price: 100, Total: 200}).
			Return(&sale.LineItem{ID: 1}, nil),
		ledger.EXPECT().
			AttachLineItem(gomock.Any(), int64(42), sale.LineItem{ItemID: 2, Quantity: 1, Price: 50, Total: 50}).
			Return(&sale.LineItem{ID: 2}, nil),
		ledger.EXPECT().
			RecordPayment(gomock.Any(), int64(42), sale.PaymentParams{
				Amount: 100,
				Method: sale.MethodBankTransfer,
				Notes:  "Initial payment",
			}).
			Return(&sale.Payment{ID: 3}, nil),
		ledger.EXPECT().
			Details(gomock.Any(), int64(42)).
			Return(&sale.Details{Sale: &sale.Sale{ID: 42}}, nil),
	)

	svc := draft.NewService(store, ledger, nil, nil, nil)

	got, err := svc.Commit(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.Sale.ID)

	_, err = store.Load(context.Background(), d.ID)
	assert.ErrorIs(t, err, draft.ErrNotFound, "committed drafts are cleared")
}

func TestService_CommitWithoutPayment(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := draft.NewMemoryStore(time.Hour)
	d := draft.New(now)
	require.NoError(t, d.SelectCustomer(7, "Dilani"))
	require.NoError(t, d.AddItem(1, "Pen", 100))
	require.NoError(t, store.Save(context.Background(), d))

	ledger := draft.NewMockLedger(ctrl)
	ledger.EXPECT().Create(gomock.Any(), gomock.Any()).Return(&sale.Sale{ID: 1}, nil)
	ledger.EXPECT().AttachLineItem(gomock.Any(), int64(1), gomock.Any()).Return(&sale.LineItem{}, nil)
	ledger.EXPECT().RecordPayment(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	ledger.EXPECT().Details(gomock.Any(), int64(1)).Return(&sale.Details{Sale: &sale.Sale{ID: 1}}, nil)

	_, err := draft.NewService(store, ledger, nil, nil, nil).Commit(context.Background(), d.ID)
	assert.NoError(t, err)
}

func TestService_CommitFailures(t *testing.T) {
	errDisk := errors.New("disk full")

	type testCase struct {
		name        string
		setupMock   func(m *draft.MockLedger)
		wantPartial bool
	}

	tests := []testCase{
		{
			name: "CreateFails",
			setupMock: func(m *draft.MockLedger) {
				m.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, errDisk)
			},
		},
		{
			name: "LineItemFails",
			setupMock: func(m *draft.MockLedger) {
				m.EXPECT().Create(gomock.Any(), gomock.Any()).Return(&sale.Sale{ID: 9}, nil)
				m.EXPECT().AttachLineItem(gomock.Any(), int64(9), gomock.Any()).Return(&sale.LineItem{}, nil)
				m.EXPECT().AttachLineItem(gomock.Any(), int64(9), gomock.Any()).Return(nil, errDisk)
			},
			wantPartial: true,
		},
		{
			name: "PaymentFails",
			setupMock: func(m *draft.MockLedger) {
				m.EXPECT().Create(gomock.Any(), gomock.Any()).Return(&sale.Sale{ID: 9}, nil)
				m.EXPECT().AttachLineItem(gomock.Any(), int64(9), gomock.Any()).Return(&sale.LineItem{}, nil).Times(2)
				m.EXPECT().RecordPayment(gomock.Any(), int64(9), gomock.Any()).Return(nil, errDisk)
			},
			wantPartial: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			store := draft.NewMemoryStore(time.Hour)
			d := stagedDraft(t, store)

			ledger := draft.NewMockLedger(ctrl)
			tt.setupMock(ledger)

			_, err := draft.NewService(store, ledger, nil, nil, nil).Commit(context.Background(), d.ID)
			require.ErrorIs(t, err, errDisk)

			if !tt.wantPartial {
				assert.NotErrorIs(t, err, sale.ErrPartialCascade)
				return
			}

			assert.ErrorIs(t, err, sale.ErrPartialCascade)

			var commitErr *draft.CommitError
			require.ErrorAs(t, err, &commitErr)
			assert.Equal(t, int64(9), commitErr.SaleID)

			_, err = store.Load(context.Background(), d.ID)
			assert.NoError(t, err, "a failed commit keeps the draft")
		})
	}
}

func TestService_CommitIncomplete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := draft.NewMemoryStore(time.Hour)
	ledger := draft.NewMockLedger(ctrl)
	svc := draft.NewService(store, ledger, nil, nil, nil)

	d, err := svc.Start(context.Background())
	require.NoError(t, err)

	_, err = svc.Commit(context.Background(), d.ID)
	assert.ErrorIs(t, err, draft.ErrIncomplete)
}

func TestService_Catalogue(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	customers := draft.NewMockCustomerFinder(ctrl)
	customers.EXPECT().Get(gomock.Any(), int64(5)).Return(&customer.Customer{ID: 5, Name: "Asanka"}, nil)
	customers.EXPECT().Get(gomock.Any(), int64(6)).Return(nil, customer.ErrNotFound)

	items := draft.NewMockItemFinder(ctrl)
	items.EXPECT().Get(gomock.Any(), int64(11)).Return(&item.Item{ID: 11, Name: "Cake", Price: 900}, nil).Times(2)

	svc := draft.NewService(draft.NewMemoryStore(time.Hour), nil, customers, items, nil)
	ctx := context.Background()

	d, err := svc.Start(ctx)
	require.NoError(t, err)

	_, err = svc.SelectCustomer(ctx, d.ID, 6)
	assert.ErrorIs(t, err, customer.ErrNotFound)

	d, err = svc.SelectCustomer(ctx, d.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, "Asanka", d.CustomerName)

	d, err = svc.Next(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, draft.StepItems, d.Step)

	_, err = svc.AddItem(ctx, d.ID, 11)
	require.NoError(t, err)

	d, err = svc.AddItem(ctx, d.ID, 11)
	require.NoError(t, err)
	require.Len(t, d.Lines, 1)
	assert.Equal(t, int64(1800), d.Lines[0].Total)

	d, err = svc.Decrement(ctx, d.ID, 11)
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.Lines[0].Quantity)

	d, err = svc.Back(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, draft.StepCustomer, d.Step)

	require.NoError(t, svc.Discard(ctx, d.ID))
	_, err = svc.Get(ctx, d.ID)
	assert.ErrorIs(t, err, draft.ErrNotFound)
}

func TestService_CommitThroughLedger(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	customers := customer.NewService(st)
	items := item.NewService(st)
	ledger := sale.NewLedger(st, customers, nil)

	c, err := customers.Create(ctx, customer.Params{Name: "Harsha"})
	require.NoError(t, err)

	it, err := items.Create(ctx, item.Params{Name: "Lamp", Price: 100})
	require.NoError(t, err)

	svc := draft.NewService(draft.NewMemoryStore(time.Hour), ledger, customers, items, nil)

	d, err := svc.Start(ctx)
	require.NoError(t, err)

	_, err = svc.SelectCustomer(ctx, d.ID, c.ID)
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, d.ID, it.ID)
	require.NoError(t, err)

	_, err = svc.SetQuantity(ctx, d.ID, it.ID, 2)
	require.NoError(t, err)

	_, err = svc.SetAdjustments(ctx, d.ID, draft.Adjustments{PaymentAmount: 120})
	require.NoError(t, err)

	details, err := svc.Commit(ctx, d.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(200), details.Sale.Subtotal)
	assert.Equal(t, int64(200), details.Sale.FinalAmount)
	assert.Equal(t, int64(120), details.Sale.AmountPaid)
	assert.Equal(t, sale.StatusPartiallyPaid, details.Sale.PaymentStatus)
	assert.Equal(t, 1, details.Sale.ItemCount)
	require.Len(t, details.Payments, 1)
	assert.Equal(t, "Initial payment", details.Payments[0].Notes)
	assert.Equal(t, sale.MethodCash, details.Payments[0].Method)
	assert.Equal(t, "Harsha", details.Customer.Name)
}

// slowLedger widens the window between reading a draft and writing its sale.
type slowLedger struct {
	*sale.Ledger
}

func (l slowLedger) Create(ctx context.Context, params sale.CreateParams) (*sale.Sale, error) {
	time.Sleep(5 * time.Millisecond)
	return l.Ledger.Create(ctx, params)
}

func TestService_ConcurrentCommitCreatesOneSale(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	customers := customer.NewService(st)
	ledger := sale.NewLedger(st, customers, nil)

	c, err := customers.Create(ctx, customer.Params{Name: "Ruwan"})
	require.NoError(t, err)

	store := draft.NewMemoryStore(time.Hour)
	d := draft.New(now)
	require.NoError(t, d.SelectCustomer(c.ID, c.Name))
	require.NoError(t, d.AddItem(1, "Pen", 100))
	require.NoError(t, d.SetAdjustments(draft.Adjustments{PaymentAmount: 100}))
	require.NoError(t, store.Save(ctx, d))

	svc := draft.NewService(store, slowLedger{ledger}, nil, nil, nil)

	const workers = 8

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		committed int
	)

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := svc.Commit(ctx, d.ID)
			if err != nil {
				assert.ErrorIs(t, err, draft.ErrNotFound)
				return
			}

			mu.Lock()
			committed++
			mu.Unlock()
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, committed)

	page, err := ledger.List(ctx, sale.ListParams{})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)

	got := page.Sales[0].Sale
	assert.Equal(t, int64(100), got.AmountPaid)
	assert.Equal(t, sale.StatusPaid, got.PaymentStatus)

	items, payments := st.Counts(got.ID)
	assert.Equal(t, 1, items)
	assert.Equal(t, 1, payments)
}

func TestService_ConcurrentUpdatesKeepEveryChange(t *testing.T) {
	ctx := context.Background()
	store := draft.NewMemoryStore(time.Hour)

	d := draft.New(now)
	require.NoError(t, d.AddItem(1, "Pen", 100))
	require.NoError(t, store.Save(ctx, d))

	svc := draft.NewService(store, nil, nil, nil, nil)

	const workers = 20

	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := svc.Increment(ctx, d.ID, 1)
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	got, err := svc.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(workers+1), got.Lines[0].Quantity)
	assert.Equal(t, int64((workers+1)*100), got.Lines[0].Total)
}

func TestService_CommitResumesAfterPartialFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	errDisk := errors.New("disk full")

	store := draft.NewMemoryStore(time.Hour)
	d := stagedDraft(t, store)
	ledger := draft.NewMockLedger(ctrl)
	svc := draft.NewService(store, ledger, nil, nil, nil)

	gomock.InOrder(
		ledger.EXPECT().Create(gomock.Any(), gomock.Any()).Return(&sale.Sale{ID: 9}, nil).Times(1),
		ledger.EXPECT().
			AttachLineItem(gomock.Any(), int64(9), sale.LineItem{ItemID: 1, Quantity: 2, Price: 100, Total: 200}).
			Return(&sale.LineItem{ID: 1}, nil),
		ledger.EXPECT().
			AttachLineItem(gomock.Any(), int64(9), sale.LineItem{ItemID: 2, Quantity: 1, Price: 50, Total: 50}).
			Return(nil, errDisk),
		ledger.EXPECT().
			AttachLineItem(gomock.Any(), int64(9), sale.LineItem{ItemID: 2, Quantity: 1, Price: 50, Total: 50}).
			Return(&sale.LineItem{ID: 2}, nil),
		ledger.EXPECT().RecordPayment(gomock.Any(), int64(9), gomock.Any()).Return(&sale.Payment{ID: 3}, nil),
		ledger.EXPECT().Details(gomock.Any(), int64(9)).Return(&sale.Details{Sale: &sale.Sale{ID: 9}}, nil),
	)

	_, err := svc.Commit(ctx, d.ID)

	var commitErr *draft.CommitError
	require.ErrorAs(t, err, &commitErr)
	assert.Equal(t, int64(9), commitErr.SaleID)

	kept, err := svc.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(9), kept.SaleID)
	assert.Equal(t, 1, kept.LinesAttached)

	_, err = svc.Increment(ctx, d.ID, 1)
	assert.ErrorIs(t, err, draft.ErrCommitted, "a partly committed draft cannot change")

	got, err := svc.Commit(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(9), got.Sale.ID)

	_, err = svc.Get(ctx, d.ID)
	assert.ErrorIs(t, err, draft.ErrNotFound)
}
