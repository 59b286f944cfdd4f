package draft_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/supiri/internal/draft"
	"github.com/MrJamesThe3rd/supiri/internal/sale"
)

var now = time.Date(2024, 8, 20, 14, 0, 0, 0, time.UTC)

func TestDraft_New(t *testing.T) {
	d := draft.New(now)

	assert.NotEmpty(t, d.ID)
	assert.Equal(t, draft.StepCustomer, d.Step)
	assert.Equal(t, sale.MethodCash, d.PaymentMethod)
	assert.Equal(t, time.Date(2024, 8, 20, 0, 0, 0, 0, time.UTC), d.SaleDate)
	assert.Empty(t, d.Lines)
}

func TestDraft_AddItemMergesByItem(t *testing.T) {
	d := draft.New(now)

	require.NoError(t, d.AddItem(1, "Soap", 120))
	require.NoError(t, d.AddItem(2, "Milk", 300))
	require.NoError(t, d.AddItem(1, "Soap", 120))

	require.Len(t, d.Lines, 2)
	assert.Equal(t, int64(2), d.Lines[0].Quantity)
	assert.Equal(t, int64(240), d.Lines[0].Total)
	assert.Equal(t, int64(540), d.Subtotal())

	assert.ErrorIs(t, d.AddItem(0, "", 1), sale.ErrInvalidArgument)
	assert.ErrorIs(t, d.AddItem(3, "Bad", -1), sale.ErrInvalidArgument)
}

func TestDraft_Quantities(t *testing.T) {
	tests := []struct {
		name    string
		apply   func(d *draft.Draft) error
		wantQty int64
		wantErr error
	}{
		{name: "Set", apply: func(d *draft.Draft) error { return d.SetQuantity(1, 5) }, wantQty: 5},
		{name: "SetClampsToOne", apply: func(d *draft.Draft) error { return d.SetQuantity(1, -3) }, wantQty: 1},
		{name: "Increment", apply: func(d *draft.Draft) error { return d.Increment(1) }, wantQty: 3},
		{name: "Decrement", apply: func(d *draft.Draft) error { return d.Decrement(1) }, wantQty: 1},
		{
			name: "DecrementStopsAtOne",
			apply: func(d *draft.Draft) error {
				_ = d.Decrement(1)
				return d.Decrement(1)
			},
			wantQty: 1,
		},
		{name: "UnknownLine", apply: func(d *draft.Draft) error { return d.Increment(99) }, wantQty: 2, wantErr: draft.ErrLineNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := draft.New(now)
			require.NoError(t, d.AddItem(1, "Bread", 150))
			require.NoError(t, d.SetQuantity(1, 2))

			err := tt.apply(d)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, tt.wantQty, d.Lines[0].Quantity)
			assert.Equal(t, tt.wantQty*150, d.Lines[0].Total)
		})
	}
}

func TestDraft_RejectsOverflowingTotals(t *testing.T) {
	const price = 100

	d := draft.New(now)
	require.NoError(t, d.AddItem(1, "Gold", price))

	err := d.SetQuantity(1, math.MaxInt64/price+1)
	require.ErrorIs(t, err, sale.ErrInvalidArgument)
	assert.Equal(t, int64(1), d.Lines[0].Quantity, "the line keeps its last valid quantity")
	assert.Equal(t, int64(price), d.Lines[0].Total)

	require.NoError(t, d.AddItem(2, "Vault", math.MaxInt64-price))
	assert.ErrorIs(t, d.AddItem(3, "Coin", 1), sale.ErrInvalidArgument)
	assert.Len(t, d.Lines, 2, "the overflowing line is not staged")

	assert.ErrorIs(t, d.Increment(1), sale.ErrInvalidArgument)
	assert.ErrorIs(t, d.SetAdjustments(draft.Adjustments{Tax: 1}), sale.ErrInvalidArgument)
	assert.Equal(t, int64(math.MaxInt64), d.FinalAmount())
}

func TestDraft_IncrementAtMaxQuantity(t *testing.T) {
	d := draft.New(now)
	require.NoError(t, d.AddItem(1, "Sample", 0))
	require.NoError(t, d.SetQuantity(1, math.MaxInt64))

	assert.ErrorIs(t, d.Increment(1), sale.ErrInvalidArgument)
	assert.ErrorIs(t, d.AddItem(1, "Sample", 0), sale.ErrInvalidArgument)
	assert.Equal(t, int64(math.MaxInt64), d.Lines[0].Quantity, "the quantity does not wrap")
}

func TestDraft_RemoveItem(t *testing.T) {
	d := draft.New(now)
	require.NoError(t, d.AddItem(1, "A", 10))
	require.NoError(t, d.AddItem(2, "B", 20))

	require.NoError(t, d.RemoveItem(1))
	require.Len(t, d.Lines, 1)
	assert.Equal(t, int64(2), d.Lines[0].ItemID)

	assert.ErrorIs(t, d.RemoveItem(1), draft.ErrLineNotFound)
	assert.ErrorIs(t, d.RemoveItem(1), sale.ErrNotFound)
}

func TestDraft_Adjustments(t *testing.T) {
	d := draft.New(now)
	require.NoError(t, d.AddItem(1, "Rice", 250))
	require.NoError(t, d.SetQuantity(1, 2))

	require.NoError(t, d.SetAdjustments(draft.Adjustments{Discount: 50, Tax: 45, PaymentAmount: 200}))
	assert.Equal(t, int64(495), d.FinalAmount())
	assert.Equal(t, sale.StatusPartiallyPaid, d.PaymentStatus())
	assert.Equal(t, sale.MethodCash, d.PaymentMethod)

	require.NoError(t, d.SetAdjustments(draft.Adjustments{Discount: 50, Tax: 45, PaymentAmount: 495, PaymentMethod: sale.MethodCreditCard}))
	assert.Equal(t, sale.StatusPaid, d.PaymentStatus())

	assert.ErrorIs(t, d.SetAdjustments(draft.Adjustments{Discount: 501}), sale.ErrInvalidArgument)
	assert.ErrorIs(t, d.SetAdjustments(draft.Adjustments{Tax: -1}), sale.ErrInvalidArgument)
	assert.ErrorIs(t, d.SetAdjustments(draft.Adjustments{PaymentMethod: "cheque"}), sale.ErrInvalidArgument)

	assert.Equal(t, int64(50), d.Discount, "rejected adjustments leave the draft unchanged")
}

func TestDraft_StepGates(t *testing.T) {
	d := draft.New(now)

	assert.ErrorIs(t, d.Next(), draft.ErrIncomplete)
	assert.Equal(t, draft.StepCustomer, d.Step)

	require.NoError(t, d.SelectCustomer(4, "Ruwan"))
	require.NoError(t, d.Next())
	assert.Equal(t, draft.StepItems, d.Step)

	assert.ErrorIs(t, d.Next(), draft.ErrIncomplete)

	require.NoError(t, d.AddItem(1, "Tea", 90))
	require.NoError(t, d.Next())
	assert.Equal(t, draft.StepCheckout, d.Step)

	assert.ErrorIs(t, d.Next(), sale.ErrInvalidArgument)

	d.Back()
	d.Back()
	d.Back()
	assert.Equal(t, draft.StepCustomer, d.Step)
}

func TestDraft_Ready(t *testing.T) {
	d := draft.New(now)

	err := d.Ready()
	require.ErrorIs(t, err, draft.ErrIncomplete)
	assert.ErrorIs(t, err, sale.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "no customer selected")
	assert.Contains(t, err.Error(), "no items added")

	require.NoError(t, d.SelectCustomer(1, "A"))
	require.NoError(t, d.AddItem(1, "B", 1))
	assert.NoError(t, d.Ready())
}
