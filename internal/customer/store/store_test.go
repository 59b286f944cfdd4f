package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/supiri/internal/config"
	"github.com/MrJamesThe3rd/supiri/internal/customer"
	"github.com/MrJamesThe3rd/supiri/internal/customer/store"
	"github.com/MrJamesThe3rd/supiri/internal/database"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()

	db, err := database.New(config.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "customers.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(context.Background(), db))

	return store.New(db)
}

func TestStore_Lifecycle(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	c := &customer.Customer{Name: "Nimal", Phone: "0771234567", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.CreateCustomer(ctx, c))
	assert.NotZero(t, c.ID)

	got, err := s.GetCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Nimal", got.Name)
	assert.True(t, now.Equal(got.CreatedAt))

	got.Notes = "pays monthly"
	require.NoError(t, s.UpdateCustomer(ctx, got))

	list, err := s.ListCustomers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "pays monthly", list[0].Notes)

	require.NoError(t, s.DeleteCustomer(ctx, c.ID))

	_, err = s.GetCustomer(ctx, c.ID)
	assert.ErrorIs(t, err, customer.ErrNotFound)
	assert.ErrorIs(t, s.DeleteCustomer(ctx, c.ID), customer.ErrNotFound)
}
