package app_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/supiri/internal/app"
	"github.com/MrJamesThe3rd/supiri/internal/config"
	"github.com/MrJamesThe3rd/supiri/internal/customer"
	"github.com/MrJamesThe3rd/supiri/internal/draft"
	"github.com/MrJamesThe3rd/supiri/internal/item"
	"github.com/MrJamesThe3rd/supiri/internal/sale"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func testConfig(driver config.Driver) *config.Config {
	var cfg config.Config
	cfg.DB.Driver = driver
	cfg.Session.TTL = time.Hour

	return &cfg
}

// sellOne records a paid sale of one item through the wired services.
func sellOne(t *testing.T, a *app.App) *sale.Details {
	t.Helper()

	ctx := context.Background()

	c, err := a.Customers.Create(ctx, customer.Params{Name: "Ruwan"})
	require.NoError(t, err)

	it, err := a.Items.Create(ctx, item.Params{Name: "Tea 400g", Price: 1250})
	require.NoError(t, err)

	d, err := a.Drafts.Start(ctx)
	require.NoError(t, err)

	_, err = a.Drafts.SelectCustomer(ctx, d.ID, c.ID)
	require.NoError(t, err)

	_, err = a.Drafts.AddItem(ctx, d.ID, it.ID)
	require.NoError(t, err)

	_, err = a.Drafts.SetAdjustments(ctx, d.ID, draft.Adjustments{PaymentAmount: 1250})
	require.NoError(t, err)

	details, err := a.Drafts.Commit(ctx, d.ID)
	require.NoError(t, err)

	return details
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) *config.Config
	}{
		{
			name: "Memory",
			setup: func(t *testing.T) *config.Config {
				return testConfig(config.DriverMemory)
			},
		},
		{
			name: "SQLite",
			setup: func(t *testing.T) *config.Config {
				cfg := testConfig(config.DriverSQLite)
				cfg.DB.Path = filepath.Join(t.TempDir(), "supiri.db")

				return cfg
			},
		},
		{
			name: "RedisSessions",
			setup: func(t *testing.T) *config.Config {
				cfg := testConfig(config.DriverMemory)
				cfg.Session.RedisAddr = miniredis.RunT(t).Addr()

				return cfg
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := app.Open(context.Background(), tt.setup(t), discard)
			require.NoError(t, err)
			t.Cleanup(func() { assert.NoError(t, a.Close()) })

			details := sellOne(t, a)
			assert.Equal(t, sale.StatusPaid, details.Sale.PaymentStatus)
			assert.Equal(t, int64(1250), details.Sale.FinalAmount)
			assert.Len(t, details.Items, 1)
		})
	}
}

func TestOpen_UnreachableRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig(config.DriverMemory)
	cfg.Session.RedisAddr = addr

	_, err := app.Open(context.Background(), cfg, discard)
	assert.ErrorContains(t, err, "session redis")
}
