// Package app wires the configured storage and session backends into the
// services shared by the API server and the terminal UI.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/MrJamesThe3rd/supiri/internal/config"
	"github.com/MrJamesThe3rd/supiri/internal/customer"
	customerStore "github.com/MrJamesThe3rd/supiri/internal/customer/store"
	"github.com/MrJamesThe3rd/supiri/internal/database"
	"github.com/MrJamesThe3rd/supiri/internal/draft"
	"github.com/MrJamesThe3rd/supiri/internal/item"
	itemStore "github.com/MrJamesThe3rd/supiri/internal/item/store"
	"github.com/MrJamesThe3rd/supiri/internal/memstore"
	"github.com/MrJamesThe3rd/supiri/internal/sale"
	saleStore "github.com/MrJamesThe3rd/supiri/internal/sale/store"
)

type App struct {
	Customers *customer.Service
	Items     *item.Service
	Ledger    *sale.Ledger
	Drafts    *draft.Service

	closers []func() error
}

func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{}

	var (
		customerRepo customer.Repository
		itemRepo     item.Repository
		saleRepo     sale.Repository
	)

	switch cfg.DB.Driver {
	case config.DriverMemory:
		st := memstore.New()
		customerRepo, itemRepo, saleRepo = st, st, st
	default:
		db, err := openDB(ctx, cfg)
		if err != nil {
			return nil, err
		}

		a.closers = append(a.closers, db.Close)
		customerRepo, itemRepo, saleRepo = customerStore.New(db), itemStore.New(db), saleStore.New(db)
	}

	sessions, err := openSessions(ctx, cfg, a)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Customers = customer.NewService(customerRepo)
	a.Items = item.NewService(itemRepo)
	a.Ledger = sale.NewLedger(saleRepo, a.Customers, logger)
	a.Drafts = draft.NewService(sessions, a.Ledger, a.Customers, a.Items, logger)

	logger.Info("storage ready", "driver", cfg.DB.Driver, "sessions", sessionBackend(cfg))

	return a, nil
}

func openDB(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	db, err := database.New(cfg.DB.Driver, cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

func openSessions(ctx context.Context, cfg *config.Config, a *App) (draft.SessionStore, error) {
	if cfg.Session.RedisAddr == "" {
		return draft.NewMemoryStore(cfg.Session.TTL), nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Session.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach session redis at %s: %w", cfg.Session.RedisAddr, err)
	}

	a.closers = append(a.closers, client.Close)

	return draft.NewRedisStore(client, cfg.Session.TTL), nil
}

func sessionBackend(cfg *config.Config) string {
	if cfg.Session.RedisAddr == "" {
		return "memory"
	}

	return "redis"
}

// Close releases the database and session connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}

	return errors.Join(errs...)
}
