package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/supiri/internal/app"
	"github.com/MrJamesThe3rd/supiri/internal/config"
	supiriHttp "github.com/MrJamesThe3rd/supiri/internal/http"
	customerHandler "github.com/MrJamesThe3rd/supiri/internal/http/customer"
	draftHandler "github.com/MrJamesThe3rd/supiri/internal/http/draft"
	itemHandler "github.com/MrJamesThe3rd/supiri/internal/http/item"
	saleHandler "github.com/MrJamesThe3rd/supiri/internal/http/sale"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	var (
		customerH = customerHandler.NewHandler(a.Customers)
		itemH     = itemHandler.NewHandler(a.Items)
		saleH     = saleHandler.NewHandler(a.Ledger, a.Items)
		draftH    = draftHandler.NewHandler(a.Drafts)
	)

	router := supiriHttp.New(supiriHttp.Options{
		Timeout:        cfg.Server.Timeout,
		AllowedOrigins: cfg.Server.CORSOrigins,
		RateLimit:      cfg.Server.RateLimit,
	}, customerH, itemH, saleH, draftH)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	logger.Info("starting server", "name", cfg.App.Name, "port", srv.Addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
