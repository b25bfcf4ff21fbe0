package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"pizzaria-checkout/internal/backend"
	"pizzaria-checkout/internal/checkout"
	"pizzaria-checkout/internal/config"
	"pizzaria-checkout/internal/db"
	"pizzaria-checkout/internal/geo"
	"pizzaria-checkout/internal/httpserver"
	"pizzaria-checkout/internal/kv"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()

	// Without DB_DSN the service runs on the in-memory store; drafts
	// and payment sessions then survive only as long as the process.
	var dbpool *pgxpool.Pool
	var store kv.Store
	if cfg.DBConnString != "" {
		pool, err := db.Connect(ctx, cfg.DBConnString)
		if err != nil {
			logger.Fatalf("connect to db: %v", err)
		}
		defer pool.Close()
		dbpool = pool
		store = kv.NewPostgres(pool, logger)
		logger.Printf("using postgres kv store")
	} else {
		store = kv.NewMemory()
		logger.Printf("no DB_DSN set, using in-memory kv store")
	}

	orderBackend := backend.New(cfg.BackendBaseURL, cfg.BackendTimeout, logger)
	if cfg.BackendAPIKey != "" {
		orderBackend.SetAPIKey(cfg.BackendAPIKey)
	}
	routeClient := geo.NewRouteClient(cfg.RouteBaseURL, cfg.BackendTimeout)
	cepClient := geo.NewCEPClient(cfg.CEPBaseURL, cfg.BackendTimeout)

	manager := checkout.NewManager(checkout.ManagerDeps{
		Backend: orderBackend,
		Routes:  routeClient,
		CEP:     cepClient,
		KV:      store,
		Logger:  logger,
	}, checkout.Config{
		StoreOrigin:     cfg.StoreOrigin,
		PhoneDebounce:   cfg.PhoneDebounce,
		AddressDebounce: cfg.AddressDebounce,
		Coupon:          checkout.FixedCoupon{Code: cfg.CouponCode, Cents: cfg.CouponCents},
	}, cfg.SessionIdleTTL)
	defer manager.Close()

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		Sessions: manager,
		Menu:     orderBackend,
		Status:   orderBackend,
		CEP:      cepClient,
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}
