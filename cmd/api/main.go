package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cassiomorais/storekit/internal/application/continuation"
	"github.com/cassiomorais/storekit/internal/application/purchase"
	"github.com/cassiomorais/storekit/internal/bootstrap"
	"github.com/cassiomorais/storekit/internal/domain/catalog"
	"github.com/cassiomorais/storekit/internal/infrastructure/ads"
	"github.com/cassiomorais/storekit/internal/infrastructure/receipt"
	infraRedis "github.com/cassiomorais/storekit/internal/infrastructure/redis"
	"github.com/cassiomorais/storekit/internal/infrastructure/stores"
	"github.com/cassiomorais/storekit/internal/interfaces/http/handlers"
	"github.com/cassiomorais/storekit/internal/repository/postgres"
	"github.com/cassiomorais/storekit/internal/storefront"
	"github.com/cassiomorais/storekit/pkg/clock"
	"github.com/cassiomorais/storekit/pkg/pause"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "storekit-api", "storekit")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	cfg := app.Config

	cat, err := catalog.LoadFile(cfg.Storefront.CatalogPath)
	if err != nil {
		app.Logger.Fatal().Err(err).Str("path", cfg.Storefront.CatalogPath).Msg("Failed to load catalog")
	}
	app.Logger.Info().Int("products", cat.Len()).Msg("Catalog loaded")

	// --- Store backend ---
	activeStore := storefront.Store(cfg.Storefront.Store)
	caps := storefront.Resolve(storefront.Platform(cfg.Storefront.Platform), activeStore)

	factory := stores.NewFactory(
		cfg.Storefront.CircuitBreakerThreshold,
		cfg.Storefront.CircuitBreakerTimeout,
		app.Logger,
		stores.NewFakeStore(
			stores.WithMode(stores.Mode(cfg.Storefront.Fake.Mode)),
			stores.WithLatency(cfg.Storefront.Fake.Latency),
			stores.WithFailureRate(cfg.Storefront.Fake.FailureRate),
		),
	)
	backend, err := factory.Get(activeStore)
	if err != nil {
		app.Logger.Fatal().Err(err).Str("store", cfg.Storefront.Store).Msg("No backend for configured store")
	}

	var validator purchase.ReceiptValidator
	if cfg.Storefront.ValidateReceipts {
		validator = receipt.NewValidator(cfg.Storefront.BundleID, app.Logger)
	}

	// --- Persistence and events ---
	history := postgres.NewEntitlementRepository(app.Pool)
	pendStore := infraRedis.NewPendingStore(app.Redis, cfg.InstanceID, app.Logger)
	notifier := newMetricsNotifier(infraRedis.NewStreamNotifier(app.Redis, app.Logger), app.Metrics)

	// --- Controllers ---
	clk := clock.New()

	purchases := purchase.NewController(
		purchase.Config{
			Policy:           purchase.ConfirmationPolicy(cfg.Storefront.ConfirmationPolicy),
			ConfirmDelay:     cfg.Storefront.ConfirmDelay,
			ValidateReceipts: cfg.Storefront.ValidateReceipts,
			EnablePayouts:    cfg.Storefront.EnablePayouts,
			DeveloperPayload: cfg.Storefront.DeveloperPayload,
		},
		caps,
		backend,
		validator,
		history,
		pendStore,
		notifier,
		clk,
		app.Logger,
	)
	if err := purchases.Initialize(ctx, cat); err != nil {
		app.Logger.Fatal().Err(err).Msg("Failed to initialize purchase controller")
	}

	pauses := pause.NewRegistry(nil)
	cont := continuation.NewController(
		continuation.Config{
			AdsEnabled:   cfg.Ads.Enabled,
			RewardWindow: cfg.Ads.RewardCooldown,
		},
		ads.NewFakeService(app.Logger),
		pauses,
		clk,
		notifier,
		app.Logger,
	)

	// --- Build router ---
	router := handlers.NewRouter(handlers.RouterDeps{
		Pool:         app.Pool,
		RedisClient:  app.Redis,
		Purchases:    purchases,
		Continuation: cont,
		Pauses:       pauses,
		Catalog:      cat,
		Store:        cfg.Storefront.Store,
		Metrics:      app.Metrics,
		CORSConfig:   cfg.Server.CORS,
	})

	// --- HTTP server ---
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	// 1. HTTP server.
	g.Go(func() error {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// 2. Countdown ticker: drives the cooldown offer text and the cooldown
	// gauge once per second, matching the original per-frame update.
	g.Go(func() error {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-ticker.C:
				cont.Tick()
				app.Metrics.RewardCooldown.Set(cont.Remaining().Seconds())
			}
		}
	})

	// 3. Wait for shutdown signal.
	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return gCtx.Err()
		case <-quit:
			app.Logger.Info().Msg("Shutting down server...")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				app.Logger.Error().Err(err).Msg("Server forced to shutdown")
			}
			cancel()
			return nil
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		app.Logger.Error().Err(err).Msg("Server error")
	}
	app.Logger.Info().Msg("Server exited")
}
