package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"timeledger/internal/catalog"
	"timeledger/internal/cli"
	apphttp "timeledger/internal/http"
	"timeledger/internal/ledger"
	applog "timeledger/internal/log"
	"timeledger/internal/stats"
	ledgersync "timeledger/internal/sync"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx := context.Background()

	store, remoteStore := cli.OpenStores(ctx, logger, cfg)
	defer func() {
		if remoteStore.Cleanup != nil {
			if err := remoteStore.Cleanup(); err != nil {
				logger.Error("Remote store cleanup failed", applog.FieldError, err.Error())
			}
		}
		if store.Cleanup != nil {
			if err := store.Cleanup(); err != nil {
				logger.Error("Local store cleanup failed", applog.FieldError, err.Error())
			}
		}
	}()

	directory, err := catalog.Load()
	if err != nil {
		logger.Error("Failed to load activity catalog", applog.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Activity catalog loaded", "activities", len(directory.All()))

	// The broker is optional for the server; writes still land locally and
	// a later push uploads them.
	var notifier ledger.Notifier
	if broker := cli.ConnectBroker(logger, cfg); broker != nil {
		notifier = broker
		defer broker.Close()
	}

	binder := ledger.NewBinder(directory, store.Store, notifier)
	aggregator := stats.NewAggregator(store.Store)
	projector := stats.NewProjector(store.Store)
	reconciler := ledgersync.NewReconciler(store.Store, remoteStore.Store)

	srv := apphttp.NewServer(apphttp.Config{
		Addr:            ":" + cfg.Port,
		RateLimitPerMin: cfg.RateLimitPerMin,
		CacheTTL:        cfg.CacheTTL,
		CacheSize:       cfg.CacheSize,
	}, binder, directory, aggregator, projector, reconciler, logger)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err.Error())
		}
		cancel()
	}()

	logger.Info("Starting timeledger server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"remote", cfg.RemoteBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	<-runCtx.Done()
	logger.Info("Server stopped gracefully")
}
