package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"timeledger/internal/amqp"
	"timeledger/internal/cli"
	applog "timeledger/internal/log"
	ledgersync "timeledger/internal/sync"
	"timeledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)

	logger.Info("Starting timeledger-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	// The worker exists to consume sync messages; without a broker it has
	// nothing to do.
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err.Error())
		os.Exit(1)
	}
	defer amqpClient.Close()

	reconciler := ledgersync.NewReconciler(store.Store, remoteStore.Store)

	// Probe once at startup so a misconfigured remote is loud in the logs.
	if status := reconciler.TestConnection(ctx); !status.Connected {
		logger.Warn("Remote store unreachable at startup", applog.FieldError, status.Error)
	} else {
		logger.Info("Remote store reachable")
	}

	syncWorker := worker.NewSyncWorker(store.Store, remoteStore.Store)

	go func() {
		if err := amqpClient.Consume(ctx, syncWorker.Handlers(ctx)); err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", applog.FieldError, err.Error())
			}
			cancel()
		}
	}()

	pusher := worker.NewPusher(reconciler, worker.PusherConfig{Interval: cfg.SyncInterval})
	if err := pusher.Start(ctx); err != nil {
		logger.Error("Failed to start periodic pusher", applog.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Periodic pusher started", "interval", cfg.SyncInterval.String())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("Shutting down worker...")
	if err := pusher.Stop(shutdownCtx); err != nil {
		logger.Warn("Pusher stop timed out", applog.FieldError, err.Error())
	}
	cancel()
	logger.Info("Worker shutdown complete")
}
