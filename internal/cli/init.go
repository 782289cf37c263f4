// Package cli consolidates the initialization steps shared by
// cmd/timeledger and cmd/timeledger-worker.
package cli

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"timeledger/internal/amqp"
	"timeledger/internal/backend"
	"timeledger/internal/config"
	applog "timeledger/internal/log"
)

// SetupLogger builds the process logger and installs it as the slog
// default. The level comes from LOG_LEVEL and defaults to info.
func SetupLogger(component string) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(os.Getenv("LOG_LEVEL")),
		Component: component,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err.Error())
		os.Exit(1)
	}
	return cfg
}

// OpenStores opens the local and remote stores selected by cfg, exiting
// the process on failure. Callers own both cleanup funcs.
func OpenStores(ctx context.Context, logger *applog.Logger, cfg *config.Config) (*backend.StoreResult, *backend.RemoteResult) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err.Error())
		os.Exit(1)
	}

	factory := backend.NewFactory(logger.Logger)

	store, err := factory.OpenStore(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to open local store",
			applog.FieldError, err.Error(),
			"backend", backendCfg.Type.String())
		os.Exit(1)
	}

	remote, err := factory.OpenRemote(ctx, backendCfg)
	if err != nil {
		if store.Cleanup != nil {
			_ = store.Cleanup()
		}
		logger.Error("Failed to open remote store",
			applog.FieldError, err.Error(),
			"remote", backendCfg.Remote.String())
		os.Exit(1)
	}

	return store, remote
}

// ConnectBroker dials the message broker. A broken broker is not fatal
// for the server; callers get nil and run without async propagation.
func ConnectBroker(logger *applog.Logger, cfg *config.Config) *amqp.Client {
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("Broker unavailable, continuing without async sync",
			applog.FieldError, err.Error())
		return nil
	}
	return client
}
