package backend

import (
	"context"
	"fmt"
	"log/slog"

	remotemem "timeledger/internal/remote/memory"
	"timeledger/internal/remote/postgres"
	"timeledger/internal/remote/sheets"
	"timeledger/internal/storage/badger"
	localmem "timeledger/internal/storage/memory"
	"timeledger/internal/storage/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new store factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// OpenStore implements Factory.OpenStore
func (f *DefaultFactory) OpenStore(_ context.Context, config Config) (*StoreResult, error) {
	if !config.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", config.Type)
	}

	switch config.Type {
	case SQLiteBackend:
		return f.openSQLiteStore(config)
	case BadgerBackend:
		return f.openBadgerStore(config)
	case MemoryBackend:
		return f.openMemoryStore()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) openSQLiteStore(config Config) (*StoreResult, error) {
	repo, err := sqlite.New(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite store", "db_path", config.SQLiteDBPath)

	return &StoreResult{
		Store:   repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) openBadgerStore(config Config) (*StoreResult, error) {
	store, err := badger.Open(badger.Config{Path: config.BadgerDBPath})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Badger store: %w", err)
	}

	f.logger.Info("Initialized Badger store", "db_path", config.BadgerDBPath)

	return &StoreResult{
		Store:   store,
		Cleanup: store.Close,
	}, nil
}

func (f *DefaultFactory) openMemoryStore() (*StoreResult, error) {
	f.logger.Info("Initialized memory store")

	return &StoreResult{
		Store:   localmem.New(),
		Cleanup: nil, // No cleanup needed for memory store
	}, nil
}

// OpenRemote implements Factory.OpenRemote
func (f *DefaultFactory) OpenRemote(ctx context.Context, config Config) (*RemoteResult, error) {
	if !config.Remote.IsValid() {
		return nil, fmt.Errorf("invalid remote type: %s", config.Remote)
	}

	switch config.Remote {
	case SheetsRemote:
		return f.openSheetsRemote(ctx)
	case PostgresRemote:
		return f.openPostgresRemote(ctx, config)
	case MemoryRemote:
		return f.openMemoryRemote()
	default:
		return nil, fmt.Errorf("unsupported remote type: %s", config.Remote)
	}
}

func (f *DefaultFactory) openSheetsRemote(ctx context.Context) (*RemoteResult, error) {
	cli, err := sheets.NewFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets remote")

	return &RemoteResult{
		Store:   cli,
		Cleanup: nil, // No cleanup needed for sheets remote
	}, nil
}

func (f *DefaultFactory) openPostgresRemote(ctx context.Context, config Config) (*RemoteResult, error) {
	repo, err := postgres.New(ctx, config.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
	}

	f.logger.Info("Initialized Postgres remote")

	return &RemoteResult{
		Store:   repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) openMemoryRemote() (*RemoteResult, error) {
	f.logger.Info("Initialized memory remote")

	return &RemoteResult{
		Store:   remotemem.New(),
		Cleanup: nil, // No cleanup needed for memory remote
	}, nil
}
