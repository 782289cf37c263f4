// Package badger persists activity logs in an embedded BadgerDB key-value
// store. Log keys embed the slot ID, so a date maps to a key prefix scan.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"timeledger/internal/core"
	"timeledger/internal/storage"
)

const (
	logKeyPrefix   = "log:"
	stateKeyPrefix = "state:"

	stateLastSyncTime = stateKeyPrefix + "last_sync_time"
	stateDeviceID     = stateKeyPrefix + "device_id"
)

// Config holds the knobs an embedded store needs. InMemory is for tests.
type Config struct {
	Path       string
	InMemory   bool
	SyncWrites bool
	Logger     *slog.Logger
}

type Store struct {
	db *badger.DB
}

var _ storage.Store = (*Store)(nil)

func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badger path is required for a persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0755); err != nil {
			return nil, fmt.Errorf("create badger directory: %w", err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// storedLog is the on-disk JSON shape of a core.ActivityLog.
type storedLog struct {
	ID           string    `json:"id"`
	ActivityID   string    `json:"activity_id"`
	ActivityName string    `json:"activity_name"`
	HourlyValue  int64     `json:"hourly_value"`
	BlockValue   int64     `json:"block_value"`
	SlotStart    time.Time `json:"time_slot_start"`
	SlotEnd      time.Time `json:"time_slot_end"`
}

func (s *Store) LogsForDate(ctx context.Context, d core.Date) ([]core.ActivityLog, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return s.scanLogs(ctx, logKeyPrefix+d.String()+"-")
}

func (s *Store) AllLogs(ctx context.Context) ([]core.ActivityLog, error) {
	return s.scanLogs(ctx, logKeyPrefix)
}

func (s *Store) scanLogs(ctx context.Context, prefix string) ([]core.ActivityLog, error) {
	var logs []core.ActivityLog
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := it.Item().Value(func(val []byte) error {
				var rec storedLog
				if err := json.Unmarshal(val, &rec); err != nil {
					return fmt.Errorf("decode log record: %w", err)
				}
				logs = append(logs, core.ActivityLog(rec))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan logs: %w", err)
	}
	return logs, nil
}

func (s *Store) SaveLog(ctx context.Context, log core.ActivityLog) error {
	if err := log.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(storedLog(log))
	if err != nil {
		return fmt.Errorf("encode log record: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(logKeyPrefix+log.ID), raw)
	})
	if err != nil {
		return fmt.Errorf("save log: %w", err)
	}

	slog.InfoContext(ctx, "Activity log saved to Badger",
		"id", log.ID,
		"activity", log.ActivityName,
		"block_value", log.BlockValue)
	return nil
}

func (s *Store) DeleteLog(_ context.Context, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(logKeyPrefix + id))
	})
	if err != nil {
		return fmt.Errorf("delete log: %w", err)
	}
	return nil
}

func (s *Store) LastSyncTime(_ context.Context) (time.Time, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(stateLastSyncTime))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("get last sync time: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, string(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last sync time: %w", err)
	}
	return t, nil
}

func (s *Store) SetLastSyncTime(_ context.Context, t time.Time) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(stateLastSyncTime), []byte(t.UTC().Format(time.RFC3339Nano)))
	})
	if err != nil {
		return fmt.Errorf("set last sync time: %w", err)
	}
	return nil
}

func (s *Store) DeviceID(_ context.Context) (string, error) {
	var id string
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(stateDeviceID))
		if err == nil {
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			id = string(raw)
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		id = uuid.NewString()
		return txn.Set([]byte(stateDeviceID), []byte(id))
	})
	if err != nil {
		return "", fmt.Errorf("device id: %w", err)
	}
	return id, nil
}

// badgerLogger adapts slog to badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
