// Package storage defines the local persistence contract of the ledger.
// Adapters live in subpackages; wiring happens in internal/backend.
package storage

import (
	"context"
	"time"

	"timeledger/internal/core"
)

type (
	// Store is the local, offline-first log store. Logs are keyed by their
	// slot-derived ID; SaveLog upserts and DeleteLog tolerates missing IDs.
	Store interface {
		LogsForDate(ctx context.Context, d core.Date) ([]core.ActivityLog, error)
		AllLogs(ctx context.Context) ([]core.ActivityLog, error)
		SaveLog(ctx context.Context, log core.ActivityLog) error
		DeleteLog(ctx context.Context, id string) error

		// LastSyncTime returns the zero time when no push was ever attempted.
		LastSyncTime(ctx context.Context) (time.Time, error)
		SetLastSyncTime(ctx context.Context, t time.Time) error

		// DeviceID mints and persists a stable identifier on first call.
		DeviceID(ctx context.Context) (string, error)

		Close() error
	}
)
