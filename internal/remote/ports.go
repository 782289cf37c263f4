// Package remote defines the contract of the synchronized remote store.
// The remote holds copies of local records keyed by log ID plus a device
// identifier; it never deletes, so the stored set is the union across
// pushes. Adapters live in subpackages; wiring happens in internal/backend.
package remote

import (
	"context"

	"timeledger/internal/core"
)

type (
	// Store is the remote side of reconciliation. Upserts must be
	// idempotent on (deviceID, record key) and return an error on any
	// network or validation failure.
	Store interface {
		UpsertLog(ctx context.Context, deviceID string, log core.ActivityLog) error
		UpsertDailySummary(ctx context.Context, deviceID string, summary core.DailySummary) error
		LogsForDevice(ctx context.Context, deviceID string) ([]core.ActivityLog, error)

		// Ping is a lightweight read-only connectivity probe.
		Ping(ctx context.Context) error
	}
)
