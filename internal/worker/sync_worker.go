// Package worker consumes sync messages and keeps the remote store caught
// up with the local ledger.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"timeledger/internal/amqp"
	"timeledger/internal/core"
	"timeledger/internal/observability"
	"timeledger/internal/remote"
	"timeledger/internal/storage"
)

// SyncWorker propagates single-record changes to the remote store
type SyncWorker struct {
	local  storage.Store
	remote remote.Store
}

func NewSyncWorker(local storage.Store, remoteStore remote.Store) *SyncWorker {
	return &SyncWorker{
		local:  local,
		remote: remoteStore,
	}
}

// HandleLogSync processes a single log sync message from AMQP. The message
// only carries the log ID; the current record is fetched from the local
// store. A log that vanished since publish is skipped, not retried: the
// periodic push reconciles the rest.
func (w *SyncWorker) HandleLogSync(ctx context.Context, msg *amqp.LogSyncMessage) error {
	if msg.Deleted {
		// Nothing to upsert; the paired summary refresh rebuilds the day
		slog.InfoContext(ctx, "Log deleted locally, skipping remote upsert", "log_id", msg.LogID)
		observability.RecordMessage(amqp.TypeLogSync, "skipped")
		return nil
	}

	date, _, err := core.ParseSlotID(msg.LogID)
	if err != nil {
		// A malformed ID never heals, drop instead of requeueing forever
		slog.WarnContext(ctx, "Skipping log sync message with malformed ID",
			"log_id", msg.LogID, "error", err)
		observability.RecordMessage(amqp.TypeLogSync, "skipped")
		return nil
	}

	logs, err := w.local.LogsForDate(ctx, date)
	if err != nil {
		observability.RecordMessage(amqp.TypeLogSync, "error")
		return fmt.Errorf("load logs for %s: %w", date, err)
	}

	var found *core.ActivityLog
	for i := range logs {
		if logs[i].ID == msg.LogID {
			found = &logs[i]
			break
		}
	}
	if found == nil {
		slog.WarnContext(ctx, "Log no longer exists locally, skipping", "log_id", msg.LogID)
		observability.RecordMessage(amqp.TypeLogSync, "skipped")
		return nil
	}

	deviceID, err := w.local.DeviceID(ctx)
	if err != nil {
		observability.RecordMessage(amqp.TypeLogSync, "error")
		return fmt.Errorf("device ID: %w", err)
	}

	if err := w.remote.UpsertLog(ctx, deviceID, *found); err != nil {
		observability.RecordMessage(amqp.TypeLogSync, "error")
		return fmt.Errorf("upsert log %s: %w", msg.LogID, err)
	}

	observability.RecordMessage(amqp.TypeLogSync, "ok")
	slog.InfoContext(ctx, "Synced log to remote store",
		"log_id", msg.LogID,
		"activity", found.ActivityName)

	return nil
}

// HandleSummaryRefresh rebuilds one day's summary from local logs and
// upserts it remotely. A day with no logs still pushes an all-zero summary
// so clearing the last slot propagates.
func (w *SyncWorker) HandleSummaryRefresh(ctx context.Context, msg *amqp.SummaryRefreshMessage) error {
	date, err := core.ParseDate(msg.Date)
	if err != nil {
		slog.WarnContext(ctx, "Skipping summary refresh with malformed date",
			"date", msg.Date, "error", err)
		observability.RecordMessage(amqp.TypeSummaryRefresh, "skipped")
		return nil
	}

	logs, err := w.local.LogsForDate(ctx, date)
	if err != nil {
		observability.RecordMessage(amqp.TypeSummaryRefresh, "error")
		return fmt.Errorf("load logs for %s: %w", date, err)
	}

	deviceID, err := w.local.DeviceID(ctx)
	if err != nil {
		observability.RecordMessage(amqp.TypeSummaryRefresh, "error")
		return fmt.Errorf("device ID: %w", err)
	}

	summary := core.BuildDailySummary(date, logs, time.Now())
	if err := w.remote.UpsertDailySummary(ctx, deviceID, summary); err != nil {
		observability.RecordMessage(amqp.TypeSummaryRefresh, "error")
		return fmt.Errorf("upsert summary %s: %w", msg.Date, err)
	}

	observability.RecordMessage(amqp.TypeSummaryRefresh, "ok")
	slog.InfoContext(ctx, "Refreshed daily summary on remote store",
		"date", msg.Date,
		"logged_slots", summary.LoggedSlots,
		"total_value", summary.TotalValue)

	return nil
}

// Handlers wires this worker into the AMQP consumer.
func (w *SyncWorker) Handlers(ctx context.Context) amqp.Handlers {
	return amqp.Handlers{
		OnLogSync: func(msg *amqp.LogSyncMessage) error {
			return w.HandleLogSync(ctx, msg)
		},
		OnSummaryRefresh: func(msg *amqp.SummaryRefreshMessage) error {
			return w.HandleSummaryRefresh(ctx, msg)
		},
	}
}
