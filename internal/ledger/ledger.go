// Package ledger orchestrates slot binding across the catalog, the local
// store and the sync queue.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"timeledger/internal/core"
	"timeledger/internal/storage"
)

type (
	// Directory resolves catalog activities during binding.
	Directory interface {
		Get(id string) (core.Activity, error)
	}

	// Notifier publishes sync messages after local writes. Publish failures
	// never fail a write, the local store is the source of truth.
	Notifier interface {
		PublishLogSync(ctx context.Context, logID string, deleted bool) error
		PublishSummaryRefresh(ctx context.Context, date string) error
	}
)

// Binder handles the bind and clear write paths. Every mutation lands in the
// local store first; remote propagation happens asynchronously via Notifier.
type Binder struct {
	directory Directory
	store     storage.Store
	notifier  Notifier
}

func NewBinder(directory Directory, store storage.Store, notifier Notifier) *Binder {
	return &Binder{
		directory: directory,
		store:     store,
		notifier:  notifier,
	}
}

// Day returns the full slot grid for date, hydrated from stored logs. Slots
// without a log come back unbound with a zero value.
func (b *Binder) Day(ctx context.Context, date core.Date) ([]core.TimeSlot, error) {
	if err := date.Validate(); err != nil {
		return nil, err
	}

	logs, err := b.store.LogsForDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("load logs for %s: %w", date, err)
	}

	byID := make(map[string]core.ActivityLog, len(logs))
	for _, logEntry := range logs {
		byID[logEntry.ID] = logEntry
	}

	slots := core.GenerateSlots(date)
	for i := range slots {
		logEntry, ok := byID[slots[i].ID]
		if !ok {
			continue
		}
		slots[i].ActivityID = logEntry.ActivityID
		slots[i].ActivityName = logEntry.ActivityName
		slots[i].Value = logEntry.BlockValue
	}
	return slots, nil
}

// Bind assigns an activity to a slot, persisting a log that snapshots the
// activity's name and rate at bind time. Binding an unknown activity clears
// the slot instead and returns core.ErrActivityNotFound alongside the
// cleared slot.
func (b *Binder) Bind(ctx context.Context, slotID, activityID string) (core.TimeSlot, error) {
	date, index, err := core.ParseSlotID(slotID)
	if err != nil {
		return core.TimeSlot{}, fmt.Errorf("parse slot ID %q: %w", slotID, err)
	}

	activity, err := b.directory.Get(activityID)
	if err != nil {
		if errors.Is(err, core.ErrActivityNotFound) {
			// A stale log must not survive a failed rebind
			cleared, clearErr := b.clearSlot(ctx, date, index, slotID)
			if clearErr != nil {
				return core.TimeSlot{}, clearErr
			}
			return cleared, err
		}
		return core.TimeSlot{}, fmt.Errorf("resolve activity %q: %w", activityID, err)
	}

	value, err := core.BlockValue(activity.HourlyValue, core.SlotWidthMinutes)
	if err != nil {
		return core.TimeSlot{}, fmt.Errorf("block value for %q: %w", activityID, err)
	}

	start, end := core.SlotBounds(date, index)
	logEntry := core.ActivityLog{
		ID:           slotID,
		ActivityID:   activity.ID,
		ActivityName: activity.Name,
		HourlyValue:  activity.HourlyValue,
		BlockValue:   value,
		SlotStart:    start,
		SlotEnd:      end,
	}
	if err := logEntry.Validate(); err != nil {
		return core.TimeSlot{}, fmt.Errorf("validate log: %w", err)
	}

	// Save to the local store first (fast, reliable)
	if err := b.store.SaveLog(ctx, logEntry); err != nil {
		return core.TimeSlot{}, fmt.Errorf("save log: %w", err)
	}

	b.notifyLogSync(ctx, slotID, false)
	b.notifySummaryRefresh(ctx, date)

	return core.TimeSlot{
		ID:           slotID,
		Start:        start,
		End:          end,
		ActivityID:   activity.ID,
		ActivityName: activity.Name,
		Value:        value,
	}, nil
}

// Clear unbinds a slot, deleting its log if one exists. Clearing an already
// empty slot is a no-op and succeeds.
func (b *Binder) Clear(ctx context.Context, slotID string) (core.TimeSlot, error) {
	date, index, err := core.ParseSlotID(slotID)
	if err != nil {
		return core.TimeSlot{}, fmt.Errorf("parse slot ID %q: %w", slotID, err)
	}
	return b.clearSlot(ctx, date, index, slotID)
}

func (b *Binder) clearSlot(ctx context.Context, date core.Date, index int, slotID string) (core.TimeSlot, error) {
	if err := b.store.DeleteLog(ctx, slotID); err != nil {
		return core.TimeSlot{}, fmt.Errorf("delete log: %w", err)
	}

	b.notifyLogSync(ctx, slotID, true)
	b.notifySummaryRefresh(ctx, date)

	start, end := core.SlotBounds(date, index)
	return core.TimeSlot{ID: slotID, Start: start, End: end}, nil
}

func (b *Binder) notifyLogSync(ctx context.Context, logID string, deleted bool) {
	if b.notifier == nil {
		slog.WarnContext(ctx, "Notifier not available, skipping log sync message")
		return
	}
	if err := b.notifier.PublishLogSync(ctx, logID, deleted); err != nil {
		// Don't fail the write - the log is already saved locally
		slog.ErrorContext(ctx, "Failed to publish log sync message",
			"log_id", logID, "error", err)
	}
}

func (b *Binder) notifySummaryRefresh(ctx context.Context, date core.Date) {
	if b.notifier == nil {
		return
	}
	if err := b.notifier.PublishSummaryRefresh(ctx, date.String()); err != nil {
		slog.ErrorContext(ctx, "Failed to publish summary refresh message",
			"date", date, "error", err)
	}
}
