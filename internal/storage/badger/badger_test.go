package badger

import (
	"context"
	"testing"
	"time"

	"timeledger/internal/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(Config{InMemory: true})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

func makeLog(t *testing.T, day core.Date, index int, hourly int64) core.ActivityLog {
	t.Helper()
	id, err := core.SlotID(day, index)
	if err != nil {
		t.Fatalf("slot id: %v", err)
	}
	start, end := core.SlotBounds(day, index)
	block, _ := core.BlockValue(hourly, core.SlotWidthMinutes)
	return core.ActivityLog{
		ID:           id,
		ActivityID:   "deep-work",
		ActivityName: "Deep work",
		HourlyValue:  hourly,
		BlockValue:   block,
		SlotStart:    start,
		SlotEnd:      end,
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(Config{}); err == nil {
		t.Fatalf("expected error for a persistent store without a path")
	}
}

func TestSaveAndQueryByDate(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	monday := core.NewDate(2025, 6, 2)
	tuesday := core.NewDate(2025, 6, 3)

	for i, d := range []core.Date{monday, monday, tuesday} {
		if err := store.SaveLog(ctx, makeLog(t, d, 10+i, 5000)); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	logs, err := store.LogsForDate(ctx, monday)
	if err != nil {
		t.Fatalf("logs for date: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 logs for monday, got %d", len(logs))
	}
	if logs[0].ID > logs[1].ID {
		t.Fatalf("logs not ordered by id")
	}

	all, err := store.AllLogs(ctx)
	if err != nil {
		t.Fatalf("all logs: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 logs total, got %d", len(all))
	}
}

func TestSaveLogUpserts(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	d := core.NewDate(2025, 6, 2)

	if err := store.SaveLog(ctx, makeLog(t, d, 10, 5000)); err != nil {
		t.Fatalf("save: %v", err)
	}
	replacement := makeLog(t, d, 10, 1000)
	replacement.ActivityID = "reading"
	replacement.ActivityName = "Reading"
	if err := store.SaveLog(ctx, replacement); err != nil {
		t.Fatalf("rebind save: %v", err)
	}

	logs, err := store.LogsForDate(ctx, d)
	if err != nil {
		t.Fatalf("logs for date: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("upsert duplicated the log: %d rows", len(logs))
	}
	if logs[0].ActivityName != "Reading" || logs[0].BlockValue != 500 {
		t.Fatalf("upsert did not replace fields: %+v", logs[0])
	}
}

func TestDeleteLog(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	d := core.NewDate(2025, 6, 2)
	logEntry := makeLog(t, d, 10, 5000)

	if err := store.SaveLog(ctx, logEntry); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.DeleteLog(ctx, logEntry.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	logs, _ := store.LogsForDate(ctx, d)
	if len(logs) != 0 {
		t.Fatalf("expected no logs after delete, got %d", len(logs))
	}

	// Deleting an absent id is a no-op.
	if err := store.DeleteLog(ctx, "2025-06-02-11"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
}

func TestRoundTripPreservesFields(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	d := core.NewDate(2025, 6, 2)
	want := makeLog(t, d, 17, 2500)

	if err := store.SaveLog(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}

	logs, err := store.LogsForDate(ctx, d)
	if err != nil {
		t.Fatalf("logs for date: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 log, got %d", len(logs))
	}

	got := logs[0]
	if got.ID != want.ID || got.ActivityID != want.ActivityID || got.ActivityName != want.ActivityName {
		t.Fatalf("identity fields changed: %+v", got)
	}
	if got.HourlyValue != want.HourlyValue || got.BlockValue != want.BlockValue {
		t.Fatalf("value fields changed: %+v", got)
	}
	if !got.SlotStart.Equal(want.SlotStart) || !got.SlotEnd.Equal(want.SlotEnd) {
		t.Fatalf("slot bounds changed: got [%v, %v) want [%v, %v)",
			got.SlotStart, got.SlotEnd, want.SlotStart, want.SlotEnd)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("rehydrated log invalid: %v", err)
	}
}

func TestLastSyncTimeRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	got, err := store.LastSyncTime(ctx)
	if err != nil {
		t.Fatalf("last sync time: %v", err)
	}
	if !got.IsZero() {
		t.Fatalf("expected zero time before any sync, got %v", got)
	}

	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	if err := store.SetLastSyncTime(ctx, now); err != nil {
		t.Fatalf("set last sync time: %v", err)
	}
	got, _ = store.LastSyncTime(ctx)
	if !got.Equal(now) {
		t.Fatalf("expected %v, got %v", now, got)
	}
}

func TestDeviceIDStable(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	first, err := store.DeviceID(ctx)
	if err != nil {
		t.Fatalf("device id: %v", err)
	}
	if first == "" {
		t.Fatalf("expected minted device id")
	}
	second, _ := store.DeviceID(ctx)
	if second != first {
		t.Fatalf("device id changed between calls: %q vs %q", first, second)
	}
}
