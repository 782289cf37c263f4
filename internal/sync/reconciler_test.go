package sync

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"timeledger/internal/core"
	"timeledger/internal/remote"
	"timeledger/internal/storage/memory"
)

type fakeRemote struct {
	mu            sync.Mutex
	ops           []string
	logs          map[string]core.ActivityLog
	failLogs      map[string]error
	failSummaries map[string]error
	remoteLogs    []core.ActivityLog
	fetchErr      error
	pingErr       error

	// Gate test hooks: started is closed on the first UpsertLog, release
	// blocks every UpsertLog until closed.
	started   chan struct{}
	release   chan struct{}
	startOnce sync.Once
}

var _ remote.Store = (*fakeRemote)(nil)

func (f *fakeRemote) UpsertLog(_ context.Context, _ string, logEntry core.ActivityLog) error {
	if f.started != nil {
		f.startOnce.Do(func() { close(f.started) })
	}
	if f.release != nil {
		<-f.release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failLogs[logEntry.ID]; err != nil {
		return err
	}
	f.ops = append(f.ops, "log:"+logEntry.ID)
	if f.logs == nil {
		f.logs = make(map[string]core.ActivityLog)
	}
	f.logs[logEntry.ID] = logEntry
	return nil
}

func (f *fakeRemote) UpsertDailySummary(_ context.Context, _ string, summary core.DailySummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failSummaries[summary.Date.String()]; err != nil {
		return err
	}
	f.ops = append(f.ops, "summary:"+summary.Date.String())
	return nil
}

func (f *fakeRemote) LogsForDevice(context.Context, string) ([]core.ActivityLog, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.remoteLogs, nil
}

func (f *fakeRemote) Ping(context.Context) error {
	return f.pingErr
}

func (f *fakeRemote) opsSnapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ops...)
}

func makeLog(t *testing.T, slotID, activityID, name string, hourly int64) core.ActivityLog {
	t.Helper()
	date, index, err := core.ParseSlotID(slotID)
	if err != nil {
		t.Fatalf("parse slot ID %q: %v", slotID, err)
	}
	start, end := core.SlotBounds(date, index)
	block, err := core.BlockValue(hourly, core.SlotWidthMinutes)
	if err != nil {
		t.Fatalf("block value for %d: %v", hourly, err)
	}
	return core.ActivityLog{
		ID:           slotID,
		ActivityID:   activityID,
		ActivityName: name,
		HourlyValue:  hourly,
		BlockValue:   block,
		SlotStart:    start,
		SlotEnd:      end,
	}
}

func seedLocal(t *testing.T, store *memory.Store, logs ...core.ActivityLog) {
	t.Helper()
	for _, logEntry := range logs {
		if err := store.SaveLog(context.Background(), logEntry); err != nil {
			t.Fatalf("seed log %s: %v", logEntry.ID, err)
		}
	}
}

func TestReconciler_Push(t *testing.T) {
	ctx := context.Background()
	local := memory.New()
	seedLocal(t, local,
		makeLog(t, "2025-01-07-10", "deep-work", "Deep Work", 5000),
		makeLog(t, "2025-01-07-11", "deep-work", "Deep Work", 5000),
		makeLog(t, "2025-01-08-10", "naps", "Naps", 0),
	)
	fake := &fakeRemote{}
	rec := NewReconciler(local, fake)

	fixed := time.Date(2025, 1, 9, 12, 0, 0, 0, time.UTC)
	rec.now = func() time.Time { return fixed }

	report := rec.Push(ctx)

	if !report.Success {
		t.Fatalf("Push() = %+v, want success", report)
	}
	// 3 logs + 2 daily summaries
	if report.Synced != 5 {
		t.Errorf("Synced = %d, want 5", report.Synced)
	}
	if len(report.Errors) != 0 {
		t.Errorf("Errors = %v, want none", report.Errors)
	}

	ops := fake.opsSnapshot()
	if len(ops) != 5 {
		t.Fatalf("remote saw %d upserts, want 5: %v", len(ops), ops)
	}
	lastLog, firstSummary := -1, len(ops)
	for i, op := range ops {
		if strings.HasPrefix(op, "log:") {
			lastLog = i
		} else if firstSummary == len(ops) {
			firstSummary = i
		}
	}
	if lastLog > firstSummary {
		t.Errorf("logs must be pushed before summaries, got order %v", ops)
	}

	last, err := local.LastSyncTime(ctx)
	if err != nil {
		t.Fatalf("LastSyncTime() error = %v", err)
	}
	if !last.Equal(fixed) {
		t.Errorf("LastSyncTime = %v, want %v", last, fixed)
	}
}

func TestReconciler_PushEmpty(t *testing.T) {
	ctx := context.Background()
	local := memory.New()
	rec := NewReconciler(local, &fakeRemote{})

	report := rec.Push(ctx)

	if !report.Success || report.Synced != 0 {
		t.Errorf("Push() on empty store = %+v, want success with 0 synced", report)
	}

	// An attempted batch records the sync time even when nothing was pushed
	last, _ := local.LastSyncTime(ctx)
	if last.IsZero() {
		t.Error("LastSyncTime should be set after an attempted push")
	}
}

func TestReconciler_PushPartialFailure(t *testing.T) {
	ctx := context.Background()
	local := memory.New()
	seedLocal(t, local,
		makeLog(t, "2025-01-07-10", "deep-work", "Deep Work", 5000),
		makeLog(t, "2025-01-07-11", "meetings", "Meetings", 1000),
		makeLog(t, "2025-01-08-10", "naps", "Naps", 0),
	)
	fake := &fakeRemote{
		failLogs: map[string]error{"2025-01-07-11": errors.New("quota exceeded")},
	}
	rec := NewReconciler(local, fake)

	report := rec.Push(ctx)

	if report.Success {
		t.Error("Push() with a failing upsert should not report success")
	}
	// 2 surviving logs + 2 summaries
	if report.Synced != 4 {
		t.Errorf("Synced = %d, want 4", report.Synced)
	}
	if len(report.Errors) != 1 || !strings.Contains(report.Errors[0], "2025-01-07-11") {
		t.Errorf("Errors = %v, want one entry naming the failed log", report.Errors)
	}

	// Partial failure still counts as an attempt
	last, _ := local.LastSyncTime(ctx)
	if last.IsZero() {
		t.Error("LastSyncTime should be set after a partially failed push")
	}
}

func TestReconciler_PushGate(t *testing.T) {
	ctx := context.Background()
	local := memory.New()
	seedLocal(t, local, makeLog(t, "2025-01-07-10", "deep-work", "Deep Work", 5000))
	fake := &fakeRemote{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	rec := NewReconciler(local, fake)

	done := make(chan PushReport, 1)
	go func() { done <- rec.Push(ctx) }()

	// Wait until the first push is inside the batch
	<-fake.started

	second := rec.Push(ctx)
	if second.Success {
		t.Error("concurrent Push() should fail fast")
	}
	if second.Synced != 0 {
		t.Errorf("concurrent Push() Synced = %d, want 0", second.Synced)
	}
	if len(second.Errors) != 1 || second.Errors[0] != "Sync already in progress" {
		t.Errorf("concurrent Push() Errors = %v, want [Sync already in progress]", second.Errors)
	}

	// The fast-fail path must not record a sync attempt
	last, _ := local.LastSyncTime(ctx)
	if !last.IsZero() {
		t.Error("fast-failed push must not touch LastSyncTime")
	}

	close(fake.release)
	first := <-done
	if !first.Success {
		t.Errorf("first Push() = %+v, want success", first)
	}

	// Gate released: the next push goes through
	third := rec.Push(ctx)
	if !third.Success {
		t.Errorf("Push() after release = %+v, want success", third)
	}
}

func TestReconciler_Pull(t *testing.T) {
	ctx := context.Background()
	localVersion := makeLog(t, "2025-01-07-10", "deep-work", "Deep Work", 5000)
	remoteVersion := makeLog(t, "2025-01-07-10", "meetings", "Meetings", 1000)
	remoteOnly := makeLog(t, "2025-01-08-10", "naps", "Naps", 0)

	local := memory.New()
	seedLocal(t, local, localVersion)
	fake := &fakeRemote{remoteLogs: []core.ActivityLog{remoteVersion, remoteOnly}}
	rec := NewReconciler(local, fake)

	report := rec.Pull(ctx)

	if !report.Success {
		t.Fatalf("Pull() = %+v, want success", report)
	}
	if report.Fetched != 1 {
		t.Errorf("Fetched = %d, want 1", report.Fetched)
	}

	// Local record wins over the remote copy with the same ID
	logs, _ := local.LogsForDate(ctx, core.NewDate(2025, 1, 7))
	if len(logs) != 1 || logs[0].ActivityID != "deep-work" {
		t.Errorf("local record was overwritten: %+v", logs)
	}

	// The remote-only record was merged
	merged, _ := local.LogsForDate(ctx, core.NewDate(2025, 1, 8))
	if len(merged) != 1 || merged[0].ActivityID != "naps" {
		t.Errorf("remote-only record missing after pull: %+v", merged)
	}

	// A repeat pull finds nothing new
	again := rec.Pull(ctx)
	if !again.Success || again.Fetched != 0 {
		t.Errorf("repeat Pull() = %+v, want success with 0 fetched", again)
	}
}

func TestReconciler_PullInvalidRemoteRecord(t *testing.T) {
	ctx := context.Background()
	valid := makeLog(t, "2025-01-08-10", "naps", "Naps", 0)
	invalid := valid
	invalid.ID = "garbage"

	local := memory.New()
	fake := &fakeRemote{remoteLogs: []core.ActivityLog{invalid, valid}}
	rec := NewReconciler(local, fake)

	report := rec.Pull(ctx)

	if report.Success {
		t.Error("Pull() with an invalid remote record should not report success")
	}
	if report.Fetched != 1 {
		t.Errorf("Fetched = %d, want 1", report.Fetched)
	}
	if len(report.Errors) != 1 || !strings.Contains(report.Errors[0], "garbage") {
		t.Errorf("Errors = %v, want one entry naming the invalid record", report.Errors)
	}
}

func TestReconciler_PullFetchError(t *testing.T) {
	local := memory.New()
	fake := &fakeRemote{fetchErr: errors.New("spreadsheet unavailable")}
	rec := NewReconciler(local, fake)

	report := rec.Pull(context.Background())

	if report.Success {
		t.Error("Pull() should fail when the remote fetch fails")
	}
	if report.Fetched != 0 {
		t.Errorf("Fetched = %d, want 0", report.Fetched)
	}
	if len(report.Errors) != 1 {
		t.Errorf("Errors = %v, want one entry", report.Errors)
	}
}

func TestReconciler_TestConnection(t *testing.T) {
	local := memory.New()

	t.Run("connected", func(t *testing.T) {
		rec := NewReconciler(local, &fakeRemote{})
		status := rec.TestConnection(context.Background())
		if !status.Connected || status.Error != "" {
			t.Errorf("TestConnection() = %+v, want connected", status)
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		rec := NewReconciler(local, &fakeRemote{pingErr: errors.New("dial tcp: timeout")})
		status := rec.TestConnection(context.Background())
		if status.Connected {
			t.Error("TestConnection() should report a failed probe")
		}
		if status.Error == "" {
			t.Error("TestConnection() should carry the probe error text")
		}
	})
}

func TestReconciler_Status(t *testing.T) {
	ctx := context.Background()
	local := memory.New()
	rec := NewReconciler(local, &fakeRemote{})

	fixed := time.Date(2025, 1, 9, 12, 0, 0, 0, time.UTC)
	rec.now = func() time.Time { return fixed }

	status, err := rec.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.Pushing {
		t.Error("Pushing should be false before any push")
	}
	if status.LastSyncTime != nil {
		t.Errorf("LastSyncTime = %v, want nil before any push", status.LastSyncTime)
	}
	if status.DeviceID == "" {
		t.Error("DeviceID should be minted on first access")
	}

	rec.Push(ctx)

	status, err = rec.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.Pushing {
		t.Error("Pushing should be false after the push finished")
	}
	if status.LastSyncTime == nil || !status.LastSyncTime.Equal(fixed) {
		t.Errorf("LastSyncTime = %v, want %v", status.LastSyncTime, fixed)
	}

	// Device ID is stable across calls
	second, _ := rec.Status(ctx)
	if second.DeviceID != status.DeviceID {
		t.Errorf("DeviceID changed between calls: %q then %q", status.DeviceID, second.DeviceID)
	}
}
