// Package sync reconciles the local ledger with the remote store: push is
// the authoritative upload, pull merges records this device has never seen.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"timeledger/internal/core"
	"timeledger/internal/observability"
	"timeledger/internal/remote"
	"timeledger/internal/storage"
)

// connectionProbeTimeout bounds the remote ping in TestConnection.
const connectionProbeTimeout = 5 * time.Second

// InProgressMessage is the single error carried by a push report when the
// call lost the gate to a push already running.
const InProgressMessage = "Sync already in progress"

type (
	// PushReport summarizes one push attempt. Synced counts successful
	// upserts across the whole batch, logs and summaries alike.
	PushReport struct {
		Success bool     `json:"success"`
		Synced  int      `json:"synced"`
		Errors  []string `json:"errors,omitempty"`
	}

	// PullReport summarizes one pull merge. Fetched counts only records
	// that were actually new to this device.
	PullReport struct {
		Success bool     `json:"success"`
		Fetched int      `json:"fetched"`
		Errors  []string `json:"errors,omitempty"`
	}

	// ConnectionStatus is the result of a remote probe.
	ConnectionStatus struct {
		Connected bool   `json:"connected"`
		Error     string `json:"error,omitempty"`
	}

	// Status reflects the reconciler's current state. LastSyncTime is nil
	// when this device has never pushed.
	Status struct {
		Pushing      bool       `json:"pushing"`
		LastSyncTime *time.Time `json:"last_sync_time"`
		DeviceID     string     `json:"device_id"`
	}
)

// Reconciler moves records between the local and remote stores. The local
// store always wins on conflict; the remote is a per-device backup.
type Reconciler struct {
	local  storage.Store
	remote remote.Store

	mu      sync.Mutex
	pushing bool

	now func() time.Time
}

func NewReconciler(local storage.Store, remoteStore remote.Store) *Reconciler {
	return &Reconciler{
		local:  local,
		remote: remoteStore,
		now:    time.Now,
	}
}

// Push uploads every local log plus one derived daily summary per logged
// date. Only one push runs per process; a concurrent call fails fast
// without touching lastSyncTime. Per-item failures are collected and never
// abort the batch.
func (r *Reconciler) Push(ctx context.Context) PushReport {
	r.mu.Lock()
	if r.pushing {
		r.mu.Unlock()
		return PushReport{Success: false, Errors: []string{InProgressMessage}}
	}
	r.pushing = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.pushing = false
		r.mu.Unlock()
	}()

	deviceID, err := r.local.DeviceID(ctx)
	if err != nil {
		return PushReport{Errors: []string{fmt.Sprintf("device ID: %v", err)}}
	}

	logs, err := r.local.AllLogs(ctx)
	if err != nil {
		return PushReport{Errors: []string{fmt.Sprintf("load logs: %v", err)}}
	}

	var report PushReport

	// Logs first, then summaries: a summary must never reference logs the
	// remote has not seen yet.
	for _, logEntry := range logs {
		if err := r.remote.UpsertLog(ctx, deviceID, logEntry); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("log %s: %v", logEntry.ID, err))
			continue
		}
		report.Synced++
	}

	byDate := groupByDate(logs)
	for _, key := range sortedKeys(byDate) {
		date, err := core.ParseDate(key)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("summary %s: %v", key, err))
			continue
		}
		summary := core.BuildDailySummary(date, byDate[key], r.now())
		if err := r.remote.UpsertDailySummary(ctx, deviceID, summary); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("summary %s: %v", key, err))
			continue
		}
		report.Synced++
	}

	// The attempt is recorded even when parts of the batch failed
	syncedAt := r.now()
	if err := r.local.SetLastSyncTime(ctx, syncedAt); err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("record sync time: %v", err))
	}

	report.Success = len(report.Errors) == 0
	observability.RecordPush(report.Synced, len(report.Errors))
	observability.RecordSyncTime(syncedAt)

	slog.InfoContext(ctx, "Push completed",
		"device_id", deviceID,
		"synced", report.Synced,
		"errors", len(report.Errors))

	return report
}

// Pull merges remote records this device has never stored. Not subject to
// the push gate: merge appends are idempotent upserts. Existing local
// records always win, so a repeated pull fetches nothing.
func (r *Reconciler) Pull(ctx context.Context) PullReport {
	deviceID, err := r.local.DeviceID(ctx)
	if err != nil {
		return PullReport{Errors: []string{fmt.Sprintf("device ID: %v", err)}}
	}

	// The two stores are independent, so both sides load at once.
	var remoteLogs, localLogs []core.ActivityLog
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		if remoteLogs, err = r.remote.LogsForDevice(groupCtx, deviceID); err != nil {
			return fmt.Errorf("fetch remote logs: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		var err error
		if localLogs, err = r.local.AllLogs(groupCtx); err != nil {
			return fmt.Errorf("load local logs: %w", err)
		}
		return nil
	})
	if err := group.Wait(); err != nil {
		return PullReport{Errors: []string{err.Error()}}
	}

	seen := make(map[string]struct{}, len(localLogs))
	for _, logEntry := range localLogs {
		seen[logEntry.ID] = struct{}{}
	}

	var report PullReport
	for _, logEntry := range remoteLogs {
		if _, ok := seen[logEntry.ID]; ok {
			continue
		}
		if err := logEntry.Validate(); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("log %s: %v", logEntry.ID, err))
			continue
		}
		if err := r.local.SaveLog(ctx, logEntry); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("log %s: %v", logEntry.ID, err))
			continue
		}
		report.Fetched++
	}

	report.Success = len(report.Errors) == 0
	observability.RecordPull(report.Fetched, len(report.Errors))

	slog.InfoContext(ctx, "Pull completed",
		"device_id", deviceID,
		"fetched", report.Fetched,
		"errors", len(report.Errors))

	return report
}

// TestConnection probes the remote store. Failures come back in the result,
// never as a Go error.
func (r *Reconciler) TestConnection(ctx context.Context) ConnectionStatus {
	ctx, cancel := context.WithTimeout(ctx, connectionProbeTimeout)
	defer cancel()

	if err := r.remote.Ping(ctx); err != nil {
		return ConnectionStatus{Connected: false, Error: err.Error()}
	}
	return ConnectionStatus{Connected: true}
}

// Status reports whether a push is in flight, the last recorded sync time
// and this device's identifier.
func (r *Reconciler) Status(ctx context.Context) (*Status, error) {
	r.mu.Lock()
	pushing := r.pushing
	r.mu.Unlock()

	last, err := r.local.LastSyncTime(ctx)
	if err != nil {
		return nil, fmt.Errorf("load last sync time: %w", err)
	}

	deviceID, err := r.local.DeviceID(ctx)
	if err != nil {
		return nil, fmt.Errorf("device ID: %w", err)
	}

	status := &Status{Pushing: pushing, DeviceID: deviceID}
	if !last.IsZero() {
		status.LastSyncTime = &last
	}
	return status, nil
}

func groupByDate(logs []core.ActivityLog) map[string][]core.ActivityLog {
	byDate := make(map[string][]core.ActivityLog)
	for _, logEntry := range logs {
		key := logEntry.Date().String()
		byDate[key] = append(byDate[key], logEntry)
	}
	return byDate
}

func sortedKeys(m map[string][]core.ActivityLog) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
