// Package sqlite persists activity logs in a local SQLite database via the
// cgo-free modernc driver. Schema changes ship as embedded migrations.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"timeledger/internal/core"
	"timeledger/internal/storage"
)

const (
	stateLastSyncTime = "last_sync_time"
	stateDeviceID     = "device_id"
)

type Repository struct {
	db *sql.DB
}

var _ storage.Store = (*Repository)(nil)

func New(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const logColumns = "id, activity_id, activity_name, hourly_value, block_value, slot_start, slot_end"

func (r *Repository) LogsForDate(ctx context.Context, d core.Date) ([]core.ActivityLog, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+logColumns+" FROM activity_logs WHERE log_date = ? ORDER BY id", d.String())
	if err != nil {
		return nil, fmt.Errorf("query logs for date: %w", err)
	}
	defer rows.Close()
	return scanLogs(rows)
}

func (r *Repository) AllLogs(ctx context.Context) ([]core.ActivityLog, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+logColumns+" FROM activity_logs ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query all logs: %w", err)
	}
	defer rows.Close()
	return scanLogs(rows)
}

func (r *Repository) SaveLog(ctx context.Context, log core.ActivityLog) error {
	if err := log.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO activity_logs (id, log_date, activity_id, activity_name, hourly_value, block_value, slot_start, slot_end)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			activity_id = excluded.activity_id,
			activity_name = excluded.activity_name,
			hourly_value = excluded.hourly_value,
			block_value = excluded.block_value,
			slot_start = excluded.slot_start,
			slot_end = excluded.slot_end,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`,
		log.ID, log.Date().String(), log.ActivityID, log.ActivityName, log.HourlyValue,
		log.BlockValue, log.SlotStart.UTC().Format(time.RFC3339Nano), log.SlotEnd.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save log: %w", err)
	}

	slog.InfoContext(ctx, "Activity log saved to SQLite",
		"id", log.ID,
		"activity", log.ActivityName,
		"block_value", log.BlockValue)
	return nil
}

func (r *Repository) DeleteLog(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM activity_logs WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete log: %w", err)
	}
	return nil
}

func (r *Repository) LastSyncTime(ctx context.Context) (time.Time, error) {
	var raw string
	err := r.db.QueryRowContext(ctx,
		"SELECT value FROM sync_state WHERE name = ?", stateLastSyncTime).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("get last sync time: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last sync time: %w", err)
	}
	return t, nil
}

func (r *Repository) SetLastSyncTime(ctx context.Context, t time.Time) error {
	if err := r.setState(ctx, stateLastSyncTime, t.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("set last sync time: %w", err)
	}
	return nil
}

// DeviceID mints a uuid on first call. INSERT OR IGNORE keeps concurrent
// first calls converging on a single winner.
func (r *Repository) DeviceID(ctx context.Context) (string, error) {
	candidate := uuid.NewString()
	if _, err := r.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO sync_state (name, value) VALUES (?, ?)",
		stateDeviceID, candidate); err != nil {
		return "", fmt.Errorf("mint device id: %w", err)
	}
	var id string
	if err := r.db.QueryRowContext(ctx,
		"SELECT value FROM sync_state WHERE name = ?", stateDeviceID).Scan(&id); err != nil {
		return "", fmt.Errorf("get device id: %w", err)
	}
	return id, nil
}

func (r *Repository) setState(ctx context.Context, name, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_state (name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET
			value = excluded.value,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`,
		name, value)
	return err
}

func scanLogs(rows *sql.Rows) ([]core.ActivityLog, error) {
	var logs []core.ActivityLog
	for rows.Next() {
		var (
			l          core.ActivityLog
			start, end string
		)
		if err := rows.Scan(&l.ID, &l.ActivityID, &l.ActivityName, &l.HourlyValue, &l.BlockValue, &start, &end); err != nil {
			return nil, fmt.Errorf("scan log row: %w", err)
		}
		var err error
		if l.SlotStart, err = time.Parse(time.RFC3339Nano, start); err != nil {
			return nil, fmt.Errorf("parse slot start: %w", err)
		}
		if l.SlotEnd, err = time.Parse(time.RFC3339Nano, end); err != nil {
			return nil, fmt.Errorf("parse slot end: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate log rows: %w", err)
	}
	return logs, nil
}
