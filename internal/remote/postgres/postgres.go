// Package postgres backs the remote store with a Postgres database. Upserts
// ride on INSERT ... ON CONFLICT over a (device_id, record key) primary key.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"timeledger/internal/core"
	"timeledger/internal/remote"
)

type Repository struct {
	pool *pgxpool.Pool
}

// Ensure interface conformance
var _ remote.Store = (*Repository)(nil)

func New(ctx context.Context, dsn string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	r := &Repository{pool: pool}
	if err := r.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) ensureSchema(ctx context.Context) error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS activity_logs (
		device_id     TEXT NOT NULL,
		id            TEXT NOT NULL,
		activity_id   TEXT NOT NULL,
		activity_name TEXT NOT NULL,
		hourly_value  BIGINT NOT NULL,
		block_value   BIGINT NOT NULL,
		slot_start    TIMESTAMPTZ NOT NULL,
		slot_end      TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (device_id, id)
	);
	CREATE TABLE IF NOT EXISTS daily_summaries (
		device_id    TEXT NOT NULL,
		log_date     DATE NOT NULL,
		total_value  BIGINT NOT NULL,
		total_hours  DOUBLE PRECISION NOT NULL,
		logged_slots INTEGER NOT NULL,
		top_activity TEXT NOT NULL,
		generated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (device_id, log_date)
	);`
	if _, err := r.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (r *Repository) UpsertLog(ctx context.Context, deviceID string, log core.ActivityLog) error {
	if err := log.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	const query = `INSERT INTO activity_logs (device_id, id, activity_id, activity_name, hourly_value, block_value, slot_start, slot_end, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now())
		ON CONFLICT (device_id, id) DO UPDATE SET
			activity_id = EXCLUDED.activity_id,
			activity_name = EXCLUDED.activity_name,
			hourly_value = EXCLUDED.hourly_value,
			block_value = EXCLUDED.block_value,
			slot_start = EXCLUDED.slot_start,
			slot_end = EXCLUDED.slot_end,
			updated_at = now()`
	_, err := r.pool.Exec(ctx, query,
		deviceID, log.ID, log.ActivityID, log.ActivityName,
		log.HourlyValue, log.BlockValue, log.SlotStart, log.SlotEnd)
	if err != nil {
		return fmt.Errorf("upsert log %s: %w", log.ID, err)
	}
	return nil
}

func (r *Repository) UpsertDailySummary(ctx context.Context, deviceID string, summary core.DailySummary) error {
	const query = `INSERT INTO daily_summaries (device_id, log_date, total_value, total_hours, logged_slots, top_activity, generated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (device_id, log_date) DO UPDATE SET
			total_value = EXCLUDED.total_value,
			total_hours = EXCLUDED.total_hours,
			logged_slots = EXCLUDED.logged_slots,
			top_activity = EXCLUDED.top_activity,
			generated_at = EXCLUDED.generated_at`
	_, err := r.pool.Exec(ctx, query,
		deviceID, summary.Date.Time, summary.TotalValue, summary.TotalHours,
		summary.LoggedSlots, summary.TopActivity, summary.GeneratedAt)
	if err != nil {
		return fmt.Errorf("upsert summary %s: %w", summary.Date, err)
	}
	return nil
}

func (r *Repository) LogsForDevice(ctx context.Context, deviceID string) ([]core.ActivityLog, error) {
	const query = `SELECT id, activity_id, activity_name, hourly_value, block_value, slot_start, slot_end
		FROM activity_logs WHERE device_id = $1 ORDER BY id`
	rows, err := r.pool.Query(ctx, query, deviceID)
	if err != nil {
		return nil, fmt.Errorf("query logs for device: %w", err)
	}
	defer rows.Close()

	var logs []core.ActivityLog
	for rows.Next() {
		var l core.ActivityLog
		if err := rows.Scan(&l.ID, &l.ActivityID, &l.ActivityName, &l.HourlyValue, &l.BlockValue, &l.SlotStart, &l.SlotEnd); err != nil {
			return nil, fmt.Errorf("scan log row: %w", err)
		}
		l.SlotStart = l.SlotStart.UTC()
		l.SlotEnd = l.SlotEnd.UTC()
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate log rows: %w", err)
	}
	return logs, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}
