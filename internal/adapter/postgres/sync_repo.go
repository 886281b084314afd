package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bearyjd/vitalforge/internal/domain"
)

// Cursor returns the sync cursor for a kind, or nil if none exists.
func (d *DB) Cursor(ctx context.Context, kind domain.MetricKind) (*domain.SyncCursor, error) {
	row := d.sql.QueryRowContext(ctx,
		"SELECT kind, date, synced_at FROM sync_cursors WHERE kind = $1;", string(kind))

	var c domain.SyncCursor
	if err := row.Scan(&c.Kind, &c.Date, &c.SyncedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// SetCursor inserts or replaces the cursor for a kind.
func (d *DB) SetCursor(ctx context.Context, c domain.SyncCursor) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO sync_cursors(kind, date, synced_at) VALUES($1, $2, $3)
		 ON CONFLICT (kind) DO UPDATE SET date = EXCLUDED.date, synced_at = EXCLUDED.synced_at;`,
		string(c.Kind), string(c.Date), c.SyncedAt.UTC(),
	)
	return err
}

// RecordRun appends one sync run. Runs are never updated or deleted.
func (d *DB) RecordRun(ctx context.Context, run *domain.SyncRun) error {
	outcomes, err := json.Marshal(run.Outcomes)
	if err != nil {
		return fmt.Errorf("marshal outcomes: %w", err)
	}
	_, err = d.sql.ExecContext(ctx,
		`INSERT INTO sync_runs(id, started_at, finished_at, status, rows_written, outcomes)
		 VALUES($1, $2, $3, $4, $5, $6);`,
		run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(), string(run.Status()), run.RowsWritten, outcomes,
	)
	return err
}

// LastRun returns the most recent sync run, or nil if none exist.
func (d *DB) LastRun(ctx context.Context) (*domain.SyncRun, error) {
	return d.scanRun(d.sql.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, rows_written, outcomes
		 FROM sync_runs ORDER BY started_at DESC LIMIT 1;`))
}

// LastSuccessfulRun returns the most recent fully successful run, or nil.
func (d *DB) LastSuccessfulRun(ctx context.Context) (*domain.SyncRun, error) {
	return d.scanRun(d.sql.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, rows_written, outcomes
		 FROM sync_runs WHERE status = 'success' ORDER BY started_at DESC LIMIT 1;`))
}

func (d *DB) scanRun(row *sql.Row) (*domain.SyncRun, error) {
	var run domain.SyncRun
	var outcomes []byte
	if err := row.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.RowsWritten, &outcomes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(outcomes, &run.Outcomes); err != nil {
		return nil, fmt.Errorf("unmarshal outcomes: %w", err)
	}
	return &run, nil
}
