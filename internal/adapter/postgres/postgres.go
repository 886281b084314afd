// Package postgres implements the domain repositories using PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// DB wraps a *sql.DB and implements domain repository interfaces.
type DB struct {
	sql *sql.DB
}

// Open connects to PostgreSQL, pings, and runs migrations.
func Open(connStr string) (*DB, error) {
	s, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	s.SetMaxOpenConns(10)
	s.SetMaxIdleConns(5)
	s.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.PingContext(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	d := &DB{sql: s}
	if err := d.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS metric_points (
			kind TEXT NOT NULL,
			date TEXT NOT NULL,
			value DOUBLE PRECISION NOT NULL DEFAULT 0,
			unit TEXT NOT NULL,
			source TEXT NOT NULL CHECK(source IN ('provider','local')),
			no_data BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (kind, date, source)
		);`,
		"CREATE INDEX IF NOT EXISTS idx_metric_points_kind_date ON metric_points(kind, date);",
		`CREATE TABLE IF NOT EXISTS sync_cursors (
			kind TEXT PRIMARY KEY,
			date TEXT NOT NULL,
			synced_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sync_runs (
			id TEXT PRIMARY KEY,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL,
			status TEXT NOT NULL,
			rows_written INT NOT NULL DEFAULT 0,
			outcomes JSONB NOT NULL DEFAULT '[]'
		);`,
		"CREATE INDEX IF NOT EXISTS idx_sync_runs_started_at ON sync_runs(started_at);",
	}

	for _, stmt := range stmts {
		if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
