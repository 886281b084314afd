package postgres

import (
	"context"
	"time"

	"github.com/bearyjd/vitalforge/internal/domain"
)

// Upsert inserts or replaces the point for its (kind, date, source) key.
// Provider and local rows never touch each other; Query resolves the
// precedence between them.
func (d *DB) Upsert(ctx context.Context, p domain.MetricPoint) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO metric_points(kind, date, value, unit, source, no_data, created_at)
		 VALUES($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (kind, date, source)
		 DO UPDATE SET value = EXCLUDED.value, unit = EXCLUDED.unit, no_data = EXCLUDED.no_data;`,
		string(p.Kind), string(p.Date), p.Value, string(p.Unit), string(p.Source), p.NoData, time.Now().UTC(),
	)
	return err
}

// Query returns points in [from, to] ascending by date, one row per
// date with the local source winning where both exist.
func (d *DB) Query(ctx context.Context, kind domain.MetricKind, from, to domain.Date) ([]domain.MetricPoint, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT DISTINCT ON (date) kind, date, value, unit, source, no_data
		 FROM metric_points
		 WHERE kind = $1 AND date >= $2 AND date <= $3
		 ORDER BY date ASC, (source = 'local') DESC;`,
		string(kind), string(from), string(to),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.MetricPoint
	for rows.Next() {
		var p domain.MetricPoint
		if err := rows.Scan(&p.Kind, &p.Date, &p.Value, &p.Unit, &p.Source, &p.NoData); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MissingRanges walks the covered dates for a kind and returns the
// contiguous gaps inside [from, to]. Sentinel rows count as covered.
func (d *DB) MissingRanges(ctx context.Context, kind domain.MetricKind, from, to domain.Date) ([]domain.DateRange, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT DISTINCT date FROM metric_points WHERE kind = $1 AND date >= $2 AND date <= $3;",
		string(kind), string(from), string(to),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	covered := make(map[domain.Date]bool)
	for rows.Next() {
		var date domain.Date
		if err := rows.Scan(&date); err != nil {
			return nil, err
		}
		covered[date] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []domain.DateRange
	var open *domain.DateRange
	for dt := from; !dt.After(to); dt = dt.AddDays(1) {
		if covered[dt] {
			if open != nil {
				out = append(out, *open)
				open = nil
			}
			continue
		}
		if open == nil {
			open = &domain.DateRange{From: dt, To: dt}
		} else {
			open.To = dt
		}
	}
	if open != nil {
		out = append(out, *open)
	}
	return out, nil
}

// Delete removes a point. Only local weight points are deletable.
func (d *DB) Delete(ctx context.Context, kind domain.MetricKind, date domain.Date, source domain.Source) error {
	if source != domain.SourceLocal || kind != domain.KindWeight {
		return domain.ErrNotDeletable
	}
	_, err := d.sql.ExecContext(ctx,
		"DELETE FROM metric_points WHERE kind = $1 AND date = $2 AND source = $3;",
		string(kind), string(date), string(source),
	)
	return err
}
