// Package memory implements in-memory repositories for development and testing.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/bearyjd/vitalforge/internal/domain"
)

// DB implements an in-memory database storage.
type DB struct {
	mu      sync.Mutex
	points  map[domain.MetricKind]map[domain.Date]map[domain.Source]domain.MetricPoint
	cursors map[domain.MetricKind]domain.SyncCursor
	runs    []*domain.SyncRun
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		points:  make(map[domain.MetricKind]map[domain.Date]map[domain.Source]domain.MetricPoint),
		cursors: make(map[domain.MetricKind]domain.SyncCursor),
	}
}

// Ensure interfaces are met.
var _ domain.MetricRepository = (*DB)(nil)
var _ domain.SyncRepository = (*DB)(nil)

// --- MetricRepository ---

// Upsert stores a point keyed by (kind, date, source), replacing any
// previous value for the same key. Sources never cross: a provider
// write leaves an existing local point untouched.
func (db *DB) Upsert(ctx context.Context, p domain.MetricPoint) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	byDate, ok := db.points[p.Kind]
	if !ok {
		byDate = make(map[domain.Date]map[domain.Source]domain.MetricPoint)
		db.points[p.Kind] = byDate
	}
	bySource, ok := byDate[p.Date]
	if !ok {
		bySource = make(map[domain.Source]domain.MetricPoint)
		byDate[p.Date] = bySource
	}
	bySource[p.Source] = p
	return nil
}

// Query returns points in [from, to] ascending, one per date, local
// source preferred.
func (db *DB) Query(ctx context.Context, kind domain.MetricKind, from, to domain.Date) ([]domain.MetricPoint, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var out []domain.MetricPoint
	for date, bySource := range db.points[kind] {
		if date.Before(from) || date.After(to) {
			continue
		}
		if p, ok := bySource[domain.SourceLocal]; ok {
			out = append(out, p)
		} else if p, ok := bySource[domain.SourceProvider]; ok {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// MissingRanges returns the contiguous sub-ranges of [from, to] with no
// stored point of any source for the kind.
func (db *DB) MissingRanges(ctx context.Context, kind domain.MetricKind, from, to domain.Date) ([]domain.DateRange, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	byDate := db.points[kind]
	var out []domain.DateRange
	var open *domain.DateRange
	for d := from; !d.After(to); d = d.AddDays(1) {
		if _, covered := byDate[d]; covered {
			if open != nil {
				out = append(out, *open)
				open = nil
			}
			continue
		}
		if open == nil {
			open = &domain.DateRange{From: d, To: d}
		} else {
			open.To = d
		}
	}
	if open != nil {
		out = append(out, *open)
	}
	return out, nil
}

// Delete removes a point. Only local weight points are deletable.
func (db *DB) Delete(ctx context.Context, kind domain.MetricKind, date domain.Date, source domain.Source) error {
	if source != domain.SourceLocal || kind != domain.KindWeight {
		return domain.ErrNotDeletable
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if bySource, ok := db.points[kind][date]; ok {
		delete(bySource, source)
		if len(bySource) == 0 {
			delete(db.points[kind], date)
		}
	}
	return nil
}

// --- SyncRepository ---

// Cursor returns the cursor for a kind, or nil if none.
func (db *DB) Cursor(ctx context.Context, kind domain.MetricKind) (*domain.SyncCursor, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if c, ok := db.cursors[kind]; ok {
		ret := c
		return &ret, nil
	}
	return nil, nil
}

// SetCursor stores the cursor for a kind.
func (db *DB) SetCursor(ctx context.Context, c domain.SyncCursor) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.cursors[c.Kind] = c
	return nil
}

// RecordRun appends a sync run.
func (db *DB) RecordRun(ctx context.Context, run *domain.SyncRun) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	cp := *run
	cp.Outcomes = append([]domain.KindOutcome(nil), run.Outcomes...)
	db.runs = append(db.runs, &cp)
	return nil
}

// LastRun returns the most recently recorded run.
func (db *DB) LastRun(ctx context.Context) (*domain.SyncRun, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if len(db.runs) == 0 {
		return nil, nil
	}
	ret := *db.runs[len(db.runs)-1]
	return &ret, nil
}

// LastSuccessfulRun returns the most recent fully successful run. A
// later failed run never hides it.
func (db *DB) LastSuccessfulRun(ctx context.Context) (*domain.SyncRun, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i := len(db.runs) - 1; i >= 0; i-- {
		if db.runs[i].Status() == domain.SyncSuccess {
			ret := *db.runs[i]
			return &ret, nil
		}
	}
	return nil, nil
}
