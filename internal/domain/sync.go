package domain

import (
	"context"
	"time"
)

// SyncCursor is the latest date through which a metric kind is known to
// be fully synced. It only moves forward, except via an explicit
// re-backfill.
type SyncCursor struct {
	Kind     MetricKind `json:"kind"`
	Date     Date       `json:"date"`
	SyncedAt time.Time  `json:"syncedAt"`
}

// SyncStatus is the per-kind outcome of one sync run.
type SyncStatus string

const (
	SyncSuccess SyncStatus = "success"
	SyncPartial SyncStatus = "partial"
	SyncFailed  SyncStatus = "failed"
)

// SyncErrorKind classifies why a kind's sync failed.
type SyncErrorKind string

const (
	SyncErrNone        SyncErrorKind = ""
	SyncErrAuthExpired SyncErrorKind = "auth_expired"
	SyncErrRateLimited SyncErrorKind = "rate_limited"
	SyncErrTransient   SyncErrorKind = "transient"
	SyncErrUnsupported SyncErrorKind = "unsupported"
)

// KindOutcome summarizes one metric kind within a sync run.
type KindOutcome struct {
	Kind        MetricKind    `json:"kind"`
	Status      SyncStatus    `json:"status"`
	ErrorKind   SyncErrorKind `json:"errorKind,omitempty"`
	RowsWritten int           `json:"rowsWritten"`
	Detail      string        `json:"detail,omitempty"`
}

// SyncRun is the append-only record of one sync invocation.
type SyncRun struct {
	ID          string        `json:"id"`
	StartedAt   time.Time     `json:"startedAt"`
	FinishedAt  time.Time     `json:"finishedAt"`
	Outcomes    []KindOutcome `json:"outcomes"`
	RowsWritten int           `json:"rowsWritten"`
}

// Status aggregates the per-kind outcomes: success if every kind
// succeeded, failed if none did, partial otherwise.
func (r *SyncRun) Status() SyncStatus {
	ok, bad := 0, 0
	for _, o := range r.Outcomes {
		switch o.Status {
		case SyncSuccess:
			ok++
		case SyncFailed:
			bad++
		}
	}
	switch {
	case ok == len(r.Outcomes):
		return SyncSuccess
	case bad == len(r.Outcomes) && bad > 0:
		return SyncFailed
	default:
		return SyncPartial
	}
}

// SyncRepository is the port for sync cursors and run history.
type SyncRepository interface {
	// Cursor returns the cursor for a kind, or nil if the kind has never
	// completed a sync.
	Cursor(ctx context.Context, kind MetricKind) (*SyncCursor, error)
	SetCursor(ctx context.Context, c SyncCursor) error
	RecordRun(ctx context.Context, run *SyncRun) error
	// LastRun returns the most recent run, or nil if none exist.
	LastRun(ctx context.Context) (*SyncRun, error)
	// LastSuccessfulRun returns the most recent run whose overall status
	// was success, or nil. A later failed run never hides it.
	LastSuccessfulRun(ctx context.Context) (*SyncRun, error)
}
