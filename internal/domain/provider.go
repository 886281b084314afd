package domain

import (
	"context"
	"errors"
	"time"
)

// Provider gateway error taxonomy. AuthExpired is non-retryable within a
// run; RateLimited and Transient are retryable with backoff; Unsupported
// is permanent for the kind.
var (
	ErrAuthExpired       = errors.New("provider authentication expired")
	ErrRateLimited       = errors.New("provider rate limited")
	ErrTransient         = errors.New("provider transient failure")
	ErrUnsupportedMetric = errors.New("metric kind unsupported by provider")
)

// SyncErrorKindOf maps a gateway error to its run-report classification.
func SyncErrorKindOf(err error) SyncErrorKind {
	switch {
	case err == nil:
		return SyncErrNone
	case errors.Is(err, ErrAuthExpired):
		return SyncErrAuthExpired
	case errors.Is(err, ErrRateLimited):
		return SyncErrRateLimited
	case errors.Is(err, ErrUnsupportedMetric):
		return SyncErrUnsupported
	default:
		return SyncErrTransient
	}
}

// Sample is one raw daily value from the provider, in the provider's
// unit. The sync engine normalizes it before persisting.
type Sample struct {
	Value float64
	Unit  Unit
}

// ProviderGateway abstracts the external data source.
type ProviderGateway interface {
	// Fetch returns the provider's value for a kind and date. A nil
	// sample with a nil error means the provider confirmed it has no
	// data for that date.
	Fetch(ctx context.Context, kind MetricKind, date Date) (*Sample, error)
	// PushWeight uploads a locally entered weight measurement, in grams.
	PushWeight(ctx context.Context, grams float64, at time.Time) error
}
