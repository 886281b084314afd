// Package app holds the application services and business logic.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/bearyjd/vitalforge/internal/domain"
)

// SyncConfig tunes the sync engine.
type SyncConfig struct {
	// BackfillDays is the window used the first time a kind is synced.
	BackfillDays int
	// FetchTimeout bounds each provider call.
	FetchTimeout time.Duration
	// RetryBackoff is the pause before retrying ranges the provider
	// rate-limited or transiently failed within a run.
	RetryBackoff time.Duration
}

func (c *SyncConfig) applyDefaults() {
	if c.BackfillDays <= 0 {
		c.BackfillDays = 90
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 15 * time.Second
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 30 * time.Second
	}
}

// SyncService pulls missing days from the provider into the metric
// store. At most one sync per metric kind is in flight at a time; a
// caller arriving while a kind is being synced observes that sync's
// result instead of starting a duplicate.
type SyncService struct {
	store    domain.MetricRepository
	syncs    domain.SyncRepository
	provider domain.ProviderGateway
	cfg      SyncConfig
	log      zerolog.Logger
	group    singleflight.Group
	now      func() time.Time
}

// NewSyncService creates a SyncService backed by the given ports.
func NewSyncService(store domain.MetricRepository, syncs domain.SyncRepository, provider domain.ProviderGateway, cfg SyncConfig, log zerolog.Logger) *SyncService {
	cfg.applyDefaults()
	return &SyncService{
		store:    store,
		syncs:    syncs,
		provider: provider,
		cfg:      cfg,
		log:      log.With().Str("component", "sync").Logger(),
		now:      time.Now,
	}
}

// SyncOptions selects what a run covers.
type SyncOptions struct {
	// Kinds to sync; empty means all supported kinds.
	Kinds []domain.MetricKind
	// Force refetches the whole window even for already-covered dates,
	// picking up corrected provider data.
	Force bool
	// Window overrides the planned window for an explicit re-backfill.
	Window *domain.DateRange
}

// Run executes one sync invocation and records it. Per-range provider
// errors are absorbed into the run's outcomes rather than returned; the
// error return covers invalid input only.
func (s *SyncService) Run(ctx context.Context, opts SyncOptions) (*domain.SyncRun, error) {
	kinds := opts.Kinds
	if len(kinds) == 0 {
		kinds = domain.Kinds()
	}
	for _, k := range kinds {
		if !k.Valid() {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownMetric, k)
		}
	}

	run := &domain.SyncRun{ID: uuid.NewString(), StartedAt: s.now().UTC()}
	s.log.Info().Str("run", run.ID).Int("kinds", len(kinds)).Bool("force", opts.Force).Msg("sync started")

	authExpired := false
	for _, kind := range kinds {
		if authExpired {
			// Once the provider rejects our credentials nothing else in
			// this run can succeed.
			run.Outcomes = append(run.Outcomes, domain.KindOutcome{
				Kind: kind, Status: domain.SyncFailed,
				ErrorKind: domain.SyncErrAuthExpired,
				Detail:    "skipped: re-authentication required",
			})
			continue
		}

		v, _, _ := s.group.Do(string(kind), func() (any, error) {
			return s.syncKind(ctx, kind, opts), nil
		})
		out := v.(domain.KindOutcome)
		run.Outcomes = append(run.Outcomes, out)
		run.RowsWritten += out.RowsWritten
		if out.ErrorKind == domain.SyncErrAuthExpired {
			authExpired = true
		}
	}

	run.FinishedAt = s.now().UTC()
	if err := s.syncs.RecordRun(ctx, run); err != nil {
		s.log.Error().Str("run", run.ID).Err(err).Msg("recording sync run failed")
	}
	s.log.Info().Str("run", run.ID).Str("status", string(run.Status())).
		Int("rows", run.RowsWritten).Dur("took", run.FinishedAt.Sub(run.StartedAt)).
		Msg("sync finished")
	return run, nil
}

// LastStatus returns the most recent run and the most recent fully
// successful run. A failed run never hides an earlier success.
func (s *SyncService) LastStatus(ctx context.Context) (last, lastSuccess *domain.SyncRun, err error) {
	last, err = s.syncs.LastRun(ctx)
	if err != nil {
		return nil, nil, err
	}
	lastSuccess, err = s.syncs.LastSuccessfulRun(ctx)
	if err != nil {
		return nil, nil, err
	}
	return last, lastSuccess, nil
}

func (s *SyncService) syncKind(ctx context.Context, kind domain.MetricKind, opts SyncOptions) domain.KindOutcome {
	out := domain.KindOutcome{Kind: kind}
	today := domain.DateOf(s.now())

	window, err := s.planWindow(ctx, kind, opts, today)
	if err != nil {
		out.Status = domain.SyncFailed
		out.ErrorKind = domain.SyncErrTransient
		out.Detail = err.Error()
		return out
	}

	ranges, err := s.planRanges(ctx, kind, opts, window, today)
	if err != nil {
		out.Status = domain.SyncFailed
		out.ErrorKind = domain.SyncErrTransient
		out.Detail = err.Error()
		return out
	}
	if len(ranges) == 0 {
		out.Status = domain.SyncSuccess
		return out
	}

	var deferred []domain.DateRange
	var fatal error
	for _, r := range ranges {
		rows, remaining, err := s.fetchRange(ctx, kind, r)
		out.RowsWritten += rows
		if err != nil && isFatal(err) {
			fatal = err
			break
		}
		if remaining != nil {
			deferred = append(deferred, *remaining)
		}
	}

	// One backoff retry within the run for rate-limited or transient
	// tails; whatever still fails waits for the next scheduled run.
	var stillFailed []domain.DateRange
	if fatal == nil && len(deferred) > 0 {
		if s.pause(ctx) {
			for _, r := range deferred {
				rows, remaining, err := s.fetchRange(ctx, kind, r)
				out.RowsWritten += rows
				if err != nil && isFatal(err) {
					fatal = err
					break
				}
				if remaining != nil {
					stillFailed = append(stillFailed, *remaining)
				}
			}
		} else {
			stillFailed = deferred
		}
	}

	switch {
	case fatal != nil:
		out.Status = domain.SyncFailed
		out.ErrorKind = domain.SyncErrorKindOf(fatal)
		out.Detail = fatal.Error()
		return out
	case len(stillFailed) == 0:
		out.Status = domain.SyncSuccess
		s.advanceCursor(ctx, kind, window.To)
	default:
		out.Status = domain.SyncPartial
		out.ErrorKind = domain.SyncErrTransient
		out.Detail = fmt.Sprintf("%d date range(s) left for next run", len(stillFailed))
		// Advance only past the fully-covered prefix so the next run
		// retries just the failed tail.
		if lastGood := stillFailed[0].From.AddDays(-1); !lastGood.Before(window.From) {
			s.advanceCursor(ctx, kind, lastGood)
		}
	}
	return out
}

func (s *SyncService) planWindow(ctx context.Context, kind domain.MetricKind, opts SyncOptions, today domain.Date) (domain.DateRange, error) {
	if opts.Window != nil {
		return *opts.Window, nil
	}
	cursor, err := s.syncs.Cursor(ctx, kind)
	if err != nil {
		return domain.DateRange{}, fmt.Errorf("read cursor: %w", err)
	}
	if cursor == nil {
		return domain.DateRange{From: today.AddDays(-(s.cfg.BackfillDays - 1)), To: today}, nil
	}
	from := cursor.Date.AddDays(1)
	if from.After(today) {
		from = today
	}
	return domain.DateRange{From: from, To: today}, nil
}

func (s *SyncService) planRanges(ctx context.Context, kind domain.MetricKind, opts SyncOptions, window domain.DateRange, today domain.Date) ([]domain.DateRange, error) {
	if opts.Force {
		return []domain.DateRange{window}, nil
	}
	ranges, err := s.store.MissingRanges(ctx, kind, window.From, window.To)
	if err != nil {
		return nil, fmt.Errorf("missing ranges: %w", err)
	}
	// Today's provider data keeps changing during the day; refresh it
	// even when a value is already stored.
	if window.Contains(today) {
		covered := true
		for _, r := range ranges {
			if r.Contains(today) {
				covered = false
			}
		}
		if covered {
			ranges = append(ranges, domain.DateRange{From: today, To: today})
		}
	}
	return ranges, nil
}

// fetchRange pulls one contiguous range day by day. It returns the rows
// written, the unfetched remainder if a retryable error interrupted the
// range, and the interrupting error.
func (s *SyncService) fetchRange(ctx context.Context, kind domain.MetricKind, r domain.DateRange) (int, *domain.DateRange, error) {
	rows := 0
	for _, date := range r.Dates() {
		sample, err := s.fetchOne(ctx, kind, date)
		if err != nil {
			if isFatal(err) {
				return rows, nil, err
			}
			s.log.Warn().Str("kind", string(kind)).Str("date", string(date)).Err(err).
				Msg("provider fetch failed, deferring remainder")
			return rows, &domain.DateRange{From: date, To: r.To}, err
		}

		point := domain.MetricPoint{
			Kind:   kind,
			Date:   date,
			Unit:   kind.CanonicalUnit(),
			Source: domain.SourceProvider,
		}
		if sample == nil {
			// Provider confirmed absence; the sentinel stops refetching.
			point.NoData = true
		} else {
			value, err := domain.Normalize(kind, sample.Value, sample.Unit)
			if err != nil {
				s.log.Warn().Str("kind", string(kind)).Str("date", string(date)).Err(err).
					Msg("dropping unnormalizable provider value")
				return rows, &domain.DateRange{From: date, To: r.To}, fmt.Errorf("%w: %v", domain.ErrTransient, err)
			}
			point.Value = value
		}
		if err := s.store.Upsert(ctx, point); err != nil {
			return rows, &domain.DateRange{From: date, To: r.To}, fmt.Errorf("%w: upsert: %v", domain.ErrTransient, err)
		}
		rows++
	}
	return rows, nil, nil
}

func (s *SyncService) fetchOne(ctx context.Context, kind domain.MetricKind, date domain.Date) (*domain.Sample, error) {
	fctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()
	return s.provider.Fetch(fctx, kind, date)
}

// advanceCursor moves the cursor forward, never backward.
func (s *SyncService) advanceCursor(ctx context.Context, kind domain.MetricKind, to domain.Date) {
	existing, err := s.syncs.Cursor(ctx, kind)
	if err != nil {
		s.log.Error().Str("kind", string(kind)).Err(err).Msg("cursor read failed")
		return
	}
	if existing != nil && !to.After(existing.Date) {
		return
	}
	if err := s.syncs.SetCursor(ctx, domain.SyncCursor{Kind: kind, Date: to, SyncedAt: s.now().UTC()}); err != nil {
		s.log.Error().Str("kind", string(kind)).Err(err).Msg("cursor write failed")
	}
}

// pause sleeps for the retry backoff; false means the context ended first.
func (s *SyncService) pause(ctx context.Context) bool {
	t := time.NewTimer(s.cfg.RetryBackoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func isFatal(err error) bool {
	return errors.Is(err, domain.ErrAuthExpired) || errors.Is(err, domain.ErrUnsupportedMetric)
}
