package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Scheduler owns the background sync timer. It is an explicit
// process-lifetime component with start and stop so tests drive the
// sync service directly instead of waiting on a real timer.
type Scheduler struct {
	sync     *SyncService
	interval time.Duration
	log      zerolog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewScheduler creates a Scheduler that triggers a sync every interval.
func NewScheduler(sync *SyncService, interval time.Duration, log zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 2 * time.Hour
	}
	return &Scheduler{
		sync:     sync,
		interval: interval,
		log:      log.With().Str("component", "scheduler").Logger(),
	}
}

// Start launches the timer loop, beginning with an immediate run that
// backfills any kind without a cursor.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		s.runOnce(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()
}

// Stop cancels the loop and waits for an in-flight run to return. A run
// interrupted here simply leaves cursors at the last durable commit.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *Scheduler) runOnce(ctx context.Context) {
	run, err := s.sync.Run(ctx, SyncOptions{})
	if err != nil {
		s.log.Error().Err(err).Msg("scheduled sync failed to start")
		return
	}
	s.log.Info().Str("run", run.ID).Str("status", string(run.Status())).Msg("scheduled sync completed")
}
