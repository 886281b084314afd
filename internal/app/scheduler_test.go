package app

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bearyjd/vitalforge/internal/adapter/memory"
	"github.com/bearyjd/vitalforge/internal/domain"
)

func TestSchedulerRunsImmediatelyAndStops(t *testing.T) {
	db := memory.New()
	svc := newTestSync(db, newStubProvider(constSample(60, domain.UnitBPM)))

	sched := NewScheduler(svc, time.Hour, zerolog.Nop())
	sched.Start()

	require.Eventually(t, func() bool {
		last, _, err := svc.LastStatus(context.Background())
		return err == nil && last != nil
	}, time.Second, 5*time.Millisecond, "first run fires without waiting for the ticker")

	sched.Stop()

	last, _, err := svc.LastStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.SyncSuccess, last.Status())
}

func TestSchedulerStopBeforeStart(t *testing.T) {
	sched := NewScheduler(nil, time.Hour, zerolog.Nop())
	sched.Stop()
}
