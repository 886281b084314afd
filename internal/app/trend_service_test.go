package app

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bearyjd/vitalforge/internal/adapter/memory"
	"github.com/bearyjd/vitalforge/internal/domain"
)

// seed writes one provider point per day starting at start.
func seed(t *testing.T, db *memory.DB, kind domain.MetricKind, start domain.Date, vals ...float64) {
	t.Helper()
	for i, v := range vals {
		require.NoError(t, db.Upsert(context.Background(), domain.MetricPoint{
			Kind:   kind,
			Date:   start.AddDays(i),
			Value:  v,
			Unit:   kind.CanonicalUnit(),
			Source: domain.SourceProvider,
		}))
	}
}

func TestSeriesSplitsGapsFromValues(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	seed(t, db, domain.KindRestingHR, "2026-08-28", 58, 59)
	require.NoError(t, db.Upsert(ctx, domain.MetricPoint{
		Kind: domain.KindRestingHR, Date: "2026-08-30",
		Unit: domain.UnitBPM, Source: domain.SourceProvider, NoData: true,
	}))

	svc := NewTrendService(db)
	series, gaps, err := svc.Series(ctx, domain.KindRestingHR, 7, "2026-08-31")
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, domain.Date("2026-08-28"), series[0].Date)
	assert.Equal(t, 58.0, series[0].Value)
	assert.Equal(t, []domain.Date{"2026-08-30"}, gaps)
}

func TestSeriesRejectsBadInput(t *testing.T) {
	svc := NewTrendService(memory.New())
	_, _, err := svc.Series(context.Background(), "pulse_wave", 7, "2026-08-31")
	assert.ErrorIs(t, err, domain.ErrUnknownMetric)

	_, _, err = svc.Series(context.Background(), domain.KindSteps, 0, "2026-08-31")
	assert.Error(t, err)

	_, err = svc.MovingAverage(context.Background(), domain.KindSteps, 7, -1, "2026-08-31")
	assert.Error(t, err)
}

func TestMovingAverageOmitsUnderfilledWindow(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	seed(t, db, domain.KindSteps, "2026-08-22", 1, 2, 3, 4, 5, 6, 7, 8, 9, 10)

	svc := NewTrendService(db)
	avg, err := svc.MovingAverage(ctx, domain.KindSteps, 10, 3, "2026-08-31")
	require.NoError(t, err)

	// The first two dates lack a full 3-point window and drop out.
	require.Len(t, avg, 8)
	assert.Equal(t, domain.Date("2026-08-24"), avg[0].Date)
	assert.Equal(t, 2.0, avg[0].Value)
	assert.Equal(t, domain.Date("2026-08-31"), avg[7].Date)
	assert.Equal(t, 9.0, avg[7].Value)
}

func TestBaselineIsTrailingThirtyDayMean(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	vals := make([]float64, 30)
	for i := range vals {
		vals[i] = 50 + float64(i) // 50..79, mean 64.5
	}
	seed(t, db, domain.KindHRV, "2026-08-02", vals...)

	svc := NewTrendService(db)
	baseline, ok, err := svc.Baseline(ctx, domain.KindHRV, "2026-08-31")
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 64.5, baseline, 1e-9)

	_, ok, err = svc.Baseline(ctx, domain.KindVO2Max, "2026-08-31")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSnapshotIsDeterministic(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	seed(t, db, domain.KindSleepDuration, "2026-08-25", 25200, 24000, 26100, 23400, 27000, 25800, 24600)
	seed(t, db, domain.KindRestingHR, "2026-08-25", 58, 57, 59, 60, 58, 57, 58)

	svc := NewTrendService(db)
	a, err := svc.Snapshot(ctx, 30, "2026-08-31")
	require.NoError(t, err)
	b, err := svc.Snapshot(ctx, 30, "2026-08-31")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	aj, err := json.Marshal(a.Series[domain.KindSleepDuration])
	require.NoError(t, err)
	bj, err := json.Marshal(b.Series[domain.KindSleepDuration])
	require.NoError(t, err)
	assert.Equal(t, aj, bj)

	assert.Equal(t, domain.DateRange{From: "2026-08-02", To: "2026-08-31"}, a.Window)
	assert.NotContains(t, a.Series, domain.KindStress, "kinds without data stay absent")
}

func TestSummariesSplitWeekAndMonth(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	// 14 days: first week at 6000 steps, second at 10000.
	vals := make([]float64, 14)
	for i := range vals {
		if i < 7 {
			vals[i] = 6000
		} else {
			vals[i] = 10000
		}
	}
	seed(t, db, domain.KindSteps, "2026-08-18", vals...)

	svc := NewTrendService(db)
	sums, err := svc.Summaries(ctx, "2026-08-31")
	require.NoError(t, err)
	require.Len(t, sums, 1)

	s := sums[0]
	assert.Equal(t, domain.KindSteps, s.Kind)
	assert.Equal(t, domain.UnitCount, s.Unit)
	require.NotNil(t, s.Latest)
	assert.Equal(t, 10000.0, *s.Latest)
	require.NotNil(t, s.Avg7)
	assert.Equal(t, 10000.0, *s.Avg7)
	require.NotNil(t, s.Avg30)
	assert.Equal(t, 8000.0, *s.Avg30)
}
