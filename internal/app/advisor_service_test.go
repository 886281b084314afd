package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bearyjd/vitalforge/internal/adapter/memory"
	"github.com/bearyjd/vitalforge/internal/domain"
)

type stubAdvisor struct {
	calls int
	err   error
}

func (a *stubAdvisor) Advise(_ context.Context, findings []domain.Finding, _ []MetricSummary) ([]RecommendationCard, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	return []RecommendationCard{{
		Title:    "Prioritize recovery",
		Body:     "Back off training intensity for a few days.",
		Severity: domain.SeverityWarning,
	}}, nil
}

func newTestAdvisorService(db *memory.DB, advisor Advisor) *AdvisorService {
	svc := NewAdvisorService(NewTrendService(db), NewRuleEvaluator(), advisor, 6*time.Hour, zerolog.Nop())
	svc.now = func() time.Time { return testNow }
	return svc
}

func shortSleepDB(t *testing.T) *memory.DB {
	t.Helper()
	db := memory.New()
	seed(t, db, domain.KindSleepDuration, "2026-08-25", 21600, 21600, 21600, 21600, 21600, 21600)
	return db
}

func TestRecommendationsCachesByInputHash(t *testing.T) {
	ctx := context.Background()
	db := shortSleepDB(t)
	advisor := &stubAdvisor{}
	svc := newTestAdvisorService(db, advisor)

	cards, cached, err := svc.Recommendations(ctx, false)
	require.NoError(t, err)
	assert.False(t, cached)
	require.Len(t, cards, 1)
	assert.Equal(t, 1, advisor.calls)

	// Unchanged data within the freshness window serves the cache.
	_, cached, err = svc.Recommendations(ctx, false)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 1, advisor.calls)

	// New data changes the input hash and invalidates the cache.
	require.NoError(t, db.Upsert(ctx, domain.MetricPoint{
		Kind: domain.KindSleepDuration, Date: "2026-08-31",
		Value: 21600, Unit: domain.UnitSeconds, Source: domain.SourceProvider,
	}))
	_, cached, err = svc.Recommendations(ctx, false)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, advisor.calls)
}

func TestRecommendationsCacheExpires(t *testing.T) {
	ctx := context.Background()
	advisor := &stubAdvisor{}
	svc := newTestAdvisorService(shortSleepDB(t), advisor)

	_, _, err := svc.Recommendations(ctx, false)
	require.NoError(t, err)

	svc.now = func() time.Time { return testNow.Add(7 * time.Hour) }
	_, cached, err := svc.Recommendations(ctx, false)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, advisor.calls)
}

func TestRecommendationsForceBypassesCache(t *testing.T) {
	ctx := context.Background()
	advisor := &stubAdvisor{}
	svc := newTestAdvisorService(shortSleepDB(t), advisor)

	_, _, err := svc.Recommendations(ctx, false)
	require.NoError(t, err)
	_, cached, err := svc.Recommendations(ctx, true)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, advisor.calls)
}

func TestRecommendationsFallBackOnAdvisorError(t *testing.T) {
	ctx := context.Background()
	svc := newTestAdvisorService(shortSleepDB(t), &stubAdvisor{err: errors.New("model unavailable")})

	cards, cached, err := svc.Recommendations(ctx, false)
	require.NoError(t, err)
	assert.False(t, cached)
	require.Len(t, cards, 1)
	assert.Equal(t, "Sleep Low Duration", cards[0].Title)
	assert.Contains(t, cards[0].Body, "consecutive nights")
}

func TestRecommendationsWithoutAdvisor(t *testing.T) {
	ctx := context.Background()
	svc := newTestAdvisorService(shortSleepDB(t), nil)

	cards, _, err := svc.Recommendations(ctx, false)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, domain.SeverityWarning, cards[0].Severity)
	assert.Equal(t, []domain.MetricKind{domain.KindSleepDuration}, cards[0].Metrics)
}

func TestFindingsUsesEvaluationWindow(t *testing.T) {
	db := memory.New()
	// Short nights well outside the 30-day window are ignored.
	seed(t, db, domain.KindSleepDuration, "2026-06-01", 21600, 21600, 21600, 21600)
	svc := newTestAdvisorService(db, nil)

	findings, err := svc.Findings(context.Background(), asOf)
	require.NoError(t, err)
	assert.Empty(t, findings)
}
