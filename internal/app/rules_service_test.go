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

const asOf = domain.Date("2026-08-31")

func snapshotOf(t *testing.T, db *memory.DB) *TrendSnapshot {
	t.Helper()
	snap, err := NewTrendService(db).Snapshot(context.Background(), 30, asOf)
	require.NoError(t, err)
	return snap
}

func findingCodes(findings []domain.Finding) []string {
	codes := make([]string, len(findings))
	for i, f := range findings {
		codes[i] = f.Code
	}
	return codes
}

func TestSleepRunTriggersOnConsecutiveShortNights(t *testing.T) {
	db := memory.New()
	// Three good nights, then seven under 7 hours.
	seed(t, db, domain.KindSleepDuration, "2026-08-22",
		27000, 27000, 27000, 21600, 21600, 21600, 21600, 21600, 21600, 21600)

	findings := NewRuleEvaluator().Evaluate(snapshotOf(t, db))
	require.Len(t, findings, 1)

	f := findings[0]
	assert.Equal(t, "sleep_low_duration", f.Code)
	assert.Equal(t, domain.CategorySleep, f.Category)
	assert.Equal(t, domain.SeverityWarning, f.Severity)
	assert.Contains(t, f.Message, "7 consecutive nights")
	// The window is the minimal qualifying run, not the whole streak.
	assert.Equal(t, domain.DateRange{From: "2026-08-29", To: "2026-08-31"}, f.Window)
}

func TestSleepRunIgnoresShortStreaks(t *testing.T) {
	db := memory.New()
	seed(t, db, domain.KindSleepDuration, "2026-08-22",
		27000, 27000, 27000, 27000, 27000, 27000, 27000, 27000, 21600, 21600)

	findings := NewRuleEvaluator().Evaluate(snapshotOf(t, db))
	assert.Empty(t, findings, "two short nights are below the three-night minimum")
}

func TestBaselineRulesNeedSevenDataPoints(t *testing.T) {
	// Two readings make the "baseline" just the readings themselves;
	// baseline-relative rules stay silent on that little history.
	db := memory.New()
	seed(t, db, domain.KindRestingHR, "2026-08-30", 50, 70)
	assert.Empty(t, NewRuleEvaluator().Evaluate(snapshotOf(t, db)))

	// Seven points is the floor: the same spike now registers.
	db = memory.New()
	seed(t, db, domain.KindRestingHR, "2026-08-25", 50, 50, 50, 50, 50, 50, 70)
	findings := NewRuleEvaluator().Evaluate(snapshotOf(t, db))
	require.Len(t, findings, 1)
	assert.Equal(t, "rhr_elevated", findings[0].Code)
}

func TestRestingHRElevationIsBaselineRelative(t *testing.T) {
	flat := make([]float64, 29)
	for i := range flat {
		flat[i] = 60
	}

	// Baseline lands at 60.2; the 10% margin puts the trigger near 66.3.
	db := memory.New()
	seed(t, db, domain.KindRestingHR, "2026-08-02", append(flat, 67)...)
	findings := NewRuleEvaluator().Evaluate(snapshotOf(t, db))
	require.Len(t, findings, 1)
	assert.Equal(t, "rhr_elevated", findings[0].Code)
	assert.Contains(t, findings[0].Message, "67 bpm")

	db = memory.New()
	seed(t, db, domain.KindRestingHR, "2026-08-02", append(flat, 65)...)
	assert.Empty(t, NewRuleEvaluator().Evaluate(snapshotOf(t, db)))
}

func TestCorrelationSupersedesWithoutRemovingConstituents(t *testing.T) {
	db := memory.New()
	seed(t, db, domain.KindSleepDuration, "2026-08-22",
		27000, 27000, 27000, 21600, 21600, 21600, 21600, 21600, 21600, 21600)

	rhr := make([]float64, 30)
	for i := range rhr {
		rhr[i] = 60
	}
	rhr[29] = 70
	seed(t, db, domain.KindRestingHR, "2026-08-02", rhr...)

	hrv := make([]float64, 30)
	for i := range hrv {
		hrv[i] = 50
	}
	hrv[27], hrv[28], hrv[29] = 40, 40, 40
	seed(t, db, domain.KindHRV, "2026-08-02", hrv...)

	findings := NewRuleEvaluator().Evaluate(snapshotOf(t, db))
	require.Equal(t, []string{
		"recovery_deficit",   // correlation first
		"sleep_low_duration", // then singles in category order
		"hrv_below_baseline", // recovery group in declaration order
		"rhr_elevated",
	}, findingCodes(findings))

	deficit := findings[0]
	assert.Equal(t, domain.CategoryCorrelation, deficit.Category)
	assert.Equal(t, domain.SeverityAlert, deficit.Severity)
	assert.Equal(t, domain.DateRange{From: "2026-08-02", To: asOf}, deficit.Window)
}

func TestEvaluateIsDeterministic(t *testing.T) {
	db := memory.New()
	seed(t, db, domain.KindSleepDuration, "2026-08-22",
		21600, 21600, 21600, 21600, 21600, 21600, 21600, 21600, 21600, 21600)
	seed(t, db, domain.KindStress, "2026-08-25", 60, 62, 58, 61, 65, 59, 63)

	snap := snapshotOf(t, db)
	eval := NewRuleEvaluator()
	a, err := json.Marshal(eval.Evaluate(snap))
	require.NoError(t, err)
	b, err := json.Marshal(eval.Evaluate(snap))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestShiftRuleNeedsTwoFullWindows(t *testing.T) {
	decline := []float64{50, 50, 50, 50, 50, 50, 50, 45, 45, 45, 45, 45, 45}

	db := memory.New()
	seed(t, db, domain.KindVO2Max, "2026-08-19", decline...)
	assert.Empty(t, NewRuleEvaluator().Evaluate(snapshotOf(t, db)),
		"13 data points cannot fill two 7-day windows")

	db = memory.New()
	seed(t, db, domain.KindVO2Max, "2026-08-18", append(decline, 45)...)
	findings := NewRuleEvaluator().Evaluate(snapshotOf(t, db))
	require.Len(t, findings, 1)
	assert.Equal(t, "vo2max_declining", findings[0].Code)
}

func TestWeightRapidGain(t *testing.T) {
	db := memory.New()
	weights := []float64{80000, 80000, 80000, 80000, 80000, 80000, 80000,
		81200, 81200, 81200, 81200, 81200, 81200, 81200}
	seed(t, db, domain.KindWeight, "2026-08-18", weights...)

	findings := NewRuleEvaluator().Evaluate(snapshotOf(t, db))
	require.Len(t, findings, 1)
	assert.Equal(t, "weight_rapid_gain", findings[0].Code)
	assert.Contains(t, findings[0].Message, "1.2 kg/week")
}

func TestWeightPlateauNeedsActiveTraining(t *testing.T) {
	flat := make([]float64, 21)
	for i := range flat {
		flat[i] = 80000
	}

	db := memory.New()
	seed(t, db, domain.KindWeight, "2026-08-11", flat...)
	assert.Empty(t, NewRuleEvaluator().Evaluate(snapshotOf(t, db)),
		"flat weight alone is maintenance, not a plateau")

	seed(t, db, domain.KindTrainingLoad, "2026-08-25", 120, 120, 120, 120, 120, 120, 120)
	findings := NewRuleEvaluator().Evaluate(snapshotOf(t, db))
	require.Len(t, findings, 1)
	assert.Equal(t, "weight_plateau", findings[0].Code)
	assert.Equal(t, domain.SeverityInfo, findings[0].Severity)
}

func TestWeightDataGap(t *testing.T) {
	flat := make([]float64, 10)
	for i := range flat {
		flat[i] = 80000
	}

	// Last entry 10 days before the as-of date.
	db := memory.New()
	seed(t, db, domain.KindWeight, "2026-08-12", flat...)
	findings := NewRuleEvaluator().Evaluate(snapshotOf(t, db))
	require.Len(t, findings, 1)

	f := findings[0]
	assert.Equal(t, "weight_no_data", f.Code)
	assert.Equal(t, domain.SeverityInfo, f.Severity)
	assert.Contains(t, f.Message, "10 days")
	assert.Equal(t, domain.DateRange{From: "2026-08-21", To: asOf}, f.Window)

	// A recent entry keeps the rule quiet.
	db = memory.New()
	seed(t, db, domain.KindWeight, "2026-08-17", flat...)
	assert.Empty(t, NewRuleEvaluator().Evaluate(snapshotOf(t, db)))

	// So does never having tracked weight at all.
	assert.Empty(t, NewRuleEvaluator().Evaluate(snapshotOf(t, memory.New())))
}

func TestLowStepsAverage(t *testing.T) {
	db := memory.New()
	seed(t, db, domain.KindSteps, "2026-08-25", 5200, 4800, 6100, 5500, 4900, 6300, 5800)

	findings := NewRuleEvaluator().Evaluate(snapshotOf(t, db))
	require.Len(t, findings, 1)
	assert.Equal(t, "steps_low", findings[0].Code)
	assert.Equal(t, domain.CategoryActivity, findings[0].Category)
}

func TestEvaluateEmptySnapshot(t *testing.T) {
	assert.Empty(t, NewRuleEvaluator().Evaluate(snapshotOf(t, memory.New())))
}
