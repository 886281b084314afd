package app

import (
	"fmt"
	"math"

	"github.com/bearyjd/vitalforge/internal/domain"
)

// comparison selects the adverse direction of a rule.
type comparison int

const (
	below comparison = iota
	above
)

func (c comparison) adverse(v, threshold float64) bool {
	if c == above {
		return v > threshold
	}
	return v < threshold
}

// baselineMinPoints is the fewest data points a 30-day window must hold
// before a baseline-relative comparison is meaningful. Below this the
// "baseline" is just the last few readings and the rule is skipped.
const baselineMinPoints = 7

// runRule triggers when its condition holds for minRun or more
// consecutive most-recent data points. The threshold is either absolute
// or a fraction of the kind's 30-day baseline.
type runRule struct {
	ruleMeta
	kind        domain.MetricKind
	cmp         comparison
	threshold   float64
	baselinePct float64 // when set, threshold = baseline * baselinePct
	minRun      int
	message     func(run int, last float64) string
}

func (r runRule) evaluate(snap *TrendSnapshot) (domain.Finding, bool) {
	series := snap.Series[r.kind]
	if len(series) < r.minRun {
		return domain.Finding{}, false
	}
	threshold := r.threshold
	if r.baselinePct != 0 {
		if len(series) < baselineMinPoints {
			return domain.Finding{}, false
		}
		baseline, ok := snap.Baselines[r.kind]
		if !ok {
			return domain.Finding{}, false
		}
		threshold = baseline * r.baselinePct
	}

	run := 0
	for i := len(series) - 1; i >= 0; i-- {
		if !r.cmp.adverse(series[i].Value, threshold) {
			break
		}
		run++
	}
	if run < r.minRun {
		return domain.Finding{}, false
	}

	// The finding window is the minimal qualifying segment: the most
	// recent minRun days of the run.
	last := series[len(series)-1]
	return domain.Finding{
		Category: r.category,
		Severity: r.severity,
		Code:     r.code,
		Message:  r.message(run, last.Value),
		Metrics:  r.metrics,
		Window:   domain.DateRange{From: series[len(series)-r.minRun].Date, To: last.Date},
	}, true
}

// shiftRule compares the mean of the last window data points against
// the mean of the window points before those, covering a two-week span
// at the default window of 7. It triggers when the recent mean moved
// beyond pct (or absDelta, when set) of the prior mean in the adverse
// direction.
type shiftRule struct {
	ruleMeta
	kind     domain.MetricKind
	cmp      comparison
	window   int
	pct      float64
	absDelta float64 // when set, compared instead of pct
	message  func(recent, prior float64) string
}

func (r shiftRule) evaluate(snap *TrendSnapshot) (domain.Finding, bool) {
	series := snap.Series[r.kind]
	if len(series) < 2*r.window {
		return domain.Finding{}, false
	}
	recent := *mean(values(series[len(series)-r.window:]))
	prior := *mean(values(series[len(series)-2*r.window : len(series)-r.window]))
	if prior == 0 {
		return domain.Finding{}, false
	}

	hit := false
	if r.absDelta != 0 {
		hit = r.cmp.adverse(recent, prior) && math.Abs(recent-prior) > r.absDelta
	} else {
		switch r.cmp {
		case below:
			hit = recent < prior*(1-r.pct)
		case above:
			hit = recent > prior*(1+r.pct)
		}
	}
	if !hit {
		return domain.Finding{}, false
	}

	return domain.Finding{
		Category: r.category,
		Severity: r.severity,
		Code:     r.code,
		Message:  r.message(recent, prior),
		Metrics:  r.metrics,
		Window:   domain.DateRange{From: series[len(series)-2*r.window].Date, To: series[len(series)-1].Date},
	}, true
}

// avgRule triggers on the mean of the last window data points crossing
// an absolute threshold.
type avgRule struct {
	ruleMeta
	kind      domain.MetricKind
	cmp       comparison
	window    int
	threshold float64
	message   func(avg float64) string
}

func (r avgRule) evaluate(snap *TrendSnapshot) (domain.Finding, bool) {
	series := snap.Series[r.kind]
	if len(series) < r.window {
		return domain.Finding{}, false
	}
	avg := *mean(values(series[len(series)-r.window:]))
	if !r.cmp.adverse(avg, r.threshold) {
		return domain.Finding{}, false
	}
	return domain.Finding{
		Category: r.category,
		Severity: r.severity,
		Code:     r.code,
		Message:  r.message(avg),
		Metrics:  r.metrics,
		Window:   domain.DateRange{From: series[len(series)-r.window].Date, To: series[len(series)-1].Date},
	}, true
}

// plateauRule is the one composite single-metric rule: weight barely
// moved across three weeks while training load was non-trivial.
type plateauRule struct {
	ruleMeta
	maxChangeGrams float64
}

func (r plateauRule) evaluate(snap *TrendSnapshot) (domain.Finding, bool) {
	weight := snap.Series[domain.KindWeight]
	if len(weight) < 21 {
		return domain.Finding{}, false
	}
	recent := *mean(values(weight[len(weight)-7:]))
	threeWeeksAgo := *mean(values(weight[len(weight)-21 : len(weight)-14]))
	change := math.Abs(recent - threeWeeksAgo)
	if change >= r.maxChangeGrams {
		return domain.Finding{}, false
	}

	load := snap.Series[domain.KindTrainingLoad]
	if len(load) < 7 {
		// Cannot tell plateau-under-training from plain maintenance.
		return domain.Finding{}, false
	}
	if *mean(values(load[len(load)-7:])) <= 0 {
		return domain.Finding{}, false
	}

	return domain.Finding{
		Category: r.category,
		Severity: r.severity,
		Code:     r.code,
		Message:  fmt.Sprintf("Weight has plateaued (%.0f g change over 3 weeks) despite active training", change),
		Metrics:  r.metrics,
		Window:   domain.DateRange{From: weight[len(weight)-21].Date, To: weight[len(weight)-1].Date},
	}, true
}

// gapRule triggers when the most recent data point for a kind is older
// than maxGap days. It stays silent for kinds the user never tracked.
type gapRule struct {
	ruleMeta
	kind    domain.MetricKind
	maxGap  int
	message func(gap int) string
}

func (r gapRule) evaluate(snap *TrendSnapshot) (domain.Finding, bool) {
	series := snap.Series[r.kind]
	if len(series) == 0 {
		return domain.Finding{}, false
	}
	last := series[len(series)-1].Date
	gap := domain.DateRange{From: last, To: snap.AsOf}.Days() - 1
	if gap < r.maxGap {
		return domain.Finding{}, false
	}
	return domain.Finding{
		Category: r.category,
		Severity: r.severity,
		Code:     r.code,
		Message:  r.message(gap),
		Metrics:  r.metrics,
		Window:   domain.DateRange{From: last, To: snap.AsOf},
	}, true
}

const (
	sevenHoursSeconds = 7 * 3600
	rapidGainGrams    = 907 // ~2 lbs per week
	plateauGrams      = 227 // ~0.5 lbs
)

// defaultSingleRules declares the rule table. Declaration order is the
// tiebreaker within a category and severity, so it is part of the
// observable output contract.
func defaultSingleRules() []singleRule {
	return []singleRule{
		runRule{
			ruleMeta: ruleMeta{code: "sleep_low_duration", category: domain.CategorySleep,
				severity: domain.SeverityWarning, metrics: []domain.MetricKind{domain.KindSleepDuration}},
			kind: domain.KindSleepDuration, cmp: below, threshold: sevenHoursSeconds, minRun: 3,
			message: func(run int, _ float64) string {
				return fmt.Sprintf("Sleep under 7 hours for %d consecutive nights", run)
			},
		},
		runRule{
			ruleMeta: ruleMeta{code: "sleep_low_score", category: domain.CategorySleep,
				severity: domain.SeverityWarning, metrics: []domain.MetricKind{domain.KindSleepScore}},
			kind: domain.KindSleepScore, cmp: below, threshold: 70, minRun: 3,
			message: func(run int, _ float64) string {
				return fmt.Sprintf("Sleep score below 70 for %d consecutive days", run)
			},
		},
		shiftRule{
			ruleMeta: ruleMeta{code: "sleep_declining", category: domain.CategorySleep,
				severity: domain.SeverityWarning, metrics: []domain.MetricKind{domain.KindSleepDuration}},
			kind: domain.KindSleepDuration, cmp: below, window: 7, pct: 0.10,
			message: func(recent, prior float64) string {
				return fmt.Sprintf("Sleep duration trending down over 2 weeks (%.1fh vs %.1fh nightly)", recent/3600, prior/3600)
			},
		},
		runRule{
			ruleMeta: ruleMeta{code: "hrv_below_baseline", category: domain.CategoryRecovery,
				severity: domain.SeverityWarning, metrics: []domain.MetricKind{domain.KindHRV}},
			kind: domain.KindHRV, cmp: below, baselinePct: 1.0, minRun: 3,
			message: func(run int, _ float64) string {
				return fmt.Sprintf("HRV below your 30-day baseline for %d consecutive days", run)
			},
		},
		shiftRule{
			ruleMeta: ruleMeta{code: "hrv_weekly_drop", category: domain.CategoryRecovery,
				severity: domain.SeverityAlert, metrics: []domain.MetricKind{domain.KindHRV}},
			kind: domain.KindHRV, cmp: below, window: 7, pct: 0.15,
			message: func(recent, prior float64) string {
				return fmt.Sprintf("HRV dropped %.0f%% week-over-week (%.0f ms vs %.0f ms)", (1-recent/prior)*100, recent, prior)
			},
		},
		runRule{
			ruleMeta: ruleMeta{code: "rhr_elevated", category: domain.CategoryRecovery,
				severity: domain.SeverityWarning, metrics: []domain.MetricKind{domain.KindRestingHR}},
			kind: domain.KindRestingHR, cmp: above, baselinePct: 1.10, minRun: 1,
			message: func(_ int, last float64) string {
				return fmt.Sprintf("Resting HR at %.0f bpm, more than 10%% above your 30-day baseline", last)
			},
		},
		shiftRule{
			ruleMeta: ruleMeta{code: "rhr_trending_up", category: domain.CategoryRecovery,
				severity: domain.SeverityWarning, metrics: []domain.MetricKind{domain.KindRestingHR}},
			kind: domain.KindRestingHR, cmp: above, window: 7, pct: 0.05,
			message: func(recent, prior float64) string {
				return fmt.Sprintf("Resting HR trending up over 2 weeks (%.0f bpm vs %.0f bpm)", recent, prior)
			},
		},
		runRule{
			ruleMeta: ruleMeta{code: "body_battery_low", category: domain.CategoryRecovery,
				severity: domain.SeverityWarning, metrics: []domain.MetricKind{domain.KindBodyBattery}},
			kind: domain.KindBodyBattery, cmp: below, threshold: 80, minRun: 3,
			message: func(run int, _ float64) string {
				return fmt.Sprintf("Body Battery has not recovered above 80 for %d consecutive days", run)
			},
		},
		runRule{
			ruleMeta: ruleMeta{code: "stress_high", category: domain.CategoryStress,
				severity: domain.SeverityWarning, metrics: []domain.MetricKind{domain.KindStress}},
			kind: domain.KindStress, cmp: above, threshold: 50, minRun: 3,
			message: func(run int, _ float64) string {
				return fmt.Sprintf("Average daily stress above 50 for %d consecutive days", run)
			},
		},
		shiftRule{
			ruleMeta: ruleMeta{code: "stress_trending_up", category: domain.CategoryStress,
				severity: domain.SeverityWarning, metrics: []domain.MetricKind{domain.KindStress}},
			kind: domain.KindStress, cmp: above, window: 7, pct: 0.10,
			message: func(recent, prior float64) string {
				return fmt.Sprintf("Stress trending up over 2 weeks (avg %.0f vs %.0f)", recent, prior)
			},
		},
		shiftRule{
			ruleMeta: ruleMeta{code: "weight_rapid_gain", category: domain.CategoryBodyComposition,
				severity: domain.SeverityWarning, metrics: []domain.MetricKind{domain.KindWeight}},
			kind: domain.KindWeight, cmp: above, window: 7, absDelta: rapidGainGrams,
			message: func(recent, prior float64) string {
				return fmt.Sprintf("Weight increasing at %.1f kg/week", (recent-prior)/1000)
			},
		},
		plateauRule{
			ruleMeta: ruleMeta{code: "weight_plateau", category: domain.CategoryBodyComposition,
				severity: domain.SeverityInfo, metrics: []domain.MetricKind{domain.KindWeight, domain.KindTrainingLoad}},
			maxChangeGrams: plateauGrams,
		},
		gapRule{
			ruleMeta: ruleMeta{code: "weight_no_data", category: domain.CategoryBodyComposition,
				severity: domain.SeverityInfo, metrics: []domain.MetricKind{domain.KindWeight}},
			kind: domain.KindWeight, maxGap: 7,
			message: func(gap int) string {
				return fmt.Sprintf("No weight entry recorded for %d days", gap)
			},
		},
		avgRule{
			ruleMeta: ruleMeta{code: "steps_low", category: domain.CategoryActivity,
				severity: domain.SeverityInfo, metrics: []domain.MetricKind{domain.KindSteps}},
			kind: domain.KindSteps, cmp: below, window: 7, threshold: 7000,
			message: func(avg float64) string {
				return fmt.Sprintf("Daily step average this week is %.0f, below the 7,000 target", avg)
			},
		},
		shiftRule{
			ruleMeta: ruleMeta{code: "training_load_spike", category: domain.CategoryActivity,
				severity: domain.SeverityWarning, metrics: []domain.MetricKind{domain.KindTrainingLoad}},
			kind: domain.KindTrainingLoad, cmp: above, window: 7, pct: 0.30,
			message: func(recent, prior float64) string {
				return fmt.Sprintf("Training load %.0f%% above last week", (recent/prior-1)*100)
			},
		},
		shiftRule{
			ruleMeta: ruleMeta{code: "vo2max_declining", category: domain.CategoryActivity,
				severity: domain.SeverityWarning, metrics: []domain.MetricKind{domain.KindVO2Max}},
			kind: domain.KindVO2Max, cmp: below, window: 7, pct: 0.02,
			message: func(recent, prior float64) string {
				return fmt.Sprintf("VO2 Max is declining (%.1f vs %.1f)", recent, prior)
			},
		},
	}
}

func defaultCorrelationRules() []correlationRule {
	return []correlationRule{
		{
			ruleMeta: ruleMeta{code: "recovery_deficit", category: domain.CategoryCorrelation,
				severity: domain.SeverityAlert,
				metrics:  []domain.MetricKind{domain.KindSleepDuration, domain.KindRestingHR, domain.KindHRV}},
			requires: []string{"sleep_low_duration", "rhr_elevated", "hrv_below_baseline"},
			message:  "Multiple recovery markers indicate a recovery deficit: poor sleep, elevated resting HR, and low HRV",
		},
		{
			ruleMeta: ruleMeta{code: "overtraining_risk", category: domain.CategoryCorrelation,
				severity: domain.SeverityAlert,
				metrics:  []domain.MetricKind{domain.KindTrainingLoad, domain.KindHRV, domain.KindRestingHR}},
			requires: []string{"training_load_spike", "hrv_weekly_drop", "rhr_elevated"},
			message:  "High training load combined with dropping HRV and elevated resting HR suggests overtraining risk",
		},
	}
}
