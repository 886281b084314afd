package app

import (
	"context"
	"fmt"

	"github.com/bearyjd/vitalforge/internal/domain"
)

// baselineDays is the trailing window used as the personal reference
// point for deviation scoring.
const baselineDays = 30

// TrendService computes read-side series, moving averages and baselines.
// Every method is a pure function of the store contents and the as-of
// date: identical inputs produce identical outputs.
type TrendService struct {
	store domain.MetricRepository
}

// NewTrendService creates a TrendService backed by the given repository.
func NewTrendService(store domain.MetricRepository) *TrendService {
	return &TrendService{store: store}
}

// SeriesPoint is one dated value in a trend series.
type SeriesPoint struct {
	Date  domain.Date `json:"date"`
	Value float64     `json:"value"`
}

// Series returns the value-bearing points of the trailing days window
// ending at asOf, ascending by date, plus the dates the provider
// confirmed as having no data.
func (s *TrendService) Series(ctx context.Context, kind domain.MetricKind, days int, asOf domain.Date) ([]SeriesPoint, []domain.Date, error) {
	if !kind.Valid() {
		return nil, nil, fmt.Errorf("%w: %q", domain.ErrUnknownMetric, kind)
	}
	if days <= 0 {
		return nil, nil, fmt.Errorf("days must be positive, got %d", days)
	}

	points, err := s.store.Query(ctx, kind, asOf.AddDays(-(days-1)), asOf)
	if err != nil {
		return nil, nil, err
	}

	series := make([]SeriesPoint, 0, len(points))
	var gaps []domain.Date
	for _, p := range points {
		if p.NoData {
			gaps = append(gaps, p.Date)
			continue
		}
		series = append(series, SeriesPoint{Date: p.Date, Value: p.Value})
	}
	return series, gaps, nil
}

// MovingAverage returns the trailing arithmetic mean over the last
// window data points for each date in the series. Dates with fewer than
// window points available (counting the date itself) are omitted; this
// is the one edge policy applied to every metric.
func (s *TrendService) MovingAverage(ctx context.Context, kind domain.MetricKind, days, window int, asOf domain.Date) ([]SeriesPoint, error) {
	if window <= 0 {
		return nil, fmt.Errorf("window must be positive, got %d", window)
	}
	series, _, err := s.Series(ctx, kind, days, asOf)
	if err != nil {
		return nil, err
	}

	var out []SeriesPoint
	for i := window - 1; i < len(series); i++ {
		sum := 0.0
		for _, p := range series[i-window+1 : i+1] {
			sum += p.Value
		}
		out = append(out, SeriesPoint{Date: series[i].Date, Value: sum / float64(window)})
	}
	return out, nil
}

// Baseline returns the trailing 30-day mean ending at asOf. The second
// return is false when the window holds no data. It is recomputed on
// every call; the arithmetic is cheap next to a provider fetch.
func (s *TrendService) Baseline(ctx context.Context, kind domain.MetricKind, asOf domain.Date) (float64, bool, error) {
	series, _, err := s.Series(ctx, kind, baselineDays, asOf)
	if err != nil {
		return 0, false, err
	}
	if len(series) == 0 {
		return 0, false, nil
	}
	sum := 0.0
	for _, p := range series {
		sum += p.Value
	}
	return sum / float64(len(series)), true, nil
}

// TrendSnapshot is the shared input the rule evaluator reads: every
// kind's series and baseline over one window.
type TrendSnapshot struct {
	AsOf      domain.Date
	Window    domain.DateRange
	Series    map[domain.MetricKind][]SeriesPoint
	Baselines map[domain.MetricKind]float64
}

// Snapshot gathers series and baselines for all metric kinds over the
// trailing days window ending at asOf.
func (s *TrendService) Snapshot(ctx context.Context, days int, asOf domain.Date) (*TrendSnapshot, error) {
	if days <= 0 {
		return nil, fmt.Errorf("days must be positive, got %d", days)
	}
	snap := &TrendSnapshot{
		AsOf:      asOf,
		Window:    domain.DateRange{From: asOf.AddDays(-(days - 1)), To: asOf},
		Series:    make(map[domain.MetricKind][]SeriesPoint),
		Baselines: make(map[domain.MetricKind]float64),
	}
	for _, kind := range domain.Kinds() {
		series, _, err := s.Series(ctx, kind, days, asOf)
		if err != nil {
			return nil, err
		}
		if len(series) == 0 {
			continue
		}
		snap.Series[kind] = series
		if baseline, ok, err := s.Baseline(ctx, kind, asOf); err != nil {
			return nil, err
		} else if ok {
			snap.Baselines[kind] = baseline
		}
	}
	return snap, nil
}

// MetricSummary is the per-kind digest handed to the advisory layer.
type MetricSummary struct {
	Kind   domain.MetricKind `json:"kind"`
	Unit   domain.Unit       `json:"unit"`
	Latest *float64          `json:"latest,omitempty"`
	Avg7   *float64          `json:"avg7,omitempty"`
	Avg30  *float64          `json:"avg30,omitempty"`
}

// Summaries returns 7-day and 30-day digests for every kind with data,
// in the fixed kind order.
func (s *TrendService) Summaries(ctx context.Context, asOf domain.Date) ([]MetricSummary, error) {
	var out []MetricSummary
	for _, kind := range domain.Kinds() {
		series, _, err := s.Series(ctx, kind, baselineDays, asOf)
		if err != nil {
			return nil, err
		}
		if len(series) == 0 {
			continue
		}
		sum := MetricSummary{Kind: kind, Unit: kind.CanonicalUnit()}
		latest := series[len(series)-1].Value
		sum.Latest = &latest
		sum.Avg30 = mean(values(series))
		cut := asOf.AddDays(-6)
		var week []float64
		for _, p := range series {
			if !p.Date.Before(cut) {
				week = append(week, p.Value)
			}
		}
		sum.Avg7 = mean(week)
		out = append(out, sum)
	}
	return out, nil
}

func values(series []SeriesPoint) []float64 {
	out := make([]float64, len(series))
	for i, p := range series {
		out[i] = p.Value
	}
	return out
}

func mean(vals []float64) *float64 {
	if len(vals) == 0 {
		return nil
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	m := sum / float64(len(vals))
	return &m
}
