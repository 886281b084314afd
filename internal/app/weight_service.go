package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/bearyjd/vitalforge/internal/domain"
)

// WeightService handles user-entered weight measurements, the one
// metric with a local source next to the provider's.
type WeightService struct {
	store    domain.MetricRepository
	provider domain.ProviderGateway // nil disables push-back
	log      zerolog.Logger
	now      func() time.Time
}

// NewWeightService creates a WeightService. provider may be nil when no
// push-back to the provider is configured.
func NewWeightService(store domain.MetricRepository, provider domain.ProviderGateway, log zerolog.Logger) *WeightService {
	return &WeightService{
		store:    store,
		provider: provider,
		log:      log.With().Str("component", "weight").Logger(),
		now:      time.Now,
	}
}

// Record validates and stores a weight measurement for today as a
// local-source point, and pushes it to the provider best-effort. The
// provider's own reading for the day, if any, is kept alongside.
func (s *WeightService) Record(ctx context.Context, value float64, unit domain.Unit) (domain.MetricPoint, error) {
	if value <= 0 {
		return domain.MetricPoint{}, errors.New("value must be > 0")
	}
	if unit != domain.UnitKilogram && unit != domain.UnitPounds && unit != domain.UnitGrams {
		return domain.MetricPoint{}, errors.New("unit must be \"kg\", \"lb\" or \"g\"")
	}

	grams, err := domain.Normalize(domain.KindWeight, value, unit)
	if err != nil {
		return domain.MetricPoint{}, err
	}

	now := s.now()
	point := domain.MetricPoint{
		Kind:   domain.KindWeight,
		Date:   domain.DateOf(now),
		Value:  grams,
		Unit:   domain.UnitGrams,
		Source: domain.SourceLocal,
	}
	if err := s.store.Upsert(ctx, point); err != nil {
		return domain.MetricPoint{}, err
	}

	if s.provider != nil {
		if err := s.provider.PushWeight(ctx, grams, now); err != nil {
			// The local record stands; provider push is opportunistic.
			s.log.Warn().Err(err).Msg("weight push to provider failed")
		}
	}
	return point, nil
}

// Delete removes the local weight entry for a date. Provider points and
// sync cursors are untouched.
func (s *WeightService) Delete(ctx context.Context, date domain.Date) error {
	return s.store.Delete(ctx, domain.KindWeight, date, domain.SourceLocal)
}
