package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bearyjd/vitalforge/internal/domain"
)

func TestConvertMass(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		from, to domain.Unit
		want     float64
	}{
		{"kg to g", 80.0, domain.UnitKilogram, domain.UnitGrams, 80000.0},
		{"lb to g", 1.0, domain.UnitPounds, domain.UnitGrams, 453.592},
		{"g to kg", 80000.0, domain.UnitGrams, domain.UnitKilogram, 80.0},
		{"g to lb", 453.592, domain.UnitGrams, domain.UnitPounds, 1.0},
		{"kg to lb", 100.0, domain.UnitKilogram, domain.UnitPounds, 220.462},
		{"same unit", 80.0, domain.UnitKilogram, domain.UnitKilogram, 80.0},
		{"unknown unit", 50.0, domain.UnitScore, domain.UnitGrams, 50.0},
		{"zero value", 0, domain.UnitKilogram, domain.UnitGrams, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := domain.ConvertMass(tc.value, tc.from, tc.to)
			assert.InDelta(t, tc.want, got, 0.01)
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		kind    domain.MetricKind
		value   float64
		unit    domain.Unit
		want    float64
		wantErr bool
	}{
		{"weight kg to grams", domain.KindWeight, 82.5, domain.UnitKilogram, 82500, false},
		{"weight lb to grams", domain.KindWeight, 180, domain.UnitPounds, 81646.56, false},
		{"weight already grams", domain.KindWeight, 82500, domain.UnitGrams, 82500, false},
		{"sleep hours to seconds", domain.KindSleepDuration, 7.5, domain.UnitHours, 27000, false},
		{"sleep already seconds", domain.KindSleepDuration, 27000, domain.UnitSeconds, 27000, false},
		{"hrv already canonical", domain.KindHRV, 45, domain.UnitMillisec, 45, false},
		{"weight from bpm rejected", domain.KindWeight, 60, domain.UnitBPM, 0, true},
		{"steps from hours rejected", domain.KindSteps, 2, domain.UnitHours, 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := domain.Normalize(tc.kind, tc.value, tc.unit)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 0.01)
		})
	}
}
