package domain

import "fmt"

const (
	gramsPerKg = 1000.0
	gramsPerLb = 453.592
	secsPerHr  = 3600.0
)

// ConvertMass converts a mass value between "g", "kg" and "lb".
// Returns v unchanged if from == to or if the units are unrecognised.
func ConvertMass(v float64, from, to Unit) float64 {
	if from == to {
		return v
	}
	grams := v
	switch from {
	case UnitKilogram:
		grams = v * gramsPerKg
	case UnitPounds:
		grams = v * gramsPerLb
	case UnitGrams:
	default:
		return v
	}
	switch to {
	case UnitGrams:
		return grams
	case UnitKilogram:
		return grams / gramsPerKg
	case UnitPounds:
		return grams / gramsPerLb
	}
	return v
}

// Normalize converts a value in the given unit to the kind's canonical
// storage unit. Unconvertible unit pairs are rejected so a bad provider
// payload never lands in the store with the wrong magnitude.
func Normalize(kind MetricKind, v float64, unit Unit) (float64, error) {
	canonical := kind.CanonicalUnit()
	if unit == canonical {
		return v, nil
	}
	switch canonical {
	case UnitGrams:
		if unit == UnitKilogram || unit == UnitPounds {
			return ConvertMass(v, unit, UnitGrams), nil
		}
	case UnitSeconds:
		if unit == UnitHours {
			return v * secsPerHr, nil
		}
	}
	return 0, fmt.Errorf("cannot convert %s %q to canonical %q", kind, unit, canonical)
}
