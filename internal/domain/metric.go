// Package domain contains the core business entities and interfaces.
package domain

import (
	"context"
	"errors"
	"fmt"
)

// MetricKind identifies one tracked physiological series.
type MetricKind string

const (
	KindSleepDuration  MetricKind = "sleep_duration"
	KindSleepScore     MetricKind = "sleep_score"
	KindRestingHR      MetricKind = "resting_hr"
	KindHRV            MetricKind = "hrv"
	KindBodyBattery    MetricKind = "body_battery"
	KindStress         MetricKind = "stress"
	KindVO2Max         MetricKind = "vo2max"
	KindWeight         MetricKind = "weight"
	KindBodyFat        MetricKind = "body_fat"
	KindTrainingLoad   MetricKind = "training_load"
	KindSteps          MetricKind = "steps"
	KindActiveCalories MetricKind = "active_calories"
)

// Unit is a measurement unit. Each metric kind has exactly one canonical
// storage unit; values arriving in other units are converted on write.
type Unit string

const (
	UnitSeconds  Unit = "s"
	UnitHours    Unit = "h"
	UnitScore    Unit = "score"
	UnitBPM      Unit = "bpm"
	UnitMillisec Unit = "ms"
	UnitGrams    Unit = "g"
	UnitKilogram Unit = "kg"
	UnitPounds   Unit = "lb"
	UnitPercent  Unit = "%"
	UnitMLKgMin  Unit = "ml/kg/min"
	UnitLoad     Unit = "load"
	UnitCount    Unit = "count"
	UnitKcal     Unit = "kcal"
)

// Source records where a metric point came from.
type Source string

const (
	SourceProvider Source = "provider"
	SourceLocal    Source = "local"
)

// ErrUnknownMetric is returned for a metric kind outside the closed set.
var ErrUnknownMetric = errors.New("unknown metric kind")

type metricInfo struct {
	unit     Unit
	category Category
}

// kindTable is the closed enumeration of supported metrics. Adding a
// metric means adding a row here plus its provider mapping.
var kindTable = map[MetricKind]metricInfo{
	KindSleepDuration:  {UnitSeconds, CategorySleep},
	KindSleepScore:     {UnitScore, CategorySleep},
	KindRestingHR:      {UnitBPM, CategoryRecovery},
	KindHRV:            {UnitMillisec, CategoryRecovery},
	KindBodyBattery:    {UnitScore, CategoryRecovery},
	KindStress:         {UnitScore, CategoryStress},
	KindVO2Max:         {UnitMLKgMin, CategoryActivity},
	KindWeight:         {UnitGrams, CategoryBodyComposition},
	KindBodyFat:        {UnitPercent, CategoryBodyComposition},
	KindTrainingLoad:   {UnitLoad, CategoryActivity},
	KindSteps:          {UnitCount, CategoryActivity},
	KindActiveCalories: {UnitKcal, CategoryActivity},
}

// kindOrder fixes enumeration order for sync runs and status output.
var kindOrder = []MetricKind{
	KindSleepDuration, KindSleepScore, KindRestingHR, KindHRV,
	KindBodyBattery, KindStress, KindVO2Max, KindWeight, KindBodyFat,
	KindTrainingLoad, KindSteps, KindActiveCalories,
}

// Kinds returns all supported metric kinds in a fixed order.
func Kinds() []MetricKind {
	out := make([]MetricKind, len(kindOrder))
	copy(out, kindOrder)
	return out
}

// Valid reports whether k is a supported metric kind.
func (k MetricKind) Valid() bool {
	_, ok := kindTable[k]
	return ok
}

// CanonicalUnit returns the storage unit for the kind.
func (k MetricKind) CanonicalUnit() Unit {
	return kindTable[k].unit
}

// Category returns the finding category the kind belongs to.
func (k MetricKind) Category() Category {
	return kindTable[k].category
}

// ParseMetricKind validates a metric kind name.
func ParseMetricKind(s string) (MetricKind, error) {
	k := MetricKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownMetric, s)
	}
	return k, nil
}

// MetricPoint is one daily value for a metric. A point with NoData set
// records that the provider was asked and had nothing for the date, so
// the date is not fetched again.
type MetricPoint struct {
	Kind   MetricKind `json:"kind"`
	Date   Date       `json:"date"`
	Value  float64    `json:"value"`
	Unit   Unit       `json:"unit"`
	Source Source     `json:"source"`
	NoData bool       `json:"noData,omitempty"`
}

// Store errors.
var (
	// ErrNotDeletable rejects deletion of anything but a local weight point.
	ErrNotDeletable = errors.New("point is not deletable")
)

// MetricRepository is the port for metric point persistence.
//
// Upsert never lets a provider point replace a local point: the two
// sources live side by side and Query prefers local. Writing the same
// (kind, date, source) again replaces the value, which is what a forced
// re-sync of corrected provider data needs.
type MetricRepository interface {
	Upsert(ctx context.Context, p MetricPoint) error
	// Query returns points in [from, to] ascending by date, at most one
	// per date, local source preferred where both exist.
	Query(ctx context.Context, kind MetricKind, from, to Date) ([]MetricPoint, error)
	// MissingRanges returns the contiguous sub-ranges of [from, to] with
	// no point of any source for the kind. No-data sentinels count as
	// covered.
	MissingRanges(ctx context.Context, kind MetricKind, from, to Date) ([]DateRange, error)
	// Delete removes a point. Only local weight points may be deleted.
	Delete(ctx context.Context, kind MetricKind, date Date, source Source) error
}
