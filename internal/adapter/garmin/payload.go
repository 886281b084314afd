package garmin

import (
	"encoding/json"
	"fmt"

	"github.com/bearyjd/vitalforge/internal/domain"
)

// endpoint maps one metric kind to its Garmin resource and the
// extraction of the single daily value out of the response payload.
type endpoint struct {
	path    func(domain.Date) string
	extract func([]byte) (*domain.Sample, error)
}

var endpoints = map[domain.MetricKind]endpoint{
	domain.KindSleepDuration: {
		path:    func(d domain.Date) string { return "/wellness-service/wellness/dailySleepData?date=" + string(d) },
		extract: extractSleepDuration,
	},
	domain.KindSleepScore: {
		path:    func(d domain.Date) string { return "/wellness-service/wellness/dailySleepData?date=" + string(d) },
		extract: extractSleepScore,
	},
	domain.KindRestingHR: {
		path:    summaryPath,
		extract: summaryExtract(func(s *userSummary) *float64 { return s.RestingHeartRate }, domain.UnitBPM),
	},
	domain.KindSteps: {
		path:    summaryPath,
		extract: summaryExtract(func(s *userSummary) *float64 { return s.TotalSteps }, domain.UnitCount),
	},
	domain.KindActiveCalories: {
		path:    summaryPath,
		extract: summaryExtract(func(s *userSummary) *float64 { return s.ActiveKilocalories }, domain.UnitKcal),
	},
	domain.KindHRV: {
		path:    func(d domain.Date) string { return "/hrv-service/hrv/" + string(d) },
		extract: extractHRV,
	},
	domain.KindBodyBattery: {
		path: func(d domain.Date) string {
			return "/wellness-service/wellness/bodyBattery/reports/daily?startDate=" + string(d) + "&endDate=" + string(d)
		},
		extract: extractBodyBattery,
	},
	domain.KindStress: {
		path:    func(d domain.Date) string { return "/wellness-service/wellness/dailyStress/" + string(d) },
		extract: extractStress,
	},
	domain.KindVO2Max: {
		path:    trainingPath,
		extract: extractVO2Max,
	},
	domain.KindTrainingLoad: {
		path:    trainingPath,
		extract: extractTrainingLoad,
	},
	domain.KindWeight: {
		path:    weightPath,
		extract: extractWeight,
	},
	domain.KindBodyFat: {
		path:    weightPath,
		extract: extractBodyFat,
	},
}

func summaryPath(d domain.Date) string {
	return "/usersummary-service/usersummary/daily?calendarDate=" + string(d)
}

func trainingPath(d domain.Date) string {
	return "/metrics-service/metrics/trainingstatus/aggregated/" + string(d)
}

func weightPath(d domain.Date) string {
	return "/weight-service/weight/dayview/" + string(d)
}

func sample(v float64, unit domain.Unit) *domain.Sample {
	return &domain.Sample{Value: v, Unit: unit}
}

// --- sleep ---

type sleepEnvelope struct {
	DailySleepDTO struct {
		SleepTimeSeconds *float64 `json:"sleepTimeSeconds"`
		SleepScores      struct {
			Overall struct {
				Value *float64 `json:"value"`
			} `json:"overall"`
		} `json:"sleepScores"`
	} `json:"dailySleepDTO"`
}

func extractSleepDuration(body []byte) (*domain.Sample, error) {
	var env sleepEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("sleep payload: %w", err)
	}
	secs := env.DailySleepDTO.SleepTimeSeconds
	if secs == nil || *secs <= 0 {
		return nil, nil
	}
	return sample(*secs, domain.UnitSeconds), nil
}

func extractSleepScore(body []byte) (*domain.Sample, error) {
	var env sleepEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("sleep payload: %w", err)
	}
	score := env.DailySleepDTO.SleepScores.Overall.Value
	if score == nil {
		return nil, nil
	}
	return sample(*score, domain.UnitScore), nil
}

// --- daily user summary ---

type userSummary struct {
	RestingHeartRate   *float64 `json:"restingHeartRate"`
	TotalSteps         *float64 `json:"totalSteps"`
	ActiveKilocalories *float64 `json:"activeKilocalories"`
}

func summaryExtract(pick func(*userSummary) *float64, unit domain.Unit) func([]byte) (*domain.Sample, error) {
	return func(body []byte) (*domain.Sample, error) {
		var s userSummary
		if err := json.Unmarshal(body, &s); err != nil {
			return nil, fmt.Errorf("user summary payload: %w", err)
		}
		v := pick(&s)
		if v == nil {
			return nil, nil
		}
		return sample(*v, unit), nil
	}
}

// --- hrv ---

type hrvEnvelope struct {
	HrvSummary struct {
		LastNightAvg *float64 `json:"lastNightAvg"`
	} `json:"hrvSummary"`
}

func extractHRV(body []byte) (*domain.Sample, error) {
	var env hrvEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("hrv payload: %w", err)
	}
	if env.HrvSummary.LastNightAvg == nil || *env.HrvSummary.LastNightAvg <= 0 {
		return nil, nil
	}
	return sample(*env.HrvSummary.LastNightAvg, domain.UnitMillisec), nil
}

// --- body battery ---

// The report is a list with one entry per day; each entry carries
// [timestamp, level] pairs. The daily value is the highest level
// reached.
type bodyBatteryEntry struct {
	BodyBatteryValuesArray [][]json.Number `json:"bodyBatteryValuesArray"`
}

func extractBodyBattery(body []byte) (*domain.Sample, error) {
	var entries []bodyBatteryEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("body battery payload: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	var highest *float64
	for _, pair := range entries[0].BodyBatteryValuesArray {
		if len(pair) < 2 {
			continue
		}
		level, err := pair[1].Float64()
		if err != nil {
			continue
		}
		if highest == nil || level > *highest {
			v := level
			highest = &v
		}
	}
	if highest == nil {
		return nil, nil
	}
	return sample(*highest, domain.UnitScore), nil
}

// --- stress ---

type stressEnvelope struct {
	AvgStressLevel *float64 `json:"avgStressLevel"`
}

func extractStress(body []byte) (*domain.Sample, error) {
	var env stressEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("stress payload: %w", err)
	}
	// Garmin reports -1 for days the device collected nothing.
	if env.AvgStressLevel == nil || *env.AvgStressLevel < 0 {
		return nil, nil
	}
	return sample(*env.AvgStressLevel, domain.UnitScore), nil
}

// --- training status: vo2max and training load ---

type trainingEnvelope struct {
	MostRecentVO2Max struct {
		Generic struct {
			Vo2MaxValue *float64 `json:"vo2MaxValue"`
		} `json:"generic"`
	} `json:"mostRecentVO2Max"`
	MostRecentTrainingLoadBalance struct {
		MetricsTrainingLoadBalanceDTOMap map[string]struct {
			MonthlyLoadAerobicLow  *float64 `json:"monthlyLoadAerobicLow"`
			MonthlyLoadAerobicHigh *float64 `json:"monthlyLoadAerobicHigh"`
			MonthlyLoadAnaerobic   *float64 `json:"monthlyLoadAnaerobic"`
		} `json:"metricsTrainingLoadBalanceDTOMap"`
	} `json:"mostRecentTrainingLoadBalance"`
}

func extractVO2Max(body []byte) (*domain.Sample, error) {
	var env trainingEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("training payload: %w", err)
	}
	v := env.MostRecentVO2Max.Generic.Vo2MaxValue
	if v == nil || *v <= 0 {
		return nil, nil
	}
	return sample(*v, domain.UnitMLKgMin), nil
}

func extractTrainingLoad(body []byte) (*domain.Sample, error) {
	var env trainingEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("training payload: %w", err)
	}
	// Sum the monthly load components of the primary device entry.
	for _, dev := range env.MostRecentTrainingLoadBalance.MetricsTrainingLoadBalanceDTOMap {
		var total float64
		for _, part := range []*float64{dev.MonthlyLoadAerobicLow, dev.MonthlyLoadAerobicHigh, dev.MonthlyLoadAnaerobic} {
			if part != nil {
				total += *part
			}
		}
		if total > 0 {
			return sample(total, domain.UnitLoad), nil
		}
	}
	return nil, nil
}

// --- weight and body fat ---

type weightEnvelope struct {
	DateWeightList []struct {
		Weight  *float64 `json:"weight"` // grams
		BodyFat *float64 `json:"bodyFat"`
	} `json:"dateWeightList"`
}

func extractWeight(body []byte) (*domain.Sample, error) {
	var env weightEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("weight payload: %w", err)
	}
	if len(env.DateWeightList) == 0 || env.DateWeightList[0].Weight == nil {
		return nil, nil
	}
	return sample(*env.DateWeightList[0].Weight, domain.UnitGrams), nil
}

func extractBodyFat(body []byte) (*domain.Sample, error) {
	var env weightEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("weight payload: %w", err)
	}
	if len(env.DateWeightList) == 0 || env.DateWeightList[0].BodyFat == nil {
		return nil, nil
	}
	return sample(*env.DateWeightList[0].BodyFat, domain.UnitPercent), nil
}
