package analysis

import (
	"math"
	"time"

	"example.com/analytics/internal/domain"
)

// Training-effect scaling. Zone seconds weighted 1..5 accumulate toward an
// aerobic load score of 0-5; one hour at zone-5 weight saturates the scale.
// Anaerobic effect saturates after 20 minutes of combined zone 4-5 time.
const (
	trainingEffectScale     = 5.0 * 3600 // weighted seconds for a 5.0 score
	anaerobicSaturationSecs = 1200.0
	trainingEffectCeiling   = 5.0
)

// Compute derives the full metrics row for one activity from its normalized
// samples. Every output is nil-safe: an absent input channel produces an
// absent metric, never a fabricated zero. Sequences shorter than two samples
// yield no time-series metrics at all.
func Compute(activity domain.Activity, samples []Sample, zones ZoneSet) domain.ActivityMetrics {
	m := domain.ActivityMetrics{
		ActivityID: activity.ID,
		ComputedAt: time.Now().UTC(),
	}

	// Calories per km only needs the summary row.
	if activity.TotalCalories != nil {
		if km := activity.DistanceKm(); km != nil && *km > 0 {
			m.CaloriesPerKm = round2(float64(*activity.TotalCalories) / *km)
		}
	}

	if len(samples) < 2 {
		return m
	}

	if split, ok := SplitByElapsed(samples, heartRateValue); ok {
		m.HRDriftPercent = round2(split.PercentChange)
	}
	if split, ok := SplitByElapsed(samples, paceValue); ok {
		m.FatigueIndexPercent = round2(split.PercentChange)
	}

	speeds := channel(samples, speedValue)
	if cv, ok := CoefficientOfVariation(speeds); ok {
		m.ConsistencyScore = round2(clamp(100-cv*100, 0, 100))
	}
	if sd, ok := StdDev(speeds); ok {
		m.SpeedVariability = round2(sd)
	}

	hrs := channel(samples, heartRateValue)
	if sd, ok := StdDev(hrs); ok {
		m.HRStdDev = round2(sd)
	}

	cadences := channel(samples, cadenceValue)
	if sd, ok := StdDev(cadences); ok {
		m.CadenceStdDev = round2(sd)
	}
	if cv, ok := CoefficientOfVariation(cadences); ok {
		m.CadenceConsistency = round2(clamp(100-cv*100, 0, 100))
	}

	m.AerobicEfficiency = aerobicEfficiency(samples)

	if zt, ok := TimeInZones(samples, zones); ok {
		m.Zone1Seconds = round2(zt.Seconds[0])
		m.Zone2Seconds = round2(zt.Seconds[1])
		m.Zone3Seconds = round2(zt.Seconds[2])
		m.Zone4Seconds = round2(zt.Seconds[3])
		m.Zone5Seconds = round2(zt.Seconds[4])
		m.Zone1Percent = round2(zt.Percent(0))
		m.Zone2Percent = round2(zt.Percent(1))
		m.Zone3Percent = round2(zt.Percent(2))
		m.Zone4Percent = round2(zt.Percent(3))
		m.Zone5Percent = round2(zt.Percent(4))
		m.TrainingEffect = trainingEffect(zt)
		m.AnaerobicTrainingEffect = anaerobicTrainingEffect(zt)
	}

	if mean, ok := Mean(channel(samples, verticalOscillationValue)); ok {
		m.AvgVerticalOscillation = round2(mean)
	}
	if mean, ok := Mean(channel(samples, stanceTimeValue)); ok {
		m.AvgStanceTime = round2(mean)
	}
	if mean, ok := Mean(channel(samples, stepLengthValue)); ok {
		m.AvgStepLength = round2(mean)
	}
	if mean, ok := Mean(cadences); ok && activity.DurationSeconds > 0 {
		// Cadence is strides/min; both legs step once per stride.
		steps := math.Round(2 * mean * activity.DurationSeconds / 60)
		m.TotalSteps = &steps
	}

	return m
}

// aerobicEfficiency is mean speed (km/h) over mean heart rate, restricted to
// samples carrying both channels.
func aerobicEfficiency(samples []Sample) *float64 {
	var speeds, hrs []float64
	for _, s := range samples {
		if s.Speed == nil || s.HeartRate == nil {
			continue
		}
		speeds = append(speeds, *s.Speed)
		hrs = append(hrs, float64(*s.HeartRate))
	}
	meanSpeed, ok := Mean(speeds)
	if !ok {
		return nil
	}
	meanHR, _ := Mean(hrs)
	if meanHR == 0 {
		return nil
	}
	return round2(meanSpeed * 3.6 / meanHR)
}

func trainingEffect(zt ZoneTimes) *float64 {
	var weighted float64
	for i, secs := range zt.Seconds {
		weighted += float64(i+1) * secs
	}
	return round2(clamp(weighted/trainingEffectScale*trainingEffectCeiling, 0, trainingEffectCeiling))
}

func anaerobicTrainingEffect(zt ZoneTimes) *float64 {
	hard := zt.Seconds[3] + zt.Seconds[4]
	return round2(clamp(hard/anaerobicSaturationSecs*trainingEffectCeiling, 0, trainingEffectCeiling))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round2(v float64) *float64 {
	r := math.Round(v*100) / 100
	return &r
}
