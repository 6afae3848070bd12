// Package analysis holds the pure computation over activity telemetry:
// sample normalization, statistical primitives, heart-rate zoning, and the
// derived-metrics calculator.
package analysis

import (
	"sort"

	"example.com/analytics/internal/domain"
)

// maxSampleGapSeconds caps the elapsed delta attributed to a single sample.
// Deltas above it (recording pauses, watch auto-stop) count as zero so a gap
// cannot dominate zone or split accounting.
const maxSampleGapSeconds = 600

// Sample is one normalized telemetry sample. Delta is the elapsed time since
// the previous sample (zero for the first). Channel values stay nil when the
// device never measured them.
type Sample struct {
	Index               int
	Elapsed             float64
	Delta               float64
	HeartRate           *int
	Speed               *float64
	Cadence             *float64
	Power               *float64
	Altitude            *float64
	VerticalOscillation *float64
	StanceTime          *float64
	StepLength          *float64
}

// Normalize orders raw records by record index and computes per-sample
// elapsed-time deltas. Missing channel values are preserved as nil so that
// downstream statistics skip them instead of treating them as zero.
func Normalize(records []domain.ActivityRecord) []Sample {
	if len(records) == 0 {
		return nil
	}

	sorted := make([]domain.ActivityRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].RecordIndex < sorted[j].RecordIndex
	})

	samples := make([]Sample, 0, len(sorted))
	for i, rec := range sorted {
		s := Sample{
			Index:               rec.RecordIndex,
			Elapsed:             rec.ElapsedSeconds,
			HeartRate:           rec.HeartRate,
			Speed:               rec.Speed,
			Cadence:             rec.Cadence,
			Power:               rec.Power,
			Altitude:            rec.Altitude,
			VerticalOscillation: rec.VerticalOscillation,
			StanceTime:          rec.StanceTime,
			StepLength:          rec.StepLength,
		}
		if i > 0 {
			delta := rec.ElapsedSeconds - sorted[i-1].ElapsedSeconds
			if delta < 0 || delta > maxSampleGapSeconds {
				delta = 0
			}
			s.Delta = delta
		}
		samples = append(samples, s)
	}
	return samples
}
