// Package records defines the personal-record catalog: which record types
// are tracked, which direction counts as better, and how a candidate value
// is extracted from a processed activity.
package records

import "example.com/analytics/internal/domain"

// Direction states whether a lower or higher candidate beats the stored
// record.
type Direction int

const (
	HigherIsBetter Direction = iota
	LowerIsBetter
)

// Distance buckets in meters for pace records.
const (
	distance5K           = 5000.0
	distance10K          = 10000.0
	distanceHalfMarathon = 21097.5
)

// minPaceDistanceMeters guards the fastest-pace record against GPS noise on
// very short activities.
const minPaceDistanceMeters = 1000.0

// Definition is one tracked record type.
type Definition struct {
	Type      string
	Unit      string
	Direction Direction
	// Candidate extracts the value this activity proposes. ok is false when
	// the activity cannot compete for this record type.
	Candidate func(domain.Activity) (value float64, ok bool)
}

// Catalog is the fixed set of tracked record types.
var Catalog = []Definition{
	{
		Type:      "longest_distance",
		Unit:      "m",
		Direction: HigherIsBetter,
		Candidate: func(a domain.Activity) (float64, bool) {
			if a.DistanceMeters == nil || *a.DistanceMeters <= 0 {
				return 0, false
			}
			return *a.DistanceMeters, true
		},
	},
	{
		Type:      "longest_duration",
		Unit:      "s",
		Direction: HigherIsBetter,
		Candidate: func(a domain.Activity) (float64, bool) {
			if a.DurationSeconds <= 0 {
				return 0, false
			}
			return a.DurationSeconds, true
		},
	},
	{
		Type:      "fastest_pace",
		Unit:      "s/km",
		Direction: LowerIsBetter,
		Candidate: func(a domain.Activity) (float64, bool) {
			if a.DistanceMeters == nil || *a.DistanceMeters < minPaceDistanceMeters || a.DurationSeconds <= 0 {
				return 0, false
			}
			return a.DurationSeconds / (*a.DistanceMeters / 1000), true
		},
	},
	{
		Type:      "fastest_5k",
		Unit:      "s",
		Direction: LowerIsBetter,
		Candidate: bucketTime(distance5K),
	},
	{
		Type:      "fastest_10k",
		Unit:      "s",
		Direction: LowerIsBetter,
		Candidate: bucketTime(distance10K),
	},
	{
		Type:      "fastest_half_marathon",
		Unit:      "s",
		Direction: LowerIsBetter,
		Candidate: bucketTime(distanceHalfMarathon),
	},
	{
		Type:      "highest_avg_power",
		Unit:      "W",
		Direction: HigherIsBetter,
		Candidate: func(a domain.Activity) (float64, bool) {
			if !a.HasPower || a.AvgPower == nil || *a.AvgPower <= 0 {
				return 0, false
			}
			return *a.AvgPower, true
		},
	},
	{
		Type:      "most_calories",
		Unit:      "kcal",
		Direction: HigherIsBetter,
		Candidate: func(a domain.Activity) (float64, bool) {
			if a.TotalCalories == nil || *a.TotalCalories <= 0 {
				return 0, false
			}
			return float64(*a.TotalCalories), true
		},
	},
}

// bucketTime estimates the time for a distance bucket from the activity's
// average pace. Activities shorter than the bucket cannot compete.
func bucketTime(bucketMeters float64) func(domain.Activity) (float64, bool) {
	return func(a domain.Activity) (float64, bool) {
		if a.DistanceMeters == nil || *a.DistanceMeters < bucketMeters || a.DurationSeconds <= 0 {
			return 0, false
		}
		return a.DurationSeconds * bucketMeters / *a.DistanceMeters, true
	}
}

// Candidates returns the record rows this activity proposes, one per
// catalog entry the activity qualifies for.
func Candidates(a domain.Activity) []domain.UserRecord {
	var out []domain.UserRecord
	for _, def := range Catalog {
		value, ok := def.Candidate(a)
		if !ok {
			continue
		}
		activityID := a.ID
		out = append(out, domain.UserRecord{
			UserID:     a.UserID,
			RecordType: def.Type,
			Sport:      a.Sport,
			Value:      value,
			Unit:       def.Unit,
			ActivityID: &activityID,
			AchievedAt: a.StartTime,
		})
	}
	return out
}

// DirectionOf reports the configured direction for a record type. Unknown
// types default to HigherIsBetter.
func DirectionOf(recordType string) Direction {
	for _, def := range Catalog {
		if def.Type == recordType {
			return def.Direction
		}
	}
	return HigherIsBetter
}
