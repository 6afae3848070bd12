// Package domain defines the analytics entities and the processing pipeline.
package domain

import "time"

// User holds the per-user settings the pipeline needs: the timezone used to
// bucket daily rollups and an optional measured max heart rate for zoning.
type User struct {
	ID             string
	ExternalUserID string
	Timezone       string
	MaxHeartRate   *int
	CreatedAt      time.Time
}

// Activity is one completed exercise session with its summary bounds, as
// delivered by the activity ingester. Optional summary fields are pointers;
// nil means the channel was never measured, not zero.
type Activity struct {
	ID                 string
	UserID             string
	ExternalActivityID string
	Name               *string
	Sport              string
	SubSport           *string
	StartTime          time.Time
	EndTime            *time.Time
	DurationSeconds    float64
	DistanceMeters     *float64
	AvgSpeed           *float64 // m/s
	MaxSpeed           *float64 // m/s
	AvgHeartRate       *int
	MaxHeartRate       *int
	MinHeartRate       *int
	TotalCalories      *int
	TotalAscent        *float64
	TotalDescent       *float64
	AvgCadence         *float64
	MaxCadence         *float64
	AvgPower           *float64
	MaxPower           *float64
	StartLat           *float64
	StartLon           *float64
	EndLat             *float64
	EndLon             *float64
	DeviceName         *string
	HasGPS             bool
	HasHeartRate       bool
	HasPower           bool
	HasCadence         bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// DistanceKm returns the activity distance in kilometers, or nil when no
// distance was recorded.
func (a Activity) DistanceKm() *float64 {
	if a.DistanceMeters == nil {
		return nil
	}
	km := *a.DistanceMeters / 1000
	return &km
}

// ActivityRecord is one timestamped sample within an activity. RecordIndex
// is unique within the activity and increases with elapsed time, but is not
// necessarily contiguous.
type ActivityRecord struct {
	ActivityID          string
	RecordIndex         int
	ElapsedSeconds      float64
	Latitude            *float64
	Longitude           *float64
	Altitude            *float64
	HeartRate           *int
	Cadence             *float64 // strides/min
	Power               *float64 // watts
	Speed               *float64 // m/s
	VerticalOscillation *float64 // mm
	StanceTime          *float64 // ms
	StepLength          *float64 // mm
	Temperature         *float64
}

// ActivityLap is a manually or automatically marked segment with its own
// summary bounds, ordered by LapNumber within the activity.
type ActivityLap struct {
	ActivityID      string
	LapNumber       int
	StartTime       *time.Time
	DurationSeconds *float64
	DistanceMeters  *float64
	AvgHeartRate    *int
	AvgSpeed        *float64
	AvgCadence      *float64
	TotalAscent     *float64
	TotalCalories   *int
}

// ActivityMetrics is the single derived-metrics row per activity. Every
// field is nullable: a nil metric means its input channel was absent or too
// short, never that the value was zero.
type ActivityMetrics struct {
	ActivityID              string
	HRDriftPercent          *float64
	ConsistencyScore        *float64
	FatigueIndexPercent     *float64
	AerobicEfficiency       *float64 // km/h per bpm
	CaloriesPerKm           *float64
	Zone1Seconds            *float64
	Zone2Seconds            *float64
	Zone3Seconds            *float64
	Zone4Seconds            *float64
	Zone5Seconds            *float64
	Zone1Percent            *float64
	Zone2Percent            *float64
	Zone3Percent            *float64
	Zone4Percent            *float64
	Zone5Percent            *float64
	HRStdDev                *float64
	SpeedVariability        *float64
	CadenceStdDev           *float64
	CadenceConsistency      *float64
	AvgVerticalOscillation  *float64
	AvgStanceTime           *float64
	AvgStepLength           *float64
	TotalSteps              *float64
	TrainingEffect          *float64
	AnaerobicTrainingEffect *float64
	ComputedAt              time.Time
}

// InsightType categorises a generated insight.
type InsightType string

const (
	InsightWarning     InsightType = "warning"
	InsightPositive    InsightType = "positive"
	InsightTip         InsightType = "tip"
	InsightAchievement InsightType = "achievement"
	InsightInfo        InsightType = "info"
)

// ActivityInsight is one generated textual insight for an activity.
// Reprocessing an activity replaces its full insight set.
type ActivityInsight struct {
	ID         string
	ActivityID string
	Type       InsightType
	Category   string
	Message    string
	Payload    map[string]interface{}
	CreatedAt  time.Time
}

// UserRecord is the best known value for a (user, record type, sport)
// triple, together with the activity that achieved it. ActivityID goes nil
// if that activity is later deleted.
type UserRecord struct {
	UserID     string
	RecordType string
	Sport      string
	Value      float64
	Unit       string
	ActivityID *string
	AchievedAt time.Time
}

// UserStatsDaily aggregates one user's activities on one calendar date in
// the user's timezone. AvgPaceSecondsPerKm is the mean of the per-activity
// paces, not the pace of the mean speed.
type UserStatsDaily struct {
	UserID               string
	Date                 time.Time // midnight, date component only
	TotalActivities      int
	TotalDistanceMeters  float64
	TotalDurationSeconds float64
	TotalCalories        int
	AvgHeartRate         *float64
	AvgPaceSecondsPerKm  *float64
	UpdatedAt            time.Time
}

// Cursor models the keyset pagination token for activity listings.
type Cursor struct {
	StartedAt time.Time
	ID        string
}
