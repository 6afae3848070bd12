// Package insight maps computed activity metrics to categorized textual
// insights through a declarative rule table. Rules evaluate independently;
// a rule referencing an absent metric simply does not fire.
package insight

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"example.com/analytics/internal/domain"
)

// Fixed rule thresholds. Tuning happens here, not in the rule bodies.
const (
	HRDriftWarningPercent    = 10.0
	ConsistencyPositiveScore = 80.0
	ConsistencyTipScore      = 50.0
	FatigueWarningPercent    = 10.0
	NegativeSplitPercent     = -5.0
	EnduranceZonePercent     = 60.0
	IntensityZonePercent     = 30.0
	LongSessionDistanceKm    = 10.0
)

// Context carries everything a rule may inspect.
type Context struct {
	Activity   domain.Activity
	Metrics    domain.ActivityMetrics
	NewRecords []domain.UserRecord
}

// Rule is one condition-to-insight mapping. When returns false the rule
// produces nothing; Build runs only on a match.
type Rule struct {
	Code     string
	Type     domain.InsightType
	Category string
	When     func(Context) bool
	Build    func(Context) (message string, payload map[string]interface{})
}

// Rules is the full declarative table evaluated per activity.
var Rules = []Rule{
	{
		Code:     "hr_drift_high",
		Type:     domain.InsightWarning,
		Category: "cardiovascular",
		When: func(c Context) bool {
			return c.Metrics.HRDriftPercent != nil && *c.Metrics.HRDriftPercent > HRDriftWarningPercent
		},
		Build: func(c Context) (string, map[string]interface{}) {
			return fmt.Sprintf("Heart rate drifted %.1f%% upward over the session. Consider easing the pace or checking hydration.", *c.Metrics.HRDriftPercent), nil
		},
	},
	{
		Code:     "pacing_steady",
		Type:     domain.InsightPositive,
		Category: "pacing",
		When: func(c Context) bool {
			return c.Metrics.ConsistencyScore != nil && *c.Metrics.ConsistencyScore >= ConsistencyPositiveScore
		},
		Build: func(c Context) (string, map[string]interface{}) {
			return fmt.Sprintf("Very steady pacing: consistency score %.0f/100.", *c.Metrics.ConsistencyScore), nil
		},
	},
	{
		Code:     "pacing_uneven",
		Type:     domain.InsightTip,
		Category: "pacing",
		When: func(c Context) bool {
			return c.Metrics.ConsistencyScore != nil && *c.Metrics.ConsistencyScore < ConsistencyTipScore
		},
		Build: func(c Context) (string, map[string]interface{}) {
			return fmt.Sprintf("Pace varied a lot (consistency %.0f/100). Even splits usually cost less energy.", *c.Metrics.ConsistencyScore), nil
		},
	},
	{
		Code:     "fatigue_slowdown",
		Type:     domain.InsightWarning,
		Category: "fatigue",
		When: func(c Context) bool {
			return c.Metrics.FatigueIndexPercent != nil && *c.Metrics.FatigueIndexPercent > FatigueWarningPercent
		},
		Build: func(c Context) (string, map[string]interface{}) {
			return fmt.Sprintf("Second half was %.1f%% slower than the first. Fatigue set in early.", *c.Metrics.FatigueIndexPercent), nil
		},
	},
	{
		Code:     "negative_split",
		Type:     domain.InsightPositive,
		Category: "pacing",
		When: func(c Context) bool {
			return c.Metrics.FatigueIndexPercent != nil && *c.Metrics.FatigueIndexPercent < NegativeSplitPercent
		},
		Build: func(c Context) (string, map[string]interface{}) {
			return fmt.Sprintf("Negative split: the second half was %.1f%% faster. Well paced.", -*c.Metrics.FatigueIndexPercent), nil
		},
	},
	{
		Code:     "aerobic_base",
		Type:     domain.InsightPositive,
		Category: "endurance",
		When: func(c Context) bool {
			return c.Metrics.Zone2Percent != nil && *c.Metrics.Zone2Percent >= EnduranceZonePercent
		},
		Build: func(c Context) (string, map[string]interface{}) {
			return fmt.Sprintf("%.0f%% of the session in zone 2. Solid aerobic base work.", *c.Metrics.Zone2Percent), nil
		},
	},
	{
		Code:     "high_intensity",
		Type:     domain.InsightTip,
		Category: "intensity",
		When: func(c Context) bool {
			return c.Metrics.Zone5Percent != nil && *c.Metrics.Zone5Percent >= IntensityZonePercent
		},
		Build: func(c Context) (string, map[string]interface{}) {
			return fmt.Sprintf("%.0f%% of the session in zone 5. Plan an easy day to absorb the load.", *c.Metrics.Zone5Percent), nil
		},
	},
	{
		Code:     "long_session",
		Type:     domain.InsightInfo,
		Category: "volume",
		When: func(c Context) bool {
			km := c.Activity.DistanceKm()
			return km != nil && *km >= LongSessionDistanceKm
		},
		Build: func(c Context) (string, map[string]interface{}) {
			return fmt.Sprintf("Long session: %.1f km covered.", *c.Activity.DistanceKm()), nil
		},
	},
}

// Generate evaluates the rule table plus one achievement insight per newly
// set personal record. Output is a deterministic pure function of the
// context; reprocessing replaces, never appends.
func Generate(ctx Context) []domain.ActivityInsight {
	now := time.Now().UTC()
	var out []domain.ActivityInsight

	for _, rule := range Rules {
		if !rule.When(ctx) {
			continue
		}
		message, payload := rule.Build(ctx)
		out = append(out, domain.ActivityInsight{
			ID:         uuid.NewString(),
			ActivityID: ctx.Activity.ID,
			Type:       rule.Type,
			Category:   rule.Category,
			Message:    message,
			Payload:    payload,
			CreatedAt:  now,
		})
	}

	for _, rec := range ctx.NewRecords {
		out = append(out, domain.ActivityInsight{
			ID:         uuid.NewString(),
			ActivityID: ctx.Activity.ID,
			Type:       domain.InsightAchievement,
			Category:   "performance",
			Message:    fmt.Sprintf("New personal record: %s (%.2f %s).", rec.RecordType, rec.Value, rec.Unit),
			Payload: map[string]interface{}{
				"record_type": rec.RecordType,
				"value":       rec.Value,
				"unit":        rec.Unit,
				"sport":       rec.Sport,
			},
			CreatedAt: now,
		})
	}

	return out
}
