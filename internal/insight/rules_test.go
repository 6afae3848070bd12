package insight

import (
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/analytics/internal/domain"
)

func fp(v float64) *float64 { return &v }

func codes(insights []domain.ActivityInsight) map[string]domain.ActivityInsight {
	out := make(map[string]domain.ActivityInsight, len(insights))
	for _, ins := range insights {
		out[ins.Category+"/"+string(ins.Type)] = ins
	}
	return out
}

func TestGenerateEmptyMetrics(t *testing.T) {
	insights := Generate(Context{Activity: domain.Activity{ID: "a1"}})
	require.Empty(t, insights, "absent metrics fire no rules")
}

func TestRuleThresholds(t *testing.T) {
	tests := []struct {
		name     string
		ctx      Context
		wantType domain.InsightType
		category string
		fire     bool
	}{
		{
			name:     "hr drift above threshold warns",
			ctx:      Context{Metrics: domain.ActivityMetrics{HRDriftPercent: fp(12.5)}},
			wantType: domain.InsightWarning,
			category: "cardiovascular",
			fire:     true,
		},
		{
			name: "hr drift at threshold stays quiet",
			ctx:  Context{Metrics: domain.ActivityMetrics{HRDriftPercent: fp(10.0)}},
			fire: false,
		},
		{
			name:     "high consistency praised",
			ctx:      Context{Metrics: domain.ActivityMetrics{ConsistencyScore: fp(85)}},
			wantType: domain.InsightPositive,
			category: "pacing",
			fire:     true,
		},
		{
			name:     "low consistency tipped",
			ctx:      Context{Metrics: domain.ActivityMetrics{ConsistencyScore: fp(42)}},
			wantType: domain.InsightTip,
			category: "pacing",
			fire:     true,
		},
		{
			name: "mid consistency stays quiet",
			ctx:  Context{Metrics: domain.ActivityMetrics{ConsistencyScore: fp(65)}},
			fire: false,
		},
		{
			name:     "positive fatigue warns",
			ctx:      Context{Metrics: domain.ActivityMetrics{FatigueIndexPercent: fp(15)}},
			wantType: domain.InsightWarning,
			category: "fatigue",
			fire:     true,
		},
		{
			name:     "negative split praised",
			ctx:      Context{Metrics: domain.ActivityMetrics{FatigueIndexPercent: fp(-7.5)}},
			wantType: domain.InsightPositive,
			category: "pacing",
			fire:     true,
		},
		{
			name:     "zone2 endurance block",
			ctx:      Context{Metrics: domain.ActivityMetrics{Zone2Percent: fp(65)}},
			wantType: domain.InsightPositive,
			category: "endurance",
			fire:     true,
		},
		{
			name:     "zone5 intensity load",
			ctx:      Context{Metrics: domain.ActivityMetrics{Zone5Percent: fp(35)}},
			wantType: domain.InsightTip,
			category: "intensity",
			fire:     true,
		},
		{
			name:     "long session noted",
			ctx:      Context{Activity: domain.Activity{DistanceMeters: fp(12000)}},
			wantType: domain.InsightInfo,
			category: "volume",
			fire:     true,
		},
		{
			name: "short session not noted",
			ctx:  Context{Activity: domain.Activity{DistanceMeters: fp(9999)}},
			fire: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			insights := Generate(tt.ctx)
			if !tt.fire {
				require.Empty(t, insights)
				return
			}
			require.Len(t, insights, 1)
			require.Equal(t, tt.wantType, insights[0].Type)
			require.Equal(t, tt.category, insights[0].Category)
			require.NotEmpty(t, insights[0].Message)
			require.NotEmpty(t, insights[0].ID)
		})
	}
}

func TestGenerateRecordAchievements(t *testing.T) {
	ctx := Context{
		Activity: domain.Activity{ID: "a1"},
		NewRecords: []domain.UserRecord{
			{RecordType: "longest_distance", Sport: "running", Value: 21097.5, Unit: "m"},
			{RecordType: "fastest_5k", Sport: "running", Value: 1200, Unit: "s"},
		},
	}

	insights := Generate(ctx)
	require.Len(t, insights, 2)

	for _, ins := range insights {
		require.Equal(t, domain.InsightAchievement, ins.Type)
		require.Equal(t, "performance", ins.Category)
		require.Equal(t, "a1", ins.ActivityID)
		require.Contains(t, ins.Message, "personal record")
		require.NotNil(t, ins.Payload)
		require.Contains(t, ins.Payload, "record_type")
		require.Contains(t, ins.Payload, "sport")
	}
}

func TestGenerateIndependentRules(t *testing.T) {
	ctx := Context{
		Activity: domain.Activity{ID: "a1", DistanceMeters: fp(15000)},
		Metrics: domain.ActivityMetrics{
			HRDriftPercent:      fp(14),
			ConsistencyScore:    fp(90),
			FatigueIndexPercent: fp(12),
			Zone2Percent:        fp(70),
		},
	}

	insights := Generate(ctx)
	byKey := codes(insights)

	require.Len(t, insights, 5)
	require.Contains(t, byKey, "cardiovascular/warning")
	require.Contains(t, byKey, "pacing/positive")
	require.Contains(t, byKey, "fatigue/warning")
	require.Contains(t, byKey, "endurance/positive")
	require.Contains(t, byKey, "volume/info")
}
