package analysis

import (
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/analytics/internal/domain"
)

func fp(v float64) *float64 { return &v }
func ip(v int) *int         { return &v }

func TestNormalizeOrdersByRecordIndex(t *testing.T) {
	records := []domain.ActivityRecord{
		{ActivityID: "a1", RecordIndex: 2, ElapsedSeconds: 20, HeartRate: ip(140)},
		{ActivityID: "a1", RecordIndex: 0, ElapsedSeconds: 0, HeartRate: ip(120)},
		{ActivityID: "a1", RecordIndex: 1, ElapsedSeconds: 10, HeartRate: ip(130)},
	}

	samples := Normalize(records)
	require.Len(t, samples, 3)

	require.Equal(t, []int{0, 1, 2}, []int{samples[0].Index, samples[1].Index, samples[2].Index})
	require.Equal(t, 0.0, samples[0].Delta)
	require.Equal(t, 10.0, samples[1].Delta)
	require.Equal(t, 10.0, samples[2].Delta)
}

func TestNormalizeClampsPathologicalDeltas(t *testing.T) {
	records := []domain.ActivityRecord{
		{RecordIndex: 0, ElapsedSeconds: 0},
		{RecordIndex: 1, ElapsedSeconds: 10},
		// Recording pause far beyond the gap cap.
		{RecordIndex: 2, ElapsedSeconds: 10 + maxSampleGapSeconds + 1},
		// Clock regression.
		{RecordIndex: 3, ElapsedSeconds: 5},
	}

	samples := Normalize(records)
	require.Len(t, samples, 4)

	require.Equal(t, 10.0, samples[1].Delta)
	require.Equal(t, 0.0, samples[2].Delta)
	require.Equal(t, 0.0, samples[3].Delta)
}

func TestNormalizePreservesMissingChannels(t *testing.T) {
	records := []domain.ActivityRecord{
		{RecordIndex: 0, ElapsedSeconds: 0, HeartRate: ip(110)},
		{RecordIndex: 1, ElapsedSeconds: 10, Speed: fp(2.5)},
	}

	samples := Normalize(records)
	require.Len(t, samples, 2)

	require.NotNil(t, samples[0].HeartRate)
	require.Nil(t, samples[0].Speed)
	require.Nil(t, samples[1].HeartRate)
	require.Equal(t, 2.5, *samples[1].Speed)
}

func TestNormalizeEmpty(t *testing.T) {
	require.Nil(t, Normalize(nil))
	require.Nil(t, Normalize([]domain.ActivityRecord{}))
}
