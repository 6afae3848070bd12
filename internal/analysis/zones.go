package analysis

import "math"

// DefaultMaxHeartRate is assumed when the user has no measured maximum.
const DefaultMaxHeartRate = 190.0

// Zone boundary fractions of max heart rate. Each zone is inclusive of its
// lower bound and exclusive of its upper, except zone 5 which is unbounded.
var zoneFractions = [5]struct{ lower, upper float64 }{
	{0.00, 0.60},        // recovery
	{0.60, 0.70},        // endurance
	{0.70, 0.80},        // tempo
	{0.80, 0.90},        // threshold
	{0.90, math.Inf(1)}, // vo2 max
}

// Bound is one heart-rate zone range in bpm.
type Bound struct {
	Lower float64
	Upper float64
}

// ZoneSet holds the five training-zone boundaries for one user.
type ZoneSet struct {
	MaxHeartRate float64
	Bounds       [5]Bound
}

// NewZoneSet derives zone boundaries from a maximum heart rate. Non-positive
// inputs fall back to DefaultMaxHeartRate.
func NewZoneSet(maxHR float64) ZoneSet {
	if maxHR <= 0 {
		maxHR = DefaultMaxHeartRate
	}
	zs := ZoneSet{MaxHeartRate: maxHR}
	for i, f := range zoneFractions {
		zs.Bounds[i] = Bound{
			Lower: f.lower * maxHR,
			Upper: f.upper * maxHR,
		}
	}
	return zs
}

// Index returns the zero-based zone index containing the heart rate.
func (zs ZoneSet) Index(hr float64) int {
	for i, b := range zs.Bounds {
		if hr >= b.Lower && hr < b.Upper {
			return i
		}
	}
	return len(zs.Bounds) - 1
}

// ZoneTimes accumulates classified time per zone. Classified is the total
// time carried by samples with a present heart rate; zone percentages are
// taken over it so unclassified gaps do not distort the distribution.
type ZoneTimes struct {
	Seconds    [5]float64
	Classified float64
}

// Percent returns the share of classified time spent in the given zone.
func (zt ZoneTimes) Percent(zone int) float64 {
	if zt.Classified <= 0 {
		return 0
	}
	return zt.Seconds[zone] / zt.Classified * 100
}

// TimeInZones attributes each heart-rate sample's elapsed delta to the zone
// containing that heart rate. The second return is false when no time could
// be classified.
func TimeInZones(samples []Sample, zs ZoneSet) (ZoneTimes, bool) {
	var zt ZoneTimes
	for _, s := range samples {
		if s.HeartRate == nil || s.Delta <= 0 {
			continue
		}
		idx := zs.Index(float64(*s.HeartRate))
		zt.Seconds[idx] += s.Delta
		zt.Classified += s.Delta
	}
	return zt, zt.Classified > 0
}
