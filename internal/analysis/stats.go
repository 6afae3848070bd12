package analysis

import "math"

// Mean returns the arithmetic mean of values. The second return is false
// when no values are present.
func Mean(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), true
}

// StdDev returns the sample standard deviation. It requires at least two
// values.
func StdDev(values []float64) (float64, bool) {
	if len(values) < 2 {
		return 0, false
	}
	mean, _ := Mean(values)
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)-1)), true
}

// CoefficientOfVariation returns stddev/mean. Undefined when the mean is
// zero or fewer than two values are present.
func CoefficientOfVariation(values []float64) (float64, bool) {
	sd, ok := StdDev(values)
	if !ok {
		return 0, false
	}
	mean, _ := Mean(values)
	if mean == 0 {
		return 0, false
	}
	return sd / mean, true
}

// HalfSplit compares a channel's first and second half, split at the
// elapsed-time midpoint of the activity rather than the sample midpoint.
type HalfSplit struct {
	FirstMean     float64
	SecondMean    float64
	PercentChange float64
}

// SplitByElapsed splits samples at the elapsed-time midpoint and compares
// the channel means of both halves. It requires at least one present value
// in each half and a non-zero first-half mean.
func SplitByElapsed(samples []Sample, value func(Sample) (float64, bool)) (HalfSplit, bool) {
	if len(samples) < 2 {
		return HalfSplit{}, false
	}

	first := samples[0].Elapsed
	last := samples[len(samples)-1].Elapsed
	mid := first + (last-first)/2

	var firstHalf, secondHalf []float64
	for _, s := range samples {
		v, ok := value(s)
		if !ok {
			continue
		}
		if s.Elapsed <= mid {
			firstHalf = append(firstHalf, v)
		} else {
			secondHalf = append(secondHalf, v)
		}
	}

	firstMean, ok1 := Mean(firstHalf)
	secondMean, ok2 := Mean(secondHalf)
	if !ok1 || !ok2 || firstMean == 0 {
		return HalfSplit{}, false
	}

	return HalfSplit{
		FirstMean:     firstMean,
		SecondMean:    secondMean,
		PercentChange: (secondMean - firstMean) / firstMean * 100,
	}, true
}

// channel collects the present values of one channel across samples.
func channel(samples []Sample, value func(Sample) (float64, bool)) []float64 {
	var out []float64
	for _, s := range samples {
		if v, ok := value(s); ok {
			out = append(out, v)
		}
	}
	return out
}

func heartRateValue(s Sample) (float64, bool) {
	if s.HeartRate == nil {
		return 0, false
	}
	return float64(*s.HeartRate), true
}

func speedValue(s Sample) (float64, bool) {
	if s.Speed == nil {
		return 0, false
	}
	return *s.Speed, true
}

// paceValue inverts speed into seconds per kilometer. Zero-speed samples
// carry no pace.
func paceValue(s Sample) (float64, bool) {
	if s.Speed == nil || *s.Speed <= 0 {
		return 0, false
	}
	return 1000 / *s.Speed, true
}

func cadenceValue(s Sample) (float64, bool) {
	if s.Cadence == nil {
		return 0, false
	}
	return *s.Cadence, true
}

func verticalOscillationValue(s Sample) (float64, bool) {
	if s.VerticalOscillation == nil {
		return 0, false
	}
	return *s.VerticalOscillation, true
}

func stanceTimeValue(s Sample) (float64, bool) {
	if s.StanceTime == nil {
		return 0, false
	}
	return *s.StanceTime, true
}

func stepLengthValue(s Sample) (float64, bool) {
	if s.StepLength == nil {
		return 0, false
	}
	return *s.StepLength, true
}
