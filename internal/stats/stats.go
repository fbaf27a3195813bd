// Package stats holds the descriptive statistics and trend classification used
// by the analytics components. All functions are pure.
package stats

import (
	"errors"
	"math"
	"sort"
)

var ErrEmptyInput = errors.New("statistics on empty series")

type Trend string

const (
	Increasing Trend = "increasing"
	Decreasing Trend = "decreasing"
	Stable     Trend = "stable"
)

func Sum(values []float64) float64 {
	var s float64
	for _, v := range values {
		s += v
	}
	return s
}

// Mean returns the arithmetic mean. Callers must guard against empty input.
func Mean(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmptyInput
	}
	return Sum(values) / float64(len(values)), nil
}

// StdDev returns the population standard deviation (divides by N).
func StdDev(values []float64) (float64, error) {
	mean, err := Mean(values)
	if err != nil {
		return 0, err
	}
	if len(values) == 1 {
		return 0, nil
	}
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values))), nil
}

// CoefficientOfVariation returns stddev as a percentage of the mean, 0 when the mean is 0.
func CoefficientOfVariation(values []float64) (float64, error) {
	mean, err := Mean(values)
	if err != nil {
		return 0, err
	}
	if mean == 0 {
		return 0, nil
	}
	sd, err := StdDev(values)
	if err != nil {
		return 0, err
	}
	return sd * 100 / mean, nil
}

// Median returns the middle element of the sorted values. On an even count the
// lower-middle element is used, without interpolation.
func Median(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmptyInput
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted[(len(sorted)-1)/2], nil
}

// PercentChange returns (to-from)/from*100, or 0 when from is 0.
// The multiplication happens first so whole-number inputs stay exact.
func PercentChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) * 100 / from
}

// ClassifyDelta maps a percentage change onto a trend using the exclusive deadband.
func ClassifyDelta(delta float64) Trend {
	switch {
	case delta > TrendDeadbandPercent:
		return Increasing
	case delta < -TrendDeadbandPercent:
		return Decreasing
	default:
		return Stable
	}
}

// ClassifyTrend compares two half-period averages and returns the trend
// together with the percentage delta it was derived from.
func ClassifyTrend(firstHalf, secondHalf float64) (Trend, float64) {
	delta := PercentChange(firstHalf, secondHalf)
	return ClassifyDelta(delta), delta
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// RoundUpToStep rounds v up to the next multiple of step. The value is first
// settled to cents so float noise never bumps an exact multiple up a step.
// Results at or below zero collapse to 0.
func RoundUpToStep(v, step float64) float64 {
	if step <= 0 {
		return v
	}
	r := math.Ceil(Round2(v)/step) * step
	if r <= 0 {
		return 0
	}
	return r
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
