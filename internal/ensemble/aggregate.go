package ensemble

import (
	"errors"
	"math"
)

// ErrInvalidInput is returned when a value series and its weight series do not
// line up.
var ErrInvalidInput = errors.New("values and weights must have the same length")

// WeightedAverage combines values using the given weights. It divides by the
// actual sum of the weights rather than assuming they sum to exactly 1, so
// minor rounding drift in a weight table does not skew the result.
func WeightedAverage(values, weights []float64) (float64, error) {
	if len(values) != len(weights) || len(values) == 0 {
		return 0, ErrInvalidInput
	}

	var sum, totalWeight float64
	for i, v := range values {
		sum += v * weights[i]
		totalWeight += weights[i]
	}
	return sum / totalWeight, nil
}

// StandardDeviation returns the population standard deviation (divisor N) of
// the values. A single value yields 0.
func StandardDeviation(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))

	return math.Sqrt(variance)
}

// MeanAbsoluteError returns the MAE between paired predicted and actual
// series. Empty or misaligned series yield 0: a malformed day must never
// poison the MAE with a spurious value, so we fail soft to neutral and leave
// it to callers to check sample sizes separately.
func MeanAbsoluteError(predicted, actual []float64) float64 {
	if len(predicted) != len(actual) || len(predicted) == 0 {
		return 0
	}

	var sum float64
	for i, p := range predicted {
		sum += math.Abs(p - actual[i])
	}
	return sum / float64(len(predicted))
}

// MatchRate returns the exact-match rate between paired categorical series.
// Empty or misaligned series yield 0, mirroring MeanAbsoluteError.
func MatchRate(predicted, actual []string) float64 {
	if len(predicted) != len(actual) || len(predicted) == 0 {
		return 0
	}

	matches := 0
	for i, p := range predicted {
		if p == actual[i] {
			matches++
		}
	}
	return float64(matches) / float64(len(predicted))
}
