package ensemble

import (
	"fmt"
	"math"
	"sort"
)

// Weight table tolerances. Each blended metric's weights are rounded to two
// decimals per entry, so the sum may drift by up to 0.02 in total.
const (
	WeightSumTolerance = 0.02
	oneHotTolerance    = 1e-9
)

// PredictionWeights maps each blended metric to per-provider weights.
// For temperature, humidity and wind speed the weights over the contributing
// providers sum to 1.0 within WeightSumTolerance. Condition is one-hot: a
// single authoritative provider carries weight 1.0 and is never blended.
// Humidity's provider set may be a strict subset of the others, since some
// providers do not report humidity at all.
type PredictionWeights struct {
	Temperature map[string]float64 `json:"temperature"`
	Humidity    map[string]float64 `json:"humidity"`
	WindSpeed   map[string]float64 `json:"windSpeed"`
	Condition   map[string]float64 `json:"condition"`
}

// DefaultWeights returns the build-time weight table derived from the initial
// 9-day backtesting run. It is the fallback when no calibrated snapshot is
// available and must always validate.
func DefaultWeights() PredictionWeights {
	return PredictionWeights{
		Temperature: map[string]float64{
			"openmeteo":      0.45,
			"openweathermap": 0.40,
			"weatherapi":     0.15,
		},
		Humidity: map[string]float64{
			"weatherapi":     0.70,
			"openweathermap": 0.30,
		},
		WindSpeed: map[string]float64{
			"openmeteo":      0.60,
			"openweathermap": 0.25,
			"weatherapi":     0.15,
		},
		Condition: map[string]float64{
			"openweathermap": 1.0,
		},
	}
}

// Validate checks the structural invariants of the weight table.
func (w PredictionWeights) Validate() error {
	for metric, weights := range map[string]map[string]float64{
		"temperature": w.Temperature,
		"humidity":    w.Humidity,
		"windSpeed":   w.WindSpeed,
	} {
		if len(weights) == 0 {
			return fmt.Errorf("%s weights are empty", metric)
		}
		var sum float64
		for provider, weight := range weights {
			if weight < 0 {
				return fmt.Errorf("%s weight for %s is negative: %.4f", metric, provider, weight)
			}
			sum += weight
		}
		if math.Abs(sum-1.0) > WeightSumTolerance {
			return fmt.Errorf("%s weights sum to %.4f, must equal 1.00 (±%.2f)",
				metric, sum, WeightSumTolerance)
		}
	}

	if _, err := w.ConditionProvider(); err != nil {
		return err
	}
	return nil
}

// ConditionProvider returns the single authoritative provider for the
// condition label, i.e. the one carrying weight 1.0 in the one-hot condition
// entry.
func (w PredictionWeights) ConditionProvider() (string, error) {
	if len(w.Condition) == 0 {
		return "", fmt.Errorf("condition weights are empty")
	}

	authoritative := ""
	for provider, weight := range w.Condition {
		switch {
		case math.Abs(weight-1.0) <= oneHotTolerance:
			if authoritative != "" {
				return "", fmt.Errorf("condition weights are not one-hot: both %s and %s carry 1.0",
					authoritative, provider)
			}
			authoritative = provider
		case math.Abs(weight) <= oneHotTolerance:
			// explicit zero entries are allowed
		default:
			return "", fmt.Errorf("condition weight for %s is %.4f, must be 0 or 1", provider, weight)
		}
	}

	if authoritative == "" {
		return "", fmt.Errorf("condition weights have no provider with weight 1.0")
	}
	return authoritative, nil
}

// sortedProviders returns the provider names of a weight entry in stable
// order, so blends and dispersion are computed identically on every call.
func sortedProviders(weights map[string]float64) []string {
	names := make([]string, 0, len(weights))
	for name := range weights {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
