package accuracy

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/neisii/weather-forecast-accuracy/internal/ensemble"
)

// Recommendation gate. Both conditions must hold: a provider set with a large
// sample but low confidence, or the reverse, must not trigger a weight change
// on thin evidence.
const (
	confidenceSaturationDays = 30
	minRecommendedConfidence = 0.8
	minRecommendedSamples    = 20
)

// maeFloor clamps each provider's MAE before inversion. It prevents division
// by zero and keeps one near-perfect provider from capturing essentially all
// of the weight off a single lucky low-error run.
const maeFloor = 0.01

// Optimize converts a window's accuracy figures into a proposed weight table
// via inverse-error normalization. It is a deterministic statistical
// recalibration, not a learned model: smaller error monotonically yields
// larger weight, with diminishing sensitivity at low error thanks to the
// floor.
func Optimize(acc map[string]ProviderAccuracy, incumbent ensemble.PredictionWeights) OptimizationResult {
	providers := sortedKeys(acc)

	temperature := inverseErrorWeights(providers, func(p string) float64 { return acc[p].TemperatureMAE })
	windSpeed := inverseErrorWeights(providers, func(p string) float64 { return acc[p].WindSpeedMAE })

	// Humidity only considers providers that actually reported humidity in
	// the window; the rest are excluded, not zero-weighted.
	var humidityProviders []string
	for _, p := range providers {
		if acc[p].HumiditySamples > 0 {
			humidityProviders = append(humidityProviders, p)
		}
	}
	humidity := inverseErrorWeights(humidityProviders, func(p string) float64 { return acc[p].HumidityMAE })

	authoritative := selectConditionProvider(providers, acc, incumbent)

	newWeights := ensemble.PredictionWeights{
		Temperature: temperature,
		Humidity:    humidity,
		WindSpeed:   windSpeed,
		Condition:   map[string]float64{authoritative: 1.0},
	}

	expected := expectedPerformance(acc, newWeights, authoritative)

	var totalSamples int
	for _, p := range providers {
		totalSamples += acc[p].SampleSize
	}
	avgSamples := float64(totalSamples) / float64(len(providers))
	confidence := math.Min(avgSamples/confidenceSaturationDays, 1.0)

	recommended := confidence > minRecommendedConfidence && avgSamples >= minRecommendedSamples
	var reason string
	switch {
	case recommended:
		reason = fmt.Sprintf("optimized from %.0f days of paired data", avgSamples)
	case avgSamples < minRecommendedSamples:
		reason = fmt.Sprintf("insufficient data (%.0f days < %d)", avgSamples, minRecommendedSamples)
	default:
		reason = fmt.Sprintf("confidence %.2f below threshold %.2f", confidence, minRecommendedConfidence)
	}

	return OptimizationResult{
		NewWeights:          newWeights,
		ExpectedPerformance: expected,
		Method:              "statistical",
		Confidence:          confidence,
		Recommended:         recommended,
		Reason:              reason,
	}
}

// inverseErrorWeights floors each provider's error at maeFloor, takes the
// reciprocal, normalizes the set to sum to 1.0 and rounds each entry to two
// decimals.
func inverseErrorWeights(providers []string, errorOf func(string) float64) map[string]float64 {
	if len(providers) == 0 {
		return map[string]float64{}
	}

	inverses := make([]float64, len(providers))
	var sum float64
	for i, p := range providers {
		inv := 1 / math.Max(errorOf(p), maeFloor)
		inverses[i] = inv
		sum += inv
	}

	weights := make(map[string]float64, len(providers))
	for i, p := range providers {
		weights[p] = math.Round(inverses[i]/sum*100) / 100
	}
	return weights
}

// selectConditionProvider picks the provider with the highest historical
// condition-match rate as the sole authoritative condition source, defaulting
// to the incumbent on a tie. An authority change is a user-visible signal that
// the ensemble's condition source is shifting, so it is logged as a warning.
func selectConditionProvider(providers []string, acc map[string]ProviderAccuracy, incumbent ensemble.PredictionWeights) string {
	best := -1.0
	for _, p := range providers {
		if acc[p].ConditionAccuracy > best {
			best = acc[p].ConditionAccuracy
		}
	}

	incumbentProvider, err := incumbent.ConditionProvider()
	if err != nil {
		incumbentProvider = ""
	}
	if incumbentAcc, ok := acc[incumbentProvider]; ok && incumbentAcc.ConditionAccuracy == best {
		return incumbentProvider
	}

	for _, p := range providers {
		if acc[p].ConditionAccuracy == best {
			if incumbentProvider != "" && p != incumbentProvider {
				log.Warn().Str("from", incumbentProvider).Str("to", p).
					Msg("authoritative condition provider changed")
			}
			return p
		}
	}
	return incumbentProvider
}

// expectedPerformance applies the newly derived weights retroactively to the
// same accuracy window that produced them. This is an in-sample projection,
// not held-out validation, and therefore an optimistic estimate of real-world
// improvement; it is reported for humans, not fed back into the weight math.
func expectedPerformance(acc map[string]ProviderAccuracy, weights ensemble.PredictionWeights, authoritative string) PerformanceMetrics {
	var tempMAE, windMAE, humidityMAE float64
	for p, w := range weights.Temperature {
		tempMAE += acc[p].TemperatureMAE * w
	}
	for p, w := range weights.WindSpeed {
		windMAE += acc[p].WindSpeedMAE * w
	}
	for p, w := range weights.Humidity {
		humidityMAE += acc[p].HumidityMAE * w
	}
	conditionAccuracy := acc[authoritative].ConditionAccuracy

	// Ad hoc scalar for human-readable reporting only; it does not drive the
	// weight math.
	overall := 100 - (tempMAE*10 + windMAE*5 + humidityMAE*2 + (1-conditionAccuracy)*30)

	return PerformanceMetrics{
		Providers: acc,
		Ensemble: EnsembleScore{
			TemperatureMAE:    math.Round(tempMAE*100) / 100,
			WindSpeedMAE:      math.Round(windMAE*100) / 100,
			HumidityMAE:       math.Round(humidityMAE*100) / 100,
			ConditionAccuracy: math.Round(conditionAccuracy*100) / 100,
			OverallScore:      math.Round(overall*10) / 10,
		},
	}
}

func sortedKeys(m map[string]ProviderAccuracy) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
