package accuracy

import (
	"errors"
	"fmt"
	"sort"

	"github.com/neisii/weather-forecast-accuracy/internal/ensemble"
)

// Window bounds for a calibration run.
const (
	// MinWindowDays is the minimum number of paired days required to produce
	// any analysis at all. Below this the run aborts and prior weights remain
	// in force.
	MinWindowDays = 7

	// DefaultWindowDays is the recommended trailing window.
	DefaultWindowDays = 30
)

// ErrInsufficientData is returned when the analysis window holds fewer than
// MinWindowDays paired days.
var ErrInsufficientData = errors.New("not enough paired days for analysis")

// Analyze computes each provider's accuracy over the trailing window. A day
// contributes to a provider's series only when that provider has both a
// prediction and an observation for the date and neither is a recorded error;
// partial provider failures never exclude the day for the other providers.
func Analyze(days []PairedDay) (map[string]ProviderAccuracy, error) {
	if len(days) < MinWindowDays {
		return nil, fmt.Errorf("%w: %d days < %d", ErrInsufficientData, len(days), MinWindowDays)
	}

	results := make(map[string]ProviderAccuracy)
	for _, provider := range providerSet(days) {
		var (
			tempPred, tempActual         []float64
			windPred, windActual         []float64
			humidityPred, humidityActual []float64
			condPred, condActual         []string
		)

		for _, day := range days {
			pred, okPred := day.Predictions[provider]
			obs, okObs := day.Observations[provider]
			if !okPred || !okObs || !pred.OK() || !obs.OK() {
				continue
			}

			tempPred = append(tempPred, pred.Reading.TemperatureC)
			tempActual = append(tempActual, obs.Reading.TemperatureC)

			windPred = append(windPred, pred.Reading.WindSpeedMS)
			windActual = append(windActual, obs.Reading.WindSpeedMS)

			if pred.Reading.HumidityPct != nil && obs.Reading.HumidityPct != nil {
				humidityPred = append(humidityPred, *pred.Reading.HumidityPct)
				humidityActual = append(humidityActual, *obs.Reading.HumidityPct)
			}

			condPred = append(condPred, string(pred.Reading.Condition))
			condActual = append(condActual, string(obs.Reading.Condition))
		}

		results[provider] = ProviderAccuracy{
			TemperatureMAE:    ensemble.MeanAbsoluteError(tempPred, tempActual),
			WindSpeedMAE:      ensemble.MeanAbsoluteError(windPred, windActual),
			HumidityMAE:       ensemble.MeanAbsoluteError(humidityPred, humidityActual),
			ConditionAccuracy: ensemble.MatchRate(condPred, condActual),
			SampleSize:        len(tempPred),
			HumiditySamples:   len(humidityPred),
		}
	}

	return results, nil
}

// providerSet returns the union of provider names seen across the window, in
// stable order.
func providerSet(days []PairedDay) []string {
	seen := make(map[string]struct{})
	for _, day := range days {
		for name := range day.Predictions {
			seen[name] = struct{}{}
		}
		for name := range day.Observations {
			seen[name] = struct{}{}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
