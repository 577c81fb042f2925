package ensemble

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/neisii/weather-forecast-accuracy/internal/weather"
)

// ErrMissingProvider is returned when a metric's weight table references a
// provider that is absent from the supplied readings. Callers are expected to
// fetch the full configured provider set before predicting; there is no
// partial-ensemble mode.
var ErrMissingProvider = errors.New("weight table references provider with no reading")

// Dispersion ceilings per metric: the inter-provider standard deviation at
// which confidence reaches zero.
const (
	maxStdDevTemperature = 3.0  // °C
	maxStdDevHumidity    = 15.0 // %
	maxStdDevWindSpeed   = 1.5  // m/s
)

// ConfidenceMetrics scores inter-provider agreement per metric on a 0-100
// scale. Higher dispersion between providers means lower confidence; full
// agreement saturates at 100.
type ConfidenceMetrics struct {
	Overall     int         `json:"overall"`
	Temperature int         `json:"temperature"`
	Humidity    int         `json:"humidity"`
	WindSpeed   int         `json:"windSpeed"`
	Condition   int         `json:"condition"`
	Uncertainty Uncertainty `json:"uncertainty"`
}

// Uncertainty carries the raw dispersion values behind the confidence scores.
type Uncertainty struct {
	Temperature float64 `json:"temperature"` // °C
	Humidity    float64 `json:"humidity"`    // %
	WindSpeed   float64 `json:"windSpeed"`   // m/s
}

// CustomPrediction is the ensemble output: a blended current-weather record
// plus the confidence block, the raw readings that contributed and the weight
// table used. Created fresh on every Predict call and never mutated.
type CustomPrediction struct {
	Location  weather.Location `json:"location"`
	Timestamp time.Time        `json:"timestamp"`

	Temperature   float64           `json:"temperatureC"`
	FeelsLike     float64           `json:"feelsLikeC"`
	Humidity      float64           `json:"humidityPct"`
	Pressure      float64           `json:"pressureHpa"`
	WindSpeed     float64           `json:"windSpeedMs"`
	WindDirection float64           `json:"windDirectionDeg"`
	Cloudiness    float64           `json:"cloudinessPct"`
	Visibility    float64           `json:"visibilityM"`
	UVIndex       float64           `json:"uvIndex"`
	Condition     weather.Condition `json:"condition"`

	Confidence ConfidenceMetrics                  `json:"confidence"`
	Readings   map[string]weather.ProviderReading `json:"readings"`
	Weights    PredictionWeights                  `json:"weights"`
}

// Predict combines simultaneous readings from the named providers into one
// CustomPrediction using the given weight table. Pure function of its inputs
// and the fixed dispersion ceilings; safe for concurrent use.
func Predict(loc weather.Location, readings map[string]weather.ProviderReading, weights PredictionWeights) (CustomPrediction, error) {
	temperature, tempValues, err := blend(readings, weights.Temperature, func(r weather.ProviderReading) (float64, bool) {
		return r.TemperatureC, true
	})
	if err != nil {
		return CustomPrediction{}, fmt.Errorf("temperature: %w", err)
	}

	feelsLike, _, err := blend(readings, weights.Temperature, func(r weather.ProviderReading) (float64, bool) {
		return r.FeelsLikeC, true
	})
	if err != nil {
		return CustomPrediction{}, fmt.Errorf("feels-like: %w", err)
	}

	// Humidity blends only over the providers present in weights.Humidity.
	// Providers without humidity data are excluded from the table up front,
	// so the configured weights already sum to 1.0 over exactly the providers
	// expected to report it; no re-normalization happens here.
	humidity, humidityValues, err := blend(readings, weights.Humidity, func(r weather.ProviderReading) (float64, bool) {
		if r.HumidityPct == nil {
			return 0, false
		}
		return *r.HumidityPct, true
	})
	if err != nil {
		return CustomPrediction{}, fmt.Errorf("humidity: %w", err)
	}

	windSpeed, windValues, err := blend(readings, weights.WindSpeed, func(r weather.ProviderReading) (float64, bool) {
		return r.WindSpeedMS, true
	})
	if err != nil {
		return CustomPrediction{}, fmt.Errorf("wind speed: %w", err)
	}

	// Condition is taken verbatim from the single authoritative provider.
	// If its reading is absent the prediction fails outright rather than
	// silently shipping no condition.
	authoritative, err := weights.ConditionProvider()
	if err != nil {
		return CustomPrediction{}, err
	}
	primary, ok := readings[authoritative]
	if !ok {
		return CustomPrediction{}, fmt.Errorf("condition: %w: %s", ErrMissingProvider, authoritative)
	}

	confidence := confidenceMetrics(tempValues, humidityValues, windValues, readings)

	return CustomPrediction{
		Location:  loc,
		Timestamp: time.Now().UTC(),

		// Rounding is cosmetic display stability only; confidence above is
		// computed from the unrounded dispersion.
		Temperature: round1(temperature),
		FeelsLike:   round1(feelsLike),
		Humidity:    math.Round(humidity),
		WindSpeed:   round2(windSpeed),

		// Point measurements with no meaningful cross-provider consensus are
		// copied from the authoritative provider rather than averaged.
		Pressure:      primary.PressureHpa,
		WindDirection: primary.WindDirectionDeg,
		Cloudiness:    primary.CloudinessPct,
		Visibility:    primary.VisibilityM,
		UVIndex:       primary.UVIndex,
		Condition:     primary.Condition,

		Confidence: confidence,
		Readings:   readings,
		Weights:    weights,
	}, nil
}

// blend gathers each weighted provider's value and returns the weighted
// average along with the raw values (for dispersion). Providers are visited
// in sorted order so identical inputs always produce identical output.
func blend(readings map[string]weather.ProviderReading, weights map[string]float64, value func(weather.ProviderReading) (float64, bool)) (float64, []float64, error) {
	values := make([]float64, 0, len(weights))
	ws := make([]float64, 0, len(weights))

	for _, name := range sortedProviders(weights) {
		r, ok := readings[name]
		if !ok {
			return 0, nil, fmt.Errorf("%w: %s", ErrMissingProvider, name)
		}
		v, ok := value(r)
		if !ok {
			return 0, nil, fmt.Errorf("%w: %s", ErrMissingProvider, name)
		}
		values = append(values, v)
		ws = append(ws, weights[name])
	}

	avg, err := WeightedAverage(values, ws)
	if err != nil {
		return 0, nil, err
	}
	return avg, values, nil
}

func confidenceMetrics(tempValues, humidityValues, windValues []float64, readings map[string]weather.ProviderReading) ConfidenceMetrics {
	tempStdDev := StandardDeviation(tempValues)
	humidityStdDev := StandardDeviation(humidityValues)
	windStdDev := StandardDeviation(windValues)

	tempConfidence := dispersionConfidence(tempStdDev, maxStdDevTemperature)
	humidityConfidence := dispersionConfidence(humidityStdDev, maxStdDevHumidity)
	windConfidence := dispersionConfidence(windStdDev, maxStdDevWindSpeed)
	conditionConfidence := conditionAgreement(readings)

	overall := int(math.Round(
		float64(tempConfidence)*0.4 +
			float64(humidityConfidence)*0.2 +
			float64(windConfidence)*0.2 +
			float64(conditionConfidence)*0.2))

	return ConfidenceMetrics{
		Overall:     overall,
		Temperature: tempConfidence,
		Humidity:    humidityConfidence,
		WindSpeed:   windConfidence,
		Condition:   conditionConfidence,
		Uncertainty: Uncertainty{
			Temperature: round1(tempStdDev),
			Humidity:    math.Round(humidityStdDev),
			WindSpeed:   round2(windStdDev),
		},
	}
}

// dispersionConfidence maps an inter-provider standard deviation onto 0-100:
// zero dispersion scores 100, dispersion at or beyond the ceiling scores 0.
func dispersionConfidence(stdDev, maxStdDev float64) int {
	confidence := math.Max(0, 100-(stdDev/maxStdDev)*100)
	return int(math.Round(confidence))
}

// conditionAgreement scores how many providers report the same condition
// label: one distinct label across n providers scores 100, n distinct labels
// score 0.
func conditionAgreement(readings map[string]weather.ProviderReading) int {
	if len(readings) <= 1 {
		return 100
	}

	distinct := make(map[weather.Condition]struct{}, len(readings))
	for _, r := range readings {
		distinct[r.Condition] = struct{}{}
	}

	n := float64(len(readings))
	return int(math.Round((n - float64(len(distinct))) / (n - 1) * 100))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
