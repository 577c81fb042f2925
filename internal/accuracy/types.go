package accuracy

import (
	"github.com/neisii/weather-forecast-accuracy/internal/ensemble"
	"github.com/neisii/weather-forecast-accuracy/internal/weather"
)

// PairedDay is one calendar day's predictions and observations, keyed by
// provider name. The two sides are matched by exact date-string equality
// (YYYY-MM-DD) upstream.
type PairedDay struct {
	Date         string
	Predictions  map[string]weather.ReadingRecord
	Observations map[string]weather.ReadingRecord
}

// ProviderAccuracy summarizes one provider's error over a trailing window.
// Recomputed from scratch on each analysis run, never incrementally updated.
type ProviderAccuracy struct {
	TemperatureMAE    float64 `json:"temperatureMAE"` // °C
	WindSpeedMAE      float64 `json:"windSpeedMAE"`   // m/s
	HumidityMAE       float64 `json:"humidityMAE"`    // %; 0 by convention for providers without humidity
	ConditionAccuracy float64 `json:"conditionAccuracy"`
	SampleSize        int     `json:"sampleSize"`

	// HumiditySamples distinguishes "no humidity data" (0) from "humidity
	// error happened to be 0". The optimizer uses it to pick the humidity
	// provider set.
	HumiditySamples int `json:"humiditySamples"`
}

// EnsembleScore projects the blended ensemble's performance over a window.
type EnsembleScore struct {
	TemperatureMAE    float64 `json:"temperatureMAE"`
	WindSpeedMAE      float64 `json:"windSpeedMAE"`
	HumidityMAE       float64 `json:"humidityMAE"`
	ConditionAccuracy float64 `json:"conditionAccuracy"` // 0-1
	OverallScore      float64 `json:"overallScore"`      // 0-100
}

// Improvement is the percentage change relative to the previous snapshot.
// Positive is always better: error metrics improve when they shrink, the
// overall score improves when it grows, so the sign convention differs per
// field.
type Improvement struct {
	Temperature float64 `json:"temperature"`
	WindSpeed   float64 `json:"windSpeed"`
	Humidity    float64 `json:"humidity"`
	Overall     float64 `json:"overall"`
}

// PerformanceMetrics bundles per-provider accuracy with the ensemble's own
// projected score.
type PerformanceMetrics struct {
	Providers   map[string]ProviderAccuracy `json:"providers"`
	Ensemble    EnsembleScore               `json:"ensemble"`
	Improvement *Improvement                `json:"improvement,omitempty"`
}

// OptimizationResult is one calibration run's proposal. Ephemeral: produced
// once per run and consumed by the weight-store update step.
type OptimizationResult struct {
	NewWeights          ensemble.PredictionWeights `json:"newWeights"`
	ExpectedPerformance PerformanceMetrics         `json:"expectedPerformance"`
	Method              string                     `json:"method"`
	Confidence          float64                    `json:"confidence"` // 0-1, driven by sample size
	Recommended         bool                       `json:"recommended"`
	Reason              string                     `json:"reason"`
}
