package weather

import (
	"context"
	"time"
)

// ProviderReading represents a single provider's normalized view of current
// conditions at a timestamp. Immutable once produced by an adapter.
type ProviderReading struct {
	ProviderName string    `json:"provider"`
	Timestamp    time.Time `json:"timestamp"` // always UTC

	TemperatureC float64 `json:"temperatureC"`
	FeelsLikeC   float64 `json:"feelsLikeC"`
	// HumidityPct is nil for providers that do not report humidity
	// (e.g. Open-Meteo's current conditions endpoint).
	HumidityPct      *float64  `json:"humidityPct,omitempty"`
	PressureHpa      float64   `json:"pressureHpa"`
	WindSpeedMS      float64   `json:"windSpeedMs"`
	WindDirectionDeg float64   `json:"windDirectionDeg"`
	CloudinessPct    float64   `json:"cloudinessPct"`
	VisibilityM      float64   `json:"visibilityM"`
	UVIndex          float64   `json:"uvIndex"`
	Condition        Condition `json:"condition"`
}

// ReadingRecord is a provider reading as persisted in dated artifacts.
// Exactly one of Reading or Error is set: a failed fetch is recorded as an
// error payload so downstream analysis can skip it per provider, per day.
type ReadingRecord struct {
	Reading *ProviderReading `json:"reading,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// OK reports whether the record carries a usable reading.
func (r ReadingRecord) OK() bool {
	return r.Error == "" && r.Reading != nil
}

// Provider abstracts a weather data source (e.g. OpenWeatherMap, WeatherAPI, Open-Meteo).
type Provider interface {
	Name() string
	Fetch(ctx context.Context, loc Location) (ProviderReading, error)
}
