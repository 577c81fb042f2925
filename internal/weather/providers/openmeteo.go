package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/kelvins/geocoder"
	"github.com/neisii/weather-forecast-accuracy/internal/weather"
	"github.com/sony/gobreaker"
)

// OpenMeteoProvider implements the weather.Provider interface for Open-Meteo.
// Open-Meteo's current-weather endpoint reports no humidity; readings carry a
// nil humidity so the ensemble excludes this provider from the humidity blend.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewOpenMeteoProvider creates the provider. Open-Meteo itself needs no API
// key, but locations without coordinates are resolved through the Google
// geocoding API, which does.
func NewOpenMeteoProvider(client *http.Client, geocoderAPIKey string) *OpenMeteoProvider {
	geocoder.ApiKey = geocoderAPIKey

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openmeteo",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: "https://api.open-meteo.com/v1/forecast",
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      3,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: cb,
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) Fetch(ctx context.Context, loc weather.Location) (weather.ProviderReading, error) {
	lat, lon, err := resolveCoordinates(loc)
	if err != nil {
		return weather.ProviderReading{}, err
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%f", lat))
		values.Set("longitude", fmt.Sprintf("%f", lon))
		values.Set("current_weather", "true")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.ProviderReading{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		CurrentWeather struct {
			Temperature   float64 `json:"temperature"`
			WindSpeed     float64 `json:"windspeed"`
			WindDirection float64 `json:"winddirection"`
			Time          string  `json:"time"`
			WeatherCode   int     `json:"weathercode"`
		} `json:"current_weather"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.ProviderReading{}, err
	}

	ts, err := time.Parse(time.RFC3339, payload.CurrentWeather.Time)
	if err != nil {
		ts = time.Now().UTC()
	} else {
		ts = ts.UTC()
	}

	return weather.ProviderReading{
		ProviderName: p.name,
		Timestamp:    ts,
		TemperatureC: payload.CurrentWeather.Temperature,
		// current_weather has no feels-like; the raw temperature stands in so
		// the feels-like blend still sees this provider.
		FeelsLikeC:       payload.CurrentWeather.Temperature,
		WindSpeedMS:      payload.CurrentWeather.WindSpeed / 3.6, // km/h to m/s
		WindDirectionDeg: payload.CurrentWeather.WindDirection,
		Condition:        mapOpenMeteoCondition(payload.CurrentWeather.WeatherCode),
	}, nil
}

// resolveCoordinates returns the location's coordinates, geocoding the
// city/country when they are not configured.
func resolveCoordinates(loc weather.Location) (float64, float64, error) {
	if loc.Lat != nil && loc.Lon != nil {
		return *loc.Lat, *loc.Lon, nil
	}

	address := geocoder.Address{
		City:    loc.City,
		Country: loc.Country,
	}
	result, err := geocoder.Geocoding(address)
	if err != nil {
		return 0, 0, fmt.Errorf("geocode %s: %w", loc.Key(), err)
	}
	return result.Latitude, result.Longitude, nil
}

func mapOpenMeteoCondition(code int) weather.Condition {
	// Mapping based on Open-Meteo weather codes (simplified).
	switch {
	case code == 0:
		return weather.ConditionClear
	case code >= 1 && code <= 3:
		return weather.ConditionCloudy
	case code >= 45 && code <= 48:
		return weather.ConditionMist
	case (code >= 51 && code <= 67) || (code >= 80 && code <= 82):
		return weather.ConditionRain
	case code >= 71 && code <= 77:
		return weather.ConditionSnow
	case code >= 95:
		return weather.ConditionStorm
	default:
		return weather.ConditionUnknown
	}
}
