package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/neisii/weather-forecast-accuracy/internal/common"
	"github.com/neisii/weather-forecast-accuracy/internal/weather"
	"github.com/sony/gobreaker"
)

// WeatherAPIProvider implements the weather.Provider interface for WeatherAPI.com.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewWeatherAPIProvider(client *http.Client, apiKey string) *WeatherAPIProvider {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "weatherapi",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: "https://api.weatherapi.com/v1/current.json",
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

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

func (p *WeatherAPIProvider) Fetch(ctx context.Context, loc weather.Location) (weather.ProviderReading, error) {
	if p.apiKey == "" {
		return weather.ProviderReading{}, fmt.Errorf("weatherapi api key is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("key", p.apiKey)
		// WeatherAPI uses "q" for location; it accepts "city,country" or "lat,lon".
		if loc.Lat != nil && loc.Lon != nil {
			values.Set("q", fmt.Sprintf("%f,%f", *loc.Lat, *loc.Lon))
		} else {
			q := loc.City
			if loc.Country != "" {
				q = fmt.Sprintf("%s,%s", loc.City, loc.Country)
			}
			values.Set("q", q)
		}

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
		Location struct {
			LocaltimeEpoch int64 `json:"localtime_epoch"`
		} `json:"location"`
		Current struct {
			TempC      float64 `json:"temp_c"`
			FeelsLikeC float64 `json:"feelslike_c"`
			Humidity   float64 `json:"humidity"`
			WindKph    float64 `json:"wind_kph"`
			WindDegree float64 `json:"wind_degree"`
			PressureMb float64 `json:"pressure_mb"`
			Cloud      float64 `json:"cloud"`
			VisKm      float64 `json:"vis_km"`
			UV         float64 `json:"uv"`
			Condition  struct {
				Text string `json:"text"`
			} `json:"condition"`
		} `json:"current"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.ProviderReading{}, err
	}

	ts := time.Unix(payload.Location.LocaltimeEpoch, 0).UTC()
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	humidity := payload.Current.Humidity

	return weather.ProviderReading{
		ProviderName: p.name,
		Timestamp:    ts,
		TemperatureC: payload.Current.TempC,
		FeelsLikeC:   payload.Current.FeelsLikeC,
		HumidityPct:  &humidity,
		// Convert wind from kph to m/s (approx).
		WindSpeedMS:      payload.Current.WindKph / 3.6,
		WindDirectionDeg: payload.Current.WindDegree,
		PressureHpa:      payload.Current.PressureMb,
		CloudinessPct:    payload.Current.Cloud,
		VisibilityM:      payload.Current.VisKm * 1000,
		UVIndex:          payload.Current.UV,
		Condition:        mapWeatherAPICondition(payload.Current.Condition.Text),
	}, nil
}

func mapWeatherAPICondition(text string) weather.Condition {
	lower := strings.ToLower(text)
	switch {
	case lower == "":
		return weather.ConditionUnknown
	case common.HasAny(lower, "rain", "shower", "drizzle"):
		return weather.ConditionRain
	case common.HasAny(lower, "snow", "sleet", "blizzard"):
		return weather.ConditionSnow
	case common.HasAny(lower, "thunder", "storm"):
		return weather.ConditionStorm
	case common.HasAny(lower, "mist", "fog"):
		return weather.ConditionMist
	case common.HasAny(lower, "cloud", "overcast"):
		return weather.ConditionCloudy
	case common.HasAny(lower, "sunny", "clear"):
		return weather.ConditionClear
	default:
		return weather.ConditionUnknown
	}
}
