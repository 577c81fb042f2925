package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neisii/weather-forecast-accuracy/internal/distributor"
	"github.com/neisii/weather-forecast-accuracy/internal/ensemble"
	"github.com/neisii/weather-forecast-accuracy/internal/store"
	"github.com/neisii/weather-forecast-accuracy/internal/weather"
)

type stubProvider struct {
	name    string
	reading weather.ProviderReading
	err     error
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Fetch(ctx context.Context, loc weather.Location) (weather.ProviderReading, error) {
	if p.err != nil {
		return weather.ProviderReading{}, p.err
	}
	return p.reading, nil
}

func fptr(v float64) *float64 { return &v }

func testService(fail bool) *weather.Service {
	var betaErr error
	if fail {
		betaErr = errors.New("upstream timeout")
	}
	return weather.NewService([]weather.Provider{
		&stubProvider{name: "openweathermap", reading: weather.ProviderReading{
			ProviderName: "openweathermap", TemperatureC: 18.0, FeelsLikeC: 17.5,
			HumidityPct: fptr(68), WindSpeedMS: 3.0, Condition: weather.ConditionCloudy,
		}},
		&stubProvider{name: "weatherapi", err: betaErr, reading: weather.ProviderReading{
			ProviderName: "weatherapi", TemperatureC: 18.5, FeelsLikeC: 18.0,
			HumidityPct: fptr(62), WindSpeedMS: 3.2, Condition: weather.ConditionCloudy,
		}},
		&stubProvider{name: "openmeteo", reading: weather.ProviderReading{
			ProviderName: "openmeteo", TemperatureC: 18.5, FeelsLikeC: 18.5,
			WindSpeedMS: 3.5, Condition: weather.ConditionCloudy,
		}},
	})
}

func testApp(t *testing.T, service *weather.Service) (*fiber.App, *store.WeightStore) {
	t.Helper()
	app := fiber.New()
	weights := store.NewWeightStore(t.TempDir())
	loader := distributor.NewLoader(http.DefaultClient, "", time.Hour)
	RegisterRoutes(app, service, loader, weights)
	return app, weights
}

func TestGetCurrentWeather(t *testing.T) {
	app, _ := testApp(t, testService(false))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/weather/current?city=Seoul&country=KR", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var prediction ensemble.CustomPrediction
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&prediction))

	assert.Equal(t, "Seoul", prediction.Location.City)
	assert.InDelta(t, 18.3, prediction.Temperature, 1e-9)
	assert.Equal(t, weather.ConditionCloudy, prediction.Condition)
	assert.Len(t, prediction.Readings, 3)
}

func TestGetCurrentWeatherMissingQuery(t *testing.T) {
	app, _ := testApp(t, testService(false))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/weather/current?city=Seoul", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetCurrentWeatherProviderFailure(t *testing.T) {
	app, _ := testApp(t, testService(true))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/weather/current?city=Seoul&country=KR", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestGetLatestWeightsDefaultsWhenEmpty(t *testing.T) {
	app, _ := testApp(t, testService(false))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/weights/latest", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snapshot store.AIWeightsSnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snapshot))
	assert.Equal(t, "default", snapshot.Version)
	assert.Equal(t, ensemble.DefaultWeights(), snapshot.Weights)
}

func TestGetLatestWeightsAfterAppend(t *testing.T) {
	app, weights := testApp(t, testService(false))

	_, err := weights.Append(store.AIWeightsSnapshot{
		Version: "2026-08-20",
		Weights: ensemble.DefaultWeights(),
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/weights/latest", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snapshot store.AIWeightsSnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snapshot))
	assert.Equal(t, "2026-08-20", snapshot.Version)
}

func TestGetWeightsHistory(t *testing.T) {
	app, weights := testApp(t, testService(false))

	for _, version := range []string{"2026-08-13", "2026-08-20"} {
		_, err := weights.Append(store.AIWeightsSnapshot{Version: version, Weights: ensemble.DefaultWeights()})
		require.NoError(t, err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/weights/history", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var history store.WeightChangeHistory
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	require.Len(t, history.History, 2)
	assert.Equal(t, "2026-08-20", history.Latest.Version)
	assert.Equal(t, "2026-08-13", history.Initial.Version)
}
