package calibration

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neisii/weather-forecast-accuracy/internal/accuracy"
	"github.com/neisii/weather-forecast-accuracy/internal/notify"
	"github.com/neisii/weather-forecast-accuracy/internal/store"
	"github.com/neisii/weather-forecast-accuracy/internal/weather"
)

func fptr(v float64) *float64 { return &v }

// seedWindow writes n paired days where provider "alpha" consistently predicts
// 2°C warm and "beta" is exact.
func seedWindow(t *testing.T, artifacts *store.FileStore, n int) (oldest, newest string) {
	t.Helper()
	for i := 1; i <= n; i++ {
		date := fmt.Sprintf("2026-07-%02d", i)
		predictions := map[string]weather.ReadingRecord{
			"alpha": {Reading: &weather.ProviderReading{TemperatureC: 22, WindSpeedMS: 4, HumidityPct: fptr(55), Condition: weather.ConditionClear}},
			"beta":  {Reading: &weather.ProviderReading{TemperatureC: 20, WindSpeedMS: 3, Condition: weather.ConditionClear}},
		}
		observations := map[string]weather.ReadingRecord{
			"alpha": {Reading: &weather.ProviderReading{TemperatureC: 20, WindSpeedMS: 3, HumidityPct: fptr(60), Condition: weather.ConditionClear}},
			"beta":  {Reading: &weather.ProviderReading{TemperatureC: 20, WindSpeedMS: 3, Condition: weather.ConditionClear}},
		}
		require.NoError(t, artifacts.SavePredictions(date, predictions))
		require.NoError(t, artifacts.SaveObservations(date, observations))
	}
	return "2026-07-01", fmt.Sprintf("2026-07-%02d", n)
}

func newPipeline(t *testing.T, windowDays int) (*Pipeline, *store.FileStore, *store.WeightStore) {
	t.Helper()
	dir := t.TempDir()
	artifacts := store.NewFileStore(dir)
	weights := store.NewWeightStore(dir)
	notifier := notify.New(http.DefaultClient, "")
	return New(artifacts, weights, notifier, windowDays), artifacts, weights
}

func TestRunAcceptsRecommendedOptimization(t *testing.T) {
	pipeline, artifacts, weights := newPipeline(t, 30)
	oldest, newest := seedWindow(t, artifacts, 25)

	snapshot, err := pipeline.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snapshot)

	assert.Equal(t, time.Now().UTC().Format(store.DateLayout), snapshot.Version)
	assert.Equal(t, oldest, snapshot.AnalysisPeriod.From)
	assert.Equal(t, newest, snapshot.AnalysisPeriod.To)
	assert.Equal(t, 25, snapshot.AnalysisPeriod.Days)

	// Beta was exact; it must end up carrying almost all the temperature weight.
	assert.Greater(t, snapshot.Weights.Temperature["beta"], snapshot.Weights.Temperature["alpha"])
	// Only alpha reported humidity in the window.
	assert.Equal(t, map[string]float64{"alpha": 1.0}, snapshot.Weights.Humidity)

	latest, err := weights.Latest()
	require.NoError(t, err)
	assert.Equal(t, snapshot.Version, latest.Version)
}

func TestRunBelowMinimumWindowLeavesWeightsUntouched(t *testing.T) {
	pipeline, artifacts, weights := newPipeline(t, 30)
	seedWindow(t, artifacts, 5)

	_, err := pipeline.Run(context.Background())
	assert.ErrorIs(t, err, accuracy.ErrInsufficientData)

	_, err = weights.Latest()
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRunNotRecommendedLeavesWeightsUntouched(t *testing.T) {
	pipeline, artifacts, weights := newPipeline(t, 30)
	// Enough days to analyze, not enough to clear the recommendation gate.
	seedWindow(t, artifacts, 10)

	snapshot, err := pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snapshot)

	_, err = weights.Latest()
	assert.ErrorIs(t, err, store.ErrNotFound)
}
