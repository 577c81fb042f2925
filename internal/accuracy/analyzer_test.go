package accuracy

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neisii/weather-forecast-accuracy/internal/weather"
)

func fptr(v float64) *float64 { return &v }

func okRecord(temp, wind float64, humidity *float64, cond weather.Condition) weather.ReadingRecord {
	return weather.ReadingRecord{
		Reading: &weather.ProviderReading{
			TemperatureC: temp,
			WindSpeedMS:  wind,
			HumidityPct:  humidity,
			Condition:    cond,
		},
	}
}

func errRecord(msg string) weather.ReadingRecord {
	return weather.ReadingRecord{Error: msg}
}

// window builds n paired days where provider "alpha" predicts 2°C warm and
// 1 m/s fast, and provider "beta" is exact. Alpha reports humidity 5% low;
// beta reports none at all.
func window(n int) []PairedDay {
	days := make([]PairedDay, 0, n)
	for i := 0; i < n; i++ {
		days = append(days, PairedDay{
			Date: fmt.Sprintf("2026-08-%02d", i+1),
			Predictions: map[string]weather.ReadingRecord{
				"alpha": okRecord(22, 4, fptr(55), weather.ConditionClear),
				"beta":  okRecord(20, 3, nil, weather.ConditionClear),
			},
			Observations: map[string]weather.ReadingRecord{
				"alpha": okRecord(20, 3, fptr(60), weather.ConditionClear),
				"beta":  okRecord(20, 3, nil, weather.ConditionClear),
			},
		})
	}
	return days
}

func TestAnalyze(t *testing.T) {
	acc, err := Analyze(window(10))
	require.NoError(t, err)
	require.Len(t, acc, 2)

	alpha := acc["alpha"]
	assert.InDelta(t, 2.0, alpha.TemperatureMAE, 1e-9)
	assert.InDelta(t, 1.0, alpha.WindSpeedMAE, 1e-9)
	assert.InDelta(t, 5.0, alpha.HumidityMAE, 1e-9)
	assert.InDelta(t, 1.0, alpha.ConditionAccuracy, 1e-9)
	assert.Equal(t, 10, alpha.SampleSize)
	assert.Equal(t, 10, alpha.HumiditySamples)

	beta := acc["beta"]
	assert.Zero(t, beta.TemperatureMAE)
	assert.Zero(t, beta.WindSpeedMAE)
	assert.Equal(t, 10, beta.SampleSize)
	// No humidity reported at all; the zero MAE means "no data", and
	// HumiditySamples is how callers tell that apart.
	assert.Equal(t, 0, beta.HumiditySamples)
	assert.Zero(t, beta.HumidityMAE)
}

func TestAnalyzeSkipsFailedRecordsPerProvider(t *testing.T) {
	days := window(8)
	// Alpha's observation failed on one day; beta's day must still count.
	days[3].Observations["alpha"] = errRecord("upstream timeout")
	// Alpha has no prediction at all on another day.
	delete(days[5].Predictions, "alpha")

	acc, err := Analyze(days)
	require.NoError(t, err)

	assert.Equal(t, 6, acc["alpha"].SampleSize)
	assert.Equal(t, 8, acc["beta"].SampleSize)
}

func TestAnalyzeInsufficientData(t *testing.T) {
	_, err := Analyze(window(6))
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = Analyze(nil)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestAnalyzeMinimumWindowExactly(t *testing.T) {
	acc, err := Analyze(window(MinWindowDays))
	require.NoError(t, err)
	assert.Equal(t, MinWindowDays, acc["alpha"].SampleSize)
}
