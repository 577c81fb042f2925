package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neisii/weather-forecast-accuracy/internal/weather"
)

func record(temp float64) weather.ReadingRecord {
	return weather.ReadingRecord{
		Reading: &weather.ProviderReading{TemperatureC: temp},
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	s := NewFileStore(t.TempDir())

	records := map[string]weather.ReadingRecord{
		"openweathermap": record(18.5),
		"weatherapi":     {Error: "upstream timeout"},
	}

	require.NoError(t, s.SavePredictions("2026-08-20", records))
	require.NoError(t, s.SaveObservations("2026-08-20", records))

	window, err := s.LoadWindow(7)
	require.NoError(t, err)
	require.Len(t, window, 1)

	day := window[0]
	assert.Equal(t, "2026-08-20", day.Date)
	assert.InDelta(t, 18.5, day.Predictions["openweathermap"].Reading.TemperatureC, 1e-9)
	assert.False(t, day.Predictions["weatherapi"].OK())
	assert.Equal(t, "upstream timeout", day.Predictions["weatherapi"].Error)
}

func TestLoadWindowPairsByDate(t *testing.T) {
	s := NewFileStore(t.TempDir())
	records := map[string]weather.ReadingRecord{"openweathermap": record(20)}

	// Three prediction days but only two have observations.
	for _, date := range []string{"2026-08-18", "2026-08-19", "2026-08-20"} {
		require.NoError(t, s.SavePredictions(date, records))
	}
	require.NoError(t, s.SaveObservations("2026-08-18", records))
	require.NoError(t, s.SaveObservations("2026-08-20", records))

	window, err := s.LoadWindow(30)
	require.NoError(t, err)
	require.Len(t, window, 2)

	// Newest first.
	assert.Equal(t, "2026-08-20", window[0].Date)
	assert.Equal(t, "2026-08-18", window[1].Date)
}

func TestLoadWindowCapsAtRequestedDays(t *testing.T) {
	s := NewFileStore(t.TempDir())
	records := map[string]weather.ReadingRecord{"openweathermap": record(20)}

	for i := 1; i <= 10; i++ {
		date := fmt.Sprintf("2026-08-%02d", i)
		require.NoError(t, s.SavePredictions(date, records))
		require.NoError(t, s.SaveObservations(date, records))
	}

	window, err := s.LoadWindow(5)
	require.NoError(t, err)
	require.Len(t, window, 5)
	assert.Equal(t, "2026-08-10", window[0].Date)
	assert.Equal(t, "2026-08-06", window[4].Date)
}

func TestLoadWindowEmptyStore(t *testing.T) {
	s := NewFileStore(t.TempDir())

	_, err := s.LoadWindow(7)
	assert.ErrorIs(t, err, ErrNotFound)
}
