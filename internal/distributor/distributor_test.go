package distributor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neisii/weather-forecast-accuracy/internal/ensemble"
	"github.com/neisii/weather-forecast-accuracy/internal/store"
)

func publishedSnapshot(version string) store.AIWeightsSnapshot {
	weights := ensemble.DefaultWeights()
	weights.Temperature = map[string]float64{
		"openmeteo":      0.50,
		"openweathermap": 0.35,
		"weatherapi":     0.15,
	}
	return store.AIWeightsSnapshot{
		Version:   version,
		UpdatedAt: time.Date(2026, 8, 20, 1, 0, 0, 0, time.UTC),
		Weights:   weights,
	}
}

func snapshotServer(t *testing.T, snapshot store.AIWeightsSnapshot) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(snapshot))
	}))
}

func TestLoadFetchesAndCaches(t *testing.T) {
	srv := snapshotServer(t, publishedSnapshot("2026-08-20"))
	defer srv.Close()

	l := NewLoader(srv.Client(), srv.URL, time.Hour)

	weights := l.Load(context.Background())
	assert.InDelta(t, 0.50, weights.Temperature["openmeteo"], 1e-9)

	cached, ok := l.Snapshot()
	require.True(t, ok)
	assert.Equal(t, "2026-08-20", cached.Version)
}

func TestLoadServesCacheWithinTTL(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(publishedSnapshot("2026-08-20"))
	}))
	defer srv.Close()

	l := NewLoader(srv.Client(), srv.URL, time.Hour)
	l.store(publishedSnapshot("2026-08-13"))

	weights := l.Load(context.Background())
	// The cached table is returned immediately; the fetch, if any, happens in
	// the background.
	assert.InDelta(t, 0.50, weights.Temperature["openmeteo"], 1e-9)
}

func TestLoadFallsBackToDefaultsOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	l := NewLoader(srv.Client(), srv.URL, time.Hour)

	weights := l.Load(context.Background())
	assert.Equal(t, ensemble.DefaultWeights(), weights)

	_, ok := l.Snapshot()
	assert.False(t, ok)
}

func TestLoadFallsBackToDefaultsOnInvalidSnapshot(t *testing.T) {
	// Weight table sums far from 1.0; the snapshot must be rejected.
	bad := publishedSnapshot("2026-08-20")
	bad.Weights.Temperature = map[string]float64{"openmeteo": 0.2}

	srv := snapshotServer(t, bad)
	defer srv.Close()

	l := NewLoader(srv.Client(), srv.URL, time.Hour)

	weights := l.Load(context.Background())
	assert.Equal(t, ensemble.DefaultWeights(), weights)
}

func TestRefreshSwapsOnNewVersion(t *testing.T) {
	srv := snapshotServer(t, publishedSnapshot("2026-08-27"))
	defer srv.Close()

	l := NewLoader(srv.Client(), srv.URL, time.Hour)
	l.store(publishedSnapshot("2026-08-20"))

	l.refreshIfStale()

	cached, ok := l.Snapshot()
	require.True(t, ok)
	assert.Equal(t, "2026-08-27", cached.Version)
}

func TestRefreshKeepsCacheOnSameVersion(t *testing.T) {
	srv := snapshotServer(t, publishedSnapshot("2026-08-20"))
	defer srv.Close()

	l := NewLoader(srv.Client(), srv.URL, time.Hour)
	l.store(publishedSnapshot("2026-08-20"))

	l.mu.RLock()
	before := l.cachedAt
	l.mu.RUnlock()

	l.refreshIfStale()

	l.mu.RLock()
	after := l.cachedAt
	l.mu.RUnlock()
	// Same published version: the cache entry is not rewritten.
	assert.Equal(t, before, after)
}

func TestRefreshKeepsCacheOnFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	l := NewLoader(srv.Client(), srv.URL, time.Hour)
	l.store(publishedSnapshot("2026-08-20"))

	l.refreshIfStale()

	cached, ok := l.Snapshot()
	require.True(t, ok)
	assert.Equal(t, "2026-08-20", cached.Version)
}
