package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/neisii/weather-forecast-accuracy/internal/weather"
)

type AppConfig struct {
	OpenWeatherAPIKey string
	WeatherAPIKey     string
	GeocoderAPIKey    string

	// DataDir is the root of the dated artifacts and weight snapshots.
	DataDir string

	// WeightsURL is where consumers fetch the published latest snapshot.
	WeightsURL string

	// WeightsCacheTTL is how long the distributor serves a cached snapshot.
	WeightsCacheTTL time.Duration

	// Collection and calibration schedules.
	CollectPredictionsAt  string // HH:MM, daily
	CollectObservationsAt string // HH:MM, daily
	CalibrationCron       string // cron expression, weekly by default

	// WindowDays is the trailing window for accuracy analysis.
	WindowDays int

	// WebhookURL receives snapshot summaries; empty disables notification.
	WebhookURL string

	HTTPTimeout time.Duration

	// Locations to track. The first is the calibration location the daily
	// jobs collect artifacts for.
	Locations []weather.Location

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found; using process environment")
	}
	cfg := &AppConfig{}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.WeatherAPIKey = os.Getenv("WEATHERAPI_API_KEY")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	cfg.DataDir = getenvDefault("DATA_DIR", "data")
	cfg.WeightsURL = os.Getenv("WEIGHTS_URL")

	ttlStr := getenvDefault("WEIGHTS_CACHE_TTL", "1h")
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid WEIGHTS_CACHE_TTL: %w", err)
	}
	cfg.WeightsCacheTTL = ttl

	cfg.CollectPredictionsAt = getenvDefault("COLLECT_PREDICTIONS_AT", "00:00")
	cfg.CollectObservationsAt = getenvDefault("COLLECT_OBSERVATIONS_AT", "12:00")
	// Weekly on Monday at 01:00 UTC.
	cfg.CalibrationCron = getenvDefault("CALIBRATION_CRON", "0 1 * * 1")

	cfg.WindowDays = getenvInt("ANALYSIS_WINDOW_DAYS", 30)
	cfg.WebhookURL = os.Getenv("WEBHOOK_URL")

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "10s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	cfg.Port = getenvDefault("PORT", "8080")

	locs, err := loadLocations()
	if err != nil {
		return nil, err
	}
	cfg.Locations = locs

	return cfg, nil
}

func loadLocations() ([]weather.Location, error) {
	city := getenvDefault("WEATHER_LOCATION_CITY", "Seoul")
	country := getenvDefault("WEATHER_LOCATION_COUNTRY", "KR")
	cities := strings.Split(city, ",")
	countries := strings.Split(country, ",")
	if len(cities) != len(countries) {
		return nil, fmt.Errorf("number of cities and countries must be the same")
	}
	var locs []weather.Location
	for i := range cities {
		locs = append(locs, weather.Location{
			City:    strings.TrimSpace(cities[i]),
			Country: strings.TrimSpace(countries[i]),
		})
	}

	return locs, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
