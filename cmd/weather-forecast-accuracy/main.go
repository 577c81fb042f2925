package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpapi "github.com/neisii/weather-forecast-accuracy/internal/api/http"
	"github.com/neisii/weather-forecast-accuracy/internal/calibration"
	"github.com/neisii/weather-forecast-accuracy/internal/config"
	"github.com/neisii/weather-forecast-accuracy/internal/distributor"
	"github.com/neisii/weather-forecast-accuracy/internal/notify"
	"github.com/neisii/weather-forecast-accuracy/internal/scheduler"
	"github.com/neisii/weather-forecast-accuracy/internal/store"
	"github.com/neisii/weather-forecast-accuracy/internal/weather"
	"github.com/neisii/weather-forecast-accuracy/internal/weather/providers"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Shared HTTP client for outbound calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Dated artifacts and versioned weight snapshots.
	artifacts := store.NewFileStore(cfg.DataDir)
	weightStore := store.NewWeightStore(cfg.DataDir)

	// Providers with resilience (backoff + circuit breaker).
	provs := []weather.Provider{
		providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey),
		providers.NewWeatherAPIProvider(httpClient, cfg.WeatherAPIKey),
		providers.NewOpenMeteoProvider(httpClient, cfg.GeocoderAPIKey),
	}

	service := weather.NewService(provs)

	// Client-side weight loader: cache-first, fetch-fallback, default-fallback.
	loader := distributor.NewLoader(httpClient, cfg.WeightsURL, cfg.WeightsCacheTTL)

	// Offline calibration pipeline and its schedules.
	notifier := notify.New(httpClient, cfg.WebhookURL)
	pipeline := calibration.New(artifacts, weightStore, notifier, cfg.WindowDays)

	sched := scheduler.New(service, artifacts, pipeline, cfg.Locations[0], scheduler.Config{
		CollectPredictionsAt:  cfg.CollectPredictionsAt,
		CollectObservationsAt: cfg.CollectObservationsAt,
		CalibrationCron:       cfg.CalibrationCron,
	})
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "weather-forecast-accuracy",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-forecast-accuracy",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, service, loader, weightStore)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error().Err(err).Msg("fiber server stopped")
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
}
