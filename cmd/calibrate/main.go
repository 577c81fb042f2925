// Command calibrate runs the collection and calibration jobs once and exits,
// for operators that drive scheduling externally (system cron, CI).
package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/neisii/weather-forecast-accuracy/internal/accuracy"
	"github.com/neisii/weather-forecast-accuracy/internal/calibration"
	"github.com/neisii/weather-forecast-accuracy/internal/config"
	"github.com/neisii/weather-forecast-accuracy/internal/notify"
	"github.com/neisii/weather-forecast-accuracy/internal/store"
	"github.com/neisii/weather-forecast-accuracy/internal/weather"
	"github.com/neisii/weather-forecast-accuracy/internal/weather/providers"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	root := &cobra.Command{
		Use:           "calibrate",
		Short:         "One-shot weather collection and weight calibration jobs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(collectCmd("collect-predictions", "Fetch every provider's forecast reading and store today's prediction artifact", (*store.FileStore).SavePredictions))
	root.AddCommand(collectCmd("collect-observations", "Fetch every provider's current reading and store today's observation artifact", (*store.FileStore).SaveObservations))
	root.AddCommand(analyzeCmd())
	root.AddCommand(runCmd())

	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

// env builds the shared dependencies every subcommand needs.
func env() (*config.AppConfig, *weather.Service, *store.FileStore, *store.WeightStore, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, nil, err
	}

	client := &http.Client{Timeout: cfg.HTTPTimeout}
	service := weather.NewService([]weather.Provider{
		providers.NewOpenWeatherProvider(client, cfg.OpenWeatherAPIKey),
		providers.NewWeatherAPIProvider(client, cfg.WeatherAPIKey),
		providers.NewOpenMeteoProvider(client, cfg.GeocoderAPIKey),
	})

	return cfg, service, store.NewFileStore(cfg.DataDir), store.NewWeightStore(cfg.DataDir), nil
}

func collectCmd(use, short string, save func(*store.FileStore, string, map[string]weather.ReadingRecord) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, service, artifacts, _, err := env()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			date := time.Now().UTC().Format(store.DateLayout)
			records := service.CollectReadings(ctx, cfg.Locations[0])
			if err := save(artifacts, date, records); err != nil {
				return err
			}

			log.Info().Str("date", date).Int("providers", len(records)).Msg("stored collection artifact")
			return nil
		},
	}
}

func analyzeCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Report per-provider accuracy over the trailing window without changing weights",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, artifacts, _, err := env()
			if err != nil {
				return err
			}
			if days <= 0 {
				days = cfg.WindowDays
			}

			window, err := artifacts.LoadWindow(days)
			if err != nil {
				return err
			}

			acc, err := accuracy.Analyze(window)
			if err != nil {
				return err
			}

			for provider, a := range acc {
				log.Info().Str("provider", provider).
					Float64("temperatureMAE", a.TemperatureMAE).
					Float64("windSpeedMAE", a.WindSpeedMAE).
					Float64("humidityMAE", a.HumidityMAE).
					Float64("conditionAccuracy", a.ConditionAccuracy).
					Int("samples", a.SampleSize).
					Msg("provider accuracy")
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "analysis window in days (default: ANALYSIS_WINDOW_DAYS)")
	return cmd
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one full calibration cycle and append a snapshot when recommended",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, artifacts, weights, err := env()
			if err != nil {
				return err
			}

			client := &http.Client{Timeout: cfg.HTTPTimeout}
			notifier := notify.New(client, cfg.WebhookURL)
			pipeline := calibration.New(artifacts, weights, notifier, cfg.WindowDays)

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			snapshot, err := pipeline.Run(ctx)
			if err != nil {
				return err
			}
			if snapshot == nil {
				log.Warn().Msg("optimization not recommended; weights unchanged")
				return nil
			}

			log.Info().Str("version", snapshot.Version).Msg("calibration accepted")
			return nil
		},
	}
}
