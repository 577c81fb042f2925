package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog/log"

	"github.com/neisii/weather-forecast-accuracy/internal/calibration"
	"github.com/neisii/weather-forecast-accuracy/internal/store"
	"github.com/neisii/weather-forecast-accuracy/internal/weather"
)

// Config holds the job schedules.
type Config struct {
	CollectPredictionsAt  string // HH:MM, daily
	CollectObservationsAt string // HH:MM, daily
	CalibrationCron       string // cron expression
}

// Scheduler runs the periodic collection and calibration jobs: daily
// prediction collection, daily observation collection, and a weekly
// calibration run. Jobs are driven by a single scheduler, so there is never
// more than one writer for the artifact store at a time.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   *weather.Service
	artifacts *store.FileStore
	pipeline  *calibration.Pipeline
	location  weather.Location
	cfg       Config
}

// New creates a new Scheduler collecting artifacts for the given location.
func New(service *weather.Service, artifacts *store.FileStore, pipeline *calibration.Pipeline, location weather.Location, cfg Config) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		service:   service,
		artifacts: artifacts,
		pipeline:  pipeline,
		location:  location,
		cfg:       cfg,
	}
}

// Start registers the jobs and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Every(1).Day().At(s.cfg.CollectPredictionsAt).Do(s.CollectPredictions); err != nil {
		return err
	}
	if _, err := s.scheduler.Every(1).Day().At(s.cfg.CollectObservationsAt).Do(s.CollectObservations); err != nil {
		return err
	}
	if _, err := s.scheduler.Cron(s.cfg.CalibrationCron).Do(s.RunCalibration); err != nil {
		return err
	}

	s.scheduler.StartAsync()
	log.Info().Str("location", s.location.Key()).
		Str("predictionsAt", s.cfg.CollectPredictionsAt).
		Str("observationsAt", s.cfg.CollectObservationsAt).
		Str("calibrationCron", s.cfg.CalibrationCron).
		Msg("scheduler started")
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// CollectPredictions fetches every provider's current reading and stores the
// day's prediction artifact. Per-provider failures are recorded, not fatal.
func (s *Scheduler) CollectPredictions() {
	s.collect("predictions", s.artifacts.SavePredictions)
}

// CollectObservations fetches every provider's current reading and stores the
// day's observation artifact.
func (s *Scheduler) CollectObservations() {
	s.collect("observations", s.artifacts.SaveObservations)
}

func (s *Scheduler) collect(kind string, save func(string, map[string]weather.ReadingRecord) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	date := time.Now().UTC().Format(store.DateLayout)
	records := s.service.CollectReadings(ctx, s.location)

	if err := save(date, records); err != nil {
		log.Error().Str("kind", kind).Str("date", date).Err(err).Msg("failed to store collection artifact")
		return
	}
	log.Info().Str("kind", kind).Str("date", date).Int("providers", len(records)).Msg("stored collection artifact")
}

// RunCalibration executes one calibration cycle.
func (s *Scheduler) RunCalibration() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if _, err := s.pipeline.Run(ctx); err != nil {
		log.Error().Err(err).Msg("calibration run failed")
	}
}
