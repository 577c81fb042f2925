package calibration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/neisii/weather-forecast-accuracy/internal/accuracy"
	"github.com/neisii/weather-forecast-accuracy/internal/ensemble"
	"github.com/neisii/weather-forecast-accuracy/internal/notify"
	"github.com/neisii/weather-forecast-accuracy/internal/store"
)

// Pipeline runs one offline calibration cycle: load the trailing window of
// paired artifacts, measure per-provider accuracy, derive a new weight table,
// and append a versioned snapshot when the proposal clears the recommendation
// gate. Re-running on the same window with the same inputs deterministically
// reproduces the same proposal.
type Pipeline struct {
	artifacts  *store.FileStore
	weights    *store.WeightStore
	notifier   *notify.Notifier
	windowDays int
}

// New creates a Pipeline. windowDays of 0 uses the default trailing window.
func New(artifacts *store.FileStore, weights *store.WeightStore, notifier *notify.Notifier, windowDays int) *Pipeline {
	if windowDays <= 0 {
		windowDays = accuracy.DefaultWindowDays
	}
	return &Pipeline{
		artifacts:  artifacts,
		weights:    weights,
		notifier:   notifier,
		windowDays: windowDays,
	}
}

// Run executes one calibration cycle. It returns the accepted snapshot, or
// nil when the optimization was not recommended and the store was left
// untouched. An analysis window below the minimum aborts with
// accuracy.ErrInsufficientData; prior weights remain in force.
func (p *Pipeline) Run(ctx context.Context) (*store.AIWeightsSnapshot, error) {
	window, err := p.artifacts.LoadWindow(p.windowDays)
	if err != nil {
		return nil, fmt.Errorf("load analysis window: %w", err)
	}
	log.Info().Int("days", len(window)).Int("window", p.windowDays).Msg("loaded paired artifacts")

	acc, err := accuracy.Analyze(window)
	if err != nil {
		return nil, err
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

	incumbent := ensemble.DefaultWeights()
	if latest, err := p.weights.Latest(); err == nil {
		incumbent = latest.Weights
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load incumbent weights: %w", err)
	}

	result := accuracy.Optimize(acc, incumbent)
	if !result.Recommended {
		log.Warn().Str("reason", result.Reason).Float64("confidence", result.Confidence).
			Msg("optimization not recommended; weights unchanged")
		return nil, nil
	}

	now := time.Now().UTC()
	snapshot := store.AIWeightsSnapshot{
		Version:     now.Format(store.DateLayout),
		UpdatedAt:   now,
		Weights:     result.NewWeights,
		Performance: result.ExpectedPerformance,
		AnalysisPeriod: store.AnalysisPeriod{
			From: window[len(window)-1].Date,
			To:   window[0].Date,
			Days: len(window),
		},
		ChangeReason: result.Reason,
	}

	stored, err := p.weights.Append(snapshot)
	if err != nil {
		return nil, fmt.Errorf("append weight snapshot: %w", err)
	}
	log.Info().Str("version", stored.Version).
		Float64("overallScore", stored.Performance.Ensemble.OverallScore).
		Msg("accepted new weight snapshot")

	if p.notifier != nil && p.notifier.Enabled() {
		if err := p.notifier.Send(ctx, stored, result.Confidence); err != nil {
			log.Warn().Err(err).Msg("snapshot notification failed")
		}
	}

	return &stored, nil
}
