package store

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/neisii/weather-forecast-accuracy/internal/accuracy"
	"github.com/neisii/weather-forecast-accuracy/internal/ensemble"
)

const weightsDir = "ai-weights"

// AnalysisPeriod is the trailing window a snapshot was calibrated over.
type AnalysisPeriod struct {
	From string `json:"from"`
	To   string `json:"to"`
	Days int    `json:"days"`
}

// AIWeightsSnapshot is a versioned, immutable record of a weight table plus
// the performance it achieved when calibrated. The version identifier is
// derived from the calibration date (YYYY-MM-DD).
type AIWeightsSnapshot struct {
	Version        string                      `json:"version" validate:"required"`
	UpdatedAt      time.Time                   `json:"updatedAt"`
	Weights        ensemble.PredictionWeights  `json:"weights" validate:"required"`
	Performance    accuracy.PerformanceMetrics `json:"performance"`
	AnalysisPeriod AnalysisPeriod              `json:"analysisPeriod"`
	ChangeReason   string                      `json:"changeReason,omitempty"`
}

// WeightChangeHistory tracks every accepted snapshot. History is append-only
// and chronological; Initial is the first-ever accepted snapshot, retained
// permanently as the baseline and rollback reference.
type WeightChangeHistory struct {
	History []AIWeightsSnapshot `json:"history"`
	Latest  *AIWeightsSnapshot  `json:"latest"`
	Initial *AIWeightsSnapshot  `json:"initial"`
}

// WeightStore persists the versioned weight history under <dir>/ai-weights/:
// latest.json, one <version>.json per accepted snapshot, and a cumulative
// history.json. Snapshots are only ever appended; superseded versions are
// retained forever.
type WeightStore struct {
	dir string
}

// NewWeightStore creates a WeightStore rooted at dir.
func NewWeightStore(dir string) *WeightStore {
	return &WeightStore{dir: filepath.Join(dir, weightsDir)}
}

// Latest returns the most recently accepted snapshot, or ErrNotFound when no
// calibration run has ever been accepted.
func (s *WeightStore) Latest() (AIWeightsSnapshot, error) {
	return s.read("latest.json")
}

// History returns the full change history. A store with no accepted snapshots
// yields an empty history, not an error.
func (s *WeightStore) History() (WeightChangeHistory, error) {
	path := filepath.Join(s.dir, "history.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return WeightChangeHistory{}, nil
		}
		return WeightChangeHistory{}, err
	}

	var history WeightChangeHistory
	if err := json.Unmarshal(data, &history); err != nil {
		return WeightChangeHistory{}, fmt.Errorf("decode weight history: %w", err)
	}
	return history, nil
}

// Append accepts a proposed snapshot: it computes the improvement over the
// snapshot that was latest immediately before this one, writes latest.json
// and the per-version file, and appends to history.json. Initial is set
// exactly once, on the very first accepted snapshot, and never overwritten.
// Callers only invoke Append for recommended optimization runs; a rejected
// run leaves the store untouched.
func (s *WeightStore) Append(snapshot AIWeightsSnapshot) (AIWeightsSnapshot, error) {
	if err := snapshot.Weights.Validate(); err != nil {
		return AIWeightsSnapshot{}, fmt.Errorf("refusing to store invalid weights: %w", err)
	}

	prior, err := s.Latest()
	if err == nil {
		snapshot.Performance.Improvement = improvementOver(prior.Performance, snapshot.Performance)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return AIWeightsSnapshot{}, fmt.Errorf("create weights dir: %w", err)
	}

	if err := s.write("latest.json", snapshot); err != nil {
		return AIWeightsSnapshot{}, err
	}
	if err := s.write(snapshot.Version+".json", snapshot); err != nil {
		return AIWeightsSnapshot{}, err
	}

	history, err := s.History()
	if err != nil {
		return AIWeightsSnapshot{}, err
	}
	history.History = append(history.History, snapshot)
	history.Latest = &snapshot
	if history.Initial == nil {
		history.Initial = &snapshot
	}

	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return AIWeightsSnapshot{}, fmt.Errorf("encode weight history: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, "history.json"), data, 0o644); err != nil {
		return AIWeightsSnapshot{}, fmt.Errorf("write weight history: %w", err)
	}

	return snapshot, nil
}

func (s *WeightStore) read(name string) (AIWeightsSnapshot, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return AIWeightsSnapshot{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return AIWeightsSnapshot{}, err
	}

	var snapshot AIWeightsSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return AIWeightsSnapshot{}, fmt.Errorf("decode weight snapshot %s: %w", name, err)
	}
	return snapshot, nil
}

func (s *WeightStore) write(name string, snapshot AIWeightsSnapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encode weight snapshot: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("write weight snapshot %s: %w", name, err)
	}
	return nil
}

// improvementOver compares a new snapshot's projected ensemble score with the
// previous one. Error metrics use (old-new)/old: positive means the error
// shrank. The overall score uses (new-old)/old: positive means the score
// grew. The sign convention deliberately differs per field so that positive
// always reads as improvement.
func improvementOver(prev, next accuracy.PerformanceMetrics) *accuracy.Improvement {
	pct := func(v float64) float64 { return math.Round(v*10) / 10 }

	imp := &accuracy.Improvement{}
	if prev.Ensemble.TemperatureMAE != 0 {
		imp.Temperature = pct((prev.Ensemble.TemperatureMAE - next.Ensemble.TemperatureMAE) / prev.Ensemble.TemperatureMAE * 100)
	}
	if prev.Ensemble.WindSpeedMAE != 0 {
		imp.WindSpeed = pct((prev.Ensemble.WindSpeedMAE - next.Ensemble.WindSpeedMAE) / prev.Ensemble.WindSpeedMAE * 100)
	}
	if prev.Ensemble.HumidityMAE != 0 {
		imp.Humidity = pct((prev.Ensemble.HumidityMAE - next.Ensemble.HumidityMAE) / prev.Ensemble.HumidityMAE * 100)
	}
	if prev.Ensemble.OverallScore != 0 {
		imp.Overall = pct((next.Ensemble.OverallScore - prev.Ensemble.OverallScore) / prev.Ensemble.OverallScore * 100)
	}
	return imp
}
